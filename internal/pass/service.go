// Package pass applies inbound user events to the trail, reward and counter engines.
//
// Each event runs as one transaction under a single lock, so two events can never interleave
// and double count. Notifications collected while handling an event are published only after
// its transaction commits.
package pass

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/feed"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/notifier"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/reward"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/stats"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/trail"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommandType names an inbound event.
type CommandType string

const (
	CheckIn           CommandType = "CHECKIN"
	TrailVisit        CommandType = "TRAIL_VISIT"
	POSTransaction    CommandType = "POS_TRANSACTION"
	RevealRequest     CommandType = "REVEAL_REQUEST"
	RedemptionConfirm CommandType = "REDEMPTION_CONFIRM"
)

// Command is one inbound event. Only the fields its Type needs are read.
type Command struct {
	Type     CommandType
	UserID   uint
	ShopID   string
	TrailID  string
	RewardID string
	CheckIn  stats.CheckInInput
	Amount   decimal.Decimal
	Provider string
}

// TrailUpdate is the state of one trail touched by an event.
type TrailUpdate struct {
	TrailID   string        `json:"trail_id"`
	Summary   trail.Summary `json:"summary"`
	Completed bool          `json:"completed"`
}

// Result gathers everything an event changed.
type Result struct {
	User         *models.User           `json:"user,omitempty"`
	CheckIn      *models.CheckIn        `json:"checkin,omitempty"`
	Post         *models.Post           `json:"post,omitempty"`
	Transaction  *models.POSTransaction `json:"transaction,omitempty"`
	Trails       []TrailUpdate          `json:"trails,omitempty"`
	Unlocked     []models.Reward        `json:"unlocked_rewards,omitempty"`
	Achievements []models.Achievement   `json:"achievements,omitempty"`
	Revealed     *reward.Revealed       `json:"revealed,omitempty"`
	Redemption   *models.UserReward     `json:"redemption,omitempty"`
	Events       []notifier.Event       `json:"events,omitempty"`
}

type Options struct {
	TrailCompletionXP int
}

type Deps struct {
	Stats    *stats.Service
	Trails   *trail.Engine
	Rewards  *reward.Engine
	Feed     *feed.Service
	Notifier notifier.Notifier
	Clock    domain.Clock
}

type Service struct {
	mu       sync.Mutex
	db       *gorm.DB
	stats    *stats.Service
	trails   *trail.Engine
	rewards  *reward.Engine
	feed     *feed.Service
	notifier notifier.Notifier
	clock    domain.Clock
	opts     Options
}

func NewService(db *gorm.DB, deps Deps, opts Options) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Service{
		db:       db,
		stats:    deps.Stats,
		trails:   deps.Trails,
		rewards:  deps.Rewards,
		feed:     deps.Feed,
		notifier: deps.Notifier,
		clock:    clock,
		opts:     opts,
	}
}

// Handle dispatches a command to the matching operation.
func (s *Service) Handle(ctx context.Context, cmd Command) (*Result, error) {
	switch cmd.Type {
	case CheckIn:
		in := cmd.CheckIn
		if in.ShopID == "" {
			in.ShopID = cmd.ShopID
		}
		return s.CheckIn(ctx, cmd.UserID, in)
	case TrailVisit:
		return s.VisitTrail(ctx, cmd.UserID, cmd.TrailID, cmd.ShopID)
	case POSTransaction:
		return s.POSTransaction(ctx, cmd.UserID, cmd.ShopID, cmd.Amount, cmd.Provider)
	case RevealRequest:
		r, err := s.Reveal(ctx, cmd.UserID, cmd.RewardID)
		if err != nil {
			return nil, err
		}
		return &Result{Revealed: r}, nil
	case RedemptionConfirm:
		ur, err := s.Confirm(ctx, cmd.UserID, cmd.RewardID)
		if err != nil {
			return nil, err
		}
		return &Result{Redemption: ur}, nil
	}
	return nil, fmt.Errorf("command %q: %w", cmd.Type, domain.ErrInvalidArgument)
}

// session is the transaction-bound view of the engines for one event.
type session struct {
	stats   *stats.Service
	trails  *trail.Engine
	rewards *reward.Engine
	feed    *feed.Service
	res     *Result
}

func (s *Service) run(ctx context.Context, fn func(ss *session) error) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&session{
			stats:   s.stats.WithTx(tx),
			trails:  s.trails.WithTx(tx),
			rewards: s.rewards.WithTx(tx),
			feed:    s.feed.WithTx(tx),
			res:     res,
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) publish(ctx context.Context, events []notifier.Event) {
	if s.notifier == nil {
		return
	}
	for _, e := range events {
		if err := s.notifier.Notify(ctx, e); err != nil {
			log.Printf("pass: notify %s for user %d: %v", e.Kind, e.UserID, err)
		}
	}
}

// CheckIn records a check-in, visits the shop on every trail that contains it and settles
// rewards and achievements.
func (s *Service) CheckIn(ctx context.Context, userID uint, in stats.CheckInInput) (*Result, error) {
	return s.run(ctx, func(ss *session) error {
		c, _, err := ss.stats.RecordCheckIn(ctx, userID, in)
		if err != nil {
			return err
		}
		ss.res.CheckIn = c

		trails, err := ss.trails.TrailsWithShop(ctx, in.ShopID)
		if err != nil {
			return err
		}
		var completed []models.Trail
		for _, t := range trails {
			done, err := s.visit(ctx, ss, t, in.ShopID, userID)
			if err != nil {
				return err
			}
			if done {
				completed = append(completed, t)
			}
		}

		if ss.res.Post, err = ss.feed.CheckIn(ctx, *c); err != nil {
			return err
		}
		return s.settle(ctx, ss, userID, completed)
	})
}

// VisitTrail records a visit to one shop of one trail.
func (s *Service) VisitTrail(ctx context.Context, userID uint, trailID, shopID string) (*Result, error) {
	return s.run(ctx, func(ss *session) error {
		if _, err := ss.stats.User(ctx, userID); err != nil {
			return err
		}
		t, err := ss.trails.Trail(ctx, trailID)
		if err != nil {
			return err
		}
		done, err := s.visit(ctx, ss, *t, shopID, userID)
		if err != nil {
			return err
		}
		var completed []models.Trail
		if done {
			completed = append(completed, *t)
		}
		return s.settle(ctx, ss, userID, completed)
	})
}

func (s *Service) visit(ctx context.Context, ss *session, t models.Trail, shopID string, userID uint) (bool, error) {
	p, out, err := ss.trails.VisitShop(ctx, t.ID, shopID, userID)
	if err != nil {
		return false, err
	}
	ss.res.Trails = append(ss.res.Trails, TrailUpdate{
		TrailID:   t.ID,
		Summary:   trail.Summarize(t, p),
		Completed: p.IsCompleted,
	})
	return out.Completed, nil
}

// StartTrail starts the trail for the user. Starting twice is a no-op.
func (s *Service) StartTrail(ctx context.Context, userID uint, trailID string) (*models.TrailProgress, error) {
	var p *models.TrailProgress
	_, err := s.run(ctx, func(ss *session) error {
		if _, err := ss.stats.User(ctx, userID); err != nil {
			return err
		}
		var err error
		p, err = ss.trails.StartTrail(ctx, trailID, userID)
		return err
	})
	return p, err
}

// POSTransaction records a purchase reported by a shop and settles POS-driven rewards.
func (s *Service) POSTransaction(ctx context.Context, userID uint, shopID string, amount decimal.Decimal, provider string) (*Result, error) {
	return s.run(ctx, func(ss *session) error {
		txn, err := ss.stats.RecordPOSTransaction(ctx, userID, shopID, amount, provider)
		if err != nil {
			return err
		}
		ss.res.Transaction = txn
		return s.settle(ctx, ss, userID, nil)
	})
}

// settle credits completed trails, then re-evaluates rewards and achievements until neither
// produces anything new, since points from one can satisfy the other.
func (s *Service) settle(ctx context.Context, ss *session, userID uint, completed []models.Trail) error {
	now := s.clock.Now()
	for _, t := range completed {
		if _, err := ss.stats.CompleteTrail(ctx, userID, s.opts.TrailCompletionXP); err != nil {
			return err
		}
		ss.res.Events = append(ss.res.Events, notifier.Event{
			Kind: notifier.TrailCompleted, UserID: userID, TrailID: t.ID, At: now,
		})
		unlocked, err := ss.rewards.UnlockRewards(ctx, userID, t.RewardIDs)
		if err != nil {
			return err
		}
		if err := s.credit(ctx, ss, userID, unlocked, now); err != nil {
			return err
		}
	}

	for {
		unlocked, err := ss.rewards.Evaluate(ctx, userID, ss.stats)
		if err != nil {
			return err
		}
		if err := s.credit(ctx, ss, userID, unlocked, now); err != nil {
			return err
		}
		earned, err := ss.stats.EvaluateAchievements(ctx, userID)
		if err != nil {
			return err
		}
		for _, a := range earned {
			ss.res.Achievements = append(ss.res.Achievements, a)
			ss.res.Events = append(ss.res.Events, notifier.Event{
				Kind: notifier.AchievementEarned, UserID: userID, AchievementID: a.ID, At: now,
			})
		}
		if len(unlocked) == 0 && len(earned) == 0 {
			break
		}
	}

	u, err := ss.stats.User(ctx, userID)
	if err != nil {
		return err
	}
	ss.res.User = u
	return nil
}

func (s *Service) credit(ctx context.Context, ss *session, userID uint, unlocked []models.Reward, now time.Time) error {
	for _, r := range unlocked {
		points := 0
		if r.Type == domain.RewardPoints {
			points = r.Value
		}
		if _, err := ss.stats.RewardEarned(ctx, userID, points); err != nil {
			return err
		}
		ss.res.Unlocked = append(ss.res.Unlocked, r)
		ss.res.Events = append(ss.res.Events, notifier.Event{
			Kind: notifier.RewardUnlocked, UserID: userID, RewardID: r.ID, At: now,
		})
	}
	return nil
}

// Reveal opens the one-time code window for an unlocked reward.
func (s *Service) Reveal(ctx context.Context, userID uint, rewardID string) (*reward.Revealed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.stats.User(ctx, userID); err != nil {
		return nil, err
	}
	return s.rewards.Reveal(ctx, userID, rewardID)
}

// Confirm ends the active reveal session for the reward.
func (s *Service) Confirm(ctx context.Context, userID uint, rewardID string) (*models.UserReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewards.Confirm(ctx, userID, rewardID)
}

// Abandon is rejected while a reveal is in progress.
func (s *Service) Abandon(ctx context.Context, userID uint, rewardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewards.Abandon(ctx, userID, rewardID)
}
