package reward

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/notifier"
	"gorm.io/gorm"
)

// Meter reads the counter behind a reward's metric for one user.
type Meter interface {
	Observe(ctx context.Context, userID uint, r models.Reward) (int, error)
}

type Options struct {
	// Window is how long a revealed code stays on screen before it is redeemed automatically.
	Window time.Duration
	// Tick is the countdown resolution.
	Tick time.Duration
}

// Engine persists reward state and runs one countdown per active reveal.
//
// Unlocks are returned to the caller so they can be published after the surrounding
// transaction commits. Redemptions are published by the engine itself, since the countdown
// path has no caller.
type Engine struct {
	db       *gorm.DB
	root     *gorm.DB
	clock    domain.Clock
	notifier notifier.Notifier
	window   time.Duration
	tick     time.Duration
	sessions *sessions
}

func NewEngine(db *gorm.DB, n notifier.Notifier, clock domain.Clock, opts Options) *Engine {
	if clock == nil {
		clock = domain.SystemClock()
	}
	if opts.Window <= 0 {
		opts.Window = domain.DefaultRevealWindowSeconds * time.Second
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	return &Engine{
		db:       db,
		root:     db,
		clock:    clock,
		notifier: n,
		window:   opts.Window,
		tick:     opts.Tick,
		sessions: newSessions(),
	}
}

// WithTx returns a copy bound to tx. Countdowns started from the copy still run against the
// engine's own connection.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	c := *e
	c.db = tx
	return &c
}

func (e *Engine) Tick() time.Duration { return e.tick }

func (e *Engine) Reward(ctx context.Context, rewardID string) (*models.Reward, error) {
	var r models.Reward
	if err := e.db.WithContext(ctx).First(&r, "id = ?", rewardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reward %q: %w", rewardID, domain.ErrUnknownEntity)
		}
		return nil, err
	}
	return &r, nil
}

func (e *Engine) Rewards(ctx context.Context) ([]models.Reward, error) {
	var rewards []models.Reward
	err := e.db.WithContext(ctx).Order("id").Find(&rewards).Error
	return rewards, err
}

// UserReward returns the stored record, or nil when the reward is still implicitly LOCKED.
func (e *Engine) UserReward(ctx context.Context, userID uint, rewardID string) (*models.UserReward, error) {
	var ur models.UserReward
	err := e.db.WithContext(ctx).Where("user_id = ? AND reward_id = ?", userID, rewardID).First(&ur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ur, nil
}

func (e *Engine) load(ctx context.Context, userID uint, rewardID string) (models.UserReward, error) {
	ur, err := e.UserReward(ctx, userID, rewardID)
	if err != nil || ur == nil {
		return New(userID, rewardID), err
	}
	return *ur, nil
}

// Evaluate re-reads the counters behind the user's milestone rewards and advances their progress.
// With no metrics every reward is evaluated. It returns the rewards unlocked by this call.
func (e *Engine) Evaluate(ctx context.Context, userID uint, meter Meter, metrics ...domain.Metric) ([]models.Reward, error) {
	q := e.db.WithContext(ctx).Order("id")
	if len(metrics) > 0 {
		q = q.Where("metric IN ?", metrics)
	}
	var rewards []models.Reward
	if err := q.Find(&rewards).Error; err != nil {
		return nil, err
	}

	var unlocked []models.Reward
	for _, r := range rewards {
		if r.Metric == "" {
			continue
		}
		observed, err := meter.Observe(ctx, userID, r)
		if err != nil {
			return nil, fmt.Errorf("observe %s for reward %q: %w", r.Metric, r.ID, err)
		}
		ok, err := e.advance(ctx, userID, r, observed)
		if err != nil {
			return nil, err
		}
		if ok {
			unlocked = append(unlocked, r)
		}
	}
	return unlocked, nil
}

// UnlockRewards unlocks each reward by id, as a trail completion does for the trail's reward set.
// Rewards that are already unlocked are skipped.
func (e *Engine) UnlockRewards(ctx context.Context, userID uint, rewardIDs []string) ([]models.Reward, error) {
	var unlocked []models.Reward
	for _, id := range rewardIDs {
		r, err := e.Reward(ctx, id)
		if err != nil {
			return nil, err
		}
		ok, err := e.advance(ctx, userID, *r, r.Total)
		if err != nil {
			return nil, err
		}
		if ok {
			unlocked = append(unlocked, *r)
		}
	}
	return unlocked, nil
}

func (e *Engine) advance(ctx context.Context, userID uint, r models.Reward, observed int) (bool, error) {
	cur, err := e.load(ctx, userID, r.ID)
	if err != nil {
		return false, err
	}
	next, unlocked := Advance(cur, r, observed, e.clock.Now())
	if next.Progress == cur.Progress && !unlocked {
		return false, nil
	}

	db := e.db.WithContext(ctx)
	if cur.ID == 0 {
		return unlocked, db.Create(&next).Error
	}
	updates := map[string]any{"progress": next.Progress}
	if unlocked {
		updates["status"] = next.Status
		updates["unlocked_at"] = next.UnlockedAt
	}
	res := db.Model(&models.UserReward{}).Where("id = ? AND status = ?", cur.ID, cur.Status).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return unlocked && res.RowsAffected == 1, nil
}

// Revealed is the one-time view of a partner code.
type Revealed struct {
	RewardID         string    `json:"reward_id"`
	Code             string    `json:"code"`
	StartedAt        time.Time `json:"started_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// Reveal moves an UNLOCKED reward to REVEAL_STARTED, returns its code and starts the countdown.
// It succeeds at most once per user and reward.
func (e *Engine) Reveal(ctx context.Context, userID uint, rewardID string) (*Revealed, error) {
	r, err := e.Reward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if r.ExpiresAt != nil && !now.Before(*r.ExpiresAt) {
		return nil, fmt.Errorf("reward %q expired at %s: %w", r.ID, r.ExpiresAt.Format(time.RFC3339), domain.ErrInvalidStateTransition)
	}
	cur, err := e.load(ctx, userID, rewardID)
	if err != nil {
		return nil, err
	}
	next, err := StartReveal(cur, now)
	if err != nil {
		return nil, err
	}

	res := e.db.WithContext(ctx).Model(&models.UserReward{}).
		Where("id = ? AND status = ? AND code_revealed = ?", cur.ID, domain.StatusUnlocked, false).
		Updates(map[string]any{
			"status":            next.Status,
			"reveal_started_at": next.RevealStartedAt,
			"code_revealed":     true,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("reveal reward %q: %w", rewardID, domain.ErrInvalidStateTransition)
	}

	e.schedule(next)
	return &Revealed{
		RewardID:         rewardID,
		Code:             r.Code,
		StartedAt:        now,
		ExpiresAt:        now.Add(e.window),
		RemainingSeconds: Seconds(e.window),
	}, nil
}

// Confirm redeems an active reveal session and stops its countdown. A session whose window has
// already run out is redeemed at the end of the window instead.
func (e *Engine) Confirm(ctx context.Context, userID uint, rewardID string) (*models.UserReward, error) {
	if _, err := e.Reward(ctx, rewardID); err != nil {
		return nil, err
	}
	cur, err := e.load(ctx, userID, rewardID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	next, expired := Expire(cur, now, e.window)
	if !expired {
		if next, err = Confirm(cur, now); err != nil {
			return nil, err
		}
	}
	ok, err := e.redeem(ctx, cur.ID, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("confirm reward %q: %w", rewardID, domain.ErrNoActiveRedemption)
	}
	e.sessions.cancel(cur.ID)
	return &next, nil
}

// Abandon rejects cancelling a reveal in progress. For any other state it is a no-op.
func (e *Engine) Abandon(ctx context.Context, userID uint, rewardID string) error {
	if _, err := e.Reward(ctx, rewardID); err != nil {
		return err
	}
	cur, err := e.load(ctx, userID, rewardID)
	if err != nil {
		return err
	}
	if Remaining(cur, e.clock.Now(), e.window) == 0 {
		if _, err := e.expire(ctx, cur); err != nil {
			return err
		}
		return nil
	}
	return Abandon(cur)
}

// Countdown is the state of a reveal window as seen now.
type Countdown struct {
	RewardID         string              `json:"reward_id"`
	Status           domain.RewardStatus `json:"status"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	ExpiresAt        *time.Time          `json:"expires_at,omitempty"`
}

// Countdown derives the remaining reveal time from the persisted reveal start.
func (e *Engine) Countdown(ctx context.Context, userID uint, rewardID string) (*Countdown, error) {
	if _, err := e.Reward(ctx, rewardID); err != nil {
		return nil, err
	}
	cur, err := e.load(ctx, userID, rewardID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if next, ok := Expire(cur, now, e.window); ok {
		if _, err := e.expire(ctx, cur); err != nil {
			return nil, err
		}
		cur = next
	}
	c := &Countdown{
		RewardID:         rewardID,
		Status:           cur.Status,
		RemainingSeconds: Seconds(Remaining(cur, now, e.window)),
	}
	if cur.Status == domain.StatusRevealStarted && cur.RevealStartedAt != nil {
		end := cur.RevealStartedAt.Add(e.window)
		c.ExpiresAt = &end
	}
	return c, nil
}

// ExpireDue redeems every reveal session whose window has passed and returns how many it redeemed.
func (e *Engine) ExpireDue(ctx context.Context) (int, error) {
	active, err := e.active(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, ur := range active {
		ok, err := e.expire(ctx, ur)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Resume restores countdowns after a restart: sessions past their window are redeemed and the
// rest are scheduled with the time left on them.
func (e *Engine) Resume(ctx context.Context) error {
	expired, err := e.ExpireDue(ctx)
	if err != nil {
		return err
	}
	active, err := e.active(ctx)
	if err != nil {
		return err
	}
	for _, ur := range active {
		e.schedule(ur)
	}
	log.Printf("reward: resumed %d reveal sessions, redeemed %d expired", len(active), expired)
	return nil
}

func (e *Engine) active(ctx context.Context) ([]models.UserReward, error) {
	var out []models.UserReward
	err := e.db.WithContext(ctx).Where("status = ?", domain.StatusRevealStarted).Order("id").Find(&out).Error
	return out, err
}

// expire redeems ur if its window has run out. It reports whether the session is over, whether
// this call or an earlier confirmation ended it.
func (e *Engine) expire(ctx context.Context, ur models.UserReward) (bool, error) {
	next, ok := Expire(ur, e.clock.Now(), e.window)
	if !ok {
		return false, nil
	}
	if _, err := e.redeem(ctx, ur.ID, next); err != nil {
		return false, err
	}
	e.sessions.cancel(ur.ID)
	return true, nil
}

// redeem persists a REVEAL_STARTED -> REDEEMED move and publishes it. It reports false when the
// session was already closed.
func (e *Engine) redeem(ctx context.Context, id uint, next models.UserReward) (bool, error) {
	res := e.db.WithContext(ctx).Model(&models.UserReward{}).
		Where("id = ? AND status = ?", id, domain.StatusRevealStarted).
		Updates(map[string]any{"status": domain.StatusRedeemed, "redeemed_at": next.RedeemedAt})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	e.publish(ctx, notifier.Event{
		Kind:     notifier.RewardRedeemed,
		UserID:   next.UserID,
		RewardID: next.RewardID,
		At:       *next.RedeemedAt,
	})
	return true, nil
}

func (e *Engine) publish(ctx context.Context, event notifier.Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event); err != nil {
		log.Printf("reward: notify %s for user %d: %v", event.Kind, event.UserID, err)
	}
}

// View is a catalog reward as seen by one user. It never carries the code.
type View struct {
	models.Reward
	Status           domain.RewardStatus `json:"status"`
	Progress         int                 `json:"progress"`
	Percentage       int                 `json:"percentage"`
	UnlockedAt       *time.Time          `json:"unlocked_at,omitempty"`
	RedeemedAt       *time.Time          `json:"redeemed_at,omitempty"`
	RemainingSeconds int                 `json:"remaining_seconds,omitempty"`
}

// List returns every catalog reward with the user's state; rewards without a record are LOCKED.
func (e *Engine) List(ctx context.Context, userID uint) ([]View, error) {
	rewards, err := e.Rewards(ctx)
	if err != nil {
		return nil, err
	}
	var records []models.UserReward
	if err := e.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, err
	}
	byReward := make(map[string]models.UserReward, len(records))
	for _, ur := range records {
		byReward[ur.RewardID] = ur
	}

	now := e.clock.Now()
	views := make([]View, 0, len(rewards))
	for _, r := range rewards {
		ur, ok := byReward[r.ID]
		if !ok {
			ur = New(userID, r.ID)
		}
		if next, expired := Expire(ur, now, e.window); expired {
			ur = next
		}
		views = append(views, View{
			Reward:           r,
			Status:           ur.Status,
			Progress:         Clamp(ur.Progress, r.Total),
			Percentage:       Percentage(ur, r),
			UnlockedAt:       ur.UnlockedAt,
			RedeemedAt:       ur.RedeemedAt,
			RemainingSeconds: Seconds(Remaining(ur, now, e.window)),
		})
	}
	return views, nil
}

// Seconds rounds a remaining duration up to whole seconds.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
