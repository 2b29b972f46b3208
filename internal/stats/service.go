package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Options struct {
	XPPerCheckin     int
	PointsPerCheckin int
}

// Service mutates user counters. Every method runs against the handle it was built with, so
// a Service returned by WithTx takes part in the caller's transaction.
type Service struct {
	db    *gorm.DB
	clock domain.Clock
	opts  Options
}

func NewService(db *gorm.DB, clock domain.Clock, opts Options) *Service {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Service{db: db, clock: clock, opts: opts}
}

// WithTx returns a copy bound to tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	c := *s
	c.db = tx
	return &c
}

func (s *Service) User(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrUnknownEntity)
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) shop(ctx context.Context, shopID string) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.WithContext(ctx).First(&shop, "id = ?", shopID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shop %q: %w", shopID, domain.ErrUnknownEntity)
		}
		return nil, err
	}
	return &shop, nil
}

type CheckInInput struct {
	ShopID    string
	Rating    *int
	Note      string
	PhotoURL  string
	Latitude  *float64
	Longitude *float64
}

// RecordCheckIn stores the check-in and advances the user's counters, streak, xp and points.
func (s *Service) RecordCheckIn(ctx context.Context, userID uint, in CheckInInput) (*models.CheckIn, *models.User, error) {
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, nil, fmt.Errorf("rating %d must be between 1 and 5: %w", *in.Rating, domain.ErrInvalidArgument)
	}
	u, err := s.User(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.shop(ctx, in.ShopID); err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	checkIn := models.CheckIn{
		ID:          uuid.NewString(),
		UserID:      userID,
		ShopID:      in.ShopID,
		Rating:      in.Rating,
		Note:        in.Note,
		PhotoURL:    in.PhotoURL,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		CheckinDate: now,
	}
	db := s.db.WithContext(ctx)
	if err := db.Create(&checkIn).Error; err != nil {
		return nil, nil, err
	}

	var unique int64
	if err := db.Model(&models.CheckIn{}).Where("user_id = ?", userID).
		Distinct("shop_id").Count(&unique).Error; err != nil {
		return nil, nil, err
	}

	u.Stats.TotalCheckins++
	u.Stats.UniqueShopsVisited = int(unique)
	ApplyStreak(u, now)
	ApplyXP(u, s.opts.XPPerCheckin)
	ApplyPoints(u, s.opts.PointsPerCheckin)

	if err := db.Save(u).Error; err != nil {
		return nil, nil, err
	}
	return &checkIn, u, nil
}

// RecordPOSTransaction stores a purchase reported by a shop's point of sale.
func (s *Service) RecordPOSTransaction(ctx context.Context, userID uint, shopID string, amount decimal.Decimal, provider string) (*models.POSTransaction, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount %s: %w", amount, domain.ErrInvalidArgument)
	}
	if _, err := s.User(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.shop(ctx, shopID); err != nil {
		return nil, err
	}
	txn := models.POSTransaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		ShopID:    shopID,
		Amount:    amount,
		Provider:  provider,
		CreatedAt: s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// CompleteTrail counts one more completed trail and grants xp.
func (s *Service) CompleteTrail(ctx context.Context, userID uint, xp int) (*models.User, error) {
	return s.update(ctx, userID, func(u *models.User) {
		u.Stats.TrailsCompleted++
		ApplyXP(u, xp)
	})
}

// AddXP adjusts xp by delta; the level never decreases.
func (s *Service) AddXP(ctx context.Context, userID uint, delta int) (*models.User, error) {
	return s.update(ctx, userID, func(u *models.User) { ApplyXP(u, delta) })
}

func (s *Service) AddPoints(ctx context.Context, userID uint, n int) (*models.User, error) {
	return s.update(ctx, userID, func(u *models.User) { ApplyPoints(u, n) })
}

// RewardEarned counts an unlocked reward and credits its points, if any.
func (s *Service) RewardEarned(ctx context.Context, userID uint, points int) (*models.User, error) {
	return s.update(ctx, userID, func(u *models.User) {
		u.Stats.RewardsEarned++
		ApplyPoints(u, points)
	})
}

// ResetStreak zeroes the current streak, e.g. after a missed day is detected.
func (s *Service) ResetStreak(ctx context.Context, userID uint) (*models.User, error) {
	return s.update(ctx, userID, func(u *models.User) { u.Stats.CurrentStreak = 0 })
}

// ResetLapsedStreaks zeroes the streak of every user whose last check-in is older than
// yesterday and returns how many were reset.
func (s *Service) ResetLapsedStreaks(ctx context.Context) (int, error) {
	cutoff := day(s.clock.Now()).AddDate(0, 0, -1)
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("current_streak > 0 AND last_checkin_at < ?", cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := s.ResetStreak(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *Service) AddFavoriteShop(ctx context.Context, userID uint, shopID string) (*models.User, error) {
	if _, err := s.shop(ctx, shopID); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(u *models.User) {
		for _, id := range u.FavoriteShops {
			if id == shopID {
				return
			}
		}
		u.FavoriteShops = append(u.FavoriteShops, shopID)
	})
}

func (s *Service) RemoveFavoriteShop(ctx context.Context, userID uint, shopID string) (*models.User, error) {
	return s.update(ctx, userID, func(u *models.User) {
		kept := u.FavoriteShops[:0]
		for _, id := range u.FavoriteShops {
			if id != shopID {
				kept = append(kept, id)
			}
		}
		u.FavoriteShops = kept
	})
}

func (s *Service) update(ctx context.Context, userID uint, fn func(u *models.User)) (*models.User, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	fn(u)
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// Observe returns the raw counter value that drives the reward's progress.
func (s *Service) Observe(ctx context.Context, userID uint, r models.Reward) (int, error) {
	db := s.db.WithContext(ctx)
	var n int64
	switch r.Metric {
	case domain.MetricShopCheckins:
		err := db.Model(&models.CheckIn{}).Where("user_id = ? AND shop_id = ?", userID, r.ShopID).Count(&n).Error
		return int(n), err
	case domain.MetricPOSTransactions:
		err := db.Model(&models.POSTransaction{}).Where("user_id = ? AND shop_id = ?", userID, r.ShopID).Count(&n).Error
		return int(n), err
	case domain.MetricTrail:
		err := db.Model(&models.TrailProgress{}).
			Where("user_id = ? AND trail_id = ? AND is_completed = ?", userID, r.TrailID, true).Count(&n).Error
		return int(n), err
	}
	u, err := s.User(ctx, userID)
	if err != nil {
		return 0, err
	}
	v, _ := Counter(*u, r.Metric)
	return v, nil
}

// EvaluateAchievements inserts every achievement the user now satisfies and returns the ones
// earned by this call. Points granted by an achievement can satisfy another, so evaluation
// repeats until nothing new is earned.
func (s *Service) EvaluateAchievements(ctx context.Context, userID uint) ([]models.Achievement, error) {
	db := s.db.WithContext(ctx)

	var catalog []models.Achievement
	if err := db.Order("id").Find(&catalog).Error; err != nil {
		return nil, err
	}

	var earned []models.Achievement
	for {
		u, err := s.User(ctx, userID)
		if err != nil {
			return nil, err
		}
		var have []string
		if err := db.Model(&models.UserAchievement{}).Where("user_id = ?", userID).
			Pluck("achievement_id", &have).Error; err != nil {
			return nil, err
		}
		owned := make(map[string]bool, len(have))
		for _, id := range have {
			owned[id] = true
		}

		bonus := 0
		round := 0
		for _, a := range catalog {
			if owned[a.ID] || !Earned(*u, a) {
				continue
			}
			res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserAchievement{
				AchievementID: a.ID,
				UserID:        userID,
				EarnedAt:      s.clock.Now(),
			})
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			earned = append(earned, a)
			bonus += a.PointsReward
			round++
		}
		if round == 0 || bonus == 0 {
			return earned, nil
		}
		if _, err := s.AddPoints(ctx, userID, bonus); err != nil {
			return nil, err
		}
	}
}

// EarnedAchievements lists the user's earned achievements, oldest first.
func (s *Service) EarnedAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("earned_at, id").Find(&out).Error
	return out, err
}
