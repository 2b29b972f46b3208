package trail

import (
	"context"
	"errors"
	"fmt"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine persists trail progress. It does not publish notifications; callers act on the
// returned Outcome.
type Engine struct {
	db    *gorm.DB
	clock domain.Clock
}

func NewEngine(db *gorm.DB, clock domain.Clock) *Engine {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Engine{db: db, clock: clock}
}

// WithTx returns a copy bound to tx.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	c := *e
	c.db = tx
	return &c
}

func (e *Engine) Trail(ctx context.Context, trailID string) (*models.Trail, error) {
	var t models.Trail
	if err := e.db.WithContext(ctx).First(&t, "id = ?", trailID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trail %q: %w", trailID, domain.ErrUnknownEntity)
		}
		return nil, err
	}
	return &t, nil
}

func (e *Engine) Trails(ctx context.Context) ([]models.Trail, error) {
	var trails []models.Trail
	err := e.db.WithContext(ctx).Order("id").Find(&trails).Error
	return trails, err
}

// TrailsWithShop returns every trail the shop belongs to.
func (e *Engine) TrailsWithShop(ctx context.Context, shopID string) ([]models.Trail, error) {
	trails, err := e.Trails(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Trail
	for _, t := range trails {
		if t.HasShop(shopID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Progress returns the user's record for the trail, or nil if it was never started.
func (e *Engine) Progress(ctx context.Context, trailID string, userID uint) (*models.TrailProgress, error) {
	var p models.TrailProgress
	err := e.db.WithContext(ctx).Where("trail_id = ? AND user_id = ?", trailID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// StartTrail creates an empty progress record. Starting an already started trail returns the
// existing record untouched.
func (e *Engine) StartTrail(ctx context.Context, trailID string, userID uint) (*models.TrailProgress, error) {
	if _, err := e.Trail(ctx, trailID); err != nil {
		return nil, err
	}
	p := NewProgress(trailID, userID, e.clock.Now())
	if err := e.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, err
	}
	return e.Progress(ctx, trailID, userID)
}

// VisitShop records a visit to shopID on the trail, starting the trail if needed.
func (e *Engine) VisitShop(ctx context.Context, trailID, shopID string, userID uint) (*models.TrailProgress, Outcome, error) {
	t, err := e.Trail(ctx, trailID)
	if err != nil {
		return nil, Outcome{}, err
	}
	if !t.HasShop(shopID) {
		return nil, Outcome{}, fmt.Errorf("shop %q on trail %q: %w", shopID, trailID, domain.ErrInvalidShopForTrail)
	}

	now := e.clock.Now()
	current, err := e.Progress(ctx, trailID, userID)
	if err != nil {
		return nil, Outcome{}, err
	}
	created := current == nil
	if created {
		p := NewProgress(trailID, userID, now)
		current = &p
	}

	next, out, err := Visit(*t, *current, shopID, now)
	if err != nil {
		return nil, Outcome{}, err
	}
	out.Created = created

	db := e.db.WithContext(ctx)
	switch {
	case created:
		err = db.Create(&next).Error
	case out.Changed:
		err = db.Save(&next).Error
	default:
		return current, out, nil
	}
	if err != nil {
		return nil, Outcome{}, err
	}
	return &next, out, nil
}

// ProgressFor summarizes the user's progress on the trail.
func (e *Engine) ProgressFor(ctx context.Context, trailID string, userID uint) (Summary, error) {
	t, err := e.Trail(ctx, trailID)
	if err != nil {
		return Summary{}, err
	}
	p, err := e.Progress(ctx, trailID, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(*t, p), nil
}

// CompletedTrails lists the ids of every trail the user has completed.
func (e *Engine) CompletedTrails(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	err := e.db.WithContext(ctx).Model(&models.TrailProgress{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Order("completed_at").Pluck("trail_id", &ids).Error
	return ids, err
}
