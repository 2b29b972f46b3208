// Package feed stores the social activity stream: check-in posts, trail completions, reward
// redemptions, likes and comments.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/notifier"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Service struct {
	db    *gorm.DB
	clock domain.Clock
}

func NewService(db *gorm.DB, clock domain.Clock) *Service {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Service{db: db, clock: clock}
}

// WithTx returns a copy bound to tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	c := *s
	c.db = tx
	return &c
}

// Notify turns trail completions and reward redemptions into posts. Other events are ignored.
func (s *Service) Notify(ctx context.Context, event notifier.Event) error {
	switch event.Kind {
	case notifier.TrailCompleted:
		name := event.TrailID
		var t models.Trail
		if err := s.db.WithContext(ctx).Select("name").First(&t, "id = ?", event.TrailID).Error; err == nil {
			name = t.Name
		}
		_, err := s.create(ctx, models.Post{
			UserID:  event.UserID,
			Type:    domain.PostTrailComplete,
			Content: fmt.Sprintf("Completed the %s trail!", name),
			TrailID: event.TrailID,
		})
		return err
	case notifier.RewardRedeemed:
		title := event.RewardID
		var r models.Reward
		if err := s.db.WithContext(ctx).Select("title", "shop_id").First(&r, "id = ?", event.RewardID).Error; err == nil {
			title = r.Title
		}
		_, err := s.create(ctx, models.Post{
			UserID:   event.UserID,
			Type:     domain.PostReward,
			Content:  fmt.Sprintf("Redeemed %s", title),
			ShopID:   r.ShopID,
			RewardID: event.RewardID,
		})
		return err
	}
	return nil
}

// CheckIn publishes a post for a recorded check-in. The note, when present, is the post body.
func (s *Service) CheckIn(ctx context.Context, c models.CheckIn) (*models.Post, error) {
	content := strings.TrimSpace(c.Note)
	if content == "" {
		var shop models.Shop
		if err := s.db.WithContext(ctx).Select("name").First(&shop, "id = ?", c.ShopID).Error; err != nil {
			return nil, err
		}
		content = fmt.Sprintf("Checked in at %s", shop.Name)
	}
	postType := domain.PostCheckin
	if c.Rating != nil && c.Note != "" {
		postType = domain.PostReview
	}
	return s.create(ctx, models.Post{
		UserID:  c.UserID,
		Type:    postType,
		Content: content,
		ShopID:  c.ShopID,
		Rating:  c.Rating,
	})
}

func (s *Service) create(ctx context.Context, p models.Post) (*models.Post, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = s.clock.Now()
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) Post(ctx context.Context, postID string) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).First(&p, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %q: %w", postID, domain.ErrUnknownEntity)
		}
		return nil, err
	}
	return &p, nil
}

// Like is idempotent: liking a post twice counts once.
func (s *Service) Like(ctx context.Context, postID string, userID uint) (*models.Post, error) {
	if _, err := s.Post(ctx, postID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PostLike{
			PostID:    postID,
			UserID:    userID,
			CreatedAt: s.clock.Now(),
		})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Post(ctx, postID)
}

// Unlike removes the user's like. The like count never drops below zero.
func (s *Service) Unlike(ctx context.Context, postID string, userID uint) (*models.Post, error) {
	if _, err := s.Post(ctx, postID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		return tx.Model(&models.Post{}).Where("id = ? AND likes_count > 0", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Post(ctx, postID)
}

func (s *Service) Comment(ctx context.Context, postID string, userID uint, content string) (*models.PostComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment is empty: %w", domain.ErrInvalidArgument)
	}
	if _, err := s.Post(ctx, postID); err != nil {
		return nil, err
	}
	c := models.PostComment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Comments(ctx context.Context, postID string) ([]models.PostComment, error) {
	var out []models.PostComment
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at, id").Find(&out).Error
	return out, err
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	UserID uint
	ShopID string
	Limit  int
}

// List returns posts newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Post, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ShopID != "" {
		q = q.Where("shop_id = ?", f.ShopID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []models.Post
	err := q.Limit(min(limit, MaxLimit)).Find(&out).Error
	return out, err
}
