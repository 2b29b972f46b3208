package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/catalog"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/database"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/notifier"
)

type stepClock struct{ now time.Time }

// Now moves forward one second per call so posts have distinct timestamps.
func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	if err := cat.Seed(db); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
	return NewService(db, &stepClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)})
}

func TestCheckIn_Post(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	p, err := s.CheckIn(ctx, models.CheckIn{UserID: 1, ShopID: "1"})
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if p.Type != domain.PostCheckin || p.Content != "Checked in at Sump Coffee" {
		t.Errorf("post = %+v", p)
	}

	rating := 5
	review, err := s.CheckIn(ctx, models.CheckIn{UserID: 1, ShopID: "2", Rating: &rating, Note: "Great pour over"})
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if review.Type != domain.PostReview || review.Content != "Great pour over" {
		t.Errorf("review post = %+v", review)
	}
}

func TestLike_IdempotentAndUnlikeFloored(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	p, err := s.CheckIn(ctx, models.CheckIn{UserID: 1, ShopID: "1", Note: "hello"})
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if p, err = s.Like(ctx, p.ID, 2); err != nil {
			t.Fatalf("Like returned error: %v", err)
		}
	}
	if p.LikesCount != 1 {
		t.Fatalf("likes after double like = %d, want 1", p.LikesCount)
	}
	if p, err = s.Like(ctx, p.ID, 3); err != nil || p.LikesCount != 2 {
		t.Fatalf("second user like: count=%d err=%v", p.LikesCount, err)
	}

	for i := 0; i < 3; i++ {
		if p, err = s.Unlike(ctx, p.ID, 2); err != nil {
			t.Fatalf("Unlike returned error: %v", err)
		}
	}
	if p.LikesCount != 1 {
		t.Errorf("likes after repeated unlike = %d, want 1", p.LikesCount)
	}
	if _, err := s.Like(ctx, "missing", 2); !errors.Is(err, domain.ErrUnknownEntity) {
		t.Errorf("Like on missing post: got %v", err)
	}
}

func TestComment(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	p, err := s.CheckIn(ctx, models.CheckIn{UserID: 1, ShopID: "1"})
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	if _, err := s.Comment(ctx, p.ID, 2, "  "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty comment: got %v", err)
	}
	if _, err := s.Comment(ctx, p.ID, 2, "Love this place"); err != nil {
		t.Fatalf("Comment returned error: %v", err)
	}
	comments, err := s.Comments(ctx, p.ID)
	if err != nil || len(comments) != 1 {
		t.Fatalf("Comments = %v, %v", comments, err)
	}
	if p, _ = s.Post(ctx, p.ID); p.CommentsCount != 1 {
		t.Errorf("comments count = %d, want 1", p.CommentsCount)
	}
}

func TestNotifyAndList(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	if _, err := s.CheckIn(ctx, models.CheckIn{UserID: 1, ShopID: "1"}); err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	events := []notifier.Event{
		{Kind: notifier.TrailCompleted, UserID: 1, TrailID: "t1"},
		{Kind: notifier.RewardUnlocked, UserID: 1, RewardID: "r4"},
		{Kind: notifier.RewardRedeemed, UserID: 2, RewardID: "r4"},
	}
	for _, e := range events {
		if err := s.Notify(ctx, e); err != nil {
			t.Fatalf("Notify(%s) returned error: %v", e.Kind, err)
		}
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d posts, want 3", len(all))
	}
	if all[0].Type != domain.PostReward || all[2].Type != domain.PostCheckin {
		t.Errorf("posts not newest first: %s, %s, %s", all[0].Type, all[1].Type, all[2].Type)
	}

	mine, err := s.List(ctx, Filter{UserID: 1})
	if err != nil || len(mine) != 2 {
		t.Fatalf("List(user 1) = %d posts, %v", len(mine), err)
	}
	atSump, err := s.List(ctx, Filter{ShopID: "1"})
	if err != nil || len(atSump) != 2 {
		t.Fatalf("List(shop 1) = %d posts, %v", len(atSump), err)
	}
}
