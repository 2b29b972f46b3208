package handlers

import (
	"context"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/stats"
	"gorm.io/gorm"
)

type AchievementHandler struct {
	db    *gorm.DB
	stats *stats.Service
}

func NewAchievementHandler(db *gorm.DB, stats *stats.Service) *AchievementHandler {
	return &AchievementHandler{db: db, stats: stats}
}

type AchievementView struct {
	models.Achievement
	Earned     bool       `json:"earned"`
	EarnedAt   *time.Time `json:"earned_at,omitempty"`
	Progress   int        `json:"progress"`
	Percentage int        `json:"percentage"`
}

type ListAchievementsOutput struct {
	Body []AchievementView
}

func (h *AchievementHandler) HandleList(ctx context.Context, _ *struct{}) (*ListAchievementsOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	user, err := h.stats.User(ctx, userID)
	if err != nil {
		return nil, toHTTPError(err)
	}

	var achievements []models.Achievement
	if err := h.db.WithContext(ctx).Order("requirement_type, requirement").Find(&achievements).Error; err != nil {
		return nil, toHTTPError(err)
	}
	earned, err := h.stats.EarnedAchievements(ctx, userID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	earnedAt := make(map[string]time.Time, len(earned))
	for _, ua := range earned {
		earnedAt[ua.AchievementID] = ua.EarnedAt
	}

	views := make([]AchievementView, 0, len(achievements))
	for _, a := range achievements {
		v := AchievementView{Achievement: a}
		if at, ok := earnedAt[a.ID]; ok {
			v.Earned = true
			v.EarnedAt = &at
		}
		counter, _ := stats.Counter(*user, a.RequirementType)
		v.Progress = min(counter, a.Requirement)
		v.Percentage = domain.Percentage(v.Progress, a.Requirement)
		views = append(views, v)
	}
	return &ListAchievementsOutput{Body: views}, nil
}
