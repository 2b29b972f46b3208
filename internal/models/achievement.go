package models

import (
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
)

type Achievement struct {
	ID              string        `gorm:"primaryKey" json:"id" yaml:"id"`
	Name            string        `json:"name" yaml:"name"`
	Description     string        `json:"description" yaml:"description"`
	Icon            string        `json:"icon" yaml:"icon"`
	Requirement     int           `json:"requirement" yaml:"requirement"`
	RequirementType domain.Metric `json:"requirement_type" yaml:"requirement_type"`
	Tier            domain.Tier   `json:"tier" yaml:"tier"`
	PointsReward    int           `json:"points_reward" yaml:"points_reward"`
}

// UserAchievement is append-only: one row per earned achievement.
type UserAchievement struct {
	ID            uint      `gorm:"primarykey" json:"-"`
	AchievementID string    `gorm:"uniqueIndex:idx_achievement_user;not null" json:"achievement_id"`
	UserID        uint      `gorm:"uniqueIndex:idx_achievement_user;index;not null" json:"user_id"`
	EarnedAt      time.Time `json:"earned_at"`
}
