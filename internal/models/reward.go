package models

import (
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
)

// Reward is a catalog entry. Code is the static partner code and is never serialized.
type Reward struct {
	ID          string              `gorm:"primaryKey" json:"id" yaml:"id"`
	Kind        domain.RewardKind   `json:"kind" yaml:"kind"`
	Type        domain.RewardType   `json:"type" yaml:"type"`
	Source      domain.RewardSource `json:"source" yaml:"source"`
	Title       string              `json:"title" yaml:"title"`
	Description string              `json:"description" yaml:"description"`
	Criteria    string              `json:"criteria" yaml:"criteria"`
	Metric      domain.Metric       `gorm:"index" json:"metric" yaml:"metric"`
	Total       int                 `json:"total" yaml:"total"`
	Value       int                 `json:"value" yaml:"value"`
	ShopID      string              `json:"shop_id,omitempty" yaml:"shop_id"`
	TrailID     string              `json:"trail_id,omitempty" yaml:"trail_id"`
	Code        string              `json:"-" yaml:"code"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty" yaml:"expires_at"`
	CreatedAt   time.Time           `json:"-" yaml:"-"`
}

// UserReward tracks one user's lifecycle for one reward.
type UserReward struct {
	ID              uint                `gorm:"primarykey" json:"-"`
	UserID          uint                `gorm:"uniqueIndex:idx_user_reward;not null" json:"user_id"`
	RewardID        string              `gorm:"uniqueIndex:idx_user_reward;not null" json:"reward_id"`
	Status          domain.RewardStatus `gorm:"index;not null" json:"status"`
	Progress        int                 `json:"progress"`
	UnlockedAt      *time.Time          `json:"unlocked_at"`
	RevealStartedAt *time.Time          `json:"reveal_started_at"`
	RedeemedAt      *time.Time          `json:"redeemed_at"`
	CodeRevealed    bool                `json:"code_revealed"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"-"`
}
