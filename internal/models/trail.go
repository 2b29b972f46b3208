package models

import (
	"time"

	"gorm.io/datatypes"
)

// Trail is a catalog set of shops. RewardIDs are unlocked when the set is visited.
type Trail struct {
	ID               string                      `gorm:"primaryKey" json:"id" yaml:"id"`
	Name             string                      `json:"name" yaml:"name"`
	Description      string                      `json:"description" yaml:"description"`
	Difficulty       string                      `json:"difficulty" yaml:"difficulty"`
	EstimatedMinutes int                         `json:"estimated_minutes" yaml:"estimated_minutes"`
	DistanceMiles    float64                     `json:"distance_miles" yaml:"distance_miles"`
	ShopIDs          datatypes.JSONSlice[string] `json:"shop_ids" yaml:"shop_ids"`
	RewardIDs        datatypes.JSONSlice[string] `json:"reward_ids" yaml:"reward_ids"`
	Tags             datatypes.JSONSlice[string] `json:"tags" yaml:"tags"`
	Featured         bool                        `json:"featured" yaml:"featured"`
	ImageURL         string                      `json:"image_url" yaml:"image_url"`
	CreatedAt        time.Time                   `json:"-" yaml:"-"`
	UpdatedAt        time.Time                   `json:"-" yaml:"-"`
}

// HasShop reports whether shopID is a member of the trail.
func (t Trail) HasShop(shopID string) bool {
	for _, id := range t.ShopIDs {
		if id == shopID {
			return true
		}
	}
	return false
}

// TrailProgress is never deleted; CompletedAt is written once.
type TrailProgress struct {
	ID             uint                        `gorm:"primarykey" json:"-"`
	TrailID        string                      `gorm:"uniqueIndex:idx_trail_user;not null" json:"trail_id"`
	UserID         uint                        `gorm:"uniqueIndex:idx_trail_user;index;not null" json:"user_id"`
	VisitedShopIDs datatypes.JSONSlice[string] `json:"visited_shop_ids"`
	IsCompleted    bool                        `json:"is_completed"`
	StartedAt      time.Time                   `json:"started_at"`
	CompletedAt    *time.Time                  `json:"completed_at"`
	UpdatedAt      time.Time                   `json:"-"`
}

// Visited reports whether shopID is already recorded.
func (p TrailProgress) Visited(shopID string) bool {
	for _, id := range p.VisitedShopIDs {
		if id == shopID {
			return true
		}
	}
	return false
}
