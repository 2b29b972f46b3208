package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserStats are the cumulative counters mutated by check-ins, trails and rewards.
type UserStats struct {
	TotalCheckins      int `json:"total_checkins"`
	UniqueShopsVisited int `json:"unique_shops_visited"`
	CurrentStreak      int `json:"current_streak"`
	LongestStreak      int `json:"longest_streak"`
	TrailsCompleted    int `json:"trails_completed"`
	RewardsEarned      int `json:"rewards_earned"`
	Points             int `json:"points"`
}

type User struct {
	gorm.Model
	DiscordID     string                      `gorm:"index" json:"-"`
	Username      string                      `gorm:"uniqueIndex" json:"username"`
	Name          string                      `json:"name"`
	Email         string                      `json:"email"`
	Avatar        string                      `json:"avatar"`
	Bio           string                      `json:"bio"`
	Level         int                         `gorm:"default:1" json:"level"`
	XP            int                         `json:"xp"`
	Stats         UserStats                   `gorm:"embedded" json:"stats"`
	FavoriteShops datatypes.JSONSlice[string] `json:"favorite_shops"`
	LastCheckinAt *time.Time                  `json:"last_checkin_at"`
}
