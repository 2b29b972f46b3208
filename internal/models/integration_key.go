package models

import (
	"time"

	"gorm.io/gorm"
)

// IntegrationKey authenticates a shop's point-of-sale provider. Only the bcrypt hash of the
// secret half is stored.
type IntegrationKey struct {
	gorm.Model
	ShopID     string     `json:"shop_id" gorm:"index"`
	Provider   string     `json:"provider"`
	Prefix     string     `json:"prefix" gorm:"uniqueIndex"`
	SecretHash string     `json:"-"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
