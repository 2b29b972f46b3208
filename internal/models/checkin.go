package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckIn struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ShopID      string    `gorm:"index;not null" json:"shop_id"`
	Rating      *int      `json:"rating,omitempty"`
	Note        string    `json:"note,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	CheckinDate time.Time `gorm:"index;not null" json:"checkin_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// POSTransaction is a purchase reported by a shop's point-of-sale integration.
type POSTransaction struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	UserID    uint            `gorm:"index;not null" json:"user_id"`
	ShopID    string          `gorm:"index;not null" json:"shop_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Provider  string          `json:"provider"`
	CreatedAt time.Time       `json:"created_at"`
}
