package models

import (
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
)

type Post struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint            `gorm:"index;not null" json:"user_id"`
	Type          domain.PostType `json:"type"`
	Content       string          `json:"content"`
	ShopID        string          `gorm:"index" json:"shop_id,omitempty"`
	TrailID       string          `json:"trail_id,omitempty"`
	RewardID      string          `json:"reward_id,omitempty"`
	Rating        *int            `json:"rating,omitempty"`
	LikesCount    int             `json:"likes_count"`
	CommentsCount int             `json:"comments_count"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

type PostLike struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	PostID    string    `gorm:"uniqueIndex:idx_post_user;size:36;not null" json:"post_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_post_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PostComment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"index;size:36;not null" json:"post_id"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
