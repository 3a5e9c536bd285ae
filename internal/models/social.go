package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a user's reply under a complaint.
type Comment struct {
	gorm.Model
	ComplaintID string `gorm:"type:text;not null;index" json:"complaint_id"`
	AuthorID    string `gorm:"type:text;not null" json:"author_id"`
	Body        string `gorm:"type:text;not null" json:"body"`
}

// Like marks that a user supports a complaint. One row per pair.
type Like struct {
	ComplaintID string    `gorm:"primaryKey" json:"complaint_id"`
	UserID      string    `gorm:"primaryKey" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Follow links a follower to the user whose complaints they want in their feed.
type Follow struct {
	FollowerID string    `gorm:"primaryKey" json:"follower_id"`
	FolloweeID string    `gorm:"primaryKey;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
