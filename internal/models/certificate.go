package models

import "time"

// Certificate stores the tamper-evidence hash of a complaint's metadata.
type Certificate struct {
	ComplaintID string    `gorm:"primaryKey" json:"complaint_id"`
	Algorithm   string    `gorm:"type:text;not null" json:"algorithm"`
	Hash        string    `gorm:"type:text;not null" json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}
