package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role визначає рівень доступу користувача.
type Role string

const (
	RoleCitizen  Role = "citizen"
	RoleOfficial Role = "official"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOfficial, RoleAdmin:
		return true
	}
	return false
}

// CanTriage reports whether the role may change complaint status.
func (r Role) CanTriage() bool {
	return r == RoleOfficial || r == RoleAdmin
}

// User представляє користувача в системі: громадянина або посадовця.
type User struct {
	ID              string    `gorm:"primaryKey" json:"id"` // UUID
	DisplayName     string    `gorm:"type:text;not null" json:"display_name"`
	Role            Role      `gorm:"type:text;not null;default:citizen" json:"role"`
	TelegramID      *int64    `gorm:"uniqueIndex" json:"-"`
	Language        string    `gorm:"type:text;default:en" json:"language"`
	ReputationScore int       `json:"reputation_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// BeforeCreate хук GORM. Генерує UUID, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleCitizen
	}
	return
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}
