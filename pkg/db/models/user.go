package models

import (
	"time"

	"github.com/elbarril/appalapapa/pkg/enums"
)

// User represents the canonical identity entity. Emails are stored
// lowercased and trimmed; lookups normalize the same way.
type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Role         enums.UserRole `gorm:"type:varchar(20);not null;default:therapist" json:"role"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at" json:"last_login_at,omitempty"`

	Stamps
	SoftDelete
}

// HasAnyRole reports whether the user holds one of the given roles.
func (u *User) HasAnyRole(roles ...enums.UserRole) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// ToMap returns the flat snapshot used for audit entries and API payloads.
// The password hash is never included.
func (u *User) ToMap() map[string]any {
	var lastLogin any
	if u.LastLoginAt != nil {
		lastLogin = u.LastLoginAt.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"role":          u.Role.String(),
		"is_active":     u.IsActive,
		"last_login_at": lastLogin,
		"created_at":    u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
