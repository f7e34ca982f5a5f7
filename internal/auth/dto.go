package auth

import (
	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/elbarril/appalapapa/pkg/enums"
)

// LoginRequest carries the credentials posted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Meta     audit.Actor `json:"-"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
}

// RegisterRequest carries the fields posted to the register endpoint.
type RegisterRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	Role     enums.UserRole `json:"role,omitempty"`
	Meta     audit.Actor `json:"-"`
}

// ChangePasswordRequest carries the fields posted by a logged-in user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	Meta            audit.Actor `json:"-"`
}

// ResetPasswordRequest carries the legacy security-question reset fields.
type ResetPasswordRequest struct {
	Email          string `json:"email" validate:"required,email"`
	NewPassword    string `json:"new_password" validate:"required,min=8"`
	SecurityAnswer string `json:"security_answer" validate:"required"`
	Meta           audit.Actor `json:"-"`
}

// UserSummary is the user shape exposed through the API.
type UserSummary struct {
	ID       int64          `json:"id"`
	Email    string         `json:"email"`
	Role     enums.UserRole `json:"role"`
	IsActive bool           `json:"is_active"`
}

// FromModel maps a stored user onto its API summary.
func FromModel(user *models.User) UserSummary {
	return UserSummary{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}
