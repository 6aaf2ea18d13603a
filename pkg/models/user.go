package models

import "time"

type User struct {
	ID       int    `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
}

// RefreshToken is the single live session grant for a user. The service keeps
// at most one row per user; a new login supersedes the old row.
type RefreshToken struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Name     string `json:"name" validate:"required,max=50"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CheckDuplicateRequest struct {
	Username string `json:"username" validate:"required"`
}

type AuthResponse struct {
	UserID      int    `json:"user_id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}
