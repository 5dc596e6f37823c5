package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AccountInfo is the profile view returned to the account page.
type AccountInfo struct {
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"email"`
	IsAdmin    bool      `db:"is_admin" json:"is_admin"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Score      int       `db:"score" json:"score"`
	SolveCount int       `db:"solve_count" json:"solve_count"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username cannot be empty")
	}
	if len(r.Username) < 3 || len(r.Username) > 80 {
		return errors.New("username must be between 3 and 80 characters")
	}
	if !emailRegex.MatchString(r.Email) {
		return errors.New("invalid email format")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateSettingsRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r *UpdateSettingsRequest) Validate() error {
	if r.Username != "" && (len(r.Username) < 3 || len(r.Username) > 80) {
		return errors.New("username must be between 3 and 80 characters")
	}
	if r.Email != "" && !emailRegex.MatchString(r.Email) {
		return errors.New("invalid email format")
	}
	if r.NewPassword != "" {
		if len(r.NewPassword) < 8 {
			return errors.New("new password must be at least 8 characters long")
		}
		if r.CurrentPassword == "" {
			return errors.New("current password is required to change password")
		}
	}
	return nil
}
