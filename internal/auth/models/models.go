package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/email"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores bytes beyond 72
	MaxPasswordLength = 72
	MaxNameLength     = 120
)

// User is a registered account. Email is stored normalized.
type User struct {
	ID           id.UserID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Normalize canonicalizes the email and fills a display name when absent.
func (r *RegisterRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" && r.Email != "" {
		r.Name = email.DeriveNameFromEmail(r.Email)
	}
}

func (r *RegisterRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !email.IsValid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "email is not a valid address")
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	return ValidatePassword(r.Password)
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type TokenResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}
