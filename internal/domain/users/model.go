package users

import (
	"errors"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

var (
	ErrValidation    = errors.New("validation error")
	ErrUsernameTaken = errors.New("username already exists")
	ErrUnauthorized  = errors.New("invalid credentials")
	ErrNotFound      = errors.New("not found")
)
