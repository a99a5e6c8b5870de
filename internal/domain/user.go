package domain

import (
	"time"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleReadonly = "readonly"
)

// User represents an account that can authenticate against the admin API
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
