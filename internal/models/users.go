package models

import "time"

type User struct {
	UserID       string     `json:"user_id" db:"user_id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsOnline     bool       `json:"is_online" db:"is_online"`
	LastSeen     *time.Time `json:"last_seen" db:"last_seen"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Sender is the projection of a user that is safe to attach to messages.
type Sender struct {
	UserID   string `json:"user_id" db:"user_id"`
	Username string `json:"username" db:"username"`
}
