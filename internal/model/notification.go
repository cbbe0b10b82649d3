package model

import (
	"time"
)

// Notification is an in-app message to one user. Only IsRead ever changes.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationCreated is the outbox payload published for every new row.
type NotificationCreated struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
