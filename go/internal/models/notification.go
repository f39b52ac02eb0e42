package models

import (
	"encoding/json"
	"time"
)

// Notification is an in-app notification for the current user
type Notification struct {
	ID               int             `json:"id"`
	UserID           int             `json:"user"`
	UserName         string          `json:"user_name"`
	NotificationType string          `json:"notification_type"`
	Title            string          `json:"title"`
	Message          string          `json:"message"`
	Data             json.RawMessage `json:"data,omitempty"`
	SentAt           time.Time       `json:"sent_at"`
	ReadAt           *time.Time      `json:"read_at"`
	IsRead           bool            `json:"is_read"`
}

// UnreadCount is the unread_count response
type UnreadCount struct {
	Count int `json:"count"`
}
