package models

import (
	"time"
)

// Achievement is a badge the backend awarded to a player
type Achievement struct {
	ID              int       `json:"id"`
	UserID          int       `json:"user"`
	UserName        string    `json:"user_name"`
	AchievementType string    `json:"achievement_type"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Value           string    `json:"value"`
	Icon            string    `json:"icon"`
	AwardedAt       time.Time `json:"awarded_at"`
}
