package models

import (
	"time"
)

// GameSettings is the singleton game configuration
type GameSettings struct {
	ID                          int        `json:"id"`
	GameStartDate               time.Time  `json:"game_start_date"`
	GameEndDate                 time.Time  `json:"game_end_date"`
	TagPointsRank1              int        `json:"tag_points_rank_1"`
	TagPointsRank2              int        `json:"tag_points_rank_2"`
	TagPointsRank3              int        `json:"tag_points_rank_3"`
	TagPointsRank4              int        `json:"tag_points_rank_4"`
	TagPointsRank5              int        `json:"tag_points_rank_5"`
	TagPointsRankOther          int        `json:"tag_points_rank_other"`
	TimePenaltyPerHour          int        `json:"time_penalty_per_hour"`
	BonusUntaggedDay            int        `json:"bonus_untagged_day"`
	FirstPlacePrize             string     `json:"first_place_prize"`
	LastPlacePrize              string     `json:"last_place_prize"`
	EnableNotifications         bool       `json:"enable_notifications"`
	NotificationTitle           string     `json:"notification_title"`
	NotificationMessageTemplate string     `json:"notification_message_template"`
	IsGameActive                bool       `json:"is_game_active"`
	UpdatedAt                   time.Time  `json:"updated_at"`
	CurrentTagHolder            *int       `json:"current_tag_holder"`
	TagHolderSince              *time.Time `json:"tag_holder_since"`
}

// Remaining returns the time left until the game ends, never negative
func (s GameSettings) Remaining(now time.Time) time.Duration {
	if now.After(s.GameEndDate) {
		return 0
	}
	return s.GameEndDate.Sub(now)
}
