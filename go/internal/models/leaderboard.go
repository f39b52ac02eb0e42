package models

// Standing is one row of a leaderboard snapshot. Rank is implied by
// position but the backend also sends it explicitly.
type Standing struct {
	Rank            int      `json:"rank"`
	User            User     `json:"user"`
	Points          int      `json:"points"`
	TagsGiven       int      `json:"tags_given"`
	TagsReceived    int      `json:"tags_received"`
	TimeHeld        Duration `json:"time_held"`
	IsCurrentHolder bool     `json:"is_current_holder"`
}
