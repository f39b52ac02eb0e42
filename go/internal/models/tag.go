package models

import (
	"time"
)

// TagEvent is the live-channel record of one player catching another.
// Values are immutable once received.
type TagEvent struct {
	ID            int       `json:"tag_id"`
	TaggerName    string    `json:"tagger"`
	TaggedName    string    `json:"tagged"`
	PointsAwarded int       `json:"points_awarded"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"timestamp"`
}

// Tag is the full REST representation of a tag
type Tag struct {
	ID            int       `json:"id"`
	TaggerID      int       `json:"tagger"`
	TaggerName    string    `json:"tagger_name"`
	TaggedID      int       `json:"tagged"`
	TaggedName    string    `json:"tagged_name"`
	TaggedAt      time.Time `json:"tagged_at"`
	TagDate       string    `json:"tag_date"`
	Location      *string   `json:"location,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Photo         *string   `json:"photo,omitempty"`
	PointsAwarded int       `json:"points_awarded"`
	TimePenalty   int       `json:"time_penalty"`
	TimeHeld      Duration  `json:"time_held"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Event converts a REST tag into the live-channel shape
func (t Tag) Event() TagEvent {
	return TagEvent{
		ID:            t.ID,
		TaggerName:    t.TaggerName,
		TaggedName:    t.TaggedName,
		PointsAwarded: t.PointsAwarded,
		OccurredAt:    t.TaggedAt,
	}
}

// CreateTagRequest is the create_tag request body
type CreateTagRequest struct {
	TaggedUserID int    `json:"tagged_user_id"`
	Location     string `json:"location,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// CreateTagResponse is returned after a successful tag
type CreateTagResponse struct {
	Message string `json:"message"`
	Tag     Tag    `json:"tag"`
}

// CurrentHolder is the player holding the tag and since when.
// User is nil before the game has a holder.
type CurrentHolder struct {
	User  *User      `json:"user"`
	Since *time.Time `json:"since"`
}
