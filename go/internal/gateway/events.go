package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/tagchase/go/internal/models"
)

// ErrUnknownEventType is returned for bus events the gateway does not relay
var ErrUnknownEventType = errors.New("unknown event type")

// EventType is the type of a frame on the game channel
type EventType string

const (
	EventTypeNewTag            EventType = "new_tag"
	EventTypeLeaderboardUpdate EventType = "leaderboard_update"
	EventTypeGameUpdate        EventType = "game_update"
	EventTypePing              EventType = "ping"
	EventTypePong              EventType = "pong"
)

// Envelope is one frame sent to game channel clients
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope checks that payload has the shape clients expect for
// eventType and wraps it.
func NewEnvelope(eventType string, payload json.RawMessage) (Envelope, error) {
	switch EventType(eventType) {
	case EventTypeNewTag:
		if isNull(payload) {
			return Envelope{}, fmt.Errorf("invalid %s payload: null", eventType)
		}
		var event models.TagEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return Envelope{}, fmt.Errorf("invalid %s payload: %w", eventType, err)
		}
	case EventTypeLeaderboardUpdate:
		if isNull(payload) {
			return Envelope{}, fmt.Errorf("invalid %s payload: null", eventType)
		}
		var standings []models.Standing
		if err := json.Unmarshal(payload, &standings); err != nil {
			return Envelope{}, fmt.Errorf("invalid %s payload: %w", eventType, err)
		}
	case EventTypeGameUpdate:
		// opaque to clients
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	return Envelope{Type: EventType(eventType), Data: payload}, nil
}

func isNull(payload json.RawMessage) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// clientMessage is a frame received from a client
type clientMessage struct {
	Type EventType `json:"type"`
}

var pongFrame = mustMarshal(Envelope{Type: EventTypePong})

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
