package live

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/tagchase/go/internal/models"
)

// ErrMalformedMessage is wrapped by every decode failure
var ErrMalformedMessage = errors.New("malformed live message")

// MessageType is the discriminator of an inbound frame
type MessageType string

const (
	MessageTypeNewTag            MessageType = "new_tag"
	MessageTypeLeaderboardUpdate MessageType = "leaderboard_update"
	MessageTypeGameUpdate        MessageType = "game_update"
	MessageTypePong              MessageType = "pong"
)

// Message is an inbound frame decoded into one of NewTag, LeaderboardUpdate,
// GameUpdate, Pong or Unknown.
type Message interface {
	Type() MessageType
	sealed()
}

// NewTag announces a tag that just happened
type NewTag struct {
	Event models.TagEvent
}

// LeaderboardUpdate carries a full leaderboard snapshot
type LeaderboardUpdate struct {
	Standings []models.Standing
}

// GameUpdate carries a payload this client does not interpret
type GameUpdate struct {
	Payload json.RawMessage
}

// Pong answers the keepalive ping frame
type Pong struct{}

// Unknown is any frame whose discriminator this client does not know
type Unknown struct {
	Name string
}

func (NewTag) Type() MessageType            { return MessageTypeNewTag }
func (LeaderboardUpdate) Type() MessageType { return MessageTypeLeaderboardUpdate }
func (GameUpdate) Type() MessageType        { return MessageTypeGameUpdate }
func (Pong) Type() MessageType              { return MessageTypePong }
func (u Unknown) Type() MessageType         { return MessageType(u.Name) }

func (NewTag) sealed()            {}
func (LeaderboardUpdate) sealed() {}
func (GameUpdate) sealed()        {}
func (Pong) sealed()              {}
func (Unknown) sealed()           {}

// envelope is the wire shape of every frame
type envelope struct {
	Type *string         `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeMessage parses a raw frame. Unknown discriminators decode to Unknown
// without error; unparseable frames, a missing discriminator or a payload that
// does not fit its discriminator return an error wrapping ErrMalformedMessage.
func DecodeMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == nil || *env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}

	switch MessageType(*env.Type) {
	case MessageTypeNewTag:
		var event models.TagEvent
		if err := decodePayload(env.Data, &event); err != nil {
			return nil, fmt.Errorf("%w: new_tag: %v", ErrMalformedMessage, err)
		}
		return NewTag{Event: event}, nil

	case MessageTypeLeaderboardUpdate:
		var standings []models.Standing
		if err := decodePayload(env.Data, &standings); err != nil {
			return nil, fmt.Errorf("%w: leaderboard_update: %v", ErrMalformedMessage, err)
		}
		return LeaderboardUpdate{Standings: standings}, nil

	case MessageTypeGameUpdate:
		return GameUpdate{Payload: env.Data}, nil

	case MessageTypePong:
		return Pong{}, nil

	default:
		return Unknown{Name: *env.Type}, nil
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errors.New("missing data")
	}
	return json.Unmarshal(raw, v)
}
