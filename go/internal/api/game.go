package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mcdev12/tagchase/go/internal/models"
)

// TagFilter narrows the tag list. Zero values are omitted.
type TagFilter struct {
	UserID   int
	PageSize int
	Page     int
}

func (f TagFilter) params() map[string]string {
	params := map[string]string{}
	if f.UserID > 0 {
		params["user"] = strconv.Itoa(f.UserID)
	}
	if f.PageSize > 0 {
		params["page_size"] = strconv.Itoa(f.PageSize)
	}
	if f.Page > 0 {
		params["page"] = strconv.Itoa(f.Page)
	}
	return params
}

// Settings returns the active game configuration
func (c *Client) Settings(ctx context.Context) (models.GameSettings, error) {
	var settings models.GameSettings
	if err := c.send(ctx, http.MethodGet, SettingsEndpoint, nil, nil, &settings); err != nil {
		return models.GameSettings{}, fmt.Errorf("get game settings: %w", err)
	}
	return settings, nil
}

// Tags lists verified tags, newest first
func (c *Client) Tags(ctx context.Context, filter TagFilter) ([]models.Tag, error) {
	var raw json.RawMessage
	if err := c.send(ctx, http.MethodGet, TagsEndpoint, nil, filter.params(), &raw); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	tags, err := decodeList[models.Tag](raw)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// CreateTag passes the tag on. Only the current holder may tag; anyone else
// gets an error matching ErrForbidden.
func (c *Client) CreateTag(ctx context.Context, req models.CreateTagRequest) (models.CreateTagResponse, error) {
	var out models.CreateTagResponse
	if err := c.send(ctx, http.MethodPost, CreateTagEndpoint, req, nil, &out); err != nil {
		return models.CreateTagResponse{}, fmt.Errorf("create tag: %w", err)
	}
	return out, nil
}

// CurrentHolder returns who holds the tag. User is nil before the game
// starts.
func (c *Client) CurrentHolder(ctx context.Context) (models.CurrentHolder, error) {
	var holder models.CurrentHolder
	if err := c.send(ctx, http.MethodGet, CurrentHolderEndpoint, nil, nil, &holder); err != nil {
		return models.CurrentHolder{}, fmt.Errorf("get current holder: %w", err)
	}
	return holder, nil
}

// Leaderboard returns the standings ordered by rank
func (c *Client) Leaderboard(ctx context.Context) ([]models.Standing, error) {
	var raw json.RawMessage
	if err := c.send(ctx, http.MethodGet, LeaderboardEndpoint, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	standings, err := decodeList[models.Standing](raw)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	return standings, nil
}

// Achievements lists earned achievements, optionally for one user
func (c *Client) Achievements(ctx context.Context, userID int) ([]models.Achievement, error) {
	params := map[string]string{}
	if userID > 0 {
		params["user"] = strconv.Itoa(userID)
	}

	var raw json.RawMessage
	if err := c.send(ctx, http.MethodGet, AchievementsEndpoint, nil, params, &raw); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	achievements, err := decodeList[models.Achievement](raw)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return achievements, nil
}
