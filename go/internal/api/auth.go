package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mcdev12/tagchase/go/internal/models"
)

// RegisterResponse is returned by Register. New accounts wait for approval
// before they can play.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

// UserFilter narrows the player list
type UserFilter struct {
	Search   string
	Ordering string
}

// Login exchanges credentials for a token pair. It does not store the
// tokens; that is the session's job.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.TokenPair, error) {
	var tokens models.TokenPair
	if err := c.sendAnonymous(ctx, http.MethodPost, TokenEndpoint, creds, &tokens); err != nil {
		return models.TokenPair{}, fmt.Errorf("login: %w", err)
	}
	if tokens.Access == "" {
		return models.TokenPair{}, fmt.Errorf("login: response carried no access token")
	}
	return tokens, nil
}

// Register creates an account
func (c *Client) Register(ctx context.Context, reg models.Registration) (RegisterResponse, error) {
	var out RegisterResponse
	if err := c.sendAnonymous(ctx, http.MethodPost, RegisterEndpoint, reg, &out); err != nil {
		return RegisterResponse{}, fmt.Errorf("register: %w", err)
	}
	return out, nil
}

// Profile returns the signed in user
func (c *Client) Profile(ctx context.Context) (models.User, error) {
	var user models.User
	if err := c.send(ctx, http.MethodGet, ProfileEndpoint, nil, nil, &user); err != nil {
		return models.User{}, fmt.Errorf("get profile: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the editable profile fields and returns the result
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (models.User, error) {
	var user models.User
	if err := c.send(ctx, http.MethodPut, UpdateProfileEndpoint, update, nil, &user); err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ChangePassword sets a new password and returns the backend confirmation
func (c *Client) ChangePassword(ctx context.Context, change models.PasswordChange) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.send(ctx, http.MethodPost, ChangePasswordEndpoint, change, nil, &out); err != nil {
		return "", fmt.Errorf("change password: %w", err)
	}
	return out.Message, nil
}

// Players lists registered users
func (c *Client) Players(ctx context.Context, filter UserFilter) ([]models.User, error) {
	params := map[string]string{}
	if filter.Search != "" {
		params["search"] = filter.Search
	}
	if filter.Ordering != "" {
		params["ordering"] = filter.Ordering
	}

	var raw json.RawMessage
	if err := c.send(ctx, http.MethodGet, UsersEndpoint, nil, params, &raw); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	users, err := decodeList[models.User](raw)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return users, nil
}
