package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// TokenStore holds the credentials the client authenticates with
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(token string)
	Clear()
}

// Config holds configuration for the REST client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration. TAG_API_URL
// overrides the base URL.
func DefaultConfig() Config {
	return Config{
		BaseURL: getEnv("TAG_API_URL", DefaultBaseURL),
		Timeout: 15 * time.Second,
	}
}

// Client talks to the game backend REST API
type Client struct {
	http   *resty.Client
	tokens TokenStore

	refreshMu sync.Mutex
}

// New creates a client. tokens may be nil for anonymous use.
func New(cfg Config, tokens TokenStore) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if tokens == nil {
		tokens = &memoryTokens{}
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: cli, tokens: tokens}
}

// send performs an authenticated request and decodes the response into out.
// A 401 triggers one token refresh and one retry when a refresh token is
// available.
func (c *Client) send(ctx context.Context, method, path string, body any, params map[string]string, out any) error {
	token := c.tokens.AccessToken()
	resp, err := c.execute(ctx, method, path, body, params, token)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized && c.tokens.RefreshToken() != "" {
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			return err
		}
		resp, err = c.execute(ctx, method, path, body, params, fresh)
		if err != nil {
			return err
		}
	}

	return decode(resp, out)
}

// sendAnonymous performs a request without credentials or refresh handling
func (c *Client) sendAnonymous(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.execute(ctx, method, path, body, nil, "")
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) execute(ctx context.Context, method, path string, body any, params map[string]string, token string) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("took", resp.Time()).
		Msg("api request")
	return resp, nil
}

// refresh exchanges the refresh token for a new access token. Concurrent
// callers that failed with the same stale token share one refresh. A
// rejected refresh clears the token store.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.tokens.AccessToken(); current != "" && current != stale {
		return current, nil
	}
	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		return "", ErrSessionExpired
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"refresh": refreshToken}).
		Post(TokenRefreshEndpoint)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := decode(resp, &out); err != nil || out.Access == "" {
		log.Warn().Err(err).Int("status", resp.StatusCode()).Msg("token refresh rejected, clearing session")
		c.tokens.Clear()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return "", ErrSessionExpired
	}

	c.tokens.SetAccessToken(out.Access)
	log.Debug().Msg("access token refreshed")
	return out.Access, nil
}

func decode(resp *resty.Response, out any) error {
	if err := mapHTTPError(resp); err != nil {
		return err
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", resp.Request.URL, err)
	}
	return nil
}

// decodeList accepts both a bare JSON array and a paginated {"results": [...]}
// page.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return page.Results, nil
}

// memoryTokens is the token store of an anonymous client
type memoryTokens struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func (m *memoryTokens) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

func (m *memoryTokens) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh
}

func (m *memoryTokens) SetAccessToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = token
}

func (m *memoryTokens) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
