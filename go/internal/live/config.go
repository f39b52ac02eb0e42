package live

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// DefaultURL is used when no endpoint is configured
const DefaultURL = "ws://localhost:8000/ws/game/"

// Config holds configuration for the live game connection
type Config struct {
	URL              string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	PingInterval     time.Duration // zero disables keepalive pings
	ReadTimeout      time.Duration // zero disables the read deadline
	WriteTimeout     time.Duration
	MaxMessageSize   int64
	RecentTagsLimit  int
}

// DefaultConfig returns the default live configuration. TAG_WS_URL overrides
// the endpoint.
func DefaultConfig() Config {
	return Config{
		URL:              getEnv("TAG_WS_URL", DefaultURL),
		ReconnectDelay:   5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   64 * 1024,
		RecentTagsLimit:  10,
	}
}

// Validate fills unset fields with defaults and rejects endpoints that are
// not websocket URLs.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.RecentTagsLimit <= 0 {
		c.RecentTagsLimit = def.RecentTagsLimit
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid live endpoint %q: %w", c.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("live endpoint %q must use ws or wss", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("live endpoint %q has no host", c.URL)
	}
	if c.PingInterval > 0 && c.ReadTimeout > 0 && c.ReadTimeout <= c.PingInterval {
		return fmt.Errorf("read timeout %s must exceed ping interval %s", c.ReadTimeout, c.PingInterval)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
