package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcdev12/tagchase/go/internal/api"
	"github.com/mcdev12/tagchase/go/internal/live"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changedFlags map[string]bool

func (c changedFlags) Changed(name string) bool { return c[name] }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TAG_API_URL", "TAG_WS_URL", "TAG_USERNAME", "TAG_PASSWORD",
		"TAG_RECONNECT_DELAY", "TAG_REQUEST_TIMEOUT", "TAG_VERBOSE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tagchase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolve_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := &Config{configPath: filepath.Join(t.TempDir(), "missing.yaml")}
	require.NoError(t, cfg.resolve(changedFlags{}))

	assert.Equal(t, api.DefaultBaseURL, cfg.apiURL)
	assert.Equal(t, live.DefaultURL, cfg.wsURL)
	assert.Equal(t, 5*time.Second, cfg.reconnectDelay)
	assert.Equal(t, 15*time.Second, cfg.requestTimeout)
	assert.False(t, cfg.verbose)
}

func TestResolve_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api_url: http://file.example/api
ws_url: ws://file.example/ws/game/
username: file-user
reconnect_delay: 2s
verbose: true
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg := &Config{configPath: path}
		require.NoError(t, cfg.resolve(changedFlags{"config": true}))

		assert.Equal(t, "http://file.example/api", cfg.apiURL)
		assert.Equal(t, "ws://file.example/ws/game/", cfg.wsURL)
		assert.Equal(t, "file-user", cfg.username)
		assert.Equal(t, 2*time.Second, cfg.reconnectDelay)
		assert.Equal(t, 15*time.Second, cfg.requestTimeout)
		assert.True(t, cfg.verbose)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("TAG_API_URL", "http://env.example/api")
		t.Setenv("TAG_RECONNECT_DELAY", "7s")

		cfg := &Config{configPath: path}
		require.NoError(t, cfg.resolve(changedFlags{"config": true}))

		assert.Equal(t, "http://env.example/api", cfg.apiURL)
		assert.Equal(t, 7*time.Second, cfg.reconnectDelay)
		assert.Equal(t, "file-user", cfg.username)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("TAG_API_URL", "http://env.example/api")

		cfg := &Config{configPath: path, apiURL: "http://flag.example/api", username: "flag-user"}
		require.NoError(t, cfg.resolve(changedFlags{"config": true, "api-url": true, "username": true}))

		assert.Equal(t, "http://flag.example/api", cfg.apiURL)
		assert.Equal(t, "flag-user", cfg.username)
	})
}

func TestResolve_Errors(t *testing.T) {
	clearEnv(t)

	cfg := &Config{configPath: filepath.Join(t.TempDir(), "missing.yaml")}
	assert.Error(t, cfg.resolve(changedFlags{"config": true}), "an explicit config file must exist")

	cfg = &Config{configPath: writeConfig(t, "api_url: [unclosed")}
	assert.Error(t, cfg.resolve(changedFlags{}))

	cfg = &Config{configPath: writeConfig(t, "ws_url: http://example.com/ws/")}
	assert.Error(t, cfg.resolve(changedFlags{}), "live endpoint must be a websocket URL")

	cfg = &Config{configPath: writeConfig(t, ""), reconnectDelay: -time.Second}
	assert.Error(t, cfg.resolve(changedFlags{"reconnect-delay": true}))
}

func TestRequireLogin(t *testing.T) {
	assert.NoError(t, (&Config{spectate: true}).requireLogin())
	assert.NoError(t, (&Config{username: "alice", password: "secret"}).requireLogin())
	assert.Error(t, (&Config{username: "alice"}).requireLogin())
	assert.Error(t, (&Config{}).requireLogin())
}
