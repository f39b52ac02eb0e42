package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcdev12/tagchase/go/internal/api"
	"github.com/mcdev12/tagchase/go/internal/live"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "tagchase.yaml"

// FileConfig is the optional YAML config file
type FileConfig struct {
	APIURL         string        `yaml:"api_url"`
	WSURL          string        `yaml:"ws_url"`
	Username       string        `yaml:"username"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Verbose        bool          `yaml:"verbose"`
}

// Config is the resolved CLI configuration. Each setting comes from the
// first source that sets it: flag, environment, config file, default.
type Config struct {
	configPath     string
	apiURL         string
	wsURL          string
	username       string
	password       string
	spectate       bool
	reconnectDelay time.Duration
	requestTimeout time.Duration
	verbose        bool
}

// flagSet reports which flags were given on the command line
type flagSet interface {
	Changed(name string) bool
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loadFileConfig reads the YAML config. A missing file at the default path
// is not an error.
func loadFileConfig(path string, explicit bool) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// resolve fills every setting not given as a flag from env, file and
// defaults, in that order.
func (c *Config) resolve(flags flagSet) error {
	file, err := loadFileConfig(c.configPath, flags.Changed("config"))
	if err != nil {
		return err
	}

	if !flags.Changed("api-url") {
		c.apiURL = getEnv("TAG_API_URL", firstNonEmpty(file.APIURL, api.DefaultBaseURL))
	}
	if !flags.Changed("ws-url") {
		c.wsURL = getEnv("TAG_WS_URL", firstNonEmpty(file.WSURL, live.DefaultURL))
	}
	if !flags.Changed("username") {
		c.username = getEnv("TAG_USERNAME", file.Username)
	}
	if !flags.Changed("password") {
		c.password = getEnv("TAG_PASSWORD", "")
	}
	if !flags.Changed("reconnect-delay") {
		c.reconnectDelay = getEnvAsDuration("TAG_RECONNECT_DELAY", firstPositive(file.ReconnectDelay, 5*time.Second))
	}
	if !flags.Changed("timeout") {
		c.requestTimeout = getEnvAsDuration("TAG_REQUEST_TIMEOUT", firstPositive(file.RequestTimeout, 15*time.Second))
	}
	if !flags.Changed("verbose") {
		c.verbose = file.Verbose || getEnv("TAG_VERBOSE", "") == "true"
	}

	return c.validate()
}

func (c *Config) validate() error {
	if c.reconnectDelay <= 0 {
		return fmt.Errorf("invalid reconnect delay: %s", c.reconnectDelay)
	}
	if c.requestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout: %s", c.requestTimeout)
	}
	liveCfg := c.liveConfig()
	if err := liveCfg.Validate(); err != nil {
		return err
	}
	return nil
}

// requireLogin checks the credentials needed by commands that sign in
func (c *Config) requireLogin() error {
	if c.spectate {
		return nil
	}
	if c.username == "" || c.password == "" {
		return errors.New("--username and --password are required unless --spectate is set")
	}
	return nil
}

func (c *Config) apiConfig() api.Config {
	return api.Config{BaseURL: c.apiURL, Timeout: c.requestTimeout}
}

func (c *Config) liveConfig() live.Config {
	cfg := live.DefaultConfig()
	cfg.URL = c.wsURL
	cfg.ReconnectDelay = c.reconnectDelay
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
