package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// ParseFailurePolicy decides what the mailbox fetcher does with a message whose source cannot be parsed.
type ParseFailurePolicy string

const (
	// ParseFailureAbort fails the whole fetch when one message cannot be parsed.
	ParseFailureAbort ParseFailurePolicy = "abort"
	// ParseFailureSkip logs the malformed message and returns the rest.
	ParseFailureSkip ParseFailurePolicy = "skip"
)

// IMAPConfig holds everything the IMAP probe and fetcher need.
type IMAPConfig struct {
	Host               string
	Port               int
	TLS                bool
	Username           string
	Password           string
	Mailbox            string
	FetchLimit         int
	ProbeTimeout       time.Duration
	Timeout            time.Duration
	ParseFailurePolicy ParseFailurePolicy
	ReceivedAtLayout   string
	Location           *time.Location
}

// BlueskyConfig holds the Bluesky service URL and the account used for publishing.
type BlueskyConfig struct {
	Host        string
	Handle      string
	AppPassword string
	Timeout     time.Duration
}

// AdminConfig is only reported by the health endpoint. Dashboard login is not handled here.
type AdminConfig struct {
	Email    string
	Password string
}

type Config struct {
	Environment        string
	Port               string
	Timezone           string
	CORSAllowedOrigin  string
	// RateLimitPerMinute of 0 turns rate limiting off.
	RateLimitPerMinute int
	MaxPostLength      int
	IMAP               IMAPConfig
	Bluesky            BlueskyConfig
	Admin              AdminConfig
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILSKY_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	var errs []error
	intEnv := func(key string, defaultValue int) int {
		value, err := getEnvInt(key, defaultValue)
		if err != nil {
			errs = append(errs, err)
		}
		return value
	}
	msEnv := func(key string, defaultValue int) time.Duration {
		return time.Duration(intEnv(key, defaultValue)) * time.Millisecond
	}

	timezone := getEnvOrDefault("TZ", "UTC")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("TZ is invalid: %w", err))
		location = time.UTC
	}

	config := &Config{
		Environment:        env,
		Port:               getEnvOrDefault("PORT", "8080"),
		Timezone:           timezone,
		CORSAllowedOrigin:  getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*"),
		RateLimitPerMinute: intEnv("RATE_LIMIT_PER_MINUTE", 0),
		MaxPostLength:      intEnv("THREAD_MAX_POST_LENGTH", 300),
		IMAP: IMAPConfig{
			Host:               os.Getenv("IMAP_HOST"),
			Port:               intEnv("IMAP_PORT", 993),
			TLS:                getEnvOrDefault("IMAP_TLS", "true") == "true",
			Username:           os.Getenv("IMAP_USER"),
			Password:           os.Getenv("IMAP_PASS"),
			Mailbox:            getEnvOrDefault("IMAP_MAILBOX", "INBOX"),
			FetchLimit:         intEnv("IMAP_FETCH_LIMIT", 20),
			ProbeTimeout:       msEnv("IMAP_PROBE_TIMEOUT_MS", 5000),
			Timeout:            msEnv("IMAP_TIMEOUT_MS", 30000),
			ParseFailurePolicy: ParseFailurePolicy(strings.ToLower(getEnvOrDefault("IMAP_PARSE_FAILURE_POLICY", string(ParseFailureAbort)))),
			ReceivedAtLayout:   getEnvOrDefault("RECEIVED_AT_LAYOUT", "2.1.2006, 15:04:05"),
			Location:           location,
		},
		Bluesky: BlueskyConfig{
			Host:        strings.TrimRight(getEnvOrDefault("BLUESKY_HOST", "https://bsky.social"), "/"),
			Handle:      strings.TrimPrefix(os.Getenv("BLUESKY_HANDLE"), "@"),
			AppPassword: os.Getenv("BLUESKY_APP_PASSWORD"),
			Timeout:     msEnv("BLUESKY_TIMEOUT_MS", 30000),
		},
		Admin: AdminConfig{
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would make the server misbehave. Missing IMAP or Bluesky
// credentials are not errors here: the server starts anyway and reports them via /api/health.
func (c *Config) Validate() error {
	if c.IMAP.Port <= 0 || c.IMAP.Port > 65535 {
		return fmt.Errorf("IMAP_PORT must be between 1 and 65535, got %d", c.IMAP.Port)
	}

	if c.IMAP.FetchLimit <= 0 {
		return fmt.Errorf("IMAP_FETCH_LIMIT must be positive, got %d", c.IMAP.FetchLimit)
	}

	switch c.IMAP.ParseFailurePolicy {
	case ParseFailureAbort, ParseFailureSkip:
	default:
		return fmt.Errorf("IMAP_PARSE_FAILURE_POLICY must be %q or %q, got %q", ParseFailureAbort, ParseFailureSkip, c.IMAP.ParseFailurePolicy)
	}

	if c.MaxPostLength <= 0 {
		return fmt.Errorf("THREAD_MAX_POST_LENGTH must be positive, got %d", c.MaxPostLength)
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute)
	}

	return nil
}

// IsIMAPConfigured reports whether host, username and password are all set.
func (c *Config) IsIMAPConfigured() bool {
	return c.IMAP.IsConfigured()
}

// IsBlueskyConfigured reports whether the handle and app password are set.
func (c *Config) IsBlueskyConfigured() bool {
	return c.Bluesky.IsConfigured()
}

// IsAdminConfigured reports whether the admin email and password are set.
func (c *Config) IsAdminConfigured() bool {
	return c.Admin.Email != "" && c.Admin.Password != ""
}

// IsConfigured reports whether the IMAP account can be used.
func (c IMAPConfig) IsConfigured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// Address returns host:port for dialing.
func (c IMAPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsConfigured reports whether the Bluesky account can be used.
func (c BlueskyConfig) IsConfigured() bool {
	return c.Handle != "" && c.AppPassword != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return parsed, nil
}
