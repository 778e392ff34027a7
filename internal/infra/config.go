package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
//
// All timing knobs for the tracker (vendor HTTP timeouts, poll backoff, job
// lifetime) live here so there is a single configuration surface instead of
// per-call constants.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisAddr   string

	JWTSecret     string
	WebhookSecret string

	// Vendor credentials and endpoints.
	HeyGenAPIKey       string
	HeyGenBaseURL      string
	RunwayAPIKey       string
	RunwayBaseURL      string
	VeoAPIKey          string
	VeoBaseURL         string
	HappyScribeAPIKey  string
	HappyScribeBaseURL string
	VideoProvider      string

	VendorHTTPTimeout time.Duration

	// Poll scheduler policy.
	PollTick             time.Duration
	PollInitialBackoff   time.Duration
	PollMaxBackoff       time.Duration
	PollMaxAttempts      int
	JobMaxLifetime       time.Duration
	StartRetryMaxElapsed time.Duration
	SchedulerConcurrency int
	SchedulerClaimLimit  int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		HeyGenAPIKey:       os.Getenv("HEYGEN_API_KEY"),
		HeyGenBaseURL:      getEnv("HEYGEN_BASE_URL", "https://api.heygen.com"),
		RunwayAPIKey:       os.Getenv("RUNWAY_API_KEY"),
		RunwayBaseURL:      getEnv("RUNWAY_BASE_URL", "https://api.dev.runwayml.com/v1"),
		VeoAPIKey:          os.Getenv("VEO_API_KEY"),
		VeoBaseURL:         getEnv("VEO_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		HappyScribeAPIKey:  os.Getenv("HAPPYSCRIBE_API_KEY"),
		HappyScribeBaseURL: getEnv("HAPPYSCRIBE_BASE_URL", "https://www.happyscribe.com/api/v1"),
		VideoProvider:      getEnv("VIDEO_PROVIDER", "heygen"),

		VendorHTTPTimeout: time.Second * time.Duration(getEnvInt("VENDOR_HTTP_TIMEOUT_SECONDS", 30)),

		PollTick:             time.Second * time.Duration(getEnvInt("POLL_TICK_SECONDS", 10)),
		PollInitialBackoff:   time.Second * time.Duration(getEnvInt("POLL_INITIAL_BACKOFF_SECONDS", 3)),
		PollMaxBackoff:       time.Second * time.Duration(getEnvInt("POLL_MAX_BACKOFF_SECONDS", 60)),
		PollMaxAttempts:      getEnvInt("POLL_MAX_ATTEMPTS", 40),
		JobMaxLifetime:       time.Hour * time.Duration(getEnvInt("JOB_MAX_LIFETIME_HOURS", 24)),
		StartRetryMaxElapsed: time.Second * time.Duration(getEnvInt("START_RETRY_MAX_ELAPSED_SECONDS", 30)),
		SchedulerConcurrency: getEnvInt("SCHEDULER_CONCURRENCY", 4),
		SchedulerClaimLimit:  getEnvInt("SCHEDULER_CLAIM_LIMIT", 100),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.VideoProvider != "heygen" && cfg.VideoProvider != "veo" {
		return nil, fmt.Errorf("VIDEO_PROVIDER must be heygen or veo, got %q", cfg.VideoProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
