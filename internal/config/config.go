package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                  string
	AppEnv                   string
	AppPort                  string
	DatabaseURL              string
	RedisURL                 string
	NATSURL                  string
	EventsChannel            string
	JWTSecret                string
	DashboardCacheTTL        time.Duration
	BlacklistThreshold       float64
	AbsenceMaxHours          float64
	AbsenceDefaultTotalHours float64
	RateLimitMax             int
	RateLimitWindow          time.Duration
	UploadMaxMB              int
	SeedOnStart              bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AuthEnabled reports whether mutating routes require a bearer token.
func (c Config) AuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SCOLARITE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Scolarite API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8079")
	v.SetDefault("database.url", "sqlite://scolarite.db")
	v.SetDefault("events.channel", "scolarite")
	v.SetDefault("dashboard.cache_ttl", "2m")
	v.SetDefault("absence.default_threshold", 0.5)
	v.SetDefault("absence.max_hours", 500)
	v.SetDefault("absence.default_total_hours", 500)
	v.SetDefault("rate_limit.max", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("seed.on_start", false)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	ttl, err := parseDuration(v.GetString("dashboard.cache_ttl"), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("rate_limit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:                  v.GetString("app.name"),
		AppEnv:                   v.GetString("app.env"),
		AppPort:                  v.GetString("app.port"),
		DatabaseURL:              v.GetString("database.url"),
		RedisURL:                 v.GetString("redis.url"),
		NATSURL:                  v.GetString("nats.url"),
		EventsChannel:            v.GetString("events.channel"),
		JWTSecret:                v.GetString("jwt.secret"),
		DashboardCacheTTL:        ttl,
		BlacklistThreshold:       v.GetFloat64("absence.default_threshold"),
		AbsenceMaxHours:          v.GetFloat64("absence.max_hours"),
		AbsenceDefaultTotalHours: v.GetFloat64("absence.default_total_hours"),
		RateLimitMax:             v.GetInt("rate_limit.max"),
		RateLimitWindow:          window,
		UploadMaxMB:              v.GetInt("upload.max_mb"),
		SeedOnStart:              v.GetBool("seed.on_start"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.BlacklistThreshold < 0 || cfg.BlacklistThreshold > 1 {
		return Config{}, fmt.Errorf("absence default threshold must be a fraction between 0 and 1, got %v", cfg.BlacklistThreshold)
	}

	if cfg.AbsenceMaxHours <= 0 {
		cfg.AbsenceMaxHours = 500
	}

	if cfg.AbsenceDefaultTotalHours <= 0 || cfg.AbsenceDefaultTotalHours > cfg.AbsenceMaxHours {
		cfg.AbsenceDefaultTotalHours = cfg.AbsenceMaxHours
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
