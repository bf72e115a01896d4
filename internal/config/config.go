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
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	DraftCacheTTL          time.Duration
	ProgressCacheTTL       time.Duration
	AutosaveDebounce       time.Duration
	UploadMaxSizeMB        int
	GeneratorRateLimit     int
	OpenAIAPIKey           string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PERCORSO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Percorso API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "percorso/exercises")
	v.SetDefault("draft.cache_ttl", "30s")
	v.SetDefault("progress.cache_ttl", "1m")
	v.SetDefault("autosave.debounce_ms", 2000)
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("generator.rate_limit", 5)

	draftTTL, err := time.ParseDuration(stringOr(v.GetString("draft.cache_ttl"), "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid draft cache ttl: %w", err)
	}

	progressTTL, err := time.ParseDuration(stringOr(v.GetString("progress.cache_ttl"), "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid progress cache ttl: %w", err)
	}

	debounceMs := v.GetInt("autosave.debounce_ms")
	if debounceMs <= 0 {
		debounceMs = 2000
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		DraftCacheTTL:          draftTTL,
		ProgressCacheTTL:       progressTTL,
		AutosaveDebounce:       time.Duration(debounceMs) * time.Millisecond,
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		GeneratorRateLimit:     v.GetInt("generator.rate_limit"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}
	if cfg.GeneratorRateLimit <= 0 {
		cfg.GeneratorRateLimit = 5
	}

	return cfg, nil
}

func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
