package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"locki.app/backend/pkg/database"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/storage"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	FrontendURL    string

	Database database.Config
	RedisURL string

	JWTSecret   string
	JWTTTL      time.Duration
	ResetTTL    time.Duration
	SettleDelay time.Duration

	FirebaseCredentialsFile string
	FirebaseCredentialsJSON string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	MeiliSearchHost string
	MeiliMasterKey  string

	Cloudinary storage.Config

	RateLimitPost    time.Duration
	RateLimitComment time.Duration

	Log logger.Config
}

func Load() (*Config, error) {
	// .env is optional, production passes real env vars
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),

		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "locki"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		Cloudinary: storage.Config{
			CloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:       os.Getenv("CLOUDINARY_API_KEY"),
			APISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "locki"),
		},

		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	var err error
	if cfg.Database.MaxConns, err = strconv.Atoi(getEnv("DB_MAX_CONNS", "20")); err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	durations := []struct {
		key      string
		fallback string
		dest     *time.Duration
	}{
		{"JWT_TTL", "24h", &cfg.JWTTTL},
		{"PASSWORD_RESET_TTL", "30m", &cfg.ResetTTL},
		{"AUTH_SETTLE_DELAY", "1s", &cfg.SettleDelay},
		{"RATE_LIMIT_POST", "30s", &cfg.RateLimitPost},
		{"RATE_LIMIT_COMMENT", "3s", &cfg.RateLimitComment},
	}
	for _, d := range durations {
		if *d.dest, err = time.ParseDuration(getEnv(d.key, d.fallback)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
