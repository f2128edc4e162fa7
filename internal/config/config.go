package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	AppEnv       string // "development" or "production"
	CORSOrigin   string

	JWTSecret  string
	SessionTTL time.Duration
	CookieName string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	StreamAPIKey    string
	StreamAPISecret string
	StreamBaseURL   string

	AvatarBaseURL string

	// Upper bound for a single mail dispatch or directory sync call.
	ExternalCallTimeout time.Duration
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	callTimeout, err := time.ParseDuration(getEnv("EXTERNAL_CALL_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXTERNAL_CALL_TIMEOUT: %w", err)
	}

	return &Config{
		ServerPort:   port,
		DatabasePath: getEnv("DATABASE_PATH", "./talkvia.db"),
		AppEnv:       getEnv("APP_ENV", "development"),
		CORSOrigin:   getEnv("CORS_ORIGIN", "http://localhost:5173"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		SessionTTL: sessionTTL,
		CookieName: getEnv("SESSION_COOKIE_NAME", "jwt"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     smtpPort,
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@talkvia.app"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Talkvia"),

		StreamAPIKey:    getEnv("STREAM_API_KEY", ""),
		StreamAPISecret: getEnv("STREAM_API_SECRET", ""),
		StreamBaseURL:   getEnv("STREAM_BASE_URL", "https://chat.stream-io-api.com"),

		AvatarBaseURL: getEnv("AVATAR_BASE_URL", "https://avatar.iran.liara.run/public"),

		ExternalCallTimeout: callTimeout,
	}, nil
}

// IsProduction reports whether the app runs in production mode. The session
// cookie only carries the Secure flag in production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
