package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Alert    AlertConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// AlertConfig tunes the alert engine.
type AlertConfig struct {
	// TickInterval is how often the scheduler evaluates active types.
	TickInterval time.Duration
	// FactTimeout bounds each per-category read of the club schema.
	FactTimeout time.Duration
	// RegistryCacheTTL is how stale the scheduler's view of the type
	// registry may be.
	RegistryCacheTTL time.Duration
	// BellPreviewLimit caps the unread dropdown preview.
	BellPreviewLimit int
	// DigestCheckInterval is how often due digest buckets are flushed.
	DigestCheckInterval time.Duration
	// DispatchTopic names the in-process dispatch queue.
	DispatchTopic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Club Hípico"),
		},
		Alert: AlertConfig{
			TickInterval:        getEnvAsDuration("ALERT_TICK_INTERVAL", time.Minute),
			FactTimeout:         getEnvAsDuration("ALERT_FACT_TIMEOUT", 30*time.Second),
			RegistryCacheTTL:    getEnvAsDuration("ALERT_REGISTRY_CACHE_TTL", time.Minute),
			BellPreviewLimit:    getEnvAsInt("ALERT_BELL_PREVIEW_LIMIT", 5),
			DigestCheckInterval: getEnvAsDuration("ALERT_DIGEST_CHECK_INTERVAL", time.Minute),
			DispatchTopic:       getEnv("ALERT_DISPATCH_TOPIC", "alertas.creadas"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
