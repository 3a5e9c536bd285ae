// Package config loads runtime settings from the environment and holds the
// domain tunables of the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pion/webrtc/v4"
)

// Config is the runtime configuration of the server process.
type Config struct {
	HTTPAddr      string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	TelegramBotToken       string
	TelegramOfficialChatID int64
	LocalizationDir        string

	ICEServers []webrtc.ICEServer

	CORSOrigins []string

	Debug bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseDSN:      getEnv("DATABASE_DSN", "host=localhost user=user password=password dbname=civicwatch port=5432 sslmode=disable"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		LocalizationDir:  getEnv("LOCALIZATION_DIR", "internal/localization/locales"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
		Debug:            getBool("LOG_DEBUG"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	db, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.RedisDB = db

	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_OFFICIALS_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_OFFICIALS_CHAT_ID: %w", err)
		}
		cfg.TelegramOfficialChatID = id
	}

	ice, err := iceSourceFromEnv().Servers()
	if err != nil {
		return nil, err
	}
	cfg.ICEServers = ice

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
