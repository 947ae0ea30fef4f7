package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lg/mealmind-go-api/internal/mealplan"
)

// config is the server configuration, read from the environment after
// godotenv has loaded .env.
type config struct {
	DBURL          string
	Port           string
	JWTSecret      string
	JWTTTL         time.Duration
	RedisURL       string
	OpenAIKey      string
	OpenAIBaseURL  string
	AllowedOrigins []string
	LogMode        string
	DietDuration   int
	Location       *time.Location
}

func loadConfig() (config, error) {
	cfg := config{
		DBURL:          os.Getenv("DB_URL"),
		Port:           getEnv("PORT", "3000"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RedisURL:       os.Getenv("REDIS_URL"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogMode:        getEnv("LOG_MODE", "dev"),
	}
	if cfg.DBURL == "" {
		return cfg, fmt.Errorf("DB_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	ttlHours, err := getEnvInt("JWT_TTL_HOURS", 24)
	if err != nil {
		return cfg, err
	}
	cfg.JWTTTL = time.Duration(ttlHours) * time.Hour

	if cfg.DietDuration, err = getEnvInt("DIET_DURATION_DAYS", mealplan.DefaultDietDuration); err != nil {
		return cfg, err
	}
	if cfg.DietDuration < 1 {
		return cfg, fmt.Errorf("DIET_DURATION_DAYS must be positive")
	}

	cfg.Location = time.UTC
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
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
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// parseOrigins splits a comma-separated origin list, dropping blanks.
func parseOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
