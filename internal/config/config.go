package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config — конфигурация сервиса из переменных окружения
type Config struct {
	PostgresConn  string
	ServerAddress string
	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	NominatimURL  string
}

// Load читает окружение (при наличии — и .env) и валидирует конфигурацию
func Load() (*Config, error) {
	// Отсутствие .env не ошибка: конфигурация может прийти из окружения
	_ = godotenv.Load()

	cfg := &Config{
		PostgresConn:  os.Getenv("POSTGRES_CONN"),
		ServerAddress: getenvWithDefault("SERVER_ADDRESS", "0.0.0.0:8080"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AccessTTL:     getenvDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTTL:    getenvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		NominatimURL:  getenvWithDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
	}

	if cfg.PostgresConn == "" {
		return nil, errors.New("POSTGRES_CONN env variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET env variable is not set")
	}
	return cfg, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
