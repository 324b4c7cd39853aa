package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBPath          string
	JWTSecret       string
	Environment     string
	ClaimWindow     time.Duration
	SweepInterval   time.Duration
	EnrollmentURL   string
	EnrollmentToken string
}

// Load reads configuration from the environment, with a .env file as a
// convenience for local development.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:            os.Getenv("PORT"),
		DBPath:          os.Getenv("DB_PATH"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		Environment:     os.Getenv("ENV"),
		ClaimWindow:     durationFromEnv("CLAIM_WINDOW_HOURS", time.Hour, 48),
		SweepInterval:   durationFromEnv("SWEEP_INTERVAL_MINUTES", time.Minute, 10),
		EnrollmentURL:   os.Getenv("ENROLLMENT_URL"),
		EnrollmentToken: os.Getenv("ENROLLMENT_TOKEN"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "payclaims.db"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	return cfg, nil
}

func durationFromEnv(key string, unit time.Duration, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * unit
		}
	}
	return time.Duration(def) * unit
}
