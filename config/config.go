package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"focusonmeal/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port          string
	APIBaseURL    string
	ReactDevURL   string
	SessionSecret string
	APITimeout    time.Duration
	CORSOrigins   []string
	SecureCookies bool

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		APIBaseURL:    strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8081"), "/"),
		ReactDevURL:   strings.TrimRight(getenv("REACT_DEV_URL", "http://localhost:3000"), "/"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		APITimeout:    10 * time.Second,
		SecureCookies: os.Getenv("SECURE_COOKIES") == "true",

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getenv("DB_PORT", "5432"),
	}

	if v := os.Getenv("API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("API_TIMEOUT: %w", err)
		}
		cfg.APITimeout = d
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET not set")
	}
	return cfg, nil
}

// UseDatabase reports whether sessions should be kept in Postgres.
func (c *Config) UseDatabase() bool {
	return c.DBHost != ""
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Session{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}
	return db, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
