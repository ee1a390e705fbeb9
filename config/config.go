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
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Inventory InventoryConfig
	Catalog   CatalogConfig
	CORS      CORSConfig
	JWT       JWTConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// CacheConfig carries the per-domain TTLs of the cart cache. Session-scoped
// entries stay short so anonymous traffic cannot pin memory; user owner
// mappings live hours.
type CacheConfig struct {
	CartTTL         time.Duration
	UserOwnerTTL    time.Duration
	SessionOwnerTTL time.Duration
}

type InventoryConfig struct {
	// HoldWindow bounds how long a reservation keeps stock away from
	// other shoppers before the janitor reclaims it.
	HoldWindow   time.Duration
	CleanupEvery string // cron spec for the expiry janitor
}

type CatalogConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type JWTConfig struct {
	Secret string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "shopcart"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			Enabled:  getEnv("REDIS_ENABLED", "true") == "true",
		},
		Cache: CacheConfig{
			CartTTL:         parseDuration(getEnv("CACHE_CART_TTL", "30m"), 30*time.Minute),
			UserOwnerTTL:    parseDuration(getEnv("CACHE_USER_OWNER_TTL", "6h"), 6*time.Hour),
			SessionOwnerTTL: parseDuration(getEnv("CACHE_SESSION_OWNER_TTL", "30m"), 30*time.Minute),
		},
		Inventory: InventoryConfig{
			HoldWindow:   parseDuration(getEnv("INVENTORY_HOLD_WINDOW", "15m"), 15*time.Minute),
			CleanupEvery: getEnv("INVENTORY_CLEANUP_CRON", "@every 1m"),
		},
		Catalog: CatalogConfig{
			BaseURL: getEnv("CATALOG_BASE_URL", "http://localhost:8081/api/v1"),
			APIKey:  getEnv("CATALOG_API_KEY", ""),
			Timeout: parseDuration(getEnv("CATALOG_TIMEOUT", "10s"), 10*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}
