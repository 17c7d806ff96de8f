// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/sharesathi/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	DevMode  bool
	LogLevel string
	LogFile  string // Optional rotating log file

	// SnapshotFile switches watchlist persistence from config.db to a JSON file.
	SnapshotFile string

	QuoteCacheTTL time.Duration
	NewsFeeds     []string

	Chat   ChatConfig
	Backup *BackupConfig
}

// ChatConfig holds credentials and models for the chat assistant providers.
// Providers without a key are skipped and the rule-based responder answers instead.
type ChatConfig struct {
	GroqAPIKey   string
	GroqModel    string
	GeminiAPIKey string
	GeminiModel  string
}

// BackupConfig holds S3-compatible storage settings for watchlist snapshot backups.
// Cloudflare R2 works by setting Endpoint to the account's R2 URL and Region to "auto".
type BackupConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether backups have enough configuration to run.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// DefaultNewsFeeds are used when NEWS_FEEDS is not set.
var DefaultNewsFeeds = []string{
	"https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms",
	"https://www.moneycontrol.com/rss/marketreports.xml",
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SHARESATHI_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("PORT", 8080),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		SnapshotFile:  getEnv("SNAPSHOT_FILE", ""),
		QuoteCacheTTL: getEnvAsDuration("QUOTE_CACHE_TTL", 5*time.Minute),
		NewsFeeds:     getEnvAsList("NEWS_FEEDS", DefaultNewsFeeds),
		Chat: ChatConfig{
			GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
			GroqModel:    getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Backup: &BackupConfig{
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	if c.QuoteCacheTTL <= 0 {
		return fmt.Errorf("QUOTE_CACHE_TTL must be positive, got %s", c.QuoteCacheTTL)
	}

	if c.Backup.Enabled() && (c.Backup.AccessKeyID == "") != (c.Backup.SecretAccessKey == "") {
		return fmt.Errorf("backup credentials incomplete: both access key id and secret are required")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if out := utils.ParseCSV(os.Getenv(key)); len(out) > 0 {
		return out
	}
	return defaultValue
}
