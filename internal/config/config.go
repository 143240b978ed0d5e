// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/clarelia/finboard/internal/domain"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the reports database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Accounting source
	SourceBaseURL     string
	SourceAPIToken    string
	SourceRateLimitMs int // Minimum delay between source requests

	// Sync behaviour
	SyncPeriodDelayMs   int    // Pause between consecutive periods within a run
	SyncTrailingPeriods int    // Window size for the scheduled sync
	SyncCronSpec        string // robfig/cron spec for the scheduled sync

	// Classification
	TreasurySemantics     domain.TreasurySemantics
	PayrollTagCutoverYear int
	FieldedTeamLabel      string
	RulesFile             string // Optional YAML override for prefix rules
	RostersFile           string // Optional YAML roster file
	AccountSetsFile       string // Optional YAML payroll account sets file

	// Backup (disabled unless bucket is configured)
	Backup *BackupConfig
}

// BackupConfig holds S3 backup configuration
type BackupConfig struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	CronSpec  string
	Prefix    string
}

// Enabled reports whether backups should run.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FINBOARD_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	semantics, ok := domain.ParseTreasurySemantics(getEnv("TREASURY_SEMANTICS", string(domain.TreasuryDeltas)))
	if !ok {
		return nil, fmt.Errorf("invalid TREASURY_SEMANTICS %q (expected balance or delta)", os.Getenv("TREASURY_SEMANTICS"))
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("FINBOARD_PORT", 8090),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		SourceBaseURL:     getEnv("LEDGER_API_URL", ""),
		SourceAPIToken:    getEnv("LEDGER_API_TOKEN", ""),
		SourceRateLimitMs: getEnvAsInt("LEDGER_API_RATE_LIMIT_MS", 1100),

		SyncPeriodDelayMs:   getEnvAsInt("SYNC_PERIOD_DELAY_MS", 500),
		SyncTrailingPeriods: getEnvAsInt("SYNC_TRAILING_PERIODS", 3),
		SyncCronSpec:        getEnv("SYNC_CRON", "0 30 6 * * *"),

		TreasurySemantics:     semantics,
		PayrollTagCutoverYear: getEnvAsInt("PAYROLL_TAG_CUTOVER_YEAR", 2023),
		FieldedTeamLabel:      getEnv("FIELDED_TEAM_LABEL", "Fielded"),
		RulesFile:             getEnv("CLASSIFICATION_RULES_FILE", ""),
		RostersFile:           getEnv("ROSTERS_FILE", ""),
		AccountSetsFile:       getEnv("PAYROLL_ACCOUNTS_FILE", ""),
	}

	if bucket := getEnv("BACKUP_S3_BUCKET", ""); bucket != "" {
		cfg.Backup = &BackupConfig{
			Bucket:    bucket,
			Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:    getEnv("BACKUP_S3_REGION", "auto"),
			AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
			CronSpec:  getEnv("BACKUP_CRON", "0 0 3 * * *"),
			Prefix:    getEnv("BACKUP_S3_PREFIX", "finboard"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SyncTrailingPeriods < 1 {
		return fmt.Errorf("SYNC_TRAILING_PERIODS must be at least 1, got %d", c.SyncTrailingPeriods)
	}
	if c.PayrollTagCutoverYear < 2000 || c.PayrollTagCutoverYear > 2100 {
		return fmt.Errorf("PAYROLL_TAG_CUTOVER_YEAR %d is out of range", c.PayrollTagCutoverYear)
	}
	// Source credentials are optional at load time so reporting works
	// offline; the sync orchestrator enforces them before a run.
	return nil
}

// ReportsDBPath returns the path of the reports database file.
func (c *Config) ReportsDBPath() string {
	return filepath.Join(c.DataDir, "reports.db")
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
