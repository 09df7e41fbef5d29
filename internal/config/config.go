package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendGCS    = "gcs"
)

var validBackends = []string{BackendMemory, BackendFile, BackendSQLite, BackendGCS}

type Config struct {
	// HTTP Server
	Port        string
	CORSOrigin  string
	MaxUploadMB int

	// Logging
	LogLevel  string
	LogFormat string

	// Persistence
	DataBackend string
	DataDir     string
	SQLitePath  string
	GCSBucket   string
	GCSPrefix   string

	// Uploaded documents: GCS when DocumentsBucket is set, else DocumentsDir.
	DocumentsBucket string
	DocumentsDir    string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Money
	VATRate  float64
	FeeRate  float64
	USDToAED float64

	// Zoho Books
	ZohoAccountsDomain string
	ZohoRatePerMinute  int

	// Notion
	NotionToken      string
	NotionDatabaseID string

	// BigQuery
	BigQueryProject       string
	BigQueryDataset       string
	GoogleCredentialsFile string

	// Jobs
	JobWorkers   int
	JobQueueSize int
	ReportTTL    time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "*"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 25),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		DataBackend: getEnv("DATA_BACKEND", BackendFile),
		DataDir:     getEnv("DATA_DIR", "./data"),
		SQLitePath:  getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		GCSBucket:   getEnv("GCS_BUCKET", ""),
		GCSPrefix:   getEnv("GCS_PREFIX", "ledger"),

		DocumentsBucket: getEnv("DOCUMENTS_BUCKET", ""),
		DocumentsDir:    getEnv("DOCUMENTS_DIR", "./data/uploads"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		VATRate:  getEnvFloat("VAT_RATE", 0.05),
		FeeRate:  getEnvFloat("FEE_RATE", 0.15),
		USDToAED: getEnvFloat("USD_TO_AED", 3.6725),

		ZohoAccountsDomain: getEnv("ZOHO_ACCOUNTS_DOMAIN", "https://accounts.zoho.com"),
		ZohoRatePerMinute:  getEnvInt("ZOHO_RATE_PER_MINUTE", 100),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),

		BigQueryProject:       getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset:       getEnv("BIGQUERY_DATASET", "agency_ledger"),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		JobWorkers:   getEnvInt("JOB_WORKERS", 2),
		JobQueueSize: getEnvInt("JOB_QUEUE_SIZE", 100),
		ReportTTL:    getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
	}
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, b := range validBackends {
		if c.DataBackend == b {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendFile:
		if c.DataDir == "" {
			errors = append(errors, "DATA_DIR cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLitePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			errors = append(errors, "GCS_BUCKET is required when using gcs backend")
		}
	}

	if c.DocumentsBucket == "" && c.DocumentsDir == "" {
		errors = append(errors, "either DOCUMENTS_BUCKET or DOCUMENTS_DIR must be set")
	}

	if c.VATRate < 0 || c.VATRate >= 1 {
		errors = append(errors, fmt.Sprintf("invalid VAT rate %v: must be in [0, 1)", c.VATRate))
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		errors = append(errors, fmt.Sprintf("invalid fee rate %v: must be in [0, 1)", c.FeeRate))
	}
	if c.USDToAED <= 0 {
		errors = append(errors, fmt.Sprintf("invalid USD to AED rate %v: must be positive", c.USDToAED))
	}

	if c.NotionToken != "" && c.NotionDatabaseID == "" {
		errors = append(errors, "NOTION_DATABASE_ID is required when NOTION_TOKEN is set")
	}

	if c.JobWorkers < 1 {
		errors = append(errors, fmt.Sprintf("invalid job workers %d: must be at least 1", c.JobWorkers))
	}
	if c.JobQueueSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid job queue size %d: must be at least 1", c.JobQueueSize))
	}

	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be console or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// GeminiEnabled reports whether document parsing and chat are available.
func (c *Config) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

// NotionEnabled reports whether contacts can be pushed to Notion.
func (c *Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDatabaseID != ""
}

// WarehouseEnabled reports whether BigQuery snapshots can be exported.
func (c *Config) WarehouseEnabled() bool {
	return c.BigQueryProject != "" && c.BigQueryDataset != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
