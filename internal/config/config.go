// Package config centralizes how FleetReport reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration for the API server, the worker, and
// the CLI. Only the pieces a given binary uses need to be populated; the
// Require helpers check the rest at the call sites that depend on them.
type Config struct {
	Address     string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool

	TemplatesDir      string
	DefaultTemplateID string

	DriveServiceAccount string
	DrivePrivateKey     []byte
	DriveTokenURL       string
	DriveAPIBase        string
	DriveUploadBase     string
	DriveFolderID       string

	ReportURLColumn    string
	ReportFileIDColumn string

	LogLevel  string
	LogFormat string

	WorkerConcurrency int
	HTTPTimeout       time.Duration
}

const (
	defaultAddress      = ":8080"
	defaultRedisAddr    = "localhost:6379"
	defaultTemplatesDir = "templates"
	defaultTemplateID   = "default"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultAPIBase      = "https://www.googleapis.com"
	defaultUploadBase   = "https://www.googleapis.com/upload"
	defaultURLColumn    = "artifact_url"
	defaultFileIDColumn = "artifact_id"
	defaultConcurrency  = 4
	defaultHTTPTimeout  = 30 * time.Second
)

// Load reads configuration from environment variables falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Address:     readEnv("FLEETREPORT_ADDRESS", defaultAddress),
		DatabaseURL: readEnv("FLEETREPORT_DATABASE_URL", ""),

		RedisAddr:     readEnv("FLEETREPORT_REDIS_ADDR", defaultRedisAddr),
		RedisPassword: readEnv("FLEETREPORT_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("FLEETREPORT_REDIS_DB", 0),

		S3Endpoint:  readEnv("FLEETREPORT_S3_ENDPOINT", ""),
		S3AccessKey: readEnv("FLEETREPORT_S3_ACCESS_KEY", ""),
		S3SecretKey: readEnv("FLEETREPORT_S3_SECRET_KEY", ""),
		S3Region:    readEnv("FLEETREPORT_S3_REGION", "us-east-1"),
		S3UseSSL:    parseBool("FLEETREPORT_S3_USE_SSL", false),

		TemplatesDir:      readEnv("FLEETREPORT_TEMPLATES_DIR", defaultTemplatesDir),
		DefaultTemplateID: readEnv("FLEETREPORT_DEFAULT_TEMPLATE", defaultTemplateID),

		DriveServiceAccount: readEnv("FLEETREPORT_DRIVE_SA_EMAIL", ""),
		DrivePrivateKey:     parsePrivateKey("FLEETREPORT_DRIVE_PRIVATE_KEY"),
		DriveTokenURL:       readEnv("FLEETREPORT_DRIVE_TOKEN_URL", defaultTokenURL),
		DriveAPIBase:        readEnv("FLEETREPORT_DRIVE_API_BASE", defaultAPIBase),
		DriveUploadBase:     readEnv("FLEETREPORT_DRIVE_UPLOAD_BASE", defaultUploadBase),
		DriveFolderID:       readEnv("FLEETREPORT_DRIVE_FOLDER_ID", ""),

		ReportURLColumn:    readEnv("FLEETREPORT_REPORT_URL_COLUMN", defaultURLColumn),
		ReportFileIDColumn: readEnv("FLEETREPORT_REPORT_FILE_ID_COLUMN", defaultFileIDColumn),

		LogLevel:  readEnv("FLEETREPORT_LOG_LEVEL", "info"),
		LogFormat: readEnv("FLEETREPORT_LOG_FORMAT", "console"),

		WorkerConcurrency: parseInt("FLEETREPORT_WORKERS", defaultConcurrency),
		HTTPTimeout:       parseDuration("FLEETREPORT_HTTP_TIMEOUT", defaultHTTPTimeout),
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = defaultConcurrency
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	return cfg, nil
}

// RequireDatabase fails fast when a binary that needs PostgreSQL starts
// without a DSN.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("FLEETREPORT_DATABASE_URL is required")
	}
	return nil
}

// RequireDrive verifies the service-account credentials used by the publisher.
func (c *Config) RequireDrive() error {
	if c.DriveServiceAccount == "" || len(c.DrivePrivateKey) == 0 {
		return errors.New("FLEETREPORT_DRIVE_SA_EMAIL and FLEETREPORT_DRIVE_PRIVATE_KEY are required")
	}
	return nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

// parsePrivateKey reads a PEM block from the environment. Deployment tooling
// often escapes newlines inside env values, so "\n" sequences are unescaped.
func parsePrivateKey(key string) []byte {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	if strings.Contains(v, `\n`) {
		v = strings.ReplaceAll(v, `\n`, "\n")
	}
	return []byte(v)
}
