// Package config loads policyconf settings from POLICYCONF_* environment
// variables and the nearest .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/jellydator/validation"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "POLICYCONF_"

type Config struct {
	StorageURL string // POLICYCONF_STORAGE_URL (default file in StateDir)
	SchemaPath string // POLICYCONF_SCHEMA (optional, empty = built-in schema)
	FormPath   string // POLICYCONF_FORM (default form.json in StateDir)
	Remote     string // POLICYCONF_REMOTE (optional, URL of a pcm server)

	// Export destinations
	ExportDir        string // POLICYCONF_EXPORT_DIR (default ~/Downloads)
	ExportS3Bucket   string // POLICYCONF_EXPORT_S3_BUCKET (replaces ExportDir when set)
	ExportS3Prefix   string // POLICYCONF_EXPORT_S3_PREFIX
	ExportS3Region   string // POLICYCONF_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Endpoint string // POLICYCONF_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)

	HTTPAddr       string // POLICYCONF_HTTP_ADDR (default ":8080")
	GRPCAddr       string // POLICYCONF_GRPC_ADDR (optional, empty = no gRPC listener)
	AuthToken      string // POLICYCONF_AUTH_TOKEN (optional, empty = auth disabled)
	NATSURL        string // POLICYCONF_NATS_URL (optional, empty = no events)
	LogLevel       string // POLICYCONF_LOG_LEVEL (default "info")
	LogConsole     bool   // POLICYCONF_LOG_CONSOLE (default false)
	MetricsEnabled bool   // POLICYCONF_METRICS_ENABLED (default true)

	// Backup settings
	BackupInterval   time.Duration // POLICYCONF_BACKUP_INTERVAL (default 3m; 0 = disabled)
	BackupS3Bucket   string        // POLICYCONF_BACKUP_S3_BUCKET (enables S3 when set)
	BackupS3Key      string        // POLICYCONF_BACKUP_S3_KEY (default "policyconf/configurations.jsonl")
	BackupS3Region   string        // POLICYCONF_BACKUP_S3_REGION (default "us-east-1")
	BackupS3Endpoint string        // POLICYCONF_BACKUP_S3_ENDPOINT
	BackupGitRepo    string        // POLICYCONF_BACKUP_GIT_REPO (enables git when set; path to clone)
	BackupGitFile    string        // POLICYCONF_BACKUP_GIT_FILE (default "configurations.jsonl")
	BackupGitBranch  string        // POLICYCONF_BACKUP_GIT_BRANCH (default "main")

	// Event hooks
	HookCommand string        // POLICYCONF_HOOK_COMMAND (optional, run via sh -c)
	HookEvents  []string      // POLICYCONF_HOOK_EVENTS (comma-separated, default "applied")
	HookTimeout time.Duration // POLICYCONF_HOOK_TIMEOUT (default 30s)
	HookDir     string        // POLICYCONF_HOOK_DIR (working directory, optional)
}

// HookEventNames are the values accepted in POLICYCONF_HOOK_EVENTS.
var HookEventNames = []any{"saved", "removed", "applied", "exported", "imported"}

// Load reads the configuration after loading the nearest .env file.
func Load() (*Config, error) {
	loadDotEnv()

	stateDir := StateDir()
	c := &Config{
		StorageURL: get("STORAGE_URL", filepath.Join(stateDir, "storage.json")),
		SchemaPath: get("SCHEMA", ""),
		FormPath:   get("FORM", filepath.Join(stateDir, "form.json")),
		Remote:     get("REMOTE", ""),

		ExportDir:        get("EXPORT_DIR", defaultExportDir()),
		ExportS3Bucket:   get("EXPORT_S3_BUCKET", ""),
		ExportS3Prefix:   get("EXPORT_S3_PREFIX", ""),
		ExportS3Region:   get("EXPORT_S3_REGION", "us-east-1"),
		ExportS3Endpoint: get("EXPORT_S3_ENDPOINT", ""),

		HTTPAddr:       get("HTTP_ADDR", ":8080"),
		GRPCAddr:       get("GRPC_ADDR", ""),
		AuthToken:      get("AUTH_TOKEN", ""),
		NATSURL:        get("NATS_URL", ""),
		LogLevel:       get("LOG_LEVEL", "info"),
		LogConsole:     env.GetBool(Prefix+"LOG_CONSOLE", false),
		MetricsEnabled: env.GetBool(Prefix+"METRICS_ENABLED", true),

		BackupS3Bucket:   get("BACKUP_S3_BUCKET", ""),
		BackupS3Key:      get("BACKUP_S3_KEY", "policyconf/configurations.jsonl"),
		BackupS3Region:   get("BACKUP_S3_REGION", "us-east-1"),
		BackupS3Endpoint: get("BACKUP_S3_ENDPOINT", ""),
		BackupGitRepo:    get("BACKUP_GIT_REPO", ""),
		BackupGitFile:    get("BACKUP_GIT_FILE", "configurations.jsonl"),
		BackupGitBranch:  get("BACKUP_GIT_BRANCH", "main"),

		HookCommand: get("HOOK_COMMAND", ""),
		HookEvents:  splitList(get("HOOK_EVENTS", "applied")),
		HookDir:     get("HOOK_DIR", ""),
	}

	intervalStr := get("BACKUP_INTERVAL", "3m")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("%sBACKUP_INTERVAL: %w", Prefix, err)
	}
	c.BackupInterval = d

	hookTimeout, err := time.ParseDuration(get("HOOK_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("%sHOOK_TIMEOUT: %w", Prefix, err)
	}
	c.HookTimeout = hookTimeout

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StorageURL, validation.Required.Error(Prefix+"STORAGE_URL is required")),
		validation.Field(&c.FormPath, validation.Required.Error(Prefix+"FORM is required")),
		validation.Field(&c.HTTPAddr, validation.Required.Error(Prefix+"HTTP_ADDR is required")),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled").
			Error(Prefix+"LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic, disabled")),
		validation.Field(&c.BackupInterval, validation.Min(time.Duration(0)).Error(Prefix+"BACKUP_INTERVAL must not be negative")),
		validation.Field(&c.HookEvents, validation.Each(validation.In(HookEventNames...).
			Error(Prefix+"HOOK_EVENTS entries must be saved, removed, applied, exported or imported"))),
		validation.Field(&c.HookTimeout, validation.Min(time.Duration(0)).Error(Prefix+"HOOK_TIMEOUT must not be negative")),
		validation.Field(&c.ExportDir, validation.When(c.ExportS3Bucket == "", validation.Required.Error(Prefix+"EXPORT_DIR or EXPORT_S3_BUCKET is required"))),
	)
}

// BackupEnabled reports whether periodic backups have somewhere to go.
func (c *Config) BackupEnabled() bool {
	return c.BackupInterval > 0 && (c.BackupS3Bucket != "" || c.BackupGitRepo != "")
}

// StateDir is where policyconf keeps local state by default.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "policyconf")
	}
	return filepath.Join(home, ".local", "state", "policyconf")
}

func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Downloads")
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func get(key, fallback string) string {
	return env.GetString(Prefix+key, fallback)
}

// loadDotEnv searches for a .env file from the current directory up to the
// root and loads the first one found. Variables already set win.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
