package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/beucismis/backupill/internal/chunker"
	"github.com/beucismis/backupill/internal/document"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount         int
	MaxQueueSize        int
	MaxConcurrentRender int

	// Upload limits
	MaxUploadBytes int64

	// Encoding
	MaxEncodableSize int
	OutputFormat     string
	OutputDir        string

	// Scanning
	ScannerPath string
	ScanTimeout time.Duration

	// Job state
	JobTTL time.Duration

	LogLevel slog.Level
}

// Load reads .env files (if present) and then the environment. Variables
// already set in the environment win over .env entries.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("BACKUPILL_API_KEY"),

		WorkerCount:         envInt("WORKER_COUNT", 2),
		MaxQueueSize:        envInt("MAX_QUEUE_SIZE", 50),
		MaxConcurrentRender: envInt("MAX_CONCURRENT_RENDER", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 1048576), // 1MB is already ~125 pages

		MaxEncodableSize: envInt("MAX_ENCODABLE_SIZE", chunker.DefaultMaxEncodableSize),
		OutputFormat:     strings.ToLower(envOr("OUTPUT_FORMAT", "pdf")),
		OutputDir:        envOr("OUTPUT_DIR", os.TempDir()),

		ScannerPath: envOr("SCANNER_PATH", "zbarimg"),
		ScanTimeout: envDuration("SCAN_TIMEOUT", 2*time.Minute),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxConcurrentRender <= 0 {
		cfg.MaxConcurrentRender = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 1048576
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 2 * time.Minute
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks settings every entry point needs.
func (c Config) Validate() error {
	if c.MaxEncodableSize < chunker.MinCapacity(1) {
		return fmt.Errorf("MAX_ENCODABLE_SIZE must be at least %d, got %d", chunker.MinCapacity(1), c.MaxEncodableSize)
	}
	if !document.IsSupportedFormat(c.OutputFormat) {
		return fmt.Errorf("OUTPUT_FORMAT %q is not supported", c.OutputFormat)
	}
	return nil
}

// ValidateServer additionally checks settings only the HTTP service needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("BACKUPILL_API_KEY is required")
	}
	if info, err := os.Stat(c.OutputDir); err != nil || !info.IsDir() {
		return fmt.Errorf("OUTPUT_DIR %q is not a directory", c.OutputDir)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			return lvl
		}
	}
	return fallback
}
