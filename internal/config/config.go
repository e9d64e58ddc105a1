package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Sources; DocsDir defaults to the manifest directory
	DocsDir  string
	DocsGlob string

	// Auth
	APIKey string

	// CORS
	AllowedOrigins []string

	// Build pool
	WorkerCount  int
	MaxQueueSize int

	// Source limits
	MaxSourceBytes int64

	// Job state
	JobTTL time.Duration

	// Navigation
	ScrollThreshold  float64
	CollapseWidth    int
	BandTopMargin    float64
	BandBottomMargin float64

	// Rendering
	HighlightStyle string

	// PDF
	PDFFallbackPdftotext bool

	// Watcher
	WatchDebounce time.Duration

	LogLevel slog.Level
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocsDir:  os.Getenv("DOCS_DIR"),
		DocsGlob: envOr("DOCS_GLOB", "**/*.{md,markdown,html,htm,docx,pdf,txt,csv}"),

		APIKey: os.Getenv("DOCDECK_API_KEY"),

		AllowedOrigins: envList("ALLOWED_ORIGINS", []string{"*"}),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxSourceBytes: envInt64("MAX_SOURCE_BYTES", 20971520), // 20MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		ScrollThreshold:  envFloat("SCROLL_THRESHOLD", 400),
		CollapseWidth:    envInt("NAV_COLLAPSE_WIDTH", 900),
		BandTopMargin:    envFloat("BAND_TOP_MARGIN", 0.45),
		BandBottomMargin: envFloat("BAND_BOTTOM_MARGIN", 0.45),

		HighlightStyle: envOr("HIGHLIGHT_STYLE", "github"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		WatchDebounce: envDuration("WATCH_DEBOUNCE", 150*time.Millisecond),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = 20971520
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.WatchDebounce < 0 {
		cfg.WatchDebounce = 0
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ScrollThreshold < 0 {
		return fmt.Errorf("SCROLL_THRESHOLD must not be negative")
	}
	if c.CollapseWidth < 0 {
		return fmt.Errorf("NAV_COLLAPSE_WIDTH must not be negative")
	}
	if c.BandTopMargin < 0 || c.BandBottomMargin < 0 || c.BandTopMargin+c.BandBottomMargin >= 1 {
		return fmt.Errorf("BAND_TOP_MARGIN and BAND_BOTTOM_MARGIN must be non-negative and leave a band (got %g, %g)", c.BandTopMargin, c.BandBottomMargin)
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
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
