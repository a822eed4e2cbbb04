package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/cache"
	"github.com/specialistvlad/buildgrid/internal/cache/s3cache"
	"github.com/specialistvlad/buildgrid/internal/platform"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	TargetPaths []string // hcl files or directories
	// Workspace is the root that relative source locations and the build
	// directory are resolved against.
	Workspace string
	// BuildDir defaults to {Workspace}/build.
	BuildDir string
	Workers  int
	// Platform overrides the detected platform: "linux", "windows" or "macos".
	Platform string

	CacheMode string
	// CacheDir defaults to {Workspace}/.buildgrid/cache. Ignored when S3 is set.
	CacheDir string
	S3       s3cache.Config

	LogFormat  string
	LogLevel   string
	StatusPort int
}

// NewConfig validates cfg, fills in defaults and returns the result.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.TargetPaths) == 0 {
		return nil, errors.New("at least one target declaration path is required")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid workers %d: must be zero or positive", cfg.Workers)
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, fmt.Errorf("invalid status port %d", cfg.StatusPort)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	if cfg.CacheMode == "" {
		cfg.CacheMode = string(cache.ModeReadWrite)
	}
	if _, err := cache.ParseMode(cfg.CacheMode); err != nil {
		return nil, err
	}

	if cfg.Platform != "" {
		if _, err := platform.ForOS(cfg.Platform); err != nil {
			return nil, err
		}
	}

	if cfg.S3.Endpoint != "" || cfg.S3.Bucket != "" {
		if err := cfg.S3.Validate(); err != nil {
			return nil, err
		}
	}

	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}
	if cfg.BuildDir == "" {
		cfg.BuildDir = filepath.Join(cfg.Workspace, "build")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.Workspace, ".buildgrid", "cache")
	}

	return &cfg, nil
}

// Facts returns the platform the run is planned for.
func (c *Config) Facts() (platform.Facts, error) {
	if c.Platform == "" {
		return platform.Detect(), nil
	}
	return platform.ForOS(c.Platform)
}

// RemoteCache reports whether the S3 cache is configured.
func (c *Config) RemoteCache() bool {
	return c.S3.Endpoint != ""
}
