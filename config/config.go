// Package config loads environment variables and provides a typed Config used across the tool.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Render options arriving from the CLI are validated with (*Options).Validate.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Assets
	CacheDir     string
	Proxy        string
	FetchTimeout time.Duration

	// Observability
	MetricsAddr string
}

// Load reads environment variables and applies defaults. Missing optional
// variables disable features (e.g., no METRICS_ADDR means no metrics listener).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.CacheDir = os.Getenv("CHATVID_CACHE_DIR")
	if cfg.CacheDir == "" {
		cfg.CacheDir = "yt-chat-to-video_cache"
	}

	// CLI --proxy wins over the environment; this is only the fallback.
	cfg.Proxy = os.Getenv("HTTPS_PROXY")
	if cfg.Proxy == "" {
		cfg.Proxy = os.Getenv("HTTP_PROXY")
	}

	cfg.FetchTimeout = 15 * time.Second
	if v := os.Getenv("ASSET_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ASSET_FETCH_TIMEOUT: %w", err)
		}
		cfg.FetchTimeout = d
	}

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return cfg, nil
}

// Options is the render configuration assembled from CLI flags.
type Options struct {
	Input  string
	Output string

	Width     int
	Height    int
	FrameRate int
	Scale     int

	Background  string
	Transparent bool
	Padding     int

	StartSec float64
	EndSec   float64

	SkipAvatars bool
	SkipEmojis  bool
	NoClip      bool
	UseCache    bool

	Proxy         string
	FallbackGapMS int64
}

// Validate checks dimensions and frame rate and derives the output path when
// unset. It must be called before any processing; failures here are
// configuration errors.
func (o *Options) Validate() error {
	if o.Width < 2 {
		return fmt.Errorf("width must be greater than 2")
	}
	if o.Width%2 != 0 {
		return fmt.Errorf("width must be an even number")
	}
	if o.Width < 100 {
		return fmt.Errorf("width can't be less than 100px")
	}
	if o.Height < 32 {
		return fmt.Errorf("height can't be less than 32px")
	}
	if o.Height%2 != 0 {
		return fmt.Errorf("height must be an even number")
	}
	if o.FrameRate < 1 {
		return fmt.Errorf("frame rate can't be less than 1")
	}
	if o.Scale < 1 {
		return fmt.Errorf("scale can't be less than 1")
	}

	if o.Output == "" {
		if !strings.HasSuffix(o.Input, ".json") {
			return fmt.Errorf("input file must be a JSON file when no output is given")
		}
		ext := ".mp4"
		if o.Transparent {
			ext = ".webm"
		}
		o.Output = strings.TrimSuffix(o.Input, ".json") + ext
	}

	if o.Transparent && !strings.HasSuffix(o.Output, ".webm") {
		fixed := o.Output
		if dot := strings.LastIndex(fixed, "."); dot >= 0 {
			fixed = fixed[:dot]
		}
		fixed += ".webm"
		slog.Warn("transparent background requested, forcing .webm output", slog.String("from", o.Output), slog.String("to", fixed))
		o.Output = fixed
	}

	return nil
}
