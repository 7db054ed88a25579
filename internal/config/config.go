package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"time"
)

// Config carries runtime options for spartamon. File-backed thresholds live in Settings.
type Config struct {
	Path         string
	Interval     time.Duration // zero means Settings.RefreshRate
	JSON         bool
	JSONStream   bool
	EnableGPU    bool
	EnableBatt   bool
	Save         bool
	KeyByMessage bool
}

func Default() Config {
	return Config{
		Path:       DefaultPath(),
		Interval:   0,
		JSON:       false,
		JSONStream: false,
		EnableGPU:  true,
		EnableBatt: true,
	}
}

// DefaultPath is config.json under the user's config directory, or the working directory
// when that cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "config.json"
	}
	return filepath.Join(dir, "spartamon", "config.json")
}

// FromFlags parses flags and environment overrides. Environment values win over defaults
// but not over flags given explicitly.
func FromFlags(args []string) (Config, error) {
	cfg := Default()
	if v := os.Getenv("SPARTAMON_CONFIG"); v != "" {
		cfg.Path = v
	}
	if v := os.Getenv("SPARTAMON_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Interval = parsed
		} else if parsed, err2 := time.ParseDuration(v + "s"); err2 == nil {
			cfg.Interval = parsed
		}
	}
	if v := os.Getenv("SPARTAMON_GPU"); v == "0" {
		cfg.EnableGPU = false
	}
	if v := os.Getenv("SPARTAMON_BATT"); v == "0" {
		cfg.EnableBatt = false
	}

	fs := flag.NewFlagSet("spartamon", flag.ContinueOnError)
	fs.StringVar(&cfg.Path, "config", cfg.Path, "settings file (.json, .yaml or .yml)")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "refresh interval (default: refresh_rate from settings)")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "output one-shot JSON and exit")
	fs.BoolVar(&cfg.JSONStream, "json-stream", cfg.JSONStream, "stream NDJSON until interrupted")
	fs.BoolVar(&cfg.EnableGPU, "gpu", cfg.EnableGPU, "enable GPU sampling")
	fs.BoolVar(&cfg.EnableBatt, "battery", cfg.EnableBatt, "enable battery sampling")
	fs.BoolVar(&cfg.Save, "save", cfg.Save, "write the effective settings back to the settings file")
	fs.BoolVar(&cfg.KeyByMessage, "key-by-message", cfg.KeyByMessage, "debounce alerts by message text instead of metric")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.JSON && cfg.JSONStream {
		return cfg, errors.New("-json and -json-stream are mutually exclusive")
	}
	return cfg, nil
}

// TickInterval resolves the effective tick period.
func (c Config) TickInterval(s Settings) time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	return s.Interval()
}
