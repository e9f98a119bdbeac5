// Package config parses the command line into a validated run
// configuration. Ambient knobs (log level, units, fps, workers) can
// also come from AQUAFRAME_* environment variables; flags win over the
// environment, which wins over the built-in defaults.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is the validated runtime configuration for one render run.
type Config struct {
	// Inputs.
	DiveLog         string // dive computer export (.ssrf, .xml, .fit)
	Template        string // tabular overlay template
	ProfileTemplate string // depth profile template

	// Segment selection. Clip is mutually exclusive with Start/Duration.
	Clip     string
	Start    int // seconds into the dive
	Duration int // seconds of output; 0 renders the rest of the dive

	// Output.
	Output  string
	FPS     int
	Workers int

	Units        string // "metric" or "imperial"
	TestTemplate bool   // render demo data instead of a dive log
	LogLevel     slog.Level
}

// VideoOutput reports whether Output should be encoded as a video
// rather than written as a PNG sequence directory.
func (c Config) VideoOutput() bool {
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".mp4", ".mov", ".mkv", ".webm":
		return true
	}
	return false
}

// Parse reads flags from args (not including the program name),
// applying environment fallbacks and validating the result.
func Parse(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{
		FPS:      30,
		Units:    "metric",
		LogLevel: slog.LevelInfo,
	}

	if value := strings.TrimSpace(os.Getenv("AQUAFRAME_LOG_LEVEL")); value != "" {
		level, err := parseLogLevel(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse AQUAFRAME_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}
	if value := strings.TrimSpace(os.Getenv("AQUAFRAME_UNITS")); value != "" {
		cfg.Units = value
	}
	if value := strings.TrimSpace(os.Getenv("AQUAFRAME_FPS")); value != "" {
		fps, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse AQUAFRAME_FPS: %w", err)
		}
		cfg.FPS = fps
	}
	if value := strings.TrimSpace(os.Getenv("AQUAFRAME_WORKERS")); value != "" {
		workers, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse AQUAFRAME_WORKERS: %w", err)
		}
		cfg.Workers = workers
	}

	fs := flag.NewFlagSet("aquaframe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	logLevel := fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&cfg.DiveLog, "dive-log", "", "dive computer export (.ssrf, .xml or .fit)")
	fs.StringVar(&cfg.Template, "template", "", "tabular overlay template (yaml)")
	fs.StringVar(&cfg.ProfileTemplate, "profile-template", "", "depth profile template (yaml)")
	fs.StringVar(&cfg.Clip, "clip", "", "video clip to align the segment with")
	fs.IntVar(&cfg.Start, "start", 0, "segment start in seconds of dive time")
	fs.IntVar(&cfg.Duration, "duration", 0, "segment duration in seconds (0 = rest of the dive)")
	fs.StringVar(&cfg.Output, "output", "", "output video file or PNG frame directory")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "output frame rate")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "render workers (0 = all CPUs)")
	fs.StringVar(&cfg.Units, "units", cfg.Units, "display units: metric or imperial")
	fs.BoolVar(&cfg.TestTemplate, "test-template", false, "render synthetic demo data to preview a template")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			return Config{}, fmt.Errorf("parse -log-level: %w", err)
		}
		cfg.LogLevel = level
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Template == "" && c.ProfileTemplate == "" {
		return fmt.Errorf("one of -template or -profile-template is required")
	}
	if c.Template != "" && c.ProfileTemplate != "" {
		return fmt.Errorf("-template and -profile-template are mutually exclusive")
	}
	if c.Output == "" {
		return fmt.Errorf("-output is required")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("-fps must be > 0 (got %d)", c.FPS)
	}
	if c.Workers < 0 {
		return fmt.Errorf("-workers must be >= 0 (got %d)", c.Workers)
	}
	switch c.Units {
	case "metric", "imperial":
	default:
		return fmt.Errorf("-units must be metric or imperial (got %q)", c.Units)
	}

	if c.TestTemplate {
		if c.DiveLog != "" || c.Clip != "" {
			return fmt.Errorf("-test-template does not take -dive-log or -clip")
		}
		if c.VideoOutput() {
			return fmt.Errorf("-test-template writes a single PNG preview; -output must be a .png file or a directory")
		}
		return nil
	}

	if c.DiveLog == "" {
		return fmt.Errorf("-dive-log is required")
	}
	if c.Clip != "" {
		if c.Start != 0 || c.Duration != 0 {
			return fmt.Errorf("-clip is mutually exclusive with -start and -duration")
		}
		return nil
	}
	if c.Duration < 0 {
		return fmt.Errorf("-duration must be >= 0 (got %d)", c.Duration)
	}
	return nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", value)
	}
}
