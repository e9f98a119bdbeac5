// Package app wires decoding, template compilation, segment
// resolution and frame rendering into one run.
package app

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/aquaframe/aquaframe/internal/clip"
	"github.com/aquaframe/aquaframe/internal/config"
	"github.com/aquaframe/aquaframe/internal/dive"
	"github.com/aquaframe/aquaframe/internal/render"
	"github.com/aquaframe/aquaframe/internal/segment"
	"github.com/aquaframe/aquaframe/internal/template"
	"github.com/aquaframe/aquaframe/internal/units"
)

// Run executes one render from a validated configuration.
func Run(ctx context.Context, baseLogger *slog.Logger, cfg config.Config) error {
	runID := uuid.NewString()
	logger := baseLogger.With("run_id", runID)
	appLogger := logger.With("component", "app")

	sys, ok := units.Parse(cfg.Units)
	if !ok {
		return fmt.Errorf("unknown unit system %q", cfg.Units)
	}

	if cfg.TestTemplate {
		return renderPreview(appLogger, cfg, sys)
	}

	tl, err := loadTimeline(cfg)
	if err != nil {
		return err
	}
	appLogger.Info("timeline loaded",
		"samples", tl.Len(),
		"duration_s", tl.Duration(),
		"max_depth_m", tl.MaxDepth(),
		"start", tl.Start())

	compiled, templatePath, err := compileTemplate(cfg, sys)
	if err != nil {
		return err
	}
	appLogger.Info("template compiled", "path", templatePath, "size", compiled.Size, "items", len(compiled.Items))

	seg, err := resolveSegment(logger, cfg, tl)
	if err != nil {
		return err
	}
	appLogger.Info("segment resolved", "start_s", seg.Start, "duration_s", seg.Duration, "samples", len(seg.Samples))

	var renderer render.Renderer
	if cfg.ProfileTemplate != "" {
		renderer, err = render.NewProfile(compiled, tl, tl.Duration(), seg.Start)
	} else {
		renderer, err = render.NewOverlay(compiled, seg.Start)
	}
	if err != nil {
		return fmt.Errorf("build renderer: %w", err)
	}

	sink, err := openSink(cfg, renderer)
	if err != nil {
		return err
	}

	runErr := render.Run(ctx, logger, renderer, tl, sink, render.Options{
		Duration: seg.Duration,
		FPS:      cfg.FPS,
		Workers:  cfg.Workers,
	})
	if closeErr := sink.Close(); closeErr != nil {
		if runErr == nil {
			return fmt.Errorf("finalize output: %w", closeErr)
		}
		appLogger.Warn("output close failed after render error", "err", closeErr)
	}
	if runErr != nil {
		return runErr
	}
	appLogger.Info("run complete", "output", cfg.Output)
	return nil
}

func loadTimeline(cfg config.Config) (*dive.Timeline, error) {
	tl, err := dive.DecodeFile(cfg.DiveLog)
	if err != nil {
		return nil, fmt.Errorf("decode dive log: %w", err)
	}
	return tl, nil
}

// renderPreview compiles the template against a synthetic demo dive and
// writes a single PNG so a template can be checked without a dive log.
// A mid-dive sample is used so deco and gas fields are populated.
func renderPreview(logger *slog.Logger, cfg config.Config, sys units.System) error {
	tl := render.DemoTimeline()
	compiled, templatePath, err := compileTemplate(cfg, sys)
	if err != nil {
		return err
	}

	var renderer render.Renderer
	if cfg.ProfileTemplate != "" {
		renderer, err = render.NewProfile(compiled, tl, tl.Duration(), 0)
	} else {
		renderer, err = render.NewOverlay(compiled, 0)
	}
	if err != nil {
		return fmt.Errorf("build renderer: %w", err)
	}

	second := tl.Duration() / 2
	img, err := renderer.Frame(tl.NewCursor(), second)
	if err != nil {
		return fmt.Errorf("render preview frame: %w", err)
	}

	out := cfg.Output
	if !strings.EqualFold(filepath.Ext(out), ".png") {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		out = filepath.Join(out, "test_template.png")
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	logger.Info("template preview written", "template", templatePath, "output", out, "sample_s", second)
	return nil
}

func compileTemplate(cfg config.Config, sys units.System) (*template.Compiled, string, error) {
	path := cfg.Template
	if path == "" {
		path = cfg.ProfileTemplate
	}
	desc, err := template.Load(path)
	if err != nil {
		return nil, path, err
	}
	compiled, err := template.Compile(desc, sys)
	if err != nil {
		return nil, path, fmt.Errorf("compile template %s: %w", path, err)
	}
	return compiled, path, nil
}

func resolveSegment(logger *slog.Logger, cfg config.Config, tl *dive.Timeline) (segment.Segment, error) {
	if cfg.Clip != "" {
		meta, err := clip.Extract(cfg.Clip)
		if err != nil {
			return segment.Segment{}, err
		}
		logger.Info("clip metadata",
			"component", "app",
			"clip", cfg.Clip,
			"created", meta.CreationTime,
			"duration", meta.Duration,
			"source", meta.Source)
		seg, _, err := segment.ResolveAuto(logger, tl, meta.CreationTime, meta.Duration)
		return seg, err
	}

	duration := cfg.Duration
	if duration == 0 {
		duration = tl.Duration() - cfg.Start
		if duration <= 0 {
			duration = 1 // start lies beyond the dive; the resolver reports it
		}
	}
	seg, _, err := segment.ResolveManual(logger, tl, cfg.Start, duration)
	return seg, err
}

func openSink(cfg config.Config, r render.Renderer) (render.Sink, error) {
	if cfg.VideoOutput() {
		sink, err := render.NewFFmpegSink(cfg.Output, r.Size(), cfg.FPS)
		if err != nil {
			return nil, fmt.Errorf("open video encoder: %w", err)
		}
		return sink, nil
	}
	sink, err := render.NewPNGDirSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	return sink, nil
}
