package app

import (
	"context"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aquaframe/aquaframe/internal/config"
	"github.com/aquaframe/aquaframe/internal/render"
)

const previewTemplate = `width: 320
height: 180
items:
  - field: depth
    label: "DEPTH"
    label_position: {x: 10, y: 10}
    data_position: {x: 10, y: 40}
    unit: m
    precision: 1
  - field: time
    data_position: {x: 10, y: 80}
`

func TestRunTemplatePreview(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "overlay.yaml")
	if err := os.WriteFile(tmpl, []byte(previewTemplate), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	out := filepath.Join(dir, "frames")

	cfg := config.Config{
		Template:     tmpl,
		Output:       out,
		FPS:          2,
		Units:        "metric",
		TestTemplate: true,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := Run(context.Background(), logger, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("preview wrote %d files, want exactly 1", len(entries))
	}
	if entries[0].Name() != "test_template.png" {
		t.Errorf("preview file = %q, want test_template.png", entries[0].Name())
	}
	assertPNGSize(t, filepath.Join(out, entries[0].Name()), 320, 180)
}

func TestRunTemplatePreviewToFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "overlay.yaml")
	if err := os.WriteFile(tmpl, []byte(previewTemplate), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	out := filepath.Join(dir, "preview.png")

	cfg := config.Config{
		Template:     tmpl,
		Output:       out,
		FPS:          2,
		Units:        "metric",
		TestTemplate: true,
	}
	if err := Run(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertPNGSize(t, out, 320, 180)
}

func assertPNGSize(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	if got := img.Bounds().Size(); got.X != w || got.Y != h {
		t.Errorf("preview size %v, want %dx%d", got, w, h)
	}
}

func TestResolveSegmentDefaultsToWholeDive(t *testing.T) {
	t.Parallel()

	tl := render.DemoTimeline()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	seg, err := resolveSegment(logger, config.Config{}, tl)
	if err != nil {
		t.Fatalf("resolveSegment: %v", err)
	}
	if seg.Start != 0 || seg.Duration != tl.Duration() {
		t.Errorf("segment = {%d, %d}, want {0, %d}", seg.Start, seg.Duration, tl.Duration())
	}

	seg, err = resolveSegment(logger, config.Config{Start: 120}, tl)
	if err != nil {
		t.Fatalf("resolveSegment with start: %v", err)
	}
	if seg.Start != 120 || seg.Duration != tl.Duration()-120 {
		t.Errorf("segment = {%d, %d}, want {120, %d}", seg.Start, seg.Duration, tl.Duration()-120)
	}
}

func TestRunRejectsBrokenTemplate(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "overlay.yaml")
	if err := os.WriteFile(tmpl, []byte("width: 320\nheight: 180\nitems:\n  - field: warp_factor\n    data_position: {x: 10, y: 10}\n"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	cfg := config.Config{
		Template:     tmpl,
		Output:       filepath.Join(dir, "frames"),
		FPS:          1,
		Duration:     1,
		Units:        "metric",
		TestTemplate: true,
	}
	if err := Run(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), cfg); err == nil {
		t.Fatal("expected compile error for unknown field")
	}
}
