package render

import (
	"context"
	"image"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aquaframe/aquaframe/internal/dive"
	"github.com/aquaframe/aquaframe/internal/template"
	"github.com/aquaframe/aquaframe/internal/units"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustTimeline(t *testing.T, samples []dive.Sample) *dive.Timeline {
	t.Helper()
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	last := samples[len(samples)-1].Time
	tl, err := dive.NewTimeline(samples, start, start.Add(time.Duration(last)*time.Second))
	if err != nil {
		t.Fatalf("NewTimeline: %v", err)
	}
	return tl
}

func mustCompile(t *testing.T, desc *template.Description, sys units.System) *template.Compiled {
	t.Helper()
	compiled, err := template.Compile(desc, sys)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return compiled
}

func pos(x, y int) *template.PositionSpec { return &template.PositionSpec{X: x, Y: y} }

func TestOverlayItemValues(t *testing.T) {
	t.Parallel()

	precision := 1
	desc := &template.Description{
		Width: 640, Height: 360,
		Items: []template.ItemSpec{
			{Field: "depth", DataPosition: pos(10, 10), Unit: "m", Precision: &precision},
			{Field: "time", DataPosition: pos(10, 40)},
			{Compute: "{fractionO2:02%}/{fractionHe:02%}", DataPosition: pos(10, 70)},
			{Field: "sac", DataPosition: pos(10, 100), Fallback: "--"},
		},
	}
	compiled := mustCompile(t, desc, units.Metric)

	o2 := 0.32
	he := 0.05
	tl := mustTimeline(t, []dive.Sample{
		{Time: 0, Depth: 0},
		{Time: 65, Depth: 18.25, FractionO2: &o2, FractionHe: &he},
	})

	overlay, err := NewOverlay(compiled, 0)
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	cur := tl.NewCursor()
	sample := cur.At(65)

	cases := []struct {
		item int
		want string
	}{
		{0, "18.2 m"},
		{1, "1:05"},
		{2, "32/05"},
		{3, "--"}, // sac never reported
	}
	for _, tc := range cases {
		got := overlay.itemValue(&compiled.Items[tc.item], sample)
		if got != tc.want {
			t.Errorf("item %d: got %q, want %q", tc.item, got, tc.want)
		}
	}
}

func TestOverlayImperialConversion(t *testing.T) {
	t.Parallel()

	precision := 0
	desc := &template.Description{
		Width: 640, Height: 360,
		Items: []template.ItemSpec{
			{Field: "depth", DataPosition: pos(10, 10), Unit: "m", Precision: &precision},
		},
	}
	compiled := mustCompile(t, desc, units.Imperial)

	tl := mustTimeline(t, []dive.Sample{{Time: 0, Depth: 10}})
	overlay, err := NewOverlay(compiled, 0)
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	got := overlay.itemValue(&compiled.Items[0], tl.NewCursor().At(0))
	if got != "33 ft" {
		t.Errorf("imperial depth: got %q, want %q", got, "33 ft")
	}
}

func TestOverlayOffsetShiftsLookups(t *testing.T) {
	t.Parallel()

	desc := &template.Description{
		Width: 640, Height: 360,
		Items: []template.ItemSpec{
			{Field: "time", DataPosition: pos(10, 10)},
		},
	}
	compiled := mustCompile(t, desc, units.Metric)

	tl := mustTimeline(t, []dive.Sample{
		{Time: 0, Depth: 0},
		{Time: 600, Depth: 12},
		{Time: 1200, Depth: 0},
	})
	overlay, err := NewOverlay(compiled, 600)
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	img, err := overlay.Frame(tl.NewCursor(), 0)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if img.Bounds().Size() != image.Pt(640, 360) {
		t.Errorf("frame size = %v, want 640x360", img.Bounds().Size())
	}
	// The rendered value itself is pixel data; check the lookup directly.
	got := overlay.itemValue(&compiled.Items[0], tl.NewCursor().At(600))
	if got != "10:00" {
		t.Errorf("time at offset: got %q, want %q", got, "10:00")
	}
}

func graphDescription() *template.Description {
	return &template.Description{
		Width: 1280, Height: 720,
		Graph: &template.GraphSpec{
			Position: pos(100, 100),
			Width:    1000, Height: 500,
			Line:      &template.LineSpec{Color: "#00AAFF", Thickness: 3},
			Indicator: &template.IndicatorSpec{Color: "#FF0000", Size: 12},
		},
	}
}

func TestProfileModelPadsDepthRange(t *testing.T) {
	t.Parallel()

	compiled := mustCompile(t, graphDescription(), units.Metric)
	tl := mustTimeline(t, []dive.Sample{
		{Time: 0, Depth: 0},
		{Time: 300, Depth: 20},
		{Time: 600, Depth: 0},
	})
	p, err := NewProfile(compiled, tl, tl.Duration(), 0)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	m := p.Model()
	if got, want := m.MaxDepth, 22.0; got != want {
		t.Errorf("MaxDepth = %v, want %v", got, want)
	}
	if got := m.DepthToY(0); got != 100 {
		t.Errorf("DepthToY(0) = %d, want 100", got)
	}
	if got := m.DepthToY(22); got != 600 {
		t.Errorf("DepthToY(22) = %d, want 600", got)
	}
	if got := m.TimeToX(0); got != 100 {
		t.Errorf("TimeToX(0) = %d, want 100", got)
	}
	if got := m.TimeToX(600); got != 1100 {
		t.Errorf("TimeToX(600) = %d, want 1100", got)
	}
	if got := m.TimeToX(300); got != 600 {
		t.Errorf("TimeToX(300) = %d, want 600", got)
	}
}

func TestProfileSurfaceOnlyDive(t *testing.T) {
	t.Parallel()

	compiled := mustCompile(t, graphDescription(), units.Metric)
	tl := mustTimeline(t, []dive.Sample{
		{Time: 0, Depth: 0},
		{Time: 60, Depth: 0},
	})
	p, err := NewProfile(compiled, tl, tl.Duration(), 0)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	if m := p.Model(); m.MaxDepth <= 0 {
		t.Errorf("MaxDepth = %v, want positive range for flat dives", m.MaxDepth)
	}
	if _, err := p.Frame(tl.NewCursor(), 0); err != nil {
		t.Fatalf("Frame: %v", err)
	}
}

func TestProfileSingleSample(t *testing.T) {
	t.Parallel()

	compiled := mustCompile(t, graphDescription(), units.Metric)
	tl := mustTimeline(t, []dive.Sample{{Time: 0, Depth: 10}})
	p, err := NewProfile(compiled, tl, 1, 0)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	if _, err := p.Frame(tl.NewCursor(), 0); err != nil {
		t.Fatalf("Frame: %v", err)
	}
}

func TestProfileIndicatorMoves(t *testing.T) {
	t.Parallel()

	compiled := mustCompile(t, graphDescription(), units.Metric)
	tl := mustTimeline(t, []dive.Sample{
		{Time: 0, Depth: 0},
		{Time: 300, Depth: 20},
		{Time: 600, Depth: 0},
	})
	p, err := NewProfile(compiled, tl, tl.Duration(), 0)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	cur := tl.NewCursor()
	a, err := p.Frame(cur, 0)
	if err != nil {
		t.Fatalf("Frame(0): %v", err)
	}
	b, err := p.Frame(cur, 300)
	if err != nil {
		t.Fatalf("Frame(300): %v", err)
	}

	m := p.Model()
	red := compiled.Graph.IndicatorColor
	if got := b.RGBAAt(m.TimeToX(300), m.DepthToY(20)); got != red {
		t.Errorf("indicator pixel at t=300: got %v, want %v", got, red)
	}
	if got := a.RGBAAt(m.TimeToX(300), m.DepthToY(20)); got == red {
		t.Errorf("frame at t=0 has indicator at the t=300 position")
	}
}

// stampRenderer writes the frame second into the first pixel so the
// collector order can be asserted.
type stampRenderer struct{}

func (stampRenderer) Size() image.Point { return image.Pt(4, 1) }

func (stampRenderer) Frame(cur *dive.Cursor, second int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 1))
	img.Pix[0] = uint8(second)
	return img, nil
}

type collectSink struct {
	frames []uint8
	closed bool
}

func (s *collectSink) WriteFrame(img *image.RGBA) error {
	s.frames = append(s.frames, img.Pix[0])
	return nil
}

func (s *collectSink) Close() error {
	s.closed = true
	return nil
}

func TestRunOrdersFramesAcrossWorkers(t *testing.T) {
	t.Parallel()

	tl := mustTimeline(t, []dive.Sample{{Time: 0, Depth: 0}, {Time: 100, Depth: 10}})
	sink := &collectSink{}
	opts := Options{Duration: 50, FPS: 3, Workers: 8}

	if err := Run(context.Background(), testLogger(), stampRenderer{}, tl, sink, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := len(sink.frames), opts.Duration*opts.FPS; got != want {
		t.Fatalf("frame count = %d, want %d", got, want)
	}
	for i, stamp := range sink.frames {
		if want := uint8(i / opts.FPS); stamp != want {
			t.Fatalf("frame %d: stamp %d, want %d (output out of order)", i, stamp, want)
		}
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	t.Parallel()

	tl := mustTimeline(t, []dive.Sample{{Time: 0, Depth: 0}, {Time: 10, Depth: 5}})
	if err := Run(context.Background(), testLogger(), stampRenderer{}, tl, &collectSink{}, Options{Duration: 0, FPS: 30}); err == nil {
		t.Error("expected error for zero duration")
	}
	if err := Run(context.Background(), testLogger(), stampRenderer{}, tl, &collectSink{}, Options{Duration: 10, FPS: 0}); err == nil {
		t.Error("expected error for zero fps")
	}
}

func TestDemoTimeline(t *testing.T) {
	t.Parallel()

	tl := DemoTimeline()
	if tl.Duration() != 30*60 {
		t.Errorf("duration = %d, want %d", tl.Duration(), 30*60)
	}
	if tl.MaxDepth() < 30 {
		t.Errorf("max depth = %v, want >= 30", tl.MaxDepth())
	}
	var gasChanges int
	for _, s := range tl.Samples() {
		if s.GasChange != nil {
			gasChanges++
		}
	}
	if gasChanges != 1 {
		t.Errorf("gas changes = %d, want 1", gasChanges)
	}
	// Every referenceable field is populated somewhere in the demo.
	s := tl.NewCursor().At(15 * 60)
	for _, field := range []string{"depth", "temperature", "ndl", "tts", "sac", "ppo2", "cns", "fractionO2"} {
		if _, ok := s.Field(field, -1); !ok {
			t.Errorf("demo sample missing field %q", field)
		}
	}
}

func TestFormatClock(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   int
		want string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{65, "1:05"},
		{3600, "60:00"},
	}
	for _, tc := range cases {
		if got := FormatClock(tc.in); got != tc.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
