package dive

import (
	"testing"
	"time"
)

func mustTimeline(t *testing.T, samples []Sample) *Timeline {
	t.Helper()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Duration(samples[len(samples)-1].Time) * time.Second)
	tl, err := NewTimeline(samples, start, end)
	if err != nil {
		t.Fatalf("NewTimeline returned error: %v", err)
	}
	return tl
}

func TestNewTimelineRejectsUnorderedSamples(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := []Sample{{Time: 0}, {Time: 10}, {Time: 10}}
	if _, err := NewTimeline(samples, start, start.Add(time.Minute)); err == nil {
		t.Fatal("expected error for non-increasing sample times")
	}

	samples = []Sample{{Time: 5}, {Time: 3}}
	if _, err := NewTimeline(samples, start, start.Add(time.Minute)); err == nil {
		t.Fatal("expected error for decreasing sample times")
	}
}

func TestNewTimelineRejectsInvertedRange(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := NewTimeline([]Sample{{Time: 0}}, start, start.Add(-time.Second)); err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestNewTimelineRejectsSampleOutsideRange(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := NewTimeline([]Sample{{Time: 0}, {Time: 120}}, start, start.Add(time.Minute)); err == nil {
		t.Fatal("expected error for sample beyond timeline span")
	}
}

func TestCursorNearestPreceding(t *testing.T) {
	t.Parallel()

	tl := mustTimeline(t, []Sample{
		{Time: 0, Depth: 0},
		{Time: 10, Depth: 5},
		{Time: 20, Depth: 12},
		{Time: 30, Depth: 9},
	})
	cur := tl.NewCursor()

	cases := []struct {
		at   int
		want float64
	}{
		{0, 0},
		{9, 0},
		{10, 5},
		{15, 5},
		{20, 12},
		{29, 12},
		{30, 9},
		{500, 9},
	}
	for _, tc := range cases {
		if got := cur.At(tc.at).Depth; got != tc.want {
			t.Errorf("At(%d).Depth = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestCursorReseeksBackwards(t *testing.T) {
	t.Parallel()

	tl := mustTimeline(t, []Sample{
		{Time: 0, Depth: 0},
		{Time: 10, Depth: 5},
		{Time: 20, Depth: 12},
	})
	cur := tl.NewCursor()

	if got := cur.At(25).Depth; got != 12 {
		t.Fatalf("At(25).Depth = %v, want 12", got)
	}
	if got := cur.At(5).Depth; got != 0 {
		t.Fatalf("At(5) after At(25) = %v, want 0", got)
	}
	if got := cur.At(12).Depth; got != 5 {
		t.Fatalf("At(12).Depth = %v, want 5", got)
	}
}

func TestCursorBeforeFirstSample(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tl, err := NewTimeline([]Sample{{Time: 30, Depth: 7}, {Time: 60, Depth: 14}}, start, start.Add(time.Minute))
	if err != nil {
		t.Fatalf("NewTimeline returned error: %v", err)
	}
	if got := tl.NewCursor().At(0).Depth; got != 7 {
		t.Fatalf("At(0) before first sample = %v, want first sample depth 7", got)
	}
}

func TestMaxDepth(t *testing.T) {
	t.Parallel()

	tl := mustTimeline(t, []Sample{
		{Time: 0, Depth: 3},
		{Time: 10, Depth: 20},
		{Time: 20, Depth: 11},
	})
	if got := tl.MaxDepth(); got != 20 {
		t.Fatalf("MaxDepth = %v, want 20", got)
	}
}

func TestSampleFieldLookup(t *testing.T) {
	t.Parallel()

	s := Sample{
		Time:     90,
		Depth:    18.5,
		NDL:      intPtr(12),
		Pressure: []*float64{floatPtr(200), nil},
	}

	if v, ok := s.Field("depth", -1); !ok || v != 18.5 {
		t.Errorf("depth = %v, %v", v, ok)
	}
	if v, ok := s.Field("ndl", -1); !ok || v != 12 {
		t.Errorf("ndl = %v, %v", v, ok)
	}
	if _, ok := s.Field("temperature", -1); ok {
		t.Error("temperature should be absent")
	}
	if v, ok := s.Field("pressure", 0); !ok || v != 200 {
		t.Errorf("pressure[0] = %v, %v", v, ok)
	}
	if _, ok := s.Field("pressure", 1); ok {
		t.Error("pressure[1] should be absent")
	}
	if _, ok := s.Field("pressure", 5); ok {
		t.Error("pressure[5] out of range should be absent")
	}
	if _, ok := s.Field("bogus", -1); ok {
		t.Error("unknown field should be absent")
	}
}

func TestSampleCloneIsDeep(t *testing.T) {
	t.Parallel()

	s := Sample{Pressure: []*float64{floatPtr(200)}, NDL: intPtr(40)}
	c := s.Clone()
	*s.Pressure[0] = 100
	*s.NDL = 5
	if *c.Pressure[0] != 200 {
		t.Errorf("clone pressure mutated: %v", *c.Pressure[0])
	}
	if *c.NDL != 40 {
		t.Errorf("clone ndl mutated: %v", *c.NDL)
	}
}
