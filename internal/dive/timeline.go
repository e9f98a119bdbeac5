package dive

import (
	"fmt"
	"sort"
	"time"
)

// Timeline is the immutable, ordered sample sequence for exactly one
// dive, anchored by absolute wall-clock start and end times (UTC).
type Timeline struct {
	samples []Sample
	start   time.Time
	end     time.Time
}

// NewTimeline validates the sample sequence and constructs a Timeline.
// Sample times must be strictly increasing, the wall-clock range must
// be non-negative, and every sample must lie within it.
func NewTimeline(samples []Sample, start, end time.Time) (*Timeline, error) {
	if len(samples) == 0 {
		return nil, &NoDataError{Reason: "timeline has no samples"}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("timeline end %s before start %s", end.UTC(), start.UTC())
	}
	span := int(end.Sub(start).Seconds())
	prev := -1
	for i, s := range samples {
		if s.Time < 0 {
			return nil, fmt.Errorf("sample %d has negative time %d", i, s.Time)
		}
		if s.Time <= prev {
			return nil, fmt.Errorf("sample times not strictly increasing: sample %d time %d follows %d", i, s.Time, prev)
		}
		if s.Time > span {
			return nil, fmt.Errorf("sample %d time %d exceeds timeline span %ds", i, s.Time, span)
		}
		prev = s.Time
	}
	return &Timeline{samples: samples, start: start.UTC(), end: end.UTC()}, nil
}

// Samples returns the sample sequence. Callers must treat it as
// read-only.
func (t *Timeline) Samples() []Sample { return t.samples }

// Len returns the number of samples.
func (t *Timeline) Len() int { return len(t.samples) }

// Start returns the dive start wall-clock time (UTC).
func (t *Timeline) Start() time.Time { return t.start }

// End returns the dive end wall-clock time (UTC).
func (t *Timeline) End() time.Time { return t.end }

// Duration returns the dive duration in whole seconds.
func (t *Timeline) Duration() int { return t.samples[len(t.samples)-1].Time }

// MaxDepth returns the deepest sample depth in meters.
func (t *Timeline) MaxDepth() float64 {
	maxDepth := 0.0
	for _, s := range t.samples {
		if s.Depth > maxDepth {
			maxDepth = s.Depth
		}
	}
	return maxDepth
}

// Cursor resolves nearest-preceding samples for non-decreasing lookup
// times in amortized O(1). A lookup earlier than the previous one
// reseeks by binary search. Cursors are cheap; concurrent renderers
// each hold their own.
type Cursor struct {
	tl  *Timeline
	idx int
}

// NewCursor returns a cursor positioned at the first sample.
func (t *Timeline) NewCursor() *Cursor {
	return &Cursor{tl: t}
}

// At returns the most recent sample with Time <= t. Lookups before the
// first sample return the first sample; there is no interpolation.
func (c *Cursor) At(t int) Sample {
	samples := c.tl.samples
	if t < samples[c.idx].Time {
		// Time moved backwards; reseek from scratch.
		c.idx = sort.Search(len(samples), func(i int) bool {
			return samples[i].Time > t
		})
		if c.idx > 0 {
			c.idx--
		}
		return samples[c.idx]
	}
	for c.idx+1 < len(samples) && samples[c.idx+1].Time <= t {
		c.idx++
	}
	return samples[c.idx]
}
