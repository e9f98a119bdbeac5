// Package segment resolves which window of a dive timeline a video
// clip covers, either from an explicit start and duration or by
// aligning the clip's creation timestamp with the dive start while
// scanning for a plausible timezone offset.
package segment

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aquaframe/aquaframe/internal/dive"
)

// Segment is a resolved render window on a timeline. Start and
// Duration are in seconds of dive time. Samples holds the window's
// readings plus one boundary sample on each side where available, so a
// window opening between two readings still carries its preceding
// state.
type Segment struct {
	Start    int
	Duration int
	Samples  []dive.Sample
}

// End returns the exclusive end of the window in dive time.
func (s Segment) End() int { return s.Start + s.Duration }

// ClampWarning records a requested window edge that was pulled inside
// the dive. Rendering proceeds with the clamped window.
type ClampWarning struct {
	Edge      string // "start" or "end"
	Requested int
	Clamped   int
}

func (w ClampWarning) String() string {
	return fmt.Sprintf("%s clamped from %ds to %ds", w.Edge, w.Requested, w.Clamped)
}

// OffsetCandidates returns the timezone offsets tried when aligning a
// clip timestamp against a dive: zero first, then growing pairs out to
// ten hours in both directions. Order matters; the first offset that
// lands the clip inside the dive wins.
func OffsetCandidates() []time.Duration {
	offsets := make([]time.Duration, 0, 21)
	offsets = append(offsets, 0)
	for h := 1; h <= 10; h++ {
		offsets = append(offsets, time.Duration(h)*time.Hour, -time.Duration(h)*time.Hour)
	}
	return offsets
}

// ResolveManual builds a segment from an explicit start offset and
// duration, both in seconds of dive time.
func ResolveManual(logger *slog.Logger, tl *dive.Timeline, start, duration int) (Segment, []ClampWarning, error) {
	return resolveWindow(logger, tl, start, duration)
}

// ResolveAuto aligns a clip's creation time and duration with the dive.
// Timezone offsets from OffsetCandidates are tried in order; the first
// offset that places the corrected creation time inside the dive's
// wall-clock span wins and anchors the window start.
func ResolveAuto(logger *slog.Logger, tl *dive.Timeline, clipCreated time.Time, clipDuration time.Duration) (Segment, []ClampWarning, error) {
	duration := int(clipDuration / time.Second)

	tested := make([]time.Duration, 0, 21)
	for _, offset := range OffsetCandidates() {
		tested = append(tested, offset)
		corrected := clipCreated.Add(offset)
		if corrected.Before(tl.Start()) || corrected.After(tl.End()) {
			continue
		}
		if offset != 0 {
			logger.Info("aligned clip with timezone offset",
				"component", "segment",
				"offset", offset.String(),
				"clip_created", clipCreated,
				"dive_start", tl.Start())
		}
		start := int(corrected.Sub(tl.Start()) / time.Second)
		return resolveWindow(logger, tl, start, duration)
	}

	return Segment{}, nil, &TimezoneError{
		ClipTime:      clipCreated,
		TimelineStart: tl.Start(),
		TimelineEnd:   tl.End(),
		TestedOffsets: tested,
	}
}

// resolveWindow validates and clamps a window against the dive span.
// A window entirely outside the dive is an error; a window that merely
// spills over an edge is clamped with a warning.
func resolveWindow(logger *slog.Logger, tl *dive.Timeline, start, duration int) (Segment, []ClampWarning, error) {
	if duration <= 0 {
		return Segment{}, nil, fmt.Errorf("segment duration must be positive (got %ds)", duration)
	}
	diveDuration := tl.Duration()
	end := start + duration

	if start >= diveDuration || end <= 0 {
		return Segment{}, nil, &OutOfBoundsError{
			Start:        start,
			End:          end,
			DiveDuration: diveDuration,
		}
	}

	var warnings []ClampWarning
	if start < 0 {
		warnings = append(warnings, ClampWarning{Edge: "start", Requested: start, Clamped: 0})
		start = 0
	}
	if end > diveDuration {
		warnings = append(warnings, ClampWarning{Edge: "end", Requested: end, Clamped: diveDuration})
		end = diveDuration
	}
	for _, w := range warnings {
		logger.Warn("segment clamped to dive span", "component", "segment", "detail", w.String())
	}

	seg := Segment{Start: start, Duration: end - start}
	seg.Samples = sliceWindow(tl, start, end)
	if len(seg.Samples) == 0 {
		return Segment{}, warnings, &NoSamplesError{Start: seg.Start, End: seg.End()}
	}
	return seg, warnings, nil
}

// sliceWindow returns the samples falling in [start, end), extended by
// one sample on each side where the dive continues past the window.
func sliceWindow(tl *dive.Timeline, start, end int) []dive.Sample {
	samples := tl.Samples()
	lo := sort.Search(len(samples), func(i int) bool { return samples[i].Time >= start })
	if lo > 0 {
		lo--
	}
	hi := sort.Search(len(samples), func(i int) bool { return samples[i].Time >= end })
	if hi < len(samples) {
		hi++
	}
	return samples[lo:hi]
}
