package segment

import (
	"fmt"
	"strings"
	"time"
)

// OutOfBoundsError reports a requested window that lies entirely
// outside the dive.
type OutOfBoundsError struct {
	Start        int
	End          int
	DiveDuration int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("segment [%ds, %ds) lies outside the dive (0s to %ds)",
		e.Start, e.End, e.DiveDuration)
}

// TimezoneError reports that no tested timezone offset placed the clip
// within the dive. It lists what was tried so the user can fall back to
// an explicit start offset.
type TimezoneError struct {
	ClipTime      time.Time
	TimelineStart time.Time
	TimelineEnd   time.Time
	TestedOffsets []time.Duration
}

func (e *TimezoneError) Error() string {
	offsets := make([]string, len(e.TestedOffsets))
	for i, o := range e.TestedOffsets {
		offsets[i] = o.String()
	}
	return fmt.Sprintf(
		"clip timestamp %s does not fall within the dive (%s to %s) under any tested timezone offset [%s]; pass an explicit start offset",
		e.ClipTime.Format(time.RFC3339),
		e.TimelineStart.Format(time.RFC3339),
		e.TimelineEnd.Format(time.RFC3339),
		strings.Join(offsets, ", "))
}

// NoSamplesError reports a window that no timeline sample covers.
type NoSamplesError struct {
	Start int
	End   int
}

func (e *NoSamplesError) Error() string {
	return fmt.Sprintf("no dive samples cover segment [%ds, %ds)", e.Start, e.End)
}
