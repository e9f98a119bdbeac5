package dive

import (
	"fmt"
	"sort"
	"strings"
)

// MultipleActivitiesError reports a log file containing more than one
// independent dive. Merging is never attempted.
type MultipleActivitiesError struct {
	Path  string
	Count int
}

func (e *MultipleActivitiesError) Error() string {
	return fmt.Sprintf("dive log %s contains %d dives; only single-dive files are supported, export one dive from your log software", e.Path, e.Count)
}

// NoDataError reports a log file with no usable dive data.
type NoDataError struct {
	Path   string
	Reason string
}

func (e *NoDataError) Error() string {
	if e.Path == "" {
		return "no dive data found: " + e.Reason
	}
	return fmt.Sprintf("no dive data found in %s: %s", e.Path, e.Reason)
}

// UnsupportedFormatError reports a file whose extension matches no
// registered decoder.
type UnsupportedFormatError struct {
	Path      string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	exts := append([]string(nil), e.Supported...)
	sort.Strings(exts)
	return fmt.Sprintf("unsupported dive log format for %s (supported: %s)", e.Path, strings.Join(exts, ", "))
}
