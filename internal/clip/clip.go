// Package clip extracts the recording timestamp and duration from a
// video file's MP4 container so the render window can be aligned with
// the dive automatically.
package clip

import (
	"fmt"
	"os"
	"time"

	mp4 "github.com/abema/go-mp4"
)

// mp4Epoch is the zero point of MP4 creation timestamps.
var mp4Epoch = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

// Metadata describes when a clip was recorded and for how long. The
// segment resolver anchors the render window at CreationTime after
// correcting for timezone offset.
type Metadata struct {
	CreationTime time.Time
	Duration     time.Duration
	Source       string // "embedded" or "filesystem"
}

// Error wraps a clip that could not be inspected.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("inspect clip %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Extract reads the movie header of an MP4/MOV file. Cameras that do
// not set a creation time write the epoch zero value; those clips fall
// back to the file's modification time, which survives most copies.
func Extract(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	defer f.Close()

	boxes, err := mp4.ExtractBoxWithPayload(f, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("read movie header: %w", err)}
	}
	if len(boxes) == 0 {
		return nil, &Error{Path: path, Err: fmt.Errorf("no movie header box found")}
	}
	mvhd, ok := boxes[0].Payload.(*mp4.Mvhd)
	if !ok {
		return nil, &Error{Path: path, Err: fmt.Errorf("unexpected movie header payload %T", boxes[0].Payload)}
	}
	if mvhd.Timescale == 0 {
		return nil, &Error{Path: path, Err: fmt.Errorf("movie header has zero timescale")}
	}

	meta := &Metadata{
		Duration: time.Duration(mvhd.GetDuration()) * time.Second / time.Duration(mvhd.Timescale),
		Source:   "embedded",
	}

	if created := mvhd.GetCreationTime(); created > 0 {
		meta.CreationTime = mp4Epoch.Add(time.Duration(created) * time.Second)
		return meta, nil
	}

	info, err := f.Stat()
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("stat for timestamp fallback: %w", err)}
	}
	meta.CreationTime = info.ModTime().UTC()
	meta.Source = "filesystem"
	return meta, nil
}
