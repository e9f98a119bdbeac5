package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// PNGDirSink writes each frame as a numbered PNG into a directory.
// Useful for template debugging and for compositing pipelines that
// prefer image sequences over encoded video. The pipeline hands each
// rendered frame in FPS times; the sink encodes a frame once and reuses
// the bytes for its repeats.
type PNGDirSink struct {
	dir  string
	n    int
	last *image.RGBA
	enc  []byte
}

// NewPNGDirSink creates the output directory if needed.
func NewPNGDirSink(dir string) (*PNGDirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &PNGDirSink{dir: dir}, nil
}

func (s *PNGDirSink) WriteFrame(img *image.RGBA) error {
	if img != s.last {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode frame %d: %w", s.n, err)
		}
		s.last, s.enc = img, buf.Bytes()
	}
	name := filepath.Join(s.dir, fmt.Sprintf("frame_%06d.png", s.n))
	if err := os.WriteFile(name, s.enc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	s.n++
	return nil
}

func (s *PNGDirSink) Close() error { return nil }

// FFmpegSink pipes raw RGBA frames into an ffmpeg child process that
// encodes the output video. ffmpeg must be on PATH.
type FFmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	size   image.Point
	stderr bytes.Buffer
}

// NewFFmpegSink starts the encoder. size fixes the frame geometry for
// the whole run; every written frame must match it.
func NewFFmpegSink(outPath string, size image.Point, fps int) (*FFmpegSink, error) {
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", size.X, size.Y),
		"-framerate", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	s := &FFmpegSink{cmd: cmd, size: size}
	cmd.Stderr = &s.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	s.stdin = stdin
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return s, nil
}

func (s *FFmpegSink) WriteFrame(img *image.RGBA) error {
	if got := img.Bounds().Size(); got != s.size {
		return fmt.Errorf("frame size %v does not match encoder size %v", got, s.size)
	}
	rowBytes := 4 * s.size.X
	for y := 0; y < s.size.Y; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		if _, err := s.stdin.Write(row); err != nil {
			return fmt.Errorf("write to ffmpeg: %w", err)
		}
	}
	return nil
}

// Close flushes the pipe and waits for ffmpeg to finish encoding.
func (s *FFmpegSink) Close() error {
	if err := s.stdin.Close(); err != nil {
		return fmt.Errorf("close ffmpeg stdin: %w", err)
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w (stderr: %s)", err, s.stderr.String())
	}
	return nil
}
