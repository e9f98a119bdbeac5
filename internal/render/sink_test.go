package render

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestPNGDirSinkEncodesRepeatedFrameOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewPNGDirSink(dir)
	if err != nil {
		t.Fatalf("NewPNGDirSink: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	fillRect(img, img.Bounds(), color.RGBA{R: 255, A: 255})
	if err := sink.WriteFrame(img); err != nil {
		t.Fatalf("first write: %v", err)
	}

	// Repeats of the same frame reuse the encoded bytes: a mutation
	// between writes must not show up in the second file.
	img.SetRGBA(0, 0, color.RGBA{G: 255, A: 255})
	if err := sink.WriteFrame(img); err != nil {
		t.Fatalf("repeat write: %v", err)
	}

	other := image.NewRGBA(image.Rect(0, 0, 8, 8))
	fillRect(other, other.Bounds(), color.RGBA{B: 255, A: 255})
	if err := sink.WriteFrame(other); err != nil {
		t.Fatalf("third write: %v", err)
	}

	read := func(n string) []byte {
		t.Helper()
		b, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			t.Fatalf("read %s: %v", n, err)
		}
		return b
	}
	f0, f1, f2 := read("frame_000000.png"), read("frame_000001.png"), read("frame_000002.png")
	if !bytes.Equal(f0, f1) {
		t.Error("repeated frame was re-encoded instead of reusing the cached bytes")
	}
	if bytes.Equal(f0, f2) {
		t.Error("a new frame must produce a new encode")
	}
}
