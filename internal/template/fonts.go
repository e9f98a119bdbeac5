package template

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type faceKey struct {
	path string
	size int
}

// fontCache parses each font file once per compilation and caches
// faces by (path, size). The empty path resolves to the bundled Go
// Regular face so templates render without any font files installed.
type fontCache struct {
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
}

func newFontCache() *fontCache {
	return &fontCache{
		fonts: make(map[string]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

func (c *fontCache) face(path string, size int) (font.Face, error) {
	if size <= 0 {
		size = 22
	}
	key := faceKey{path: path, size: size}
	if face, ok := c.faces[key]; ok {
		return face, nil
	}

	fnt, ok := c.fonts[path]
	if !ok {
		data := goregular.TTF
		if path != "" {
			var err error
			data, err = os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read font %s: %w", path, err)
			}
		}
		var err error
		fnt, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", path, err)
		}
		c.fonts[path] = fnt
	}

	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build face %s@%d: %w", path, size, err)
	}
	c.faces[key] = face
	return face, nil
}

// DrawText draws s onto dst with (x, y) as the glyph box top-left, the
// anchoring templates use for positions.
func DrawText(dst *image.RGBA, face font.Face, col color.Color, x, y int, s string) {
	metrics := face.Metrics()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y).Add(fixed.Point26_6{Y: metrics.Ascent}),
	}
	d.DrawString(s)
}

// MeasureText returns the advance width of s in whole pixels.
func MeasureText(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// FontHeight returns the face's ascent+descent in whole pixels.
func FontHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}
