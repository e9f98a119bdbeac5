package render

import (
	"image"
	"image/color"
	"image/draw"
)

// fillRect composites a solid rectangle onto dst. Colors with alpha
// below 0xFF blend over the existing pixels.
func fillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

// fillDisc draws a filled circle of the given radius centered at (cx, cy).
// A radius of zero paints a single pixel.
func fillDisc(dst *image.RGBA, cx, cy, radius int, c color.RGBA) {
	if radius <= 0 {
		fillRect(dst, image.Rect(cx, cy, cx+1, cy+1), c)
		return
	}
	rr := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= rr {
				x, y := cx+dx, cy+dy
				if image.Pt(x, y).In(dst.Bounds()) {
					dst.SetRGBA(x, y, c)
				}
			}
		}
	}
}

// strokeLine draws a straight segment with the given thickness using
// Bresenham stepping, stamping a disc at each step so joints between
// consecutive segments stay filled.
func strokeLine(dst *image.RGBA, x0, y0, x1, y1, thickness int, c color.RGBA) {
	radius := thickness / 2
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		fillDisc(dst, x0, y0, radius, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// vline fills a 1px-wide vertical span from y0 to y1 inclusive,
// blending translucent colors over the background.
func vline(dst *image.RGBA, x, y0, y1 int, c color.RGBA) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	fillRect(dst, image.Rect(x, y0, x+1, y1+1), c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
