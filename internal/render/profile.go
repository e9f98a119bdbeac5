package render

import (
	"fmt"
	"image"
	"math"

	"github.com/aquaframe/aquaframe/internal/dive"
	"github.com/aquaframe/aquaframe/internal/template"
	"github.com/aquaframe/aquaframe/internal/units"
)

// depthHeadroom pads the vertical range so the deepest point of the
// profile never touches the graph's bottom edge.
const depthHeadroom = 1.1

// GraphModel maps dive time and depth into graph pixel coordinates.
// Depth grows downward, matching screen space, so no inversion is
// needed. MaxDepth already includes the headroom padding and is in
// display units.
type GraphModel struct {
	X, Y          int
	Width, Height int
	Duration      int     // seconds covered by the horizontal axis
	MaxDepth      float64 // padded vertical range, display units
}

// TimeToX maps a second of dive time to a graph column.
func (m GraphModel) TimeToX(t int) int {
	if m.Duration <= 0 {
		return m.X
	}
	return m.X + int(float64(t)/float64(m.Duration)*float64(m.Width))
}

// DepthToY maps a display-unit depth to a graph row.
func (m GraphModel) DepthToY(depth float64) int {
	return m.Y + int(depth/m.MaxDepth*float64(m.Height))
}

// Profile renders the depth profile graph. Everything that does not
// move between frames (grid, axes, ceiling band, profile line, gas
// change markers) is rasterized once at construction; a frame is then
// a buffer copy plus one indicator dot.
type Profile struct {
	base   *image.RGBA
	model  GraphModel
	graph  *template.Graph
	sys    units.System
	offset int
}

// NewProfile pre-renders the static graph layers. duration is the time
// span of the horizontal axis (the resolved segment, or the full dive);
// offset shifts per-frame indicator lookups by the segment start.
func NewProfile(compiled *template.Compiled, tl *dive.Timeline, duration, offset int) (*Profile, error) {
	if compiled.Graph == nil {
		return nil, fmt.Errorf("template defines no graph")
	}
	if compiled.Background == nil {
		return nil, fmt.Errorf("compiled template has no background")
	}
	g := compiled.Graph
	sys := compiled.Units

	maxDepth := sys.FromMetric(tl.MaxDepth(), units.Depth)
	if maxDepth <= 0 {
		// Flat or surface-only dives still need a finite range.
		maxDepth = 1
	}
	model := GraphModel{
		X: g.X, Y: g.Y,
		Width: g.Width, Height: g.Height,
		Duration: duration,
		MaxDepth: maxDepth * depthHeadroom,
	}

	p := &Profile{
		base:   cloneRGBA(compiled.Background),
		model:  model,
		graph:  g,
		sys:    sys,
		offset: offset,
	}

	if g.ShowGrid {
		p.drawGrid()
	}
	if g.DepthAxis != nil {
		p.drawDepthAxis()
	}
	if g.TimeAxis != nil {
		p.drawTimeAxis()
	}
	if g.ShowCeiling {
		p.drawCeiling(tl)
	}
	p.drawLine(tl)
	if g.ShowGasMarks {
		p.drawGasMarks(tl)
	}
	return p, nil
}

// Size returns the frame dimensions.
func (p *Profile) Size() image.Point { return p.base.Bounds().Size() }

// Model exposes the coordinate mapping, mainly for tests.
func (p *Profile) Model() GraphModel { return p.model }

// Frame copies the static layers and stamps the position indicator at
// the sample for the given second of local time.
func (p *Profile) Frame(cur *dive.Cursor, second int) (*image.RGBA, error) {
	img := cloneRGBA(p.base)
	t := p.offset + second
	sample := cur.At(t)

	x := p.model.TimeToX(t)
	y := p.model.DepthToY(p.sys.FromMetric(sample.Depth, units.Depth))
	fillDisc(img, x, y, p.graph.IndicatorSize/2, p.graph.IndicatorColor)
	return img, nil
}

func (p *Profile) drawGrid() {
	g, m := p.graph, p.model
	for t := 0; t <= m.Duration; t += g.GridTimeInterval {
		x := m.TimeToX(t)
		fillRect(p.base, image.Rect(x, m.Y, x+g.GridThickness, m.Y+m.Height), g.GridColor)
	}
	for d := 0.0; d <= m.MaxDepth; d += g.GridDepthInterval {
		y := m.DepthToY(d)
		fillRect(p.base, image.Rect(m.X, y, m.X+m.Width, y+g.GridThickness), g.GridColor)
	}
}

const tickLength = 5

func (p *Profile) drawDepthAxis() {
	axis, m := p.graph.DepthAxis, p.model
	interval := axis.TickInterval
	if interval <= 0 {
		interval = 10
	}
	if axis.ShowTicks {
		for d := 0.0; d <= m.MaxDepth; d += interval {
			y := m.DepthToY(d)
			fillRect(p.base, image.Rect(m.X-tickLength, y, m.X, y+1), axis.TickColor)
			label := fmt.Sprintf("%d", int(math.Round(d)))
			w := template.MeasureText(axis.Face, label)
			h := template.FontHeight(axis.Face)
			template.DrawText(p.base, axis.Face, axis.FontColor, m.X-tickLength-w-4, y-h/2, label)
		}
	}
	if axis.Label != "" {
		h := template.FontHeight(axis.Face)
		template.DrawText(p.base, axis.Face, axis.FontColor, m.X, m.Y-h-4, axis.Label)
	}
}

func (p *Profile) drawTimeAxis() {
	axis, m := p.graph.TimeAxis, p.model
	interval := int(axis.TickInterval)
	if interval <= 0 {
		interval = 60
	}
	baseY := m.Y + m.Height
	if axis.ShowTicks {
		for t := 0; t <= m.Duration; t += interval {
			x := m.TimeToX(t)
			fillRect(p.base, image.Rect(x, baseY, x+1, baseY+tickLength), axis.TickColor)
			label := formatTick(t, axis.TickFormat)
			w := template.MeasureText(axis.Face, label)
			template.DrawText(p.base, axis.Face, axis.FontColor, x-w/2, baseY+tickLength+2, label)
		}
	}
	if axis.Label != "" {
		h := template.FontHeight(axis.Face)
		w := template.MeasureText(axis.Face, axis.Label)
		template.DrawText(p.base, axis.Face, axis.FontColor, m.X+(m.Width-w)/2, baseY+tickLength+h+4, axis.Label)
	}
}

func formatTick(seconds int, format string) string {
	switch format {
	case "mm":
		return fmt.Sprintf("%d", seconds/60)
	case "s", "ss":
		return fmt.Sprintf("%d", seconds)
	default:
		return FormatClock(seconds)
	}
}

// drawCeiling shades the region between the surface and the decompression
// ceiling. Consecutive ceiling points are interpolated per column; the
// translucent fill blends over grid and background.
func (p *Profile) drawCeiling(tl *dive.Timeline) {
	m := p.model
	type point struct {
		x int
		y int
	}
	var pts []point
	for _, s := range tl.Samples() {
		if s.StopDepth == nil {
			continue
		}
		d := p.sys.FromMetric(*s.StopDepth, units.Depth)
		pts = append(pts, point{x: m.TimeToX(s.Time), y: m.DepthToY(d)})
	}
	if len(pts) == 0 {
		return
	}
	if len(pts) == 1 {
		vline(p.base, pts[0].x, m.Y, pts[0].y, p.graph.CeilingColor)
		return
	}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if b.x < a.x {
			continue
		}
		for x := a.x; x <= b.x; x++ {
			y := a.y
			if b.x > a.x {
				y = a.y + (b.y-a.y)*(x-a.x)/(b.x-a.x)
			}
			vline(p.base, x, m.Y, y, p.graph.CeilingColor)
		}
	}
}

func (p *Profile) drawLine(tl *dive.Timeline) {
	g, m := p.graph, p.model
	samples := tl.Samples()
	if len(samples) == 0 {
		return
	}
	prevX := m.TimeToX(samples[0].Time)
	prevY := m.DepthToY(p.sys.FromMetric(samples[0].Depth, units.Depth))
	if len(samples) == 1 {
		fillDisc(p.base, prevX, prevY, g.LineThickness/2, g.LineColor)
		return
	}
	for _, s := range samples[1:] {
		x := m.TimeToX(s.Time)
		y := m.DepthToY(p.sys.FromMetric(s.Depth, units.Depth))
		strokeLine(p.base, prevX, prevY, x, y, g.LineThickness, g.LineColor)
		prevX, prevY = x, y
	}
}

func (p *Profile) drawGasMarks(tl *dive.Timeline) {
	g, m := p.graph, p.model
	for _, s := range tl.Samples() {
		if s.GasChange == nil {
			continue
		}
		x := m.TimeToX(s.Time)
		y := m.DepthToY(p.sys.FromMetric(s.Depth, units.Depth))
		fillDisc(p.base, x, y, g.GasMarkSize, g.GasMarkColor)
	}
}
