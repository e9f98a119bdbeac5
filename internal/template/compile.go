package template

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // background image decoding
	_ "image/png"
	"os"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/aquaframe/aquaframe/internal/dive"
	"github.com/aquaframe/aquaframe/internal/fieldexpr"
	"github.com/aquaframe/aquaframe/internal/units"
)

// Error is the batched template validation failure: one compile pass
// collects every problem so a template can be fixed in one edit.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("template has %d problem(s):\n - %s",
		len(e.Problems), strings.Join(e.Problems, "\n - "))
}

// DataItem is a compiled dynamic item: resolved font, color and value
// source, ready for per-frame evaluation.
type DataItem struct {
	Name string // for diagnostics: label, field or expression

	Field string // direct field reference; empty when Expr is set
	Index int    // -1 unless the field is indexed
	Expr  *fieldexpr.Expr

	X, Y     int
	Face     font.Face
	Color    color.RGBA
	Fallback string

	Precision *int

	Quantity    units.Quantity
	HasQuantity bool
	UnitLabel   string
}

// Axis is a compiled axis decoration config.
type Axis struct {
	Label         string
	ShowTicks     bool
	TickInterval  float64
	TickColor     color.RGBA
	TickFormat    string
	LabelPosition string
	Face          font.Face
	FontSize      int
	FontColor     color.RGBA
}

// Graph is the compiled profile graph configuration: geometry and
// resolved styles. The static profile layer itself is pre-rendered by
// the renderer, which needs the timeline.
type Graph struct {
	X, Y          int
	Width, Height int

	LineColor     color.RGBA
	LineThickness int

	IndicatorColor color.RGBA
	IndicatorSize  int

	ShowGrid          bool
	GridTimeInterval  int
	GridDepthInterval float64
	GridColor         color.RGBA
	GridThickness     int

	DepthAxis *Axis
	TimeAxis  *Axis

	ShowCeiling  bool
	CeilingColor color.RGBA

	ShowGasMarks bool
	GasMarkColor color.RGBA
	GasMarkSize  int
}

// Compiled is the immutable template artifact shared by all frame
// renderers of a run.
type Compiled struct {
	Size       image.Point
	Units      units.System
	Background *image.RGBA
	Items      []DataItem
	Graph      *Graph
}

const (
	defaultChroma     = "#00FF00"
	defaultBackground = "#000000"
	defaultFallback   = "N/A"
)

// Compile validates the description and builds the rendering artifact.
// Validation is batched: the returned *Error lists every missing
// required field, invalid color, invalid position and malformed
// expression found.
func Compile(desc *Description, sys units.System) (*Compiled, error) {
	v := &validator{}
	fonts := newFontCache()

	if desc.Width <= 0 {
		v.addf("frame: width is required and must be positive (got %d)", desc.Width)
	}
	if desc.Height <= 0 {
		v.addf("frame: height is required and must be positive (got %d)", desc.Height)
	}

	compiled := &Compiled{
		Size:  image.Pt(desc.Width, desc.Height),
		Units: sys,
	}

	bg := v.color("background_color", orDefault(desc.BackgroundColor, defaultBackground))
	chroma := v.color("chroma_color", orDefault(desc.ChromaColor, defaultChroma))

	defaultLabelFace := v.face(fonts, "default_label_font", desc.DefaultLabelFont.Path, desc.DefaultLabelFont.Size)
	defaultDataFace := v.face(fonts, "default_data_font", desc.DefaultDataFont.Path, desc.DefaultDataFont.Size)
	defaultLabelColor := v.color("default_label_font.color", orDefault(desc.DefaultLabelFont.Color, "#FFFFFF"))
	defaultDataColor := v.color("default_data_font.color", orDefault(desc.DefaultDataFont.Color, "#FFFFFF"))

	if desc.Width > 0 && desc.Height > 0 {
		compiled.Background = v.background(desc, compiled.Size, bg, chroma)
	}

	for i, item := range desc.Items {
		itemName := itemName(i, item)
		switch orDefault(item.Type, "data") {
		case "text":
			v.compileTextItem(compiled, fonts, itemName, item, defaultLabelFace, defaultLabelColor, desc)
		case "data":
			if di, ok := v.compileDataItem(fonts, itemName, item, defaultLabelFace, defaultLabelColor, defaultDataFace, defaultDataColor, desc, compiled, sys); ok {
				compiled.Items = append(compiled.Items, di)
			}
		default:
			v.addf("%s: unknown item type %q", itemName, item.Type)
		}
	}

	if desc.Graph != nil {
		compiled.Graph = v.compileGraph(fonts, desc.Graph, desc)
	}

	if len(v.problems) > 0 {
		return nil, &Error{Problems: v.problems}
	}
	return compiled, nil
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) color(name, value string) color.RGBA {
	c, err := parseHexColor(value)
	if err != nil {
		v.addf("%s: %v", name, err)
	}
	return c
}

func (v *validator) face(fonts *fontCache, name, path string, size int) font.Face {
	face, err := fonts.face(path, size)
	if err != nil {
		v.addf("%s: %v", name, err)
		face, _ = fonts.face("", size)
	}
	return face
}

// background rasterizes the static base layer: solid color, or a
// letterboxed image over the chroma key.
func (v *validator) background(desc *Description, size image.Point, bg, chroma color.RGBA) *image.RGBA {
	base := image.NewRGBA(image.Rectangle{Max: size})
	if desc.BackgroundImage == "" {
		draw.Draw(base, base.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
		return base
	}

	draw.Draw(base, base.Bounds(), image.NewUniform(chroma), image.Point{}, draw.Src)
	f, err := os.Open(desc.BackgroundImage)
	if err != nil {
		v.addf("background_image: %v", err)
		return base
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		v.addf("background_image %s: %v", desc.BackgroundImage, err)
		return base
	}

	dst := letterbox(img.Bounds().Size(), size)
	xdraw.CatmullRom.Scale(base, dst, img, img.Bounds(), xdraw.Over, nil)
	return base
}

// letterbox fits src into frame preserving aspect ratio, centered.
func letterbox(src, frame image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return image.Rectangle{Max: frame}
	}
	srcRatio := float64(src.X) / float64(src.Y)
	frameRatio := float64(frame.X) / float64(frame.Y)
	w, h := frame.X, frame.Y
	if srcRatio > frameRatio {
		h = int(float64(frame.X) / srcRatio)
	} else if srcRatio < frameRatio {
		w = int(float64(frame.Y) * srcRatio)
	}
	x0 := (frame.X - w) / 2
	y0 := (frame.Y - h) / 2
	return image.Rect(x0, y0, x0+w, y0+h)
}

func (v *validator) position(name string, pos *PositionSpec, size image.Point) (int, int, bool) {
	if pos == nil {
		v.addf("%s: position is required", name)
		return 0, 0, false
	}
	if pos.X < 0 || pos.Y < 0 || (size.X > 0 && pos.X >= size.X) || (size.Y > 0 && pos.Y >= size.Y) {
		v.addf("%s: position (%d, %d) outside frame %dx%d", name, pos.X, pos.Y, size.X, size.Y)
		return 0, 0, false
	}
	return pos.X, pos.Y, true
}

func (v *validator) compileTextItem(compiled *Compiled, fonts *fontCache, name string, item ItemSpec, defaultFace font.Face, defaultColor color.RGBA, desc *Description) {
	if item.Text == "" {
		v.addf("%s: text item requires text", name)
	}
	x, y, ok := v.position(name, item.Position, compiled.Size)

	face := defaultFace
	col := defaultColor
	if item.Font != nil {
		face = v.face(fonts, name+".font", orDefault(item.Font.Path, desc.DefaultLabelFont.Path), itemFontSize(item.Font, desc.DefaultLabelFont))
		if item.Font.Color != "" {
			col = v.color(name+".font.color", item.Font.Color)
		}
	}

	if ok && item.Text != "" && compiled.Background != nil && face != nil {
		DrawText(compiled.Background, face, col, x, y, item.Text)
	}
}

func (v *validator) compileDataItem(fonts *fontCache, name string, item ItemSpec, defaultLabelFace font.Face, defaultLabelColor color.RGBA, defaultDataFace font.Face, defaultDataColor color.RGBA, desc *Description, compiled *Compiled, sys units.System) (DataItem, bool) {
	before := len(v.problems)

	if item.Field == "" && item.Compute == "" {
		v.addf("%s: data item requires field or compute", name)
	}
	if item.Field != "" && item.Compute != "" {
		v.addf("%s: field and compute are mutually exclusive", name)
	}

	di := DataItem{
		Name:     name,
		Index:    -1,
		Fallback: orDefault(item.Fallback, defaultFallback),
	}

	if item.Compute != "" {
		expr, err := fieldexpr.Compile(item.Compute)
		if err != nil {
			v.addf("%s: %v", name, err)
		}
		di.Expr = expr
	} else if item.Field != "" {
		fieldName, index, err := parseFieldRef(item.Field)
		if err != nil {
			v.addf("%s: %v", name, err)
		} else if !dive.KnownField(fieldName) {
			v.addf("%s: unknown field %q", name, fieldName)
		} else {
			di.Field = fieldName
			di.Index = index
			if q, ok := units.QuantityForField(fieldName); ok {
				di.Quantity = q
				di.HasQuantity = true
				if strings.TrimSpace(item.Unit) != "" {
					di.UnitLabel = sys.Label(q)
				}
			} else {
				di.UnitLabel = item.Unit
			}
		}
	}

	// Static label, drawn onto the background now.
	if item.Label != "" {
		face := defaultLabelFace
		col := defaultLabelColor
		if item.LabelFont != nil {
			face = v.face(fonts, name+".label_font", orDefault(item.LabelFont.Path, desc.DefaultLabelFont.Path), itemFontSize(item.LabelFont, desc.DefaultLabelFont))
			if item.LabelFont.Color != "" {
				col = v.color(name+".label_font.color", item.LabelFont.Color)
			}
		}
		if x, y, ok := v.position(name+".label_position", item.LabelPosition, compiled.Size); ok && compiled.Background != nil && face != nil {
			DrawText(compiled.Background, face, col, x, y, item.Label)
		}
	}

	di.Face = defaultDataFace
	di.Color = defaultDataColor
	if item.DataFont != nil {
		di.Face = v.face(fonts, name+".data_font", orDefault(item.DataFont.Path, desc.DefaultDataFont.Path), itemFontSize(item.DataFont, desc.DefaultDataFont))
		if item.DataFont.Color != "" {
			di.Color = v.color(name+".data_font.color", item.DataFont.Color)
		}
	}
	di.Precision = item.Precision

	if x, y, ok := v.position(name+".data_position", item.DataPosition, compiled.Size); ok {
		di.X, di.Y = x, y
	}

	return di, len(v.problems) == before
}

func (v *validator) compileGraph(fonts *fontCache, g *GraphSpec, desc *Description) *Graph {
	out := &Graph{}

	if g.Position == nil {
		v.addf("graph: position is required")
	} else {
		out.X, out.Y = g.Position.X, g.Position.Y
	}
	if g.Width <= 0 {
		v.addf("graph: width is required and must be positive (got %d)", g.Width)
	}
	if g.Height <= 0 {
		v.addf("graph: height is required and must be positive (got %d)", g.Height)
	}
	out.Width, out.Height = g.Width, g.Height

	if g.Line == nil {
		v.addf("graph: line is required")
		out.LineColor = v.color("graph.line.color", "#00AAFF")
		out.LineThickness = 3
	} else {
		if g.Line.Thickness < 0 {
			v.addf("graph.line.thickness must be positive (got %d)", g.Line.Thickness)
		}
		out.LineColor = v.color("graph.line.color", orDefault(g.Line.Color, "#00AAFF"))
		out.LineThickness = orDefaultInt(g.Line.Thickness, 3)
	}

	if g.Indicator == nil {
		v.addf("graph: indicator is required")
		out.IndicatorColor = v.color("graph.indicator.color", "#FF0000")
		out.IndicatorSize = 12
	} else {
		if g.Indicator.Size < 0 {
			v.addf("graph.indicator.size must be positive (got %d)", g.Indicator.Size)
		}
		out.IndicatorColor = v.color("graph.indicator.color", orDefault(g.Indicator.Color, "#FF0000"))
		out.IndicatorSize = orDefaultInt(g.Indicator.Size, 12)
	}

	if g.Axes != nil {
		if g.Axes.GridInterval.Time < 0 {
			v.addf("graph.axes.grid_interval.time must be positive (got %d)", g.Axes.GridInterval.Time)
		}
		if g.Axes.GridInterval.Depth < 0 {
			v.addf("graph.axes.grid_interval.depth must be positive (got %g)", g.Axes.GridInterval.Depth)
		}
		if g.Axes.GridThickness < 0 {
			v.addf("graph.axes.grid_thickness must be positive (got %d)", g.Axes.GridThickness)
		}
		out.ShowGrid = g.Axes.ShowGrid
		out.GridTimeInterval = orDefaultInt(g.Axes.GridInterval.Time, 60)
		out.GridDepthInterval = g.Axes.GridInterval.Depth
		if out.GridDepthInterval == 0 {
			out.GridDepthInterval = 10
		}
		out.GridColor = v.color("graph.axes.grid_color", orDefault(g.Axes.GridColor, "#444444"))
		out.GridThickness = orDefaultInt(g.Axes.GridThickness, 1)
		out.DepthAxis = v.compileAxis(fonts, "graph.axes.depth_axis", g.Axes.DepthAxis, "left", desc)
		out.TimeAxis = v.compileAxis(fonts, "graph.axes.time_axis", g.Axes.TimeAxis, "bottom", desc)
	}

	if g.Ceiling != nil {
		base := v.color("graph.ceiling.color", orDefault(g.Ceiling.Color, "#FF4444"))
		opacity := g.Ceiling.Opacity
		if opacity == 0 {
			opacity = 0.35
		}
		out.CeilingColor = withAlpha(base, opacity)
		out.ShowCeiling = true
	}

	if g.GasMarks != nil {
		if g.GasMarks.Size < 0 {
			v.addf("graph.gas_changes.size must be positive (got %d)", g.GasMarks.Size)
		}
		out.GasMarkColor = v.color("graph.gas_changes.color", orDefault(g.GasMarks.Color, "#FFD700"))
		out.GasMarkSize = orDefaultInt(g.GasMarks.Size, 5)
		out.ShowGasMarks = true
	}

	return out
}

func (v *validator) compileAxis(fonts *fontCache, name string, spec *AxisSpec, defaultPosition string, desc *Description) *Axis {
	if spec == nil {
		return nil
	}
	if spec.TickInterval < 0 {
		v.addf("%s.tick_interval must be positive (got %g)", name, spec.TickInterval)
	}
	axis := &Axis{
		Label:         spec.Label,
		ShowTicks:     spec.ShowTicks,
		TickInterval:  spec.TickInterval,
		TickFormat:    orDefault(spec.TickFormat, "mm:ss"),
		LabelPosition: orDefault(spec.LabelPosition, defaultPosition),
	}
	axis.TickColor = v.color(name+".tick_color", orDefault(spec.TickColor, "#FFFFFF"))

	fontPath := desc.DefaultLabelFont.Path
	fontSize := 14
	fontColor := "#FFFFFF"
	if spec.LabelFont != nil {
		fontPath = orDefault(spec.LabelFont.Path, fontPath)
		if spec.LabelFont.Size > 0 {
			fontSize = spec.LabelFont.Size
		}
		fontColor = orDefault(spec.LabelFont.Color, fontColor)
	}
	axis.Face = v.face(fonts, name+".label_font", fontPath, fontSize)
	axis.FontSize = fontSize
	axis.FontColor = v.color(name+".label_font.color", fontColor)
	return axis
}

// parseFieldRef splits "pressure[1]" into ("pressure", 1). Unindexed
// fields return index -1.
func parseFieldRef(field string) (string, int, error) {
	bracket := strings.IndexByte(field, '[')
	if bracket < 0 {
		return field, -1, nil
	}
	if !strings.HasSuffix(field, "]") {
		return "", 0, fmt.Errorf("field %q: unclosed '['", field)
	}
	idx, err := strconv.Atoi(field[bracket+1 : len(field)-1])
	if err != nil || idx < 0 {
		return "", 0, fmt.Errorf("field %q: index must be a non-negative integer", field)
	}
	return field[:bracket], idx, nil
}

func itemName(i int, item ItemSpec) string {
	switch {
	case item.Label != "":
		return fmt.Sprintf("item %d (%s)", i, item.Label)
	case item.Field != "":
		return fmt.Sprintf("item %d (%s)", i, item.Field)
	case item.Compute != "":
		return fmt.Sprintf("item %d (%s)", i, item.Compute)
	case item.Text != "":
		return fmt.Sprintf("item %d (%q)", i, item.Text)
	default:
		return fmt.Sprintf("item %d", i)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func itemFontSize(spec *FontSpec, def FontSpec) int {
	if spec != nil && spec.Size > 0 {
		return spec.Size
	}
	if def.Size > 0 {
		return def.Size
	}
	return 22
}
