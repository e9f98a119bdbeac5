// Package template loads declarative overlay layout descriptions and
// compiles them into immutable rendering artifacts. All per-run work
// that does not depend on frame time happens here: background
// rasterization, font and color resolution, and field expression
// compilation. A Compiled value is safe to share across concurrent
// renderers.
package template

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Description is the declarative template document as authored in
// YAML. It describes either a tabular data overlay (items) or a depth
// profile graph overlay (graph); both share the frame and background
// settings.
type Description struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	BackgroundColor string `yaml:"background_color"`
	BackgroundImage string `yaml:"background_image"`
	ChromaColor     string `yaml:"chroma_color"`

	DefaultLabelFont FontSpec `yaml:"default_label_font"`
	DefaultDataFont  FontSpec `yaml:"default_data_font"`

	Items []ItemSpec `yaml:"items"`
	Graph *GraphSpec `yaml:"graph"`
}

// FontSpec binds a font file to a size and fill color.
type FontSpec struct {
	Path  string `yaml:"path"`
	Size  int    `yaml:"size"`
	Color string `yaml:"color"`
}

// PositionSpec is a pixel position within the frame.
type PositionSpec struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// ItemSpec is one visual item: static text, or a data field with an
// optional static label.
type ItemSpec struct {
	Type string `yaml:"type"` // "text" or "data"; empty means "data"

	// Static text items.
	Text     string        `yaml:"text"`
	Position *PositionSpec `yaml:"position"`
	Font     *FontSpec     `yaml:"font"`

	// Data items. Exactly one of Field and Compute must be set.
	Field         string        `yaml:"field"`
	Compute       string        `yaml:"compute"`
	Label         string        `yaml:"label"`
	LabelPosition *PositionSpec `yaml:"label_position"`
	DataPosition  *PositionSpec `yaml:"data_position"`
	LabelFont     *FontSpec     `yaml:"label_font"`
	DataFont      *FontSpec     `yaml:"data_font"`
	Unit          string        `yaml:"unit"`
	Precision     *int          `yaml:"precision"`
	Fallback      string        `yaml:"fallback"`
}

// GraphSpec configures the depth profile graph variant.
type GraphSpec struct {
	Position  *PositionSpec  `yaml:"position"`
	Width     int            `yaml:"width"`
	Height    int            `yaml:"height"`
	Line      *LineSpec      `yaml:"line"`
	Indicator *IndicatorSpec `yaml:"indicator"`
	Axes      *AxesSpec      `yaml:"axes"`
	Ceiling   *CeilingSpec   `yaml:"ceiling"`
	GasMarks  *GasMarkSpec   `yaml:"gas_changes"`
}

// LineSpec styles the pre-rendered depth profile line.
type LineSpec struct {
	Color     string `yaml:"color"`
	Thickness int    `yaml:"thickness"`
}

// IndicatorSpec styles the moving position indicator.
type IndicatorSpec struct {
	Color string `yaml:"color"`
	Size  int    `yaml:"size"`
}

// AxesSpec configures the optional grid and axis decorations.
type AxesSpec struct {
	ShowGrid      bool         `yaml:"show_grid"`
	GridInterval  GridInterval `yaml:"grid_interval"`
	GridColor     string       `yaml:"grid_color"`
	GridThickness int          `yaml:"grid_thickness"`
	DepthAxis     *AxisSpec    `yaml:"depth_axis"`
	TimeAxis      *AxisSpec    `yaml:"time_axis"`
}

// GridInterval sets grid line spacing in dive units.
type GridInterval struct {
	Time  int     `yaml:"time"`  // seconds between vertical lines
	Depth float64 `yaml:"depth"` // meters between horizontal lines
}

// AxisSpec configures one axis's ticks and label.
type AxisSpec struct {
	Label         string    `yaml:"label"`
	ShowTicks     bool      `yaml:"show_ticks"`
	TickInterval  float64   `yaml:"tick_interval"`
	TickColor     string    `yaml:"tick_color"`
	TickFormat    string    `yaml:"tick_format"` // "mm:ss", "mm" or "s" (time axis)
	LabelPosition string    `yaml:"label_position"`
	LabelFont     *FontSpec `yaml:"label_font"`
}

// CeilingSpec enables the shaded decompression ceiling region.
type CeilingSpec struct {
	Color   string  `yaml:"color"`
	Opacity float64 `yaml:"opacity"` // 0..1, default 0.35
}

// GasMarkSpec enables gas-change markers on the profile line.
type GasMarkSpec struct {
	Color string `yaml:"color"`
	Size  int    `yaml:"size"`
}

// Load reads and decodes a template description file.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse template yaml: %w", err)
	}
	return &desc, nil
}
