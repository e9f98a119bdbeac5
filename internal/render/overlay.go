// Package render synthesizes overlay frames from a compiled template
// and an immutable dive timeline. Rendering is embarrassingly parallel
// across time; the pipeline re-sequences frames before the sink, which
// requires strict temporal order.
package render

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/aquaframe/aquaframe/internal/dive"
	"github.com/aquaframe/aquaframe/internal/template"
)

// Renderer produces one frame per second of dive time. The cursor is
// owned by the calling worker; frame times within one worker are
// non-decreasing.
type Renderer interface {
	Size() image.Point
	Frame(cur *dive.Cursor, second int) (*image.RGBA, error)
}

// Overlay is the tabular data overlay renderer. Each configured item
// resolves independently from the current sample; rendering is total
// once the template compiled.
type Overlay struct {
	compiled *template.Compiled
	offset   int // segment start; frame second zero maps here
}

// NewOverlay builds the tabular renderer. offset shifts sample lookups
// by the resolved segment start.
func NewOverlay(compiled *template.Compiled, offset int) (*Overlay, error) {
	if compiled.Background == nil {
		return nil, fmt.Errorf("compiled template has no background")
	}
	return &Overlay{compiled: compiled, offset: offset}, nil
}

// Size returns the frame dimensions.
func (o *Overlay) Size() image.Point { return o.compiled.Size }

// Frame renders the overlay for the given second of local time.
func (o *Overlay) Frame(cur *dive.Cursor, second int) (*image.RGBA, error) {
	img := cloneRGBA(o.compiled.Background)
	sample := cur.At(o.offset + second)

	for i := range o.compiled.Items {
		item := &o.compiled.Items[i]
		display := o.itemValue(item, sample)
		template.DrawText(img, item.Face, item.Color, item.X, item.Y, display)
	}
	return img, nil
}

func (o *Overlay) itemValue(item *template.DataItem, sample dive.Sample) string {
	if item.Expr != nil {
		s, ok := item.Expr.Eval(sample, o.compiled.Units)
		if !ok {
			return item.Fallback
		}
		return s
	}

	if item.Field == "time" {
		return FormatClock(sample.Time)
	}

	v, ok := sample.Field(item.Field, item.Index)
	if !ok {
		return withUnit(item.Fallback, "")
	}
	if item.HasQuantity {
		v = o.compiled.Units.FromMetric(v, item.Quantity)
	}

	var text string
	if item.Precision != nil {
		text = strconv.FormatFloat(v, 'f', *item.Precision, 64)
	} else {
		text = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return withUnit(text, item.UnitLabel)
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func withUnit(value, unit string) string {
	return strings.TrimSpace(value + " " + unit)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	return &image.RGBA{
		Pix:    append([]uint8(nil), src.Pix...),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
}
