// Package fieldexpr implements the small computed-field expression
// language used by overlay templates. Expressions are compiled once at
// template compile time; evaluation against a sample is total and
// allocation-light.
//
// Grammar: literal text with embedded references of the form
// {field}, {field[i]}, {field:1f} or {field:02%}. The f spec formats a
// fixed number of decimals; the % spec renders value*100 as a
// zero-padded integer of the given width.
package fieldexpr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aquaframe/aquaframe/internal/dive"
	"github.com/aquaframe/aquaframe/internal/units"
)

// SyntaxError describes a malformed expression. It is only produced at
// compile time; a compiled expression never fails to evaluate.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("field expression %q: %s at offset %d", e.Expr, e.Msg, e.Pos)
}

type formatKind int

const (
	formatDefault formatKind = iota
	formatFixed
	formatPercent
)

type fieldRef struct {
	name   string
	index  int // -1 when not indexed
	kind   formatKind
	digits int

	quantity    units.Quantity
	hasQuantity bool
}

type node struct {
	literal string
	ref     *fieldRef
}

// Expr is a compiled field expression.
type Expr struct {
	source string
	nodes  []node
}

// Source returns the original expression text.
func (e *Expr) Source() string { return e.source }

// Compile parses an expression into its literal and field-reference
// nodes. All syntax problems surface here.
func Compile(expr string) (*Expr, error) {
	var nodes []node
	i := 0
	for i < len(expr) {
		open := strings.IndexByte(expr[i:], '{')
		if open < 0 {
			nodes = append(nodes, node{literal: expr[i:]})
			break
		}
		open += i
		if open > i {
			nodes = append(nodes, node{literal: expr[i:open]})
		}
		closing := strings.IndexByte(expr[open:], '}')
		if closing < 0 {
			return nil, &SyntaxError{Expr: expr, Pos: open, Msg: "unclosed '{'"}
		}
		closing += open
		ref, err := parseRef(expr, expr[open+1:closing], open+1)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node{ref: ref})
		i = closing + 1
	}
	return &Expr{source: expr, nodes: nodes}, nil
}

func parseRef(expr, body string, pos int) (*fieldRef, error) {
	if body == "" {
		return nil, &SyntaxError{Expr: expr, Pos: pos, Msg: "empty field reference"}
	}
	ref := &fieldRef{index: -1}

	name := body
	if colon := strings.IndexByte(body, ':'); colon >= 0 {
		name = body[:colon]
		spec := body[colon+1:]
		if err := parseFormat(ref, expr, spec, pos+colon+1); err != nil {
			return nil, err
		}
	}

	if bracket := strings.IndexByte(name, '['); bracket >= 0 {
		if !strings.HasSuffix(name, "]") {
			return nil, &SyntaxError{Expr: expr, Pos: pos + bracket, Msg: "unclosed '['"}
		}
		idx, err := strconv.Atoi(name[bracket+1 : len(name)-1])
		if err != nil || idx < 0 {
			return nil, &SyntaxError{Expr: expr, Pos: pos + bracket, Msg: "index must be a non-negative integer"}
		}
		ref.index = idx
		name = name[:bracket]
	}

	if name == "" {
		return nil, &SyntaxError{Expr: expr, Pos: pos, Msg: "empty field name"}
	}
	if !dive.KnownField(name) {
		return nil, &SyntaxError{Expr: expr, Pos: pos, Msg: fmt.Sprintf("unknown field %q", name)}
	}
	ref.name = name
	ref.quantity, ref.hasQuantity = units.QuantityForField(name)
	return ref, nil
}

func parseFormat(ref *fieldRef, expr, spec string, pos int) error {
	if spec == "" {
		return &SyntaxError{Expr: expr, Pos: pos, Msg: "empty format spec"}
	}
	kindByte := spec[len(spec)-1]
	digits, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil || digits < 0 {
		return &SyntaxError{Expr: expr, Pos: pos, Msg: fmt.Sprintf("bad format spec %q", spec)}
	}
	switch kindByte {
	case 'f':
		ref.kind = formatFixed
	case '%':
		ref.kind = formatPercent
	default:
		return &SyntaxError{Expr: expr, Pos: pos, Msg: fmt.Sprintf("unknown format kind %q", string(kindByte))}
	}
	ref.digits = digits
	return nil
}

// Eval renders the expression against a sample, converting physical
// quantities into the display unit system. The second return is false
// when any referenced field has no value on the sample, in which case
// the caller substitutes the item fallback.
func (e *Expr) Eval(s dive.Sample, sys units.System) (string, bool) {
	var b strings.Builder
	for _, n := range e.nodes {
		if n.ref == nil {
			b.WriteString(n.literal)
			continue
		}
		v, ok := s.Field(n.ref.name, n.ref.index)
		if !ok {
			return "", false
		}
		if n.ref.hasQuantity {
			v = sys.FromMetric(v, n.ref.quantity)
		}
		b.WriteString(formatValue(v, n.ref))
	}
	return b.String(), true
}

func formatValue(v float64, ref *fieldRef) string {
	switch ref.kind {
	case formatFixed:
		return strconv.FormatFloat(v, 'f', ref.digits, 64)
	case formatPercent:
		return fmt.Sprintf("%0*d", ref.digits, int(math.Round(v*100)))
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
