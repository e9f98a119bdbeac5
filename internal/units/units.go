// Package units provides the display unit systems and pure conversion
// functions for dive telemetry quantities. All stored telemetry is
// canonical metric (meters, bar, Celsius); conversion happens only at
// display time.
package units

// Quantity identifies a convertible physical quantity.
type Quantity int

const (
	Depth Quantity = iota
	Pressure
	Temperature
)

// System is a stateless unit system descriptor. The zero value is not
// valid; use Metric or Imperial.
type System struct {
	name string
}

var (
	Metric   = System{name: "metric"}
	Imperial = System{name: "imperial"}
)

const (
	metersToFeet = 3.28084
	barToPSI     = 14.5037738
)

// Parse maps a selector string to a unit system.
func Parse(name string) (System, bool) {
	switch name {
	case "metric":
		return Metric, true
	case "imperial":
		return Imperial, true
	default:
		return System{}, false
	}
}

// String returns the selector name of the system.
func (s System) String() string { return s.name }

// FromMetric converts a canonical metric value of the given quantity
// into this system's display unit. Metric is the identity.
func (s System) FromMetric(v float64, q Quantity) float64 {
	if s != Imperial {
		return v
	}
	switch q {
	case Depth:
		return v * metersToFeet
	case Pressure:
		return v * barToPSI
	case Temperature:
		return v*9/5 + 32
	default:
		return v
	}
}

// ToMetric converts a display value in this system back to canonical
// metric units.
func (s System) ToMetric(v float64, q Quantity) float64 {
	if s != Imperial {
		return v
	}
	switch q {
	case Depth:
		return v / metersToFeet
	case Pressure:
		return v / barToPSI
	case Temperature:
		return (v - 32) * 5 / 9
	default:
		return v
	}
}

// Convert converts a value of the given quantity between two systems.
func Convert(v float64, q Quantity, from, to System) float64 {
	return to.FromMetric(from.ToMetric(v, q), q)
}

// Label returns the display unit suffix for the quantity, e.g. "m" or
// "ft" for depth.
func (s System) Label(q Quantity) string {
	if s == Imperial {
		switch q {
		case Depth:
			return "ft"
		case Pressure:
			return "psi"
		case Temperature:
			return "F"
		}
		return ""
	}
	switch q {
	case Depth:
		return "m"
	case Pressure:
		return "bar"
	case Temperature:
		return "C"
	}
	return ""
}

// QuantityForField maps a sample field name to its physical quantity.
// The second return is false for dimensionless or time-like fields.
func QuantityForField(field string) (Quantity, bool) {
	switch field {
	case "depth", "stop_depth":
		return Depth, true
	case "temperature":
		return Temperature, true
	case "pressure":
		return Pressure, true
	default:
		return 0, false
	}
}
