package units

import (
	"math"
	"testing"
)

func TestConvertRoundTrip(t *testing.T) {
	t.Parallel()

	quantities := []Quantity{Depth, Pressure, Temperature}
	values := []float64{0, 1, 10.5, 42.195, 300}

	for _, q := range quantities {
		for _, v := range values {
			back := Convert(Convert(v, q, Metric, Imperial), q, Imperial, Metric)
			if math.Abs(back-v) > 1e-6 {
				t.Errorf("round trip quantity=%d value=%v got %v", q, v, back)
			}
		}
	}
}

func TestFromMetric(t *testing.T) {
	t.Parallel()

	cases := []struct {
		q    Quantity
		in   float64
		want float64
	}{
		{Depth, 10, 32.8084},
		{Pressure, 200, 2900.75476},
		{Temperature, 20, 68},
		{Temperature, 0, 32},
	}

	for _, tc := range cases {
		got := Imperial.FromMetric(tc.in, tc.q)
		if math.Abs(got-tc.want) > 1e-4 {
			t.Errorf("FromMetric(%v, %d) = %v, want %v", tc.in, tc.q, got, tc.want)
		}
		if id := Metric.FromMetric(tc.in, tc.q); id != tc.in {
			t.Errorf("metric conversion must be identity, got %v", id)
		}
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()

	if got := Metric.Label(Depth); got != "m" {
		t.Errorf("metric depth label %q", got)
	}
	if got := Imperial.Label(Depth); got != "ft" {
		t.Errorf("imperial depth label %q", got)
	}
	if got := Imperial.Label(Pressure); got != "psi" {
		t.Errorf("imperial pressure label %q", got)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	if s, ok := Parse("imperial"); !ok || s != Imperial {
		t.Errorf("Parse(imperial) = %v, %v", s, ok)
	}
	if _, ok := Parse("nautical"); ok {
		t.Error("expected Parse to reject unknown system")
	}
}

func TestQuantityForField(t *testing.T) {
	t.Parallel()

	if q, ok := QuantityForField("stop_depth"); !ok || q != Depth {
		t.Errorf("stop_depth mapped to %d, %v", q, ok)
	}
	if _, ok := QuantityForField("ndl"); ok {
		t.Error("ndl has no physical quantity")
	}
}
