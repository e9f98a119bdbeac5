package dive

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// subsurfaceDecoder reads Subsurface (.ssrf) XML exports. Sample
// attributes are sparse deltas; the decoder forward-fills them into
// full snapshots.
type subsurfaceDecoder struct{}

type ssrfLog struct {
	Dives []ssrfDive `xml:"dives>dive"`
}

type ssrfDive struct {
	Date      string         `xml:"date,attr"`
	Time      string         `xml:"time,attr"`
	Cylinders []struct{}     `xml:"cylinder"`
	Computers []ssrfComputer `xml:"divecomputer"`
}

type ssrfComputer struct {
	Samples []ssrfSample `xml:"sample"`
	Events  []ssrfEvent  `xml:"event"`
}

type ssrfSample struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type ssrfEvent struct {
	Time string `xml:"time,attr"`
	Name string `xml:"name,attr"`
	O2   string `xml:"o2,attr"`
	He   string `xml:"he,attr"`
}

func (subsurfaceDecoder) Decode(path string, data []byte) (*Timeline, error) {
	var log ssrfLog
	if err := xml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parse subsurface xml: %w", err)
	}

	if len(log.Dives) == 0 {
		return nil, &NoDataError{Path: path, Reason: "no dive elements"}
	}
	if len(log.Dives) > 1 {
		return nil, &MultipleActivitiesError{Path: path, Count: len(log.Dives)}
	}
	d := log.Dives[0]

	if d.Date == "" || d.Time == "" {
		return nil, &NoDataError{Path: path, Reason: "dive date or time attribute missing"}
	}
	start, err := time.Parse("2006-01-02 15:04:05", d.Date+" "+d.Time)
	if err != nil {
		return nil, &NoDataError{Path: path, Reason: fmt.Sprintf("cannot parse dive date/time: %v", err)}
	}
	start = start.UTC()

	if len(d.Computers) == 0 {
		return nil, &NoDataError{Path: path, Reason: "no dive computer data"}
	}
	dc := d.Computers[0]
	if len(dc.Samples) == 0 {
		return nil, &NoDataError{Path: path, Reason: "no dive samples"}
	}

	// Running snapshot for forward-fill. Subsurface only logs changed
	// attributes, so each emitted sample is a deep copy of this state.
	cur := Sample{NDL: intPtr(99)}
	if n := len(d.Cylinders); n > 0 {
		cur.Pressure = make([]*float64, n)
	}

	samples := make([]Sample, 0, len(dc.Samples))
	for _, raw := range dc.Samples {
		attrs := attrMap(raw.Attrs)

		t, ok := attrs["time"]
		if !ok {
			return nil, &NoDataError{Path: path, Reason: "sample missing time attribute"}
		}
		sec, err := parseClock(t)
		if err != nil {
			return nil, &NoDataError{Path: path, Reason: fmt.Sprintf("bad sample time %q: %v", t, err)}
		}
		cur.Time = sec

		if v, ok := attrs["depth"]; ok {
			if f, err := parseUnitFloat(v, " m"); err == nil {
				cur.Depth = f
			}
		}
		if v, ok := attrs["ndl"]; ok {
			if m, err := parseClockMinutes(v); err == nil {
				cur.NDL = intPtr(m)
			}
		}
		if v, ok := attrs["tts"]; ok {
			if m, err := parseClockMinutes(v); err == nil {
				cur.TTS = intPtr(m)
			}
		}
		if v, ok := attrs["temp"]; ok {
			if f, err := parseUnitFloat(v, " C"); err == nil {
				cur.Temperature = floatPtr(f)
			}
		}
		if v, ok := attrs["stopdepth"]; ok {
			if f, err := parseUnitFloat(v, " m"); err == nil {
				cur.StopDepth = floatPtr(f)
			}
		}
		if v, ok := attrs["stoptime"]; ok {
			if m, err := parseClockMinutes(v); err == nil {
				cur.StopTime = intPtr(m)
			}
		}
		if v, ok := attrs["dc_supplied_ppo2"]; ok {
			if f, err := parseUnitFloat(v, " bar"); err == nil {
				cur.PPO2 = floatPtr(f)
			}
		}
		if v, ok := attrs["sac"]; ok {
			if f, err := parseUnitFloat(v, " l/min"); err == nil {
				cur.SAC = floatPtr(f)
			}
		}
		for i := 0; i < len(cur.PPO2Sensors); i++ {
			if v, ok := attrs[fmt.Sprintf("sensor%d", i+1)]; ok {
				if f, err := parseUnitFloat(v, " bar"); err == nil {
					cur.PPO2Sensors[i] = floatPtr(f)
				}
			}
		}
		for i := range cur.Pressure {
			if v, ok := attrs[fmt.Sprintf("pressure%d", i)]; ok {
				if f, err := parseUnitFloat(v, " bar"); err == nil {
					cur.Pressure[i] = floatPtr(f)
				}
			}
		}

		samples = append(samples, cur.Clone())
	}

	if err := injectGasChanges(samples, dc.Events); err != nil {
		return nil, &NoDataError{Path: path, Reason: err.Error()}
	}

	end := start.Add(time.Duration(samples[len(samples)-1].Time) * time.Second)
	return NewTimeline(samples, start, end)
}

// injectGasChanges applies gaschange events to the first sample at or
// after the event time and carries the fractions forward.
func injectGasChanges(samples []Sample, events []ssrfEvent) error {
	type change struct {
		time int
		o2   *float64
		he   *float64
	}
	var changes []change
	for _, ev := range events {
		if ev.Name != "gaschange" {
			continue
		}
		sec, err := parseClock(ev.Time)
		if err != nil {
			return fmt.Errorf("bad gaschange time %q: %v", ev.Time, err)
		}
		c := change{time: sec}
		if ev.O2 != "" {
			if f, err := parsePercent(ev.O2); err == nil {
				c.o2 = floatPtr(f)
			}
		}
		if ev.He != "" {
			if f, err := parsePercent(ev.He); err == nil {
				c.he = floatPtr(f)
			}
		}
		changes = append(changes, c)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].time < changes[j].time })

	for _, c := range changes {
		idx := sort.Search(len(samples), func(i int) bool {
			return samples[i].Time >= c.time
		})
		if idx == len(samples) {
			continue
		}
		samples[idx].GasChange = &GasChange{FractionO2: clonePtr(c.o2), FractionHe: clonePtr(c.he)}
		for i := idx; i < len(samples); i++ {
			samples[i].FractionO2 = clonePtr(c.o2)
			samples[i].FractionHe = clonePtr(c.he)
		}
	}
	return nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

// parseClock parses "mm:ss min" or "h:mm:ss" into seconds.
func parseClock(v string) (int, error) {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "min"))
	parts := strings.Split(v, ":")
	nums := make([]int, 0, 3)
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, err
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 2:
		return nums[0]*60 + nums[1], nil
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2], nil
	default:
		return 0, fmt.Errorf("unexpected clock format %q", v)
	}
}

// parseClockMinutes parses Subsurface duration attributes like
// "45:00 min" into whole minutes.
func parseClockMinutes(v string) (int, error) {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "min"))
	head := v
	if i := strings.IndexByte(v, ':'); i >= 0 {
		head = v[:i]
	}
	return strconv.Atoi(strings.TrimSpace(head))
}

// parseUnitFloat parses "12.3 m" style attribute values, tolerating a
// missing unit suffix.
func parseUnitFloat(v, suffix string) (float64, error) {
	v = strings.TrimSpace(strings.TrimSuffix(v, strings.TrimSpace(suffix)))
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

// parsePercent parses "32.0%" into a fraction.
func parsePercent(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
	if err != nil {
		return 0, err
	}
	return f / 100, nil
}
