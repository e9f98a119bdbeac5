// Package dive holds the normalized dive timeline model and the
// decoders that produce it from dive computer log files. All physical
// quantities are stored metric: meters, bar, Celsius.
package dive

// GasChange marks a breathing gas switch carried by the sample at
// which the switch took effect.
type GasChange struct {
	FractionO2 *float64
	FractionHe *float64
}

// Sample is one dive computer reading at a relative offset from the
// dive start. Decoders emit full snapshots: every optional field holds
// the last value seen at or before this time, so a nil pointer means
// the field has never been reported.
type Sample struct {
	Time  int     // seconds from dive start
	Depth float64 // meters

	Temperature *float64 // Celsius
	NDL         *int     // minutes
	TTS         *int     // minutes
	StopDepth   *float64 // meters
	StopTime    *int     // minutes
	FractionO2  *float64
	FractionHe  *float64
	SAC         *float64 // liters/minute
	GTR         *int     // seconds
	PPO2        *float64 // bar
	CNS         *int     // percent

	Pressure    []*float64  // tank pressures, bar; sparse
	PPO2Sensors [3]*float64 // redundant sensor channels, bar

	GasChange *GasChange
}

// Field resolves a sample field by its template name. Indexed fields
// (pressure, ppo2_sensors) take the index argument; all others ignore
// it. The second return is false when the field has no value on this
// sample.
func (s Sample) Field(name string, index int) (float64, bool) {
	switch name {
	case "time":
		return float64(s.Time), true
	case "depth":
		return s.Depth, true
	case "temperature":
		return deref(s.Temperature)
	case "ndl":
		return derefInt(s.NDL)
	case "tts":
		return derefInt(s.TTS)
	case "stop_depth":
		return deref(s.StopDepth)
	case "stop_time":
		return derefInt(s.StopTime)
	case "fractionO2":
		return deref(s.FractionO2)
	case "fractionHe":
		return deref(s.FractionHe)
	case "sac":
		return deref(s.SAC)
	case "gtr":
		return derefInt(s.GTR)
	case "ppo2":
		return deref(s.PPO2)
	case "cns":
		return derefInt(s.CNS)
	case "pressure":
		if index < 0 || index >= len(s.Pressure) {
			return 0, false
		}
		return deref(s.Pressure[index])
	case "ppo2_sensors":
		if index < 0 || index >= len(s.PPO2Sensors) {
			return 0, false
		}
		return deref(s.PPO2Sensors[index])
	default:
		return 0, false
	}
}

// KnownField reports whether name is a valid sample field name.
func KnownField(name string) bool {
	switch name {
	case "time", "depth", "temperature", "ndl", "tts", "stop_depth",
		"stop_time", "fractionO2", "fractionHe", "sac", "gtr", "ppo2",
		"cns", "pressure", "ppo2_sensors":
		return true
	}
	return false
}

// Clone returns a deep copy of the sample. Decoders use it to snapshot
// their running forward-fill state.
func (s Sample) Clone() Sample {
	out := s
	if s.Pressure != nil {
		out.Pressure = make([]*float64, len(s.Pressure))
		for i, p := range s.Pressure {
			out.Pressure[i] = clonePtr(p)
		}
	}
	for i, p := range s.PPO2Sensors {
		out.PPO2Sensors[i] = clonePtr(p)
	}
	out.Temperature = clonePtr(s.Temperature)
	out.NDL = cloneIntPtr(s.NDL)
	out.TTS = cloneIntPtr(s.TTS)
	out.StopDepth = clonePtr(s.StopDepth)
	out.StopTime = cloneIntPtr(s.StopTime)
	out.FractionO2 = clonePtr(s.FractionO2)
	out.FractionHe = clonePtr(s.FractionHe)
	out.SAC = clonePtr(s.SAC)
	out.GTR = cloneIntPtr(s.GTR)
	out.PPO2 = clonePtr(s.PPO2)
	out.CNS = cloneIntPtr(s.CNS)
	out.GasChange = nil
	return out
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func derefInt(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
