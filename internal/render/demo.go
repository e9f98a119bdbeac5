package render

import (
	"math"
	"time"

	"github.com/aquaframe/aquaframe/internal/dive"
)

// DemoTimeline synthesizes a plausible 30-minute dive so templates can
// be previewed without a real log: descent to 30 m, a working bottom
// phase, a gas switch, a short deco obligation and a staged ascent.
// Every field a template can reference is populated.
func DemoTimeline() *dive.Timeline {
	const duration = 30 * 60
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	samples := make([]dive.Sample, 0, duration/10+1)
	for t := 0; t <= duration; t += 10 {
		samples = append(samples, demoSample(t, duration))
	}

	// Gas switch to EAN50 at the start of the ascent.
	switchAt := duration * 2 / 3
	ean50 := 0.50
	for i := range samples {
		if samples[i].Time >= switchAt {
			samples[i].GasChange = &dive.GasChange{FractionO2: &ean50}
			break
		}
	}

	tl, err := dive.NewTimeline(samples, start, start.Add(duration*time.Second))
	if err != nil {
		panic("demo timeline: " + err.Error())
	}
	return tl
}

func demoSample(t, duration int) dive.Sample {
	depth := demoDepth(t, duration)

	temp := 19.0 - depth*0.2
	ndl := 99
	var stopDepth float64
	var stopTime int
	if depth > 25 {
		ndl = int(math.Max(0, 20-float64(t-duration/4)/60))
		if ndl == 0 {
			stopDepth = 3
			stopTime = 2
		}
	}
	tts := int(depth/9) + stopTime
	o2 := 0.32
	if t >= duration*2/3 {
		o2 = 0.50
	}
	pressure := 200.0 - 170.0*float64(t)/float64(duration)
	sac := 14.0 + 2.0*math.Sin(float64(t)/120)
	ppo2 := (depth/10 + 1) * o2
	cns := t / 90

	s := dive.Sample{
		Time:        t,
		Depth:       depth,
		Temperature: &temp,
		NDL:         &ndl,
		TTS:         &tts,
		FractionO2:  &o2,
		SAC:         &sac,
		PPO2:        &ppo2,
		CNS:         &cns,
		Pressure:    []*float64{&pressure},
		PPO2Sensors: [3]*float64{&ppo2, &ppo2, &ppo2},
	}
	if stopDepth > 0 {
		s.StopDepth = &stopDepth
		s.StopTime = &stopTime
	}
	return s
}

// demoDepth traces descent, bottom time with gentle undulation, and a
// staged ascent with a stop at 5 m.
func demoDepth(t, duration int) float64 {
	descentEnd := duration / 10
	ascentStart := duration * 2 / 3
	stopStart := duration * 9 / 10

	const bottom = 30.0
	switch {
	case t < descentEnd:
		return bottom * float64(t) / float64(descentEnd)
	case t < ascentStart:
		return bottom + 2*math.Sin(float64(t-descentEnd)/90)
	case t < stopStart:
		frac := float64(t-ascentStart) / float64(stopStart-ascentStart)
		return bottom - (bottom-5)*frac
	case t < duration:
		return 5
	default:
		return 0
	}
}
