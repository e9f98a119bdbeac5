package dive

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// shearwaterDecoder reads Shearwater desktop XML exports (.xml).
// Record fields frequently carry non-numeric sentinel text ("AI is
// off", "not available"); those leave the forward-filled value
// untouched.
type shearwaterDecoder struct{}

const shearwaterTankCount = 4

type shearwaterLog struct {
	StartDate string             `xml:"diveLog>startDate"`
	Records   []shearwaterRecord `xml:"diveLog>diveLogRecords>diveLogRecord"`
}

type shearwaterRecord struct {
	CurrentTime    string `xml:"currentTime"`
	CurrentDepth   string `xml:"currentDepth"`
	CurrentNdl     string `xml:"currentNdl"`
	TTSMins        string `xml:"ttsMins"`
	WaterTemp      string `xml:"waterTemp"`
	FirstStopDepth string `xml:"firstStopDepth"`
	FirstStopTime  string `xml:"firstStopTime"`
	FractionO2     string `xml:"fractionO2"`
	FractionHe     string `xml:"fractionHe"`
	AveragePPO2    string `xml:"averagePPO2"`
	Sensor1        string `xml:"sensor1"`
	Sensor2        string `xml:"sensor2"`
	Sensor3        string `xml:"sensor3"`
	Tank0PSI       string `xml:"tank0pressurePSI"`
	Tank1PSI       string `xml:"tank1pressurePSI"`
	Tank2PSI       string `xml:"tank2pressurePSI"`
	Tank3PSI       string `xml:"tank3pressurePSI"`
	SAC            string `xml:"sac"`
	GasTime        string `xml:"gasTime"`
}

const psiToBar = 0.0689476

func (shearwaterDecoder) Decode(path string, data []byte) (*Timeline, error) {
	// Shearwater exports commonly declare utf-16 while being utf-8.
	data = bytes.ReplaceAll(data, []byte(`encoding="utf-16"`), []byte(`encoding="utf-8"`))
	data = bytes.ReplaceAll(data, []byte(`encoding="UTF-16"`), []byte(`encoding="UTF-8"`))

	var log shearwaterLog
	if err := xml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parse shearwater xml: %w", err)
	}

	if log.StartDate == "" {
		return nil, &NoDataError{Path: path, Reason: "dive start date not found"}
	}
	// Shearwater date format: "4/6/2024 11:58:49 AM".
	start, err := time.Parse("1/2/2006 3:04:05 PM", strings.TrimSpace(log.StartDate))
	if err != nil {
		return nil, &NoDataError{Path: path, Reason: fmt.Sprintf("cannot parse start date %q: %v", log.StartDate, err)}
	}
	start = start.UTC()

	if len(log.Records) == 0 {
		return nil, &NoDataError{Path: path, Reason: "no dive log records"}
	}

	cur := Sample{
		NDL:      intPtr(99),
		Pressure: make([]*float64, shearwaterTankCount),
	}

	samples := make([]Sample, 0, len(log.Records))
	prevTime := -1
	for _, rec := range log.Records {
		ms, err := strconv.Atoi(strings.TrimSpace(rec.CurrentTime))
		if err != nil {
			return nil, &NoDataError{Path: path, Reason: fmt.Sprintf("record missing currentTime: %v", err)}
		}
		cur.Time = ms / 1000
		if cur.Time <= prevTime {
			// Sub-second records collapse onto one snapshot per second.
			continue
		}
		prevTime = cur.Time

		if f, ok := parseMaybeFloat(rec.CurrentDepth); ok {
			cur.Depth = f
		}
		if n, ok := parseMaybeInt(rec.CurrentNdl); ok {
			cur.NDL = intPtr(n)
		}
		if n, ok := parseMaybeInt(rec.TTSMins); ok {
			cur.TTS = intPtr(n)
		}
		if f, ok := parseMaybeFloat(rec.WaterTemp); ok {
			cur.Temperature = floatPtr(f)
		}
		if f, ok := parseMaybeFloat(rec.FirstStopDepth); ok {
			cur.StopDepth = floatPtr(f)
		}
		if n, ok := parseMaybeInt(rec.FirstStopTime); ok {
			cur.StopTime = intPtr(n)
		}
		if f, ok := parseMaybeFloat(rec.FractionO2); ok {
			cur.FractionO2 = floatPtr(f)
		}
		if f, ok := parseMaybeFloat(rec.FractionHe); ok {
			cur.FractionHe = floatPtr(f)
		}
		if f, ok := parseMaybeFloat(rec.AveragePPO2); ok {
			cur.PPO2 = floatPtr(f)
		}
		if f, ok := parseMaybeFloat(rec.SAC); ok {
			cur.SAC = floatPtr(f)
		}
		if n, ok := parseMaybeInt(rec.GasTime); ok {
			cur.GTR = intPtr(n)
		}
		sensors := [3]string{rec.Sensor1, rec.Sensor2, rec.Sensor3}
		for i, raw := range sensors {
			if f, ok := parseMaybeFloat(raw); ok {
				cur.PPO2Sensors[i] = floatPtr(f)
			}
		}
		tanks := [shearwaterTankCount]string{rec.Tank0PSI, rec.Tank1PSI, rec.Tank2PSI, rec.Tank3PSI}
		for i, raw := range tanks {
			if psi, ok := parseMaybeFloat(raw); ok {
				cur.Pressure[i] = floatPtr(psi * psiToBar)
			}
		}

		samples = append(samples, cur.Clone())
	}

	if len(samples) == 0 {
		return nil, &NoDataError{Path: path, Reason: "no usable dive log records"}
	}

	end := start.Add(time.Duration(samples[len(samples)-1].Time) * time.Second)
	return NewTimeline(samples, start, end)
}

func parseMaybeFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f, err == nil
}

func parseMaybeInt(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return n, err == nil
}
