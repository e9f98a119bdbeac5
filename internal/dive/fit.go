package dive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// fitDecoder reads Garmin FIT activity files (.fit), e.g. Descent dive
// logs. The FIT container interleaves definition and data messages
// between a 12/14-byte header and a trailing CRC-16; dive readings
// live in record messages (global number 20), fields 92-97 of the FIT
// profile. Those fields are decoded here directly because typed FIT
// bindings stop at the fitness profile subset.
type fitDecoder struct{}

// fitEpoch is FIT timestamp zero.
var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

// Global message numbers.
const (
	fitMsgFileID  = 0
	fitMsgSession = 18
	fitMsgRecord  = 20
)

const fitFileTypeActivity = 4

// Record message field numbers from the FIT profile.
const (
	fitFieldTemperature   = 13  // sint8, C
	fitFieldDepth         = 92  // uint32, scale 1000, m
	fitFieldNextStopDepth = 93  // uint32, scale 1000, m
	fitFieldNextStopTime  = 94  // uint32, s
	fitFieldTimeToSurface = 95  // uint32, s
	fitFieldNdlTime       = 96  // uint32, s
	fitFieldCNSLoad       = 97  // uint8, percent
	fitFieldTimestamp     = 253 // uint32, s since fitEpoch
)

// Invalid-value sentinels per FIT base type.
const (
	fitInvalidU32 = 0xFFFFFFFF
	fitInvalidS8  = 0x7F
	fitInvalidU8  = 0xFF
)

type fitField struct {
	num  byte
	size byte
}

// fitDef is one definition message: the layout every following data
// message with the same local number uses.
type fitDef struct {
	global    uint16
	bigEndian bool
	fields    []fitField
	devSize   int // developer field bytes trailing each data message
}

func (d *fitDef) dataSize() int {
	size := d.devSize
	for _, f := range d.fields {
		size += int(f.size)
	}
	return size
}

// uint reads one field value as an unsigned integer. Fields wider than
// 8 bytes (strings, arrays) never carry the record numbers we read, so
// they come back as the invalid sentinel and are skipped.
func (d *fitDef) uint(body []byte, off int, f fitField) uint64 {
	order := binary.ByteOrder(binary.LittleEndian)
	if d.bigEndian {
		order = binary.BigEndian
	}
	switch f.size {
	case 1:
		return uint64(body[off])
	case 2:
		return uint64(order.Uint16(body[off : off+2]))
	case 4:
		return uint64(order.Uint32(body[off : off+4]))
	case 8:
		return order.Uint64(body[off : off+8])
	default:
		return fitInvalidU32
	}
}

func (fitDecoder) Decode(path string, data []byte) (*Timeline, error) {
	body, err := fitBody(data)
	if err != nil {
		return nil, fmt.Errorf("decode fit file: %w", err)
	}

	var (
		defs     = map[byte]*fitDef{}
		cur      = Sample{}
		samples  []Sample
		firstTS  uint32
		lastTS   uint32
		haveTS   bool
		prevTime = -1
		sessions int
	)

	p := 0
	for p < len(body) {
		hdr := body[p]
		p++

		if hdr&0x80 == 0 && hdr&0x40 != 0 {
			def, next, err := parseFitDef(body, p, hdr&0x20 != 0)
			if err != nil {
				return nil, fmt.Errorf("decode fit file: %w", err)
			}
			defs[hdr&0x0F] = def
			p = next
			continue
		}

		// Data message, either with a normal header or a compressed
		// timestamp header carrying a 5-bit time offset.
		local := hdr & 0x0F
		compressed := hdr&0x80 != 0
		var tsOffset uint32
		if compressed {
			local = (hdr >> 5) & 0x03
			tsOffset = uint32(hdr & 0x1F)
		}
		def := defs[local]
		if def == nil {
			return nil, fmt.Errorf("decode fit file: data message %d before its definition", local)
		}
		size := def.dataSize()
		if p+size > len(body) {
			return nil, errors.New("decode fit file: truncated data message")
		}

		switch def.global {
		case fitMsgFileID:
			if ft, ok := fitFieldValue(def, body, p, 0); ok && ft != fitFileTypeActivity {
				return nil, &NoDataError{Path: path, Reason: fmt.Sprintf("file type %d is not an activity", ft)}
			}
		case fitMsgSession:
			sessions++
		case fitMsgRecord:
			ts := uint32(fitInvalidU32)
			if v, ok := fitFieldValue(def, body, p, fitFieldTimestamp); ok {
				ts = uint32(v)
			} else if compressed && haveTS {
				ts = lastTS&^0x1F | tsOffset
				if ts < lastTS {
					ts += 0x20
				}
			}
			if ts == fitInvalidU32 {
				break // record without a usable timestamp
			}
			if !haveTS {
				firstTS, haveTS = ts, true
			}
			lastTS = ts

			cur.Time = int(ts - firstTS)
			if cur.Time <= prevTime && prevTime >= 0 {
				break
			}
			prevTime = cur.Time
			applyFitRecord(&cur, def, body, p)
			samples = append(samples, cur.Clone())
		}
		p += size
	}

	if sessions > 1 {
		return nil, &MultipleActivitiesError{Path: path, Count: sessions}
	}
	if len(samples) == 0 {
		return nil, &NoDataError{Path: path, Reason: "no timestamped records"}
	}

	start := fitEpoch.Add(time.Duration(firstTS) * time.Second)
	end := start.Add(time.Duration(samples[len(samples)-1].Time) * time.Second)
	return NewTimeline(samples, start, end)
}

// applyFitRecord folds one record message into the forward-fill state.
func applyFitRecord(cur *Sample, def *fitDef, body []byte, p int) {
	off := p
	for _, f := range def.fields {
		v := def.uint(body, off, f)
		off += int(f.size)
		switch f.num {
		case fitFieldDepth:
			if v != fitInvalidU32 {
				cur.Depth = float64(v) / 1000
			}
		case fitFieldTemperature:
			if v != fitInvalidS8 {
				cur.Temperature = floatPtr(float64(int8(v)))
			}
		case fitFieldNdlTime:
			if v != fitInvalidU32 {
				cur.NDL = intPtr(int(v) / 60)
			}
		case fitFieldTimeToSurface:
			if v != fitInvalidU32 {
				cur.TTS = intPtr(int(v) / 60)
			}
		case fitFieldNextStopDepth:
			if v != fitInvalidU32 {
				cur.StopDepth = floatPtr(float64(v) / 1000)
			}
		case fitFieldNextStopTime:
			if v != fitInvalidU32 {
				cur.StopTime = intPtr(int(v) / 60)
			}
		case fitFieldCNSLoad:
			if v != fitInvalidU8 {
				cur.CNS = intPtr(int(v))
			}
		}
	}
}

// fitFieldValue finds field num in one data message and returns its
// raw unsigned value.
func fitFieldValue(def *fitDef, body []byte, p int, num byte) (uint64, bool) {
	off := p
	for _, f := range def.fields {
		if f.num == num {
			return def.uint(body, off, f), true
		}
		off += int(f.size)
	}
	return 0, false
}

// fitBody validates the container framing and returns the message
// bytes between the header and the trailing CRC.
func fitBody(data []byte) ([]byte, error) {
	if len(data) < 14 {
		return nil, errors.New("file too short")
	}
	headerSize := int(data[0])
	if headerSize != 12 && headerSize != 14 {
		return nil, fmt.Errorf("bad header size %d", headerSize)
	}
	if string(data[8:12]) != ".FIT" {
		return nil, errors.New("missing .FIT marker")
	}
	dataSize := int(binary.LittleEndian.Uint32(data[4:8]))
	if headerSize+dataSize+2 > len(data) {
		return nil, errors.New("truncated file")
	}
	want := binary.LittleEndian.Uint16(data[headerSize+dataSize : headerSize+dataSize+2])
	if got := fitCRC(data[:headerSize+dataSize]); got != want {
		return nil, fmt.Errorf("crc mismatch: file has %#04x, computed %#04x", want, got)
	}
	return data[headerSize : headerSize+dataSize], nil
}

func parseFitDef(body []byte, p int, withDev bool) (*fitDef, int, error) {
	if p+5 > len(body) {
		return nil, 0, errors.New("truncated definition message")
	}
	def := &fitDef{bigEndian: body[p+1] == 1}
	if def.bigEndian {
		def.global = binary.BigEndian.Uint16(body[p+2 : p+4])
	} else {
		def.global = binary.LittleEndian.Uint16(body[p+2 : p+4])
	}
	n := int(body[p+4])
	p += 5
	if p+3*n > len(body) {
		return nil, 0, errors.New("truncated field definitions")
	}
	def.fields = make([]fitField, n)
	for i := range def.fields {
		def.fields[i] = fitField{num: body[p], size: body[p+1]}
		p += 3
	}
	if withDev {
		if p >= len(body) {
			return nil, 0, errors.New("truncated developer field definitions")
		}
		nd := int(body[p])
		p++
		if p+3*nd > len(body) {
			return nil, 0, errors.New("truncated developer field definitions")
		}
		for i := 0; i < nd; i++ {
			def.devSize += int(body[p+1])
			p += 3
		}
	}
	return def, p, nil
}

// fitCRC is the FIT CRC-16, covering the header and all message bytes.
var fitCRCTable = [16]uint16{
	0x0000, 0xCC01, 0xD801, 0x1400, 0xF001, 0x3C00, 0x2800, 0xE401,
	0xA001, 0x6C00, 0x7800, 0xB401, 0x5000, 0x9C01, 0x8801, 0x4400,
}

func fitCRC(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc >> 4) ^ fitCRCTable[crc&0x0F] ^ fitCRCTable[b&0x0F]
		crc = (crc >> 4) ^ fitCRCTable[crc&0x0F] ^ fitCRCTable[(b>>4)&0x0F]
	}
	return crc
}
