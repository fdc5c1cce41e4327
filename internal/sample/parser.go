package sample

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// WireFields is the number of comma-separated fields on a device line.
const WireFields = 12

// Parser converts device lines into Readings. It tracks the previous accepted
// device timestamp to derive SamplingHz and is not safe for concurrent use.
type Parser struct {
	lastDeviceMillis int64
	seen             bool
	now              func() time.Time
}

// NewParser returns a parser stamping readings with the wall clock.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// NewParserWithClock returns a parser that stamps HostMillis from now.
func NewParserWithClock(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

// Reset forgets the previous timestamp so the next accepted line reports a
// sampling rate of zero.
func (p *Parser) Reset() {
	p.lastDeviceMillis = 0
	p.seen = false
}

// Parse decodes one line. ok is false when the line does not carry exactly
// twelve fields or any field fails numeric conversion.
func (p *Parser) Parse(line string) (Reading, bool) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != WireFields {
		return Reading{}, false
	}

	ts, ok := parseTimestamp(parts[0])
	if !ok {
		return Reading{}, false
	}

	var floats [6]float64
	for i := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1+i]), 64)
		if err != nil {
			return Reading{}, false
		}
		floats[i] = v
	}

	var flex [FlexChannels]int
	for i := range flex {
		v, ok := parseFlex(parts[7+i])
		if !ok {
			return Reading{}, false
		}
		flex[i] = v
	}

	hz := 0.0
	if p.seen {
		hz = 1000.0 / float64(max(1, ts-p.lastDeviceMillis))
	}
	p.lastDeviceMillis = ts
	p.seen = true

	clock := p.now
	if clock == nil {
		clock = time.Now
	}

	return Reading{
		DeviceMillis: ts,
		HostMillis:   clock().UnixMilli(),
		Pitch:        floats[0],
		Roll:         floats[1],
		Yaw:          floats[2],
		AccelX:       floats[3],
		AccelY:       floats[4],
		AccelZ:       floats[5],
		Flex:         flex,
		SamplingHz:   hz,
	}, true
}

// parseTimestamp accepts integer text and float text such as "12.0", which
// some firmware builds emit, truncating toward zero. Floats outside the int64
// range are rejected.
func parseTimestamp(field string) (int64, bool) {
	field = strings.TrimSpace(field)
	if v, err := strconv.ParseInt(field, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// parseFlex accepts only integer ADC counts.
func parseFlex(field string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, false
	}
	return v, true
}
