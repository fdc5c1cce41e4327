package sample_test

import (
	"strings"
	"testing"
	"time"

	"glovecap/internal/sample"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestParseWellFormedLine(t *testing.T) {
	p := sample.NewParserWithClock(fixedClock(1_700_000_000_000))

	r, ok := p.Parse("1000,10.5,-3.2,90.0,0.01,-0.02,0.98,512,600,700,800,900")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if r.DeviceMillis != 1000 || r.HostMillis != 1_700_000_000_000 {
		t.Fatalf("unexpected timestamps: %+v", r)
	}
	if r.Pitch != 10.5 || r.Roll != -3.2 || r.Yaw != 90.0 {
		t.Fatalf("unexpected orientation: %+v", r.Orientation())
	}
	if r.AccelX != 0.01 || r.AccelY != -0.02 || r.AccelZ != 0.98 {
		t.Fatalf("unexpected acceleration: %+v", r.Acceleration())
	}
	if r.Flex != [5]int{512, 600, 700, 800, 900} {
		t.Fatalf("unexpected flex: %v", r.Flex)
	}
	if r.SamplingHz != 0 {
		t.Fatalf("first sample should report 0 Hz, got %v", r.SamplingHz)
	}
}

func TestParseSamplingRateSequence(t *testing.T) {
	p := sample.NewParser()
	tail := ",0,0,0,0,0,1,1,1,1,1,1"

	cases := []struct {
		ts   string
		want float64
	}{
		{"1000", 0},
		{"1030", 1000.0 / 30},
		{"1060", 1000.0 / 30},
		{"1060", 1000},
		{"1050", 1000},
	}
	for i, tc := range cases {
		r, ok := p.Parse(tc.ts + tail)
		if !ok {
			t.Fatalf("line %d rejected", i)
		}
		if r.SamplingHz != tc.want {
			t.Fatalf("line %d: SamplingHz = %v, want %v", i, r.SamplingHz, tc.want)
		}
	}
}

func TestParseRejectsMalformedLines(t *testing.T) {
	cases := map[string]string{
		"too few":         "1000,1,2,3,4,5,6,7,8,9,10",
		"too many":        "1000,1,2,3,4,5,6,7,8,9,10,11,12",
		"non numeric":     "1000,abc,2,3,4,5,6,7,8,9,10,11",
		"bad flex":        "1000,1,2,3,4,5,6,7,8,9,x,11",
		"empty":           "",
		"header line":     "timestamp,pitch,roll,yaw,ax,ay,az,flex1,flex2,flex3,flex4,flex5",
		"bad timestamp":   "NaN,1,2,3,4,5,6,7,8,9,10,11",
		"inf timestamp":   "Inf,1,2,3,4,5,6,7,8,9,10,11",
		"huge timestamp":  "9e30,1,2,3,4,5,6,7,8,9,10,11",
		"fractional flex": "1000,1,2,3,4,5,6,512.7,8,9,10,11",
		"exponent flex":   "1000,1,2,3,4,5,6,1e3,8,9,10,11",
		"overflow flex":   "1000,1,2,3,4,5,6,9e30,8,9,10,11",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			p := sample.NewParser()
			if _, ok := p.Parse(line); ok {
				t.Fatalf("expected %q to be rejected", line)
			}
		})
	}
}

func TestRejectedLinesDoNotAdvanceTimestamp(t *testing.T) {
	p := sample.NewParser()
	tail := ",0,0,0,0,0,1,1,1,1,1,1"
	if _, ok := p.Parse("1000" + tail); !ok {
		t.Fatal("first line rejected")
	}
	if _, ok := p.Parse("1020,bad" + tail[2:]); ok {
		t.Fatal("malformed line accepted")
	}
	r, ok := p.Parse("1040" + tail)
	if !ok {
		t.Fatal("third line rejected")
	}
	if r.SamplingHz != 25 {
		t.Fatalf("SamplingHz = %v, want 25", r.SamplingHz)
	}
}

func TestParseAcceptsFloatTimestamp(t *testing.T) {
	p := sample.NewParser()
	r, ok := p.Parse("12.0,0,0,0,0,0,0,1,2,3,4,5")
	if !ok {
		t.Fatal("expected float timestamp to parse")
	}
	if r.DeviceMillis != 12 {
		t.Fatalf("DeviceMillis = %d, want 12", r.DeviceMillis)
	}
}

func TestResetRestartsRateDerivation(t *testing.T) {
	p := sample.NewParser()
	tail := ",0,0,0,0,0,1,1,1,1,1,1"
	p.Parse("1000" + tail)
	p.Reset()
	r, ok := p.Parse("5000" + tail)
	if !ok {
		t.Fatal("line rejected after reset")
	}
	if r.SamplingHz != 0 {
		t.Fatalf("expected 0 Hz after reset, got %v", r.SamplingHz)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	p := sample.NewParserWithClock(fixedClock(42))
	p.Parse("970,0,0,0,0,0,0,0,0,0,0,0")
	r, ok := p.Parse("1000,1.25,-2.5,3.75,0.5,-0.25,1,10,20,30,40,50")
	if !ok {
		t.Fatal("line rejected")
	}

	record := r.Record()
	if len(record) != len(sample.Fields) {
		t.Fatalf("record has %d fields, header has %d", len(record), len(sample.Fields))
	}
	got, err := sample.FromRecord(record)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, r)
	}
}

func TestFieldsStartWithTimestamps(t *testing.T) {
	if got := strings.Join(sample.Fields[:2], ","); got != "timestamp_ms,recv_timestamp_ms" {
		t.Fatalf("unexpected leading fields: %s", got)
	}
	if sample.FieldsVersion < 1 {
		t.Fatal("fields version must be positive")
	}
}
