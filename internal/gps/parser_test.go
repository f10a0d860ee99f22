package gps

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherwatcher/internal/feedback"
)

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

type faultCounter struct {
	kinds []feedback.FaultKind
}

func (f *faultCounter) RequestFault(k feedback.FaultKind) bool {
	f.kinds = append(f.kinds, k)
	return true
}

func newTestParser(opts ...Option) (*Parser, *faultCounter) {
	fc := &faultCounter{}
	return NewParser(fc, opts...), fc
}

const exampleGGA = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n"

func TestNext_GGAExample(t *testing.T) {
	p, fc := newTestParser()
	res := p.Next(strings.NewReader(exampleGGA))

	require.Equal(t, FixFound, res.Kind)
	assert.True(t, res.Fix.Valid)
	assert.InDelta(t, 48.1173, res.Fix.Latitude, 1e-4)
	assert.InDelta(t, 11.5167, res.Fix.Longitude, 1e-4)
	assert.Empty(t, fc.kinds)
}

func TestNext_EmptyGGAFieldsRaisesOnce(t *testing.T) {
	p, fc := newTestParser()
	res := p.Next(strings.NewReader("$GPGGA,,,,,,,,,,,,,,\n"))

	assert.Equal(t, Malformed, res.Kind)
	assert.False(t, res.Fix.Valid)
	assert.Equal(t, []feedback.FaultKind{feedback.PositionAccess}, fc.kinds)
}

func TestNext_SeveralBadFramesRaiseOncePerCall(t *testing.T) {
	p, fc := newTestParser()
	in := "$GPGGA,,,,,,,,,,,,,,\n$GPRMC,,V,,,,,,,,,,\n$GNGGA,,,,,,0,,,,,,,\n"
	res := p.Next(strings.NewReader(in))

	assert.Equal(t, Malformed, res.Kind)
	assert.Len(t, fc.kinds, 1)
}

func TestNext_UnrelatedSentenceIgnored(t *testing.T) {
	p, fc := newTestParser()
	in := nmeaLine("GPGSV,3,1,11,03,03,111,00,04,15,270,00,06,01,010,00,13,06,292,00") +
		nmeaLine("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K") +
		"garbage without dollar\n"
	res := p.Next(strings.NewReader(in))

	assert.Equal(t, NoData, res.Kind)
	assert.Empty(t, fc.kinds)
}

func TestNext_NoInputIsNotAnError(t *testing.T) {
	p, fc := newTestParser()
	assert.Equal(t, NoData, p.Next(strings.NewReader("")).Kind)
	assert.Equal(t, NoData, p.Next(strings.NewReader("\r\n\n\n")).Kind)
	assert.Empty(t, fc.kinds)
}

func TestNext_OverlongLineDiscarded(t *testing.T) {
	long := "$GPGGA,123519,1111.111,N,02222.222,E,1,08,0.9,545.4,M,46.9,M," + strings.Repeat("9", 60)
	require.Greater(t, len(long), MaxFrameLen)

	cases := []struct {
		name string
		in   string
	}{
		{name: "FollowedByFrame", in: long + exampleGGA},
		{name: "FollowedByNewline", in: long + "\n" + exampleGGA},
		{name: "GarbageThenNewline", in: strings.Repeat("x", 200) + "\n" + exampleGGA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, fc := newTestParser()
			res := p.Next(strings.NewReader(tc.in))

			require.Equal(t, FixFound, res.Kind)
			assert.InDelta(t, 48.1173, res.Fix.Latitude, 1e-4)
			assert.Empty(t, fc.kinds)
			assert.Equal(t, NoData, p.Next(strings.NewReader("")).Kind)
		})
	}
}

func TestNext_OverlongTailDoesNotBecomeAFrame(t *testing.T) {
	// The tail after an overflow is dropped up to the newline, so the embedded
	// sentence text never reaches the parser.
	in := strings.Repeat("x", MaxFrameLen+1) + "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,\n"
	p, fc := newTestParser()
	assert.Equal(t, NoData, p.Next(strings.NewReader(in)).Kind)
	assert.Empty(t, fc.kinds)
}

func TestNext_MaxLengthLineAccepted(t *testing.T) {
	payload := "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"
	pad := MaxFrameLen - len(payload) - 4 // '$', '*', two checksum digits
	line := nmeaLine(payload + strings.Repeat("0", pad))
	require.Equal(t, MaxFrameLen+2, len(line)) // plus CRLF

	p, _ := newTestParser()
	assert.Equal(t, FixFound, p.Next(strings.NewReader(line)).Kind)
}

func TestNext_RMC(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		kind    ResultKind
		lat     float64
		lon     float64
	}{
		{name: "Active", payload: "GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W", kind: FixFound, lat: 48.1173, lon: 11.5167},
		{name: "GNTalkerSouthWest", payload: "GNRMC,123519,A,3351.000,S,15112.600,W,0.0,0.0,010124,,", kind: FixFound, lat: -33.85, lon: -151.21},
		{name: "Void", payload: "GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W", kind: Malformed},
		{name: "BadHemisphere", payload: "GPRMC,123519,A,4807.038,E,01131.000,E,022.4,084.4,230394,003.1,W", kind: Malformed},
		{name: "Truncated", payload: "GPRMC,123519,A,4807.038,N", kind: Malformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newTestParser()
			res := p.Next(strings.NewReader(nmeaLine(tc.payload)))
			require.Equal(t, tc.kind, res.Kind)
			if tc.kind == FixFound {
				assert.InDelta(t, tc.lat, res.Fix.Latitude, 1e-4)
				assert.InDelta(t, tc.lon, res.Fix.Longitude, 1e-4)
			}
		})
	}
}

func TestNext_GGARejects(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{name: "NoFixQuality", payload: "GPGGA,123519,4807.038,N,01131.000,E,0,00,,,M,,M,,"},
		{name: "MinutesOutOfRange", payload: "GPGGA,123519,4875.000,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"},
		{name: "LatitudeOutOfRange", payload: "GPGGA,123519,9107.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"},
		{name: "LongitudeOutOfRange", payload: "GPGGA,123519,4807.038,N,18131.000,E,1,08,0.9,545.4,M,46.9,M,,"},
		{name: "ZeroCoordinates", payload: "GPGGA,123519,0000.000,N,00000.000,E,1,08,0.9,545.4,M,46.9,M,,"},
		{name: "ZeroLatitude", payload: "GPGGA,123519,0000.000,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"},
		{name: "SignedValue", payload: "GPGGA,123519,-4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"},
		{name: "TwoDots", payload: "GPGGA,123519,4807.0.38,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, fc := newTestParser()
			res := p.Next(strings.NewReader(nmeaLine(tc.payload)))
			assert.Equal(t, Malformed, res.Kind)
			assert.Len(t, fc.kinds, 1)
		})
	}
}

func TestNext_Checksum(t *testing.T) {
	good := nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	star := strings.IndexByte(good, '*')

	t.Run("Mismatch", func(t *testing.T) {
		p, fc := newTestParser()
		bad := good[:star+1] + "00\r\n"
		assert.Equal(t, Malformed, p.Next(strings.NewReader(bad)).Kind)
		assert.Len(t, fc.kinds, 1)
	})
	t.Run("LowercaseHex", func(t *testing.T) {
		p, _ := newTestParser()
		lower := good[:star] + strings.ToLower(good[star:])
		assert.Equal(t, FixFound, p.Next(strings.NewReader(lower)).Kind)
	})
	t.Run("Absent", func(t *testing.T) {
		p, _ := newTestParser()
		bare := good[:star] + "\n"
		assert.Equal(t, FixFound, p.Next(strings.NewReader(bare)).Kind)
	})
	t.Run("Short", func(t *testing.T) {
		p, _ := newTestParser()
		short := good[:star+2] + "\n"
		assert.Equal(t, Malformed, p.Next(strings.NewReader(short)).Kind)
	})
}

func TestNext_LatestFixWinsAndSuppressesFault(t *testing.T) {
	in := "$GPGGA,,,,,,,,,,,,,,\n" +
		exampleGGA +
		nmeaLine("GNRMC,123520,A,3351.000,S,15112.600,E,0.0,0.0,010124,,")
	p, fc := newTestParser()
	res := p.Next(strings.NewReader(in))

	require.Equal(t, FixFound, res.Kind)
	assert.InDelta(t, -33.85, res.Fix.Latitude, 1e-4)
	assert.Empty(t, fc.kinds)
}

func TestNext_PartialLineSpansCalls(t *testing.T) {
	p, fc := newTestParser()
	half := len(exampleGGA) / 2

	assert.Equal(t, NoData, p.Next(strings.NewReader(exampleGGA[:half])).Kind)
	res := p.Next(strings.NewReader(exampleGGA[half:]))
	assert.Equal(t, FixFound, res.Kind)
	assert.Empty(t, fc.kinds)
}

func TestNext_ByteBudget(t *testing.T) {
	p, _ := newTestParser(WithMaxBytesPerCall(16))
	r := strings.NewReader(exampleGGA)

	calls := 0
	var res Result
	for res.Kind == NoData && calls < 20 {
		res = p.Next(r)
		calls++
	}
	assert.Equal(t, FixFound, res.Kind)
	assert.Equal(t, (len(exampleGGA)+15)/16, calls)
}

func TestNext_DollarRestartsFrame(t *testing.T) {
	p, _ := newTestParser()
	in := "$GPGGA,123519,48" + exampleGGA
	assert.Equal(t, FixFound, p.Next(strings.NewReader(in)).Kind)
}

func TestNext_NilFaultReporter(t *testing.T) {
	p := NewParser(nil)
	assert.Equal(t, Malformed, p.Next(strings.NewReader("$GPGGA,,,,,,,,,,,,,,\n")).Kind)
}

func TestNext_NoAllocations(t *testing.T) {
	p, _ := newTestParser()
	data := []byte(exampleGGA + exampleGGA)
	r := bytes.NewReader(nil)

	allocs := testing.AllocsPerRun(100, func() {
		r.Reset(data)
		if p.Next(r).Kind != FixFound {
			t.Fatal("expected fix")
		}
	})
	assert.Zero(t, allocs)
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4807.038", 4807.038, true},
		{"0", 0, true},
		{".5", 0.5, true},
		{"12.", 12, true},
		{"", 0, false},
		{".", 0, false},
		{"1e3", 0, false},
		{"+1", 0, false},
		{"1234567890123456", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseDecimal([]byte(tc.in))
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9, tc.in)
		}
	}
}
