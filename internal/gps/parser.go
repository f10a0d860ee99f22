package gps

import (
	"bytes"
	"errors"
	"io"
	"math"

	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/logger"
)

const (
	// MaxFrameLen is the longest NMEA 0183 sentence assembled, in bytes.
	MaxFrameLen = 82

	// DefaultMaxBytesPerCall bounds how much input a single Next call drains.
	DefaultMaxBytesPerCall = 8192
)

// ResultKind tags the outcome of one Next call.
type ResultKind uint8

const (
	NoData ResultKind = iota
	FixFound
	Malformed
)

func (k ResultKind) String() string {
	switch k {
	case NoData:
		return "no_data"
	case FixFound:
		return "fix"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Fix is a position in decimal degrees, negative for South and West.
type Fix struct {
	Latitude  float64
	Longitude float64
	Valid     bool
}

type Result struct {
	Kind ResultKind
	Fix  Fix
}

// FaultReporter accepts fault requests; feedback.Engine satisfies it.
type FaultReporter interface {
	RequestFault(kind feedback.FaultKind) bool
}

type Option func(*Parser)

// WithMaxBytesPerCall overrides DefaultMaxBytesPerCall.
func WithMaxBytesPerCall(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// Parser assembles NMEA sentences from a byte stream and extracts position
// fixes from GGA and RMC frames. A partial line is kept across calls; nothing
// else is retained once a frame has been handled.
type Parser struct {
	faults   FaultReporter
	maxBytes int

	buf      [MaxFrameLen]byte
	n        int
	skipping bool
}

func NewParser(faults FaultReporter, opts ...Option) *Parser {
	p := &Parser{faults: faults, maxBytes: DefaultMaxBytesPerCall}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Next drains src until it reports no more data (any error, io.EOF included)
// or the per-call byte budget is spent. It returns the latest valid fix seen.
// PositionAccess is raised once when a GGA or RMC frame arrived but none of
// them carried a usable fix.
func (p *Parser) Next(src io.ByteReader) Result {
	var (
		res        Result
		recognised bool
	)
	for i := 0; i < p.maxBytes; i++ {
		b, err := src.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug().Err(err).Msg("gps read")
			}
			break
		}
		line, ok := p.push(b)
		if !ok {
			continue
		}
		fix, known := parseFrame(line)
		if !known {
			continue
		}
		recognised = true
		if fix.Valid {
			res = Result{Kind: FixFound, Fix: fix}
		}
	}

	if res.Kind == FixFound {
		return res
	}
	if recognised {
		logger.Debug().Msg("gps frame without usable fix")
		if p.faults != nil {
			p.faults.RequestFault(feedback.PositionAccess)
		}
		return Result{Kind: Malformed}
	}
	return Result{Kind: NoData}
}

// push feeds one byte into the line buffer and returns a complete line when
// b terminates one. The returned slice aliases the buffer.
func (p *Parser) push(b byte) ([]byte, bool) {
	switch b {
	case '\r':
		return nil, false
	case '\n':
		n := p.n
		p.n = 0
		if p.skipping {
			p.skipping = false
			return nil, false
		}
		if n == 0 {
			return nil, false
		}
		return p.buf[:n], true
	case '$':
		p.skipping = false
		p.n = 0
	}
	if p.skipping {
		return nil, false
	}
	if p.n == len(p.buf) {
		p.n = 0
		p.skipping = true
		return nil, false
	}
	p.buf[p.n] = b
	p.n++
	return nil, false
}

// layout holds the field offsets of the coordinate fields of a sentence.
type layout struct {
	lat, latHemi, lon, lonHemi int
	// status is the field that must equal statusOK, or must not equal
	// statusBad when statusOK is zero.
	status    int
	statusOK  byte
	statusBad byte
}

var (
	ggaLayout = layout{lat: 2, latHemi: 3, lon: 4, lonHemi: 5, status: 6, statusBad: '0'}
	rmcLayout = layout{lat: 3, latHemi: 4, lon: 5, lonHemi: 6, status: 2, statusOK: 'A'}

	typeGGA = []byte("GGA")
	typeRMC = []byte("RMC")
)

func sentenceLayout(id []byte) (layout, bool) {
	if len(id) != 5 || id[0] != 'G' || (id[1] != 'P' && id[1] != 'N') {
		return layout{}, false
	}
	switch {
	case bytes.Equal(id[2:], typeGGA):
		return ggaLayout, true
	case bytes.Equal(id[2:], typeRMC):
		return rmcLayout, true
	}
	return layout{}, false
}

// parseFrame reports whether line is a recognised sentence and, if so, the
// fix it carries. fix.Valid is false for unusable frames.
func parseFrame(line []byte) (fix Fix, recognised bool) {
	if len(line) < 2 || line[0] != '$' {
		return Fix{}, false
	}
	payload := line[1:]
	var sum []byte
	if star := bytes.IndexByte(payload, '*'); star >= 0 {
		sum = payload[star+1:]
		payload = payload[:star]
	}

	id, _ := field(payload, 0)
	lay, ok := sentenceLayout(id)
	if !ok {
		return Fix{}, false
	}
	if sum != nil && !checksumOK(payload, sum) {
		return Fix{}, true
	}

	st, ok := field(payload, lay.status)
	if !ok || len(st) != 1 {
		return Fix{}, true
	}
	if lay.statusOK != 0 && st[0] != lay.statusOK {
		return Fix{}, true
	}
	if lay.statusBad != 0 && st[0] == lay.statusBad {
		return Fix{}, true
	}

	lat, ok := coordField(payload, lay.lat, lay.latHemi, 90, 'N', 'S')
	if !ok {
		return Fix{}, true
	}
	lon, ok := coordField(payload, lay.lon, lay.lonHemi, 180, 'E', 'W')
	if !ok {
		return Fix{}, true
	}
	if lat == 0 || lon == 0 || math.IsNaN(lat) || math.IsNaN(lon) {
		return Fix{}, true
	}
	return Fix{Latitude: lat, Longitude: lon, Valid: true}, true
}

// field returns the n-th comma separated field of payload without copying.
func field(payload []byte, n int) ([]byte, bool) {
	for ; n > 0; n-- {
		i := bytes.IndexByte(payload, ',')
		if i < 0 {
			return nil, false
		}
		payload = payload[i+1:]
	}
	if i := bytes.IndexByte(payload, ','); i >= 0 {
		payload = payload[:i]
	}
	return payload, true
}

func coordField(payload []byte, vi, hi int, maxDeg float64, pos, neg byte) (float64, bool) {
	v, ok := field(payload, vi)
	if !ok {
		return 0, false
	}
	h, ok := field(payload, hi)
	if !ok || len(h) != 1 || (h[0] != pos && h[0] != neg) {
		return 0, false
	}
	deg, ok := parseCoord(v)
	if !ok || deg > maxDeg {
		return 0, false
	}
	if h[0] == neg {
		deg = -deg
	}
	return deg, true
}

// parseCoord converts ddmm.mmmm / dddmm.mmmm to decimal degrees.
func parseCoord(v []byte) (float64, bool) {
	raw, ok := parseDecimal(v)
	if !ok {
		return 0, false
	}
	deg := math.Floor(raw / 100)
	mins := raw - deg*100
	if mins >= 60 {
		return 0, false
	}
	return deg + mins/60, true
}

// parseDecimal parses an unsigned decimal such as "4807.038".
func parseDecimal(b []byte) (float64, bool) {
	var (
		v      float64
		frac   = 1.0
		digits int
		dot    bool
	)
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			digits++
			if dot {
				frac /= 10
				v += float64(c-'0') * frac
			} else {
				v = v*10 + float64(c-'0')
			}
		case c == '.' && !dot:
			dot = true
		default:
			return 0, false
		}
	}
	if digits == 0 || digits > 15 {
		return 0, false
	}
	return v, true
}

func checksumOK(payload, sum []byte) bool {
	if len(sum) < 2 {
		return false
	}
	hi, ok1 := hexNibble(sum[0])
	lo, ok2 := hexNibble(sum[1])
	if !ok1 || !ok2 {
		return false
	}
	var got byte
	for _, c := range payload {
		got ^= c
	}
	return got == hi<<4|lo
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
