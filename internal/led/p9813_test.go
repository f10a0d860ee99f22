package led

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherwatcher/internal/feedback"
)

// wire captures the data level at every rising clock edge.
type wire struct {
	data   int
	clk    int
	bits   []int
	closed int
	err    error
}

type dataLine struct{ w *wire }

func (l dataLine) Value() (int, error) { return l.w.data, nil }
func (l dataLine) SetValue(v int) error {
	l.w.data = v
	return l.w.err
}
func (l dataLine) Close() error { l.w.closed++; return nil }

type clkLine struct{ w *wire }

func (l clkLine) Value() (int, error) { return l.w.clk, nil }
func (l clkLine) SetValue(v int) error {
	if l.w.clk == 0 && v == 1 {
		l.w.bits = append(l.w.bits, l.w.data)
	}
	l.w.clk = v
	return nil
}
func (l clkLine) Close() error { l.w.closed++; return nil }

func (w *wire) bytes() []byte {
	out := make([]byte, 0, len(w.bits)/8)
	for i := 0; i+8 <= len(w.bits); i += 8 {
		var b byte
		for _, bit := range w.bits[i : i+8] {
			b = b<<1 | byte(bit)
		}
		out = append(out, b)
	}
	return out
}

func newTestChain(count int) (*Chain, *wire) {
	w := &wire{}
	return New(clkLine{w}, dataLine{w}, count), w
}

func TestFrame(t *testing.T) {
	cases := []struct {
		col  feedback.Color
		want [4]byte
	}{
		{feedback.Black, [4]byte{0xFF, 0, 0, 0}},
		{feedback.Red, [4]byte{0xFC, 0, 0, 255}},
		{feedback.Green, [4]byte{0xF3, 0, 255, 0}},
		{feedback.Blue, [4]byte{0xCF, 255, 0, 0}},
		{feedback.White, [4]byte{0xC0, 255, 255, 255}},
		{feedback.Orange, [4]byte{0xF0 | 0x04, 0, 165, 255}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, frame(tc.col), tc.col.String())
	}
}

func TestSetColor_WireFormat(t *testing.T) {
	c, w := newTestChain(1)
	require.NoError(t, c.SetColor(feedback.Yellow))

	want := []byte{
		0, 0, 0, 0,
		0xF0, 0, 255, 255,
		0, 0, 0, 0,
	}
	assert.Equal(t, want, w.bytes())
	assert.Len(t, w.bits, len(want)*8)
}

func TestSetColor_Chain(t *testing.T) {
	c, w := newTestChain(3)
	require.NoError(t, c.SetColor(feedback.Blue))

	got := w.bytes()
	require.Len(t, got, 4+3*4+4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, []byte{0xCF, 255, 0, 0}, got[4+4*i:8+4*i])
	}
}

func TestSetColor_LineError(t *testing.T) {
	c, w := newTestChain(1)
	w.err = errors.New("EIO")
	err := c.SetColor(feedback.Red)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "led: data")
}

func TestClose_BlanksAndReleases(t *testing.T) {
	c, w := newTestChain(1)
	require.NoError(t, c.Close())
	assert.Equal(t, 2, w.closed)
	assert.Equal(t, []byte{0, 0, 0, 0, 0xFF, 0, 0, 0, 0, 0, 0, 0}, w.bytes())
}

func TestNew_DefaultCount(t *testing.T) {
	c, _ := newTestChain(0)
	assert.Equal(t, 1, c.count)
}
