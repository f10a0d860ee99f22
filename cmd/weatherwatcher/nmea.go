package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/gps"
)

func newNMEACmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nmea <capture>",
		Short: "Replay a NMEA capture through the position parser",
		Long: `Feeds a recorded NMEA stream to the parser and prints the fix or fault
each line produced. Overlong lines are handed over in bounded chunks and go
through the same overflow and resync handling as live input. Use "-" to read
stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			sum, err := replayNMEA(in, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "lines=%d fixes=%d faults=%d\n", sum.lines, sum.fixes, sum.faults)
			return nil
		},
	}
}

type nmeaSummary struct {
	lines  int
	fixes  int
	faults int
}

type faultCount struct{ n *int }

func (f faultCount) RequestFault(feedback.FaultKind) bool {
	*f.n++
	return true
}

// lineGate hands the raw stream to the parser and pauses after each newline,
// so every Next call covers at most one line. A stream that ends mid-line
// gets one synthetic newline.
type lineGate struct {
	r *bufio.Reader

	line    int
	last    byte
	paused  bool
	flushed bool
	done    bool
	err     error
}

func (g *lineGate) ReadByte() (byte, error) {
	if g.paused || g.done {
		return 0, io.EOF
	}
	b, err := g.r.ReadByte()
	if err != nil {
		if !errors.Is(err, io.EOF) && g.err == nil {
			g.err = err
		}
		if g.line == 0 || g.last == '\n' || g.flushed {
			g.done = true
			return 0, io.EOF
		}
		g.flushed = true
		b = '\n'
	}
	if g.line == 0 || g.last == '\n' {
		g.line++
	}
	g.last = b
	if b == '\n' {
		g.paused = true
	}
	return b, nil
}

func replayNMEA(in io.Reader, out io.Writer) (nmeaSummary, error) {
	var sum nmeaSummary
	p := gps.NewParser(faultCount{&sum.faults})
	g := &lineGate{r: bufio.NewReader(in)}
	for !g.done {
		g.paused = false
		res := p.Next(g)
		switch res.Kind {
		case gps.FixFound:
			sum.fixes++
			fmt.Fprintf(out, "%d: fix %.6f, %.6f\n", g.line, res.Fix.Latitude, res.Fix.Longitude)
		case gps.Malformed:
			fmt.Fprintf(out, "%d: %s\n", g.line, feedback.PositionAccess)
		}
	}
	sum.lines = g.line
	return sum, g.err
}
