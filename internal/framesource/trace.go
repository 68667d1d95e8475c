package framesource

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/perfgov/internal/errors"
)

// Trace replays frame durations recorded in milliseconds, one per line.
// Blank lines and lines starting with '#' are skipped.
type Trace struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// OpenTrace opens a trace file.
func OpenTrace(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New().Wrap(ErrOpenTrace, err)
	}

	t := NewTrace(f)
	t.closer = f

	return t, nil
}

// NewTrace reads a trace from r.
func NewTrace(r io.Reader) *Trace {
	return &Trace{scanner: bufio.NewScanner(r)}
}

func (t *Trace) Next(ctx context.Context) (time.Duration, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				return 0, errors.New().Wrap(ErrInvalidTrace, err)
			}
			return 0, io.EOF
		}
		t.line++

		text := strings.TrimSpace(t.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		ms, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, errors.New().WithData(ErrInvalidTrace, struct {
				Line  int
				Value string
			}{
				Line:  t.line,
				Value: text,
			})
		}

		return time.Duration(math.Round(ms * float64(time.Millisecond))), nil
	}
}

func (t *Trace) Close() error {
	if t.closer == nil {
		return nil
	}

	return t.closer.Close()
}
