package sensor

import (
	"bufio"
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Replay reads "x,y,z" samples, one per line, from Reader. Fields may
// be separated by commas or whitespace; blank lines, lines starting
// with '#' and lines which do not parse to finite numbers are skipped.
// Run returns when the reader is exhausted or ctx is cancelled.
type Replay struct {
	Reader io.Reader
	// Interval paces the samples; zero emits them as fast as they are read
	Interval time.Duration
}

func (s *Replay) Run(ctx context.Context, emit func(x, y, z float64)) error {
	var tick <-chan time.Time
	if s.Interval > 0 {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Scan blocks on readers like stdin, so it runs apart from the
	// select on ctx. The scanner goroutine stays parked in Read until the
	// reader yields or is closed.
	lineChan := make(chan string)
	errChan := make(chan error, 1)
	go scanLines(ctx, s.Reader, lineChan, errChan)

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errChan:
			return err
		case line = <-lineChan:
		}

		x, y, z, ok := ParseSample(line)
		if !ok {
			continue
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		emit(x, y, z)
	}
}

func scanLines(ctx context.Context, r io.Reader, lineChan chan<- string, errChan chan<- error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lineChan <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	errChan <- scanner.Err()
}

// ParseSample parses one replay line.
func ParseSample(line string) (float64, float64, float64, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return 0, 0, 0, false
	}

	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) != 3 {
		return 0, 0, 0, false
	}

	var values [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, false
		}
		values[i] = v
	}
	return values[0], values[1], values[2], true
}
