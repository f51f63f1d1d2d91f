package ingest

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync/atomic"

	"imu-fusion/models"
	"imu-fusion/utils"
)

// counters is embedded by every reader for produce/drop bookkeeping.
type counters struct {
	produced uint64
	dropped  uint64
}

// Stats returns (produced, dropped).
func (c *counters) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&c.produced), atomic.LoadUint64(&c.dropped)
}

// ordering rejects samples whose timestamp goes backwards. The fusion
// engine assumes non-decreasing time, so out-of-order samples never leave
// the importer.
type ordering struct {
	last int64
	seen bool
}

func (o *ordering) accept(ts int64) bool {
	if o.seen && ts < o.last {
		return false
	}
	o.last = ts
	o.seen = true
	return true
}

// scanSamples parses one sample per line from r and hands each accepted
// sample to emit. Blank lines and lines starting with '#' are skipped;
// malformed and out-of-order lines are counted as dropped. Scanning stops
// when r is exhausted, ctx is cancelled, or emit returns false.
func scanSamples(ctx context.Context, r io.Reader, source string, c *counters, emit func(models.Sample) bool) error {
	sc := bufio.NewScanner(r)
	var order ordering
	lineNo := 0

	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		lineNo++

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s, err := models.ParseSample(line)
		if err != nil {
			atomic.AddUint64(&c.dropped, 1)
			utils.L().Warn("%s line %d: %v", source, lineNo, err)
			continue
		}
		if !order.accept(s.TimestampNs) {
			atomic.AddUint64(&c.dropped, 1)
			utils.L().Warn("%s line %d: timestamp %d before %d, skipped", source, lineNo, s.TimestampNs, order.last)
			continue
		}

		if !emit(s) {
			return nil
		}
		atomic.AddUint64(&c.produced, 1)
	}
	return sc.Err()
}

// send delivers s on out, blocking until there is room or ctx is done.
func send(ctx context.Context, out chan<- models.Sample, s models.Sample) bool {
	select {
	case out <- s:
		return true
	case <-ctx.Done():
		return false
	}
}
