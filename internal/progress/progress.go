// Package progress renders throttled single-line training progress output.
package progress

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	barWidth    = 30
	minInterval = 100 * time.Millisecond
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Reporter writes an in-place progress bar, throttled so that tight
// training loops do not spend their time printing.
type Reporter struct {
	w     io.Writer
	clock Clock
	total int

	count    int
	started  time.Time
	lastDraw time.Time
}

// NewReporter creates a reporter for total steps writing to w. A nil writer
// disables all output.
func NewReporter(w io.Writer, total int, clock Clock) *Reporter {
	if clock == nil {
		clock = SystemClock{}
	}
	r := &Reporter{w: w, clock: clock, total: total}
	r.started = clock.Now()
	return r
}

// Step records completed steps and redraws the bar when enough time has
// passed since the last draw. The final step always draws.
func (r *Reporter) Step(n int, note string) {
	r.count += n
	if r.w == nil {
		return
	}

	now := r.clock.Now()
	if r.count < r.total && now.Sub(r.lastDraw) < minInterval {
		return
	}
	r.lastDraw = now
	r.draw(now, note)
}

// Finish redraws one last time and terminates the line.
func (r *Reporter) Finish(note string) {
	if r.w == nil {
		return
	}
	r.draw(r.clock.Now(), note)
	fmt.Fprintln(r.w)
}

func (r *Reporter) draw(now time.Time, note string) {
	done := r.count
	if done > r.total {
		done = r.total
	}
	filled := 0
	if r.total > 0 {
		filled = done * barWidth / r.total
	}

	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	elapsed := now.Sub(r.started).Round(time.Millisecond)
	fmt.Fprintf(r.w, "\r[%s] %d/%d %s %s", bar, done, r.total, elapsed, note)
}
