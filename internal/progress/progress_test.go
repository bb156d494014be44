package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestReporterThrottles(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := NewReporter(&buf, 100, clock)

	// Draws once, then suppresses the rapid follow-ups.
	r.Step(1, "")
	first := buf.Len()
	assert.Greater(t, first, 0)

	clock.advance(time.Millisecond)
	r.Step(1, "")
	r.Step(1, "")
	assert.Equal(t, first, buf.Len())

	clock.advance(200 * time.Millisecond)
	r.Step(1, "")
	assert.Greater(t, buf.Len(), first)
}

func TestReporterFinalStepAlwaysDraws(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := NewReporter(&buf, 2, clock)

	r.Step(1, "")
	r.Step(1, "done")
	assert.Contains(t, buf.String(), "2/2")
	assert.Contains(t, buf.String(), "done")
}

func TestReporterFinishTerminatesLine(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := NewReporter(&buf, 5, clock)

	r.Step(5, "")
	r.Finish("loss=0.01")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "loss=0.01")
}

func TestReporterNilWriter(t *testing.T) {
	r := NewReporter(nil, 10, nil)
	r.Step(3, "")
	r.Finish("")
}

func TestReporterBarWidth(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := NewReporter(&buf, 10, clock)

	r.Step(10, "")
	line := buf.String()
	assert.Contains(t, line, strings.Repeat("=", barWidth))
}
