// Package timer measures wall-clock elapsed time against a run's start,
// the way the simulator timestamps its log lines.
package timer

import (
	"fmt"
	"time"
)

// Timer measures elapsed time since the last Reset.
type Timer struct {
	start time.Time
}

// New returns a Timer reset to now.
func New() *Timer {
	t := &Timer{}
	t.Reset()
	return t
}

// Reset zeroes the timer against the current instant.
func (t *Timer) Reset() {
	t.start = time.Now()
}

// Sleep blocks the calling goroutine for ms simulated milliseconds.
func (t *Timer) Sleep(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Elapsed formats the time since the last Reset as "mm:ss.ssssss".
func (t *Timer) Elapsed() string {
	d := time.Since(t.start)
	minutes := int(d.Minutes())
	seconds := d.Seconds() - float64(minutes*60)
	return fmt.Sprintf("%02d:%09.6f", minutes, seconds)
}
