// Package irq is the asynchronous interrupt manager: it dispatches
// timed I/O completions as background goroutines and delivers them,
// in completion order, through a thread-safe FIFO of completed PCBs.
package irq

import (
	"sync"
	"time"

	"github.com/oscore/ossim/pcb"
)

// Manager owns the completion FIFO and the count of outstanding
// dispatched I/Os. All three (FIFO, counter, their invariants) are
// mutated only while holding mu.
type Manager struct {
	mu          sync.Mutex
	fifo        []*pcb.PCB
	outstanding int
	wg          sync.WaitGroup
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{}
}

// Dispatch schedules p's I/O completion after d and returns immediately.
// The outstanding counter is incremented before the background goroutine
// launches, so a caller that checks Outstanding() right after Dispatch
// returns always observes the dispatch.
func (m *Manager) Dispatch(p *pcb.PCB, d time.Duration) {
	m.mu.Lock()
	m.outstanding++
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		time.Sleep(d)
		m.mu.Lock()
		m.fifo = append(m.fifo, p)
		m.outstanding--
		m.mu.Unlock()
	}()
}

// Poll removes and returns the head of the completion FIFO, or
// (nil, false) if it is empty.
func (m *Manager) Poll() (*pcb.PCB, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.fifo) == 0 {
		return nil, false
	}
	p := m.fifo[0]
	m.fifo = m.fifo[1:]
	return p, true
}

// IsEmpty reports whether the completion FIFO currently holds nothing.
func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fifo) == 0
}

// Outstanding reports whether any dispatched I/O has not yet completed.
func (m *Manager) Outstanding() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outstanding > 0
}

// Shutdown blocks until every dispatched goroutine has finished pushing
// its completion onto the FIFO.
func (m *Manager) Shutdown() {
	m.wg.Wait()
}
