// Package pcb builds and owns the circular doubly-linked set of process
// control blocks parsed from a program's opcode sequence, and exposes
// the shared eligible-process iterator every scheduling policy uses.
package pcb

import (
	"fmt"

	"github.com/oscore/ossim/config"
	"github.com/oscore/ossim/opcode"
	"github.com/oscore/ossim/output"
)

// State is a PCB's position in its lifecycle.
type State int

const (
	StateNew State = iota
	Ready
	Running
	Blocked
	Exit
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Exit:
		return "EXIT"
	default:
		return "UNKNOWN"
	}
}

// PCB is one process's scheduler-visible state.
type PCB struct {
	Pid                    int
	ProgramHead            *opcode.OpCode
	ProgramEnd             *opcode.OpCode
	ProgramCounter         *opcode.OpCode
	CompletedProgramCycles int
	ConsecutiveCycles      int
	RemainingTotalTime     int
	State                  State

	prev, next int
}

// Manager owns every PCB built from one program, linked into a circular
// doubly-linked set by index, with head fixed at the first-created PCB
// so traversal from head visits PCBs in creation order.
type Manager struct {
	pcbs    []*PCB
	head    int
	current int
}

// New builds one PCB per "app start ... app end" region between head's
// "sys start" and "sys end" brackets, pids dense from zero in
// first-encountered order.
func New(head *opcode.OpCode, cfg *config.Config) *Manager {
	m := &Manager{head: -1, current: -1}

	var building *PCB
	for op := head; op != nil; op = op.Next {
		if op.Command == opcode.App && op.StrArg1 == "start" {
			building = &PCB{
				Pid:         len(m.pcbs),
				ProgramHead: op.Next,
				State:       StateNew,
			}
			continue
		}
		if op.Command == opcode.App && op.StrArg1 == "end" {
			building.ProgramEnd = op
			building.ProgramCounter = building.ProgramHead
			building.RemainingTotalTime = sumCycles(building.ProgramHead, building.ProgramEnd, cfg)
			m.prepend(building)
			building = nil
		}
	}

	return m
}

func sumCycles(from, to *opcode.OpCode, cfg *config.Config) int {
	total := 0
	for op := from; op != to; op = op.Next {
		total += opcode.CycleRate(op, cfg.ProcCycleRate, cfg.IOCycleRate) * op.IntArg2
	}
	return total
}

// prepend links p into the circular list immediately before the head,
// i.e. at the tail of creation-order traversal starting from head. The
// first PCB created becomes and remains head.
func (m *Manager) prepend(p *PCB) {
	idx := len(m.pcbs)
	p.prev, p.next = idx, idx
	m.pcbs = append(m.pcbs, p)

	if m.head == -1 {
		m.head = idx
		return
	}

	tail := m.pcbs[m.head].prev
	p.prev = tail
	p.next = m.head
	m.pcbs[tail].next = idx
	m.pcbs[m.head].prev = idx
}

// Head returns the index of the first-created PCB, or -1 if none exist.
func (m *Manager) Head() int {
	return m.head
}

// Current returns the index of the currently selected PCB, or -1.
func (m *Manager) Current() int {
	return m.current
}

// SetCurrent records idx as the currently selected PCB.
func (m *Manager) SetCurrent(idx int) {
	m.current = idx
}

// Len returns the number of PCBs.
func (m *Manager) Len() int {
	return len(m.pcbs)
}

// At returns the PCB at idx.
func (m *Manager) At(idx int) *PCB {
	return m.pcbs[idx]
}

// Next returns the index following idx in the circular list.
func (m *Manager) Next(idx int) int {
	return m.pcbs[idx].next
}

// AllExited reports whether every PCB has reached state Exit.
func (m *Manager) AllExited() bool {
	for _, p := range m.pcbs {
		if p.State != Exit {
			return false
		}
	}
	return true
}

// ClearAll transitions every PCB to Exit, without logging: used only at
// simulation teardown after the main loop has already finished.
func (m *Manager) ClearAll() {
	for _, p := range m.pcbs {
		p.State = Exit
	}
}

// SetState transitions p to s, logging the change when it actually
// changes p's state.
func (m *Manager) SetState(p *PCB, s State, sink *output.Sink) {
	if p.State == s {
		return
	}
	old := p.State
	p.State = s
	sink.Log(fmt.Sprintf("OS: Process %d set from %s to %s", p.Pid, old, s))
}

// TaskDescription formats the start/end message for p's current opcode.
func (p *PCB) TaskDescription(start bool) (string, bool) {
	return opcode.TaskDescription(p.Pid, p.ProgramCounter, start)
}

// Eligible returns an iterator yielding PCB indices starting at anchor,
// inclusive, wrapping the circular list until back at anchor, filtered
// to PCBs in state Ready or Running. Exhausted once it returns
// (_, false).
func (m *Manager) Eligible(anchor int) func() (int, bool) {
	started := false
	idx := anchor
	return func() (int, bool) {
		for {
			if started && idx == anchor {
				return -1, false
			}
			started = true
			cur := idx
			idx = m.pcbs[idx].next
			if m.pcbs[cur].State == Ready || m.pcbs[cur].State == Running {
				return cur, true
			}
			if idx == anchor {
				return -1, false
			}
		}
	}
}
