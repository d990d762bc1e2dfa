// Package sim is the scheduler and driver loop: it couples the PCB
// manager, the interrupt manager, and the memory manager into a single
// event stream, selecting the next ready process by the configured
// policy and advancing it one opcode at a time until every process has
// exited.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/oscore/ossim/config"
	"github.com/oscore/ossim/irq"
	"github.com/oscore/ossim/memory"
	"github.com/oscore/ossim/opcode"
	"github.com/oscore/ossim/output"
	"github.com/oscore/ossim/pcb"
	"github.com/oscore/ossim/timer"
)

// Renderer is the optional live view of the memory-segment map and
// process states, fed by Simulator whenever one attaches.
type Renderer interface {
	ShowMemory(segs []memory.SegmentView)
	ShowProcess(pid int, state pcb.State)
	Close()
}

// Simulator runs one program to completion under one configuration.
type Simulator struct {
	cfg    *config.Config
	pcbs   *pcb.Manager
	mem    *memory.Manager
	irqMgr *irq.Manager
	sink   *output.Sink
	clock  *timer.Timer

	render Renderer

	idling bool
}

// New returns a Simulator ready to run the program described by head.
func New(cfg *config.Config, head *opcode.OpCode, sink *output.Sink) *Simulator {
	return &Simulator{
		cfg:    cfg,
		pcbs:   pcb.New(head, cfg),
		mem:    memory.New(cfg.MemAvailable),
		irqMgr: irq.New(),
		sink:   sink,
		clock:  timer.New(),
	}
}

// Attach wires r to receive memory and process-state updates for the
// rest of the run. It has no effect on scheduling semantics or log
// output.
func (s *Simulator) Attach(r Renderer) {
	s.render = r
}

// Run executes the driver loop to completion. ctx is honored only as a
// best-effort early-abort hook: once cancelled, Run stops starting new
// foreground work, but still waits for every already-dispatched
// interrupt to complete before returning, matching the no-cancellation
// guarantee the interrupt manager's Shutdown makes.
func (s *Simulator) Run(ctx context.Context) error {
	s.clock.Reset()
	s.sink.Log("OS: Simulator start")

	for i := 0; i < s.pcbs.Len(); i++ {
		s.pcbs.SetState(s.pcbs.At(i), pcb.Ready, s.sink)
	}

	head := s.pcbs.Head()
	current := head
	s.selectProcess(current, true)

	for !s.done() {
		if ctx.Err() != nil {
			break
		}

		if completed, ok := s.irqMgr.Poll(); ok {
			var selectNext bool
			current, selectNext = s.drainInterrupt(completed, current)
			if selectNext {
				current = s.selectNextProcess(current)
			}
			continue
		}

		if current == -1 {
			s.enterIdleIfNeeded()
			time.Sleep(time.Millisecond)
			continue
		}

		next, selectNext := s.executeOpcode(current)
		if selectNext {
			current = s.selectNextProcess(current)
		} else {
			current = next
		}
	}

	s.irqMgr.Shutdown()
	for completed, ok := s.irqMgr.Poll(); ok; completed, ok = s.irqMgr.Poll() {
		s.pcbs.SetState(completed, pcb.Ready, s.sink)
	}

	s.pcbs.ClearAll()
	s.sink.Direct(s.mem.Display("After clear all process success"))
	s.sink.Log("OS: Simulation End")

	if err := s.sink.Flush(s.cfg.LogFilePath); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}

func (s *Simulator) done() bool {
	return s.pcbs.AllExited() && !s.irqMgr.Outstanding() && s.irqMgr.IsEmpty()
}

// selectProcess makes idx the current PCB, transitions it to Running,
// and (if startOperation) emits its selection and first opcode's start
// line.
func (s *Simulator) selectProcess(idx int, startOperation bool) {
	p := s.pcbs.At(idx)
	s.pcbs.SetState(p, pcb.Running, s.sink)
	s.pcbs.SetCurrent(idx)
	if s.render != nil {
		s.render.ShowProcess(p.Pid, p.State)
	}
	if startOperation {
		s.sink.Log(fmt.Sprintf("OS: Process %d selected to run", p.Pid))
		if desc, ok := p.TaskDescription(true); ok {
			s.sink.Log(desc)
		}
	}
}

func (s *Simulator) enterIdleIfNeeded() {
	if s.idling {
		return
	}
	s.idling = true
	s.sink.Log("OS: CPU idle, all active processes blocked")
}

// drainInterrupt handles one completed I/O, per the two branches of the
// distilled spec's loop step 1. It returns the new current index and
// whether the caller must now run policy selection.
func (s *Simulator) drainInterrupt(completed *pcb.PCB, current int) (int, bool) {
	if current == -1 {
		s.idling = false
		s.sink.Log("OS: CPU interrupt, end idle")
		s.sink.Log(fmt.Sprintf("OS: Interrupted by process %d", completed.Pid))
		s.pcbs.SetState(completed, pcb.Ready, s.sink)
		idx := s.indexOf(completed)
		s.selectProcess(idx, false)
		ended := s.advance(idx)
		return idx, ended
	}

	curP := s.pcbs.At(current)
	s.sink.Log("OS: Blocking current process for interrupt")
	s.pcbs.SetState(curP, pcb.Blocked, s.sink)
	s.sink.Log(fmt.Sprintf("OS: Interrupted by process %d", completed.Pid))

	s.pcbs.SetState(completed, pcb.Running, s.sink)
	idx := s.indexOf(completed)
	if ended := s.advance(idx); !ended {
		s.pcbs.SetState(s.pcbs.At(idx), pcb.Ready, s.sink)
	}

	s.sink.Log("OS: Done interrupting, continue with current")
	s.pcbs.SetState(curP, pcb.Running, s.sink)
	s.pcbs.SetCurrent(current)
	return current, false
}

func (s *Simulator) indexOf(p *pcb.PCB) int {
	for i := 0; i < s.pcbs.Len(); i++ {
		if s.pcbs.At(i) == p {
			return i
		}
	}
	return -1
}

// executeOpcode runs exactly one of the three branches of the distilled
// spec's loop step 2, returning either the next current index (when it
// did not request a process switch) or (anything, true) when it did.
func (s *Simulator) executeOpcode(current int) (int, bool) {
	p := s.pcbs.At(current)
	op := p.ProgramCounter

	switch {
	case op.Command == opcode.Mem:
		s.performMemoryOperation(p, op)
		ended := s.advance(current)
		return current, ended

	case op.Command == opcode.Dev && s.cfg.Sched.Preemptive():
		if desc, ok := p.TaskDescription(true); ok {
			s.sink.Log(desc)
		}
		duration := s.cfg.IOCycleRate * op.IntArg2
		p.RemainingTotalTime -= duration
		s.pcbs.SetState(p, pcb.Blocked, s.sink)
		s.irqMgr.Dispatch(p, time.Duration(duration)*time.Millisecond)
		return current, true

	default:
		if p.CompletedProgramCycles == 0 {
			if desc, ok := p.TaskDescription(true); ok {
				s.sink.Log(desc)
			}
		}
		p.ConsecutiveCycles = 0
		for {
			s.runCycle(p, op)
			if p.CompletedProgramCycles >= op.IntArg2 {
				ended := s.advance(current)
				return current, ended
			}
			if !s.irqMgr.IsEmpty() {
				return current, false
			}
			if s.quantumReached(p) {
				s.sink.Log(fmt.Sprintf("OS: Process %d quantum time out", p.Pid))
				return current, true
			}
		}
	}
}

func (s *Simulator) performMemoryOperation(p *pcb.PCB, op *opcode.OpCode) {
	switch op.StrArg1 {
	case "allocate":
		if s.mem.AllocateFirstFit(p.Pid, op.IntArg2, op.IntArg3) {
			s.sink.Direct(s.mem.Display(fmt.Sprintf("After allocate success Process %d", p.Pid)))
		} else {
			s.sink.Direct(s.mem.Display("After allocate failure, not enough memory"))
		}
	case "access":
		if s.mem.Access(p.Pid, op.IntArg2, op.IntArg3) {
			s.sink.Direct(s.mem.Display(fmt.Sprintf("After access success Process %d", p.Pid)))
		} else {
			s.sink.Direct(s.mem.Display("After access failure"))
		}
	}
	if s.render != nil {
		s.render.ShowMemory(s.mem.Segments())
	}
}

// runCycle sleeps for one cycle of op and accounts for it.
func (s *Simulator) runCycle(p *pcb.PCB, op *opcode.OpCode) {
	s.clock.Sleep(opcode.CycleRate(op, s.cfg.ProcCycleRate, s.cfg.IOCycleRate))
	p.RemainingTotalTime--
	p.CompletedProgramCycles++
	p.ConsecutiveCycles++
}

// quantumReached applies only under RR-P.
func (s *Simulator) quantumReached(p *pcb.PCB) bool {
	if s.cfg.Sched != config.RRP {
		return false
	}
	return p.ConsecutiveCycles >= s.cfg.QuantumCycles
}

// advance steps idx's PCB to its next opcode, emitting the end line for
// the one it just finished, and handles process termination. It returns
// true iff the PCB reached programEnd (and so is now Exit).
func (s *Simulator) advance(idx int) bool {
	p := s.pcbs.At(idx)
	if desc, ok := p.TaskDescription(false); ok {
		s.sink.Log(desc)
	}
	p.ProgramCounter = p.ProgramCounter.Next
	p.CompletedProgramCycles = 0
	p.ConsecutiveCycles = 0

	if p.ProgramCounter != p.ProgramEnd {
		return false
	}

	s.sink.Log(fmt.Sprintf("OS: Process %d ended", p.Pid))
	s.mem.DeallocateProcess(p.Pid)
	s.pcbs.SetState(p, pcb.Exit, s.sink)
	if s.render != nil {
		s.render.ShowProcess(p.Pid, p.State)
		s.render.ShowMemory(s.mem.Segments())
	}
	return true
}

// selectNextProcess implements §4.4.1's per-policy selection, then
// transitions the result to Running if it differs from current.
func (s *Simulator) selectNextProcess(current int) int {
	anchor := s.pcbs.Head()
	if s.cfg.Sched == config.RRP && current != -1 {
		anchor = s.pcbs.Next(current)
	}

	next := s.pcbs.Eligible(anchor)
	best := -1

	switch s.cfg.Sched {
	case config.SJFN, config.SRTFP:
		bestTime := -1
		for {
			idx, ok := next()
			if !ok {
				break
			}
			t := s.pcbs.At(idx).RemainingTotalTime
			if best == -1 || t < bestTime {
				best = idx
				bestTime = t
			}
		}
	default: // FCFS-N, FCFS-P, RR-P
		idx, ok := next()
		if ok {
			best = idx
		}
	}

	if best == -1 {
		s.pcbs.SetCurrent(-1)
		return -1
	}

	// A process reaching here via quantum timeout is still nominally
	// Running; demote it to Ready when a different process is chosen so
	// two PCBs are never left marked Running at once.
	if best != current && current != -1 && s.pcbs.At(current).State == pcb.Running {
		s.pcbs.SetState(s.pcbs.At(current), pcb.Ready, s.sink)
	}

	s.selectProcess(best, best != current)
	return best
}
