package sim

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oscore/ossim/config"
	"github.com/oscore/ossim/opcode"
	"github.com/oscore/ossim/output"
	"github.com/oscore/ossim/timer"
)

func chain(ops ...opcode.OpCode) *opcode.OpCode {
	nodes := make([]*opcode.OpCode, len(ops))
	for i := range ops {
		cp := ops[i]
		nodes[i] = &cp
	}
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].Next = nodes[i+1]
	}
	return nodes[0]
}

func baseConfig(t *testing.T, sched config.SchedPolicy, quantum int) *config.Config {
	return &config.Config{
		Sched:         sched,
		QuantumCycles: quantum,
		MemAvailable:  16384,
		ProcCycleRate: 1,
		IOCycleRate:   1,
		LogTo:         config.File,
		LogFilePath:   filepath.Join(t.TempDir(), "log.txt"),
	}
}

func containsAll(lines []string, subs ...string) (string, bool) {
	joined := strings.Join(lines, "\n")
	for _, s := range subs {
		if !strings.Contains(joined, s) {
			return s, false
		}
	}
	return "", true
}

func TestRunSingleProcessFCFSN(t *testing.T) {
	head := chain(
		opcode.OpCode{Command: opcode.Sys, StrArg1: "start"},
		opcode.OpCode{Command: opcode.App, StrArg1: "start"},
		opcode.OpCode{Command: opcode.CPU, StrArg1: "process", IntArg2: 5},
		opcode.OpCode{Command: opcode.App, StrArg1: "end"},
		opcode.OpCode{Command: opcode.Sys, StrArg1: "end"},
	)
	cfg := baseConfig(t, config.FCFSN, 0)
	sink := output.New(cfg.LogTo, timer.New())
	s := New(cfg, head, sink)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v", err)
	}

	lines := sink.Lines()
	if missing, ok := containsAll(lines,
		"OS: Simulator start",
		"Process: 0, cpu process operation start",
		"Process: 0, cpu process operation end",
		"OS: Process 0 ended",
		"OS: Simulation End",
	); !ok {
		t.Errorf("missing expected log line %q in:\n%s", missing, strings.Join(lines, "\n"))
	}
}

func TestRunRRPQuantumAlternates(t *testing.T) {
	head := chain(
		opcode.OpCode{Command: opcode.Sys, StrArg1: "start"},
		opcode.OpCode{Command: opcode.App, StrArg1: "start"},
		opcode.OpCode{Command: opcode.CPU, StrArg1: "process", IntArg2: 5},
		opcode.OpCode{Command: opcode.App, StrArg1: "end"},
		opcode.OpCode{Command: opcode.App, StrArg1: "start"},
		opcode.OpCode{Command: opcode.CPU, StrArg1: "process", IntArg2: 5},
		opcode.OpCode{Command: opcode.App, StrArg1: "end"},
		opcode.OpCode{Command: opcode.Sys, StrArg1: "end"},
	)
	cfg := baseConfig(t, config.RRP, 2)
	sink := output.New(cfg.LogTo, timer.New())
	s := New(cfg, head, sink)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v", err)
	}

	lines := sink.Lines()
	count := 0
	for _, l := range lines {
		if strings.Contains(l, "quantum time out") {
			count++
		}
	}
	if count != 4 {
		t.Errorf("quantum time out count = %d want 4 (2,2,1 per process x2) - lines:\n%s", count, strings.Join(lines, "\n"))
	}
	if missing, ok := containsAll(lines, "OS: Process 0 ended", "OS: Process 1 ended"); !ok {
		t.Errorf("missing %q", missing)
	}
}

func TestRunFCFSPDeviceOpPreempts(t *testing.T) {
	head := chain(
		opcode.OpCode{Command: opcode.Sys, StrArg1: "start"},
		opcode.OpCode{Command: opcode.App, StrArg1: "start"},
		opcode.OpCode{Command: opcode.CPU, StrArg1: "process", IntArg2: 3},
		opcode.OpCode{Command: opcode.Dev, StrArg1: "keyboard", InOutArg: opcode.DirIn, IntArg2: 2},
		opcode.OpCode{Command: opcode.App, StrArg1: "end"},
		opcode.OpCode{Command: opcode.App, StrArg1: "start"},
		opcode.OpCode{Command: opcode.CPU, StrArg1: "process", IntArg2: 2},
		opcode.OpCode{Command: opcode.App, StrArg1: "end"},
		opcode.OpCode{Command: opcode.Sys, StrArg1: "end"},
	)
	cfg := baseConfig(t, config.FCFSP, 0)
	sink := output.New(cfg.LogTo, timer.New())
	s := New(cfg, head, sink)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v", err)
	}

	lines := sink.Lines()
	if missing, ok := containsAll(lines,
		"Process: 0, keyboard input operation start",
		"OS: Blocking current process for interrupt",
		"OS: Process 1 set from READY to RUNNING",
		"OS: Process 0 ended",
		"OS: Process 1 ended",
	); !ok {
		t.Errorf("missing %q - lines:\n%s", missing, strings.Join(lines, "\n"))
	}
}

func TestRunIdlePathEntersAndExitsOnce(t *testing.T) {
	head := chain(
		opcode.OpCode{Command: opcode.Sys, StrArg1: "start"},
		opcode.OpCode{Command: opcode.App, StrArg1: "start"},
		opcode.OpCode{Command: opcode.Dev, StrArg1: "keyboard", InOutArg: opcode.DirIn, IntArg2: 2},
		opcode.OpCode{Command: opcode.App, StrArg1: "end"},
		opcode.OpCode{Command: opcode.Sys, StrArg1: "end"},
	)
	cfg := baseConfig(t, config.SRTFP, 0)
	sink := output.New(cfg.LogTo, timer.New())
	s := New(cfg, head, sink)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v", err)
	}

	lines := sink.Lines()
	idleEnters, idleExits := 0, 0
	for _, l := range lines {
		if strings.Contains(l, "OS: CPU idle, all active processes blocked") {
			idleEnters++
		}
		if strings.Contains(l, "OS: CPU interrupt, end idle") {
			idleExits++
		}
	}
	if idleEnters != 1 || idleExits != 1 {
		t.Errorf("idleEnters=%d idleExits=%d, want 1 and 1 - lines:\n%s", idleEnters, idleExits, strings.Join(lines, "\n"))
	}
}

func TestRunMemoryAllocateFailureAndAccessFailure(t *testing.T) {
	head := chain(
		opcode.OpCode{Command: opcode.Sys, StrArg1: "start"},
		opcode.OpCode{Command: opcode.App, StrArg1: "start"},
		opcode.OpCode{Command: opcode.Mem, StrArg1: "allocate", IntArg2: 0, IntArg3: 8000},
		opcode.OpCode{Command: opcode.Mem, StrArg1: "allocate", IntArg2: 8000, IntArg3: 10000},
		opcode.OpCode{Command: opcode.Mem, StrArg1: "access", IntArg2: 9000, IntArg3: 10},
		opcode.OpCode{Command: opcode.App, StrArg1: "end"},
		opcode.OpCode{Command: opcode.Sys, StrArg1: "end"},
	)
	cfg := baseConfig(t, config.FCFSN, 0)
	sink := output.New(cfg.LogTo, timer.New())
	s := New(cfg, head, sink)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v", err)
	}

	lines := sink.Lines()
	if missing, ok := containsAll(lines,
		"After allocate failure",
		"After access failure",
		"OS: Process 0 ended",
	); !ok {
		t.Errorf("missing %q - lines:\n%s", missing, strings.Join(lines, "\n"))
	}
}
