package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.cnf")
	content := "Start Simulator Configuration File:\n" + body + "End Simulator Configuration File.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const goodBody = `Version/Phase: 3.03
File Path: ./program.mdf
CPU Scheduling Code: RR-P
Quantum Time (cycles): 4
Memory Display (On/Off): On
Memory Available (KB): 4096
Processor Cycle Time (msec): 10
I/O Cycle Time (msec): 20
Log To: Both
Log File Path: ./log.txt
`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfigFile(t, goodBody)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}

	if cfg.Sched != RRP {
		t.Errorf("Sched = %s want RR-P - cfg: %s", cfg.Sched, spew.Sdump(cfg))
	}
	if cfg.QuantumCycles != 4 {
		t.Errorf("QuantumCycles = %d want 4", cfg.QuantumCycles)
	}
	if !cfg.MemDisplay {
		t.Errorf("MemDisplay = false want true")
	}
	if cfg.LogTo != Both {
		t.Errorf("LogTo = %s want Both", cfg.LogTo)
	}
}

func TestLoadForcesMemDisplayOffForFileLog(t *testing.T) {
	body := `Version/Phase: 3.03
File Path: ./program.mdf
CPU Scheduling Code: FCFS-N
Quantum Time (cycles): 0
Memory Display (On/Off): On
Memory Available (KB): 4096
Processor Cycle Time (msec): 10
I/O Cycle Time (msec): 20
Log To: File
Log File Path: ./log.txt
`
	path := writeConfigFile(t, body)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if cfg.MemDisplay {
		t.Errorf("MemDisplay = true want false when Log To is File")
	}
}

func TestLoadRejectsBadLeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cnf")
	if err := os.WriteFile(path, []byte("nope\n"+goodBody+"End Simulator Configuration File.\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() err = nil, want corrupt leader error")
	}
}

func TestLoadRejectsOutOfRangeQuantum(t *testing.T) {
	body := `Version/Phase: 3.03
File Path: ./program.mdf
CPU Scheduling Code: RR-P
Quantum Time (cycles): 999
Memory Display (On/Off): On
Memory Available (KB): 4096
Processor Cycle Time (msec): 10
I/O Cycle Time (msec): 20
Log To: Both
Log File Path: ./log.txt
`
	path := writeConfigFile(t, body)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() err = nil, want out of range error")
	}
}

func TestLoadRejectsMissingPrompt(t *testing.T) {
	body := `Version/Phase: 3.03
File Path: ./program.mdf
CPU Scheduling Code: RR-P
Memory Display (On/Off): On
Memory Available (KB): 4096
Processor Cycle Time (msec): 10
I/O Cycle Time (msec): 20
Log To: Both
Log File Path: ./log.txt
`
	path := writeConfigFile(t, body)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() err = nil, want missing prompt error")
	}
}

func TestDisplayIncludesAllFields(t *testing.T) {
	path := writeConfigFile(t, goodBody)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}

	got := Display(cfg)
	for _, want := range []string{"RR-P", "./program.mdf", "Both", "4096"} {
		if !strings.Contains(got, want) {
			t.Errorf("Display() missing %q:\n%s", want, got)
		}
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want CmdLine
		ok   bool
	}{
		{
			name: "all switches any order",
			args: []string{"-rs", "-dc", "-dm", "test.cnf"},
			want: CmdLine{ShowConfig: true, ShowMetadata: true, RunSim: true, ConfigPath: "test.cnf"},
			ok:   true,
		},
		{
			name: "single switch",
			args: []string{"-dc", "test.cnf"},
			want: CmdLine{ShowConfig: true, ConfigPath: "test.cnf"},
			ok:   true,
		},
		{
			name: "missing switch",
			args: []string{"test.cnf"},
			ok:   false,
		},
		{
			name: "missing path",
			args: []string{"-rs"},
			ok:   false,
		},
		{
			name: "bad extension",
			args: []string{"-rs", "test.txt"},
			ok:   false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseArgs(test.args)
			if (err == nil) != test.ok {
				t.Fatalf("ParseArgs() err = %v, want ok = %t", err, test.ok)
			}
			if test.ok && got != test.want {
				t.Errorf("ParseArgs() = %+v want %+v", got, test.want)
			}
		})
	}
}
