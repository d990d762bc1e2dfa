// Package config parses the simulator's configuration file and the
// command-line switches that select which of its phases to run.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SchedPolicy is the CPU scheduling policy selected by a config file.
type SchedPolicy int

const (
	SJFN SchedPolicy = iota
	SRTFP
	FCFSP
	RRP
	FCFSN
)

var schedNames = map[string]SchedPolicy{
	"sjf-n": SJFN, "srtf-p": SRTFP, "fcfs-p": FCFSP, "rr-p": RRP, "fcfs-n": FCFSN,
}

// String implements fmt.Stringer.
func (s SchedPolicy) String() string {
	switch s {
	case SJFN:
		return "SJF-N"
	case SRTFP:
		return "SRTF-P"
	case FCFSP:
		return "FCFS-P"
	case RRP:
		return "RR-P"
	case FCFSN:
		return "FCFS-N"
	default:
		return "UNKNOWN"
	}
}

// Preemptive reports whether I/O dispatched under this policy yields the
// CPU to another process instead of blocking it.
func (s SchedPolicy) Preemptive() bool {
	switch s {
	case SRTFP, FCFSP, RRP:
		return true
	default:
		return false
	}
}

// LogTo is the configured log destination.
type LogTo int

const (
	Monitor LogTo = iota
	File
	Both
)

var logToNames = map[string]LogTo{"monitor": Monitor, "file": File, "both": Both}

// String implements fmt.Stringer.
func (l LogTo) String() string {
	switch l {
	case Monitor:
		return "Monitor"
	case File:
		return "File"
	case Both:
		return "Both"
	default:
		return "UNKNOWN"
	}
}

// Config is the fully validated contents of a simulator config file.
type Config struct {
	Version       float64
	MetaDataPath  string
	Sched         SchedPolicy
	QuantumCycles int
	MemDisplay    bool
	MemAvailable  int
	ProcCycleRate int
	IOCycleRate   int
	LogTo         LogTo
	LogFilePath   string
}

// ParseError reports why a config file or command line could not be parsed.
type ParseError struct {
	Reason string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("Config Upload Error: %s", e.Reason)
}

const (
	leader  = "Start Simulator Configuration File:"
	trailer = "End Simulator Configuration File."
)

type prompt struct {
	name  string
	apply func(cfg *Config, value string) error
}

func intBetween(field string, lo, hi int, set func(*Config, int)) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return ParseError{Reason: fmt.Sprintf("%s must be an integer, got %q", field, value)}
		}
		if v < lo || v > hi {
			return ParseError{Reason: fmt.Sprintf("%s out of range [%d,%d]: %d", field, lo, hi, v)}
		}
		set(cfg, v)
		return nil
	}
}

var prompts = []prompt{
	{"Version/Phase", func(cfg *Config, value string) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0.00 || v > 10.00 {
			return ParseError{Reason: fmt.Sprintf("Version/Phase out of range: %q", value)}
		}
		cfg.Version = v
		return nil
	}},
	{"File Path", func(cfg *Config, value string) error {
		cfg.MetaDataPath = value
		return nil
	}},
	{"CPU Scheduling Code", func(cfg *Config, value string) error {
		sched, ok := schedNames[strings.ToLower(value)]
		if !ok {
			return ParseError{Reason: fmt.Sprintf("unknown CPU Scheduling Code: %q", value)}
		}
		cfg.Sched = sched
		return nil
	}},
	{"Quantum Time (cycles)", intBetween("Quantum Time (cycles)", 0, 100, func(cfg *Config, v int) { cfg.QuantumCycles = v })},
	{"Memory Display (On/Off)", func(cfg *Config, value string) error {
		switch strings.ToLower(value) {
		case "on":
			cfg.MemDisplay = true
		case "off":
			cfg.MemDisplay = false
		default:
			return ParseError{Reason: fmt.Sprintf("Memory Display must be On/Off: %q", value)}
		}
		return nil
	}},
	{"Memory Available (KB)", intBetween("Memory Available (KB)", 1024, 102400, func(cfg *Config, v int) { cfg.MemAvailable = v })},
	{"Processor Cycle Time (msec)", intBetween("Processor Cycle Time (msec)", 1, 100, func(cfg *Config, v int) { cfg.ProcCycleRate = v })},
	{"I/O Cycle Time (msec)", intBetween("I/O Cycle Time (msec)", 1, 1000, func(cfg *Config, v int) { cfg.IOCycleRate = v })},
	{"Log To", func(cfg *Config, value string) error {
		logTo, ok := logToNames[strings.ToLower(value)]
		if !ok {
			return ParseError{Reason: fmt.Sprintf("unknown Log To: %q", value)}
		}
		cfg.LogTo = logTo
		return nil
	}},
	{"Log File Path", func(cfg *Config, value string) error {
		cfg.LogFilePath = value
		return nil
	}},
}

var promptByName = func() map[string]func(*Config, string) error {
	m := make(map[string]func(*Config, string) error, len(prompts))
	for _, p := range prompts {
		m[p.name] = p.apply
	}
	return m
}()

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseError{Reason: "config file access error"}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, ParseError{Reason: "config file is empty"}
	}
	if strings.TrimSpace(scanner.Text()) != leader {
		return nil, ParseError{Reason: "corrupt config leader line"}
	}

	cfg := &Config{}
	seen := map[string]bool{}
	foundTrailer := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == trailer {
			foundTrailer = true
			break
		}
		if line == "" {
			continue
		}
		name, value, err := splitPrompt(line)
		if err != nil {
			return nil, err
		}
		apply, ok := promptByName[name]
		if !ok {
			return nil, ParseError{Reason: fmt.Sprintf("unknown config prompt %q", name)}
		}
		if err := apply(cfg, value); err != nil {
			return nil, err
		}
		seen[name] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, ParseError{Reason: "config file read error"}
	}
	if !foundTrailer {
		return nil, ParseError{Reason: "corrupt config trailer line"}
	}
	for _, p := range prompts {
		if !seen[p.name] {
			return nil, ParseError{Reason: fmt.Sprintf("missing config prompt %q", p.name)}
		}
	}

	// Post-parse rule: logging to file alone forces memory display off.
	if cfg.LogTo == File {
		cfg.MemDisplay = false
	}

	return cfg, nil
}

func splitPrompt(line string) (name, value string, err error) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", ParseError{Reason: fmt.Sprintf("corrupt config prompt line %q", line)}
	}
	name = strings.TrimRight(line[:idx], " \t")
	value = strings.TrimSpace(line[idx+1:])
	return name, value, nil
}

// Display formats cfg for the "-dc" display-config flag.
func Display(cfg *Config) string {
	return fmt.Sprintf(
		"Simulator Configuration\n"+
			"-----------------------\n"+
			"Version/Phase: %.2f\n"+
			"File Path: %s\n"+
			"CPU Scheduling Code: %s\n"+
			"Quantum Time (cycles): %d\n"+
			"Memory Display (On/Off): %s\n"+
			"Memory Available (KB): %d\n"+
			"Processor Cycle Time (msec): %d\n"+
			"I/O Cycle Time (msec): %d\n"+
			"Log To: %s\n"+
			"Log File Path: %s\n",
		cfg.Version, cfg.MetaDataPath, cfg.Sched, cfg.QuantumCycles, onOff(cfg.MemDisplay),
		cfg.MemAvailable, cfg.ProcCycleRate, cfg.IOCycleRate, cfg.LogTo, cfg.LogFilePath)
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}

// CmdLine is the parsed command-line invocation.
type CmdLine struct {
	ShowConfig   bool
	ShowMetadata bool
	RunSim       bool
	ConfigPath   string
}

// ParseArgs parses the -dc/-dm/-rs switches (any order) and the trailing
// ".cnf" config path. At least one switch and the config path are
// required.
func ParseArgs(args []string) (CmdLine, error) {
	var cl CmdLine
	var sawSwitch bool

	for _, arg := range args {
		switch arg {
		case "-dc":
			cl.ShowConfig = true
			sawSwitch = true
		case "-dm":
			cl.ShowMetadata = true
			sawSwitch = true
		case "-rs":
			cl.RunSim = true
			sawSwitch = true
		default:
			if !strings.HasSuffix(arg, ".cnf") {
				return CmdLine{}, ParseError{Reason: fmt.Sprintf("unrecognized argument %q", arg)}
			}
			cl.ConfigPath = arg
		}
	}

	if !sawSwitch || cl.ConfigPath == "" {
		return CmdLine{}, ParseError{Reason: "usage: ossim [-dc] [-dm] [-rs] <config file>.cnf"}
	}
	return cl, nil
}
