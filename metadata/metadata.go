// Package metadata parses a simulator metadata (opcode) file into the
// finite sequence of opcode.OpCode the pcb package builds PCBs from.
package metadata

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/oscore/ossim/opcode"
	"github.com/oscore/ossim/output"
)

const (
	leader  = "Start Program Meta-Data Code:"
	trailer = "End Program Meta-Data Code."
)

var validArg1 = map[string]bool{
	"access": true, "allocate": true, "end": true, "ethernet": true,
	"hard drive": true, "keyboard": true, "monitor": true, "printer": true,
	"process": true, "serial": true, "sound signal": true, "start": true,
	"usb": true, "video signal": true,
}

var validCommand = map[opcode.Command]bool{
	opcode.Sys: true, opcode.App: true, opcode.CPU: true, opcode.Dev: true, opcode.Mem: true,
}

// ParseError reports why a metadata file could not be parsed.
type ParseError struct {
	Reason string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("Metadata file upload error: %s", e.Reason)
}

// Load opens path, validates its leader/trailer lines, and parses the
// semicolon-separated opcode body into a linked opcode.OpCode sequence.
// Any partial sequence built before a parse failure is discarded: Load
// returns (nil, err) on any error.
func Load(path string) (*opcode.OpCode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseError{Reason: "metadata file access error"}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		return nil, ParseError{Reason: "metadata file is empty"}
	}
	if strings.TrimSpace(scanner.Text()) != leader {
		return nil, ParseError{Reason: "corrupt metadata leader"}
	}

	var body strings.Builder
	foundTrailer := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == trailer {
			foundTrailer = true
			break
		}
		body.WriteString(line)
		body.WriteString(" ")
	}
	if err := scanner.Err(); err != nil {
		return nil, ParseError{Reason: "metadata file read error"}
	}
	if !foundTrailer {
		return nil, ParseError{Reason: "corrupt metadata trailer"}
	}

	tokens := strings.Split(body.String(), ";")
	var head, tail *opcode.OpCode
	appDepth := 0
	count := 0
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		op, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		if op.Command == opcode.App {
			switch op.StrArg1 {
			case "start":
				appDepth++
			case "end":
				appDepth--
				if appDepth < 0 {
					return nil, ParseError{Reason: "unbalanced app end"}
				}
			}
		}
		if head == nil {
			head = op
		} else {
			tail.Next = op
		}
		tail = op
		count++
	}

	if appDepth != 0 {
		return nil, ParseError{Reason: "unbalanced app start/end"}
	}
	if head == nil || head.Command != opcode.Sys || head.StrArg1 != "start" || head.IntArg2 != 0 {
		return nil, ParseError{Reason: "first opcode must be sys start 0"}
	}
	if tail.Command != opcode.Sys || tail.StrArg1 != "end" || tail.IntArg2 != 0 {
		return nil, ParseError{Reason: "last opcode must be sys end 0"}
	}

	return head, nil
}

// opcodeForm matches "cmd(io)arg1,int2[,int3]" with optional surrounding
// whitespace and an arg1 that may itself contain spaces ("hard drive").
var opcodeForm = regexp.MustCompile(`^(\w+)\(([a-zA-Z]*)\)\s*([^,]+?)\s*,\s*(-?\d+)\s*(?:,\s*(-?\d+)\s*)?$`)

// parseToken parses one "cmd(io)arg1,int2[,int3]" opcode body.
func parseToken(tok string) (*opcode.OpCode, error) {
	m := opcodeForm.FindStringSubmatch(tok)
	if m == nil {
		return nil, ParseError{Reason: fmt.Sprintf("malformed opcode %q", tok)}
	}

	cmd := opcode.Command(m[1])
	if !validCommand[cmd] {
		return nil, ParseError{Reason: fmt.Sprintf("unknown command %q", m[1])}
	}

	dir := opcode.Direction(strings.ToLower(m[2]))
	if cmd == opcode.Dev && dir != opcode.DirIn && dir != opcode.DirOut {
		return nil, ParseError{Reason: fmt.Sprintf("dev opcode missing in/out: %q", tok)}
	}
	if cmd != opcode.Dev && dir != opcode.DirNone {
		return nil, ParseError{Reason: fmt.Sprintf("only dev opcodes take an in/out argument: %q", tok)}
	}

	arg1 := m[3]
	if !validArg1[arg1] {
		return nil, ParseError{Reason: fmt.Sprintf("unknown opcode argument %q", arg1)}
	}

	op := &opcode.OpCode{Command: cmd, StrArg1: arg1, InOutArg: dir}

	v2, err := strconv.Atoi(m[4])
	if err != nil {
		return nil, ParseError{Reason: fmt.Sprintf("bad integer argument in %q", tok)}
	}
	op.IntArg2 = v2

	if m[5] != "" {
		v3, err := strconv.Atoi(m[5])
		if err != nil {
			return nil, ParseError{Reason: fmt.Sprintf("bad integer argument in %q", tok)}
		}
		op.IntArg3 = v3
	}
	return op, nil
}

// Display dumps every opcode in the sequence to sink, in the format the
// original simulator's metadata display uses.
func Display(head *opcode.OpCode, sink *output.Sink) {
	sink.Direct("Meta-Data File Display\n")
	sink.Direct("----------------------\n\n")
	for op := head; op != nil; op = op.Next {
		io := "NA"
		if op.Command == opcode.Dev {
			io = string(op.InOutArg)
		}
		sink.Direct(fmt.Sprintf("Op Code: /cmd: %s/io: %s\n\t /arg1: %s/arg2: %d/arg3: %d\n\n",
			op.Command, io, op.StrArg1, op.IntArg2, op.IntArg3))
	}
}
