// Package output is the simulator's single writer of user-visible text:
// a Sink that fans timestamped log lines and raw display blocks out to
// the console, an in-memory buffer, or both, grounded on the original
// implementation's console/file dual-destination model.
package output

import (
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/oscore/ossim/config"
	"github.com/oscore/ossim/timer"
)

// Sink is the console/file/both destination for a run's output.
type Sink struct {
	console bool
	file    bool
	buf     []string
	t       *timer.Timer
	tty     bool
}

// New returns a Sink configured per logTo, timestamping with t.
func New(logTo config.LogTo, t *timer.Timer) *Sink {
	return &Sink{
		console: logTo == config.Monitor || logTo == config.Both,
		file:    logTo == config.File || logTo == config.Both,
		t:       t,
		tty:     term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Log writes a timestamped line, "<mm:ss.ssssss>, <message>", to the
// console and/or buffers it for Flush, per the configured destinations.
func (s *Sink) Log(msg string) {
	line := s.t.Elapsed() + ", " + msg
	if s.console {
		if s.tty {
			os.Stdout.WriteString("\x1b[2m" + s.t.Elapsed() + "\x1b[0m, " + msg + "\n")
		} else {
			os.Stdout.WriteString(line + "\n")
		}
	}
	if s.file {
		s.buf = append(s.buf, line)
	}
}

// Direct writes s untimestamped, for banners, blank-line separators, and
// memory display blocks. It follows the same console/file split as Log
// but never applies Log's TTY dimming: these blocks are always plain text.
func (s *Sink) Direct(str string) {
	if s.console {
		os.Stdout.WriteString(str)
	}
	if s.file {
		s.buf = append(s.buf, strings.TrimRight(str, "\n"))
	}
}

// Lines returns the lines buffered so far, for callers (tests, an
// in-process log viewer) that want them without a round trip through
// Flush. Empty unless the sink was configured to write to a file.
func (s *Sink) Lines() []string {
	out := make([]string, len(s.buf))
	copy(out, s.buf)
	return out
}

// Flush writes the buffered lines to path, once, at the end of a run.
// It is a no-op if the sink was never configured to write to a file.
func (s *Sink) Flush(path string) error {
	if !s.file {
		return nil
	}
	data := strings.Join(s.buf, "\n")
	if len(s.buf) > 0 {
		data += "\n"
	}
	return os.WriteFile(path, []byte(data), 0o644)
}
