// Package memory models a contiguous physical address space as a
// doubly-linked list of segments, each either free or owned by exactly
// one process, with first-fit allocation and free-neighbor coalescing.
package memory

import (
	"fmt"
	"strings"
)

// NotInUse marks a segment as free.
const NotInUse = -1

// Segment is one contiguous physical range.
type Segment struct {
	physicalAddress int
	size            int
	pid             int
	logicalAddress  int
	next            *Segment
	prev            *Segment
}

// SegmentView is a read-only snapshot of a Segment, exposed to callers
// (display, the optional renderer) that must not mutate the list.
type SegmentView struct {
	PhysicalAddress int
	Size            int
	Pid             int
	LogicalAddress  int
}

// Manager owns the segment list for one memory space.
type Manager struct {
	head     *Segment
	capacity int
}

// New returns a Manager over a single free segment spanning capacity
// bytes.
func New(capacity int) *Manager {
	return &Manager{
		head:     &Segment{size: capacity, pid: NotInUse},
		capacity: capacity,
	}
}

// overlaps reports whether [s,e) overlaps the logical window [min,max)
// of an already-owned segment.
func overlaps(s, e, min, max int) bool {
	if s >= min && s < max {
		return true
	}
	if e > min && e <= max {
		return true
	}
	if s < min && e > max {
		return true
	}
	return false
}

// AllocateFirstFit allocates size logical bytes starting at logicalBase
// for pid. It fails if pid already owns an overlapping logical window,
// or if no free segment is large enough.
func (m *Manager) AllocateFirstFit(pid, logicalBase, size int) bool {
	s, e := logicalBase, logicalBase+size
	for seg := m.head; seg != nil; seg = seg.next {
		if seg.pid == pid && overlaps(s, e, seg.logicalAddress, seg.logicalAddress+seg.size) {
			return false
		}
	}

	for seg := m.head; seg != nil; seg = seg.next {
		if seg.pid != NotInUse || seg.size < size {
			continue
		}
		if seg.size == size {
			seg.pid = pid
			seg.logicalAddress = logicalBase
			return true
		}
		carved := &Segment{
			physicalAddress: seg.physicalAddress,
			size:            size,
			pid:             pid,
			logicalAddress:  logicalBase,
			prev:            seg.prev,
			next:            seg,
		}
		if seg.prev != nil {
			seg.prev.next = carved
		} else {
			m.head = carved
		}
		seg.prev = carved
		seg.physicalAddress += size
		seg.size -= size
		return true
	}
	return false
}

// Access reports whether pid owns a segment whose logical window fully
// contains [logicalBase, logicalBase+size), using a strict upper bound:
// logicalBase+size must be strictly less than the segment's logical end.
func (m *Manager) Access(pid, logicalBase, size int) bool {
	for seg := m.head; seg != nil; seg = seg.next {
		if seg.pid != pid {
			continue
		}
		if logicalBase >= seg.logicalAddress && logicalBase+size < seg.logicalAddress+seg.size {
			return true
		}
	}
	return false
}

// DeallocateProcess frees every segment owned by pid and coalesces any
// resulting runs of adjacent free segments.
func (m *Manager) DeallocateProcess(pid int) {
	for seg := m.head; seg != nil; seg = seg.next {
		if seg.pid == pid {
			seg.pid = NotInUse
			seg.logicalAddress = 0
		}
	}

	for seg := m.head; seg != nil; {
		next := seg.next
		if seg.pid == NotInUse && seg.next != nil && seg.next.pid == NotInUse {
			seg.size += seg.next.size
			seg.next = seg.next.next
			if seg.next != nil {
				seg.next.prev = seg
			}
			continue
		}
		seg = next
	}
}

// Display formats the memory map for logging, bounded by dashed rules
// and labelled per label.
func (m *Manager) Display(label string) string {
	var b strings.Builder
	rule := strings.Repeat("-", 50)
	fmt.Fprintf(&b, "%s\n%s\n%s\n", rule, label, rule)
	for seg := m.head; seg != nil; seg = seg.next {
		status := "Open"
		pidStr := "x"
		logEnd := 0
		if seg.pid != NotInUse {
			status = "Used"
			pidStr = fmt.Sprintf("%d", seg.pid)
			logEnd = seg.logicalAddress + seg.size
		}
		physEnd := seg.physicalAddress + seg.size
		fmt.Fprintf(&b, "%d [ %s, P#: %s, %d-%d ] %d\n",
			seg.physicalAddress, status, pidStr, seg.logicalAddress, logEnd, physEnd)
	}
	b.WriteString(rule + "\n")
	return b.String()
}

// Segments returns a read-only snapshot of every segment in physical
// order, for an attached visual.Renderer.
func (m *Manager) Segments() []SegmentView {
	var out []SegmentView
	for seg := m.head; seg != nil; seg = seg.next {
		out = append(out, SegmentView{
			PhysicalAddress: seg.physicalAddress,
			Size:            seg.size,
			Pid:             seg.pid,
			LogicalAddress:  seg.logicalAddress,
		})
	}
	return out
}
