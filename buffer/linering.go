// Package buffer provides a bounded ring of raw feed lines kept for
// diagnostics. Each slot holds an atomic pointer, so the reader either sees a
// complete line or the previous one, never a partially written entry, and the
// ring bounds memory by dropping the oldest line first.
package buffer

import "sync/atomic"

// Line is one diagnostic entry: the verbatim text plus its direction.
type Line struct {
	seq     uint64
	Text    string
	Inbound bool
}

// LineRing retains the most recent capacity lines. Add is single-producer
// (the event-drain loop); Recent may run concurrently with Add.
type LineRing struct {
	slots    []atomic.Pointer[Line]
	capacity int
	total    atomic.Uint64
}

// NewLineRing allocates a ring for capacity lines.
func NewLineRing(capacity int) *LineRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &LineRing{
		slots:    make([]atomic.Pointer[Line], capacity),
		capacity: capacity,
	}
}

// Add appends a line, overwriting the oldest entry once the ring is full.
func (r *LineRing) Add(text string, inbound bool) {
	seq := r.total.Add(1)
	line := &Line{seq: seq, Text: text, Inbound: inbound}
	r.slots[(seq-1)%uint64(r.capacity)].Store(line)
}

// Recent returns up to n of the newest lines in chronological order (oldest
// of the window first), matching how a scrolling log renders them.
func (r *LineRing) Recent(n int) []Line {
	if n <= 0 {
		return nil
	}
	total := r.total.Load()
	available := int(total)
	if available > r.capacity {
		available = r.capacity
	}
	if n > available {
		n = available
	}

	out := make([]Line, 0, n)
	minSeq := total - uint64(n)
	for seq := minSeq + 1; seq <= total; seq++ {
		slot := (seq - 1) % uint64(r.capacity)
		// The seq check skips slots overwritten by a concurrent Add after
		// wraparound; the window just comes back one entry short.
		if line := r.slots[slot].Load(); line != nil && line.seq == seq {
			out = append(out, *line)
		}
	}
	return out
}

// Len reports how many lines are currently retained.
func (r *LineRing) Len() int {
	total := int(r.total.Load())
	if total > r.capacity {
		return r.capacity
	}
	return total
}

// Clear forgets all retained lines. Caller must be the sole producer.
func (r *LineRing) Clear() {
	for i := range r.slots {
		r.slots[i].Store(nil)
	}
	r.total.Store(0)
}
