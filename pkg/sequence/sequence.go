// Package sequence runs ordered lists of timed controller actions one tick at
// a time.
package sequence

import (
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

// Step holds an action for Duration ticks after the first, so a step occupies
// Duration+1 ticks in total.
type Step struct {
	Action   report.Action `yaml:"action"`
	Duration uint16        `yaml:"duration"`
}

// Sequence is a named macro. Sequences are read-only once built.
type Sequence struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Ticks returns the number of ticks needed to run the sequence to completion.
func (s Sequence) Ticks() int {
	n := 0
	for _, st := range s.Steps {
		n += int(st.Duration) + 1
	}
	return n
}

// Cursor is the position within the running sequence.
type Cursor struct {
	Index int
	Held  int
}

// Reset moves the cursor back to the first step.
func (c *Cursor) Reset() {
	c.Index = 0
	c.Held = 0
}

// Counter is notified when a counting sequence completes.
type Counter interface {
	Count()
}

// Advance moves seq forward by one tick, writing the current action into r.
// It returns true on the tick the sequence completes; the cursor is then back
// at the start, r is neutral and counter (if not nil) has been notified.
func Advance(seq Sequence, cur *Cursor, r *report.Report, counter Counter) bool {
	if cur.Index < 0 || cur.Index >= len(seq.Steps) {
		// Nothing to run: finish straight away with a neutral report
		return complete(cur, r, counter)
	}

	st := seq.Steps[cur.Index]
	r.Apply(st.Action)
	cur.Held++

	if cur.Held > int(st.Duration) {
		cur.Index++
		cur.Held = 0
	}

	if cur.Index >= len(seq.Steps) {
		return complete(cur, r, counter)
	}
	return false
}

func complete(cur *Cursor, r *report.Report, counter Counter) bool {
	cur.Reset()
	if counter != nil {
		counter.Count()
	}
	r.Reset()
	return true
}
