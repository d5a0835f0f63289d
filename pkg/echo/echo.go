// Package echo repeats every generated report a fixed number of times before
// asking for the next one. The console polls faster than it samples input, so
// each report is sent more than once to make sure it is seen.
package echo

import (
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

// Repeats is how many extra times each report is sent after the first.
const Repeats = 2

// Ticker produces the next report. engine.Machine satisfies it.
type Ticker interface {
	Tick(r *report.Report)
}

// Buffer holds the last generated report and how many repeats of it are
// still owed.
type Buffer struct {
	last    report.Report
	pending int
}

// New returns a buffer with a neutral report and nothing pending.
func New() *Buffer {
	return &Buffer{last: report.Neutral()}
}

// Next returns the report to send this poll. While repeats are pending it
// returns the previous report unchanged and t is not ticked.
func (b *Buffer) Next(t Ticker) report.Report {
	if b.pending > 0 {
		b.pending--
		return b.last
	}

	r := report.Neutral()
	t.Tick(&r)
	b.last = r
	b.pending = Repeats
	return r
}

// Pending returns the repeats still owed for the last report.
func (b *Buffer) Pending() int {
	return b.pending
}

// Last returns the most recently generated report.
func (b *Buffer) Last() report.Report {
	return b.last
}

// Reset drops any pending repeats and forgets the last report.
func (b *Buffer) Reset() {
	b.last = report.Neutral()
	b.pending = 0
}
