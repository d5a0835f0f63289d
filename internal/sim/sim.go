// Package sim runs the breeding engine without hardware. Reports are pulled
// through the same pump and echo buffer the firmware uses, one per simulated
// host poll.
package sim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/gamepad"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

// DefaultMaxFrames bounds a run that never reaches Done.
const DefaultMaxFrames = 50_000_000

// ctxCheckEvery is how many frames pass between context checks.
const ctxCheckEvery = 4096

var ErrFrameLimit = errors.New("frame limit reached before done")

// Options control a simulation run.
type Options struct {
	MaxFrames int           // 0 selects DefaultMaxFrames
	Interval  time.Duration // host poll interval used for the wall time estimate
	Trace     io.Writer     // receives every encoded report when set
	Logger    zerolog.Logger
}

// Result summarizes a run.
type Result struct {
	Frames      int
	Ticks       uint32
	Done        bool
	Transitions int
	StateTicks  map[engine.State]int
	Status      engine.Status
	Estimated   time.Duration // Frames at the configured interval
}

// recorder counts ticks per state before handing the tick to the machine.
type recorder struct {
	m     *engine.Machine
	ticks map[engine.State]int
}

func (r *recorder) Tick(rep *report.Report) {
	r.ticks[r.m.State]++
	r.m.Tick(rep)
}

// Run drives m until it reaches Done, the frame limit is hit or ctx is
// canceled. The partial result is returned alongside ErrFrameLimit or the
// context error.
func Run(ctx context.Context, m *engine.Machine, opts Options) (*Result, error) {
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = DefaultMaxFrames
	}

	res := &Result{StateTicks: make(map[engine.State]int)}

	prev := m.OnTransition
	m.OnTransition = func(from, to engine.State) {
		res.Transitions++
		opts.Logger.Debug().
			Uint32("tick", m.Ticks).
			Stringer("from", from).
			Stringer("to", to).
			Msg("transition")
		if prev != nil {
			prev(from, to)
		}
	}
	defer func() { m.OnTransition = prev }()

	var trace *bufio.Writer
	if opts.Trace != nil {
		trace = bufio.NewWriter(opts.Trace)
	}

	pump := gamepad.NewPump(&recorder{m: m, ticks: res.StateTicks})
	var buf [report.Size]byte

	var runErr error
	for !m.Done() {
		if res.Frames >= opts.MaxFrames {
			runErr = ErrFrameLimit
			break
		}
		if res.Frames%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
		}

		pump.Fill(&buf)
		res.Frames++

		if trace != nil {
			if _, err := trace.Write(buf[:]); err != nil {
				return nil, fmt.Errorf("write trace: %w", err)
			}
		}
	}

	if trace != nil {
		if err := trace.Flush(); err != nil {
			return nil, fmt.Errorf("flush trace: %w", err)
		}
	}

	res.Ticks = m.Ticks
	res.Done = m.Done()
	res.Status = m.Status()
	res.Estimated = time.Duration(res.Frames) * opts.Interval

	opts.Logger.Info().
		Int("frames", res.Frames).
		Uint32("ticks", res.Ticks).
		Bool("done", res.Done).
		Msg("simulation finished")

	return res, runErr
}

// ReadTrace splits a trace stream back into reports.
func ReadTrace(r io.Reader) ([]report.Report, error) {
	var out []report.Report
	var buf [report.Size]byte
	for {
		_, err := io.ReadFull(r, buf[:])
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
		var rep report.Report
		if err := rep.UnmarshalBinary(buf[:]); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
}
