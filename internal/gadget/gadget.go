// Package gadget drives a Linux USB HID gadget (/dev/hidgN) with the engine,
// so a board running the kernel's gadget stack can stand in for the RP2040.
//
// The gadget must be configured with the Pokken pad identity and report
// descriptor from pkg/composite before it is opened.
package gadget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/gamepad"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

// drainGrace bounds how long Run waits for the OUT reader after closing the
// device.
const drainGrace = 100 * time.Millisecond

// readDeadliner is implemented by devices whose reads can be interrupted,
// such as an *os.File registered with the runtime poller.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Gadget writes one report per interval to dev.
type Gadget struct {
	dev      io.ReadWriteCloser
	machine  *engine.Machine
	pump     *gamepad.Pump
	interval time.Duration
	logger   zerolog.Logger

	received atomic.Uint32
}

// Open opens a gadget device node for reading and writing.
func Open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open gadget %s: %w", path, err)
	}
	return f, nil
}

// New creates a gadget driver. It takes ownership of dev.
func New(dev io.ReadWriteCloser, m *engine.Machine, interval time.Duration, logger zerolog.Logger) *Gadget {
	return &Gadget{
		dev:      dev,
		machine:  m,
		pump:     gamepad.NewPump(m),
		interval: interval,
		logger:   logger,
	}
}

// Run sends reports until the machine is done or ctx is canceled, then
// leaves the pad neutral and closes the device. It returns nil when the run
// finished.
func (g *Gadget) Run(ctx context.Context) error {
	g.machine.OnTransition = func(from, to engine.State) {
		g.logger.Debug().
			Uint32("tick", g.machine.Ticks).
			Stringer("from", from).
			Stringer("to", to).
			Msg("transition")
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		g.drain()
	}()
	defer g.close(drained)

	g.logger.Info().Dur("interval", g.interval).Msg("gadget started")

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	var buf [report.Size]byte
	for !g.machine.Done() {
		select {
		case <-ctx.Done():
			g.logger.Info().Uint32("sent", g.pump.Sent()).Msg("gadget stopped")
			return ctx.Err()
		case <-ticker.C:
		}

		g.pump.Fill(&buf)
		if _, err := g.dev.Write(buf[:]); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	st := g.machine.Status()
	g.logger.Info().
		Uint32("sent", g.pump.Sent()).
		Uint32("received", g.received.Load()).
		Uint32("boxes", st.BoxesDone).
		Msg("run complete")
	return nil
}

// drain reads and discards OUT reports until the device is closed or its
// read deadline passes.
func (g *Gadget) drain() {
	var buf [report.HostSize]byte
	for {
		if _, err := g.dev.Read(buf[:]); err != nil {
			if !errors.Is(err, os.ErrClosed) && !errors.Is(err, os.ErrDeadlineExceeded) &&
				!errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				g.logger.Warn().Err(err).Msg("drain stopped")
			}
			return
		}
		g.received.Add(1)
	}
}

// close leaves the pad neutral, closes the device and waits for drain.
// A read on a node the runtime cannot poll is not interrupted by Close; in
// that case drain is abandoned after drainGrace and exits once the kernel
// returns the read.
func (g *Gadget) close(drained <-chan struct{}) {
	var buf [report.Size]byte
	neutral := report.Neutral()
	neutral.Encode(&buf)
	if _, err := g.dev.Write(buf[:]); err != nil {
		g.logger.Debug().Err(err).Msg("final neutral report not sent")
	}
	if d, ok := g.dev.(readDeadliner); ok {
		if err := d.SetReadDeadline(time.Now()); err != nil {
			g.logger.Debug().Err(err).Msg("read deadline not supported")
		}
	}
	if err := g.dev.Close(); err != nil {
		g.logger.Warn().Err(err).Msg("close gadget")
	}
	g.machine.OnTransition = nil

	select {
	case <-drained:
	case <-time.After(drainGrace):
		g.logger.Warn().Msg("OUT reader still blocked after close")
	}
}

// Sent returns the number of reports written.
func (g *Gadget) Sent() uint32 {
	return g.pump.Sent()
}

// Received returns the number of OUT reports drained.
func (g *Gadget) Received() uint32 {
	return g.received.Load()
}
