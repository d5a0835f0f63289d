//go:build tinygo

// Package serial runs the config protocol over the USB CDC port.
package serial

import (
	"machine"
	"time"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/protocol"
)

// pollInterval is how long the reader sleeps when no byte is buffered.
const pollInterval = 5 * time.Millisecond

// Serial reads protocol frames from a serial port and writes back the
// handler's responses.
type Serial struct {
	serial    machine.Serialer
	handler   *protocol.Handler
	display   *display.Manager
	formatter *display.FrameFormatter
}

// NewSerial creates a serial transport. disp may be nil.
func NewSerial(serial machine.Serialer, handler *protocol.Handler, disp *display.Manager) *Serial {
	return &Serial{
		serial:    serial,
		handler:   handler,
		display:   disp,
		formatter: display.NewFrameFormatter(),
	}
}

// Handle serves frames forever. It is meant to run in its own goroutine.
func (s *Serial) Handle() {
	for {
		frame, err := protocol.ReadFrame(s)
		if err != nil {
			s.showError(err)
			if err == protocol.ErrCRCMismatch {
				s.respond(&protocol.Response{Status: protocol.StatusCRCError})
			}
			// Anything else: drop the byte and look for the next sync
			continue
		}

		if s.display != nil {
			s.display.ShowIncomingFrame(s.formatter.FormatIncoming(frame))
		}

		s.respond(s.handler.Handle(frame))
	}
}

// Read implements io.Reader, blocking until at least one byte is available.
func (s *Serial) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for n == 0 {
		for n < len(p) && s.serial.Buffered() > 0 {
			b, err := s.serial.ReadByte()
			if err != nil {
				break
			}
			p[n] = b
			n++
		}
		if n == 0 {
			time.Sleep(pollInterval)
		}
	}
	return n, nil
}

func (s *Serial) respond(resp *protocol.Response) {
	if err := protocol.WriteResponse(s.serial, resp); err != nil {
		s.showError(err)
		return
	}
	if s.display != nil {
		s.display.ShowOutgoingResponse(s.formatter.FormatOutgoing(resp))
	}
}

func (s *Serial) showError(err error) {
	if s.display != nil {
		s.display.ShowError(s.formatter.FormatError(err))
	}
}
