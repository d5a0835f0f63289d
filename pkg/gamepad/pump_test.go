package gamepad

import (
	"testing"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/echo"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

type stepTicker struct {
	ticks int
}

func (s *stepTicker) Tick(r *report.Report) {
	s.ticks++
	if s.ticks%2 == 1 {
		r.Apply(report.PressA)
	} else {
		r.Apply(report.LLeft)
	}
}

func TestPumpEchoesEachReport(t *testing.T) {
	ticker := &stepTicker{}
	p := NewPump(ticker)

	var buf [report.Size]byte
	for i := 0; i < echo.Repeats+1; i++ {
		p.Fill(&buf)
		// Buttons low byte carries A
		if buf[0] != byte(report.ButtonA) || buf[3] != report.StickCenter {
			t.Errorf("fill %d: expected A pressed, got % X", i, buf)
		}
	}

	p.Fill(&buf)
	if buf[0] != 0 || buf[3] != report.StickMin {
		t.Errorf("Expected left stick after repeats, got % X", buf)
	}

	if ticker.ticks != 2 {
		t.Errorf("Expected 2 ticks, got %d", ticker.ticks)
	}
	if p.Sent() != uint32(echo.Repeats+2) {
		t.Errorf("Sent: expected %d, got %d", echo.Repeats+2, p.Sent())
	}
}

func TestPumpDrainIgnoresContent(t *testing.T) {
	ticker := &stepTicker{}
	p := NewPump(ticker)

	p.Drain([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	p.Drain(nil)

	if p.Received() != 2 {
		t.Errorf("Received: expected 2, got %d", p.Received())
	}
	if ticker.ticks != 0 {
		t.Errorf("Draining must not tick, got %d ticks", ticker.ticks)
	}
}

func BenchmarkPumpFill(b *testing.B) {
	p := NewPump(&stepTicker{})
	var buf [report.Size]byte

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Fill(&buf)
	}
}
