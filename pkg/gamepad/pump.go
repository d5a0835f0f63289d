package gamepad

import (
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/echo"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

// Pump turns host-ready opportunities into encoded reports. Every Fill asks
// the echo buffer for the report to send, which ticks the engine when no
// repeats are pending.
type Pump struct {
	echo   *echo.Buffer
	ticker echo.Ticker

	sent     uint32
	received uint32
}

// NewPump creates a pump feeding reports from t through a fresh echo buffer.
func NewPump(t echo.Ticker) *Pump {
	return &Pump{
		echo:   echo.New(),
		ticker: t,
	}
}

// Fill encodes the next report into buf.
func (p *Pump) Fill(buf *[report.Size]byte) {
	r := p.echo.Next(p.ticker)
	r.Encode(buf)
	p.sent++
}

// Drain consumes an OUT report from the host. Its contents are ignored; the
// macro runs open loop.
func (p *Pump) Drain(b []byte) {
	p.received++
}

// Sent returns the number of reports filled.
func (p *Pump) Sent() uint32 {
	return p.sent
}

// Received returns the number of OUT reports drained.
func (p *Pump) Received() uint32 {
	return p.received
}
