// Package alert blinks indicator pins once the macro has finished so the run
// can be spotted from across the room.
package alert

import "time"

// Interval is the time between pin toggles while alerting.
const Interval = 250 * time.Millisecond

// Pin is an output the pulser can drive. machine.Pin satisfies it.
type Pin interface {
	Set(high bool)
}

// Pulser toggles its pins every Interval while active and holds them low
// otherwise.
type Pulser struct {
	pins   []Pin
	on     bool
	active bool
	last   time.Time
}

// New returns a pulser with all pins driven low.
func New(pins ...Pin) *Pulser {
	p := &Pulser{pins: pins}
	p.write(false)
	return p
}

// Update drives the pins for the current time. done turns the alert on; it is
// not expected to turn off again but doing so drops the pins low.
func (p *Pulser) Update(now time.Time, done bool) {
	if !done {
		if p.active {
			p.active = false
			p.write(false)
		}
		return
	}

	if !p.active {
		p.active = true
		p.last = now
		p.write(true)
		return
	}

	if now.Sub(p.last) >= Interval {
		p.last = now
		p.write(!p.on)
	}
}

// On reports the level last written to the pins.
func (p *Pulser) On() bool {
	return p.on
}

func (p *Pulser) write(high bool) {
	p.on = high
	for _, pin := range p.pins {
		pin.Set(high)
	}
}
