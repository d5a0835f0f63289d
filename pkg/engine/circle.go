package engine

import (
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

// Circling constants, in ticks.
const (
	circlePeriod  = 48 // one full stick rotation
	circleQuarter = circlePeriod / 4
	confirmPeriod = 24
	confirmLast   = 5 // A is held for phases 0..confirmLast of every confirm period
	circle1Limit  = 350
	hatchMargin   = 4200 // added to the breeding duration for circle-cw
)

var (
	counterClockwise = [4]report.Action{report.LLeft, report.LDown, report.LRight, report.LUp}
	clockwise        = [4]report.Action{report.LRight, report.LDown, report.LLeft, report.LUp}
)

// circle rotates the left stick through dirs, a quarter per 12 ticks, pressing
// A in the confirm window when confirm is set. It returns true on the tick the
// routine has run for more than limit ticks.
func (m *Machine) circle(r *report.Report, dirs *[4]report.Action, confirm bool, limit int) bool {
	phase := m.Elapsed % circlePeriod
	r.Apply(dirs[phase/circleQuarter])
	if confirm && phase%confirmPeriod <= confirmLast {
		r.Apply(report.PressA)
	}

	m.Elapsed++
	if m.Elapsed <= limit {
		return false
	}
	m.Elapsed = 0
	m.Cursor.Reset()
	return true
}

func (m *Machine) circle1(r *report.Report) {
	if m.circle(r, &counterClockwise, false, circle1Limit) {
		m.State = ApproachNPC
	}
}

// circleCW walks in circles until the eggs hatch, then either carries on with
// the next column or closes out the box.
func (m *Machine) circleCW(r *report.Report) {
	if !m.circle(r, &clockwise, true, m.BreedingDuration+hatchMargin) {
		return
	}

	if m.Counters.Slot != 1 {
		m.State = FlyToNursery
		return
	}

	m.Counters.Eggs = int(m.settings.SubsequentEggChecks)
	m.Counters.Boxes--
	m.boxesDone++

	next, newRound := AfterBox(m.settings.SavePolicy, m.Counters.Boxes)
	if newRound {
		m.Counters.NewRound = true
	}
	m.State = next
}
