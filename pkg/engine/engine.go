// Package engine is the top-level state machine of the breeding macro. It
// advances one tick per call, choosing which sequence to run from the
// counters it keeps, and writes the resulting controller input into a report.
//
// A Machine is owned by exactly one caller; nothing in here locks, blocks or
// allocates once the machine is built.
package engine

import (
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
)

// DefaultBreedingDuration is used when the species has no known cycle count.
const DefaultBreedingDuration = 5500

// Counters is the run bookkeeping the transitions branch on.
type Counters struct {
	Eggs     int   // nursery checks left this round
	Slot     uint8 // box column in use, 1..macros.Columns
	Boxes    int   // boxes with free space left
	NewRound bool  // first pass after a finished box or save
}

// Count records one finished collection: one egg check used and the slot
// moved to the next column, wrapping after the last.
func (c *Counters) Count() {
	c.Eggs--
	c.Slot++
	if c.Slot > macros.Columns {
		c.Slot = 1
	}
}

// Machine holds all mutable engine state.
type Machine struct {
	State            State
	Counters         Counters
	Cursor           sequence.Cursor
	Elapsed          int   // ticks spent in the current circling routine
	Column           uint8 // column picked by the last select-col
	BreedingDuration int
	Ticks            uint32

	// OnTransition, when set, is called after every tick that changed state.
	OnTransition func(from, to State)

	collected uint32
	boxesDone uint32

	settings config.Settings
	lib      *macros.Library
}

// New creates a machine in the Sync state with counters seeded from settings.
// A nil library selects the builtin step tables.
func New(settings config.Settings, lib *macros.Library) *Machine {
	if lib == nil {
		lib = macros.Builtin()
	}
	m := &Machine{
		settings: settings,
		lib:      lib,
	}
	m.Reset()
	return m
}

// Reset puts the machine back to its boot state.
func (m *Machine) Reset() {
	m.State = Sync
	m.Counters = Counters{
		Eggs:  int(m.settings.InitialEggChecks),
		Slot:  1,
		Boxes: int(m.settings.Boxes),
	}
	m.Cursor.Reset()
	m.Elapsed = 0
	m.Column = 0
	m.BreedingDuration = DefaultBreedingDuration
}

// Settings returns the settings the machine was built with.
func (m *Machine) Settings() config.Settings {
	return m.settings
}

// Done reports whether the macro has finished.
func (m *Machine) Done() bool {
	return m.State == Done
}

// Count implements sequence.Counter for counting sequences.
func (m *Machine) Count() {
	m.Counters.Count()
}

// collector is the counter for the nursery pickup. On top of the usual
// bookkeeping it records one collected egg.
type collector Machine

func (c *collector) Count() {
	m := (*Machine)(c)
	m.Count()
	m.collected++
}

// Tick advances the machine by one tick, writing this tick's input into r.
// r is expected to be neutral on entry.
func (m *Machine) Tick(r *report.Report) {
	from := m.State
	m.Ticks++

	if m.State < stateCount && handlers[m.State] != nil {
		handlers[m.State](m, r)
	} else {
		m.resync(r)
	}

	if m.State != from && m.OnTransition != nil {
		m.OnTransition(from, m.State)
	}
}

var handlers = [stateCount]func(*Machine, *report.Report){
	Sync:              (*Machine).sync,
	Breathe:           (*Machine).breathe,
	FlyToNursery:      (*Machine).flyToNursery,
	NurseryToggle:     (*Machine).nurseryToggle,
	GoToCircle1:       (*Machine).goToCircle1,
	Circle1:           (*Machine).circle1,
	ApproachNPC:       (*Machine).approachNPC,
	Speak:             (*Machine).speak,
	GoToCircle2:       (*Machine).goToCircle2,
	GoToCircle3:       (*Machine).goToCircle3,
	OpenBox:           (*Machine).openBox,
	SelectColumn:      (*Machine).selectColumn,
	GrabPre:           (*Machine).grabPre,
	SelectColumnAgain: (*Machine).selectColumnAgain,
	GrabPost:          (*Machine).grabPost,
	CloseBox:          (*Machine).closeBox,
	CircleCW:          (*Machine).circleCW,
	Save:              (*Machine).save,
	Sleep:             (*Machine).sleep,
	Done:              (*Machine).done,
}

// run steps seq and moves to next once it completes. counter, when not nil,
// is notified on completion.
func (m *Machine) run(seq *sequence.Sequence, next State, counter sequence.Counter, r *report.Report) {
	if sequence.Advance(*seq, &m.Cursor, r, counter) {
		m.State = next
	}
}

// jump changes state without running anything this tick.
func (m *Machine) jump(next State) {
	m.Cursor.Reset()
	m.State = next
}

// resync abandons the run: neutral report and a fresh start from Sync.
func (m *Machine) resync(r *report.Report) {
	r.Reset()
	m.Reset()
}

func (m *Machine) sync(r *report.Report) {
	m.Cursor.Reset()
	m.BreedingDuration = BreedingDuration(m.settings.Species, m.settings.FlameBody())
	m.State = Breathe
}

func (m *Machine) breathe(r *report.Report) {
	m.run(&m.lib.WakeUp, FlyToNursery, nil, r)
}

func (m *Machine) flyToNursery(r *report.Report) {
	next := NurseryToggle
	switch {
	case m.Counters.Slot > 1:
		next = GoToCircle3
	case m.Counters.NewRound:
		next = GoToCircle1
	}
	m.run(&m.lib.FlyToNursery, next, nil, r)
}

func (m *Machine) nurseryToggle(r *report.Report) {
	m.run(&m.lib.InOutNursery, GoToCircle1, nil, r)
}

func (m *Machine) goToCircle1(r *report.Report) {
	switch {
	case m.Counters.NewRound && m.Counters.Eggs > 0:
		m.run(&m.lib.GoToCircle1, ApproachNPC, nil, r)
	case m.Counters.Eggs > 0:
		m.run(&m.lib.GoToCircle1, Circle1, nil, r)
	default:
		m.Counters.Slot = 1
		m.jump(GoToCircle3)
	}
}

func (m *Machine) approachNPC(r *report.Report) {
	m.Counters.NewRound = false
	m.run(&m.lib.Approach, Speak, nil, r)
}

func (m *Machine) speak(r *report.Report) {
	m.run(&m.lib.Speak, GoToCircle2, (*collector)(m), r)
}

func (m *Machine) goToCircle2(r *report.Report) {
	if m.Counters.Eggs >= 1 {
		m.run(&m.lib.GoToCircle2, Circle1, nil, r)
		return
	}
	m.Counters.Slot = 1
	m.jump(GoToCircle3)
}

func (m *Machine) goToCircle3(r *report.Report) {
	m.run(&m.lib.GoToCircle3, OpenBox, nil, r)
}

func (m *Machine) openBox(r *report.Report) {
	m.run(&m.lib.OpenBox, SelectColumn, nil, r)
}

func (m *Machine) selectColumn(r *report.Report) {
	m.selectColumnFor(GrabPre, r)
}

func (m *Machine) selectColumnAgain(r *report.Report) {
	m.selectColumnFor(GrabPost, r)
}

// selectColumnFor runs the column select for the current slot and hands over
// to next with that column recorded. Every column shares the same select
// sequence; only the follow-up differs.
func (m *Machine) selectColumnFor(next State, r *report.Report) {
	if _, _, ok := m.lib.Column(m.Counters.Slot); !ok {
		m.resync(r)
		return
	}
	m.Column = m.Counters.Slot
	m.run(&m.lib.SelectColumn, next, nil, r)
}

func (m *Machine) grabPre(r *report.Report) {
	pre, _, ok := m.lib.Column(m.Column)
	if !ok {
		m.resync(r)
		return
	}
	m.run(pre, SelectColumnAgain, nil, r)
}

func (m *Machine) grabPost(r *report.Report) {
	_, post, ok := m.lib.Column(m.Column)
	if !ok {
		m.resync(r)
		return
	}
	m.run(post, CloseBox, nil, r)
}

func (m *Machine) closeBox(r *report.Report) {
	m.run(&m.lib.CloseBox, CircleCW, m, r)
}

func (m *Machine) save(r *report.Report) {
	if m.Counters.Boxes > 0 {
		m.Counters.NewRound = true
		m.run(&m.lib.SaveGame, FlyToNursery, nil, r)
		return
	}
	m.run(&m.lib.SaveGame, Sleep, nil, r)
}

func (m *Machine) sleep(r *report.Report) {
	m.run(&m.lib.Sleep, Done, nil, r)
}

// done leaves the report neutral forever.
func (m *Machine) done(r *report.Report) {}
