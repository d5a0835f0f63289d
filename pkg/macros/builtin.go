package macros

import (
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
)

// Timings assume the player stands in front of the Route 5 nursery with the
// town map cursor already on it, the menu cursor on the town map, and a
// Flame Body holder in the first party slot.

func seq(name string, steps ...sequence.Step) sequence.Sequence {
	return sequence.Sequence{Name: name, Steps: steps}
}

func st(a report.Action, d uint16) sequence.Step {
	return sequence.Step{Action: a, Duration: d}
}

// taps repeats a short stick flick n times.
func taps(a report.Action, n int) []sequence.Step {
	steps := make([]sequence.Step, 0, 2*n)
	for i := 0; i < n; i++ {
		steps = append(steps, st(a, 3), st(report.Hang, 5))
	}
	return steps
}

func concat(parts ...[]sequence.Step) []sequence.Step {
	var all []sequence.Step
	for _, p := range parts {
		all = append(all, p...)
	}
	return all
}

// pickParty multi-selects party slots 2-6 from the box view.
func pickParty() []sequence.Step {
	return concat(
		taps(report.LLeft, 1),
		taps(report.LDown, 1),
		[]sequence.Step{st(report.PressA, 5), st(report.Hang, 10)},
		taps(report.LDown, 4),
		[]sequence.Step{st(report.PressA, 5), st(report.Hang, 15)},
	)
}

func grabPre(col int) sequence.Sequence {
	steps := concat(
		pickParty(),
		taps(report.LRight, col),
		taps(report.LUp, 1),
		[]sequence.Step{st(report.PressA, 5), st(report.Hang, 20)},
	)
	return sequence.Sequence{Name: GrabPreName(col), Steps: steps}
}

func grabPost(col int) sequence.Sequence {
	steps := concat(
		[]sequence.Step{st(report.PressA, 5), st(report.Hang, 10)},
		taps(report.LDown, 4),
		[]sequence.Step{st(report.PressA, 5), st(report.Hang, 15)},
		taps(report.LLeft, col),
		taps(report.LDown, 1),
		[]sequence.Step{st(report.PressA, 5), st(report.Hang, 20)},
	)
	return sequence.Sequence{Name: GrabPostName(col), Steps: steps}
}

// Builtin returns a fresh copy of the default step tables.
func Builtin() *Library {
	l := &Library{
		WakeUp: seq(NameWakeUp,
			st(report.Hang, 250),
			st(report.PressL, 5),
			st(report.Hang, 20),
			st(report.PressA, 5),
			st(report.Hang, 150),
			st(report.PressB, 5),
			st(report.Hang, 150),
		),
		FlyToNursery: seq(NameFlyToNursery,
			st(report.PressX, 5),
			st(report.Hang, 60),
			st(report.PressA, 5),
			st(report.Hang, 140),
			st(report.PressA, 5),
			st(report.Hang, 40),
			st(report.PressA, 5),
			st(report.Hang, 260),
		),
		InOutNursery: seq(NameInOutNursery,
			st(report.LUp, 60),
			st(report.Hang, 150),
			st(report.LDown, 60),
			st(report.Hang, 150),
		),
		GoToCircle1: seq(NameGoToCircle1,
			st(report.LDown, 20),
			st(report.LRight, 60),
			st(report.Hang, 10),
		),
		Approach: seq(NameApproach,
			st(report.LLeft, 40),
			st(report.LUp, 25),
			st(report.LUpRightSlight, 10),
			st(report.Hang, 10),
		),
		Speak: seq(NameSpeak,
			st(report.PressA, 5),
			st(report.Hang, 40),
			st(report.PressA, 5),
			st(report.Hang, 80),
			st(report.PressA, 5),
			st(report.Hang, 180),
			st(report.PressA, 5),
			st(report.Hang, 40),
			st(report.PressA, 5),
			st(report.Hang, 60),
			st(report.PressB, 5),
			st(report.Hang, 40),
			st(report.PressB, 5),
			st(report.Hang, 40),
		),
		GoToCircle2: seq(NameGoToCircle2,
			st(report.LDownSlight, 10),
			st(report.LDown, 20),
			st(report.LRight, 40),
			st(report.Hang, 10),
		),
		GoToCircle3: seq(NameGoToCircle3,
			st(report.LDown, 40),
			st(report.LRight, 80),
			st(report.LRightSlight, 10),
			st(report.Hang, 10),
		),
		OpenBox: seq(NameOpenBox,
			st(report.PressX, 5),
			st(report.Hang, 40),
			st(report.LRight, 3),
			st(report.Hang, 10),
			st(report.PressA, 5),
			st(report.Hang, 80),
			st(report.PressR, 5),
			st(report.Hang, 120),
		),
		SelectColumn: seq(NameSelectColumn,
			st(report.PressY, 5),
			st(report.Hang, 10),
			st(report.PressY, 5),
			st(report.Hang, 10),
		),
		CloseBox: seq(NameCloseBox,
			st(report.PressB, 5),
			st(report.Hang, 60),
			st(report.PressB, 5),
			st(report.Hang, 60),
			st(report.PressB, 5),
			st(report.Hang, 100),
		),
		SaveGame: seq(NameSaveGame,
			st(report.PressX, 5),
			st(report.Hang, 40),
			st(report.PressR, 5),
			st(report.Hang, 80),
			st(report.PressA, 5),
			st(report.Hang, 200),
		),
		Sleep: sequence.Sequence{Name: NameSleep, Steps: concat(
			[]sequence.Step{st(report.PressHome, 5), st(report.Hang, 100)},
			taps(report.LDown, 1),
			taps(report.LRight, 5),
			[]sequence.Step{st(report.PressA, 5), st(report.Hang, 30), st(report.PressA, 5), st(report.Hang, 100)},
		)},
	}

	for i := 0; i < Columns; i++ {
		l.GrabPre[i] = grabPre(i + 1)
		l.GrabPost[i] = grabPost(i + 1)
	}

	return l
}
