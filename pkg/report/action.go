package report

import "errors"

// Action is a symbolic controller input. Composite inputs such as diagonals are
// their own action rather than two actions applied in sequence.
type Action uint8

const (
	Hang Action = iota // reset to neutral and idle
	PressA
	PressB
	PressX
	PressY
	PressR
	PressL
	PressPlus
	PressHome
	LLeft
	LRight
	LUp
	LDown
	LUpRight
	LUpRightSlight
	LLeftSlight
	LRightSlight
	LUpSlight
	LDownSlight

	actionCount
)

// Partial deflection values used by the slight actions.
const (
	slightLow      uint8 = 100
	slightHigh     uint8 = 160
	diagSlightUp   uint8 = 60
	diagSlightSide uint8 = 200
)

var ErrUnknownAction = errors.New("unknown action")

var actionNames = [actionCount]string{
	Hang:           "hang",
	PressA:         "a",
	PressB:         "b",
	PressX:         "x",
	PressY:         "y",
	PressR:         "r",
	PressL:         "l",
	PressPlus:      "plus",
	PressHome:      "home",
	LLeft:          "left",
	LRight:         "right",
	LUp:            "up",
	LDown:          "down",
	LUpRight:       "up_right",
	LUpRightSlight: "up_right_slight",
	LLeftSlight:    "left_slight",
	LRightSlight:   "right_slight",
	LUpSlight:      "up_slight",
	LDownSlight:    "down_slight",
}

// String returns the action's table name.
func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return "unknown"
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a < actionCount
}

// ParseAction returns the action with the given table name.
func ParseAction(name string) (Action, error) {
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return Hang, ErrUnknownAction
}

// MarshalText implements encoding.TextMarshaler so actions read naturally in
// step tables.
func (a Action) MarshalText() ([]byte, error) {
	if a >= actionCount {
		return nil, ErrUnknownAction
	}
	return []byte(actionNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for Action.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Apply mutates the report for one tick of the action. Buttons are OR'ed in,
// stick actions only touch their own axes, and Hang or any unknown action
// resets the whole report.
func (r *Report) Apply(a Action) {
	switch a {
	case PressA:
		r.Buttons |= ButtonA
	case PressB:
		r.Buttons |= ButtonB
	case PressX:
		r.Buttons |= ButtonX
	case PressY:
		r.Buttons |= ButtonY
	case PressR:
		r.Buttons |= ButtonR
	case PressL:
		r.Buttons |= ButtonL
	case PressPlus:
		r.Buttons |= ButtonPlus
	case PressHome:
		r.Buttons |= ButtonHome
	case LLeft:
		r.LX = StickMin
	case LRight:
		r.LX = StickMax
	case LUp:
		r.LY = StickMin
	case LDown:
		r.LY = StickMax
	case LUpRight:
		r.LY = StickMin
		r.LX = StickMax
	case LUpRightSlight:
		r.LY = diagSlightUp
		r.LX = diagSlightSide
	case LLeftSlight:
		r.LX = slightLow
	case LRightSlight:
		r.LX = slightHigh
	case LUpSlight:
		r.LY = slightLow
	case LDownSlight:
		r.LY = slightHigh
	default:
		r.Reset()
	}
}
