package engine

// State is a top-level step of the breeding macro.
type State uint8

const (
	Sync State = iota
	Breathe
	FlyToNursery
	NurseryToggle
	GoToCircle1
	Circle1
	ApproachNPC
	Speak
	GoToCircle2
	GoToCircle3
	OpenBox
	SelectColumn
	GrabPre
	SelectColumnAgain
	GrabPost
	CloseBox
	CircleCW
	Save
	Sleep
	Done

	stateCount
)

var stateNames = [stateCount]string{
	Sync:              "sync",
	Breathe:           "breathe",
	FlyToNursery:      "fly-to-nursery",
	NurseryToggle:     "nursery-toggle",
	GoToCircle1:       "circle1-entry",
	Circle1:           "circle1",
	ApproachNPC:       "approach-npc",
	Speak:             "speak",
	GoToCircle2:       "circle2-entry",
	GoToCircle3:       "circle3",
	OpenBox:           "open-box",
	SelectColumn:      "select-col",
	GrabPre:           "grab-pre",
	SelectColumnAgain: "select-col2",
	GrabPost:          "grab-post",
	CloseBox:          "close-box",
	CircleCW:          "circle-cw",
	Save:              "save",
	Sleep:             "sleep",
	Done:              "done",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return "invalid"
}

// Short returns an abbreviated name that fits a 16 column display row.
func (s State) Short() string {
	name := s.String()
	if len(name) > 10 {
		return name[:10]
	}
	return name
}

// States returns every valid state in order.
func States() []State {
	all := make([]State, stateCount)
	for i := range all {
		all[i] = State(i)
	}
	return all
}
