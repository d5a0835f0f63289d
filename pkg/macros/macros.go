// Package macros holds the step tables the engine replays. The tables are
// configuration data: the engine only knows which named sequence each state
// runs, never what is inside it.
package macros

import (
	"errors"
	"strconv"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
)

// Columns is the number of box columns eggs are sorted into.
const Columns = 6

// Count is the number of sequences in a Library.
const Count = 13 + 2*Columns

// Sequence names as used in table files.
const (
	NameWakeUp       = "wake_up"
	NameFlyToNursery = "fly_to_nursery"
	NameInOutNursery = "in_out_nursery"
	NameGoToCircle1  = "go_to_circle1"
	NameApproach     = "approach"
	NameSpeak        = "speak"
	NameGoToCircle2  = "go_to_circle2"
	NameGoToCircle3  = "go_to_circle3"
	NameOpenBox      = "open_box"
	NameSelectColumn = "select_col"
	NameCloseBox     = "close_box"
	NameSaveGame     = "save_game"
	NameSleep        = "sleep"
)

var ErrUnknownSequence = errors.New("unknown sequence")

// GrabPreName returns the table name of a column's pre-grab sequence.
func GrabPreName(col int) string {
	return "grab_eggs" + strconv.Itoa(col) + "_pre"
}

// GrabPostName returns the table name of a column's post-grab sequence.
func GrabPostName(col int) string {
	return "grab_eggs" + strconv.Itoa(col) + "_post"
}

// Library is the full set of sequences the engine needs.
type Library struct {
	WakeUp       sequence.Sequence
	FlyToNursery sequence.Sequence
	InOutNursery sequence.Sequence
	GoToCircle1  sequence.Sequence
	Approach     sequence.Sequence
	Speak        sequence.Sequence
	GoToCircle2  sequence.Sequence
	GoToCircle3  sequence.Sequence
	OpenBox      sequence.Sequence
	SelectColumn sequence.Sequence
	GrabPre      [Columns]sequence.Sequence
	GrabPost     [Columns]sequence.Sequence
	CloseBox     sequence.Sequence
	SaveGame     sequence.Sequence
	Sleep        sequence.Sequence
}

// Column returns the pre and post grab sequences for a 1-based column.
func (l *Library) Column(col uint8) (pre, post *sequence.Sequence, ok bool) {
	if col < 1 || col > Columns {
		return nil, nil, false
	}
	return &l.GrabPre[col-1], &l.GrabPost[col-1], true
}

// All returns pointers to every sequence in table order.
func (l *Library) All() []*sequence.Sequence {
	all := []*sequence.Sequence{
		&l.WakeUp,
		&l.FlyToNursery,
		&l.InOutNursery,
		&l.GoToCircle1,
		&l.Approach,
		&l.Speak,
		&l.GoToCircle2,
		&l.GoToCircle3,
		&l.OpenBox,
		&l.SelectColumn,
	}
	for i := range l.GrabPre {
		all = append(all, &l.GrabPre[i])
	}
	for i := range l.GrabPost {
		all = append(all, &l.GrabPost[i])
	}
	return append(all, &l.CloseBox, &l.SaveGame, &l.Sleep)
}

// Lookup finds a sequence by its table name.
func (l *Library) Lookup(name string) (*sequence.Sequence, error) {
	for _, s := range l.All() {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, ErrUnknownSequence
}

// Replace swaps the steps of the named sequence.
func (l *Library) Replace(name string, steps []sequence.Step) error {
	s, err := l.Lookup(name)
	if err != nil {
		return err
	}
	s.Steps = steps
	return nil
}

// Index returns the position of the named sequence in All.
func (l *Library) Index(name string) (int, error) {
	for i, s := range l.All() {
		if s.Name == name {
			return i, nil
		}
	}
	return -1, ErrUnknownSequence
}

// At returns the sequence at position i of All.
func (l *Library) At(i int) (*sequence.Sequence, error) {
	all := l.All()
	if i < 0 || i >= len(all) {
		return nil, ErrUnknownSequence
	}
	return all[i], nil
}
