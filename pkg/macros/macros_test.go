package macros

import (
	"testing"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
)

func TestBuiltinComplete(t *testing.T) {
	l := Builtin()
	all := l.All()

	if len(all) != Count {
		t.Errorf("Expected %d sequences, got %d", Count, len(all))
	}

	seen := make(map[string]bool)
	for _, s := range all {
		if s.Name == "" {
			t.Errorf("Sequence with empty name")
		}
		if seen[s.Name] {
			t.Errorf("Duplicate sequence name %q", s.Name)
		}
		seen[s.Name] = true
		if len(s.Steps) == 0 {
			t.Errorf("Sequence %q has no steps", s.Name)
		}
	}
}

func TestBuiltinIsFreshCopy(t *testing.T) {
	a := Builtin()
	b := Builtin()

	a.Speak.Steps[0].Duration = 999
	if b.Speak.Steps[0].Duration == 999 {
		t.Errorf("Builtin libraries share step storage")
	}
}

func TestColumn(t *testing.T) {
	l := Builtin()

	for col := uint8(1); col <= Columns; col++ {
		pre, post, ok := l.Column(col)
		if !ok {
			t.Fatalf("Column(%d) not found", col)
		}
		if pre.Name != GrabPreName(int(col)) {
			t.Errorf("Column(%d) pre: expected %q, got %q", col, GrabPreName(int(col)), pre.Name)
		}
		if post.Name != GrabPostName(int(col)) {
			t.Errorf("Column(%d) post: expected %q, got %q", col, GrabPostName(int(col)), post.Name)
		}
	}

	for _, col := range []uint8{0, 7, 255} {
		if _, _, ok := l.Column(col); ok {
			t.Errorf("Column(%d) should not exist", col)
		}
	}
}

func TestLookupReplace(t *testing.T) {
	l := Builtin()

	steps := []sequence.Step{{Action: report.PressPlus, Duration: 1}}
	if err := l.Replace(GrabPreName(3), steps); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if l.GrabPre[2].Steps[0].Action != report.PressPlus {
		t.Errorf("Replace did not update column 3")
	}

	if _, err := l.Lookup("fly_to_moon"); err != ErrUnknownSequence {
		t.Errorf("Expected ErrUnknownSequence, got %v", err)
	}
}

func TestIndexAt(t *testing.T) {
	lib := Builtin()

	i, err := lib.Index(NameSpeak)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	s, err := lib.At(i)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	if s != &lib.Speak {
		t.Errorf("At(%d) returned %q, expected %q", i, s.Name, NameSpeak)
	}

	if _, err := lib.Index("nope"); err != ErrUnknownSequence {
		t.Errorf("Expected ErrUnknownSequence, got %v", err)
	}
	if _, err := lib.At(len(lib.All())); err != ErrUnknownSequence {
		t.Errorf("Expected ErrUnknownSequence, got %v", err)
	}
	if _, err := lib.At(-1); err != ErrUnknownSequence {
		t.Errorf("Expected ErrUnknownSequence, got %v", err)
	}
}

type countingCounter struct{ n int }

func (c *countingCounter) Count() { c.n++ }

func TestBuiltinRunToTicks(t *testing.T) {
	for _, s := range Builtin().All() {
		var cur sequence.Cursor
		var counter countingCounter
		ticks := s.Ticks()

		for i := 1; i <= ticks; i++ {
			r := report.Neutral()
			done := sequence.Advance(*s, &cur, &r, &counter)
			if done != (i == ticks) {
				t.Fatalf("%s: tick %d of %d reported done=%v", s.Name, i, ticks, done)
			}
			if done && r != report.Neutral() {
				t.Errorf("%s: completing tick not neutral: %+v", s.Name, r)
			}
		}
		if counter.n != 1 {
			t.Errorf("%s: expected 1 count, got %d", s.Name, counter.n)
		}
		if cur != (sequence.Cursor{}) {
			t.Errorf("%s: cursor not reset: %+v", s.Name, cur)
		}
	}
}
