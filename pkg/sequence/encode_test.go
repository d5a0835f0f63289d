package sequence

import (
	"bytes"
	"testing"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

func TestMarshalStepsLayout(t *testing.T) {
	steps := []Step{
		{Action: report.PressA, Duration: 5},
		{Action: report.LDown, Duration: 0x0102},
	}

	data, err := MarshalSteps(steps)
	if err != nil {
		t.Fatalf("MarshalSteps failed: %v", err)
	}

	expected := []byte{2, byte(report.PressA), 5, 0, byte(report.LDown), 0x02, 0x01}
	if !bytes.Equal(data, expected) {
		t.Errorf("Expected %v, got %v", expected, data)
	}

	decoded, err := UnmarshalSteps(data)
	if err != nil {
		t.Fatalf("UnmarshalSteps failed: %v", err)
	}
	if len(decoded) != len(steps) {
		t.Fatalf("Expected %d steps, got %d", len(steps), len(decoded))
	}
	for i := range steps {
		if decoded[i] != steps[i] {
			t.Errorf("step %d: expected %+v, got %+v", i, steps[i], decoded[i])
		}
	}
}

func TestMarshalStepsTooMany(t *testing.T) {
	steps := make([]Step, MaxSteps+1)
	if _, err := MarshalSteps(steps); err != ErrTooManySteps {
		t.Errorf("Expected ErrTooManySteps, got %v", err)
	}
}

func TestUnmarshalStepsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte{2, 1, 0, 0}},
		{"long", []byte{0, 1}},
		{"unknown action", []byte{1, 0xFE, 0, 0}},
	}

	for _, tt := range tests {
		if _, err := UnmarshalSteps(tt.data); err != ErrInvalidSteps {
			t.Errorf("%s: expected ErrInvalidSteps, got %v", tt.name, err)
		}
	}
}

func TestUnmarshalStepsEmptyTable(t *testing.T) {
	steps, err := UnmarshalSteps([]byte{0})
	if err != nil {
		t.Fatalf("UnmarshalSteps failed: %v", err)
	}
	if len(steps) != 0 {
		t.Errorf("Expected no steps, got %d", len(steps))
	}
}
