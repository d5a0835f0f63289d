package sequence

import (
	"encoding/binary"
	"errors"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

// Binary step table limits.
const (
	StepSize = 3
	MaxSteps = 255
)

var (
	ErrTooManySteps = errors.New("too many steps")
	ErrInvalidSteps = errors.New("invalid step table")
)

// MarshalSteps encodes a step table for flash and the serial protocol.
// Layout:
//
//	[0]:             Count (uint8)
//	[1+3i]:          Action (uint8)
//	[2+3i .. 3+3i]:  Duration (uint16)
func MarshalSteps(steps []Step) ([]byte, error) {
	if len(steps) > MaxSteps {
		return nil, ErrTooManySteps
	}

	buf := make([]byte, 1+len(steps)*StepSize)
	buf[0] = uint8(len(steps))
	for i, st := range steps {
		off := 1 + i*StepSize
		buf[off] = uint8(st.Action)
		binary.LittleEndian.PutUint16(buf[off+1:], st.Duration)
	}
	return buf, nil
}

// UnmarshalSteps decodes a table written by MarshalSteps. Unknown actions are
// rejected.
func UnmarshalSteps(data []byte) ([]Step, error) {
	if len(data) < 1 {
		return nil, ErrInvalidSteps
	}
	count := int(data[0])
	if len(data) != 1+count*StepSize {
		return nil, ErrInvalidSteps
	}

	steps := make([]Step, count)
	for i := range steps {
		off := 1 + i*StepSize
		a := report.Action(data[off])
		if !a.Valid() {
			return nil, ErrInvalidSteps
		}
		steps[i] = Step{
			Action:   a,
			Duration: binary.LittleEndian.Uint16(data[off+1:]),
		}
	}
	return steps, nil
}
