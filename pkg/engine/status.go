package engine

import (
	"encoding/binary"
	"errors"
)

// StatusSize is the encoded length of a Status.
const StatusSize = 24

var ErrInvalidStatus = errors.New("invalid status size")

// Status is a point-in-time copy of the machine for displays and the serial
// protocol.
// Layout:
//
//	[0]:     State (uint8)
//	[1]:     Slot (uint8)
//	[2]:     Column (uint8)
//	[3]:     NewRound (uint8)
//	[4-5]:   Eggs (int16)
//	[6-7]:   Boxes (int16)
//	[8-9]:   BreedingDuration (uint16)
//	[10-11]: Elapsed (uint16)
//	[12-15]: Ticks (uint32)
//	[16-19]: Collected (uint32)
//	[20-23]: BoxesDone (uint32)
type Status struct {
	State            State
	Slot             uint8
	Column           uint8
	NewRound         bool
	Eggs             int16
	Boxes            int16
	BreedingDuration uint16
	Elapsed          uint16
	Ticks            uint32
	Collected        uint32 // nursery pickups finished since boot
	BoxesDone        uint32 // boxes finished since boot
}

// Status returns a snapshot of the machine.
func (m *Machine) Status() Status {
	return Status{
		State:            m.State,
		Slot:             m.Counters.Slot,
		Column:           m.Column,
		NewRound:         m.Counters.NewRound,
		Eggs:             int16(m.Counters.Eggs),
		Boxes:            int16(m.Counters.Boxes),
		BreedingDuration: uint16(m.BreedingDuration),
		Elapsed:          uint16(m.Elapsed),
		Ticks:            m.Ticks,
		Collected:        m.collected,
		BoxesDone:        m.boxesDone,
	}
}

// Remaining returns the ticks left in the current circling routine, or 0
// outside one.
func (s *Status) Remaining() int {
	switch s.State {
	case Circle1:
		return circle1Limit + 1 - int(s.Elapsed)
	case CircleCW:
		return int(s.BreedingDuration) + hatchMargin + 1 - int(s.Elapsed)
	default:
		return 0
	}
}

// MarshalBinary implements encoding.BinaryMarshaler for Status.
func (s *Status) MarshalBinary() ([]byte, error) {
	buf := make([]byte, StatusSize)
	buf[0] = uint8(s.State)
	buf[1] = s.Slot
	buf[2] = s.Column
	if s.NewRound {
		buf[3] = 1
	}
	binary.LittleEndian.PutUint16(buf[4:], uint16(s.Eggs))
	binary.LittleEndian.PutUint16(buf[6:], uint16(s.Boxes))
	binary.LittleEndian.PutUint16(buf[8:], s.BreedingDuration)
	binary.LittleEndian.PutUint16(buf[10:], s.Elapsed)
	binary.LittleEndian.PutUint32(buf[12:], s.Ticks)
	binary.LittleEndian.PutUint32(buf[16:], s.Collected)
	binary.LittleEndian.PutUint32(buf[20:], s.BoxesDone)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Status.
func (s *Status) UnmarshalBinary(data []byte) error {
	if len(data) < StatusSize {
		return ErrInvalidStatus
	}

	s.State = State(data[0])
	s.Slot = data[1]
	s.Column = data[2]
	s.NewRound = data[3] != 0
	s.Eggs = int16(binary.LittleEndian.Uint16(data[4:]))
	s.Boxes = int16(binary.LittleEndian.Uint16(data[6:]))
	s.BreedingDuration = binary.LittleEndian.Uint16(data[8:])
	s.Elapsed = binary.LittleEndian.Uint16(data[10:])
	s.Ticks = binary.LittleEndian.Uint32(data[12:])
	s.Collected = binary.LittleEndian.Uint32(data[16:])
	s.BoxesDone = binary.LittleEndian.Uint32(data[20:])
	return nil
}
