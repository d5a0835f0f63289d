// Package config defines the configuration data structures for the egg bot.
// All structs are designed for zero-allocation binary serialization.
package config

import (
	"encoding/binary"
	"errors"
	"io"
)

// CurrentVersion is the config format version.
// Bump this when making breaking changes to the config format.
// When firmware boots and finds a different version in flash, configs are wiped.
const CurrentVersion uint16 = 1

// Encoded sizes.
const (
	SettingsSize = 10
	TallySize    = 16
)

// SavePolicy selects when the game is saved after a box is finished.
type SavePolicy uint8

const (
	SaveNever         SavePolicy = iota // never save
	SaveAlways                          // save after every box
	SaveWhenExhausted                   // save once the last box is done
)

// String returns the policy name.
func (p SavePolicy) String() string {
	switch p {
	case SaveNever:
		return "never"
	case SaveAlways:
		return "always"
	case SaveWhenExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ParseSavePolicy accepts a policy name or its numeric selector.
func ParseSavePolicy(s string) (SavePolicy, error) {
	switch s {
	case "never", "0":
		return SaveNever, nil
	case "always", "1":
		return SaveAlways, nil
	case "exhausted", "2":
		return SaveWhenExhausted, nil
	default:
		return SaveNever, ErrInvalidPolicy
	}
}

// Settings flags
const (
	FlagFlameBody uint8 = 1 << 0 // hatch steps halved by a Flame Body party member
)

// Settings is the breeding run configuration.
// Total size: 10 bytes
// Layout:
//
//	[0-1]: Version (uint16)
//	[2-3]: Species (uint16, national dex number)
//	[4]:   Flags (uint8)
//	[5]:   InitialEggChecks (uint8)
//	[6]:   SubsequentEggChecks (uint8)
//	[7]:   Boxes (uint8)
//	[8]:   SavePolicy (uint8)
//	[9]:   Reserved (uint8)
type Settings struct {
	Version             uint16     // Config format version
	Species             uint16     // National dex number, selects the egg cycle count
	Flags               uint8      // FlagFlameBody, ...
	InitialEggChecks    uint8      // Nursery checks in the first round
	SubsequentEggChecks uint8      // Nursery checks in every later round
	Boxes               uint8      // Boxes with free space
	SavePolicy          SavePolicy // When to save
	Reserved            uint8      // Padding
}

// Tally counts completed work across boots.
// Total size: 16 bytes
// Layout:
//
//	[0-1]:   Version (uint16)
//	[2-5]:   Runs (uint32)
//	[6-9]:   Boxes (uint32)
//	[10-13]: Eggs (uint32)
//	[14-15]: Reserved (uint16)
type Tally struct {
	Version  uint16 // Config format version
	Runs     uint32 // Boots with a valid run
	Boxes    uint32 // Boxes finished
	Eggs     uint32 // Egg collections finished
	Reserved uint16 // Reserved for future use
}

// Errors
var (
	ErrInvalidSize    = errors.New("invalid config size")
	ErrInvalidPolicy  = errors.New("invalid save policy")
	ErrInvalidSetting = errors.New("invalid setting")
)

// DefaultSettings returns the settings used when nothing is stored in flash.
func DefaultSettings() Settings {
	return Settings{
		Version:             CurrentVersion,
		Species:             1,
		Flags:               FlagFlameBody,
		InitialEggChecks:    30,
		SubsequentEggChecks: 30,
		Boxes:               1,
		SavePolicy:          SaveWhenExhausted,
	}
}

// FlameBody reports whether the flame body flag is set.
func (s *Settings) FlameBody() bool {
	return s.Flags&FlagFlameBody != 0
}

// SetFlameBody sets or clears the flame body flag.
func (s *Settings) SetFlameBody(on bool) {
	if on {
		s.Flags |= FlagFlameBody
	} else {
		s.Flags &^= FlagFlameBody
	}
}

// Validate checks the settings for values the engine cannot run with.
func (s *Settings) Validate() error {
	if s.SavePolicy > SaveWhenExhausted {
		return ErrInvalidPolicy
	}
	if s.Boxes == 0 {
		return ErrInvalidSetting
	}
	return nil
}

// Marshal writes the Settings to w in binary format.
// Returns the number of bytes written.
func (s *Settings) Marshal(w io.Writer) (int, error) {
	buf, _ := s.MarshalBinary()
	return w.Write(buf)
}

// Unmarshal reads the Settings from r in binary format.
func (s *Settings) Unmarshal(r io.Reader) error {
	buf := make([]byte, SettingsSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	return s.UnmarshalBinary(buf)
}

// MarshalBinary implements encoding.BinaryMarshaler for Settings.
func (s *Settings) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SettingsSize)
	binary.LittleEndian.PutUint16(buf[0:], s.Version)
	binary.LittleEndian.PutUint16(buf[2:], s.Species)
	buf[4] = s.Flags
	buf[5] = s.InitialEggChecks
	buf[6] = s.SubsequentEggChecks
	buf[7] = s.Boxes
	buf[8] = uint8(s.SavePolicy)
	buf[9] = s.Reserved
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Settings.
func (s *Settings) UnmarshalBinary(data []byte) error {
	if len(data) < SettingsSize {
		return ErrInvalidSize
	}

	s.Version = binary.LittleEndian.Uint16(data[0:])
	s.Species = binary.LittleEndian.Uint16(data[2:])
	s.Flags = data[4]
	s.InitialEggChecks = data[5]
	s.SubsequentEggChecks = data[6]
	s.Boxes = data[7]
	s.SavePolicy = SavePolicy(data[8])
	s.Reserved = data[9]
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler for Tally.
func (t *Tally) MarshalBinary() ([]byte, error) {
	buf := make([]byte, TallySize)
	binary.LittleEndian.PutUint16(buf[0:], t.Version)
	binary.LittleEndian.PutUint32(buf[2:], t.Runs)
	binary.LittleEndian.PutUint32(buf[6:], t.Boxes)
	binary.LittleEndian.PutUint32(buf[10:], t.Eggs)
	binary.LittleEndian.PutUint16(buf[14:], t.Reserved)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Tally.
func (t *Tally) UnmarshalBinary(data []byte) error {
	if len(data) < TallySize {
		return ErrInvalidSize
	}

	t.Version = binary.LittleEndian.Uint16(data[0:])
	t.Runs = binary.LittleEndian.Uint32(data[2:])
	t.Boxes = binary.LittleEndian.Uint32(data[6:])
	t.Eggs = binary.LittleEndian.Uint32(data[10:])
	t.Reserved = binary.LittleEndian.Uint16(data[14:])
	return nil
}
