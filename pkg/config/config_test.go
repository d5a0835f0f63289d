package config

import (
	"bytes"
	"testing"
)

func TestSettingsMarshalUnmarshal(t *testing.T) {
	original := Settings{
		Version:             1,
		Species:             848,
		Flags:               FlagFlameBody,
		InitialEggChecks:    40,
		SubsequentEggChecks: 25,
		Boxes:               3,
		SavePolicy:          SaveAlways,
	}

	// Marshal
	data, err := original.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	if len(data) != SettingsSize {
		t.Errorf("Expected %d bytes, got %d", SettingsSize, len(data))
	}

	// Unmarshal
	var decoded Settings
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}

	if decoded != original {
		t.Errorf("Expected %+v, got %+v", original, decoded)
	}
}

func TestSettingsLayout(t *testing.T) {
	s := Settings{Version: 1, Species: 0x0350, Flags: 1, InitialEggChecks: 2, SubsequentEggChecks: 3, Boxes: 4, SavePolicy: SaveWhenExhausted}
	data, _ := s.MarshalBinary()

	expected := []byte{0x01, 0x00, 0x50, 0x03, 1, 2, 3, 4, 2, 0}
	if !bytes.Equal(data, expected) {
		t.Errorf("Expected %v, got %v", expected, data)
	}
}

func TestSettingsWriterReader(t *testing.T) {
	original := DefaultSettings()

	var buf bytes.Buffer
	n, err := original.Marshal(&buf)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if n != SettingsSize {
		t.Errorf("Expected %d bytes written, got %d", SettingsSize, n)
	}

	var decoded Settings
	if err := decoded.Unmarshal(&buf); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != original {
		t.Errorf("Expected %+v, got %+v", original, decoded)
	}
}

func TestTallyMarshalUnmarshal(t *testing.T) {
	original := Tally{Version: 1, Runs: 7, Boxes: 0xDEADBEEF, Eggs: 1234}

	data, err := original.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(data) != TallySize {
		t.Errorf("Expected %d bytes, got %d", TallySize, len(data))
	}

	var decoded Tally
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if decoded != original {
		t.Errorf("Expected %+v, got %+v", original, decoded)
	}
}

func TestUnmarshalInvalidSize(t *testing.T) {
	var settings Settings
	if err := settings.UnmarshalBinary([]byte{1, 2, 3}); err != ErrInvalidSize {
		t.Errorf("Expected ErrInvalidSize, got %v", err)
	}

	var tally Tally
	if err := tally.UnmarshalBinary([]byte{1, 2}); err != ErrInvalidSize {
		t.Errorf("Expected ErrInvalidSize, got %v", err)
	}
}

func TestFlameBody(t *testing.T) {
	var s Settings
	if s.FlameBody() {
		t.Errorf("Expected flame body off")
	}
	s.SetFlameBody(true)
	if !s.FlameBody() {
		t.Errorf("Expected flame body on")
	}
	s.SetFlameBody(false)
	if s.Flags != 0 {
		t.Errorf("Expected flags cleared, got 0x%x", s.Flags)
	}
}

func TestValidate(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Errorf("Default settings invalid: %v", err)
	}

	s.SavePolicy = 3
	if err := s.Validate(); err != ErrInvalidPolicy {
		t.Errorf("Expected ErrInvalidPolicy, got %v", err)
	}

	s = DefaultSettings()
	s.Boxes = 0
	if err := s.Validate(); err != ErrInvalidSetting {
		t.Errorf("Expected ErrInvalidSetting, got %v", err)
	}
}

func TestParseSavePolicy(t *testing.T) {
	tests := []struct {
		in       string
		expected SavePolicy
	}{
		{"never", SaveNever},
		{"0", SaveNever},
		{"always", SaveAlways},
		{"1", SaveAlways},
		{"exhausted", SaveWhenExhausted},
		{"2", SaveWhenExhausted},
	}

	for _, tt := range tests {
		p, err := ParseSavePolicy(tt.in)
		if err != nil {
			t.Errorf("ParseSavePolicy(%q) failed: %v", tt.in, err)
		}
		if p != tt.expected {
			t.Errorf("ParseSavePolicy(%q): expected %s, got %s", tt.in, tt.expected, p)
		}
	}

	if _, err := ParseSavePolicy("sometimes"); err != ErrInvalidPolicy {
		t.Errorf("Expected ErrInvalidPolicy, got %v", err)
	}
}

func TestEggSteps(t *testing.T) {
	steps, ok := EggSteps(848)
	if !ok {
		t.Fatal("Expected Toxel to be known")
	}
	if steps != 6400 {
		t.Errorf("Expected 6400 steps, got %d", steps)
	}

	if _, ok := EggSteps(0); ok {
		t.Errorf("Species 0 should be unknown")
	}

	known := KnownSpecies()
	for i := 1; i < len(known); i++ {
		if known[i-1] >= known[i] {
			t.Fatalf("KnownSpecies not sorted at %d", i)
		}
	}
}

func BenchmarkSettingsMarshal(b *testing.B) {
	s := DefaultSettings()
	for i := 0; i < b.N; i++ {
		if _, err := s.MarshalBinary(); err != nil {
			b.Fatal(err)
		}
	}
}
