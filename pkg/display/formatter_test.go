package display

import (
	"errors"
	"strings"
	"testing"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/protocol"
)

func TestFormatIncoming(t *testing.T) {
	f := NewFrameFormatter()

	bytesStr, parsedStr := f.FormatIncoming(&protocol.Frame{
		Cmd:     protocol.CmdSetTable,
		Payload: []byte{1, 2, 3, 4, 5, 6},
	})

	if bytesStr != "AA 07 0600 01020304...." {
		t.Errorf("Unexpected bytes string %q", bytesStr)
	}
	if parsedStr != "SetTbl[6]" {
		t.Errorf("Unexpected parsed string %q", parsedStr)
	}
}

func TestFormatOutgoing(t *testing.T) {
	f := NewFrameFormatter()

	bytesStr, parsedStr := f.FormatOutgoing(&protocol.Response{Status: protocol.StatusNotFound})

	if bytesStr != "AA 04 0000 .." {
		t.Errorf("Unexpected bytes string %q", bytesStr)
	}
	if parsedStr != "NotFnd[0]" {
		t.Errorf("Unexpected parsed string %q", parsedStr)
	}
}

func TestFormatError(t *testing.T) {
	f := NewFrameFormatter()

	if got := f.FormatError(errors.New("short")); got != "short" {
		t.Errorf("Expected 'short', got %q", got)
	}
	if got := f.FormatError(errors.New("a much longer error")); len(got) != 12 {
		t.Errorf("Expected 12 characters, got %q", got)
	}
}

func TestNamesCoverProtocol(t *testing.T) {
	cmds := []uint8{
		protocol.CmdGetSettings, protocol.CmdSetSettings, protocol.CmdGetStatus,
		protocol.CmdGetTally, protocol.CmdResetTally, protocol.CmdGetTable,
		protocol.CmdSetTable, protocol.CmdPing, protocol.CmdFactoryReset,
		protocol.CmdDeleteTable, protocol.CmdListTables, protocol.CmdGetStorageStats,
		protocol.CmdGetVersion, protocol.CmdDiscover, protocol.CmdReboot,
	}
	for _, c := range cmds {
		if strings.HasPrefix(CommandName(c), "Cmd") {
			t.Errorf("Command 0x%02X has no name", c)
		}
	}
	if CommandName(0xEE) != "CmdEE" {
		t.Errorf("Unexpected fallback %q", CommandName(0xEE))
	}
	if StatusName(0x42) != "Sts42" {
		t.Errorf("Unexpected fallback %q", StatusName(0x42))
	}
}

func TestFormatStatus(t *testing.T) {
	st := engine.Status{
		State:            engine.CircleCW,
		Slot:             3,
		Eggs:             -1,
		Boxes:            2,
		Collected:        31,
		BreedingDuration: 100,
		Elapsed:          1,
	}

	state, counters, progress := FormatStatus(&st)

	if state != engine.CircleCW.Short()+" c3" {
		t.Errorf("Unexpected state row %q", state)
	}
	if counters != "e-1 b2 h31" {
		t.Errorf("Unexpected counters row %q", counters)
	}
	if progress != "4300/4301" {
		t.Errorf("Unexpected progress row %q", progress)
	}

	st = engine.Status{State: engine.Done, BoxesDone: 4}
	if _, _, progress := FormatStatus(&st); progress != "done 4 box" {
		t.Errorf("Unexpected done row %q", progress)
	}

	st = engine.Status{State: engine.Speak, Ticks: 77}
	if _, _, progress := FormatStatus(&st); progress != "t77" {
		t.Errorf("Unexpected progress row %q", progress)
	}
}
