package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/storage"

	"tinygo.org/x/tinyfs"
)

type fakeDevice struct {
	status   engine.Status
	tally    config.Tally
	resetErr error
	reboots  int
}

func (d *fakeDevice) Status() engine.Status { return d.status }
func (d *fakeDevice) Tally() config.Tally   { return d.tally }
func (d *fakeDevice) Reboot()               { d.reboots++ }

func (d *fakeDevice) ResetTally() error {
	if d.resetErr != nil {
		return d.resetErr
	}
	d.tally = config.Tally{}
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *storage.Manager, *fakeDevice) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)
	mgr, err := storage.New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	dev := &fakeDevice{}
	return NewHandler(mgr, dev), mgr, dev
}

func tablePayload(index uint8, steps []sequence.Step) []byte {
	data, _ := sequence.MarshalSteps(steps)
	return append([]byte{index}, data...)
}

func TestFrameEncodingDecoding(t *testing.T) {
	original := &Frame{
		Cmd:     CmdGetSettings,
		Payload: []byte{1, 2, 3, 4},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, original); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	decoded, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if decoded.Cmd != original.Cmd {
		t.Errorf("Cmd: expected 0x%x, got 0x%x", original.Cmd, decoded.Cmd)
	}
	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("Payload: expected %v, got %v", original.Payload, decoded.Payload)
	}
}

func TestResponseEncodingDecoding(t *testing.T) {
	original := &Response{
		Status:  StatusNotFound,
		Payload: []byte("nope"),
	}

	var buf bytes.Buffer
	if err := WriteResponse(&buf, original); err != nil {
		t.Fatalf("WriteResponse failed: %v", err)
	}

	raw := buf.Bytes()
	if raw[0] != SyncByte || raw[1] != StatusNotFound {
		t.Errorf("Unexpected header % X", raw[:4])
	}
	if len(raw) != 1+1+2+4+2 {
		t.Errorf("Expected %d bytes, got %d", 10, len(raw))
	}

	decoded, err := ReadResponse(&buf)
	if err != nil {
		t.Fatalf("ReadResponse failed: %v", err)
	}
	if decoded.Status != original.Status || !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("Expected %+v, got %+v", original, decoded)
	}
}

func TestPingCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	frame := &Frame{
		Cmd:     CmdPing,
		Payload: []byte{0xAA, 0xBB, 0xCC},
	}

	resp := handler.Handle(frame)

	if resp.Status != StatusOK {
		t.Errorf("Expected status OK, got 0x%x", resp.Status)
	}
	if !bytes.Equal(resp.Payload, frame.Payload) {
		t.Errorf("Expected echo payload, got %v", resp.Payload)
	}
}

func TestGetSettingsDefaults(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetSettings})
	if resp.Status != StatusOK {
		t.Fatalf("GetSettings failed: status 0x%x", resp.Status)
	}

	var s config.Settings
	if err := s.UnmarshalBinary(resp.Payload); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if s != config.DefaultSettings() {
		t.Errorf("Expected defaults, got %+v", s)
	}
}

func TestGetSetSettings(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	settings := config.Settings{
		Version:             config.CurrentVersion,
		Species:             133,
		InitialEggChecks:    10,
		SubsequentEggChecks: 25,
		Boxes:               4,
		SavePolicy:          config.SaveAlways,
	}
	data, _ := settings.MarshalBinary()

	setResp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data})
	if setResp.Status != StatusOK {
		t.Fatalf("SetSettings failed: status 0x%x", setResp.Status)
	}

	getResp := handler.Handle(&Frame{Cmd: CmdGetSettings})
	if getResp.Status != StatusOK {
		t.Fatalf("GetSettings failed: status 0x%x", getResp.Status)
	}

	var loaded config.Settings
	if err := loaded.UnmarshalBinary(getResp.Payload); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if loaded != settings {
		t.Errorf("Expected %+v, got %+v", settings, loaded)
	}
}

func TestSetSettingsRejects(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	valid := config.DefaultSettings()

	wrongVersion := valid
	wrongVersion.Version = config.CurrentVersion + 1

	badPolicy := valid
	badPolicy.SavePolicy = 7

	noBoxes := valid
	noBoxes.Boxes = 0

	tests := []struct {
		name     string
		settings config.Settings
		expected uint8
	}{
		{"version", wrongVersion, StatusVersionMismatch},
		{"policy", badPolicy, StatusInvalidData},
		{"boxes", noBoxes, StatusInvalidData},
	}

	for _, tt := range tests {
		data, _ := tt.settings.MarshalBinary()
		resp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data})
		if resp.Status != tt.expected {
			t.Errorf("%s: expected 0x%x, got 0x%x", tt.name, tt.expected, resp.Status)
		}
	}
}

func TestGetStatus(t *testing.T) {
	handler, mgr, dev := newTestHandler(t)
	defer mgr.Close()

	dev.status = engine.Status{State: engine.CircleCW, Slot: 4, Eggs: 12, Ticks: 99}

	resp := handler.Handle(&Frame{Cmd: CmdGetStatus})
	if resp.Status != StatusOK {
		t.Fatalf("GetStatus failed: status 0x%x", resp.Status)
	}
	if len(resp.Payload) != engine.StatusSize {
		t.Fatalf("Expected %d bytes, got %d", engine.StatusSize, len(resp.Payload))
	}

	var st engine.Status
	if err := st.UnmarshalBinary(resp.Payload); err != nil {
		t.Fatalf("Failed to unmarshal status: %v", err)
	}
	if st != dev.status {
		t.Errorf("Expected %+v, got %+v", dev.status, st)
	}
}

func TestTallyCommands(t *testing.T) {
	handler, mgr, dev := newTestHandler(t)
	defer mgr.Close()

	dev.tally = config.Tally{Runs: 2, Boxes: 3, Eggs: 90}

	resp := handler.Handle(&Frame{Cmd: CmdGetTally})
	if resp.Status != StatusOK {
		t.Fatalf("GetTally failed: status 0x%x", resp.Status)
	}
	var tally config.Tally
	if err := tally.UnmarshalBinary(resp.Payload); err != nil {
		t.Fatalf("Failed to unmarshal tally: %v", err)
	}
	if tally != dev.tally {
		t.Errorf("Expected %+v, got %+v", dev.tally, tally)
	}

	resp = handler.Handle(&Frame{Cmd: CmdResetTally})
	if resp.Status != StatusOK {
		t.Fatalf("ResetTally failed: status 0x%x", resp.Status)
	}
	if dev.tally != (config.Tally{}) {
		t.Errorf("Expected tally cleared, got %+v", dev.tally)
	}

	dev.resetErr = errors.New("flash")
	resp = handler.Handle(&Frame{Cmd: CmdResetTally})
	if resp.Status != StatusError {
		t.Errorf("Expected StatusError, got 0x%x", resp.Status)
	}
}

func TestGetSetTable(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	steps := []sequence.Step{
		{Action: report.PressA, Duration: 4},
		{Action: report.LUpSlight, Duration: 250},
	}

	setResp := handler.Handle(&Frame{Cmd: CmdSetTable, Payload: tablePayload(5, steps)})
	if setResp.Status != StatusOK {
		t.Fatalf("SetTable failed: status 0x%x", setResp.Status)
	}

	getResp := handler.Handle(&Frame{Cmd: CmdGetTable, Payload: []byte{5}})
	if getResp.Status != StatusOK {
		t.Fatalf("GetTable failed: status 0x%x", getResp.Status)
	}

	loaded, err := sequence.UnmarshalSteps(getResp.Payload)
	if err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(loaded) != 2 || loaded[1] != steps[1] {
		t.Errorf("Expected %+v, got %+v", steps, loaded)
	}
}

func TestSetTableRejects(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	steps := []sequence.Step{{Action: report.PressB}}

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"index only", []byte{0}},
		{"index out of range", tablePayload(macros.Count, steps)},
		{"truncated", tablePayload(0, steps)[:3]},
		{"unknown action", []byte{0, 1, 0xF0, 0, 0}},
	}

	for _, tt := range tests {
		resp := handler.Handle(&Frame{Cmd: CmdSetTable, Payload: tt.payload})
		if resp.Status != StatusInvalidData {
			t.Errorf("%s: expected StatusInvalidData, got 0x%x", tt.name, resp.Status)
		}
	}
}

func TestDeleteTable(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	steps := []sequence.Step{{Action: report.PressB, Duration: 3}}
	resp := handler.Handle(&Frame{Cmd: CmdSetTable, Payload: tablePayload(7, steps)})
	if resp.Status != StatusOK {
		t.Fatalf("Failed to create table: status 0x%x", resp.Status)
	}

	delResp := handler.Handle(&Frame{Cmd: CmdDeleteTable, Payload: []byte{7}})
	if delResp.Status != StatusOK {
		t.Errorf("DeleteTable failed: status 0x%x", delResp.Status)
	}

	getResp := handler.Handle(&Frame{Cmd: CmdGetTable, Payload: []byte{7}})
	if getResp.Status != StatusNotFound {
		t.Errorf("Expected StatusNotFound, got 0x%x", getResp.Status)
	}

	delResp = handler.Handle(&Frame{Cmd: CmdDeleteTable, Payload: []byte{7}})
	if delResp.Status != StatusNotFound {
		t.Errorf("Expected StatusNotFound on second delete, got 0x%x", delResp.Status)
	}
}

func TestListTables(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	steps := []sequence.Step{{Action: report.PressA}}
	for _, i := range []uint8{0, 2, 5, 10} {
		resp := handler.Handle(&Frame{Cmd: CmdSetTable, Payload: tablePayload(i, steps)})
		if resp.Status != StatusOK {
			t.Fatalf("Failed to create table %d: status 0x%x", i, resp.Status)
		}
	}

	listResp := handler.Handle(&Frame{Cmd: CmdListTables})
	if listResp.Status != StatusOK {
		t.Fatalf("ListTables failed: status 0x%x", listResp.Status)
	}

	// [Count:1][Index1:1][Index2:1]...
	if len(listResp.Payload) < 1 {
		t.Fatal("Empty list response")
	}

	count := listResp.Payload[0]
	if count != 4 {
		t.Errorf("Expected 4 tables, got %d", count)
	}
	if len(listResp.Payload) != int(1+count) {
		t.Errorf("Expected payload length %d, got %d", 1+count, len(listResp.Payload))
	}
}

func TestStorageStats(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetStorageStats})
	if resp.Status != StatusOK {
		t.Fatalf("GetStorageStats failed: status 0x%x", resp.Status)
	}

	// [Total:4][Used:4][Free:4][TableCount:1]
	if len(resp.Payload) != 13 {
		t.Fatalf("Expected 13 bytes, got %d", len(resp.Payload))
	}

	total := binary.LittleEndian.Uint32(resp.Payload[0:4])
	used := binary.LittleEndian.Uint32(resp.Payload[4:8])
	free := binary.LittleEndian.Uint32(resp.Payload[8:12])
	tableCount := resp.Payload[12]

	if total == 0 {
		t.Error("Total space should not be zero")
	}
	if used > total {
		t.Errorf("Used space (%d) should not exceed total (%d)", used, total)
	}
	if free > total {
		t.Errorf("Free space (%d) should not exceed total (%d)", free, total)
	}
	if tableCount != 0 {
		t.Errorf("Expected 0 tables initially, got %d", tableCount)
	}
}

func TestFactoryReset(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	settings := config.DefaultSettings()
	settings.Species = 25
	data, _ := settings.MarshalBinary()
	handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data})
	handler.Handle(&Frame{Cmd: CmdSetTable, Payload: tablePayload(0, []sequence.Step{{Action: report.PressA}})})

	resetResp := handler.Handle(&Frame{Cmd: CmdFactoryReset})
	if resetResp.Status != StatusOK {
		t.Errorf("FactoryReset failed: status 0x%x", resetResp.Status)
	}

	listResp := handler.Handle(&Frame{Cmd: CmdListTables})
	if listResp.Payload[0] != 0 {
		t.Error("Expected 0 tables after reset")
	}

	getResp := handler.Handle(&Frame{Cmd: CmdGetSettings})
	var loaded config.Settings
	loaded.UnmarshalBinary(getResp.Payload)
	if loaded.Species != config.DefaultSettings().Species {
		t.Errorf("Expected default settings after reset, got species %d", loaded.Species)
	}
}

func TestGetVersion(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetVersion})
	if resp.Status != StatusOK {
		t.Fatalf("GetVersion failed: status 0x%x", resp.Status)
	}

	// [FirmwareVersionMajor:1][FirmwareVersionMinor:1][ConfigVersion:2]
	if len(resp.Payload) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(resp.Payload))
	}

	if resp.Payload[0] != FirmwareMajor || resp.Payload[1] != FirmwareMinor {
		t.Errorf("Unexpected firmware version %d.%d", resp.Payload[0], resp.Payload[1])
	}
	configVersion := binary.LittleEndian.Uint16(resp.Payload[2:4])
	if configVersion != config.CurrentVersion {
		t.Errorf("Expected config version %d, got %d", config.CurrentVersion, configVersion)
	}
}

func TestReboot(t *testing.T) {
	handler, mgr, dev := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdReboot})
	if resp.Status != StatusOK {
		t.Errorf("Reboot failed: status 0x%x", resp.Status)
	}
	if dev.reboots != 1 {
		t.Errorf("Expected 1 reboot request, got %d", dev.reboots)
	}
}

func TestInvalidCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: 0xFF})
	if resp.Status != StatusInvalidCmd {
		t.Errorf("Expected StatusInvalidCmd, got 0x%x", resp.Status)
	}
}

func TestInvalidData(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	frame := &Frame{
		Cmd:     CmdSetSettings,
		Payload: []byte{1, 2, 3}, // Too short
	}

	resp := handler.Handle(frame)
	if resp.Status != StatusInvalidData {
		t.Errorf("Expected StatusInvalidData, got 0x%x", resp.Status)
	}
}

func TestCRCMismatch(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(SyncByte)
	buf.WriteByte(CmdPing)
	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, 0)
	buf.Write(lenBytes)
	buf.Write([]byte{0xFF, 0xFF})

	_, err := ReadFrame(buf)
	if err != ErrCRCMismatch {
		t.Errorf("Expected ErrCRCMismatch, got %v", err)
	}
}

func TestInvalidFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(0x55) // Wrong sync

	_, err := ReadFrame(buf)
	if err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

func TestOversizedFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(SyncByte)
	buf.WriteByte(CmdSetTable)
	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, MaxPayload+1)
	buf.Write(lenBytes)

	_, err := ReadFrame(buf)
	if err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

func TestDiscoverCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdDiscover})
	if resp.Status != StatusOK {
		t.Fatalf("CmdDiscover failed: status 0x%x", resp.Status)
	}

	if string(resp.Payload) != DiscoverReply {
		t.Errorf("Expected payload '%s', got '%s'", DiscoverReply, string(resp.Payload))
	}
}

func TestCalcCRCKnownValue(t *testing.T) {
	// CRC-16/CCITT-FALSE check value
	if got := calcCRC([]byte("123456789")); got != 0x29B1 {
		t.Errorf("Expected 0x29B1, got 0x%04X", got)
	}
}
