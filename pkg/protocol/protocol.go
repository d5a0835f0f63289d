// Package protocol implements the binary serial protocol the host tooling uses
// to configure the bot and watch a run.
// The protocol is designed to be simple, efficient, and suitable for TinyGo.
//
// Frame format:
//
//	[SYNC:1][CMD:1][LEN:2][PAYLOAD:LEN][CRC:2]
//	- SYNC: 0xAA (frame start marker)
//	- CMD: Command byte
//	- LEN: Payload length (uint16, little-endian)
//	- PAYLOAD: Variable length data
//	- CRC: CRC16-CCITT of [CMD][LEN][PAYLOAD]
//
// Response format is identical, with a status byte in place of CMD.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/storage"
)

const (
	SyncByte = 0xAA

	// MaxPayload bounds the LEN field of accepted frames.
	MaxPayload = 4096

	// Command codes (PC → Device)
	CmdGetSettings     = 0x01
	CmdSetSettings     = 0x02
	CmdGetStatus       = 0x03
	CmdGetTally        = 0x04
	CmdResetTally      = 0x05
	CmdGetTable        = 0x06
	CmdSetTable        = 0x07
	CmdPing            = 0x08
	CmdFactoryReset    = 0x09
	CmdDeleteTable     = 0x0A
	CmdListTables      = 0x0B
	CmdGetStorageStats = 0x0C
	CmdGetVersion      = 0x10
	CmdDiscover        = 0x11
	CmdReboot          = 0x12

	// Response status codes (Device → PC)
	StatusOK              = 0x00
	StatusError           = 0x01
	StatusInvalidCmd      = 0x02
	StatusInvalidData     = 0x03
	StatusNotFound        = 0x04
	StatusNoSpace         = 0x05
	StatusVersionMismatch = 0x06
	StatusCRCError        = 0x07
)

// Firmware version reported by CmdGetVersion.
const (
	FirmwareMajor = 0
	FirmwareMinor = 3
)

// DiscoverReply is the CmdDiscover payload identifying the device.
const DiscoverReply = "eggbot"

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrCRCMismatch  = errors.New("CRC mismatch")
	ErrTimeout      = errors.New("timeout")
)

// Device is the live side of the firmware the handler reports on.
type Device interface {
	Status() engine.Status
	Tally() config.Tally
	ResetTally() error
	Reboot()
}

// Handler processes protocol commands.
type Handler struct {
	storage *storage.Manager
	device  Device
}

// NewHandler creates a new protocol handler.
func NewHandler(sm *storage.Manager, dev Device) *Handler {
	return &Handler{
		storage: sm,
		device:  dev,
	}
}

// Frame represents a protocol frame.
type Frame struct {
	Cmd     uint8
	Payload []byte
}

// Response represents a protocol response.
type Response struct {
	Status  uint8
	Payload []byte
}

// ReadFrame reads and validates a request frame from the reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	cmd, payload, err := readPacket(r)
	if err != nil {
		return nil, err
	}
	return &Frame{Cmd: cmd, Payload: payload}, nil
}

// ReadResponse reads and validates a response frame (PC side).
func ReadResponse(r io.Reader) (*Response, error) {
	status, payload, err := readPacket(r)
	if err != nil {
		return nil, err
	}
	return &Response{Status: status, Payload: payload}, nil
}

// readPacket reads one framed packet and returns its code byte and payload.
func readPacket(r io.Reader) (uint8, []byte, error) {
	sync := make([]byte, 1)
	if _, err := io.ReadFull(r, sync); err != nil {
		return 0, nil, err
	}
	if sync[0] != SyncByte {
		return 0, nil, ErrInvalidFrame
	}

	// code + len
	header := make([]byte, 3)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	code := header[0]
	length := binary.LittleEndian.Uint16(header[1:])

	if length > MaxPayload {
		return 0, nil, ErrInvalidFrame
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}

	crcBytes := make([]byte, 2)
	if _, err := io.ReadFull(r, crcBytes); err != nil {
		return 0, nil, err
	}
	receivedCRC := binary.LittleEndian.Uint16(crcBytes)

	if receivedCRC != calcCRC(append(header, payload...)) {
		return 0, nil, ErrCRCMismatch
	}

	return code, payload, nil
}

// WriteResponse writes a response frame to the writer.
func WriteResponse(w io.Writer, resp *Response) error {
	return writePacket(w, resp.Status, resp.Payload)
}

// WriteFrame writes a request frame (PC side and tests).
func WriteFrame(w io.Writer, frame *Frame) error {
	return writePacket(w, frame.Cmd, frame.Payload)
}

func writePacket(w io.Writer, code uint8, payload []byte) error {
	payloadLen := uint16(len(payload))
	frameLen := 1 + 1 + 2 + int(payloadLen) + 2 // sync + code + len + payload + crc

	buf := make([]byte, 0, frameLen)
	buf = append(buf, SyncByte, code)

	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, payloadLen)
	buf = append(buf, lenBytes...)

	buf = append(buf, payload...)

	// CRC of code + len + payload
	crc := calcCRC(buf[1:])
	crcBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBytes, crc)
	buf = append(buf, crcBytes...)

	_, err := w.Write(buf)
	return err
}

// Handle processes a command frame and returns a response.
func (h *Handler) Handle(frame *Frame) *Response {
	switch frame.Cmd {
	case CmdPing:
		return h.handlePing(frame.Payload)
	case CmdGetSettings:
		return h.handleGetSettings()
	case CmdSetSettings:
		return h.handleSetSettings(frame.Payload)
	case CmdGetStatus:
		return h.handleGetStatus()
	case CmdGetTally:
		return h.handleGetTally()
	case CmdResetTally:
		return h.handleResetTally()
	case CmdGetTable:
		return h.handleGetTable(frame.Payload)
	case CmdSetTable:
		return h.handleSetTable(frame.Payload)
	case CmdDeleteTable:
		return h.handleDeleteTable(frame.Payload)
	case CmdListTables:
		return h.handleListTables()
	case CmdGetStorageStats:
		return h.handleGetStorageStats()
	case CmdFactoryReset:
		return h.handleFactoryReset()
	case CmdGetVersion:
		return h.handleGetVersion()
	case CmdDiscover:
		return &Response{Status: StatusOK, Payload: []byte(DiscoverReply)}
	case CmdReboot:
		return h.handleReboot()
	default:
		return &Response{Status: StatusInvalidCmd}
	}
}

// handlePing responds with the same payload (echo).
func (h *Handler) handlePing(payload []byte) *Response {
	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleGetSettings returns the stored settings, or the defaults the
// firmware booted with if nothing is stored.
func (h *Handler) handleGetSettings() *Response {
	var s config.Settings
	if err := h.storage.LoadSettings(&s); err != nil {
		if err != storage.ErrNotFound {
			return &Response{Status: StatusError}
		}
		s = config.DefaultSettings()
	}

	data, err := s.MarshalBinary()
	if err != nil {
		return &Response{Status: StatusError}
	}

	return &Response{
		Status:  StatusOK,
		Payload: data,
	}
}

// handleSetSettings stores new settings. They are used from the next boot.
// Payload: [Settings:10 bytes]
func (h *Handler) handleSetSettings(payload []byte) *Response {
	if len(payload) != config.SettingsSize {
		return &Response{Status: StatusInvalidData}
	}

	var s config.Settings
	if err := s.UnmarshalBinary(payload); err != nil {
		return &Response{Status: StatusInvalidData}
	}

	if s.Version != config.CurrentVersion {
		return &Response{Status: StatusVersionMismatch}
	}
	if err := s.Validate(); err != nil {
		return &Response{Status: StatusInvalidData}
	}

	if err := h.storage.SaveSettings(&s); err != nil {
		if err == storage.ErrFlashFull {
			return &Response{Status: StatusNoSpace}
		}
		return &Response{Status: StatusError}
	}

	return &Response{Status: StatusOK}
}

// handleGetStatus returns a snapshot of the running engine.
// Response: [Status:24 bytes]
func (h *Handler) handleGetStatus() *Response {
	st := h.device.Status()
	data, err := st.MarshalBinary()
	if err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK, Payload: data}
}

// handleGetTally returns the live tally.
// Response: [Tally:16 bytes]
func (h *Handler) handleGetTally() *Response {
	t := h.device.Tally()
	data, err := t.MarshalBinary()
	if err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK, Payload: data}
}

func (h *Handler) handleResetTally() *Response {
	if err := h.device.ResetTally(); err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK}
}

// handleGetTable returns a stored step table override.
// Payload: [Index:1 byte]
// Response: [Count:1][Action:1 Duration:2]...
func (h *Handler) handleGetTable(payload []byte) *Response {
	if len(payload) != 1 {
		return &Response{Status: StatusInvalidData}
	}

	steps, err := h.storage.LoadTable(payload[0])
	if err != nil {
		if err == storage.ErrNotFound {
			return &Response{Status: StatusNotFound}
		}
		return &Response{Status: StatusError}
	}

	data, err := sequence.MarshalSteps(steps)
	if err != nil {
		return &Response{Status: StatusError}
	}

	return &Response{
		Status:  StatusOK,
		Payload: data,
	}
}

// handleSetTable stores a step table override. It is used from the next boot.
// Payload: [Index:1 byte][Count:1][Action:1 Duration:2]...
func (h *Handler) handleSetTable(payload []byte) *Response {
	if len(payload) < 2 || int(payload[0]) >= macros.Count {
		return &Response{Status: StatusInvalidData}
	}

	steps, err := sequence.UnmarshalSteps(payload[1:])
	if err != nil {
		return &Response{Status: StatusInvalidData}
	}

	if err := h.storage.SaveTable(payload[0], steps); err != nil {
		if err == storage.ErrFlashFull {
			return &Response{Status: StatusNoSpace}
		}
		return &Response{Status: StatusError}
	}

	return &Response{Status: StatusOK}
}

// handleDeleteTable drops an override, restoring the builtin table on the
// next boot.
// Payload: [Index:1 byte]
func (h *Handler) handleDeleteTable(payload []byte) *Response {
	if len(payload) != 1 {
		return &Response{Status: StatusInvalidData}
	}

	if err := h.storage.DeleteTable(payload[0]); err != nil {
		if err == storage.ErrNotFound {
			return &Response{Status: StatusNotFound}
		}
		return &Response{Status: StatusError}
	}

	return &Response{Status: StatusOK}
}

// handleListTables returns the indexes with a stored override.
// Response: [Count:1 byte][Index1:1 byte][Index2:1 byte]...
func (h *Handler) handleListTables() *Response {
	indexes, err := h.storage.ListTables()
	if err != nil {
		return &Response{Status: StatusError}
	}

	payload := make([]byte, 1+len(indexes))
	payload[0] = uint8(len(indexes))
	copy(payload[1:], indexes)

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleGetStorageStats returns storage statistics.
// Response: [Total:4][Used:4][Free:4][TableCount:1]
func (h *Handler) handleGetStorageStats() *Response {
	stats, err := h.storage.GetStats()
	if err != nil {
		return &Response{Status: StatusError}
	}

	payload := make([]byte, 13)
	binary.LittleEndian.PutUint32(payload[0:], uint32(stats.TotalSpace))
	binary.LittleEndian.PutUint32(payload[4:], uint32(stats.UsedSpace))
	binary.LittleEndian.PutUint32(payload[8:], uint32(stats.FreeSpace))
	payload[12] = uint8(stats.TableCount)

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleFactoryReset wipes everything stored. The running engine keeps the
// settings it booted with.
func (h *Handler) handleFactoryReset() *Response {
	if err := h.storage.ForceWipe(); err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK}
}

// handleGetVersion returns firmware and config version info.
// Response: [FirmwareVersionMajor:1][FirmwareVersionMinor:1][ConfigVersion:2]
func (h *Handler) handleGetVersion() *Response {
	payload := make([]byte, 4)
	payload[0] = FirmwareMajor
	payload[1] = FirmwareMinor
	binary.LittleEndian.PutUint16(payload[2:], config.CurrentVersion)

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleReboot acknowledges and then asks the device to reboot. The caller
// is expected to delay the reset long enough for the reply to go out.
func (h *Handler) handleReboot() *Response {
	h.device.Reboot()
	return &Response{Status: StatusOK}
}

// calcCRC calculates CRC16-CCITT.
// Polynomial: 0x1021, Initial: 0xFFFF
func calcCRC(data []byte) uint16 {
	var crc uint16 = 0xFFFF

	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
