package display

import (
	"fmt"
	"strings"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/protocol"
)

// FrameFormatter renders protocol traffic as short strings for the 21
// column display rows.
type FrameFormatter struct{}

// NewFrameFormatter creates a new frame formatter.
func NewFrameFormatter() *FrameFormatter {
	return &FrameFormatter{}
}

// FormatIncoming formats an incoming request frame for display.
// Returns bytes string and parsed string.
func (f *FrameFormatter) FormatIncoming(frame *protocol.Frame) (bytesStr, parsedStr string) {
	bytesStr = f.formatBytes(frame.Cmd, frame.Payload)
	parsedStr = fmt.Sprintf("%s[%d]", CommandName(frame.Cmd), len(frame.Payload))
	return bytesStr, parsedStr
}

// FormatOutgoing formats an outgoing response frame for display.
// Returns bytes string and parsed string.
func (f *FrameFormatter) FormatOutgoing(resp *protocol.Response) (bytesStr, parsedStr string) {
	bytesStr = f.formatBytes(resp.Status, resp.Payload)
	parsedStr = fmt.Sprintf("%s[%d]", StatusName(resp.Status), len(resp.Payload))
	return bytesStr, parsedStr
}

// FormatError truncates an error message to fit beside the "ERR" label.
func (f *FrameFormatter) FormatError(err error) string {
	const width = 12
	msg := err.Error()
	if len(msg) > width {
		msg = msg[:width]
	}
	return msg
}

// formatBytes renders the head of a frame in hex: sync, code, length (LE)
// and as much payload as fits on one row. The CRC is elided.
func (f *FrameFormatter) formatBytes(code uint8, payload []byte) string {
	const shown = 4

	var b strings.Builder
	n := len(payload)
	fmt.Fprintf(&b, "%02X %02X %02X%02X ", protocol.SyncByte, code, uint8(n), uint8(n>>8))

	head := payload
	if n > shown {
		head = payload[:shown]
	}
	fmt.Fprintf(&b, "%X", head)
	switch {
	case n > shown:
		b.WriteString("..")
	case n > 0:
		b.WriteByte(' ')
	}
	b.WriteString("..")
	return b.String()
}

// CommandName returns a short name for a command code.
func CommandName(cmd uint8) string {
	switch cmd {
	case protocol.CmdGetSettings:
		return "GetSet"
	case protocol.CmdSetSettings:
		return "SetSet"
	case protocol.CmdGetStatus:
		return "GetSts"
	case protocol.CmdGetTally:
		return "GetTly"
	case protocol.CmdResetTally:
		return "RstTly"
	case protocol.CmdGetTable:
		return "GetTbl"
	case protocol.CmdSetTable:
		return "SetTbl"
	case protocol.CmdDeleteTable:
		return "DelTbl"
	case protocol.CmdListTables:
		return "LstTbl"
	case protocol.CmdGetStorageStats:
		return "GetStor"
	case protocol.CmdPing:
		return "Ping"
	case protocol.CmdFactoryReset:
		return "FctRst"
	case protocol.CmdGetVersion:
		return "GetVer"
	case protocol.CmdDiscover:
		return "Discvr"
	case protocol.CmdReboot:
		return "Reboot"
	default:
		return fmt.Sprintf("Cmd%02X", cmd)
	}
}

// StatusName returns a short name for a status code.
func StatusName(status uint8) string {
	switch status {
	case protocol.StatusOK:
		return "OK"
	case protocol.StatusError:
		return "Err"
	case protocol.StatusInvalidCmd:
		return "InvCmd"
	case protocol.StatusInvalidData:
		return "InvData"
	case protocol.StatusNotFound:
		return "NotFnd"
	case protocol.StatusNoSpace:
		return "NoSpace"
	case protocol.StatusVersionMismatch:
		return "VerMis"
	case protocol.StatusCRCError:
		return "CRC"
	default:
		return fmt.Sprintf("Sts%02X", status)
	}
}

// FormatStatus renders an engine snapshot as the three status rows: state
// and column, counters, then progress through the current routine.
func FormatStatus(st *engine.Status) (state, counters, progress string) {
	state = fmt.Sprintf("%s c%d", st.State.Short(), st.Slot)

	counters = fmt.Sprintf("e%d b%d h%d", st.Eggs, st.Boxes, st.Collected)

	if left := st.Remaining(); left > 0 {
		progress = fmt.Sprintf("%d/%d", left, left+int(st.Elapsed))
	} else if st.State == engine.Done {
		progress = fmt.Sprintf("done %d box", st.BoxesDone)
	} else {
		progress = fmt.Sprintf("t%d", st.Ticks)
	}
	return state, counters, progress
}
