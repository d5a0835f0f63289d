// Package report implements the Switch controller input report sent to the host
// and the symbolic actions that mutate it.
//
// The layout follows the HORI Pokken Tournament Pro Pad, which the Switch
// accepts as a wired Pro Controller.
//
// Report format (8 bytes):
//
//	Byte 0: Buttons low byte (Y B A X L R ZL ZR)
//	Byte 1: Buttons high byte (- + LClick RClick Home Capture)
//	Byte 2: Hat switch (0-7 clockwise from top, 8 = center)
//	Byte 3: LX
//	Byte 4: LY
//	Byte 5: RX
//	Byte 6: RY
//	Byte 7: Vendor specific
package report

import "errors"

// Size is the length of an encoded input report.
const Size = 8

// HostSize is the length of an output report sent by the host.
const HostSize = 8

// Button is a bit in the report's button mask.
type Button uint16

const (
	ButtonY       Button = 0x01
	ButtonB       Button = 0x02
	ButtonA       Button = 0x04
	ButtonX       Button = 0x08
	ButtonL       Button = 0x10
	ButtonR       Button = 0x20
	ButtonZL      Button = 0x40
	ButtonZR      Button = 0x80
	ButtonMinus   Button = 0x100
	ButtonPlus    Button = 0x200
	ButtonLClick  Button = 0x400
	ButtonRClick  Button = 0x800
	ButtonHome    Button = 0x1000
	ButtonCapture Button = 0x2000
)

// Hat is the directional pad position.
type Hat uint8

const (
	HatTop Hat = iota
	HatTopRight
	HatRight
	HatBottomRight
	HatBottom
	HatBottomLeft
	HatLeft
	HatTopLeft
	HatCenter
)

// Stick axis extremes.
const (
	StickMin    uint8 = 0
	StickCenter uint8 = 128
	StickMax    uint8 = 255
)

var (
	ErrInvalidSize = errors.New("invalid report size")
)

// Report is one input report.
type Report struct {
	Buttons Button
	Hat     Hat
	LX      uint8
	LY      uint8
	RX      uint8
	RY      uint8
	Vendor  uint8
}

// Neutral returns a report with centered sticks, centered hat and no buttons.
func Neutral() Report {
	return Report{
		Hat: HatCenter,
		LX:  StickCenter,
		LY:  StickCenter,
		RX:  StickCenter,
		RY:  StickCenter,
	}
}

// Reset returns the report to neutral.
func (r *Report) Reset() {
	*r = Neutral()
}

// IsPressed returns true if the button is held in this report.
func (r *Report) IsPressed(b Button) bool {
	return r.Buttons&b != 0
}

// Encode writes the report into buf without allocating.
func (r *Report) Encode(buf *[Size]byte) {
	buf[0] = byte(r.Buttons)
	buf[1] = byte(r.Buttons >> 8)
	buf[2] = byte(r.Hat)
	buf[3] = r.LX
	buf[4] = r.LY
	buf[5] = r.RX
	buf[6] = r.RY
	buf[7] = r.Vendor
}

// MarshalBinary implements encoding.BinaryMarshaler for Report.
func (r *Report) MarshalBinary() ([]byte, error) {
	var buf [Size]byte
	r.Encode(&buf)
	return buf[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Report.
func (r *Report) UnmarshalBinary(data []byte) error {
	if len(data) < Size {
		return ErrInvalidSize
	}

	r.Buttons = Button(data[0]) | Button(data[1])<<8
	r.Hat = Hat(data[2])
	r.LX = data[3]
	r.LY = data[4]
	r.RX = data[5]
	r.RY = data[6]
	r.Vendor = data[7]
	return nil
}

// HostReport is an output report received from the host.
// Its contents are read so the endpoint can be acknowledged and then ignored.
type HostReport [HostSize]byte
