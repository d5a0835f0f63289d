//go:build tinygo

// Package gamepad drives the HID interrupt endpoints of the controller.
// A report is produced for every IN transfer the host completes, so the
// engine advances at the host's polling rate.
package gamepad

import (
	"machine"
	"machine/usb"
	"machine/usb/descriptor"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/echo"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/report"
)

// Gamepad owns the HID endpoints. TxHandler and RxHandler run in interrupt
// context.
type Gamepad struct {
	pump    *Pump
	buf     [report.Size]byte
	started bool
}

// New creates a gamepad that ticks t once per generated report.
func New(t echo.Ticker) *Gamepad {
	return &Gamepad{pump: NewPump(t)}
}

// Configure registers the HID endpoints and setup handler with the USB stack
// using desc as the device descriptor.
func (g *Gamepad) Configure(desc *descriptor.Descriptor) {
	machine.ConfigureUSBEndpoint(desc,
		[]usb.EndpointConfig{
			{
				Index:     usb.HID_ENDPOINT_OUT,
				IsIn:      false,
				Type:      usb.ENDPOINT_TYPE_INTERRUPT,
				RxHandler: g.RxHandler,
			},
			{
				Index:     usb.HID_ENDPOINT_IN,
				IsIn:      true,
				Type:      usb.ENDPOINT_TYPE_INTERRUPT,
				TxHandler: g.TxHandler,
			},
		},
		[]usb.SetupConfig{
			{
				Index:   usb.HID_INTERFACE,
				Handler: setupHandler,
			},
		})
}

// Start sends the first report once the host has configured the device.
// Every later report is sent from TxHandler. It returns false while the
// device is not enumerated yet.
func (g *Gamepad) Start() bool {
	if g.started {
		return true
	}
	if !machine.USBDev.InitEndpointComplete {
		return false
	}
	g.started = true
	g.send()
	return true
}

// TxHandler is called by the USB interrupt when the IN transfer completed.
func (g *Gamepad) TxHandler() {
	g.send()
}

// RxHandler reads OUT reports from the host and discards them.
func (g *Gamepad) RxHandler(b []byte) {
	g.pump.Drain(b)
}

// Sent returns the number of reports sent. Only meaningful with interrupts
// disabled.
func (g *Gamepad) Sent() uint32 {
	return g.pump.Sent()
}

func (g *Gamepad) send() {
	g.pump.Fill(&g.buf)
	machine.SendUSBInPacket(usb.HID_ENDPOINT_IN, g.buf[:])
}

// setupHandler acknowledges the class requests a Switch sends on enumeration.
func setupHandler(setup usb.Setup) bool {
	if setup.BmRequestType == usb.SET_REPORT_TYPE && setup.BRequest == usb.SET_IDLE {
		machine.SendZlp()
		return true
	}
	return false
}
