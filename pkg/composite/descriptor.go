//go:build tinygo

// Package composite provides the USB composite device descriptor for the bot:
// CDC (serial, for the config protocol) + HID (a HORI Pokken Tournament Pro
// Pad, which the Switch accepts as a wired controller without pairing).
package composite

import (
	"machine/usb"
	"machine/usb/descriptor"
)

// USB identity of the HORI Pokken Tournament Pro Pad.
const (
	VendorID     = 0x0F0D
	ProductID    = 0x0092
	Manufacturer = "HORI CO.,LTD."
	Product      = "POKKEN CONTROLLER"
)

// PokkenHIDReportDescriptor describes the 8 byte input report built by
// pkg/report and an 8 byte output report the firmware drains and ignores.
// There is no report ID.
var PokkenHIDReportDescriptor = descriptor.Append([][]byte{
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDUsageDesktopGamepad,
	descriptor.HIDCollectionApplication,

	// 16 buttons (2 bytes), 14 in use
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(1),
	{0x35, 0x00}, // Physical Minimum (0)
	{0x45, 0x01}, // Physical Maximum (1)
	descriptor.HIDReportSize(1),
	descriptor.HIDReportCount(16),
	descriptor.HIDUsagePageButton,
	descriptor.HIDUsageMinimum(1),
	descriptor.HIDUsageMaximum(16),
	descriptor.HIDInputDataVarAbs,

	// Hat switch (4 bits) + 4 bits padding
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDLogicalMaximum(7),
	{0x46, 0x3B, 0x01}, // Physical Maximum (315)
	descriptor.HIDReportSize(4),
	descriptor.HIDReportCount(1),
	{0x65, 0x14}, // Unit (degrees)
	{0x09, 0x39}, // Usage (Hat switch)
	{0x81, 0x42}, // Input (Data, Var, Abs, Null state)
	{0x65, 0x00}, // Unit (none)
	descriptor.HIDReportCount(1),
	descriptor.HIDInputConstVarAbs,

	// Sticks: LX, LY, RX, RY (4 bytes)
	descriptor.HIDLogicalMaximum(255),
	{0x46, 0xFF, 0x00}, // Physical Maximum (255)
	descriptor.HIDUsageDesktopX,
	descriptor.HIDUsageDesktopY,
	descriptor.HIDUsageDesktopZ,
	descriptor.HIDUsageDesktopRz,
	descriptor.HIDReportSize(8),
	descriptor.HIDReportCount(4),
	descriptor.HIDInputDataVarAbs,

	// Vendor byte
	{0x06, 0x00, 0xFF}, // Usage Page (Vendor 0xFF00)
	{0x09, 0x20},       // Usage (0x20)
	descriptor.HIDReportCount(1),
	descriptor.HIDInputDataVarAbs,

	// Output report (8 bytes)
	{0x0A, 0x21, 0x26}, // Usage (0x2621)
	descriptor.HIDReportCount(8),
	descriptor.HIDOutputDataVarAbs,

	descriptor.HIDCollectionEnd,
})

// USBDescriptor is the complete USB descriptor for the composite device.
var USBDescriptor = descriptor.Descriptor{
	Device: descriptor.DeviceCDC.Bytes(),

	Configuration: descriptor.Append([][]byte{
		descriptor.ConfigurationCDCHID.Bytes(),
		// CDC interfaces
		descriptor.InterfaceAssociationCDC.Bytes(),
		descriptor.InterfaceCDCControl.Bytes(),
		descriptor.ClassSpecificCDCHeader.Bytes(),
		descriptor.ClassSpecificCDCACM.Bytes(),
		descriptor.ClassSpecificCDCUnion.Bytes(),
		descriptor.ClassSpecificCDCCallManagement.Bytes(),
		descriptor.EndpointEP1IN.Bytes(),
		descriptor.InterfaceCDCData.Bytes(),
		descriptor.EndpointEP2OUT.Bytes(),
		descriptor.EndpointEP3IN.Bytes(),
		// HID interface
		descriptor.InterfaceHID.Bytes(),
		// HID class descriptor, patched with our report descriptor length
		func() []byte {
			classHID := descriptor.ClassHID.Bytes()
			classHID[7] = byte(len(PokkenHIDReportDescriptor))
			classHID[8] = byte(len(PokkenHIDReportDescriptor) >> 8)
			return classHID
		}(),
		descriptor.EndpointEP4IN.Bytes(),
		descriptor.EndpointEP5OUT.Bytes(),
	}),

	HID: map[uint16][]byte{
		usb.HID_INTERFACE: PokkenHIDReportDescriptor,
	},
}

// Identify makes the device enumerate as the Pokken pad. It must run before
// the USB stack answers its first descriptor request.
func Identify() {
	usb.VendorID = VendorID
	usb.ProductID = ProductID
	usb.Manufacturer = Manufacturer
	usb.Product = Product
}
