//go:build tinygo && !nodebug

// Package display shows the run on an SSD1306 OLED: the engine status on
// the yellow rows and serial protocol activity on the blue rows below.
//
// To build without display support (saves RAM and flash), use:
//
//	tinygo build -tags=nodebug -target=pico -o firmware.uf2 .
package display

import (
	"image/color"
	"machine"
	"time"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"

	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	// I2C configuration
	i2cAddress = 0x3C
	sclPin     = machine.GPIO1
	sdaPin     = machine.GPIO0

	screenWidth  = 128
	screenHeight = 64
	rowHeight    = 10
	cols         = 21

	// Row assignments
	rowState     = 0 // Yellow
	rowCounters  = 1 // Yellow
	rowProgress  = 2 // Blue
	rowInParsed  = 3 // Blue - incoming parsed
	rowOutParsed = 4 // Blue - outgoing parsed
	rowBytes     = 5 // Blue - last raw frame
)

var (
	black = color.RGBA{0, 0, 0, 0}
	white = color.RGBA{255, 255, 255, 255}

	font = &proggy.TinySZ8pt7b
)

// Manager handles the SSD1306 display.
type Manager struct {
	device *ssd1306.Device
	i2c    *machine.I2C
	last   engine.Status
	shown  bool
}

// NewManager creates and initializes the display manager.
// Returns nil if display initialization fails (non-fatal).
func NewManager() *Manager {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400000, // 400kHz fast mode
		SCL:       sclPin,
		SDA:       sdaPin,
	}); err != nil {
		println("I2C config failed:", err.Error())
		return nil
	}

	// Bus stabilization
	time.Sleep(10 * time.Millisecond)

	dev := ssd1306.NewI2C(i2c)
	dev.Configure(ssd1306.Config{
		Address: i2cAddress,
		Width:   screenWidth,
		Height:  screenHeight,
	})
	dev.ClearDisplay()

	mgr := &Manager{
		device: dev,
		i2c:    i2c,
	}

	mgr.drawRow(rowState, "eggbot")
	mgr.drawRow(rowCounters, "waiting for host")
	mgr.refresh()

	return mgr
}

// ShowStatus redraws the status rows if the snapshot changed.
func (m *Manager) ShowStatus(st engine.Status) {
	if m.shown && st == m.last {
		return
	}
	m.last = st
	m.shown = true

	state, counters, progress := FormatStatus(&st)
	m.drawRow(rowState, state)
	m.drawRow(rowCounters, counters)
	m.drawRow(rowProgress, progress)
	m.refresh()
}

// ShowIncomingFrame displays an incoming serial frame.
func (m *Manager) ShowIncomingFrame(bytesStr, parsedStr string) {
	m.drawRow(rowInParsed, "I "+parsedStr)
	m.drawRow(rowBytes, bytesStr)
	m.refresh()
}

// ShowOutgoingResponse displays an outgoing serial response.
func (m *Manager) ShowOutgoingResponse(bytesStr, parsedStr string) {
	m.drawRow(rowOutParsed, "O "+parsedStr)
	m.drawRow(rowBytes, bytesStr)
	m.refresh()
}

// ShowError displays an error message on the display.
func (m *Manager) ShowError(msg string) {
	m.drawRow(rowOutParsed, "ERR "+msg)
	m.refresh()
}

// drawRow clears a row and writes s into it.
func (m *Manager) drawRow(row int, s string) {
	yStart := int16(row * rowHeight)
	if yStart+rowHeight > screenHeight {
		return
	}
	for y := yStart; y < yStart+rowHeight; y++ {
		for x := int16(0); x < screenWidth; x++ {
			m.device.SetPixel(x, y, black)
		}
	}
	// tinyfont positions text by its baseline
	tinyfont.WriteLine(m.device, font, 0, yStart+rowHeight-2, truncate(s, cols), white)
}

// refresh updates the display with current buffer content.
func (m *Manager) refresh() {
	m.device.Display()
}

// truncate limits a string to maxLen characters, adding ".." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 2 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
