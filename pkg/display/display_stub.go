//go:build !tinygo || nodebug

package display

import "github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"

// Manager is a no-op stub when the nodebug build tag is used.
type Manager struct{}

// NewManager returns nil when the nodebug build tag is used.
// Callers handle a nil display.
func NewManager() *Manager {
	return nil
}

// ShowStatus is a no-op in nodebug mode.
func (m *Manager) ShowStatus(st engine.Status) {}

// ShowIncomingFrame is a no-op in nodebug mode.
func (m *Manager) ShowIncomingFrame(bytesStr, parsedStr string) {}

// ShowOutgoingResponse is a no-op in nodebug mode.
func (m *Manager) ShowOutgoingResponse(bytesStr, parsedStr string) {}

// ShowError is a no-op in nodebug mode.
func (m *Manager) ShowError(msg string) {}
