// Package link talks to the bot's CDC serial port using the framed protocol
// in pkg/protocol.
package link

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/term"
	"github.com/rs/zerolog"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/protocol"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/storage"
)

// StatusError is a well-formed reply carrying a non-OK status.
type StatusError struct {
	Cmd    uint8
	Status uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: device answered %s", display.CommandName(e.Cmd), display.StatusName(e.Status))
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status uint8) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

var ErrBadReply = errors.New("unexpected reply payload")

// Version is the GetVersion reply.
type Version struct {
	Major  uint8
	Minor  uint8
	Config uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d (config v%d)", v.Major, v.Minor, v.Config)
}

// Client issues one request at a time over port.
type Client struct {
	mu     sync.Mutex
	port   io.ReadWriteCloser
	reader io.Reader
	logger zerolog.Logger
}

// Open configures the serial device at path for raw mode and returns a
// client on it. Reads give up after timeout.
func Open(path string, baud int, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	t, err := term.Open(path, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := t.SetReadTimeout(timeout); err != nil {
		t.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	// Drop anything left over from an earlier session
	if err := t.Flush(); err != nil {
		logger.Warn().Err(err).Str("port", path).Msg("flush failed")
	}

	logger.Debug().Str("port", path).Int("baud", baud).Dur("timeout", timeout).Msg("serial port open")
	return New(t, logger), nil
}

// New wraps an already open port.
func New(port io.ReadWriteCloser, logger zerolog.Logger) *Client {
	return &Client{
		port:   port,
		reader: timeoutReader{port},
		logger: logger,
	}
}

// Close closes the port.
func (c *Client) Close() error {
	return c.port.Close()
}

// timeoutReader turns the empty reads a timed out tty returns into
// protocol.ErrTimeout so io.ReadFull cannot spin.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil {
		return 0, protocol.ErrTimeout
	}
	return n, err
}

// Call sends one command and returns the reply payload. Non-OK replies are
// returned as *StatusError.
func (c *Client) Call(ctx context.Context, cmd uint8, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	if err := protocol.WriteFrame(c.port, &protocol.Frame{Cmd: cmd, Payload: payload}); err != nil {
		return nil, fmt.Errorf("%s: write: %w", display.CommandName(cmd), err)
	}

	resp, err := protocol.ReadResponse(c.reader)
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", display.CommandName(cmd), err)
	}

	c.logger.Debug().
		Str("cmd", display.CommandName(cmd)).
		Str("status", display.StatusName(resp.Status)).
		Int("len", len(resp.Payload)).
		Dur("rtt", time.Since(start)).
		Msg("reply")

	if resp.Status != protocol.StatusOK {
		return nil, &StatusError{Cmd: cmd, Status: resp.Status}
	}
	return resp.Payload, nil
}

// Ping sends data and checks that it is echoed back unchanged.
func (c *Client) Ping(ctx context.Context, data []byte) (time.Duration, error) {
	start := time.Now()
	reply, err := c.Call(ctx, protocol.CmdPing, data)
	if err != nil {
		return 0, err
	}
	if !bytes.Equal(reply, data) {
		return 0, fmt.Errorf("ping: %w", ErrBadReply)
	}
	return time.Since(start), nil
}

// Discover returns the device identification string.
func (c *Client) Discover(ctx context.Context) (string, error) {
	reply, err := c.Call(ctx, protocol.CmdDiscover, nil)
	if err != nil {
		return "", err
	}
	return string(reply), nil
}

// Status returns a snapshot of the running engine.
func (c *Client) Status(ctx context.Context) (engine.Status, error) {
	var st engine.Status
	reply, err := c.Call(ctx, protocol.CmdGetStatus, nil)
	if err != nil {
		return st, err
	}
	if err := st.UnmarshalBinary(reply); err != nil {
		return st, fmt.Errorf("status: %w", err)
	}
	return st, nil
}

// Settings returns the settings stored on the device.
func (c *Client) Settings(ctx context.Context) (config.Settings, error) {
	var s config.Settings
	reply, err := c.Call(ctx, protocol.CmdGetSettings, nil)
	if err != nil {
		return s, err
	}
	if err := s.UnmarshalBinary(reply); err != nil {
		return s, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

// SetSettings stores s on the device. It takes effect on the next boot.
func (c *Client) SetSettings(ctx context.Context, s config.Settings) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.Call(ctx, protocol.CmdSetSettings, data)
	return err
}

// Tally returns the device's lifetime counters.
func (c *Client) Tally(ctx context.Context) (config.Tally, error) {
	var t config.Tally
	reply, err := c.Call(ctx, protocol.CmdGetTally, nil)
	if err != nil {
		return t, err
	}
	if err := t.UnmarshalBinary(reply); err != nil {
		return t, fmt.Errorf("tally: %w", err)
	}
	return t, nil
}

func (c *Client) ResetTally(ctx context.Context) error {
	_, err := c.Call(ctx, protocol.CmdResetTally, nil)
	return err
}

// Version returns the firmware and config format versions.
func (c *Client) Version(ctx context.Context) (Version, error) {
	reply, err := c.Call(ctx, protocol.CmdGetVersion, nil)
	if err != nil {
		return Version{}, err
	}
	if len(reply) != 4 {
		return Version{}, fmt.Errorf("version: %w", ErrBadReply)
	}
	return Version{
		Major:  reply[0],
		Minor:  reply[1],
		Config: binary.LittleEndian.Uint16(reply[2:]),
	}, nil
}

func (c *Client) Reboot(ctx context.Context) error {
	_, err := c.Call(ctx, protocol.CmdReboot, nil)
	return err
}

func (c *Client) FactoryReset(ctx context.Context) error {
	_, err := c.Call(ctx, protocol.CmdFactoryReset, nil)
	return err
}

// Table returns the stored override at index. A table without an override
// fails with StatusNotFound.
func (c *Client) Table(ctx context.Context, index uint8) ([]sequence.Step, error) {
	reply, err := c.Call(ctx, protocol.CmdGetTable, []byte{index})
	if err != nil {
		return nil, err
	}
	steps, err := sequence.UnmarshalSteps(reply)
	if err != nil {
		return nil, fmt.Errorf("table %d: %w", index, err)
	}
	return steps, nil
}

// SetTable stores an override for the table at index.
func (c *Client) SetTable(ctx context.Context, index uint8, steps []sequence.Step) error {
	data, err := sequence.MarshalSteps(steps)
	if err != nil {
		return fmt.Errorf("table %d: %w", index, err)
	}
	_, err = c.Call(ctx, protocol.CmdSetTable, append([]byte{index}, data...))
	return err
}

func (c *Client) DeleteTable(ctx context.Context, index uint8) error {
	_, err := c.Call(ctx, protocol.CmdDeleteTable, []byte{index})
	return err
}

// ListTables returns the indexes that have a stored override.
func (c *Client) ListTables(ctx context.Context) ([]uint8, error) {
	reply, err := c.Call(ctx, protocol.CmdListTables, nil)
	if err != nil {
		return nil, err
	}
	if len(reply) < 1 || int(reply[0]) != len(reply)-1 {
		return nil, fmt.Errorf("list tables: %w", ErrBadReply)
	}
	return reply[1:], nil
}

// StorageStats returns flash usage on the device.
func (c *Client) StorageStats(ctx context.Context) (storage.Stats, error) {
	reply, err := c.Call(ctx, protocol.CmdGetStorageStats, nil)
	if err != nil {
		return storage.Stats{}, err
	}
	if len(reply) != 13 {
		return storage.Stats{}, fmt.Errorf("storage stats: %w", ErrBadReply)
	}
	return storage.Stats{
		TotalSpace: int64(binary.LittleEndian.Uint32(reply[0:])),
		UsedSpace:  int64(binary.LittleEndian.Uint32(reply[4:])),
		FreeSpace:  int64(binary.LittleEndian.Uint32(reply[8:])),
		TableCount: int(reply[12]),
	}, nil
}
