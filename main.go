//go:build tinygo

package main

import (
	"machine"
	"runtime/interrupt"
	"sync/atomic"
	"time"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/alert"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/composite"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/gamepad"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/protocol"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/storage"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/serial"
)

const (
	loopInterval = 50 * time.Millisecond
	rebootDelay  = 200 * time.Millisecond
)

// device is what the protocol handler sees of the running firmware.
type device struct {
	machine *engine.Machine
	tally   *storage.TallyKeeper
	reboot  atomic.Bool
}

// Status snapshots the engine. The engine is ticked from the USB interrupt,
// so interrupts are held off while copying.
func (d *device) Status() engine.Status {
	mask := interrupt.Disable()
	st := d.machine.Status()
	interrupt.Restore(mask)
	return st
}

func (d *device) Tally() config.Tally {
	if d.tally == nil {
		return config.Tally{}
	}
	return d.tally.Tally()
}

func (d *device) ResetTally() error {
	if d.tally == nil {
		return storage.ErrNotFound
	}
	return d.tally.Reset()
}

func (d *device) Reboot() {
	d.reboot.Store(true)
}

// MAIN THREAD DUTIES
//
// Boot: storage, settings, step tables, engine, USB.
// Loop: status display, tally, done alert, reboot requests.
// The engine itself runs in the HID IN interrupt.

func main() {
	composite.Identify()

	store, err := storage.New(machine.Flash, true)
	if err != nil {
		println("storage:", err.Error())
	}

	settings := loadSettings(store)
	lib := loadLibrary(store)
	m := engine.New(settings, lib)

	dev := &device{machine: m}
	if store != nil {
		if dev.tally, err = storage.NewTallyKeeper(store); err != nil {
			println("tally:", err.Error())
		}
	}

	gp := gamepad.New(m)
	gp.Configure(&composite.USBDescriptor)

	disp := display.NewManager()

	if store != nil {
		mainSerial := serial.NewSerial(machine.Serial, protocol.NewHandler(store, dev), disp)
		go mainSerial.Handle()
	}

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pulser := alert.New(led)

	for {
		gp.Start()

		st := dev.Status()
		if disp != nil {
			disp.ShowStatus(st)
		}
		if dev.tally != nil {
			if err := dev.tally.Observe(st.Collected, st.BoxesDone, st.State == engine.Done); err != nil {
				println("tally:", err.Error())
			}
		}
		pulser.Update(time.Now(), st.State == engine.Done)

		if dev.reboot.Load() {
			// Let the acknowledgement drain before resetting
			time.Sleep(rebootDelay)
			machine.CPUReset()
		}

		time.Sleep(loopInterval)
	}
}

// loadSettings returns the stored settings, or the defaults when nothing
// valid is stored.
func loadSettings(store *storage.Manager) config.Settings {
	if store == nil {
		return config.DefaultSettings()
	}

	var s config.Settings
	if err := store.LoadSettings(&s); err != nil {
		if err != storage.ErrNotFound {
			println("settings:", err.Error())
		}
		return config.DefaultSettings()
	}
	if err := s.Validate(); err != nil {
		println("settings:", err.Error())
		return config.DefaultSettings()
	}
	return s
}

// loadLibrary returns the builtin step tables with any stored overrides
// applied.
func loadLibrary(store *storage.Manager) *macros.Library {
	lib := macros.Builtin()
	if store == nil {
		return lib
	}

	indexes, err := store.ListTables()
	if err != nil {
		println("tables:", err.Error())
		return lib
	}

	for _, i := range indexes {
		seq, err := lib.At(int(i))
		if err != nil {
			continue
		}
		steps, err := store.LoadTable(i)
		if err != nil {
			println("table", i, err.Error())
			continue
		}
		seq.Steps = steps
	}
	return lib
}
