package sim

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/synthread/go-dbfu/update"
)

var ErrOptionError = errors.New("option byte error flag is set")

// Options is the option byte block of a Device. It implements
// update.OptionBytes.
type Options struct {
	d *Device
}

// Options returns the option bytes of d
func (d *Device) Options() *Options {
	return &Options{d: d}
}

// DisableInterrupts masks completion notifications until the next Reset
func (o *Options) DisableInterrupts() {
	d := o.d
	d.mu.Lock()
	defer d.mu.Unlock()
	d.irqDisabled = true
}

// ClearOptionErrors clears the option validity error flag
func (o *Options) ClearOptionErrors() {
	d := o.d
	d.mu.Lock()
	defer d.mu.Unlock()
	d.optErr = false
}

// Unlock unlocks the flash and the option bytes
func (o *Options) Unlock() error {
	d := o.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.faults[OpOptionUnlock]; err != nil {
		return err
	}
	d.locked = false
	d.optLocked = false
	return nil
}

// Lock relocks both the option bytes and the flash
func (o *Options) Lock() {
	d := o.d
	d.mu.Lock()
	defer d.mu.Unlock()
	d.optLocked = true
	d.locked = true
}

// BankSelector returns the boot bank stored in the option bytes
func (o *Options) BankSelector() (update.Bank, error) {
	d := o.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.faults[OpOptionRead]; err != nil {
		return 0, err
	}
	return d.pending, nil
}

// ProgramBankSelector stores b as the boot bank. It takes effect on Launch.
func (o *Options) ProgramBankSelector(b update.Bank) error {
	d := o.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.faults[OpOptionProgram]; err != nil {
		return err
	}
	if d.optLocked {
		return ErrLocked
	}
	if d.optErr {
		return ErrOptionError
	}
	if d.busy {
		return ErrBusy
	}
	d.pending = b
	d.counters.OptionPrograms++
	return nil
}

// Launch reloads the option bytes, which resets the device. The emulated
// device cannot stop the caller, so it records the reset and returns.
func (o *Options) Launch() error {
	d := o.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.faults[OpLaunch]; err != nil {
		return err
	}
	if d.optLocked {
		return ErrLocked
	}
	d.counters.Launches++
	d.active = d.pending
	d.reset = true
	logrus.Infof("sim launch: booting from %s", d.active)
	return nil
}

// ResetRequested reports whether Launch has reset the device since the last
// call to Reset
func (d *Device) ResetRequested() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reset
}

// ActiveBank returns the bank the device boots from
func (d *Device) ActiveBank() update.Bank {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Reset brings the device out of reset: interrupts enabled, flash locked
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset = false
	d.irqDisabled = false
	d.locked = true
	d.optLocked = true
}
