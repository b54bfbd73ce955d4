package update

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// swapBanks toggles the boot bank and launches the new configuration. A
// successful launch resets the device, so every return from here is an error.
func (e *Engine) swapBanks() error {
	ob := e.options
	e.counters.swaps.Add(1)

	ob.DisableInterrupts()
	// stale option errors are set on virgin parts and block programming
	ob.ClearOptionErrors()

	if err := ob.Unlock(); err != nil {
		return errors.Wrapf(ErrBankSwitch, "unlock option bytes: %v", err)
	}
	defer ob.Lock()

	cur, err := ob.BankSelector()
	if err != nil {
		return errors.Wrapf(ErrBankSwitch, "read bank selector: %v", err)
	}
	next := cur.Other()

	logrus.WithFields(logrus.Fields{"from": cur, "to": next}).Info("dbfu swapping banks")

	if err := ob.ProgramBankSelector(next); err != nil {
		return errors.Wrapf(ErrBankSwitch, "option program failed: %v", err)
	}
	if err := ob.Launch(); err != nil {
		return errors.Wrapf(ErrBankSwitch, "launch failed: %v", err)
	}

	if e.config.ResetTimeout > 0 {
		time.Sleep(e.config.ResetTimeout)
	}
	return errors.Wrap(ErrBankSwitch, "device did not reset")
}
