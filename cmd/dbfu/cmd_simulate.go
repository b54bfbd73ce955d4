package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synthread/go-dbfu/flash"
	"github.com/synthread/go-dbfu/sim"
	"github.com/synthread/go-dbfu/update"
)

var (
	simulateBank           string
	simulateEraseLatency   time.Duration
	simulateProgramLatency time.Duration
	simulateSessions       int
)

// how often the emulated main loop polls the engine, and how long it waits
// before retrying after a failed session
const (
	simulatePoll    = 100 * time.Microsecond
	simulateBackoff = 500 * time.Millisecond
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Emulate a device running the update bootloader on a serial port",
	Long: `Runs the bootloader update engine against emulated dual-bank flash, talking to
a host loader over --tty. Useful with a pty pair, e.g.

  socat pty,link=/tmp/dev,raw pty,link=/tmp/host,raw
  dbfu simulate -t /tmp/dev &
  dbfu upload -t /tmp/host app.bin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := parseBank(simulateBank)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port, err := flash.OpenPort(flagTTY, flagBaud)
		if err != nil {
			return err
		}
		defer port.Close()

		dev := sim.NewDevice(&sim.Config{
			ActiveBank:     update.Bank(bank),
			EraseLatency:   simulateEraseLatency,
			ProgramLatency: simulateProgramLatency,
		})

		done := 0
		for simulateSessions == 0 || done < simulateSessions {
			ok, err := simulateSession(ctx, port, dev)
			if err != nil {
				return err
			}
			if ok {
				done++
			}
		}
		return nil
	},
}

// simulateSession runs one update attempt. It reports whether the emulated
// device reset into a new image.
func simulateSession(ctx context.Context, port *flash.Port, dev *sim.Device) (bool, error) {
	dev.Reset()

	link := flash.NewLink(port)
	e, err := update.NewEngine(&update.Config{CurrentBank: dev.ActiveBank()}, link, dev, dev.Options())
	if err != nil {
		return false, err
	}
	link.Bind(e)
	dev.Bind(e)

	logrus.Infof("Booted from %s, entering update mode", dev.ActiveBank())

	err = e.Run(ctx, simulatePoll)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	switch res := update.ResultOf(err); {
	case res == update.BankSwitchError && dev.ResetRequested():
		logrus.Infof("Update complete (%d bytes), resetting into %s", e.Session().ImageSize, dev.ActiveBank())
		return true, nil
	case res == update.InitiationError:
		logrus.Debug("No host responded")
	case res == update.Unknown:
		return false, errors.Wrap(err, "update engine failed")
	default:
		logrus.Errorf("Update failed: %v (%s)", err, res)
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(simulateBackoff):
	}
	return false, nil
}
