// Package update implements the bootloader-resident dual-bank firmware update
// engine.
//
// The engine is driven by two kinds of calls: Process, invoked repeatedly by
// the bootloader main loop, and the two completion callbacks invoked by the
// platform when a bulk receive or a flash operation finishes. Each Process
// call performs one bounded unit of work. Once a new image has been written
// and verified the boot bank is toggled and the device resets into it.
//
// Any error returned from Process is final: the caller must stop calling it.
// Nothing is rolled back; the inactive bank may be left partly written, which
// is harmless because the next attempt erases it again.
package update

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Engine is one firmware update session
type Engine struct {
	config *Config

	link    Link
	flash   FlashController
	options OptionBytes

	phase atomicPhase
	flags flags

	buf [chunkBufSize]byte

	// only touched from the polling side
	imageSize uint32
	pages     uint32
	addr      uint32
	cursor    *chunkCursor

	counters counters
}

// NewEngine creates an update session in the Starting phase. The caller must
// route the platform's completion interrupts to the returned engine.
func NewEngine(c *Config, link Link, fc FlashController, ob OptionBytes) (*Engine, error) {
	if c == nil {
		c = &Config{}
	}
	if link == nil {
		return nil, errors.New("no link provided")
	}
	if fc == nil {
		return nil, errors.New("no flash controller provided")
	}
	if ob == nil {
		return nil, errors.New("no option bytes provided")
	}
	c.setDefaults()

	e := &Engine{
		config:  c,
		link:    link,
		flash:   fc,
		options: ob,
		addr:    c.BankAddress,
	}
	e.phase.Store(Starting)

	return e, nil
}

// Process runs one step of the update. It returns nil while the update is
// progressing.
func (e *Engine) Process() error {
	switch e.Phase() {
	case Starting:
		if err := e.beginHandshake(); err != nil {
			return err
		}
		if err := e.computePagesAndErase(); err != nil {
			return err
		}
		e.setPhase(ReceivingPacket)

	case ReceivingPacket:
		return e.receiveChunkHeader()

	case PacketReceived:
		return e.verifyChunk()

	case Flashing:
		// the chunk stays buffered until the bank is erased
		if e.flags.erasing.Load() {
			return nil
		}
		return e.programNextWord()

	case Finishing:
		if e.flags.busy() {
			return nil
		}
		err := e.swapBanks()
		e.setPhase(Terminal)
		return err

	case Idle:
		// waiting for OnReceiveComplete

	case Terminal:
		return ErrSessionClosed
	}

	return nil
}

// OnReceiveComplete is called by the platform when the bulk receive started
// for a chunk has filled the buffer
func (e *Engine) OnReceiveComplete() {
	if err := e.link.StopBulkReceive(); err != nil {
		logrus.Error("dbfu stop receive: ", err.Error())
	}
	if e.phase.CompareAndSwap(Idle, PacketReceived) {
		logrus.WithFields(logrus.Fields{"from": Idle, "to": PacketReceived}).Debug("dbfu phase")
	}
}

// OnFlashOperationComplete is called by the platform when an erase or
// program request finishes. During an erase ret carries the page that was
// erased, and protocol.EraseDoneMarker once the whole request is done.
func (e *Engine) OnFlashOperationComplete(ret uint32) {
	if e.flags.erasing.Load() {
		if ret == eraseDone {
			e.flags.erasing.Store(false)
			logrus.Debug("dbfu erase done")
		}
		return
	}
	e.flags.writing.Store(false)
}

// Phase returns the current phase. It is safe to call from any goroutine.
func (e *Engine) Phase() Phase {
	return e.phase.Load()
}

// Session returns a snapshot of the transfer. It must be called from the
// goroutine that calls Process.
func (e *Engine) Session() Session {
	return Session{
		ImageSize:    e.imageSize,
		PagesToErase: e.pages,
		Address:      e.addr,
		Phase:        e.Phase(),
	}
}

// Stats returns the number of requests issued so far
func (e *Engine) Stats() Stats {
	return Stats{
		EraseRequests:  e.counters.erases.Load(),
		ChunksVerified: e.counters.chunks.Load(),
		WordsWritten:   e.counters.words.Load(),
		SwapAttempts:   e.counters.swaps.Load(),
	}
}

// Run calls Process every interval until it fails or ctx is done. It stands
// in for the bootloader main loop when the engine is hosted on an OS.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		if err := e.Process(); err != nil {
			return err
		}

		if tick == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

func (e *Engine) setPhase(p Phase) {
	from := e.phase.Swap(p)
	if from != p {
		logrus.WithFields(logrus.Fields{"from": from, "to": p}).Debug("dbfu phase")
	}
}
