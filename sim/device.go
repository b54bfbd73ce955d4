// Package sim emulates the flash controller and option bytes of a dual-bank
// microcontroller so the update engine can run on a workstation.
//
// The lower half of the address space always maps the bank the device booted
// from and the upper half maps the other one, like the STM32L4 bank remap.
// Requests complete asynchronously after the configured latency; with a zero
// latency the completion is delivered before the request returns.
package sim

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/synthread/go-dbfu/protocol"
	"github.com/synthread/go-dbfu/update"
)

var (
	ErrBusy       = errors.New("flash operation already in progress")
	ErrLocked     = errors.New("flash is locked")
	ErrNotErased  = errors.New("program of a word that is not erased")
	ErrOutOfRange = errors.New("address out of range")
	ErrWrongBank  = errors.New("pages do not belong to the requested bank")
)

var DefaultBaseAddress uint32 = 0x08000000

// Op names a request that can be made to fail
type Op int

const (
	OpUnlock Op = iota
	OpErase
	OpProgram
	OpOptionUnlock
	OpOptionRead
	OpOptionProgram
	OpLaunch
)

// Config defines the emulated flash
type Config struct {
	BaseAddress uint32
	PageSize    uint32
	BankPages   uint32

	// ActiveBank is the bank the device boots from
	ActiveBank update.Bank

	EraseLatency   time.Duration
	ProgramLatency time.Duration
}

// Counters record what the device was asked to do
type Counters struct {
	EraseRequests   int
	PagesErased     int
	ProgramRequests int
	OptionPrograms  int
	Launches        int
	Rejected        int
}

// Device is an emulated dual-bank flash with option bytes. It implements
// update.FlashController and update.OptionBytes.
type Device struct {
	config *Config

	mu    sync.Mutex
	irqMu sync.Mutex

	banks map[update.Bank][]byte
	// active is the bank mapped at BaseAddress
	active  update.Bank
	pending update.Bank

	handler update.Handlers

	busy        bool
	locked      bool
	optLocked   bool
	irqDisabled bool
	reset       bool
	optErr      bool

	faults   map[Op]error
	counters Counters
}

// NewDevice creates a device with both banks erased
func NewDevice(c *Config) *Device {
	if c == nil {
		c = &Config{}
	}
	if c.BaseAddress == 0 {
		c.BaseAddress = DefaultBaseAddress
	}
	if c.PageSize == 0 {
		c.PageSize = protocol.PageSize
	}
	if c.BankPages == 0 {
		c.BankPages = protocol.BankPages
	}
	if c.ActiveBank != update.Bank2 {
		c.ActiveBank = update.Bank1
	}

	d := &Device{
		config:    c,
		banks:     map[update.Bank][]byte{},
		active:    c.ActiveBank,
		pending:   c.ActiveBank,
		locked:    true,
		optLocked: true,
		// set on virgin parts
		optErr: true,
		faults: map[Op]error{},
	}
	for _, b := range []update.Bank{update.Bank1, update.Bank2} {
		d.banks[b] = erased(int(c.BankPages * c.PageSize))
	}

	return d
}

// Bind routes completion notifications to h
func (d *Device) Bind(h update.Handlers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

// SetFault makes every following op request fail with err. A nil err clears
// the fault.
func (d *Device) SetFault(op Op, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.faults, op)
		return
	}
	d.faults[op] = err
}

func (d *Device) bankSize() uint32 {
	return d.config.BankPages * d.config.PageSize
}

// locate maps an address to a bank and an offset within it
func (d *Device) locate(addr uint32, n uint32) (update.Bank, uint32, error) {
	base := d.config.BaseAddress
	size := d.bankSize()
	if addr < base || addr+n > base+2*size {
		return 0, 0, errors.Wrapf(ErrOutOfRange, "0x%08x+%d", addr, n)
	}
	off := addr - base
	if off < size {
		if off+n > size {
			return 0, 0, errors.Wrapf(ErrOutOfRange, "0x%08x+%d crosses banks", addr, n)
		}
		return d.active, off, nil
	}
	return d.active.Other(), off - size, nil
}

// Unlock enables erase and program requests
func (d *Device) Unlock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.faults[OpUnlock]; err != nil {
		return err
	}
	d.locked = false
	return nil
}

// ErasePages erases count pages starting at the global page index firstPage,
// which must lie in bank
func (d *Device) ErasePages(bank update.Bank, firstPage, count uint32) error {
	d.mu.Lock()
	if err := d.check(OpErase); err != nil {
		d.mu.Unlock()
		return err
	}

	addr := d.config.BaseAddress + firstPage*d.config.PageSize
	got, off, err := d.locate(addr, count*d.config.PageSize)
	if err != nil {
		d.counters.Rejected++
		d.mu.Unlock()
		return err
	}
	if got != bank {
		d.counters.Rejected++
		d.mu.Unlock()
		return errors.Wrapf(ErrWrongBank, "page %d is in %s, not %s", firstPage, got, bank)
	}

	d.busy = true
	d.counters.EraseRequests++
	latency := d.config.EraseLatency
	d.mu.Unlock()

	logrus.Debugf("sim erase %s: %d pages @ %d", bank, count, firstPage)

	d.complete(latency, func() []uint32 {
		mem := d.banks[bank]
		rets := make([]uint32, 0, count+1)
		for i := uint32(0); i < count; i++ {
			start := off + i*d.config.PageSize
			fill(mem[start:start+d.config.PageSize], 0xff)
			rets = append(rets, firstPage+i)
		}
		d.counters.PagesErased += int(count)
		return append(rets, protocol.EraseDoneMarker)
	})

	return nil
}

// ProgramDoubleWord writes word little-endian at addr
func (d *Device) ProgramDoubleWord(addr uint32, word uint64) error {
	d.mu.Lock()
	if err := d.check(OpProgram); err != nil {
		d.mu.Unlock()
		return err
	}
	if addr%protocol.WordSize != 0 {
		d.counters.Rejected++
		d.mu.Unlock()
		return errors.Wrapf(ErrOutOfRange, "0x%08x is not word aligned", addr)
	}

	bank, off, err := d.locate(addr, protocol.WordSize)
	if err != nil {
		d.counters.Rejected++
		d.mu.Unlock()
		return err
	}
	mem := d.banks[bank]
	if binary.LittleEndian.Uint64(mem[off:]) != ^uint64(0) {
		d.counters.Rejected++
		d.mu.Unlock()
		return errors.Wrapf(ErrNotErased, "0x%08x", addr)
	}

	d.busy = true
	d.counters.ProgramRequests++
	latency := d.config.ProgramLatency
	d.mu.Unlock()

	d.complete(latency, func() []uint32 {
		binary.LittleEndian.PutUint64(mem[off:], word)
		return []uint32{addr}
	})

	return nil
}

// check must be called with mu held
func (d *Device) check(op Op) error {
	if err := d.faults[op]; err != nil {
		return err
	}
	if d.locked {
		d.counters.Rejected++
		return ErrLocked
	}
	if d.busy {
		d.counters.Rejected++
		return ErrBusy
	}
	return nil
}

// complete applies the effect of a request after latency and reports each of
// the returned values to the handler. Notifications are never delivered
// concurrently.
func (d *Device) complete(latency time.Duration, apply func() []uint32) {
	run := func() {
		d.irqMu.Lock()
		defer d.irqMu.Unlock()

		d.mu.Lock()
		rets := apply()
		d.busy = false
		h := d.handler
		masked := d.irqDisabled
		d.mu.Unlock()

		if h == nil || masked {
			return
		}
		for _, r := range rets {
			h.OnFlashOperationComplete(r)
		}
	}

	if latency <= 0 {
		run()
		return
	}
	time.AfterFunc(latency, run)
}

// Read returns a copy of n bytes at addr
func (d *Device) Read(addr uint32, n int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	bank, off, err := d.locate(addr, uint32(n))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), d.banks[bank][off:off+uint32(n)]...), nil
}

// Bank returns a copy of the contents of bank b
func (d *Device) Bank(b update.Bank) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.banks[b]...)
}

// Counters returns the request counters
func (d *Device) Counters() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counters
}

// Busy reports whether an operation is outstanding
func (d *Device) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

func erased(n int) []byte {
	bs := make([]byte, n)
	fill(bs, 0xff)
	return bs
}

func fill(bs []byte, v byte) {
	for i := range bs {
		bs[i] = v
	}
}

var _ update.FlashController = (*Device)(nil)
var _ update.OptionBytes = (*Options)(nil)
