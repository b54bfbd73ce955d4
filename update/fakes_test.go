package update

import (
	"bytes"
	"time"

	"github.com/pkg/errors"

	"github.com/synthread/go-dbfu/protocol"
)

var errFakeTimeout = errors.New("fake timeout")

// fakeLink plays the host side of the link from a scripted byte stream
type fakeLink struct {
	tx       bytes.Buffer
	stream   []byte
	timeouts []time.Duration

	txErr    error
	startErr error

	bulk     []byte
	starts   int
	stops    int
	receives int
}

func (l *fakeLink) Transmit(bs []byte, timeout time.Duration) error {
	if l.txErr != nil {
		return l.txErr
	}
	l.tx.Write(bs)
	return nil
}

func (l *fakeLink) Receive(bs []byte, timeout time.Duration) error {
	l.receives++
	l.timeouts = append(l.timeouts, timeout)
	if len(l.stream) < len(bs) {
		l.stream = nil
		return errFakeTimeout
	}
	copy(bs, l.stream)
	l.stream = l.stream[len(bs):]
	return nil
}

func (l *fakeLink) StartBulkReceive(bs []byte) error {
	if l.startErr != nil {
		return l.startErr
	}
	l.bulk = bs
	l.starts++
	return nil
}

func (l *fakeLink) StopBulkReceive() error {
	l.bulk = nil
	l.stops++
	return nil
}

func (l *fakeLink) host(bs ...byte) {
	l.stream = append(l.stream, bs...)
}

// deliver completes the armed bulk receive with frame
func (l *fakeLink) deliver(e *Engine, frame []byte) {
	copy(l.bulk, frame)
	e.OnReceiveComplete()
}

type eraseCall struct {
	bank         Bank
	first, count uint32
}

type programCall struct {
	addr uint32
	word uint64
}

// fakeFlash records requests. With auto set, each request completes before
// it returns; otherwise the test completes them by hand.
type fakeFlash struct {
	h    Handlers
	auto bool

	unlockErr  error
	eraseErr   error
	programErr error

	erases   []eraseCall
	programs []programCall

	erasing    bool
	writing    bool
	violations []string
}

func (f *fakeFlash) Unlock() error {
	return f.unlockErr
}

func (f *fakeFlash) ErasePages(bank Bank, first, count uint32) error {
	if f.eraseErr != nil {
		return f.eraseErr
	}
	if f.erasing || f.writing {
		f.violations = append(f.violations, "erase while busy")
	}
	f.erases = append(f.erases, eraseCall{bank, first, count})
	f.erasing = true
	if f.auto {
		f.finishErase()
	}
	return nil
}

func (f *fakeFlash) ProgramDoubleWord(addr uint32, word uint64) error {
	if f.programErr != nil {
		return f.programErr
	}
	if f.erasing {
		f.violations = append(f.violations, "program while erasing")
	}
	if f.writing {
		f.violations = append(f.violations, "program while writing")
	}
	f.programs = append(f.programs, programCall{addr, word})
	f.writing = true
	if f.auto {
		f.finishWrite()
	}
	return nil
}

func (f *fakeFlash) finishErase() {
	last := f.erases[len(f.erases)-1]
	f.erasing = false
	for i := uint32(0); i < last.count; i++ {
		f.h.OnFlashOperationComplete(last.first + i)
	}
	f.h.OnFlashOperationComplete(protocol.EraseDoneMarker)
}

func (f *fakeFlash) finishWrite() {
	f.writing = false
	f.h.OnFlashOperationComplete(f.programs[len(f.programs)-1].addr)
}

// fakeOptions records the bank swap sequence
type fakeOptions struct {
	calls []string
	bank  Bank

	unlockErr  error
	readErr    error
	programErr error
	launchErr  error
}

func (o *fakeOptions) DisableInterrupts() { o.calls = append(o.calls, "disable_irq") }
func (o *fakeOptions) ClearOptionErrors() { o.calls = append(o.calls, "clear_errors") }
func (o *fakeOptions) Lock()              { o.calls = append(o.calls, "lock") }

func (o *fakeOptions) Unlock() error {
	o.calls = append(o.calls, "unlock")
	return o.unlockErr
}

func (o *fakeOptions) BankSelector() (Bank, error) {
	o.calls = append(o.calls, "read")
	return o.bank, o.readErr
}

func (o *fakeOptions) ProgramBankSelector(b Bank) error {
	o.calls = append(o.calls, "program")
	if o.programErr != nil {
		return o.programErr
	}
	o.bank = b
	return nil
}

func (o *fakeOptions) Launch() error {
	o.calls = append(o.calls, "launch")
	return o.launchErr
}
