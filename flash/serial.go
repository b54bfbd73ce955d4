package flash

import (
	"io"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

var ErrTimeout = errors.New("timed out reading from serial port")
var ErrClosed = errors.New("serial port is closed")
var ErrCanceled = errors.New("read canceled")

// Port is a serial connection whose incoming bytes are pumped into a
// channel by a background goroutine
type Port struct {
	rwc  io.ReadWriteCloser
	rx   chan byte
	done chan struct{}
	quit chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// OpenPort opens the tty at 8N1
func OpenPort(tty string, baud int) (*Port, error) {
	p, err := serial.Open(tty, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", tty)
	}
	if err := p.SetReadTimeout(1 * time.Millisecond); err != nil {
		p.Close()
		return nil, errors.Wrap(err, "could not set read timeout")
	}

	logrus.Debugf("port open: %s @ %d", tty, baud)
	return NewPort(p), nil
}

// NewPort starts pumping bytes from rwc
func NewPort(rwc io.ReadWriteCloser) *Port {
	p := &Port{
		rwc:  rwc,
		rx:   make(chan byte, 64),
		done: make(chan struct{}),
		quit: make(chan struct{}),
	}
	go p.pump()
	return p
}

// pump is the loop that will forever read from the port and write the
// incoming bytes to the rx chan
func (p *Port) pump() {
	defer close(p.done)
	buf := make([]byte, 64)

	for {
		n, err := p.rwc.Read(buf)
		if err != nil {
			// don't write out if we're just complaining about it being closed
			if perr, ok := err.(*serial.PortError); ok && perr.Code() == serial.PortClosed {
				return
			}
			if errors.Is(err, syscall.EBADF) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}

			logrus.Error("rx err: ", err.Error())
			return
		}

		if n > 0 {
			logrus.Debugf("rx: %x", buf[:n])
		}
		for _, b := range buf[:n] {
			select {
			case p.rx <- b:
			case <-p.quit:
				return
			}
		}
	}
}

// Close closes the underlying port
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.closeErr = p.rwc.Close()
	})
	return p.closeErr
}

// IsOpen reports whether the rx pump is still running
func (p *Port) IsOpen() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Write will write the specified bytes to the port
func (p *Port) Write(bs ...[]byte) (err error) {
	if len(bs) == 0 {
		panic("must provide at least one []byte")
	}

	for _, b := range bs {
		if _, err = p.rwc.Write(b); err != nil {
			return
		}
		logrus.Debugf("tx: %x", b)
	}

	return
}

// ReadN will read exactly n bytes, all of which must arrive within to. A to
// of zero waits forever.
func (p *Port) ReadN(n int, to time.Duration) ([]byte, error) {
	bs := make([]byte, n)
	if err := p.read(bs, to, nil); err != nil {
		return nil, err
	}
	return bs, nil
}

// ReadUntil discards incoming bytes until b arrives
func (p *Port) ReadUntil(b byte, to time.Duration) error {
	deadline := after(to)
	one := make([]byte, 1)
	for {
		if err := p.readDeadline(one, deadline, nil); err != nil {
			return err
		}
		if one[0] == b {
			return nil
		}
	}
}

func (p *Port) read(bs []byte, to time.Duration, cancel <-chan struct{}) error {
	return p.readDeadline(bs, after(to), cancel)
}

func (p *Port) readDeadline(bs []byte, deadline <-chan time.Time, cancel <-chan struct{}) error {
	for i := range bs {
		// a canceled read must not consume any more bytes
		select {
		case <-cancel:
			return ErrCanceled
		default:
		}

		select {
		case <-cancel:
			return ErrCanceled
		case <-deadline:
			return ErrTimeout
		case b := <-p.rx:
			bs[i] = b
		case <-p.done:
			// drain what the pump delivered before it stopped
			select {
			case b := <-p.rx:
				bs[i] = b
			default:
				return ErrClosed
			}
		}
	}
	return nil
}

func after(to time.Duration) <-chan time.Time {
	if to <= 0 {
		return nil
	}
	return time.After(to)
}
