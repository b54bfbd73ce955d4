package flash

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/synthread/go-dbfu/update"
)

var ErrReceiveActive = errors.New("bulk receive already in progress")

// Link is the device end of the update protocol on top of a Port. It lets the
// update engine run on a machine with a real tty in place of the
// microcontroller's UART and DMA.
type Link struct {
	port *Port

	mu      sync.Mutex
	handler update.Handlers
	cancel  chan struct{}
}

// NewLink creates a device side link on p
func NewLink(p *Port) *Link {
	return &Link{port: p}
}

// Bind routes receive completion to h
func (l *Link) Bind(h update.Handlers) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// Transmit writes bs to the host
func (l *Link) Transmit(bs []byte, timeout time.Duration) error {
	return l.port.Write(bs)
}

// Receive fills bs from the host within timeout
func (l *Link) Receive(bs []byte, timeout time.Duration) error {
	return l.port.read(bs, timeout, nil)
}

// StartBulkReceive fills bs in the background and calls the bound handler
// once it is full
func (l *Link) StartBulkReceive(bs []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return ErrReceiveActive
	}
	cancel := make(chan struct{})
	l.cancel = cancel
	h := l.handler

	go func() {
		err := l.port.read(bs, 0, cancel)
		if errors.Is(err, ErrCanceled) {
			return
		}
		if err != nil {
			logrus.Error("bulk receive: ", err.Error())
			return
		}
		if h != nil {
			h.OnReceiveComplete()
		}
	}()

	return nil
}

// StopBulkReceive cancels the bulk receive if it is still running. It does
// not wait for the receiving goroutine, so it may be called from the
// completion handler.
func (l *Link) StopBulkReceive() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		close(l.cancel)
		l.cancel = nil
	}
	return nil
}

var _ update.Link = (*Link)(nil)
