package update

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/synthread/go-dbfu/protocol"
)

// beginHandshake tells the host we are ready and learns the image size
func (e *Engine) beginHandshake() error {
	if err := e.link.Transmit([]byte{protocol.Start}, e.config.TxTimeout); err != nil {
		return errors.Wrapf(ErrUART, "send start: %v", err)
	}

	// no answer here usually means no loader is running on the host
	bs := make([]byte, protocol.ImageSizeLen)
	if err := e.link.Receive(bs, e.config.HandshakeTimeout); err != nil {
		return errors.Wrapf(ErrInitiation, "receive image size: %v", err)
	}

	size, err := protocol.DecodeImageSize(bs)
	if err != nil {
		return errors.Wrapf(ErrInitiation, "%v", err)
	}
	e.imageSize = size

	logrus.WithField("size", size).Debug("dbfu handshake done")
	return nil
}

// receiveChunkHeader acknowledges the previous chunk, reads the next header
// and arms the bulk receive for the chunk data
func (e *Engine) receiveChunkHeader() error {
	if err := e.link.Transmit([]byte{protocol.ACK}, e.config.TxTimeout); err != nil {
		return errors.Wrapf(ErrUART, "send ack: %v", err)
	}

	header := make([]byte, 1)
	if err := e.link.Receive(header, e.config.HeaderTimeout); err != nil {
		return errors.Wrapf(ErrUART, "receive header: %v", err)
	}

	if header[0] == protocol.EOT {
		if err := e.link.StartBulkReceive(e.buf[:]); err != nil {
			return errors.Wrapf(ErrUART, "start receive: %v", err)
		}
		if err := e.link.StopBulkReceive(); err != nil {
			return errors.Wrapf(ErrUART, "stop receive: %v", err)
		}
		e.setPhase(Finishing)
		return nil
	}

	// Idle must be visible before the receive can complete
	e.setPhase(Idle)
	if err := e.link.StartBulkReceive(e.buf[:]); err != nil {
		return errors.Wrapf(ErrUART, "start receive: %v", err)
	}
	return nil
}
