package flash

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/synthread/go-dbfu/protocol"
)

var ErrNoStart = errors.New("device did not request an update")
var ErrNoAck = errors.New("device did not acknowledge")

// Progress is reported after every chunk sent
type Progress struct {
	Chunk  int
	Chunks int
	Sent   int
	Total  int
	// Elapsed is the time since the device requested the update
	Elapsed time.Duration
}

// ProgressFunc is called with upload progress. It should return quickly.
type ProgressFunc func(Progress)

// dbfuStart waits for the device to ask for an image and tells it the size
func (l *Loader) dbfuStart(size int) error {
	bs, err := protocol.EncodeImageSize(size)
	if err != nil {
		return err
	}

	// the device may print a banner before asking
	if err := l.port.ReadUntil(protocol.Start, l.config.StartTimeout); err != nil {
		return errors.Wrap(ErrNoStart, err.Error())
	}
	return errors.Wrap(l.port.Write(bs), "err writing image size")
}

// dbfuAwaitAck waits for the device to ask for the next header
func (l *Loader) dbfuAwaitAck() error {
	if err := l.port.ReadUntil(protocol.ACK, l.config.AckTimeout); err != nil {
		return errors.Wrap(ErrNoAck, err.Error())
	}
	return nil
}

// dbfuWriteChunk sends one data header and chunk frame
func (l *Loader) dbfuWriteChunk(payload []byte) error {
	frame, err := protocol.EncodeChunk(payload)
	if err != nil {
		return err
	}
	if err := l.dbfuAwaitAck(); err != nil {
		return err
	}
	return l.port.Write([]byte{protocol.SOH}, frame)
}

// dbfuFinish sends the end of transfer header
func (l *Loader) dbfuFinish() error {
	if err := l.dbfuAwaitAck(); err != nil {
		return errors.Wrap(err, "no ack before end of transfer")
	}
	return errors.Wrap(l.port.Write([]byte{protocol.EOT}), "err writing end of transfer")
}

func (l *Loader) dbfuUpload(image []byte, progress ProgressFunc) error {
	if err := l.dbfuStart(len(image)); err != nil {
		return err
	}
	started := time.Now()

	nchunks := protocol.Chunks(len(image))
	logrus.Infof("sending %d bytes in %d chunks", len(image), nchunks)

	for i := 0; i < nchunks; i++ {
		offset := i * protocol.ChunkPayloadSize
		end := min(len(image), offset+protocol.ChunkPayloadSize)

		logrus.Debugf("chunk %d: %d -> %d", i, offset, end)

		if err := l.dbfuWriteChunk(image[offset:end]); err != nil {
			return errors.Wrap(err, fmt.Sprintf("could not write chunk %d", i))
		}

		if progress != nil {
			progress(Progress{
				Chunk:   i + 1,
				Chunks:  nchunks,
				Sent:    end,
				Total:   len(image),
				Elapsed: time.Since(started),
			})
		}
	}

	return l.dbfuFinish()
}
