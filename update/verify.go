package update

import (
	"github.com/pkg/errors"

	"github.com/synthread/go-dbfu/protocol"
)

// verifyChunk checks the received chunk against its trailing checksum
func (e *Engine) verifyChunk() error {
	expected := protocol.FrameChecksum(e.buf[:])
	calculated := e.config.Checksum(e.buf[:protocol.ChunkPayloadSize])
	if expected != calculated {
		return errors.Wrapf(ErrCRC, "chunk %d: expected 0x%04x, calculated 0x%04x",
			e.counters.chunks.Load(), expected, calculated)
	}

	e.counters.chunks.Add(1)
	e.cursor = &chunkCursor{}
	e.flags.chunkWriting.Store(true)
	e.setPhase(Flashing)
	return nil
}
