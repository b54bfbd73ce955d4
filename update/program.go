package update

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/synthread/go-dbfu/protocol"
)

// programNextWord issues the program request for the next word of the
// current chunk. If the previous word is still being written it does
// nothing and the next poll tries again.
func (e *Engine) programNextWord() error {
	if e.flags.writing.Load() {
		return nil
	}

	c := e.cursor
	if e.addr+protocol.WordSize > e.eraseEnd() {
		return errors.Wrapf(ErrFlashWrite, "address 0x%08x is past the erased region (0x%08x)",
			e.addr, e.eraseEnd())
	}

	word := binary.LittleEndian.Uint64(e.buf[c.offset : c.offset+protocol.WordSize])

	e.flags.writing.Store(true)
	if err := e.flash.ProgramDoubleWord(e.addr, word); err != nil {
		e.flags.writing.Store(false)
		return errors.Wrapf(ErrFlashWrite, "program 0x%08x: %v", e.addr, err)
	}
	e.counters.words.Add(1)
	logrus.Tracef("dbfu wr: %016x @ %08x", word, e.addr)

	e.addr += protocol.WordSize
	c.offset += protocol.WordSize

	if c.offset == protocol.ChunkPayloadSize {
		e.cursor = nil
		e.flags.chunkWriting.Store(false)
		e.setPhase(ReceivingPacket)
		logrus.Debugf("dbfu chunk written, next @ %08x", e.addr)
	}

	return nil
}
