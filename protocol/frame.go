package protocol

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/snksoft/crc"
	"golang.org/x/exp/constraints"
)

var ErrImageTooLarge = errors.New("image does not fit in a 3 byte size field")

// CRC16 are the parameters of the CRC unit on the target (CRC-16/AUG-CCITT)
var CRC16 = &crc.Parameters{
	Width:      16,
	Polynomial: 0x1021,
	Init:       0x1D0F,
	ReflectIn:  false,
	ReflectOut: false,
	FinalXor:   0x0000,
}

var crcTable = crc.NewTable(CRC16)

// Checksum computes the chunk checksum over the payload bytes
func Checksum(payload []byte) uint16 {
	return uint16(crcTable.CalculateCRC(payload))
}

// EncodeImageSize returns the handshake encoding of size, MSB first
func EncodeImageSize(size int) ([]byte, error) {
	if size < 0 || size > MaxImageSize {
		return nil, errors.Wrapf(ErrImageTooLarge, "size %d", size)
	}
	return []byte{byte(size >> 16), byte(size >> 8), byte(size)}, nil
}

// DecodeImageSize is the inverse of EncodeImageSize
func DecodeImageSize(bs []byte) (uint32, error) {
	if len(bs) != ImageSizeLen {
		return 0, errors.Errorf("image size must be %d bytes, got %d", ImageSizeLen, len(bs))
	}
	return uint32(bs[0])<<16 | uint32(bs[1])<<8 | uint32(bs[2]), nil
}

// EncodeChunk builds the bulk frame for one chunk. Short payloads (the tail
// of an image) are padded with erased-flash bytes before the checksum is
// computed.
func EncodeChunk(payload []byte) ([]byte, error) {
	if len(payload) > ChunkPayloadSize {
		return nil, errors.Errorf("chunk payload is %d bytes, max %d", len(payload), ChunkPayloadSize)
	}

	frame := make([]byte, ChunkFrameSize)
	n := copy(frame, payload)
	for i := n; i < ChunkPayloadSize; i++ {
		frame[i] = 0xff
	}
	binary.BigEndian.PutUint16(frame[ChunkPayloadSize:], Checksum(frame[:ChunkPayloadSize]))

	return frame, nil
}

// FrameChecksum returns the checksum carried in the trailing bytes of a frame
func FrameChecksum(frame []byte) uint16 {
	return binary.BigEndian.Uint16(frame[len(frame)-ChecksumSize:])
}

// PagesToErase returns how many pages must be erased to hold size bytes. It
// always adds a page, even when size is an exact multiple of pageSize.
func PagesToErase[T constraints.Unsigned](size, pageSize T) T {
	return size/pageSize + 1
}

// Chunks returns the number of chunks needed to carry size bytes
func Chunks(size int) int {
	return (size + ChunkPayloadSize - 1) / ChunkPayloadSize
}
