package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"check string", []byte("123456789"), 0xE5CC},
		{"erased payload", bytes.Repeat([]byte{0xff}, ChunkPayloadSize), 0xDA57},
		{"counting payload", bytes.Repeat(countingBytes(256), 4), 0xD833},
		{"empty", nil, 0x1D0F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestEncodeChunkSingleBitFlip(t *testing.T) {
	frame, err := EncodeChunk(bytes.Repeat(countingBytes(256), 4))
	if err != nil {
		t.Fatalf("EncodeChunk() error = %v", err)
	}
	if len(frame) != ChunkFrameSize {
		t.Fatalf("frame length = %d, want %d", len(frame), ChunkFrameSize)
	}
	if got := Checksum(frame[:ChunkPayloadSize]); got != FrameChecksum(frame) {
		t.Fatalf("trailing checksum 0x%04X does not match payload 0x%04X", FrameChecksum(frame), got)
	}

	for i := 0; i < ChunkPayloadSize*8; i += 37 {
		corrupt := append([]byte(nil), frame...)
		corrupt[i/8] ^= 1 << (i % 8)
		if Checksum(corrupt[:ChunkPayloadSize]) == FrameChecksum(corrupt) {
			t.Errorf("flipping bit %d was not detected", i)
		}
	}
}

func TestEncodeChunkPadsTail(t *testing.T) {
	frame, err := EncodeChunk([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("EncodeChunk() error = %v", err)
	}

	if !bytes.Equal(frame[:3], []byte{1, 2, 3}) {
		t.Errorf("payload head = %x", frame[:3])
	}
	for i := 3; i < ChunkPayloadSize; i++ {
		if frame[i] != 0xff {
			t.Fatalf("byte %d = 0x%02X, want 0xFF padding", i, frame[i])
		}
	}

	if _, err := EncodeChunk(make([]byte, ChunkPayloadSize+1)); err == nil {
		t.Error("EncodeChunk() accepted an oversized payload")
	}
}

func TestImageSize(t *testing.T) {
	tests := []struct {
		size    int
		want    []byte
		wantErr bool
	}{
		{size: 0, want: []byte{0, 0, 0}},
		{size: 2048, want: []byte{0x00, 0x08, 0x00}},
		{size: 0x123456, want: []byte{0x12, 0x34, 0x56}},
		{size: MaxImageSize, want: []byte{0xff, 0xff, 0xff}},
		{size: MaxImageSize + 1, wantErr: true},
		{size: -1, wantErr: true},
	}

	for _, tt := range tests {
		got, err := EncodeImageSize(tt.size)
		if tt.wantErr {
			if !errors.Is(err, ErrImageTooLarge) {
				t.Errorf("EncodeImageSize(%d) error = %v, want ErrImageTooLarge", tt.size, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("EncodeImageSize(%d) error = %v", tt.size, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeImageSize(%d) = %x, want %x", tt.size, got, tt.want)
		}

		back, err := DecodeImageSize(got)
		if err != nil || back != uint32(tt.size) {
			t.Errorf("DecodeImageSize(%x) = %d, %v", got, back, err)
		}
	}

	if _, err := DecodeImageSize([]byte{1, 2}); err == nil {
		t.Error("DecodeImageSize() accepted a short field")
	}
}

func TestPagesToErase(t *testing.T) {
	for _, size := range []uint32{0, 1, 1023, 2047, 2048, 2049, 4096, 100000, MaxImageSize} {
		pages := PagesToErase(size, PageSize)
		if pages != size/PageSize+1 {
			t.Errorf("PagesToErase(%d) = %d, want %d", size, pages, size/PageSize+1)
		}
		if pages*PageSize < size {
			t.Errorf("PagesToErase(%d) = %d pages does not cover the image", size, pages)
		}
	}

	if got := PagesToErase[uint32](2048, PageSize); got != 2 {
		t.Errorf("PagesToErase(2048) = %d, want 2", got)
	}
}

func TestChunks(t *testing.T) {
	tests := map[int]int{0: 0, 1: 1, 1024: 1, 1025: 2, 2048: 2, 4097: 5}
	for size, want := range tests {
		if got := Chunks(size); got != want {
			t.Errorf("Chunks(%d) = %d, want %d", size, got, want)
		}
	}
}

func countingBytes(n int) []byte {
	bs := make([]byte, n)
	for i := range bs {
		bs[i] = byte(i)
	}
	return bs
}
