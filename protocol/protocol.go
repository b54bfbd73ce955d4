// Package protocol holds the wire format and flash layout shared by the
// bootloader-resident update engine and the host loader.
//
// A transfer looks like this on the wire:
//
//	device -> host  'S'
//	host -> device  3 byte big-endian image size
//	repeat:
//	  device -> host  ACK
//	  host -> device  SOH + 1024 byte payload + 2 byte big-endian CRC
//	device -> host  ACK
//	host -> device  EOT
package protocol

// packet header bytes, modelled on YMODEM
const (
	Start byte = 'S'
	ACK   byte = 0x06
	SOH   byte = 0x01
	EOT   byte = 0x54
)

const (
	// ChunkPayloadSize is the number of image bytes carried by one chunk
	ChunkPayloadSize = 1024
	// ChecksumSize is the length of the trailing checksum of a chunk
	ChecksumSize = 2
	// ChunkFrameSize is the size of the bulk transfer that follows a SOH header
	ChunkFrameSize = ChunkPayloadSize + ChecksumSize

	// ImageSizeLen is the length of the image size sent during the handshake
	ImageSizeLen = 3
	// MaxImageSize is the largest size that fits in the handshake
	MaxImageSize = 1<<(8*ImageSizeLen) - 1
)

// Flash layout of the target. These are normative for compatibility with
// deployed loaders.
const (
	// BankAddress is the base address of the bank that is not booted from
	BankAddress uint32 = 0x08080000
	// PageSize is the erase granularity in bytes
	PageSize = 2048
	// ErasePageStart is the index of the first page of the inactive bank
	ErasePageStart = 256
	// BankPages is the number of pages in one bank
	BankPages = 256
	// WordSize is the program granularity in bytes
	WordSize = 8
	// WordsPerChunk is the number of program requests needed for one chunk
	WordsPerChunk = ChunkPayloadSize / WordSize

	// EraseDoneMarker is reported by the flash controller once the last page
	// of an erase request has been erased. Intermediate notifications carry
	// the index of the page that was just erased.
	EraseDoneMarker uint32 = 0xFFFFFFFF
)
