package update

import (
	"time"

	"github.com/synthread/go-dbfu/protocol"
)

var DefaultHandshakeTimeout = 100 * time.Millisecond
var DefaultHeaderTimeout = 0xFFFF * time.Millisecond
var DefaultTxTimeout = 0xFFFF * time.Millisecond

// Config defines the flash layout and link timing used by the engine
type Config struct {
	// CurrentBank is the bank the bootloader is running from
	CurrentBank Bank

	BankAddress    uint32
	PageSize       uint32
	ErasePageStart uint32
	BankPages      uint32

	HandshakeTimeout time.Duration
	HeaderTimeout    time.Duration
	TxTimeout        time.Duration

	// ResetTimeout is how long to wait for the device to reset after the
	// new bank configuration has been launched
	ResetTimeout time.Duration

	// Checksum computes the checksum of a chunk payload. It is usually
	// backed by the CRC peripheral.
	Checksum func([]byte) uint16
}

func (c *Config) setDefaults() {
	if c.CurrentBank != Bank2 {
		c.CurrentBank = Bank1
	}
	if c.BankAddress == 0 {
		c.BankAddress = protocol.BankAddress
	}
	if c.PageSize == 0 {
		c.PageSize = protocol.PageSize
	}
	if c.ErasePageStart == 0 {
		c.ErasePageStart = protocol.ErasePageStart
	}
	if c.BankPages == 0 {
		c.BankPages = protocol.BankPages
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.HeaderTimeout <= 0 {
		c.HeaderTimeout = DefaultHeaderTimeout
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = DefaultTxTimeout
	}
	if c.Checksum == nil {
		c.Checksum = protocol.Checksum
	}
}
