package update

import "time"

// Bank identifies one of the two flash banks
type Bank uint8

const (
	Bank1 Bank = 1
	Bank2 Bank = 2
)

// Other returns the bank that is not b
func (b Bank) Other() Bank {
	if b == Bank2 {
		return Bank1
	}
	return Bank2
}

func (b Bank) String() string {
	if b == Bank2 {
		return "bank2"
	}
	return "bank1"
}

// Link is the serial peripheral the host loader is attached to.
//
// StartBulkReceive must return immediately; the platform reports the end of
// the transfer by calling Handlers.OnReceiveComplete.
type Link interface {
	Transmit(bs []byte, timeout time.Duration) error
	Receive(bs []byte, timeout time.Duration) error
	StartBulkReceive(bs []byte) error
	StopBulkReceive() error
}

// FlashController issues asynchronous erase and program requests. Completion
// of each request is reported through Handlers.OnFlashOperationComplete.
type FlashController interface {
	Unlock() error
	ErasePages(bank Bank, firstPage, count uint32) error
	ProgramDoubleWord(addr uint32, word uint64) error
}

// OptionBytes is the non-volatile configuration holding the boot bank.
// A successful Launch reapplies the configuration and resets the device, so
// on real hardware it does not return.
type OptionBytes interface {
	DisableInterrupts()
	ClearOptionErrors()
	Unlock() error
	Lock()
	BankSelector() (Bank, error)
	ProgramBankSelector(Bank) error
	Launch() error
}

// Handlers receives the hardware completion notifications. They may be
// called from any goroutine, but never concurrently with each other.
type Handlers interface {
	OnReceiveComplete()
	OnFlashOperationComplete(ret uint32)
}
