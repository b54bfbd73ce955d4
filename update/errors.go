package update

import (
	"github.com/pkg/errors"
)

// Result is the code reported to the bootloader main loop
type Result int

const (
	OK Result = iota
	CRCError
	BankSwitchError
	FlashEraseError
	FlashWriteError
	UARTError
	InitiationError

	// Unknown is reported for errors that did not come from the engine
	Unknown Result = -1
)

var (
	ErrCRC        = errors.New("CRC error")
	ErrBankSwitch = errors.New("BankSwitch error")
	ErrFlashErase = errors.New("FlashErase error")
	ErrFlashWrite = errors.New("FlashWrite error")
	ErrUART       = errors.New("UART error")
	ErrInitiation = errors.New("Initiation error")

	// ErrSessionClosed is returned by Process once the bank swap has been
	// attempted
	ErrSessionClosed = errors.New("update session is closed")
)

var resultErrors = []struct {
	err error
	res Result
}{
	{ErrCRC, CRCError},
	{ErrBankSwitch, BankSwitchError},
	{ErrFlashErase, FlashEraseError},
	{ErrFlashWrite, FlashWriteError},
	{ErrUART, UARTError},
	{ErrInitiation, InitiationError},
}

// ResultOf maps an error returned by Process to its result code
func ResultOf(err error) Result {
	if err == nil {
		return OK
	}
	for _, re := range resultErrors {
		if errors.Is(err, re.err) {
			return re.res
		}
	}
	return Unknown
}

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case CRCError:
		return "CRC error"
	case BankSwitchError:
		return "BankSwitch error"
	case FlashEraseError:
		return "FlashErase error"
	case FlashWriteError:
		return "FlashWrite error"
	case UARTError:
		return "UART error"
	case InitiationError:
		return "Initiation error"
	}
	return "unknown error"
}
