package spimem

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the spimem package.
var (
	// Framing errors, reported before anything is sent.
	ErrInvalidLength  = errors.New("spimem: invalid length")
	ErrInvalidAddress = errors.New("spimem: invalid address")

	// Transport errors. They terminate the current operation; the peer may be left
	// mid-transaction and should be resynchronized.
	ErrBus           = errors.New("spimem: bus exchange failed")
	ErrShortExchange = errors.New("spimem: exchange returned wrong number of bytes")

	// ErrRetryExhausted is returned only when a retry ceiling has been configured
	// with WithInitRetryLimit or WithDataRetryLimit.
	ErrRetryExhausted = errors.New("spimem: transient fault retries exhausted")

	// ErrDataIntegrity is the sentinel wrapped by DataIntegrityError.
	ErrDataIntegrity = errors.New("spimem: read data does not match expected data")

	ErrNilBus = errors.New("spimem: bus is nil")
)

// DataIntegrityError reports a read whose payload differs from the expected bytes.
type DataIntegrityError struct {
	Addr     int
	Expected []byte
	Actual   []byte
}

func (e *DataIntegrityError) Error() string {
	idx := e.FirstMismatch()
	if idx < 0 {
		return fmt.Sprintf("%s at 0x%04X", ErrDataIntegrity, e.Addr)
	}
	if idx >= len(e.Expected) || idx >= len(e.Actual) {
		return fmt.Sprintf("%s at 0x%04X: expected %d bytes, got %d",
			ErrDataIntegrity, e.Addr, len(e.Expected), len(e.Actual))
	}

	return fmt.Sprintf("%s at 0x%04X: first mismatch at offset %d: expected 0x%02X, got 0x%02X",
		ErrDataIntegrity, e.Addr, idx, e.Expected[idx], e.Actual[idx])
}

func (e *DataIntegrityError) Unwrap() error {
	return ErrDataIntegrity
}

// FirstMismatch returns the offset of the first differing byte, or -1 when the
// slices are equal.
func (e *DataIntegrityError) FirstMismatch() int {
	n := min(len(e.Expected), len(e.Actual))
	for i := 0; i < n; i++ {
		if e.Expected[i] != e.Actual[i] {
			return i
		}
	}
	if len(e.Expected) != len(e.Actual) {
		return n
	}

	return -1
}
