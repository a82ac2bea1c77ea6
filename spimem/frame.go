package spimem

import "fmt"

// WriteInitFrame builds the WRITE_INIT frame announcing a write of length bytes at addr.
func WriteInitFrame(addr, length int) ([]byte, error) {
	return initFrame(OpWriteInit, addr, length)
}

// ReadInitFrame builds the READ_INIT frame announcing a read of length bytes at addr.
func ReadInitFrame(addr, length int) ([]byte, error) {
	return initFrame(OpReadInit, addr, length)
}

func initFrame(op Opcode, addr, length int) ([]byte, error) {
	if err := validateLength(length); err != nil {
		return nil, err
	}
	if err := validateAddress(addr); err != nil {
		return nil, err
	}

	return []byte{
		byte(op),
		SyncNibble | byte(length>>8&0x0F),
		byte(length & 0xFF),
		byte(addr >> 8 & 0xFF),
		byte(addr & 0xFF),
	}, nil
}

// DataAccessFrame builds a DATA_ACCESS frame carrying payload after the header.
// The payload is copied.
func DataAccessFrame(payload []byte) []byte {
	frame := make([]byte, FrameHeaderLen+len(payload))
	frame[0] = byte(OpDataAccess)
	frame[1] = SyncNibble
	copy(frame[FrameHeaderLen:], payload)

	return frame
}

// ReadDataFrame builds a DATA_ACCESS frame carrying length zero bytes, used to clock
// read data out of the peer.
func ReadDataFrame(length int) []byte {
	return DataAccessFrame(make([]byte, length))
}

// StatusQueryFrame builds a STATUS_READ frame.
func StatusQueryFrame() []byte {
	return []byte{byte(OpStatusRead), SyncNibble, 0x00}
}

func validateLength(length int) error {
	if length < MinLength || length > MaxLength {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidLength, length, MinLength, MaxLength)
	}

	return nil
}

func validateAddress(addr int) error {
	if addr < 0 || addr > MaxAddress {
		return fmt.Errorf("%w: %d not in [0, 0x%04X]", ErrInvalidAddress, addr, MaxAddress)
	}

	return nil
}
