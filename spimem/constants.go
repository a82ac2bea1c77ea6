package spimem

// Opcode is the first byte of a frame and selects the protocol phase.
type Opcode byte

// Frame opcodes. The upper nibble is the control sync marker (0x5).
const (
	OpWriteInit  Opcode = 0x50
	OpReadInit   Opcode = 0x51
	OpDataAccess Opcode = 0x52
	OpStatusRead Opcode = 0x53
)

func (op Opcode) String() string {
	switch op {
	case OpWriteInit:
		return "WRITE_INIT"
	case OpReadInit:
		return "READ_INIT"
	case OpDataAccess:
		return "DATA_ACCESS"
	case OpStatusRead:
		return "STATUS_READ"
	default:
		return "UNKNOWN"
	}
}

const (
	// OpcodeNibble is the upper nibble shared by every valid opcode byte.
	OpcodeNibble byte = 0x50
	// SyncNibble is the upper nibble of the sync byte following the opcode.
	// Its lower nibble carries length bits 11..8 in init frames and is zero otherwise.
	SyncNibble byte = 0xA0
	// NeutralByte is clocked out during resync; its upper nibble never matches OpcodeNibble.
	NeutralByte byte = 0x00
)

// Status register bit masks.
const (
	ReadDataReadyMask byte = 0x01
	WriteCompleteMask byte = 0x02
	RxOverrunMask     byte = 0x04
	TxUnderrunMask    byte = 0x08
	WriteRegErrorMask byte = 0x10
	ReadRegErrorMask  byte = 0x20

	// StatusMask covers every defined status bit.
	StatusMask byte = 0x3F
)

// Frame geometry.
const (
	// FrameHeaderLen is the opcode byte plus the sync byte.
	FrameHeaderLen = 2
	// InitFrameLen is the length of WRITE_INIT and READ_INIT frames.
	InitFrameLen = 5
	// StatusFrameLen is the length of a STATUS_READ frame.
	StatusFrameLen = 3
	// statusByteIndex is the position of the status byte in a STATUS_READ reply.
	statusByteIndex = 2
)

// Representable ranges.
const (
	MinLength  = 1
	MaxLength  = 0x0FFF // 12 bits: 4 in the sync byte, 8 in the following byte
	MaxAddress = 0xFFFF
)
