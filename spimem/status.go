package spimem

import "strings"

// StatusFlags is the decoded form of the peer status byte. The flags are independent
// and may be combined arbitrarily.
type StatusFlags struct {
	ReadDataReady bool
	WriteComplete bool
	RxOverrun     bool
	TxUnderrun    bool
	WriteRegError bool
	ReadRegError  bool
}

// StatusObserver is notified whenever a decoded status carries a fault flag.
// It is called synchronously from the transaction and must return quickly.
type StatusObserver func(StatusFlags)

// DecodeStatus decodes one status byte. Bits 6 and 7 are ignored.
func DecodeStatus(b byte) StatusFlags {
	return StatusFlags{
		ReadDataReady: b&ReadDataReadyMask != 0,
		WriteComplete: b&WriteCompleteMask != 0,
		RxOverrun:     b&RxOverrunMask != 0,
		TxUnderrun:    b&TxUnderrunMask != 0,
		WriteRegError: b&WriteRegErrorMask != 0,
		ReadRegError:  b&ReadRegErrorMask != 0,
	}
}

// Byte encodes the flags back into a status byte.
func (s StatusFlags) Byte() byte {
	var b byte
	if s.ReadDataReady {
		b |= ReadDataReadyMask
	}
	if s.WriteComplete {
		b |= WriteCompleteMask
	}
	if s.RxOverrun {
		b |= RxOverrunMask
	}
	if s.TxUnderrun {
		b |= TxUnderrunMask
	}
	if s.WriteRegError {
		b |= WriteRegErrorMask
	}
	if s.ReadRegError {
		b |= ReadRegErrorMask
	}

	return b
}

// Transient reports a receive overrun or transmit underrun on the peer.
func (s StatusFlags) Transient() bool {
	return s.RxOverrun || s.TxUnderrun
}

// RegisterError reports a write or read register access error.
func (s StatusFlags) RegisterError() bool {
	return s.WriteRegError || s.ReadRegError
}

// HasFault reports whether any transport or register fault flag is set.
func (s StatusFlags) HasFault() bool {
	return s.Transient() || s.RegisterError()
}

func (s StatusFlags) String() string {
	names := make([]string, 0, 6)
	if s.ReadDataReady {
		names = append(names, "ready")
	}
	if s.WriteComplete {
		names = append(names, "complete")
	}
	if s.RxOverrun {
		names = append(names, "overrun")
	}
	if s.TxUnderrun {
		names = append(names, "underrun")
	}
	if s.WriteRegError {
		names = append(names, "wr-reg-err")
	}
	if s.ReadRegError {
		names = append(names, "rd-reg-err")
	}
	if len(names) == 0 {
		return "idle"
	}

	return strings.Join(names, "|")
}
