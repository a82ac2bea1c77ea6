package spimem

import (
	"github.com/arloliu/go-spimem/logger"
)

// TxState is the phase of a transaction.
type TxState int

const (
	StateInitPending TxState = iota
	StateInitAcked
	StateDataPending
	StateWaitComplete
	StateDone
	StateAborted
)

func (s TxState) String() string {
	switch s {
	case StateInitPending:
		return "InitPending"
	case StateInitAcked:
		return "InitAcked"
	case StateDataPending:
		return "DataPending"
	case StateWaitComplete:
		return "WaitComplete"
	case StateDone:
		return "Done"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Operation is the kind of a transaction.
type Operation int

const (
	OperationRead Operation = iota
	OperationWrite
)

func (op Operation) String() string {
	if op == OperationWrite {
		return "write"
	}

	return "read"
}

// transaction is the ephemeral record of one Read or Write.
type transaction struct {
	op     Operation
	addr   int
	length int
	state  TxState

	// regErr is the sticky register-error flag. It is only ever OR-ed into, so once
	// true it stays true until the transaction ends.
	regErr bool

	logger logger.Logger
}

func newTransaction(op Operation, addr, length int, l logger.Logger) *transaction {
	return &transaction{
		op:     op,
		addr:   addr,
		length: length,
		state:  StateInitPending,
		logger: l.With("op", op.String(), "addr", addr, "len", length),
	}
}

func (tx *transaction) setState(next TxState) {
	if tx.state == next {
		return
	}
	tx.logger.Debug("spimem: transaction state changed", "prevState", tx.state, "newState", next)
	tx.state = next
}

func (tx *transaction) accumulateRegError(observed bool) {
	tx.regErr = tx.regErr || observed
}

// abort moves the transaction to StateAborted and passes err through.
func (tx *transaction) abort(err error) error {
	tx.setState(StateAborted)
	tx.logger.Debug("spimem: transaction aborted", "error", err)

	return err
}
