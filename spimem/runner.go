package spimem

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/arloliu/go-spimem/internal/util"
	"github.com/arloliu/go-spimem/logger"
)

// Bus is a synchronous full-duplex byte transport. Exchange clocks out tx and returns
// the bytes clocked in at the same time, so len(rx) must equal len(tx). It must not
// retry or interpret the payload.
type Bus interface {
	Exchange(tx []byte) ([]byte, error)
}

// BusFunc adapts a function to the Bus interface.
type BusFunc func(tx []byte) ([]byte, error)

func (f BusFunc) Exchange(tx []byte) ([]byte, error) { return f(tx) }

// Runner runs read, write and status transactions against one peer.
//
// The peer keeps implicit state between the init and data phases, so Runner holds
// its lock for the whole of a transaction, retries included. Once a frame has been
// sent there is no safe abort: a transaction either completes its handshake or fails
// with a bus error, after which the caller should Resync.
type Runner struct {
	mu     sync.Mutex
	bus    Bus
	cfg    *Config
	logger logger.Logger

	metrics RunnerMetrics
}

// NewRunner creates a Runner on bus. A nil cfg uses the defaults of NewConfig.
func NewRunner(bus Bus, cfg *Config) (*Runner, error) {
	if bus == nil {
		return nil, ErrNilBus
	}
	if cfg == nil {
		var err error
		if cfg, err = NewConfig(); err != nil {
			return nil, err
		}
	}

	l := cfg.logger
	if cfg.name != "" {
		l = l.With("device", cfg.name)
	}

	return &Runner{bus: bus, cfg: cfg, logger: l}, nil
}

// Config returns the runner configuration.
func (r *Runner) Config() *Config { return r.cfg }

// Metrics returns the runner metrics.
func (r *Runner) Metrics() *RunnerMetrics { return &r.metrics }

// Write writes data at addr.
//
// The returned flag is the sticky register-error flag: true means the peer rejected
// the address or alignment at some point during the transaction and the write must
// not be assumed to have happened correctly. Transient faults are retried internally
// and never returned.
func (r *Runner) Write(addr int, data []byte) (bool, error) {
	initFrame, err := WriteInitFrame(addr, len(data))
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := newTransaction(OperationWrite, addr, len(data), r.logger)

	if err := r.runInit(tx, initFrame); err != nil {
		return tx.regErr, tx.abort(err)
	}

	dataFrame := DataAccessFrame(data)
	for retries := 0; ; {
		tx.setState(StateDataPending)
		if _, err := r.exchange(dataFrame); err != nil {
			return tx.regErr, tx.abort(err)
		}

		st, err := r.readStatus()
		if err != nil {
			return tx.regErr, tx.abort(err)
		}
		transient := st.Transient()
		tx.accumulateRegError(st.WriteRegError)

		tx.setState(StateWaitComplete)
		complete := st.WriteComplete
		for polls := 1; !complete && polls < r.cfg.pollLimit; polls++ {
			r.cfg.sleep(r.cfg.pollInterval)

			if st, err = r.readStatus(); err != nil {
				return tx.regErr, tx.abort(err)
			}
			complete = st.WriteComplete
			tx.accumulateRegError(st.WriteRegError)
			transient = transient || st.Transient()
		}
		if !complete {
			r.metrics.incPollExhaustedCount()
			tx.logger.Warn("spimem: write completion not observed", "polls", r.cfg.pollLimit)
		}

		// A register error will not be fixed by resending the data.
		if !transient || tx.regErr {
			break
		}

		retries++
		if exceeded(retries, r.cfg.dataRetryLimit) {
			return tx.regErr, tx.abort(fmt.Errorf("%w: write data phase after %d retries", ErrRetryExhausted, retries-1))
		}
		r.metrics.incDataRetryCount()
		tx.logger.Warn("spimem: transient fault during write, resending data", "retry", retries)
	}

	tx.setState(StateDone)
	r.metrics.addBytesWritten(len(data))

	return tx.regErr, nil
}

// Read reads length bytes at addr. It returns the payload and the sticky
// register-error flag; see Write for the meaning of the flag.
func (r *Runner) Read(addr, length int) ([]byte, bool, error) {
	initFrame, err := ReadInitFrame(addr, length)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := newTransaction(OperationRead, addr, length, r.logger)

	if err := r.runInit(tx, initFrame); err != nil {
		return nil, tx.regErr, tx.abort(err)
	}

	dataFrame := ReadDataFrame(length)
	var payload []byte
	for retries := 0; ; {
		tx.setState(StateDataPending)
		rx, err := r.exchange(dataFrame)
		if err != nil {
			return nil, tx.regErr, tx.abort(err)
		}
		payload = util.CloneSlice(rx[FrameHeaderLen:], 0)

		st, err := r.readStatus()
		if err != nil {
			return nil, tx.regErr, tx.abort(err)
		}
		tx.accumulateRegError(st.ReadRegError)

		if !st.Transient() || tx.regErr {
			break
		}

		retries++
		if exceeded(retries, r.cfg.dataRetryLimit) {
			return nil, tx.regErr, tx.abort(fmt.Errorf("%w: read data phase after %d retries", ErrRetryExhausted, retries-1))
		}
		r.metrics.incDataRetryCount()
		tx.logger.Warn("spimem: transient fault during read, repeating data read", "retry", retries)
	}

	tx.setState(StateDone)
	r.metrics.addBytesRead(len(payload))

	return payload, tx.regErr, nil
}

// ReadVerify reads len(expected) bytes at addr and compares them with expected.
//
// A mismatch is a data-integrity fault: the payload is not returned and the error
// is a *DataIntegrityError. The register-error flag is returned in every case.
func (r *Runner) ReadVerify(addr int, expected []byte) ([]byte, bool, error) {
	data, regErr, err := r.Read(addr, len(expected))
	if err != nil {
		return nil, regErr, err
	}

	if !bytes.Equal(data, expected) {
		r.metrics.incIntegrityFaultCount()
		ierr := &DataIntegrityError{
			Addr:     addr,
			Expected: util.CloneSlice(expected, 0),
			Actual:   data,
		}
		r.logger.Error("spimem: read verification failed",
			"addr", addr,
			"offset", ierr.FirstMismatch(),
			"regErr", regErr,
		)

		return nil, regErr, ierr
	}

	return data, regErr, nil
}

// Status performs one STATUS_READ exchange. Reading the status clears the latched
// bits on the peer.
func (r *Runner) Status() (StatusFlags, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readStatus()
}

// runInit sends the init frame until the peer acknowledges it without a transient
// fault. Reads additionally wait for read-data-ready.
func (r *Runner) runInit(tx *transaction, frame []byte) error {
	for retries := 0; ; {
		tx.setState(StateInitPending)
		if _, err := r.exchange(frame); err != nil {
			return err
		}

		st, err := r.readStatus()
		if err != nil {
			return err
		}
		transient := st.Transient()

		if tx.op == OperationRead {
			tx.accumulateRegError(st.ReadRegError)

			ready := st.ReadDataReady
			for polls := 1; !ready && polls < r.cfg.pollLimit; polls++ {
				r.cfg.sleep(r.cfg.pollInterval)

				if st, err = r.readStatus(); err != nil {
					return err
				}
				ready = st.ReadDataReady
				tx.accumulateRegError(st.ReadRegError)
				transient = transient || st.Transient()
			}
			if !ready && !transient {
				r.metrics.incPollExhaustedCount()
				tx.logger.Warn("spimem: read data ready not observed", "polls", r.cfg.pollLimit)
			}
		}

		if !transient {
			break
		}

		retries++
		if exceeded(retries, r.cfg.initRetryLimit) {
			return fmt.Errorf("%w: %s init phase after %d retries", ErrRetryExhausted, tx.op, retries-1)
		}
		r.metrics.incInitRetryCount()
		tx.logger.Warn("spimem: transient fault, retrying init", "retry", retries, "status", st)
	}

	tx.setState(StateInitAcked)

	return nil
}

// exchange performs one bus exchange and enforces the full-duplex length contract.
func (r *Runner) exchange(tx []byte) ([]byte, error) {
	r.metrics.incExchangeCount()

	rx, err := r.bus.Exchange(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBus, Opcode(tx[0]), err)
	}
	if len(rx) != len(tx) {
		return nil, fmt.Errorf("%w: sent %d, received %d", ErrShortExchange, len(tx), len(rx))
	}

	return rx, nil
}

// queryStatus reads and decodes the status byte without notifying anyone.
func (r *Runner) queryStatus() (StatusFlags, error) {
	rx, err := r.exchange(StatusQueryFrame())
	if err != nil {
		return StatusFlags{}, err
	}
	r.metrics.incStatusPollCount()

	return DecodeStatus(rx[statusByteIndex]), nil
}

// readStatus reads the status byte and reports fault flags to the logger,
// the metrics and the status observer.
func (r *Runner) readStatus() (StatusFlags, error) {
	st, err := r.queryStatus()
	if err != nil {
		return st, err
	}

	if st.HasFault() {
		if st.Transient() {
			r.metrics.incTransientFaultCount()
		}
		if st.RegisterError() {
			r.metrics.incRegisterErrorCount()
		}
		r.logger.Warn("spimem: peer reported fault", "status", st.String())

		if r.cfg.statusObserver != nil {
			r.cfg.statusObserver(st)
		}
	}

	return st, nil
}

// exceeded reports whether retries went past limit. Unbounded never exceeds.
func exceeded(retries, limit int) bool {
	return limit != Unbounded && retries > limit
}
