package simpeer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arloliu/go-spimem/internal/util"
	"github.com/arloliu/go-spimem/spimem"
)

// DefaultBufferSize is the peer data buffer capacity.
const DefaultBufferSize = 512

// Default register regions, each DefaultBufferSize bytes long.
const (
	TestReg1Addr = 0x1000
	TestReg2Addr = 0xF020
)

// parseState is the receive state of the peer parser.
type parseState int

const (
	stateCtrl parseState = iota
	stateSync
	stateDataLen
	stateAddr1
	stateAddr2
	stateWaitStatusSent
	stateReadData
	stateWriteData
)

func (s parseState) String() string {
	switch s {
	case stateCtrl:
		return "ctrl"
	case stateSync:
		return "sync"
	case stateDataLen:
		return "data-len"
	case stateAddr1:
		return "addr-hi"
	case stateAddr2:
		return "addr-lo"
	case stateWaitStatusSent:
		return "wait-status-sent"
	case stateReadData:
		return "read-data"
	case stateWriteData:
		return "write-data"
	default:
		return "unknown"
	}
}

// txMode selects what the peer loads into its transmit register.
type txMode int

const (
	txIdle txMode = iota
	txData
	txStatus
)

// Region is a register block of the peer address space. Accesses must start at Addr
// and must not exceed Size bytes.
type Region struct {
	Addr uint16
	Size int
}

// Peer is an in-memory simulated peer. It is safe for concurrent use, but like the
// real device it expects one transaction at a time.
type Peer struct {
	mu sync.Mutex

	bufSize int
	regions []Region
	mem     map[uint16][]byte

	// receive parser
	state     parseState
	nextState parseState
	readTx    bool
	dataLenHi int
	dataLen   int
	addr      uint16
	readCnt   int
	writeCnt  int
	buf       []byte

	// transmit pipeline
	mode      txMode
	sdIndex   int
	statusOut byte
	txHolding byte
	txShift   byte

	// requests raised by the parser, serviced by the main loop
	readDataReq  bool
	writeDataReq bool
	countdown    int

	// latched status, cleared on STATUS_READ
	readDataReady bool
	writeComplete bool
	rxOverrun     bool
	txUnderrun    bool
	writeRegError bool
	readRegError  bool

	// fault injection
	serviceDelay     int
	pendingOverruns  int
	pendingUnderruns int

	exchanges int
	frames    [][]byte
	record    bool
}

// Option configures a Peer.
type Option func(*Peer)

// WithBufferSize sets the peer data buffer capacity. Init frames announcing more
// bytes are ignored by the parser.
func WithBufferSize(n int) Option {
	return func(p *Peer) {
		if n > 0 && n <= spimem.MaxLength {
			p.bufSize = n
		}
	}
}

// WithRegions replaces the default register map.
func WithRegions(regions ...Region) Option {
	return func(p *Peer) {
		p.regions = append([]Region(nil), regions...)
	}
}

// WithServiceDelay sets how many exchanges pass before the main loop services a
// pending read or write request. Zero services it right after the exchange that
// raised it.
func WithServiceDelay(n int) Option {
	return func(p *Peer) {
		if n >= 0 {
			p.serviceDelay = n
		}
	}
}

// WithRecording keeps a copy of every received frame, see Frames.
func WithRecording() Option {
	return func(p *Peer) {
		p.record = true
	}
}

// New creates a Peer with two DefaultBufferSize regions at TestReg1Addr and TestReg2Addr.
func New(opts ...Option) *Peer {
	p := &Peer{
		bufSize: DefaultBufferSize,
		regions: []Region{
			{Addr: TestReg1Addr, Size: DefaultBufferSize},
			{Addr: TestReg2Addr, Size: DefaultBufferSize},
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	sort.Slice(p.regions, func(i, j int) bool { return p.regions[i].Addr < p.regions[j].Addr })
	p.buf = make([]byte, p.bufSize)
	p.mem = make(map[uint16][]byte, len(p.regions))
	for _, r := range p.regions {
		p.mem[r.Addr] = make([]byte, r.Size)
	}

	return p
}

var _ spimem.Bus = (*Peer)(nil)

// Exchange clocks tx through the peer parser and returns the bytes the peer shifted
// out at the same time. After the exchange the main loop gets a chance to service
// pending register requests.
func (p *Peer) Exchange(tx []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.record {
		p.frames = append(p.frames, util.CloneSlice(tx, 0))
	}
	if p.pendingOverruns > 0 {
		p.pendingOverruns--
		p.rxOverrun = true
	}
	if p.pendingUnderruns > 0 {
		p.pendingUnderruns--
		p.txUnderrun = true
	}

	rx := make([]byte, len(tx))
	for i, b := range tx {
		rx[i] = p.clock(b)
	}
	p.exchanges++
	p.serviceLoop()

	return rx, nil
}

// InjectRxOverrun latches a receive overrun during each of the next n exchanges.
func (p *Peer) InjectRxOverrun(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingOverruns += n
}

// InjectTxUnderrun latches a transmit underrun during each of the next n exchanges.
func (p *Peer) InjectTxUnderrun(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingUnderruns += n
}

// SetServiceDelay changes the main-loop service delay, see WithServiceDelay.
func (p *Peer) SetServiceDelay(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n >= 0 {
		p.serviceDelay = n
	}
}

// Memory returns a copy of the region starting at addr, or nil if there is none.
func (p *Peer) Memory(addr uint16) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.mem[addr]; ok {
		return util.CloneSlice(m, 0)
	}

	return nil
}

// SetMemory preloads the region starting at addr.
func (p *Peer) SetMemory(addr uint16, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.mem[addr]
	if !ok {
		return fmt.Errorf("simpeer: no region at 0x%04X", addr)
	}
	if len(data) > len(m) {
		return fmt.Errorf("simpeer: %d bytes exceed region 0x%04X of %d bytes", len(data), addr, len(m))
	}
	copy(m, data)

	return nil
}

// Synced reports whether the parser is waiting for a control byte with an idle
// transmitter, i.e. a new frame would be parsed from its first byte.
func (p *Peer) Synced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state == stateCtrl && p.mode == txIdle
}

// State returns the name of the parser state.
func (p *Peer) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state.String()
}

// Exchanges returns the number of exchanges seen so far.
func (p *Peer) Exchanges() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exchanges
}

// Frames returns copies of the recorded frames. Recording must be enabled with WithRecording.
func (p *Peer) Frames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([][]byte, len(p.frames))
	for i, f := range p.frames {
		out[i] = util.CloneSlice(f, 0)
	}

	return out
}
