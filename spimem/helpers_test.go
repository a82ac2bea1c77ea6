package spimem

import (
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-spimem/internal/util"
	"github.com/arloliu/go-spimem/logger"
	"github.com/stretchr/testify/require"
)

// scriptBus is a fault-injecting Bus. STATUS_READ replies are taken from statuses in
// order, then idle is returned forever. DATA_ACCESS replies carry readData after the
// header. Every frame sent is recorded.
type scriptBus struct {
	mu       sync.Mutex
	statuses []byte
	idle     byte
	readData []byte
	frames   [][]byte
}

func newScriptBus(idle byte, statuses ...byte) *scriptBus {
	return &scriptBus{idle: idle, statuses: statuses}
}

func (b *scriptBus) Exchange(tx []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, util.CloneSlice(tx, 0))
	rx := make([]byte, len(tx))

	switch Opcode(tx[0]) {
	case OpStatusRead:
		st := b.idle
		if len(b.statuses) > 0 {
			st = b.statuses[0]
			b.statuses = b.statuses[1:]
		}
		rx[statusByteIndex] = st
	case OpDataAccess:
		copy(rx[FrameHeaderLen:], b.readData)
	}

	return rx, nil
}

// sent returns the recorded frames.
func (b *scriptBus) sent() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.frames
}

// count returns the number of recorded frames starting with op.
func (b *scriptBus) count(op Opcode) int {
	n := 0
	for _, f := range b.sent() {
		if len(f) > 0 && Opcode(f[0]) == op {
			n++
		}
	}

	return n
}

// statusAfterLast counts the STATUS_READ frames sent after the last frame starting with op.
func (b *scriptBus) statusAfterLast(op Opcode) int {
	frames := b.sent()
	n := 0
	for i := len(frames) - 1; i >= 0; i-- {
		if Opcode(frames[i][0]) == op {
			return n
		}
		if Opcode(frames[i][0]) == OpStatusRead {
			n++
		}
	}

	return n
}

// sleepRecorder counts sleeps without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	calls  int
	total  time.Duration
	last   time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.total += d
	s.last = d
}

// newTestRunner creates a Runner with a silent logger and a no-op sleep.
func newTestRunner(t *testing.T, bus Bus, opts ...Option) *Runner {
	t.Helper()

	defaults := []Option{
		WithLogger(logger.NewNop()),
		WithSleepFunc(func(time.Duration) {}),
	}

	cfg, err := NewConfig(append(defaults, opts...)...)
	require.NoError(t, err)

	r, err := NewRunner(bus, cfg)
	require.NoError(t, err)

	return r
}
