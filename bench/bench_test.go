package bench

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-spimem/logger"
	"github.com/arloliu/go-spimem/spimem"
	"github.com/arloliu/go-spimem/spimem/simpeer"
	"github.com/arloliu/go-spimem/telemetry"
)

type captureSink struct {
	mu     sync.Mutex
	points []telemetry.Point
}

func (s *captureSink) Record(_ context.Context, p telemetry.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, p)

	return nil
}

func (s *captureSink) Close() error { return nil }

func newRunner(t *testing.T, bus spimem.Bus) *spimem.Runner {
	t.Helper()

	cfg, err := spimem.NewConfig(
		spimem.WithLogger(logger.NewNop()),
		spimem.WithSleepFunc(func(time.Duration) {}),
	)
	require.NoError(t, err)
	r, err := spimem.NewRunner(bus, cfg)
	require.NoError(t, err)

	return r
}

// corruptingBus flips a payload bit of every read data reply.
type corruptingBus struct {
	peer    *simpeer.Peer
	reading bool
}

func (b *corruptingBus) Exchange(tx []byte) ([]byte, error) {
	rx, err := b.peer.Exchange(tx)
	if err != nil {
		return nil, err
	}

	switch spimem.Opcode(tx[0]) {
	case spimem.OpReadInit:
		b.reading = true
	case spimem.OpWriteInit:
		b.reading = false
	case spimem.OpDataAccess:
		if b.reading && len(rx) > spimem.FrameHeaderLen {
			rx[spimem.FrameHeaderLen] ^= 0x01
		}
	}

	return rx, nil
}

func TestDefaultVectors(t *testing.T) {
	v := DefaultVectors()
	require.Len(t, v, 2)

	assert.Equal(t, 0x1000, v[0].Addr)
	assert.Len(t, v[0].Data, 512)
	assert.Equal(t, byte(255), v[0].Data[255])
	assert.Equal(t, byte(0), v[0].Data[256])

	assert.Equal(t, 0xF020, v[1].Addr)
	assert.Equal(t, []byte{255, 254, 253, 252, 251}, v[1].Data)
}

func TestLoop_RunIterationsWithResync(t *testing.T) {
	peer := simpeer.New()
	runner := newRunner(t, peer)
	sink := &captureSink{}

	loop, err := New(runner,
		WithIterations(3),
		WithReportEvery(1),
		WithResync(true),
		WithTelemetry(sink, "bench", 5),
		WithLogger(logger.NewNop()),
	)
	require.NoError(t, err)

	res, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Passes)
	assert.Equal(t, int64(3*2*(512+5)), res.Bytes)
	assert.Zero(t, res.RegisterErrors)
	assert.Equal(t, uint64(3), runner.Metrics().ResyncCount.Load())

	// first byte carries the last pass counter
	assert.Equal(t, byte(3), peer.Memory(simpeer.TestReg1Addr)[0])
	assert.Equal(t, byte(4), peer.Memory(simpeer.TestReg2Addr)[0])

	require.Len(t, sink.points, 3)
	last := sink.points[2]
	assert.Equal(t, "bench", last.Session)
	assert.Equal(t, 5, last.Run)
	assert.InDelta(t, 3, last.Fields["passes"], 0)
	assert.InDelta(t, 3*2*(512+5), last.Fields["bytes"], 0)
	assert.Contains(t, last.Fields, "status_polls")
	assert.Contains(t, last.Fields, "resyncs")
}

func TestLoop_StopsOnIntegrityFault(t *testing.T) {
	runner := newRunner(t, &corruptingBus{peer: simpeer.New()})

	loop, err := New(runner, WithIterations(10), WithLogger(logger.NewNop()))
	require.NoError(t, err)

	res, err := loop.Run(context.Background())
	require.ErrorIs(t, err, spimem.ErrDataIntegrity)
	assert.Zero(t, res.Passes)
	assert.Equal(t, int64(512+5), res.Bytes, "only the writes completed")
}

func TestLoop_CountsRegisterErrors(t *testing.T) {
	runner := newRunner(t, simpeer.New())

	loop, err := New(runner,
		WithIterations(2),
		WithVectors(Vector{Addr: 0x2000, Data: []byte{1, 2}}),
		WithLogger(logger.NewNop()),
	)
	require.NoError(t, err)

	res, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Passes)
	assert.Equal(t, 4, res.RegisterErrors)
}

func TestLoop_ContextCanceled(t *testing.T) {
	runner := newRunner(t, simpeer.New())
	loop, err := New(runner, WithLogger(logger.NewNop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := loop.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Passes)
}

func TestLoop_RunsUntilCanceled(t *testing.T) {
	runner := newRunner(t, simpeer.New())
	loop, err := New(runner, WithReportEvery(10), WithLogger(logger.NewNop()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := loop.Run(ctx)
	require.NoError(t, err)
	assert.Positive(t, res.Passes)
	assert.Positive(t, res.KBps())
}

func TestNew_InvalidOptions(t *testing.T) {
	runner := newRunner(t, simpeer.New())

	tests := []struct {
		name string
		opt  Option
	}{
		{"negative iterations", WithIterations(-1)},
		{"zero report interval", WithReportEvery(0)},
		{"no vectors", WithVectors()},
		{"empty vector", WithVectors(Vector{Addr: 0x1000})},
		{"nil logger", WithLogger(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(runner, tt.opt)
			assert.Error(t, err)
		})
	}

	_, err := New(nil)
	assert.Error(t, err)
}

func TestResult_KBps(t *testing.T) {
	assert.Zero(t, Result{Bytes: 100}.KBps())
	assert.InDelta(t, 250.0, Result{Bytes: 250_000, Elapsed: time.Second}.KBps(), 1e-9)
}
