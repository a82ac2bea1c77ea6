// Package bench runs the write/read/verify soak loop against a peer and reports
// throughput.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-spimem/logger"
	"github.com/arloliu/go-spimem/spimem"
	"github.com/arloliu/go-spimem/telemetry"
)

// DefaultReportEvery is the number of passes between throughput reports.
const DefaultReportEvery = 100

// Runner is the part of spimem.Runner the loop drives.
type Runner interface {
	Write(addr int, data []byte) (bool, error)
	ReadVerify(addr int, expected []byte) ([]byte, bool, error)
	Unsync() error
	Resync(maxPeerBufferBytes int) (spimem.StatusFlags, error)
	Metrics() *spimem.RunnerMetrics
}

// Vector is one test buffer written to and read back from Addr every pass.
type Vector struct {
	Addr int
	Data []byte
}

// DefaultVectors returns a full 512-byte buffer at 0x1000 and a 5-byte buffer at 0xF020.
func DefaultVectors() []Vector {
	v1 := make([]byte, 512)
	for i := range v1 {
		v1[i] = byte(i)
	}

	return []Vector{
		{Addr: 0x1000, Data: v1},
		{Addr: 0xF020, Data: []byte{255, 254, 253, 252, 251}},
	}
}

// Result summarizes a run.
type Result struct {
	Passes         int
	Bytes          int64
	Elapsed        time.Duration
	RegisterErrors int
}

// KBps returns the throughput in kilobytes per second.
func (r Result) KBps() float64 {
	if r.Elapsed <= 0 {
		return 0
	}

	return float64(r.Bytes) / 1000 / r.Elapsed.Seconds()
}

// Loop is a configured soak run.
type Loop struct {
	runner      Runner
	vectors     []Vector
	iterations  int
	reportEvery int
	resync      bool
	session     string
	run         int
	sink        telemetry.Sink
	logger      logger.Logger
	now         func() time.Time
}

// Option configures a Loop.
type Option func(*Loop) error

// WithVectors replaces DefaultVectors.
func WithVectors(vectors ...Vector) Option {
	return func(l *Loop) error {
		if len(vectors) == 0 {
			return errors.New("bench: at least one vector is required")
		}
		l.vectors = make([]Vector, len(vectors))
		for i, v := range vectors {
			if len(v.Data) == 0 {
				return fmt.Errorf("bench: vector %d is empty", i)
			}
			l.vectors[i] = Vector{Addr: v.Addr, Data: append([]byte(nil), v.Data...)}
		}

		return nil
	}
}

// WithIterations stops the loop after n passes. Zero runs until the context is done.
func WithIterations(n int) Option {
	return func(l *Loop) error {
		if n < 0 {
			return fmt.Errorf("bench: iterations %d must not be negative", n)
		}
		l.iterations = n

		return nil
	}
}

// WithReportEvery sets the number of passes between throughput reports.
func WithReportEvery(n int) Option {
	return func(l *Loop) error {
		if n <= 0 {
			return fmt.Errorf("bench: report interval %d must be positive", n)
		}
		l.reportEvery = n

		return nil
	}
}

// WithResync desynchronizes and resynchronizes the peer at the start of every pass.
func WithResync(enabled bool) Option {
	return func(l *Loop) error {
		l.resync = enabled
		return nil
	}
}

// WithTelemetry records a point for every report to sink, tagged with session and run.
func WithTelemetry(sink telemetry.Sink, session string, run int) Option {
	return func(l *Loop) error {
		l.sink = sink
		l.session = session
		l.run = run

		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) error {
		if lg == nil {
			return errors.New("bench: logger must not be nil")
		}
		l.logger = lg

		return nil
	}
}

// New creates a Loop driving runner.
func New(runner Runner, opts ...Option) (*Loop, error) {
	if runner == nil {
		return nil, errors.New("bench: runner is nil")
	}

	l := &Loop{
		runner:      runner,
		vectors:     DefaultVectors(),
		reportEvery: DefaultReportEvery,
		logger:      logger.GetLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Run executes passes until the iteration count is reached or ctx is done. Every
// pass optionally resyncs the peer, stamps the first byte of each vector with the
// pass counter, writes every vector and reads each one back with verification.
//
// A data-integrity fault or a bus error stops the run and is returned. Register
// errors are counted and the run continues. A done context is a normal stop.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	var res Result
	start := l.now()

	for pass := 1; l.iterations == 0 || pass <= l.iterations; pass++ {
		if ctx.Err() != nil {
			break
		}

		n, regErrs, err := l.pass(pass)
		res.Bytes += n
		res.RegisterErrors += regErrs
		if err != nil {
			res.Elapsed = l.now().Sub(start)
			l.logger.Error("bench: pass failed", "pass", pass, "error", err)
			return res, fmt.Errorf("bench: pass %d: %w", pass, err)
		}
		res.Passes = pass

		if pass%l.reportEvery == 0 {
			res.Elapsed = l.now().Sub(start)
			l.report(ctx, res)
		}
	}
	res.Elapsed = l.now().Sub(start)

	return res, nil
}

func (l *Loop) pass(pass int) (int64, int, error) {
	if l.resync {
		if err := l.runner.Unsync(); err != nil {
			return 0, 0, err
		}
		if _, err := l.runner.Resync(0); err != nil {
			return 0, 0, err
		}
	}

	var moved int64
	regErrs := 0
	for i := range l.vectors {
		v := &l.vectors[i]
		v.Data[0] = byte(pass + i)

		regErr, err := l.runner.Write(v.Addr, v.Data)
		if err != nil {
			return moved, regErrs, err
		}
		if regErr {
			regErrs++
			l.logger.Warn("bench: register error on write", "pass", pass, "addr", v.Addr)
		}
		moved += int64(len(v.Data))
	}

	for _, v := range l.vectors {
		_, regErr, err := l.runner.ReadVerify(v.Addr, v.Data)
		if err != nil {
			return moved, regErrs, err
		}
		if regErr {
			regErrs++
			l.logger.Warn("bench: register error on read", "pass", pass, "addr", v.Addr)
		}
		moved += int64(len(v.Data))
	}

	return moved, regErrs, nil
}

func (l *Loop) report(ctx context.Context, res Result) {
	l.logger.Info("bench: throughput",
		"passes", res.Passes,
		"mbytes", float64(res.Bytes)/1e6,
		"elapsed", res.Elapsed.Round(time.Millisecond).String(),
		"kbps", res.KBps(),
		"registerErrors", res.RegisterErrors,
	)

	if l.sink == nil {
		return
	}

	fields := l.runner.Metrics().Snapshot()
	fields["passes"] = float64(res.Passes)
	fields["bytes"] = float64(res.Bytes)
	fields["elapsed_s"] = res.Elapsed.Seconds()
	fields["kbps"] = res.KBps()
	fields["bench_register_errors"] = float64(res.RegisterErrors)

	if err := l.sink.Record(ctx, telemetry.NewPoint(l.session, l.run, fields)); err != nil {
		l.logger.Warn("bench: telemetry record failed", "error", err)
	}
}
