package spimem

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-spimem/logger"
)

// Default protocol parameters.
const (
	// DefaultPollLimit bounds every ready/complete poll loop, about one second at
	// the default poll interval.
	DefaultPollLimit    = 1000
	DefaultPollInterval = time.Millisecond

	// DefaultSettleTime is the wait between the neutral run and the status read in Resync.
	DefaultSettleTime = 10 * time.Millisecond

	// DefaultPeerBufferSize is the peer's data buffer capacity in bytes.
	DefaultPeerBufferSize = 512

	// Unbounded disables a retry ceiling. It is the default for both phases.
	Unbounded = 0
)

// Limits accepted by the options.
const (
	MaxPollLimit    = 100000
	MaxPollInterval = time.Second
	MaxSettleTime   = 10 * time.Second
)

// Config holds the configuration of a Runner. Create it with NewConfig.
type Config struct {
	name           string
	pollLimit      int
	pollInterval   time.Duration
	settleTime     time.Duration
	peerBufferSize int

	// initRetryLimit and dataRetryLimit cap transient-fault retries; Unbounded
	// keeps retrying until the peer stops reporting overrun/underrun.
	initRetryLimit int
	dataRetryLimit int

	sleep          func(time.Duration)
	statusObserver StatusObserver

	logger logger.Logger
}

// NewConfig creates a Config with defaults, then applies opts in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		pollLimit:      DefaultPollLimit,
		pollInterval:   DefaultPollInterval,
		settleTime:     DefaultSettleTime,
		peerBufferSize: DefaultPeerBufferSize,
		initRetryLimit: Unbounded,
		dataRetryLimit: Unbounded,
		sleep:          time.Sleep,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Name returns the name attached to log records, usually the device path.
func (cfg *Config) Name() string { return cfg.name }

// PollLimit returns the maximum number of status polls per wait loop.
func (cfg *Config) PollLimit() int { return cfg.pollLimit }

// PollInterval returns the sleep between status polls.
func (cfg *Config) PollInterval() time.Duration { return cfg.pollInterval }

// SettleTime returns the wait used by Resync before clearing status.
func (cfg *Config) SettleTime() time.Duration { return cfg.settleTime }

// PeerBufferSize returns the assumed peer buffer capacity.
func (cfg *Config) PeerBufferSize() int { return cfg.peerBufferSize }

// InitRetryLimit returns the init-phase retry ceiling, Unbounded when none.
func (cfg *Config) InitRetryLimit() int { return cfg.initRetryLimit }

// DataRetryLimit returns the data-phase retry ceiling, Unbounded when none.
func (cfg *Config) DataRetryLimit() int { return cfg.dataRetryLimit }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithName attaches a name (e.g. "/dev/spidev0.0") to every log record of the runner.
func WithName(name string) Option {
	return optFunc(func(cfg *Config) error {
		cfg.name = name
		return nil
	})
}

// WithPollLimit sets the maximum number of status polls in one ready/complete wait.
func WithPollLimit(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 1 || n > MaxPollLimit {
			return fmt.Errorf("spimem: poll limit %d out of range [1, %d]", n, MaxPollLimit)
		}
		cfg.pollLimit = n

		return nil
	})
}

// WithPollInterval sets the sleep between two status polls. Zero polls back to back.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxPollInterval {
			return fmt.Errorf("spimem: poll interval %v out of range [0, %v]", d, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithSettleTime sets the wait between the neutral run and the status read in Resync.
func WithSettleTime(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxSettleTime {
			return fmt.Errorf("spimem: settle time %v out of range [0, %v]", d, MaxSettleTime)
		}
		cfg.settleTime = d

		return nil
	})
}

// WithPeerBufferSize sets the peer buffer capacity used to size the resync run.
func WithPeerBufferSize(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < MinLength || n > MaxLength {
			return fmt.Errorf("spimem: peer buffer size %d out of range [%d, %d]", n, MinLength, MaxLength)
		}
		cfg.peerBufferSize = n

		return nil
	})
}

// WithInitRetryLimit caps the init-phase retries caused by transient faults.
// Unbounded (the default) retries for as long as the peer reports them; a
// permanently faulty link then never returns. A positive limit makes the
// transaction fail with ErrRetryExhausted instead.
func WithInitRetryLimit(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 {
			return fmt.Errorf("spimem: init retry limit %d must not be negative", n)
		}
		cfg.initRetryLimit = n

		return nil
	})
}

// WithDataRetryLimit caps the data-phase retries caused by transient faults.
// Data-phase retries always stop once a register error has been observed.
func WithDataRetryLimit(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 {
			return fmt.Errorf("spimem: data retry limit %d must not be negative", n)
		}
		cfg.dataRetryLimit = n

		return nil
	})
}

// WithSleepFunc replaces time.Sleep in poll loops and Resync. Tests pass a no-op.
func WithSleepFunc(fn func(time.Duration)) Option {
	return optFunc(func(cfg *Config) error {
		if fn == nil {
			return errors.New("spimem: sleep func must not be nil")
		}
		cfg.sleep = fn

		return nil
	})
}

// WithStatusObserver registers a callback for status bytes carrying fault flags.
func WithStatusObserver(fn StatusObserver) Option {
	return optFunc(func(cfg *Config) error {
		cfg.statusObserver = fn
		return nil
	})
}

// WithLogger sets the logger of the runner.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("spimem: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
