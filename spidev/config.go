package spidev

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-spimem/logger"
	"github.com/arloliu/go-spimem/spimem"
)

var _ spimem.Bus = (*Device)(nil)

// Mode is the SPI clock polarity and phase.
type Mode uint8

const (
	Mode0 Mode = iota // CPOL=0, CPHA=0
	Mode1             // CPOL=0, CPHA=1
	Mode2             // CPOL=1, CPHA=0
	Mode3             // CPOL=1, CPHA=1
)

const (
	// DefaultSpeedHz is the highest clock the peer firmware handles without over- or
	// underruns.
	DefaultSpeedHz uint32 = 1_800_000
	// MaxSpeedHz bounds WithSpeed.
	MaxSpeedHz uint32 = 125_000_000
	// DefaultBitsPerWord is the word size used by the memory-access protocol.
	DefaultBitsPerWord uint8 = 8
)

var (
	// ErrUnsupported is returned by Open on platforms without spidev.
	ErrUnsupported = errors.New("spidev: not supported on this platform")
	// ErrClosed is returned by Exchange after Close.
	ErrClosed = errors.New("spidev: device closed")
)

// Config holds the transfer parameters of a Device.
type Config struct {
	speedHz     uint32
	mode        Mode
	bitsPerWord uint8
	logger      logger.Logger
}

// Option configures a Device.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(c *Config) error { return f(c) }

// NewConfig creates a Config with defaults overridden by opts.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		speedHz:     DefaultSpeedHz,
		mode:        Mode0,
		bitsPerWord: DefaultBitsPerWord,
		logger:      logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// SpeedHz returns the clock rate.
func (c *Config) SpeedHz() uint32 { return c.speedHz }

// Mode returns the SPI mode.
func (c *Config) Mode() Mode { return c.mode }

// BitsPerWord returns the word size.
func (c *Config) BitsPerWord() uint8 { return c.bitsPerWord }

// WithSpeed sets the clock rate in Hz, in the range [1, MaxSpeedHz].
func WithSpeed(hz uint32) Option {
	return optFunc(func(c *Config) error {
		if hz == 0 || hz > MaxSpeedHz {
			return fmt.Errorf("spidev: speed %d Hz out of range [1, %d]", hz, MaxSpeedHz)
		}
		c.speedHz = hz

		return nil
	})
}

// WithMode sets the SPI mode.
func WithMode(m Mode) Option {
	return optFunc(func(c *Config) error {
		if m > Mode3 {
			return fmt.Errorf("spidev: invalid mode %d", m)
		}
		c.mode = m

		return nil
	})
}

// WithBitsPerWord sets the word size, in the range [1, 32].
func WithBitsPerWord(n uint8) Option {
	return optFunc(func(c *Config) error {
		if n == 0 || n > 32 {
			return fmt.Errorf("spidev: bits per word %d out of range [1, 32]", n)
		}
		c.bitsPerWord = n

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *Config) error {
		if l == nil {
			return errors.New("spidev: logger must not be nil")
		}
		c.logger = l

		return nil
	})
}
