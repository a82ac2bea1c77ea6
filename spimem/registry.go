package spimem

import (
	"errors"
	"fmt"
	"io"

	"github.com/puzpuzpuz/xsync/v3"
)

// OpenFunc opens the bus identified by key, e.g. a spidev path.
type OpenFunc func(key string) (Bus, error)

// Registry hands out one Runner per bus key so that every caller of a device shares
// the same transaction lock.
type Registry struct {
	open    OpenFunc
	opts    []Option
	runners *xsync.MapOf[string, *Runner]
}

// NewRegistry creates a Registry opening buses with open. opts are applied to every
// runner, followed by WithName(key).
func NewRegistry(open OpenFunc, opts ...Option) (*Registry, error) {
	if open == nil {
		return nil, errors.New("spimem: open func is nil")
	}

	return &Registry{
		open:    open,
		opts:    opts,
		runners: xsync.NewMapOf[string, *Runner](),
	}, nil
}

// Get returns the Runner for key, opening the bus on first use.
func (reg *Registry) Get(key string) (*Runner, error) {
	if r, ok := reg.runners.Load(key); ok {
		return r, nil
	}

	var openErr error
	r, _ := reg.runners.Compute(key, func(old *Runner, loaded bool) (*Runner, bool) {
		if loaded {
			return old, false
		}

		bus, err := reg.open(key)
		if err != nil {
			openErr = fmt.Errorf("spimem: open %q: %w", key, err)
			return nil, true
		}
		if bus == nil {
			openErr = fmt.Errorf("spimem: open %q: %w", key, ErrNilBus)
			return nil, true
		}

		cfg, err := NewConfig(append(append([]Option{}, reg.opts...), WithName(key))...)
		if err != nil {
			openErr = err
			closeBus(bus)
			return nil, true
		}

		runner, err := NewRunner(bus, cfg)
		if err != nil {
			openErr = err
			closeBus(bus)
			return nil, true
		}

		return runner, false
	})
	if openErr != nil {
		return nil, openErr
	}

	return r, nil
}

// Len returns the number of open runners.
func (reg *Registry) Len() int {
	return reg.runners.Size()
}

// Close removes the runner of key and closes its bus if the bus is an io.Closer.
// The runner lock is taken first so an in-flight transaction finishes.
func (reg *Registry) Close(key string) error {
	r, ok := reg.runners.LoadAndDelete(key)
	if !ok {
		return nil
	}

	return r.closeBus()
}

// CloseAll closes every runner and returns the joined close errors.
func (reg *Registry) CloseAll() error {
	var errs []error
	reg.runners.Range(func(key string, _ *Runner) bool {
		if err := reg.Close(key); err != nil {
			errs = append(errs, err)
		}
		return true
	})

	return errors.Join(errs...)
}

func (r *Runner) closeBus() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.bus.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

func closeBus(bus Bus) {
	if c, ok := bus.(io.Closer); ok {
		_ = c.Close()
	}
}
