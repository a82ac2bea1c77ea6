//go:build !linux

package spidev

// Device is an open spidev character device. It cannot be opened on this platform.
type Device struct{}

// Open returns ErrUnsupported after validating opts.
func Open(path string, opts ...Option) (*Device, error) {
	if _, err := NewConfig(opts...); err != nil {
		return nil, err
	}

	return nil, ErrUnsupported
}

// Exchange returns ErrUnsupported.
func (d *Device) Exchange(tx []byte) ([]byte, error) {
	return nil, ErrUnsupported
}

// Close is a no-op.
func (d *Device) Close() error {
	return nil
}
