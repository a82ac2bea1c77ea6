//go:build linux

package spidev

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/arloliu/go-spimem/logger"
)

// ioctl requests from linux/spi/spidev.h, generic _IOC layout.
const (
	spiIOCMagic = 'k'

	spiIOCWrMode        = 0x40016B01
	spiIOCWrBitsPerWord = 0x40016B03
	spiIOCWrMaxSpeedHz  = 0x40046B04
)

// spiIOCTransfer mirrors struct spi_ioc_transfer.
type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

// spiIOCMessage returns SPI_IOC_MESSAGE(n).
func spiIOCMessage(n int) uintptr {
	size := uintptr(n) * unsafe.Sizeof(spiIOCTransfer{})
	return 1<<30 | size<<16 | spiIOCMagic<<8
}

// Device is an open spidev character device.
type Device struct {
	mu     sync.Mutex
	path   string
	fd     int
	cfg    *Config
	logger logger.Logger
}

// Open opens path, e.g. "/dev/spidev0.0", and applies the mode, word size and
// clock rate from opts.
func Open(path string, opts ...Option) (*Device, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("spidev: open %s: %w", path, err)
	}

	d := &Device{
		path:   path,
		fd:     fd,
		cfg:    cfg,
		logger: cfg.logger.With("device", path),
	}
	if err := d.setup(); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	d.logger.Debug("spidev: device opened",
		"speedHz", cfg.speedHz,
		"mode", cfg.mode,
		"bitsPerWord", cfg.bitsPerWord,
	)

	return d, nil
}

func (d *Device) setup() error {
	mode := uint8(d.cfg.mode)
	if err := d.ioctl(spiIOCWrMode, unsafe.Pointer(&mode)); err != nil {
		return fmt.Errorf("spidev: set mode %d: %w", mode, err)
	}

	bits := d.cfg.bitsPerWord
	if err := d.ioctl(spiIOCWrBitsPerWord, unsafe.Pointer(&bits)); err != nil {
		return fmt.Errorf("spidev: set bits per word %d: %w", bits, err)
	}

	speed := d.cfg.speedHz
	if err := d.ioctl(spiIOCWrMaxSpeedHz, unsafe.Pointer(&speed)); err != nil {
		return fmt.Errorf("spidev: set speed %d Hz: %w", speed, err)
	}

	return nil
}

// Exchange clocks tx out and returns the bytes clocked in during the same transfer.
func (d *Device) Exchange(tx []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil, ErrClosed
	}

	rx := make([]byte, len(tx))
	if len(tx) == 0 {
		return rx, nil
	}

	xfer := spiIOCTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:      uint32(len(tx)),
		speedHz:     d.cfg.speedHz,
		bitsPerWord: d.cfg.bitsPerWord,
	}
	err := d.ioctl(spiIOCMessage(1), unsafe.Pointer(&xfer))
	runtime.KeepAlive(tx)
	runtime.KeepAlive(rx)
	if err != nil {
		return nil, fmt.Errorf("spidev: transfer %d bytes on %s: %w", len(tx), d.path, err)
	}

	return rx, nil
}

// Close closes the device. Further exchanges return ErrClosed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	d.logger.Debug("spidev: device closed")

	return err
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}

	return nil
}
