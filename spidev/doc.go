// Package spidev implements spimem.Bus on top of the Linux spidev character device.
//
// Every Exchange is a single full-duplex SPI_IOC_MESSAGE transfer with chip select
// held for the whole frame:
//
//	dev, err := spidev.Open("/dev/spidev0.0", spidev.WithSpeed(1_800_000))
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
//
//	runner, err := spimem.NewRunner(dev, nil)
//
// On platforms other than Linux Open returns ErrUnsupported.
package spidev
