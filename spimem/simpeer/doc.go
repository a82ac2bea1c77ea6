// Package simpeer simulates the peer side of the spimem protocol: the byte-level frame
// parser a microcontroller runs in its SPI interrupt handler, the status register it
// latches, and a small register map serviced from its main loop.
//
// A Peer is a spimem.Bus, so a spimem.Runner can drive it directly. The simulator
// reproduces the one-byte transmit pipeline of the hardware (reply byte i reflects
// what the peer loaded after receiving byte i-2), clear-on-read status bits, and the
// parser's loss of sync when a data phase is shorter than announced. Faults can be
// injected to exercise retry and resync paths.
package simpeer
