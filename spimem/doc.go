// Package spimem implements the host side of a half-duplex memory-access protocol
// carried over a synchronous full-duplex serial link (SPI).
//
// The remote peer, typically a microcontroller, exposes a 16-bit address space of
// registers and buffers. The host reads and writes that space with a two-phase
// handshake and polls a one-byte status register in between.
//
// # Wire Format
//
// Every frame starts with an opcode byte whose upper nibble is 0x5 and a sync byte
// whose upper nibble is 0xA:
//
//   - WRITE_INIT  (0x50): 0x50, 0xA0|len[11:8], len[7:0], addr[15:8], addr[7:0]
//   - READ_INIT   (0x51): 0x51, 0xA0|len[11:8], len[7:0], addr[15:8], addr[7:0]
//   - DATA_ACCESS (0x52): 0x52, 0xA0, data... (zeros when reading)
//   - STATUS_READ (0x53): 0x53, 0xA0, 0x00; reply byte 2 is the status byte
//
// Because the link is full duplex, each exchange returns as many bytes as were sent.
// The read payload follows the two-byte frame header in the reply.
//
// # Transactions
//
// A write sends WRITE_INIT, then DATA_ACCESS with the payload, then polls status until
// the peer reports write-complete. A read sends READ_INIT, polls until read-data-ready,
// then clocks the payload out with DATA_ACCESS. The peer holds state between the phases,
// so a [Runner] serializes whole transactions.
//
// Receive overruns and transmit underruns are transient: the current phase is retried.
// Register access errors (out-of-range or misaligned addresses) are accumulated in a
// sticky flag returned to the caller as a value. A read verification mismatch is a
// [DataIntegrityError].
//
// # Desynchronization
//
// The peer parser can lose track of frame boundaries. [Runner.Resync] clocks a run of
// neutral bytes longer than the peer buffer and clears the latched status. It restores
// framing only; a write already latched by the peer is not undone.
package spimem
