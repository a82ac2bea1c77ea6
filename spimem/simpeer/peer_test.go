package simpeer

import (
	"testing"

	"github.com/arloliu/go-spimem/spimem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(t *testing.T, p *Peer, tx []byte) []byte {
	t.Helper()

	rx, err := p.Exchange(tx)
	require.NoError(t, err)
	require.Len(t, rx, len(tx))

	return rx
}

func statusOf(t *testing.T, p *Peer) byte {
	t.Helper()

	return exchange(t, p, spimem.StatusQueryFrame())[2]
}

func TestPeer_StatusClearOnRead(t *testing.T) {
	p := New()
	p.InjectRxOverrun(1)

	assert.Equal(t, spimem.RxOverrunMask, statusOf(t, p))
	assert.Equal(t, byte(0), statusOf(t, p))
	assert.True(t, p.Synced())
}

func TestPeer_OpcodeLowBitsIgnored(t *testing.T) {
	p := New()

	// 0x5C decodes as WRITE_INIT
	exchange(t, p, []byte{0x5C, 0xA0, 0x02, 0x10, 0x00})
	exchange(t, p, []byte{0x52, 0xA0, 0x33, 0x44})

	assert.Equal(t, spimem.WriteCompleteMask, statusOf(t, p))
	assert.Equal(t, []byte{0x33, 0x44}, p.Memory(TestReg1Addr)[:2])
}

func TestPeer_BadSyncDropsFrame(t *testing.T) {
	p := New()

	exchange(t, p, []byte{0x50, 0xB0, 0x02, 0x10, 0x00})
	assert.Equal(t, "ctrl", p.State())

	exchange(t, p, []byte{0x52, 0xA0, 0x33, 0x44})
	assert.Equal(t, []byte{0, 0}, p.Memory(TestReg1Addr)[:2], "data without a valid init is not written")
}

func TestPeer_InvalidDataLengthIgnored(t *testing.T) {
	tests := []struct {
		name   string
		hi, lo byte
	}{
		{"zero", 0xA0, 0x00},
		{"above buffer", 0xA2, 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			exchange(t, p, []byte{0x51, tt.hi, tt.lo, 0x10, 0x00})
			assert.Equal(t, "ctrl", p.State())
			assert.Equal(t, byte(0), statusOf(t, p))
		})
	}
}

func TestPeer_ReadDataPipeline(t *testing.T) {
	p := New()
	require.NoError(t, p.SetMemory(TestReg2Addr, []byte{0xDE, 0xAD, 0xBE, 0xEF}))

	exchange(t, p, []byte{0x51, 0xA0, 0x04, 0xF0, 0x20})
	assert.Equal(t, spimem.ReadDataReadyMask, statusOf(t, p))

	rx := exchange(t, p, spimem.ReadDataFrame(4))
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, rx[2:])
	assert.True(t, p.Synced())
}

func TestPeer_UnmappedAddress(t *testing.T) {
	p := New()

	exchange(t, p, []byte{0x51, 0xA0, 0x04, 0x10, 0x01})
	assert.Equal(t, spimem.ReadDataReadyMask|spimem.ReadRegErrorMask, statusOf(t, p))

	exchange(t, p, []byte{0x50, 0xA0, 0x01, 0x20, 0x00})
	exchange(t, p, []byte{0x52, 0xA0, 0x01})
	assert.Equal(t, spimem.WriteCompleteMask|spimem.WriteRegErrorMask, statusOf(t, p))
}

func TestPeer_ServiceDelay(t *testing.T) {
	p := New(WithServiceDelay(2))

	exchange(t, p, []byte{0x51, 0xA0, 0x01, 0x10, 0x00})
	assert.Equal(t, byte(0), statusOf(t, p))
	assert.Equal(t, byte(0), statusOf(t, p))
	// serviced after the second status exchange
	assert.Equal(t, spimem.ReadDataReadyMask, statusOf(t, p))

	p.SetServiceDelay(0)
	exchange(t, p, []byte{0x51, 0xA0, 0x01, 0x10, 0x00})
	assert.Equal(t, spimem.ReadDataReadyMask, statusOf(t, p))
}

func TestPeer_NeutralBytesFinishStuckRead(t *testing.T) {
	p := New()

	exchange(t, p, []byte{0x51, 0xA0, 0x0A, 0x10, 0x00})
	exchange(t, p, []byte{0x52, 0xA0, 0x00, 0x00})
	require.False(t, p.Synced())
	assert.Equal(t, "read-data", p.State())

	exchange(t, p, make([]byte, DefaultBufferSize+spimem.InitFrameLen))
	assert.True(t, p.Synced())
}

func TestPeer_SetMemory(t *testing.T) {
	p := New(WithRegions(Region{Addr: 0x4000, Size: 2}))

	require.NoError(t, p.SetMemory(0x4000, []byte{1, 2}))
	assert.Equal(t, []byte{1, 2}, p.Memory(0x4000))
	assert.Error(t, p.SetMemory(0x4000, []byte{1, 2, 3}))
	assert.Error(t, p.SetMemory(TestReg1Addr, []byte{1}))
	assert.Nil(t, p.Memory(TestReg1Addr))

	m := p.Memory(0x4000)
	m[0] = 0xFF
	assert.Equal(t, byte(1), p.Memory(0x4000)[0], "Memory returns a copy")
}

func TestPeer_Recording(t *testing.T) {
	p := New()
	exchange(t, p, spimem.StatusQueryFrame())
	assert.Empty(t, p.Frames())
	assert.Equal(t, 1, p.Exchanges())

	p = New(WithRecording())
	exchange(t, p, spimem.StatusQueryFrame())
	assert.Equal(t, [][]byte{spimem.StatusQueryFrame()}, p.Frames())
}
