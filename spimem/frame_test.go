package spimem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteInitFrame_Scenario(t *testing.T) {
	frame, err := WriteInitFrame(0x1234, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x50, 0xA0, 0x02, 0x12, 0x34}, frame)
}

func TestReadInitFrame_LengthHighNibble(t *testing.T) {
	frame, err := ReadInitFrame(0xF020, 0x0FFF)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x51, 0xAF, 0xFF, 0xF0, 0x20}, frame)

	frame, err = ReadInitFrame(0x1000, 512)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x51, 0xA2, 0x00, 0x10, 0x00}, frame)
}

func TestInitFrames_AllAddresses(t *testing.T) {
	for addr := 0; addr <= MaxAddress; addr++ {
		for _, length := range []int{1, 0xFF, 0x100, 0x801, MaxLength} {
			want := []byte{0, 0xA0 | byte(length>>8), byte(length & 0xFF), byte(addr >> 8), byte(addr & 0xFF)}

			w, err := WriteInitFrame(addr, length)
			require.NoError(t, err)
			want[0] = 0x50
			require.Equal(t, want, w)

			r, err := ReadInitFrame(addr, length)
			require.NoError(t, err)
			want[0] = 0x51
			require.Equal(t, want, r)
		}
	}
}

func TestInitFrames_AllLengths(t *testing.T) {
	for length := MinLength; length <= MaxLength; length++ {
		for _, addr := range []int{0, 0x1234, MaxAddress} {
			w, err := WriteInitFrame(addr, length)
			require.NoError(t, err)
			require.Equal(t, []byte{0x50, 0xA0 | byte(length>>8), byte(length & 0xFF), byte(addr >> 8), byte(addr & 0xFF)}, w)

			r, err := ReadInitFrame(addr, length)
			require.NoError(t, err)
			require.Equal(t, byte(0x51), r[0])
			require.Equal(t, w[1:], r[1:])
		}
	}
}

func TestInitFrames_InvalidLength(t *testing.T) {
	for _, length := range []int{-1, 0, MaxLength + 1, 1 << 16} {
		_, err := WriteInitFrame(0, length)
		require.ErrorIs(t, err, ErrInvalidLength, "length %d", length)

		_, err = ReadInitFrame(0, length)
		require.ErrorIs(t, err, ErrInvalidLength, "length %d", length)
	}
}

func TestInitFrames_InvalidAddress(t *testing.T) {
	for _, addr := range []int{-1, MaxAddress + 1, 0x12345} {
		_, err := WriteInitFrame(addr, 1)
		require.ErrorIs(t, err, ErrInvalidAddress, "addr %d", addr)

		_, err = ReadInitFrame(addr, 1)
		require.ErrorIs(t, err, ErrInvalidAddress, "addr %d", addr)
	}
}

func TestDataAccessFrame(t *testing.T) {
	payload := []byte{0xFF, 0xFE}
	frame := DataAccessFrame(payload)
	assert.Equal(t, []byte{0x52, 0xA0, 0xFF, 0xFE}, frame)

	payload[0] = 0x00
	assert.Equal(t, byte(0xFF), frame[2], "frame must not alias the payload")

	assert.Equal(t, []byte{0x52, 0xA0}, DataAccessFrame(nil))
}

func TestReadDataFrame(t *testing.T) {
	assert.Equal(t, []byte{0x52, 0xA0, 0x00, 0x00, 0x00}, ReadDataFrame(3))
}

func TestStatusQueryFrame(t *testing.T) {
	assert.Equal(t, []byte{0x53, 0xA0, 0x00}, StatusQueryFrame())
}

func TestOpcode_String(t *testing.T) {
	assert.Equal(t, "WRITE_INIT", OpWriteInit.String())
	assert.Equal(t, "READ_INIT", OpReadInit.String())
	assert.Equal(t, "DATA_ACCESS", OpDataAccess.String())
	assert.Equal(t, "STATUS_READ", OpStatusRead.String())
	assert.Equal(t, "UNKNOWN", Opcode(0x00).String())
}
