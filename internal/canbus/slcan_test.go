// internal/canbus/slcan_test.go
package canbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalFrame_Extended(t *testing.T) {
	f := Frame{
		ID:       (4 << 18) | (8 << 10), // addr 4, opcode 8
		Extended: true,
		Data:     []byte{0x01, 0x02, 0x03, 0x04},
	}

	line, err := marshalFrame(f)
	require.NoError(t, err)
	assert.Equal(t, "T001020004" + "01020304" + "\r", string(line))
}

func TestMarshalFrame_Empty(t *testing.T) {
	f := Frame{ID: 0x1FFFFFFF, Extended: true}

	line, err := marshalFrame(f)
	require.NoError(t, err)
	assert.Equal(t, "T1FFFFFFF0\r", string(line))
}

func TestMarshalFrame_TooLong(t *testing.T) {
	f := Frame{ID: 1, Extended: true, Data: make([]byte, 9)}

	_, err := marshalFrame(f)
	assert.ErrorIs(t, err, ErrInvalidLen)
}

func TestParseLine_RoundTrip(t *testing.T) {
	orig := Frame{
		ID:       (17 << 18) | (3 << 10) | 1,
		Extended: true,
		Data:     []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11, 0x22, 0x33},
	}

	line, err := marshalFrame(orig)
	require.NoError(t, err)

	got, ok := parseLine(string(line[:len(line)-1])) // reader strips CR
	require.True(t, ok)
	assert.Equal(t, orig, got)
}

func TestParseLine_Standard(t *testing.T) {
	got, ok := parseLine("t1238DEADBEEF00112233")
	require.True(t, ok)
	assert.Equal(t, uint32(0x123), got.ID)
	assert.False(t, got.Extended)
	assert.Len(t, got.Data, 8)
}

func TestParseLine_Garbage(t *testing.T) {
	for _, line := range []string{"", "z", "T123", "T00000000X", "t1239AA"} {
		if _, ok := parseLine(line); ok {
			t.Fatalf("parseLine(%q) accepted garbage", line)
		}
	}
}

func TestFrameValidate(t *testing.T) {
	assert.NoError(t, Frame{ID: 0x7FF}.Validate())
	assert.ErrorIs(t, Frame{ID: 0x800}.Validate(), ErrInvalidID)
	assert.NoError(t, Frame{ID: 0x800, Extended: true}.Validate())
	assert.ErrorIs(t, Frame{ID: 0x20000000, Extended: true}.Validate(), ErrInvalidID)
}
