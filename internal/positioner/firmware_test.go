// internal/positioner/firmware_test.go
package positioner

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpslab/positioner/internal/canbus"
	"github.com/fpslab/positioner/internal/protocol"
)

func writeImage(t *testing.T, payload []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fw.bin")
	require.NoError(t, os.WriteFile(path, payload, 0o644))
	return path
}

func TestUpgradeFirmware_ChunkAccounting(t *testing.T) {
	image := make([]byte, 20)
	for i := range image {
		image[i] = byte(i)
	}
	path := writeImage(t, image)

	okFrame := accepted(nil)
	bus := &fakeBus{fallback: &okFrame}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	require.NoError(t, p.UpgradeFirmware(path))

	// Header plus exactly three data chunks: 8+8+4 bytes.
	require.Len(t, bus.sent, 4)

	header := bus.sent[0]
	assert.Equal(t, protocol.CmdSendNewFirmware, cmdOf(header.ID))
	require.Len(t, header.Data, 8)
	assert.Equal(t, uint32(20), binary.LittleEndian.Uint32(header.Data[0:4]))
	assert.Equal(t, crc32.ChecksumIEEE(image), binary.LittleEndian.Uint32(header.Data[4:8]))

	var streamed []byte
	for i, want := range []int{8, 8, 4} {
		chunk := bus.sent[1+i]
		assert.Equal(t, protocol.CmdFirmwareData, cmdOf(chunk.ID))
		assert.Len(t, chunk.Data, want)
		streamed = append(streamed, chunk.Data...)
	}
	assert.Equal(t, image, streamed)
}

func TestUpgradeFirmware_ExactMultiple(t *testing.T) {
	path := writeImage(t, make([]byte, 16))

	okFrame := accepted(nil)
	bus := &fakeBus{fallback: &okFrame}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	require.NoError(t, p.UpgradeFirmware(path))
	require.Len(t, bus.sent, 3) // header + 2 full chunks
}

func TestUpgradeFirmware_HeaderNoReplyAborts(t *testing.T) {
	path := writeImage(t, make([]byte, 20))

	bus := &fakeBus{} // never replies
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	err := p.UpgradeFirmware(path)
	assert.ErrorIs(t, err, ErrNoReply)
	require.Len(t, bus.sent, 1) // no chunk is streamed
}

func TestUpgradeFirmware_ChunkNoReplyContinues(t *testing.T) {
	path := writeImage(t, make([]byte, 12))

	// Header acked; chunks never acked. The transfer still completes,
	// matching the original driver's byte-count-only accounting.
	bus := &fakeBus{replies: []canbus.Frame{accepted(nil)}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	require.NoError(t, p.UpgradeFirmware(path))
	require.Len(t, bus.sent, 3) // header + 8 + 4
}

func TestUpgradeFirmware_MissingFile(t *testing.T) {
	bus := &fakeBus{}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	err := p.UpgradeFirmware(filepath.Join(t.TempDir(), "absent.bin"))
	assert.Error(t, err)
	assert.Empty(t, bus.sent)
}

func TestUpgradeFirmware_EmptyFile(t *testing.T) {
	path := writeImage(t, nil)

	bus := &fakeBus{}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	assert.Error(t, p.UpgradeFirmware(path))
	assert.Empty(t, bus.sent)
}
