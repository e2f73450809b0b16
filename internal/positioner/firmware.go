// internal/positioner/firmware.go
package positioner

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/fpslab/positioner/internal/protocol"
)

// firmwareChunkSize is the payload of one FIRMWARE_DATA frame.
const firmwareChunkSize = 8

// UpgradeFirmware streams a firmware image to the device: an 8-byte
// size+CRC32 header, then the file in 8-byte chunks, one transaction per
// chunk, until the cumulative byte count equals the announced size.
//
// There is no resume: a chunk the device misses desyncs its own size
// accounting and the transfer ends badly. The final integrity check is
// the size/CRC pair announced up front.
func (p *Positioner) UpgradeFirmware(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("positioner: firmware: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return errors.New("positioner: firmware: empty image")
	}
	if size > int64(^uint32(0)) {
		return fmt.Errorf("positioner: firmware: image size %d exceeds 32 bits", size)
	}

	checksum, err := protocol.FileCRC32(path)
	if err != nil {
		return fmt.Errorf("positioner: firmware: %w", err)
	}

	header := packU32Pair(uint32(size), checksum)
	if _, _, err := p.transact(protocol.CmdSendNewFirmware, header); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("positioner: firmware: %w", err)
	}
	defer f.Close()

	p.log.Info("firmware upgrade started",
		zap.Int64("size", size),
		zap.Uint32("crc32", checksum))

	var sent int64

	for sent < size {
		n := firmwareChunkSize
		if remaining := size - sent; remaining < firmwareChunkSize {
			n = int(remaining)
		}
		// The bus may hold the frame past Send, so every chunk gets its
		// own slice.
		chunk := make([]byte, n)
		if _, err := io.ReadFull(f, chunk); err != nil {
			return fmt.Errorf("positioner: firmware: read at %d: %w", sent, err)
		}

		// A missed chunk ack is logged but does not abort: the device
		// keeps its own byte count and the header announced the total.
		if _, _, err := p.transact(protocol.CmdFirmwareData, chunk); err != nil {
			if !errors.Is(err, ErrNoReply) {
				return err
			}
			p.log.Warn("firmware chunk unacknowledged",
				zap.Int64("offset", sent),
				zap.Error(err))
		}
		sent += int64(n)
	}

	if sent != size {
		return fmt.Errorf("positioner: firmware: sent %d of %d bytes", sent, size)
	}

	p.log.Info("firmware upgrade done")
	return nil
}
