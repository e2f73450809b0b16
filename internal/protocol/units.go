// internal/protocol/units.go
package protocol

import (
	"bufio"
	"hash/crc32"
	"io"
	"math"
	"os"
)

// Wire resolutions. Protocol-locked.
const (
	// PositionResolution is the number of counts in one full rotation.
	PositionResolution = 1 << 30

	// TimeResolution is the number of timestamp steps per second.
	TimeResolution = 2000
)

// AngleToPosition converts degrees to wire position counts.
// Rounding makes this lossy; the error is bounded by half a count.
func AngleToPosition(deg float64) int32 {
	return int32(math.Round(deg / 360 * PositionResolution))
}

// PositionToAngle converts wire position counts to degrees.
func PositionToAngle(counts int32) float64 {
	return float64(counts) / PositionResolution * 360
}

// SecondsToTimestamp converts seconds to wire timestamp steps.
func SecondsToTimestamp(seconds float64) uint32 {
	return uint32(math.Round(seconds * TimeResolution))
}

// TimestampToSeconds converts wire timestamp steps to seconds.
func TimestampToSeconds(ts uint32) float64 {
	return float64(ts) / TimeResolution
}

// FileCRC32 computes the IEEE CRC32 of a file, reading incrementally so
// large firmware images do not land in memory at once.
func FileCRC32(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, bufio.NewReader(f)); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}
