// internal/protocol/id.go
package protocol

import "fmt"

// Frame identifier layout (29-bit extended id). Protocol-locked.
//
//	bits [28:18]  device address (11 bits)
//	bits [17:10]  opcode (outbound) / spare (inbound)
//	bits [9:0]    zero (outbound) / response code (inbound)
const (
	addressShift = 18
	commandShift = 10

	addressMask = 0x7FF
	opcodeMask  = 0xFF
	commandMask = 0x3FF
)

// Broadcast addresses every positioner on the bus; only GET_ID replies.
const Broadcast uint16 = 0

// MaxAddress is the largest device address the id field can carry.
const MaxAddress uint16 = addressMask

// FrameID packs a device address and a command into an extended frame id.
func FrameID(address uint16, cmd Command) (uint32, error) {
	if address > MaxAddress {
		return 0, fmt.Errorf("protocol: address %d exceeds 11-bit field", address)
	}
	op, err := cmd.Opcode()
	if err != nil {
		return 0, err
	}
	return uint32(address)<<addressShift | uint32(op)<<commandShift, nil
}

// ParseResponseCode extracts the response code from an inbound frame id.
func ParseResponseCode(id uint32) ResponseCode {
	return ResponseCode(id & commandMask)
}

// AddressOf extracts the device address bits from a frame id.
func AddressOf(id uint32) uint16 {
	return uint16(id>>addressShift) & addressMask
}
