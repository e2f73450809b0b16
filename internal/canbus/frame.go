// internal/canbus/frame.go
package canbus

import (
	"errors"
	"fmt"
)

// Frame is a classical CAN data frame as the driver sees it.
// The positioner protocol uses extended (29-bit) identifiers only.
type Frame struct {
	ID       uint32 // 11-bit (std) or 29-bit (ext)
	Extended bool
	Data     []byte // 0..8 bytes
}

// Identifier limits.
const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF
)

var (
	ErrInvalidID  = errors.New("canbus: invalid identifier")
	ErrInvalidLen = errors.New("canbus: invalid data length")
)

// Validate returns an error if the frame cannot go on the wire.
func (f Frame) Validate() error {
	if len(f.Data) > 8 {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > maxExtID {
			return ErrInvalidID
		}
	} else if f.ID > maxStdID {
		return ErrInvalidID
	}
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("id=%08X ext=%t data=% X", f.ID, f.Extended, f.Data)
}
