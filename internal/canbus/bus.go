// internal/canbus/bus.go
package canbus

import (
	"errors"
	"time"
)

// Bus is the transport capability the driver consumes.
// Open/enumeration/bus-parameter setup belongs to the adapter, not here.
//
// A transaction must fully complete (send + receive) before the next one
// starts; the bus is the single shared resource between sessions.
type Bus interface {
	// Send transmits one frame.
	Send(f Frame) error

	// Recv waits up to wait for the next inbound frame.
	// ok is false when nothing arrived within the window.
	Recv(wait time.Duration) (f Frame, ok bool, err error)

	// Close releases the underlying transport.
	Close() error
}

// ErrClosed indicates the bus has been closed.
var ErrClosed = errors.New("canbus: closed")
