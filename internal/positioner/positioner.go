// internal/positioner/positioner.go
package positioner

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fpslab/positioner/internal/canbus"
	"github.com/fpslab/positioner/internal/protocol"
)

// Defaults applied by New.
const (
	DefaultRecvWait     = 1 * time.Second
	DefaultRecvAttempts = 5
	DefaultPollInterval = 500 * time.Millisecond
)

var (
	// ErrNoReply means the receive-attempt budget was exhausted without
	// an inbound frame.
	ErrNoReply = errors.New("positioner: no reply")

	// ErrInBootloader means the device answered a status query with the
	// 4-byte bootloader register instead of the positioner register.
	ErrInBootloader = errors.New("positioner: device is in bootloader")
)

// UnknownResponseError reports a reply whose response code is not in the
// protocol table. The transaction failed, but the caller may retry.
type UnknownResponseError struct {
	Code uint16
}

func (e *UnknownResponseError) Error() string {
	return fmt.Sprintf("positioner: unknown response code %d", e.Code)
}

// Config is the per-session runtime configuration.
type Config struct {
	// Address is the device address on the bus; protocol.Broadcast (0)
	// addresses all devices, which only GET_ID answers.
	Address uint16

	// RecvWait is the wait slice for one receive attempt.
	RecvWait time.Duration

	// RecvAttempts bounds the receive attempts per transaction.
	RecvAttempts int

	// PollInterval is the delay between status queries in WaitMove.
	PollInterval time.Duration

	Logger *zap.Logger
}

// Positioner is one device session. It owns one address and one bus
// handle for its lifetime.
//
// The protocol carries no sequence numbers, so at most one transaction
// may be in flight per session; callers must not overlap calls.
type Positioner struct {
	cfg Config
	bus canbus.Bus
	log *zap.Logger

	// Registers updated in place by status queries.
	Status     protocol.PositionerStatus
	Bootloader protocol.BootloaderStatus
}

// New creates a session with immutable config.
func New(cfg Config, bus canbus.Bus) (*Positioner, error) {
	if bus == nil {
		return nil, errors.New("positioner: bus required")
	}
	if cfg.Address > protocol.MaxAddress {
		return nil, fmt.Errorf("positioner: address %d exceeds 11-bit field", cfg.Address)
	}
	if cfg.RecvWait <= 0 {
		cfg.RecvWait = DefaultRecvWait
	}
	if cfg.RecvAttempts <= 0 {
		cfg.RecvAttempts = DefaultRecvAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Positioner{
		cfg: cfg,
		bus: bus,
		log: cfg.Logger.With(zap.Uint16("address", cfg.Address)),
	}, nil
}

// Address returns the device address this session is bound to.
func (p *Positioner) Address() uint16 {
	return p.cfg.Address
}

// Discover broadcasts GET_ID and returns a session bound to the device
// that answered. cfg.Address is ignored.
func Discover(cfg Config, bus canbus.Bus) (*Positioner, error) {
	cfg.Address = protocol.Broadcast
	bcast, err := New(cfg, bus)
	if err != nil {
		return nil, err
	}

	id, err := bcast.GetID()
	if err != nil {
		return nil, fmt.Errorf("positioner: discovery: %w", err)
	}
	if id > uint32(protocol.MaxAddress) {
		return nil, fmt.Errorf("positioner: discovery: reported id %d exceeds address field", id)
	}

	cfg.Address = uint16(id)
	return New(cfg, bus)
}

// transact runs one request/response cycle: build frame id, send, then
// poll the bus up to RecvAttempts times. The first inbound frame is the
// reply; there is no sequence number correlation.
func (p *Positioner) transact(cmd protocol.Command, payload []byte) ([]byte, protocol.ResponseCode, error) {
	id, err := protocol.FrameID(p.cfg.Address, cmd)
	if err != nil {
		return nil, 0, err
	}

	f := canbus.Frame{ID: id, Extended: true, Data: payload}
	if err := p.bus.Send(f); err != nil {
		p.log.Error("send failed",
			zap.Stringer("command", cmd),
			zap.Error(err))
		return nil, 0, fmt.Errorf("positioner: send %s: %w", cmd, err)
	}
	p.log.Debug("sent", zap.Stringer("command", cmd), zap.Stringer("frame", f))

	for i := 0; i < p.cfg.RecvAttempts; i++ {
		reply, ok, err := p.bus.Recv(p.cfg.RecvWait)
		if err != nil {
			p.log.Error("receive failed",
				zap.Stringer("command", cmd),
				zap.Error(err))
			return nil, 0, fmt.Errorf("positioner: receive %s: %w", cmd, err)
		}
		if !ok {
			continue
		}

		code := protocol.ParseResponseCode(reply.ID)
		if !code.Known() {
			p.log.Error("unknown response code",
				zap.Stringer("command", cmd),
				zap.Uint16("code", uint16(code)))
			return nil, code, &UnknownResponseError{Code: uint16(code)}
		}

		p.log.Debug("reply",
			zap.Stringer("command", cmd),
			zap.Stringer("response", code),
			zap.Int("payload", len(reply.Data)))
		return reply.Data, code, nil
	}

	p.log.Error("no reply", zap.Stringer("command", cmd))
	return nil, 0, fmt.Errorf("positioner: %s: %w", cmd, ErrNoReply)
}

// expectLen validates a reply payload size for a fixed-layout command.
func expectLen(cmd protocol.Command, data []byte, want int) error {
	if len(data) != want {
		return fmt.Errorf("positioner: %s: reply payload is %d bytes, want %d", cmd, len(data), want)
	}
	return nil
}
