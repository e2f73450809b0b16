// internal/positioner/positioner_test.go
package positioner

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpslab/positioner/internal/canbus"
	"github.com/fpslab/positioner/internal/protocol"
)

// fakeBus records sent frames and serves scripted replies.
type fakeBus struct {
	sent      []canbus.Frame
	replies   []canbus.Frame
	fallback  *canbus.Frame // served when the script is exhausted
	sendErr   error
	recvErr   error
	recvCalls int
}

func (b *fakeBus) Send(f canbus.Frame) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, f)
	return nil
}

func (b *fakeBus) Recv(wait time.Duration) (canbus.Frame, bool, error) {
	b.recvCalls++
	if b.recvErr != nil {
		return canbus.Frame{}, false, b.recvErr
	}
	if len(b.replies) > 0 {
		f := b.replies[0]
		b.replies = b.replies[1:]
		return f, true, nil
	}
	if b.fallback != nil {
		return *b.fallback, true, nil
	}
	return canbus.Frame{}, false, nil
}

func (b *fakeBus) Close() error { return nil }

// ack builds a reply frame carrying a response code and payload.
func ack(code protocol.ResponseCode, data []byte) canbus.Frame {
	return canbus.Frame{ID: uint32(code), Extended: true, Data: data}
}

func accepted(data []byte) canbus.Frame {
	return ack(protocol.RespCommandAccepted, data)
}

// cmdOf extracts the 8-bit opcode field from an outbound frame id.
func cmdOf(id uint32) protocol.Command {
	return protocol.Command(uint16(id>>10) & 0xFF)
}

func newSession(t *testing.T, bus canbus.Bus, cfg Config) *Positioner {
	t.Helper()
	p, err := New(cfg, bus)
	require.NoError(t, err)
	return p
}

func u32le(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

func u64le(v uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return out
}

// ---- construction ----

func TestNew_AddressTooLarge(t *testing.T) {
	_, err := New(Config{Address: 2048}, &fakeBus{})
	assert.Error(t, err)
}

func TestNew_NilBus(t *testing.T) {
	_, err := New(Config{Address: 1}, nil)
	assert.Error(t, err)
}

// ---- transaction engine ----

func TestTransact_NoReplyAfterBudget(t *testing.T) {
	bus := &fakeBus{}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	_, _, err := p.transact(protocol.CmdGetStatus, nil)
	assert.ErrorIs(t, err, ErrNoReply)
	assert.Equal(t, DefaultRecvAttempts, bus.recvCalls)
}

func TestTransact_EmptyWindowsThenReply(t *testing.T) {
	// Nothing for two attempts, then a frame on the third.
	cb := &countdownBus{empty: 2, reply: accepted(u64le(0))}
	p := newSession(t, cb, Config{Address: 4, RecvWait: time.Millisecond})

	data, code, err := p.transact(protocol.CmdGetStatus, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.RespCommandAccepted, code)
	assert.Len(t, data, 8)
	assert.Equal(t, 3, cb.recvCalls)
}

// countdownBus returns no frame for the first empty windows, then the
// reply on every later attempt.
type countdownBus struct {
	empty     int
	reply     canbus.Frame
	recvCalls int
	sent      []canbus.Frame
}

func (b *countdownBus) Send(f canbus.Frame) error {
	b.sent = append(b.sent, f)
	return nil
}

func (b *countdownBus) Recv(wait time.Duration) (canbus.Frame, bool, error) {
	b.recvCalls++
	if b.recvCalls <= b.empty {
		return canbus.Frame{}, false, nil
	}
	return b.reply, true, nil
}

func (b *countdownBus) Close() error { return nil }

func TestTransact_UnknownResponseCode(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{{ID: 999, Extended: true}}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	_, _, err := p.transact(protocol.CmdGetStatus, nil)

	var unknown *UnknownResponseError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint16(999), unknown.Code)
}

func TestTransact_SendError(t *testing.T) {
	bus := &fakeBus{sendErr: errors.New("wire down")}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	_, _, err := p.transact(protocol.CmdGetStatus, nil)
	assert.ErrorContains(t, err, "wire down")
	assert.Zero(t, bus.recvCalls)
}

func TestTransact_RecvError(t *testing.T) {
	bus := &fakeBus{recvErr: errors.New("port gone")}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	_, _, err := p.transact(protocol.CmdGetStatus, nil)
	assert.ErrorContains(t, err, "port gone")
	assert.Equal(t, 1, bus.recvCalls)
}

func TestTransact_FrameLayout(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(nil)}}
	p := newSession(t, bus, Config{Address: 19, RecvWait: time.Millisecond})

	_, _, err := p.transact(protocol.CmdSetSpeed, packU32Pair(1000, 1000))
	require.NoError(t, err)

	require.Len(t, bus.sent, 1)
	f := bus.sent[0]
	assert.True(t, f.Extended)
	assert.Equal(t, uint16(19), protocol.AddressOf(f.ID))
	assert.Equal(t, protocol.CmdSetSpeed, cmdOf(f.ID))
	assert.Zero(t, f.ID&0x3FF)
	assert.Len(t, f.Data, 8)
}

// ---- discovery ----

func TestDiscover(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(u32le(42))}}

	p, err := Discover(Config{RecvWait: time.Millisecond}, bus)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), p.Address())

	require.Len(t, bus.sent, 1)
	assert.Equal(t, protocol.Broadcast, protocol.AddressOf(bus.sent[0].ID))
	assert.Equal(t, protocol.CmdGetID, cmdOf(bus.sent[0].ID))
}

func TestDiscover_NoDevice(t *testing.T) {
	bus := &fakeBus{}
	_, err := Discover(Config{RecvWait: time.Millisecond}, bus)
	assert.ErrorIs(t, err, ErrNoReply)
}

// ---- status ----

func TestGetStatus_UpdatesRegister(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(u64le(1 << 8))}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	st, err := p.GetStatus()
	require.NoError(t, err)
	assert.True(t, st.DisplacementCompleted)
	assert.True(t, p.Status.DisplacementCompleted)
	assert.Equal(t, uint64(1<<8), p.Status.Raw)
}

func TestGetStatus_BootloaderReply(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(u32le(1 << 8))}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	_, err := p.GetStatus()
	assert.ErrorIs(t, err, ErrInBootloader)
	assert.True(t, p.Bootloader.ConfigChanged)
}

// ---- typed operations ----

func TestGetFirmwareVersion(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted([]byte{3, 1, 2, 0})}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	v, err := p.GetFirmwareVersion()
	require.NoError(t, err)
	assert.Equal(t, FirmwareVersion{Major: 2, Minor: 1, Patch: 3}, v)
	assert.Equal(t, "V02.01.03", v.String())
}

func TestGetPosition(t *testing.T) {
	payload := packI32Pair(
		protocol.AngleToPosition(90),
		protocol.AngleToPosition(-45))
	bus := &fakeBus{replies: []canbus.Frame{accepted(payload)}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	alpha, beta, err := p.GetPosition()
	require.NoError(t, err)
	assert.InDelta(t, 90, alpha, 1e-6)
	assert.InDelta(t, -45, beta, 1e-6)
}

func TestGotoAbsolute(t *testing.T) {
	// ETAs: 1.0s and 2.5s as wire timestamps.
	eta := packU32Pair(2000, 5000)
	bus := &fakeBus{replies: []canbus.Frame{accepted(eta)}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	alphaETA, betaETA, err := p.GotoAbsolute(10, 20)
	require.NoError(t, err)
	assert.Equal(t, 1.0, alphaETA)
	assert.Equal(t, 2.5, betaETA)

	require.Len(t, bus.sent, 1)
	sent := bus.sent[0]
	assert.Equal(t, protocol.CmdGotoPositionAbsolute, cmdOf(sent.ID))
	wantAlpha := protocol.AngleToPosition(10)
	assert.Equal(t, uint32(wantAlpha), binary.LittleEndian.Uint32(sent.Data[0:4]))
}

func TestGotoAbsolute_ShortReply(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted([]byte{1, 2})}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	_, _, err := p.GotoAbsolute(10, 20)
	assert.ErrorContains(t, err, "reply payload")
}

func TestReadFlash(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(u32le(0xCAFEBABE))}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	v, err := p.ReadFlash(0x100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)

	require.Len(t, bus.sent, 1)
	assert.Equal(t, protocol.CmdReadExtFlash, cmdOf(bus.sent[0].ID))
	assert.Equal(t, u32le(0x100), bus.sent[0].Data)
}

func TestGetHallCalibration(t *testing.T) {
	alphaPayload := []byte{0x10, 0x00, 0x20, 0x00, 0x01, 0x00, 0x02, 0x00}
	betaPayload := []byte{0x30, 0x00, 0x40, 0x00, 0x03, 0x00, 0x04, 0x00}
	bus := &fakeBus{replies: []canbus.Frame{accepted(alphaPayload), accepted(betaPayload)}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	calib, err := p.GetHallCalibration()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x10), calib.AlphaMaxA)
	assert.Equal(t, uint16(0x02), calib.AlphaMinB)
	assert.Equal(t, uint16(0x30), calib.BetaMaxA)
	assert.Equal(t, uint16(0x04), calib.BetaMinB)

	require.Len(t, bus.sent, 2)
	assert.Equal(t, protocol.CmdGetAlphaHallCalib, cmdOf(bus.sent[0].ID))
	assert.Equal(t, protocol.CmdGetBetaHallCalib, cmdOf(bus.sent[1].ID))
}

// ---- paired dual-axis commands ----

func TestSetModeClosedLoop_AlphaFailureShortCircuits(t *testing.T) {
	bus := &fakeBus{} // no replies at all
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	err := p.SetModeClosedLoop()

	var axisErr *AxisError
	require.ErrorAs(t, err, &axisErr)
	assert.Equal(t, AxisAlpha, axisErr.Axis)
	assert.ErrorIs(t, err, ErrNoReply)

	// The beta transaction is never attempted.
	require.Len(t, bus.sent, 1)
	assert.Equal(t, protocol.CmdSetAlphaClosedLoop, cmdOf(bus.sent[0].ID))
}

func TestSetModeClosedLoop_BetaFailure(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(nil)}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	err := p.SetModeClosedLoop()

	var axisErr *AxisError
	require.ErrorAs(t, err, &axisErr)
	assert.Equal(t, AxisBeta, axisErr.Axis)

	require.Len(t, bus.sent, 2)
	assert.Equal(t, protocol.CmdSetBetaClosedLoop, cmdOf(bus.sent[1].ID))
}

func TestSetPrecisionMode_CommandSelection(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(nil), accepted(nil), accepted(nil), accepted(nil)}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	require.NoError(t, p.SetPrecisionMode(true))
	require.NoError(t, p.SetPrecisionMode(false))

	require.Len(t, bus.sent, 4)
	assert.Equal(t, protocol.CmdSwitchOnPreciseAlpha, cmdOf(bus.sent[0].ID))
	assert.Equal(t, protocol.CmdSwitchOnPreciseBeta, cmdOf(bus.sent[1].ID))
	assert.Equal(t, protocol.CmdSwitchOffPreciseAlpha, cmdOf(bus.sent[2].ID))
	assert.Equal(t, protocol.CmdSwitchOffPreciseBeta, cmdOf(bus.sent[3].ID))
}

func TestSetLowPowerMode_CommandSelection(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(nil), accepted(nil)}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	require.NoError(t, p.SetLowPowerMode(true))
	require.NoError(t, p.SetLowPowerMode(false))

	require.Len(t, bus.sent, 2)
	assert.Equal(t, protocol.CmdSwitchOffHallAfterMove, cmdOf(bus.sent[0].ID))
	assert.Equal(t, protocol.CmdSwitchOnHallAfterMove, cmdOf(bus.sent[1].ID))
}

// ---- wait for motion ----

func TestWaitMove_CompletesWhenFlagSet(t *testing.T) {
	moving := accepted(u64le(0))
	done := accepted(u64le(1 << 8))
	bus := &fakeBus{replies: []canbus.Frame{moving, done}, fallback: &done}
	p := newSession(t, bus, Config{
		Address:      4,
		RecvWait:     time.Millisecond,
		PollInterval: time.Millisecond,
	})

	err := p.WaitMove(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(bus.sent), 2)
}

func TestWaitMove_BoundedByContext(t *testing.T) {
	moving := accepted(u64le(0))
	bus := &fakeBus{fallback: &moving}
	p := newSession(t, bus, Config{
		Address:      4,
		RecvWait:     time.Millisecond,
		PollInterval: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.WaitMove(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
