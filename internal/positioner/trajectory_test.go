// internal/positioner/trajectory_test.go
package positioner

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpslab/positioner/internal/canbus"
	"github.com/fpslab/positioner/internal/protocol"
)

func TestSendTrajectory_OrderAndFraming(t *testing.T) {
	alpha := []Waypoint{
		{AngleDeg: 10, Seconds: 1},
		{AngleDeg: 20, Seconds: 2},
	}
	beta := []Waypoint{
		{AngleDeg: -5, Seconds: 1.5},
	}

	okFrame := accepted(nil)
	bus := &fakeBus{fallback: &okFrame}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	require.NoError(t, p.SendTrajectory(alpha, beta))

	// Header, 2 alpha points, 1 beta point, end marker.
	require.Len(t, bus.sent, 5)

	header := bus.sent[0]
	assert.Equal(t, protocol.CmdSendTrajectoryNew, cmdOf(header.ID))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(header.Data[0:4]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(header.Data[4:8]))

	wantPoints := []Waypoint{alpha[0], alpha[1], beta[0]}
	for i, wp := range wantPoints {
		f := bus.sent[1+i]
		assert.Equal(t, protocol.CmdSendTrajectoryData, cmdOf(f.ID), "point %d", i)
		require.Len(t, f.Data, 8)

		pos := int32(binary.LittleEndian.Uint32(f.Data[0:4]))
		ts := binary.LittleEndian.Uint32(f.Data[4:8])
		assert.Equal(t, protocol.AngleToPosition(wp.AngleDeg), pos, "point %d", i)
		assert.Equal(t, protocol.SecondsToTimestamp(wp.Seconds), ts, "point %d", i)
	}

	assert.Equal(t, protocol.CmdSendTrajectoryDataEnd, cmdOf(bus.sent[4].ID))
	assert.Empty(t, bus.sent[4].Data)
}

func TestSendTrajectory_HeaderNoReplyAborts(t *testing.T) {
	bus := &fakeBus{} // never replies
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	err := p.SendTrajectory([]Waypoint{{AngleDeg: 1, Seconds: 1}}, nil)
	assert.ErrorIs(t, err, ErrNoReply)
	require.Len(t, bus.sent, 1) // no points, no end marker
}

func TestSendTrajectory_Empty(t *testing.T) {
	okFrame := accepted(nil)
	bus := &fakeBus{fallback: &okFrame}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	require.NoError(t, p.SendTrajectory(nil, nil))

	// Header announcing 0/0, then the end marker.
	require.Len(t, bus.sent, 2)
	assert.Equal(t, protocol.CmdSendTrajectoryNew, cmdOf(bus.sent[0].ID))
	assert.Equal(t, protocol.CmdSendTrajectoryDataEnd, cmdOf(bus.sent[1].ID))
}

func TestStartStopTrajectory(t *testing.T) {
	bus := &fakeBus{replies: []canbus.Frame{accepted(nil), accepted(nil)}}
	p := newSession(t, bus, Config{Address: 4, RecvWait: time.Millisecond})

	require.NoError(t, p.StartTrajectory())
	require.NoError(t, p.StopTrajectory())

	require.Len(t, bus.sent, 2)
	assert.Equal(t, protocol.CmdStartTrajectory, cmdOf(bus.sent[0].ID))
	assert.Equal(t, protocol.CmdStopTrajectory, cmdOf(bus.sent[1].ID))
}
