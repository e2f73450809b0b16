// internal/positioner/trajectory.go
package positioner

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fpslab/positioner/internal/protocol"
)

// Waypoint is one trajectory point: target angle and time offset.
type Waypoint struct {
	AngleDeg float64
	Seconds  float64
}

// SendTrajectory uploads a trajectory for both axes: a point-count
// header, then every alpha waypoint, then every beta waypoint, then an
// explicit end marker. The all-alpha-before-all-beta order is the
// firmware's contract.
func (p *Positioner) SendTrajectory(alpha, beta []Waypoint) error {
	header := packI32Pair(int32(len(alpha)), int32(len(beta)))
	if _, _, err := p.transact(protocol.CmdSendTrajectoryNew, header); err != nil {
		// No points are sent when the announcement was not acknowledged.
		return err
	}

	for _, axis := range []struct {
		name   Axis
		points []Waypoint
	}{
		{AxisAlpha, alpha},
		{AxisBeta, beta},
	} {
		for i, wp := range axis.points {
			if err := p.sendWaypoint(wp); err != nil {
				return fmt.Errorf("positioner: trajectory %s point %d: %w", axis.name, i, err)
			}
			p.log.Debug("trajectory point sent",
				zap.String("axis", string(axis.name)),
				zap.Float64("angle", wp.AngleDeg),
				zap.Float64("seconds", wp.Seconds))
		}
	}

	return p.simple(protocol.CmdSendTrajectoryDataEnd, nil)
}

func (p *Positioner) sendWaypoint(wp Waypoint) error {
	payload := packI32Pair(
		protocol.AngleToPosition(wp.AngleDeg),
		int32(protocol.SecondsToTimestamp(wp.Seconds)))

	// A missed point ack is logged, not fatal, matching the chunked
	// firmware transfer; the device validates counts at the end marker.
	if _, _, err := p.transact(protocol.CmdSendTrajectoryData, payload); err != nil {
		if !errors.Is(err, ErrNoReply) {
			return err
		}
		p.log.Warn("trajectory point unacknowledged", zap.Error(err))
	}
	return nil
}

// StartTrajectory starts a previously uploaded trajectory.
func (p *Positioner) StartTrajectory() error {
	return p.simple(protocol.CmdStartTrajectory, nil)
}

// StopTrajectory stops a running trajectory.
func (p *Positioner) StopTrajectory() error {
	return p.simple(protocol.CmdStopTrajectory, nil)
}
