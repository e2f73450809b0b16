// internal/positioner/motion.go
package positioner

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/fpslab/positioner/internal/protocol"
)

// GetPosition reads the actual position of both actuators in degrees.
func (p *Positioner) GetPosition() (alphaDeg, betaDeg float64, err error) {
	data, _, err := p.transact(protocol.CmdGetActualPosition, nil)
	if err != nil {
		return 0, 0, err
	}
	if err := expectLen(protocol.CmdGetActualPosition, data, 8); err != nil {
		return 0, 0, err
	}
	alphaDeg = protocol.PositionToAngle(int32(binary.LittleEndian.Uint32(data[0:4])))
	betaDeg = protocol.PositionToAngle(int32(binary.LittleEndian.Uint32(data[4:8])))
	return alphaDeg, betaDeg, nil
}

// SetPosition overwrites the actual position registers, in degrees.
// This does not move the actuators.
func (p *Positioner) SetPosition(alphaDeg, betaDeg float64) error {
	payload := packI32Pair(
		protocol.AngleToPosition(alphaDeg),
		protocol.AngleToPosition(betaDeg))
	return p.simple(protocol.CmdSetActualPosition, payload)
}

// GotoAbsolute starts a move to an absolute position in degrees.
// Speed must be set beforehand. The reply carries the expected time to
// completion per axis, in seconds.
func (p *Positioner) GotoAbsolute(alphaDeg, betaDeg float64) (alphaETA, betaETA float64, err error) {
	return p.gotoPosition(protocol.CmdGotoPositionAbsolute, alphaDeg, betaDeg)
}

// GotoRelative starts a move by a relative angle in degrees.
// Speed must be set beforehand. The reply carries the expected time to
// completion per axis, in seconds.
func (p *Positioner) GotoRelative(deltaAlphaDeg, deltaBetaDeg float64) (alphaETA, betaETA float64, err error) {
	return p.gotoPosition(protocol.CmdGotoPositionRelative, deltaAlphaDeg, deltaBetaDeg)
}

func (p *Positioner) gotoPosition(cmd protocol.Command, alphaDeg, betaDeg float64) (float64, float64, error) {
	payload := packI32Pair(
		protocol.AngleToPosition(alphaDeg),
		protocol.AngleToPosition(betaDeg))

	data, _, err := p.transact(cmd, payload)
	if err != nil {
		return 0, 0, err
	}
	if err := expectLen(cmd, data, 8); err != nil {
		return 0, 0, err
	}

	alphaETA := protocol.TimestampToSeconds(binary.LittleEndian.Uint32(data[0:4]))
	betaETA := protocol.TimestampToSeconds(binary.LittleEndian.Uint32(data[4:8]))
	return alphaETA, betaETA, nil
}

// WaitMove polls the status register every PollInterval until the
// displacement-completed flag is set or ctx is done. Pass
// context.Background() for the legacy unbounded wait; missed status
// replies are logged by GetStatus and polling continues.
func (p *Positioner) WaitMove(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if st, err := p.GetStatus(); err == nil && st.DisplacementCompleted {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
