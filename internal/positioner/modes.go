// internal/positioner/modes.go
package positioner

import (
	"fmt"

	"github.com/fpslab/positioner/internal/protocol"
)

// Axis identifies one of the two actuators.
type Axis string

const (
	AxisAlpha Axis = "alpha"
	AxisBeta  Axis = "beta"
)

// AxisError reports which half of a paired dual-axis command failed.
// When Axis is beta, the alpha half already succeeded and the device is
// in a mixed-mode state; the caller may retry just the beta command.
type AxisError struct {
	Axis Axis
	Err  error
}

func (e *AxisError) Error() string {
	return fmt.Sprintf("positioner: %s axis: %v", e.Axis, e.Err)
}

func (e *AxisError) Unwrap() error { return e.Err }

// paired issues the alpha command, then the beta command. An alpha
// failure short-circuits: the beta transaction is never attempted.
func (p *Positioner) paired(alphaCmd, betaCmd protocol.Command) error {
	if err := p.simple(alphaCmd, nil); err != nil {
		return &AxisError{Axis: AxisAlpha, Err: err}
	}
	if err := p.simple(betaCmd, nil); err != nil {
		return &AxisError{Axis: AxisBeta, Err: err}
	}
	return nil
}

// SetModeOpenLoop puts both axes in open loop without collision
// detection.
func (p *Positioner) SetModeOpenLoop() error {
	return p.paired(
		protocol.CmdSetAlphaOpenLoopNoCollDetect,
		protocol.CmdSetBetaOpenLoopNoCollDetect)
}

// SetModeClosedLoop puts both axes in closed loop with collision
// detection.
func (p *Positioner) SetModeClosedLoop() error {
	return p.paired(
		protocol.CmdSetAlphaClosedLoop,
		protocol.CmdSetBetaClosedLoop)
}

// SetModeClosedLoopNoCollision puts both axes in closed loop with
// collision detection disabled.
func (p *Positioner) SetModeClosedLoopNoCollision() error {
	return p.paired(
		protocol.CmdSetAlphaClosedLoopNoCollDetect,
		protocol.CmdSetBetaClosedLoopNoCollDetect)
}

// SetPrecisionMode toggles the fine-resolution positioning mode on both
// axes.
func (p *Positioner) SetPrecisionMode(enable bool) error {
	if enable {
		return p.paired(
			protocol.CmdSwitchOnPreciseAlpha,
			protocol.CmdSwitchOnPreciseBeta)
	}
	return p.paired(
		protocol.CmdSwitchOffPreciseAlpha,
		protocol.CmdSwitchOffPreciseBeta)
}

// SetLowPowerMode toggles switching the hall sensors off after a move.
func (p *Positioner) SetLowPowerMode(enable bool) error {
	if enable {
		return p.simple(protocol.CmdSwitchOffHallAfterMove, nil)
	}
	return p.simple(protocol.CmdSwitchOnHallAfterMove, nil)
}
