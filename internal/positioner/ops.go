// internal/positioner/ops.go
package positioner

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/fpslab/positioner/internal/protocol"
)

// FirmwareVersion is the running firmware version triple.
type FirmwareVersion struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("V%02d.%02d.%02d", v.Major, v.Minor, v.Patch)
}

// HallCalibration holds the min/max readings of both hall sensor pairs.
type HallCalibration struct {
	AlphaMaxA uint16
	AlphaMaxB uint16
	AlphaMinA uint16
	AlphaMinB uint16
	BetaMaxA  uint16
	BetaMaxB  uint16
	BetaMinA  uint16
	BetaMinB  uint16
}

// simple runs an ack-only transaction. Rejection codes are logged, not
// errors; only missing or undecodable replies fail.
func (p *Positioner) simple(cmd protocol.Command, payload []byte) error {
	_, code, err := p.transact(cmd, payload)
	if err != nil {
		return err
	}
	if code != protocol.RespCommandAccepted {
		p.log.Warn("command not accepted",
			zap.Stringer("command", cmd),
			zap.Stringer("response", code))
	}
	return nil
}

// GetID asks the device for its identifier. On a broadcast session this
// is the discovery primitive.
func (p *Positioner) GetID() (uint32, error) {
	data, _, err := p.transact(protocol.CmdGetID, nil)
	if err != nil {
		return 0, err
	}
	if err := expectLen(protocol.CmdGetID, data, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// GetFirmwareVersion reads the running firmware version.
func (p *Positioner) GetFirmwareVersion() (FirmwareVersion, error) {
	data, _, err := p.transact(protocol.CmdGetFirmwareVersion, nil)
	if err != nil {
		return FirmwareVersion{}, err
	}
	if err := expectLen(protocol.CmdGetFirmwareVersion, data, 4); err != nil {
		return FirmwareVersion{}, err
	}
	// Wire order is patch, minor, major, spare.
	return FirmwareVersion{Major: data[2], Minor: data[1], Patch: data[0]}, nil
}

// GetStatus queries the status register and updates the session's view
// in place. A 4-byte reply means the bootloader is still running; the
// bootloader register is updated instead and ErrInBootloader returned.
func (p *Positioner) GetStatus() (protocol.PositionerStatus, error) {
	data, _, err := p.transact(protocol.CmdGetStatus, nil)
	if err != nil {
		return protocol.PositionerStatus{}, err
	}

	switch len(data) {
	case 8:
		p.Status = protocol.DecodePositionerStatus(binary.LittleEndian.Uint64(data))
		return p.Status, nil
	case 4:
		p.Bootloader = protocol.DecodeBootloaderStatus(binary.LittleEndian.Uint32(data))
		return protocol.PositionerStatus{}, ErrInBootloader
	default:
		return protocol.PositionerStatus{}, fmt.Errorf(
			"positioner: %s: reply payload is %d bytes, want 8 or 4",
			protocol.CmdGetStatus, len(data))
	}
}

// SetSpeed sets both motor speeds in RPM (at the motor, not the output).
func (p *Positioner) SetSpeed(alphaRPM, betaRPM uint32) error {
	return p.simple(protocol.CmdSetSpeed, packU32Pair(alphaRPM, betaRPM))
}

// SetCurrent sets both drive currents in percent.
func (p *Positioner) SetCurrent(alphaPct, betaPct uint32) error {
	return p.simple(protocol.CmdSetCurrent, packU32Pair(alphaPct, betaPct))
}

// SetLowPowerCurrent sets the drive currents used in low power mode.
func (p *Positioner) SetLowPowerCurrent(alphaPct, betaPct uint32) error {
	return p.simple(protocol.CmdSetLowPowerCurrent, packU32Pair(alphaPct, betaPct))
}

// InitializeDatums runs the datum calibration on both axes.
func (p *Positioner) InitializeDatums() error {
	return p.simple(protocol.CmdInitializeDatums, nil)
}

// InitializeDatumAlpha moves the alpha axis to its datum.
func (p *Positioner) InitializeDatumAlpha() error {
	return p.simple(protocol.CmdGotoDatumAlpha, nil)
}

// InitializeDatumBeta moves the beta axis to its datum.
func (p *Positioner) InitializeDatumBeta() error {
	return p.simple(protocol.CmdGotoDatumBeta, nil)
}

// CalibMotors runs the motor calibration routine.
func (p *Positioner) CalibMotors() error {
	return p.simple(protocol.CmdCalibMotors, nil)
}

// RequestReboot asks the device to reboot.
func (p *Positioner) RequestReboot() error {
	return p.simple(protocol.CmdRequestReboot, nil)
}

// EraseFlash erases the external flash.
func (p *Positioner) EraseFlash() error {
	return p.simple(protocol.CmdEraseExtFlash, nil)
}

// ReadFlash reads one word of the external flash.
func (p *Positioner) ReadFlash(address uint32) (uint32, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, address)

	data, _, err := p.transact(protocol.CmdReadExtFlash, payload)
	if err != nil {
		return 0, err
	}
	if err := expectLen(protocol.CmdReadExtFlash, data, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// WriteFlash writes one word to the external flash.
func (p *Positioner) WriteFlash(address, value uint32) error {
	return p.simple(protocol.CmdWriteExtFlash, packU32Pair(address, value))
}

// GetVMain reads the main supply voltage ADC.
func (p *Positioner) GetVMain() (uint32, error) {
	data, _, err := p.transact(protocol.CmdGetADCOne, nil)
	if err != nil {
		return 0, err
	}
	if err := expectLen(protocol.CmdGetADCOne, data, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// GetPower reads both motor supply currents in mA.
func (p *Positioner) GetPower() (alphaMA, betaMA int32, err error) {
	data, _, err := p.transact(protocol.CmdGetMotorPower, nil)
	if err != nil {
		return 0, 0, err
	}
	if err := expectLen(protocol.CmdGetMotorPower, data, 8); err != nil {
		return 0, 0, err
	}
	alphaMA = int32(binary.LittleEndian.Uint32(data[0:4]))
	betaMA = int32(binary.LittleEndian.Uint32(data[4:8]))
	return alphaMA, betaMA, nil
}

// GetHall reads the raw hall sensor positions in degrees.
func (p *Positioner) GetHall() (alphaDeg, betaDeg float64, err error) {
	data, _, err := p.transact(protocol.CmdGetHallPos, nil)
	if err != nil {
		return 0, 0, err
	}
	if err := expectLen(protocol.CmdGetHallPos, data, 8); err != nil {
		return 0, 0, err
	}
	alphaDeg = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])))
	betaDeg = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])))
	return alphaDeg, betaDeg, nil
}

// GetHallOutput reads the output position derived from the hall sensors,
// in degrees.
func (p *Positioner) GetHallOutput() (alphaDeg, betaDeg float64, err error) {
	data, _, err := p.transact(protocol.CmdGetHallOutput, nil)
	if err != nil {
		return 0, 0, err
	}
	if err := expectLen(protocol.CmdGetHallOutput, data, 8); err != nil {
		return 0, 0, err
	}
	alphaDeg = protocol.PositionToAngle(int32(binary.LittleEndian.Uint32(data[0:4])))
	betaDeg = protocol.PositionToAngle(int32(binary.LittleEndian.Uint32(data[4:8])))
	return alphaDeg, betaDeg, nil
}

// GetHallCalibration reads the stored calibration of both hall sensor
// pairs: one transaction per axis, alpha first.
func (p *Positioner) GetHallCalibration() (HallCalibration, error) {
	var calib HallCalibration

	data, _, err := p.transact(protocol.CmdGetAlphaHallCalib, nil)
	if err != nil {
		return calib, err
	}
	if err := expectLen(protocol.CmdGetAlphaHallCalib, data, 8); err != nil {
		return calib, err
	}
	calib.AlphaMaxA = binary.LittleEndian.Uint16(data[0:2])
	calib.AlphaMaxB = binary.LittleEndian.Uint16(data[2:4])
	calib.AlphaMinA = binary.LittleEndian.Uint16(data[4:6])
	calib.AlphaMinB = binary.LittleEndian.Uint16(data[6:8])

	data, _, err = p.transact(protocol.CmdGetBetaHallCalib, nil)
	if err != nil {
		return calib, err
	}
	if err := expectLen(protocol.CmdGetBetaHallCalib, data, 8); err != nil {
		return calib, err
	}
	calib.BetaMaxA = binary.LittleEndian.Uint16(data[0:2])
	calib.BetaMaxB = binary.LittleEndian.Uint16(data[2:4])
	calib.BetaMinA = binary.LittleEndian.Uint16(data[4:6])
	calib.BetaMinB = binary.LittleEndian.Uint16(data[6:8])

	return calib, nil
}

// ---- payload helpers ----

func packU32Pair(a, b uint32) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out[0:4], a)
	binary.LittleEndian.PutUint32(out[4:8], b)
	return out
}

func packI32Pair(a, b int32) []byte {
	return packU32Pair(uint32(a), uint32(b))
}
