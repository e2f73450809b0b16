// internal/protocol/status.go
package protocol

// Status register bit layouts. Bit 0 is the least significant bit of the
// little-endian wire integer. These tables define the protocol and MUST
// NOT be changed without a firmware version bump; unlisted bits are
// reserved.

// ---- BOOTLOADER REGISTER (uint32) ----

const (
	bootInitBit              = 0
	bootTimeoutBit           = 1
	bootConfigChangedBit     = 8
	bootBSettingsChangedBit  = 9
	bootReceivingFirmwareBit = 16
	bootFirmwareReceivedBit  = 24
	bootFirmwareOKBit        = 25
	bootFirmwareBadBit       = 26
)

// BootloaderStatus is the decoded view of the 32-bit bootloader register.
// Raw keeps the wire integer; the flags are derived, never set directly.
type BootloaderStatus struct {
	Raw uint32

	Init              bool
	Timeout           bool
	ConfigChanged     bool
	BSettingsChanged  bool
	ReceivingFirmware bool
	FirmwareReceived  bool
	FirmwareOK        bool
	FirmwareBad       bool
}

// DecodeBootloaderStatus unpacks the bootloader register.
func DecodeBootloaderStatus(raw uint32) BootloaderStatus {
	return BootloaderStatus{
		Raw:               raw,
		Init:              bit32(raw, bootInitBit),
		Timeout:           bit32(raw, bootTimeoutBit),
		ConfigChanged:     bit32(raw, bootConfigChangedBit),
		BSettingsChanged:  bit32(raw, bootBSettingsChangedBit),
		ReceivingFirmware: bit32(raw, bootReceivingFirmwareBit),
		FirmwareReceived:  bit32(raw, bootFirmwareReceivedBit),
		FirmwareOK:        bit32(raw, bootFirmwareOKBit),
		FirmwareBad:       bit32(raw, bootFirmwareBadBit),
	}
}

var bootloaderFlagNames = []struct {
	bit  uint
	name string
}{
	{bootInitBit, "init"},
	{bootTimeoutBit, "timeout"},
	{bootConfigChangedBit, "config_changed"},
	{bootBSettingsChangedBit, "bsettings_changed"},
	{bootReceivingFirmwareBit, "receiving_firmware"},
	{bootFirmwareReceivedBit, "firmware_received"},
	{bootFirmwareOKBit, "firmware_ok"},
	{bootFirmwareBadBit, "firmware_bad"},
}

// ActiveFlags lists the names of the set flags, in bit order.
func (s BootloaderStatus) ActiveFlags() []string {
	var out []string
	for _, f := range bootloaderFlagNames {
		if bit32(s.Raw, f.bit) {
			out = append(out, f.name)
		}
	}
	return out
}

// ---- POSITIONER REGISTER (uint64) ----

const (
	posInitBit                       = 0
	posConfigChangedBit              = 1
	posBSettingsChangedBit           = 2
	posDataStreamingBit              = 3
	posReceivingTrajectoryBit        = 4
	posTrajectoryAlphaReceivedBit    = 5
	posTrajectoryBetaReceivedBit     = 6
	posLowPowerAfterMoveBit          = 7
	posDisplacementCompletedBit      = 8
	posDisplacementCompletedAlphaBit = 9
	posDisplacementCompletedBetaBit  = 10
	posCollisionAlphaBit             = 11
	posCollisionBetaBit              = 12
	posClosedLoopAlphaBit            = 13
	posClosedLoopBetaBit             = 14
	posPrecisePositioningAlphaBit    = 15
	posPrecisePositioningBetaBit     = 16
	posCollisionDetectAlphaDisBit    = 17
	posCollisionDetectBetaDisBit     = 18
	posMotorCalibrationBit           = 19
	posMotorAlphaCalibratedBit       = 20
	posMotorBetaCalibratedBit        = 21
	posDatumCalibrationBit           = 22
	posDatumAlphaCalibratedBit       = 23
	posDatumBetaCalibratedBit        = 24
	posDatumInitializationBit        = 25
	posDatumAlphaInitializedBit      = 26
	posDatumBetaInitializedBit       = 27
	posHallAlphaDisableBit           = 28
	posHallBetaDisableBit            = 29
	posCoggingCalibrationBit         = 30
	posCoggingAlphaCalibratedBit     = 31
	posCoggingBetaCalibratedBit      = 32
	posEstimatedPositionBit          = 33
	posPositionRestoredBit           = 34
	posSwitchOffAfterMoveBit         = 35
	posCalibrationSavedBit           = 36
	posPreciseOpenLoopAlphaBit       = 37
	posPreciseOpenLoopBetaBit        = 38
	posSwitchOffHallAfterMoveBit     = 39
)

// PositionerStatus is the decoded view of the 64-bit positioner register.
// Raw keeps the wire integer; the flags are derived, never set directly.
type PositionerStatus struct {
	Raw uint64

	Init                        bool
	ConfigChanged               bool
	BSettingsChanged            bool
	DataStreaming               bool
	ReceivingTrajectory         bool
	TrajectoryAlphaReceived     bool
	TrajectoryBetaReceived      bool
	LowPowerAfterMove           bool
	DisplacementCompleted       bool
	DisplacementCompletedAlpha  bool
	DisplacementCompletedBeta   bool
	CollisionAlpha              bool
	CollisionBeta               bool
	ClosedLoopAlpha             bool
	ClosedLoopBeta              bool
	PrecisePositioningAlpha     bool
	PrecisePositioningBeta      bool
	CollisionDetectAlphaDisable bool
	CollisionDetectBetaDisable  bool
	MotorCalibration            bool
	MotorAlphaCalibrated        bool
	MotorBetaCalibrated         bool
	DatumCalibration            bool
	DatumAlphaCalibrated        bool
	DatumBetaCalibrated         bool
	DatumInitialization         bool
	DatumAlphaInitialized       bool
	DatumBetaInitialized        bool
	HallAlphaDisable            bool
	HallBetaDisable             bool
	CoggingCalibration          bool
	CoggingAlphaCalibrated      bool
	CoggingBetaCalibrated       bool
	EstimatedPosition           bool
	PositionRestored            bool
	SwitchOffAfterMove          bool
	CalibrationSaved            bool
	PreciseMoveInOpenLoopAlpha  bool
	PreciseMoveInOpenLoopBeta   bool
	SwitchOffHallAfterMove      bool
}

// DecodePositionerStatus unpacks the positioner register.
func DecodePositionerStatus(raw uint64) PositionerStatus {
	return PositionerStatus{
		Raw:                         raw,
		Init:                        bit64(raw, posInitBit),
		ConfigChanged:               bit64(raw, posConfigChangedBit),
		BSettingsChanged:            bit64(raw, posBSettingsChangedBit),
		DataStreaming:               bit64(raw, posDataStreamingBit),
		ReceivingTrajectory:         bit64(raw, posReceivingTrajectoryBit),
		TrajectoryAlphaReceived:     bit64(raw, posTrajectoryAlphaReceivedBit),
		TrajectoryBetaReceived:      bit64(raw, posTrajectoryBetaReceivedBit),
		LowPowerAfterMove:           bit64(raw, posLowPowerAfterMoveBit),
		DisplacementCompleted:       bit64(raw, posDisplacementCompletedBit),
		DisplacementCompletedAlpha:  bit64(raw, posDisplacementCompletedAlphaBit),
		DisplacementCompletedBeta:   bit64(raw, posDisplacementCompletedBetaBit),
		CollisionAlpha:              bit64(raw, posCollisionAlphaBit),
		CollisionBeta:               bit64(raw, posCollisionBetaBit),
		ClosedLoopAlpha:             bit64(raw, posClosedLoopAlphaBit),
		ClosedLoopBeta:              bit64(raw, posClosedLoopBetaBit),
		PrecisePositioningAlpha:     bit64(raw, posPrecisePositioningAlphaBit),
		PrecisePositioningBeta:      bit64(raw, posPrecisePositioningBetaBit),
		CollisionDetectAlphaDisable: bit64(raw, posCollisionDetectAlphaDisBit),
		CollisionDetectBetaDisable:  bit64(raw, posCollisionDetectBetaDisBit),
		MotorCalibration:            bit64(raw, posMotorCalibrationBit),
		MotorAlphaCalibrated:        bit64(raw, posMotorAlphaCalibratedBit),
		MotorBetaCalibrated:         bit64(raw, posMotorBetaCalibratedBit),
		DatumCalibration:            bit64(raw, posDatumCalibrationBit),
		DatumAlphaCalibrated:        bit64(raw, posDatumAlphaCalibratedBit),
		DatumBetaCalibrated:         bit64(raw, posDatumBetaCalibratedBit),
		DatumInitialization:         bit64(raw, posDatumInitializationBit),
		DatumAlphaInitialized:       bit64(raw, posDatumAlphaInitializedBit),
		DatumBetaInitialized:        bit64(raw, posDatumBetaInitializedBit),
		HallAlphaDisable:            bit64(raw, posHallAlphaDisableBit),
		HallBetaDisable:             bit64(raw, posHallBetaDisableBit),
		CoggingCalibration:          bit64(raw, posCoggingCalibrationBit),
		CoggingAlphaCalibrated:      bit64(raw, posCoggingAlphaCalibratedBit),
		CoggingBetaCalibrated:       bit64(raw, posCoggingBetaCalibratedBit),
		EstimatedPosition:           bit64(raw, posEstimatedPositionBit),
		PositionRestored:            bit64(raw, posPositionRestoredBit),
		SwitchOffAfterMove:          bit64(raw, posSwitchOffAfterMoveBit),
		CalibrationSaved:            bit64(raw, posCalibrationSavedBit),
		PreciseMoveInOpenLoopAlpha:  bit64(raw, posPreciseOpenLoopAlphaBit),
		PreciseMoveInOpenLoopBeta:   bit64(raw, posPreciseOpenLoopBetaBit),
		SwitchOffHallAfterMove:      bit64(raw, posSwitchOffHallAfterMoveBit),
	}
}

var positionerFlagNames = []struct {
	bit  uint
	name string
}{
	{posInitBit, "init"},
	{posConfigChangedBit, "config_changed"},
	{posBSettingsChangedBit, "bsettings_changed"},
	{posDataStreamingBit, "data_streaming"},
	{posReceivingTrajectoryBit, "receiving_trajectory"},
	{posTrajectoryAlphaReceivedBit, "trajectory_alpha_received"},
	{posTrajectoryBetaReceivedBit, "trajectory_beta_received"},
	{posLowPowerAfterMoveBit, "low_power_after_move"},
	{posDisplacementCompletedBit, "displacement_completed"},
	{posDisplacementCompletedAlphaBit, "displacement_completed_alpha"},
	{posDisplacementCompletedBetaBit, "displacement_completed_beta"},
	{posCollisionAlphaBit, "collision_alpha"},
	{posCollisionBetaBit, "collision_beta"},
	{posClosedLoopAlphaBit, "closed_loop_alpha"},
	{posClosedLoopBetaBit, "closed_loop_beta"},
	{posPrecisePositioningAlphaBit, "precise_positioning_alpha"},
	{posPrecisePositioningBetaBit, "precise_positioning_beta"},
	{posCollisionDetectAlphaDisBit, "collision_detect_alpha_disable"},
	{posCollisionDetectBetaDisBit, "collision_detect_beta_disable"},
	{posMotorCalibrationBit, "motor_calibration"},
	{posMotorAlphaCalibratedBit, "motor_alpha_calibrated"},
	{posMotorBetaCalibratedBit, "motor_beta_calibrated"},
	{posDatumCalibrationBit, "datum_calibration"},
	{posDatumAlphaCalibratedBit, "datum_alpha_calibrated"},
	{posDatumBetaCalibratedBit, "datum_beta_calibrated"},
	{posDatumInitializationBit, "datum_initialization"},
	{posDatumAlphaInitializedBit, "datum_alpha_initialized"},
	{posDatumBetaInitializedBit, "datum_beta_initialized"},
	{posHallAlphaDisableBit, "hall_alpha_disable"},
	{posHallBetaDisableBit, "hall_beta_disable"},
	{posCoggingCalibrationBit, "cogging_calibration"},
	{posCoggingAlphaCalibratedBit, "cogging_alpha_calibrated"},
	{posCoggingBetaCalibratedBit, "cogging_beta_calibrated"},
	{posEstimatedPositionBit, "estimated_position"},
	{posPositionRestoredBit, "position_restored"},
	{posSwitchOffAfterMoveBit, "switch_off_after_move"},
	{posCalibrationSavedBit, "calibration_saved"},
	{posPreciseOpenLoopAlphaBit, "precise_move_in_open_loop_alpha"},
	{posPreciseOpenLoopBetaBit, "precise_move_in_open_loop_beta"},
	{posSwitchOffHallAfterMoveBit, "switch_off_hall_after_move"},
}

// ActiveFlags lists the names of the set flags, in bit order.
func (s PositionerStatus) ActiveFlags() []string {
	var out []string
	for _, f := range positionerFlagNames {
		if bit64(s.Raw, f.bit) {
			out = append(out, f.name)
		}
	}
	return out
}

func bit32(raw uint32, n uint) bool { return raw>>n&1 == 1 }
func bit64(raw uint64, n uint) bool { return raw>>n&1 == 1 }
