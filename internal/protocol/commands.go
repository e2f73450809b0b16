// internal/protocol/commands.go
package protocol

import "fmt"

// Command is a firmware opcode. The numeric values define the wire
// protocol and MUST NOT be changed without a firmware version bump.
type Command uint16

const (
	CmdGetID                          Command = 1
	CmdGetFirmwareVersion             Command = 2
	CmdGetStatus                      Command = 3
	CmdSendNewFirmware                Command = 4
	CmdFirmwareData                   Command = 5
	CmdGetActualPosition              Command = 6
	CmdSetActualPosition              Command = 7
	CmdGotoPositionAbsolute           Command = 8
	CmdGotoPositionRelative           Command = 9
	CmdSetSpeed                       Command = 10
	CmdSetCurrent                     Command = 11
	CmdSetLowPowerCurrent             Command = 12
	CmdSwitchOnHallAfterMove          Command = 13
	CmdSwitchOffHallAfterMove         Command = 14
	CmdInitializeDatums               Command = 15
	CmdGotoDatumAlpha                 Command = 16
	CmdGotoDatumBeta                  Command = 17
	CmdSendTrajectoryNew              Command = 18
	CmdSendTrajectoryData             Command = 19
	CmdSendTrajectoryDataEnd          Command = 20
	CmdStartTrajectory                Command = 21
	CmdStopTrajectory                 Command = 22
	CmdGetADCOne                      Command = 23
	CmdGetMotorPower                  Command = 24
	CmdGetHallPos                     Command = 25
	CmdGetHallOutput                  Command = 26
	CmdEraseExtFlash                  Command = 27
	CmdReadExtFlash                   Command = 28
	CmdWriteExtFlash                  Command = 29
	CmdRequestReboot                  Command = 30
	CmdGetAlphaHallCalib              Command = 31
	CmdGetBetaHallCalib               Command = 32
	CmdCalibMotors                    Command = 33
	CmdSetAlphaOpenLoopNoCollDetect   Command = 34
	CmdSetBetaOpenLoopNoCollDetect    Command = 35
	CmdSetAlphaClosedLoop             Command = 36
	CmdSetBetaClosedLoop              Command = 37
	CmdSetAlphaClosedLoopNoCollDetect Command = 38
	CmdSetBetaClosedLoopNoCollDetect  Command = 39
	CmdSwitchOnPreciseAlpha           Command = 40
	CmdSwitchOnPreciseBeta            Command = 41
	CmdSwitchOffPreciseAlpha          Command = 42
	CmdSwitchOffPreciseBeta           Command = 43
)

var commandNames = map[Command]string{
	CmdGetID:                          "GET_ID",
	CmdGetFirmwareVersion:             "GET_FIRMWARE_VERSION",
	CmdGetStatus:                      "GET_STATUS",
	CmdSendNewFirmware:                "SEND_NEW_FIRMWARE",
	CmdFirmwareData:                   "FIRMWARE_DATA",
	CmdGetActualPosition:              "GET_ACTUAL_POSITION",
	CmdSetActualPosition:              "SET_ACTUAL_POSITION",
	CmdGotoPositionAbsolute:           "GOTO_POSITION_ABSOLUTE",
	CmdGotoPositionRelative:           "GOTO_POSITION_RELATIVE",
	CmdSetSpeed:                       "SET_SPEED",
	CmdSetCurrent:                     "SET_CURRENT",
	CmdSetLowPowerCurrent:             "SET_LOW_POWER_CURRENT",
	CmdSwitchOnHallAfterMove:          "SWITCH_ON_HALL_AFTER_MOVE",
	CmdSwitchOffHallAfterMove:         "SWITCH_OFF_HALL_AFTER_MOVE",
	CmdInitializeDatums:               "INITIALIZE_DATUMS",
	CmdGotoDatumAlpha:                 "GOTO_DATUM_ALPHA",
	CmdGotoDatumBeta:                  "GOTO_DATUM_BETA",
	CmdSendTrajectoryNew:              "SEND_TRAJECTORY_NEW",
	CmdSendTrajectoryData:             "SEND_TRAJECTORY_DATA",
	CmdSendTrajectoryDataEnd:          "SEND_TRAJECTORY_DATA_END",
	CmdStartTrajectory:                "START_TRAJECTORY",
	CmdStopTrajectory:                 "STOP_TRAJECTORY",
	CmdGetADCOne:                      "GET_ADC_ONE",
	CmdGetMotorPower:                  "GET_MOTOR_POWER",
	CmdGetHallPos:                     "GET_HALL_POS",
	CmdGetHallOutput:                  "GET_HALL_OUTPUT",
	CmdEraseExtFlash:                  "ERASE_EXT_FLASH",
	CmdReadExtFlash:                   "READ_EXT_FLASH",
	CmdWriteExtFlash:                  "WRITE_EXT_FLASH",
	CmdRequestReboot:                  "REQUEST_REBOOT",
	CmdGetAlphaHallCalib:              "GET_ALPHA_HALL_CALIB",
	CmdGetBetaHallCalib:               "GET_BETA_HALL_CALIB",
	CmdCalibMotors:                    "CALIB_MOTORS",
	CmdSetAlphaOpenLoopNoCollDetect:   "SET_ALPHA_OPEN_LOOP_NO_COLL_DETECT",
	CmdSetBetaOpenLoopNoCollDetect:    "SET_BETA_OPEN_LOOP_NO_COLL_DETECT",
	CmdSetAlphaClosedLoop:             "SET_ALPHA_CLOSED_LOOP",
	CmdSetBetaClosedLoop:              "SET_BETA_CLOSED_LOOP",
	CmdSetAlphaClosedLoopNoCollDetect: "SET_ALPHA_CLOSED_LOOP_NO_COLL_DETECT",
	CmdSetBetaClosedLoopNoCollDetect:  "SET_BETA_CLOSED_LOOP_NO_COLL_DETECT",
	CmdSwitchOnPreciseAlpha:           "SWITCH_ON_PRECISE_ALPHA",
	CmdSwitchOnPreciseBeta:            "SWITCH_ON_PRECISE_BETA",
	CmdSwitchOffPreciseAlpha:          "SWITCH_OFF_PRECISE_ALPHA",
	CmdSwitchOffPreciseBeta:           "SWITCH_OFF_PRECISE_BETA",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("COMMAND(%d)", uint16(c))
}

// Opcode returns the 8-bit wire opcode for c.
// An undefined command is a programming error, not a runtime condition.
func (c Command) Opcode() (uint16, error) {
	if _, ok := commandNames[c]; !ok {
		return 0, fmt.Errorf("protocol: undefined command %d", uint16(c))
	}
	if c > opcodeMask {
		return 0, fmt.Errorf("protocol: command %d exceeds 8-bit field", uint16(c))
	}
	return uint16(c), nil
}

// Commands returns every defined command, for table-driven checks.
func Commands() []Command {
	out := make([]Command, 0, len(commandNames))
	for c := range commandNames {
		out = append(out, c)
	}
	return out
}

// ResponseCode is the status carried in the low 10 bits of an inbound
// frame identifier.
type ResponseCode uint16

const (
	RespCommandAccepted          ResponseCode = 1
	RespValueOutOfRange          ResponseCode = 2
	RespInvalidTrajectory        ResponseCode = 3
	RespAlreadyInMotion          ResponseCode = 4
	RespDatumNotInitialized      ResponseCode = 5
	RespIncorrectAmountOfData    ResponseCode = 6
	RespCalibrationModeActive    ResponseCode = 7
	RespMotorNotCalibrated       ResponseCode = 8
	RespCollisionDetected        ResponseCode = 9
	RespHallSensorDisabled       ResponseCode = 10
	RespInvalidBroadcastCommand  ResponseCode = 11
	RespInvalidBootloaderCommand ResponseCode = 12
	RespInvalidCommand           ResponseCode = 13
	RespUnknownCommand           ResponseCode = 14
)

var responseNames = map[ResponseCode]string{
	RespCommandAccepted:          "COMMAND_ACCEPTED",
	RespValueOutOfRange:          "VALUE_OUT_OF_RANGE",
	RespInvalidTrajectory:        "INVALID_TRAJECTORY",
	RespAlreadyInMotion:          "ALREADY_IN_MOTION",
	RespDatumNotInitialized:      "DATUM_NOT_INITIALIZED",
	RespIncorrectAmountOfData:    "INCORRECT_AMOUNT_OF_DATA",
	RespCalibrationModeActive:    "CALIBRATION_MODE_ACTIVE",
	RespMotorNotCalibrated:       "MOTOR_NOT_CALIBRATED",
	RespCollisionDetected:        "COLLISION_DETECTED",
	RespHallSensorDisabled:       "HALL_SENSOR_DISABLED",
	RespInvalidBroadcastCommand:  "INVALID_BROADCAST_COMMAND",
	RespInvalidBootloaderCommand: "INVALID_BOOTLOADER_COMMAND",
	RespInvalidCommand:           "INVALID_COMMAND",
	RespUnknownCommand:           "UNKNOWN_COMMAND",
}

// Known reports whether r is a defined response code.
func (r ResponseCode) Known() bool {
	_, ok := responseNames[r]
	return ok
}

func (r ResponseCode) String() string {
	if name, ok := responseNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RESPONSE(%d)", uint16(r))
}
