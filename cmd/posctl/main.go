// cmd/posctl/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fpslab/positioner/internal/canbus"
	"github.com/fpslab/positioner/internal/config"
	"github.com/fpslab/positioner/internal/logging"
	"github.com/fpslab/positioner/internal/positioner"
)

const usage = `usage: posctl <config.yaml> <command> [args]

commands:
  discover                 broadcast GET_ID and print the device address
  init <current> <speed>   discover, precision off, set current and speed
  id                       print the device identifier
  version                  print the firmware version
  status                   print the raw status register and active flags
  position                 print both axis positions in degrees
  move <alpha> <beta>      absolute move in degrees, wait for completion
  move-rel <alpha> <beta>  relative move in degrees, wait for completion
  wait                     wait for the current motion to complete
  speed <alpha> <beta>     set motor speeds in RPM
  current <alpha> <beta>   set drive currents in percent
  datum                    initialize both datums
  calib                    run motor calibration
  mode <open-loop|closed-loop|closed-loop-nc>
  precision <on|off>       toggle precision mode on both axes
  low-power <on|off>       toggle hall shutdown after moves
  firmware <file>          stream a firmware image to the device
  trajectory <file.yaml>   upload a trajectory file
  start                    start the uploaded trajectory
  stop                     stop a running trajectory
  power                    print both motor currents in mA
  vmain                    print the main supply ADC reading
  hall                     print raw hall sensor positions
  hall-output              print output positions derived from hall sensors
  hall-calib               print the stored hall sensor calibration
  low-current <a> <b>      set the low power mode drive currents
  datum-alpha              move the alpha axis to its datum
  datum-beta               move the beta axis to its datum
  flash-erase              erase the external flash
  flash-read <addr>        read a word of external flash
  flash-write <addr> <val> write a word of external flash
  reboot                   request a device reboot`

func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}

	cfgPath := os.Args[1]
	command := os.Args[2]
	args := os.Args[3:]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger, err := logging.New(cfg.Positioner.Logging)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// --------------------
	// Open the bus, bind the session
	// --------------------

	bus, err := canbus.OpenSLCAN(canbus.SLCANConfig{
		Port:     cfg.Positioner.Bus.Port,
		BaudRate: cfg.Positioner.Bus.BaudRate,
		Bitrate:  cfg.Positioner.Bus.Bitrate,
	})
	if err != nil {
		log.Fatalf("bus open failed: %v", err)
	}
	defer bus.Close()

	dev := cfg.Positioner.Device
	sessionCfg := positioner.Config{
		Address:      dev.Address,
		RecvWait:     time.Duration(dev.RecvTimeoutMs) * time.Millisecond,
		RecvAttempts: dev.RecvAttempts,
		PollInterval: time.Duration(dev.PollIntervalMs) * time.Millisecond,
		Logger:       logger,
	}

	var pos *positioner.Positioner
	if dev.Address == 0 {
		pos, err = positioner.Discover(sessionCfg, bus)
		if err != nil {
			log.Fatalf("discovery failed: %v", err)
		}
		logger.Info("device discovered", zap.Uint16("address", pos.Address()))
	} else {
		pos, err = positioner.New(sessionCfg, bus)
		if err != nil {
			log.Fatalf("session setup failed: %v", err)
		}
	}

	if err := run(pos, dev, command, args); err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		os.Exit(1)
	}
}

func run(pos *positioner.Positioner, dev config.DeviceConfig, command string, args []string) error {
	switch command {

	case "discover", "id":
		id, err := pos.GetID()
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil

	case "init":
		current, speed := uint32(0), uint32(1000)
		if len(args) >= 1 {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("bad current %q: %w", args[0], err)
			}
			current = uint32(v)
		}
		if len(args) >= 2 {
			v, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("bad speed %q: %w", args[1], err)
			}
			speed = uint32(v)
		}
		if err := pos.SetPrecisionMode(false); err != nil {
			return err
		}
		if err := pos.SetCurrent(current, current); err != nil {
			return err
		}
		return pos.SetSpeed(speed, speed)

	case "version":
		v, err := pos.GetFirmwareVersion()
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil

	case "status":
		st, err := pos.GetStatus()
		if err != nil {
			return err
		}
		fmt.Printf("0x%016X\n", st.Raw)
		for _, name := range st.ActiveFlags() {
			fmt.Println("  " + name)
		}
		return nil

	case "position":
		alpha, beta, err := pos.GetPosition()
		if err != nil {
			return err
		}
		fmt.Printf("alpha: %.4f deg\nbeta:  %.4f deg\n", alpha, beta)
		return nil

	case "move", "move-rel":
		alpha, beta, err := parseAnglePair(args)
		if err != nil {
			return err
		}
		var alphaETA, betaETA float64
		if command == "move" {
			alphaETA, betaETA, err = pos.GotoAbsolute(alpha, beta)
		} else {
			alphaETA, betaETA, err = pos.GotoRelative(alpha, beta)
		}
		if err != nil {
			return err
		}
		fmt.Printf("alpha ETA: %.3f s, beta ETA: %.3f s\n", alphaETA, betaETA)
		return waitMove(pos, dev)

	case "wait":
		return waitMove(pos, dev)

	case "speed":
		alpha, beta, err := parseUintPair(args)
		if err != nil {
			return err
		}
		return pos.SetSpeed(alpha, beta)

	case "current":
		alpha, beta, err := parseUintPair(args)
		if err != nil {
			return err
		}
		return pos.SetCurrent(alpha, beta)

	case "low-current":
		alpha, beta, err := parseUintPair(args)
		if err != nil {
			return err
		}
		return pos.SetLowPowerCurrent(alpha, beta)

	case "datum":
		return pos.InitializeDatums()

	case "datum-alpha":
		return pos.InitializeDatumAlpha()

	case "datum-beta":
		return pos.InitializeDatumBeta()

	case "calib":
		return pos.CalibMotors()

	case "mode":
		if len(args) != 1 {
			return fmt.Errorf("mode needs one of: open-loop, closed-loop, closed-loop-nc")
		}
		switch args[0] {
		case "open-loop":
			return pos.SetModeOpenLoop()
		case "closed-loop":
			return pos.SetModeClosedLoop()
		case "closed-loop-nc":
			return pos.SetModeClosedLoopNoCollision()
		default:
			return fmt.Errorf("unknown mode %q", args[0])
		}

	case "precision":
		on, err := parseOnOff(args)
		if err != nil {
			return err
		}
		return pos.SetPrecisionMode(on)

	case "low-power":
		on, err := parseOnOff(args)
		if err != nil {
			return err
		}
		return pos.SetLowPowerMode(on)

	case "firmware":
		if len(args) != 1 {
			return fmt.Errorf("firmware needs an image path")
		}
		return pos.UpgradeFirmware(args[0])

	case "trajectory":
		if len(args) != 1 {
			return fmt.Errorf("trajectory needs a yaml path")
		}
		alpha, beta, err := loadTrajectory(args[0])
		if err != nil {
			return err
		}
		return pos.SendTrajectory(alpha, beta)

	case "start":
		return pos.StartTrajectory()

	case "stop":
		return pos.StopTrajectory()

	case "power":
		alpha, beta, err := pos.GetPower()
		if err != nil {
			return err
		}
		fmt.Printf("alpha: %d mA\nbeta:  %d mA\n", alpha, beta)
		return nil

	case "vmain":
		v, err := pos.GetVMain()
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil

	case "hall-output":
		alpha, beta, err := pos.GetHallOutput()
		if err != nil {
			return err
		}
		fmt.Printf("alpha: %.4f deg\nbeta:  %.4f deg\n", alpha, beta)
		return nil

	case "hall-calib":
		calib, err := pos.GetHallCalibration()
		if err != nil {
			return err
		}
		fmt.Printf("alpha: max %d/%d min %d/%d\n",
			calib.AlphaMaxA, calib.AlphaMaxB, calib.AlphaMinA, calib.AlphaMinB)
		fmt.Printf("beta:  max %d/%d min %d/%d\n",
			calib.BetaMaxA, calib.BetaMaxB, calib.BetaMinA, calib.BetaMinB)
		return nil

	case "flash-erase":
		return pos.EraseFlash()

	case "hall":
		alpha, beta, err := pos.GetHall()
		if err != nil {
			return err
		}
		fmt.Printf("alpha: %.4f deg\nbeta:  %.4f deg\n", alpha, beta)
		return nil

	case "flash-read":
		if len(args) != 1 {
			return fmt.Errorf("flash-read needs an address")
		}
		addr, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("bad address %q: %w", args[0], err)
		}
		v, err := pos.ReadFlash(uint32(addr))
		if err != nil {
			return err
		}
		fmt.Printf("0x%08X\n", v)
		return nil

	case "flash-write":
		if len(args) != 2 {
			return fmt.Errorf("flash-write needs an address and a value")
		}
		addr, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("bad address %q: %w", args[0], err)
		}
		val, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("bad value %q: %w", args[1], err)
		}
		return pos.WriteFlash(uint32(addr), uint32(val))

	case "reboot":
		return pos.RequestReboot()

	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

// waitMove bounds the motion wait per config; 0 keeps the legacy
// unbounded wait.
func waitMove(pos *positioner.Positioner, dev config.DeviceConfig) error {
	if dev.WaitMoveTimeoutS <= 0 {
		return pos.WaitMove(context.Background())
	}
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(dev.WaitMoveTimeoutS)*time.Second)
	defer cancel()
	return pos.WaitMove(ctx)
}

func parseAnglePair(args []string) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("need two angles in degrees")
	}
	alpha, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad angle %q: %w", args[0], err)
	}
	beta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad angle %q: %w", args[1], err)
	}
	return alpha, beta, nil
}

func parseUintPair(args []string) (uint32, uint32, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("need two values")
	}
	alpha, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad value %q: %w", args[0], err)
	}
	beta, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad value %q: %w", args[1], err)
	}
	return uint32(alpha), uint32(beta), nil
}

func parseOnOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("need on or off")
	}
	switch args[0] {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("need on or off, got %q", args[0])
	}
}

// trajectoryFile is the on-disk trajectory format: per-axis lists of
// [angle_deg, seconds] pairs.
type trajectoryFile struct {
	Alpha [][2]float64 `yaml:"alpha"`
	Beta  [][2]float64 `yaml:"beta"`
}

func loadTrajectory(path string) ([]positioner.Waypoint, []positioner.Waypoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var tf trajectoryFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, nil, fmt.Errorf("trajectory parse %s: %w", path, err)
	}

	toWaypoints := func(points [][2]float64) []positioner.Waypoint {
		out := make([]positioner.Waypoint, 0, len(points))
		for _, p := range points {
			out = append(out, positioner.Waypoint{AngleDeg: p[0], Seconds: p[1]})
		}
		return out
	}
	return toWaypoints(tf.Alpha), toWaypoints(tf.Beta), nil
}
