// internal/canbus/slcan.go
package canbus

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

// SLCANConfig is minimal transport config for an slcan (LAWICEL) adapter.
type SLCANConfig struct {
	Port     string        // serial device, e.g. /dev/ttyUSB0
	BaudRate int           // serial line rate (dongle side), e.g. 921600
	Bitrate  int           // CAN bitrate in bit/s, e.g. 1000000
	ReadWait time.Duration // serial read slice; defaults to 100ms
}

// bitrateCodes maps CAN bitrates to slcan 'S' setup codes.
var bitrateCodes = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// SLCAN implements Bus over a serial slcan adapter.
//
// A single reader goroutine parses inbound lines into a buffered frame
// channel; Recv drains that channel with a timer. Send holds a mutex so
// concurrent sessions sharing the adapter serialize on the wire.
type SLCAN struct {
	port serial.Port

	sendMu sync.Mutex

	frames chan Frame
	done   chan struct{}

	closeOnce sync.Once
}

// OpenSLCAN opens the serial port, configures the CAN bitrate and opens
// the channel on the adapter.
func OpenSLCAN(cfg SLCANConfig) (*SLCAN, error) {
	if cfg.Port == "" {
		return nil, errors.New("slcan: port required")
	}
	code, ok := bitrateCodes[cfg.Bitrate]
	if !ok {
		return nil, fmt.Errorf("slcan: unsupported CAN bitrate %d", cfg.Bitrate)
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 921600
	}
	if cfg.ReadWait <= 0 {
		cfg.ReadWait = 100 * time.Millisecond
	}

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.ReadWait,
	})
	if err != nil {
		return nil, err
	}

	b := &SLCAN{
		port:   port,
		frames: make(chan Frame, 64),
		done:   make(chan struct{}),
	}

	// Close any stale channel, set bitrate, open.
	for _, cmd := range []string{"C\r", "S" + string(code) + "\r", "O\r"} {
		if _, err := port.Write([]byte(cmd)); err != nil {
			port.Close()
			return nil, fmt.Errorf("slcan: setup write failed: %w", err)
		}
	}

	go b.readLoop()

	return b, nil
}

// Send encodes and transmits one frame.
func (b *SLCAN) Send(f Frame) error {
	line, err := marshalFrame(f)
	if err != nil {
		return err
	}

	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	if _, err := b.port.Write(line); err != nil {
		return fmt.Errorf("slcan: send failed: %w", err)
	}
	return nil
}

// Recv returns the next parsed inbound frame, waiting up to wait.
func (b *SLCAN) Recv(wait time.Duration) (Frame, bool, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case f := <-b.frames:
		return f, true, nil
	case <-b.done:
		return Frame{}, false, ErrClosed
	case <-timer.C:
		return Frame{}, false, nil
	}
}

// Close closes the CAN channel on the adapter and the serial port.
func (b *SLCAN) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		b.sendMu.Lock()
		b.port.Write([]byte("C\r")) // best effort
		err = b.port.Close()
		b.sendMu.Unlock()
	})
	return err
}

// readLoop accumulates serial bytes and parses CR-terminated lines.
func (b *SLCAN) readLoop() {
	buf := make([]byte, 256)
	var line []byte

	for {
		select {
		case <-b.done:
			return
		default:
		}

		n, err := b.port.Read(buf)
		if n > 0 {
			for _, c := range buf[:n] {
				switch c {
				case '\r', '\a':
					if len(line) > 0 {
						if f, ok := parseLine(string(line)); ok {
							select {
							case b.frames <- f:
							case <-b.done:
								return
							}
						}
						line = line[:0]
					}
				default:
					line = append(line, c)
				}
			}
		}
		if err != nil {
			// Read timeouts are the normal idle path.
			if err == serial.ErrTimeout {
				continue
			}
			return
		}
	}
}

// marshalFrame encodes a data frame as an slcan ASCII line.
//
//	t iii l dd..   standard id
//	T iiiiiiii l dd..   extended id
func marshalFrame(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var sb strings.Builder
	if f.Extended {
		fmt.Fprintf(&sb, "T%08X", f.ID)
	} else {
		fmt.Fprintf(&sb, "t%03X", f.ID)
	}
	fmt.Fprintf(&sb, "%d", len(f.Data))
	fmt.Fprintf(&sb, "%X", f.Data)
	sb.WriteByte('\r')
	return []byte(sb.String()), nil
}

// parseLine decodes one slcan line into a frame.
// Non-data lines (status, remote frames, command echoes) are skipped.
func parseLine(line string) (Frame, bool) {
	if len(line) < 2 {
		return Frame{}, false
	}

	var idLen int
	var ext bool
	switch line[0] {
	case 't':
		idLen = 3
	case 'T':
		idLen = 8
		ext = true
	default:
		return Frame{}, false
	}

	if len(line) < 1+idLen+1 {
		return Frame{}, false
	}

	var id uint32
	if _, err := fmt.Sscanf(line[1:1+idLen], "%X", &id); err != nil {
		return Frame{}, false
	}

	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > 8 {
		return Frame{}, false
	}
	rest := line[1+idLen+1:]
	if len(rest) < dlc*2 {
		return Frame{}, false
	}
	data, err := hex.DecodeString(rest[:dlc*2])
	if err != nil {
		return Frame{}, false
	}

	return Frame{ID: id, Extended: ext, Data: data}, true
}
