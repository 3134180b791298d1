package canbus

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SLCAN (Lawicel) serial-line CAN adapter. Frames are exchanged as ASCII
// commands over a serial port:
//
//	tIIIL<data>   standard data frame (3 hex digit id)
//	TIIIIIIIIL<data>  extended data frame (8 hex digit id)
//	rIIIL / RIIIIIIIIL  RTR frames
//
// Commands are terminated with CR. 'S<n>' selects the CAN bit-rate, 'O'
// opens and 'C' closes the channel.

// SLCANOptions configures DialSLCAN.
type SLCANOptions struct {
	// Bitrate is the CAN bit-rate in bit/s. Zero leaves the adapter's
	// current setting untouched. Supported rates: 10k, 20k, 50k, 100k,
	// 125k, 250k, 500k, 800k, 1M.
	Bitrate uint32

	// BaudRate is the serial port speed. Defaults to 115200.
	BaudRate int
}

var slcanBitrates = map[uint32]byte{
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

type slcanBus struct {
	port   serial.Port
	frames chan Frame
	closed chan struct{}

	wmu       sync.Mutex
	closeOnce sync.Once
	readErr   error
}

// DialSLCAN opens an SLCAN adapter on the given serial port (e.g.,
// "/dev/ttyACM0") and opens the CAN channel.
func DialSLCAN(portName string, opts SLCANOptions) (Bus, error) {
	baud := opts.BaudRate
	if baud == 0 {
		baud = 115200
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("canbus: open slcan port: %w", err)
	}
	b := &slcanBus{
		port:   port,
		frames: make(chan Frame, 64),
		closed: make(chan struct{}),
	}
	if opts.Bitrate != 0 {
		code, ok := slcanBitrates[opts.Bitrate]
		if !ok {
			port.Close()
			return nil, fmt.Errorf("canbus: unsupported slcan bitrate %d", opts.Bitrate)
		}
		if err := b.command("S" + string(code)); err != nil {
			port.Close()
			return nil, err
		}
	}
	if err := b.command("O"); err != nil {
		port.Close()
		return nil, err
	}
	go b.reader()
	return b, nil
}

func (b *slcanBus) command(cmd string) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	_, err := b.port.Write([]byte(cmd + "\r"))
	if err != nil {
		return fmt.Errorf("canbus: slcan command %q: %w", cmd, err)
	}
	return nil
}

func (b *slcanBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.command("C")
		close(b.closed)
		if cerr := b.port.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

// Send encodes the frame as an SLCAN command and writes it to the port.
func (b *slcanBus) Send(ctx context.Context, frame Frame) error {
	select {
	case <-b.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	line, err := encodeSLCAN(frame)
	if err != nil {
		return err
	}
	return b.command(line)
}

// Receive returns the next frame parsed by the background reader.
func (b *slcanBus) Receive(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-b.frames:
		if !ok {
			if b.readErr != nil {
				return Frame{}, b.readErr
			}
			return Frame{}, ErrClosed
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// reader consumes bytes from the port, splits on CR and converts frame
// reports into Frames. Non-frame responses (command acks, error bells) are
// discarded.
func (b *slcanBus) reader() {
	defer close(b.frames)
	buf := make([]byte, 256)
	var line []byte
	for {
		n, err := b.port.Read(buf)
		if err != nil {
			select {
			case <-b.closed:
			default:
				b.readErr = fmt.Errorf("canbus: slcan read: %w", err)
			}
			return
		}
		for _, c := range buf[:n] {
			switch c {
			case '\r':
				if f, ok := parseSLCAN(string(line)); ok {
					f.Timestamp = time.Now()
					select {
					case b.frames <- f:
					case <-b.closed:
						return
					}
				}
				line = line[:0]
			case '\a', '\n':
				line = line[:0]
			default:
				line = append(line, c)
			}
		}
	}
}

// encodeSLCAN renders a frame as an SLCAN command without the trailing CR.
func encodeSLCAN(f Frame) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	var sb strings.Builder
	switch {
	case f.Extended && f.RTR:
		fmt.Fprintf(&sb, "R%08X%d", f.ID, f.Len)
	case f.Extended:
		fmt.Fprintf(&sb, "T%08X%d", f.ID, f.Len)
	case f.RTR:
		fmt.Fprintf(&sb, "r%03X%d", f.ID, f.Len)
	default:
		fmt.Fprintf(&sb, "t%03X%d", f.ID, f.Len)
	}
	if !f.RTR {
		fmt.Fprintf(&sb, "%X", f.Payload())
	}
	return sb.String(), nil
}

// parseSLCAN parses a frame report line. It returns false for anything that
// is not a well-formed frame report.
func parseSLCAN(line string) (Frame, bool) {
	if len(line) == 0 {
		return Frame{}, false
	}
	var f Frame
	var idLen int
	switch line[0] {
	case 't':
		idLen = 3
	case 'T':
		idLen = 8
		f.Extended = true
	case 'r':
		idLen = 3
		f.RTR = true
	case 'R':
		idLen = 8
		f.Extended = true
		f.RTR = true
	default:
		return Frame{}, false
	}
	rest := line[1:]
	if len(rest) < idLen+1 {
		return Frame{}, false
	}
	id, err := strconv.ParseUint(rest[:idLen], 16, 32)
	if err != nil {
		return Frame{}, false
	}
	f.ID = uint32(id)
	dlc := rest[idLen] - '0'
	if dlc > 8 {
		return Frame{}, false
	}
	f.Len = dlc
	if !f.RTR {
		data, err := hex.DecodeString(rest[idLen+1:])
		if err != nil || len(data) != int(dlc) {
			return Frame{}, false
		}
		copy(f.Data[:], data)
	}
	if f.Validate() != nil {
		return Frame{}, false
	}
	return f, true
}
