package icd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labrinston/can2pwm/canbus"
)

// Discovery timing defaults. The listen window bounds the whole enumeration
// pass; the poll interval bounds each individual receive so the deadline is
// honored even on a silent bus.
const (
	DefaultDiscoveryWindow = 2 * time.Second
	discoveryPoll          = 100 * time.Millisecond
)

// Device is one discovered bus participant. Records are created during a
// discovery pass and never mutated.
type Device struct {
	SerialNumber uint32
	Node         NodeID
}

func (d Device) String() string {
	return fmt.Sprintf("can2pwm %d @ %02X", d.SerialNumber, uint8(d.Node))
}

// Discover broadcasts an identification request and collects replies for
// the default listen window. See DiscoverWith.
func Discover(ctx context.Context, bus canbus.Bus) ([]Device, error) {
	return DiscoverWith(ctx, bus, DefaultDiscoveryWindow, slog.Default())
}

// DiscoverWith enumerates the devices on the bus: it broadcasts a
// zero-length identification request, then reads frames until the window
// elapses, decoding identification replies and deduplicating them by serial
// number. Devices are returned in first-seen order.
//
// A transmit failure aborts the pass with no devices. Replies claiming the
// broadcast address are malformed and skipped.
func DiscoverWith(ctx context.Context, bus canbus.Bus, window time.Duration, logger *slog.Logger) ([]Device, error) {
	req, err := Message(SerialNumberRequest(), Broadcast)
	if err != nil {
		return nil, err
	}
	if err := bus.Send(ctx, req); err != nil {
		return nil, fmt.Errorf("discovery request: %w", err)
	}

	var (
		devices []Device
		seen    = map[uint32]bool{}
	)
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		frame, err := receiveUntil(ctx, bus, discoveryPoll)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, canbus.ErrClosed) {
				return devices, err
			}
			return devices, fmt.Errorf("discovery receive: %w", err)
		}

		dev, ok := identification(frame)
		if !ok {
			continue
		}
		if dev.Node == Broadcast {
			logger.Warn("discovery: reply from broadcast address, skipping",
				"serial", dev.SerialNumber)
			continue
		}
		if seen[dev.SerialNumber] {
			continue
		}
		seen[dev.SerialNumber] = true
		devices = append(devices, dev)
		logger.Debug("discovery: device found",
			"serial", dev.SerialNumber, "node", uint8(dev.Node))
	}
	return devices, nil
}

// receiveUntil performs one bounded receive. The poll timeout surfaces as
// context.DeadlineExceeded.
func receiveUntil(ctx context.Context, bus canbus.Bus, timeout time.Duration) (canbus.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return bus.Receive(ctx)
}

// identification extracts a populated identification reply from a frame, if
// that is what it carries. Requests (zero-length) and other traffic do not
// qualify.
func identification(f canbus.Frame) (Device, bool) {
	mt, dev, node := ParseCANID(f.ID)
	if !f.Extended || dev != DeviceCAN2PWM || mt != TypeSerialNumber {
		return Device{}, false
	}
	sn, err := DecodeSerialNumber(f.Payload())
	if err != nil || sn.Request {
		return Device{}, false
	}
	return Device{SerialNumber: sn.SerialNumber, Node: node}, true
}
