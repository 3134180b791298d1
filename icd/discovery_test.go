package icd_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrinston/can2pwm/canbus"
	"github.com/labrinston/can2pwm/icd"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// respond mimics a set of devices: it waits for the broadcast
// identification request, then sends one reply frame per entry.
func respond(t *testing.T, bus *canbus.LoopbackBus, replies []canbus.Frame) {
	t.Helper()
	ep := bus.Open()
	go func() {
		defer ep.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for {
			f, err := ep.Receive(ctx)
			if err != nil {
				return
			}
			mt, _, node := icd.ParseCANID(f.ID)
			if mt != icd.TypeSerialNumber || node != icd.Broadcast || f.Len != 0 {
				continue
			}
			for _, r := range replies {
				if err := ep.Send(ctx, r); err != nil {
					return
				}
			}
			return
		}
	}()
}

func reply(t *testing.T, serial uint32, node icd.NodeID) canbus.Frame {
	t.Helper()
	f, err := icd.Message(icd.SerialNumber{HWRev: 1, SerialNumber: serial}, node)
	require.NoError(t, err)
	return f
}

func TestDiscoverDeduplicates(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()

	respond(t, bus, []canbus.Frame{
		reply(t, 1001, 0x01),
		reply(t, 1002, 0x02),
		reply(t, 1001, 0x01), // retransmission
		reply(t, 1003, 0x03),
	})

	host := bus.Open()
	defer host.Close()

	devices, err := icd.DiscoverWith(context.Background(), host, 300*time.Millisecond, quietLogger())
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, icd.Device{SerialNumber: 1001, Node: 0x01}, devices[0])
	assert.Equal(t, icd.Device{SerialNumber: 1002, Node: 0x02}, devices[1])
	assert.Equal(t, icd.Device{SerialNumber: 1003, Node: 0x03}, devices[2])
}

func TestDiscoverExcludesBroadcastReplies(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()

	respond(t, bus, []canbus.Frame{
		reply(t, 2001, 0x05),
		reply(t, 2002, icd.Broadcast), // malformed: claims the broadcast address
	})

	host := bus.Open()
	defer host.Close()

	devices, err := icd.DiscoverWith(context.Background(), host, 300*time.Millisecond, quietLogger())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, uint32(2001), devices[0].SerialNumber)
}

func TestDiscoverIgnoresForeignTraffic(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()

	foreign := canbus.Frame{ID: 0x123, Len: 2, Data: [8]byte{0xDE, 0xAD}}
	status := canbus.MustFrame(icd.MessageID(icd.TypeStatusB, 0x07), []byte{0, 100, 4, 0xB0})
	respond(t, bus, []canbus.Frame{foreign, status, reply(t, 3001, 0x07)})

	host := bus.Open()
	defer host.Close()

	devices, err := icd.DiscoverWith(context.Background(), host, 300*time.Millisecond, quietLogger())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, icd.Device{SerialNumber: 3001, Node: 0x07}, devices[0])
}

func TestDiscoverEmptyBus(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()

	host := bus.Open()
	defer host.Close()

	devices, err := icd.DiscoverWith(context.Background(), host, 250*time.Millisecond, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestDiscoverSendFailure(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	host := bus.Open()
	require.NoError(t, bus.Close())

	devices, err := icd.DiscoverWith(context.Background(), host, 250*time.Millisecond, quietLogger())
	assert.ErrorIs(t, err, canbus.ErrClosed)
	assert.Empty(t, devices)
}
