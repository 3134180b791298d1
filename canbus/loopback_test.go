package canbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrinston/can2pwm/canbus"
)

func TestLoopbackFanout(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()

	host := bus.Open()
	devA := bus.Open()
	devB := bus.Open()
	defer host.Close()
	defer devA.Close()
	defer devB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sent := canbus.MustFrame(0x07100AFF, []byte{0x05, 0xDC})
	require.NoError(t, host.Send(ctx, sent))

	for _, dev := range []canbus.Bus{devA, devB} {
		got, err := dev.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Payload(), got.Payload())
		assert.False(t, got.Timestamp.IsZero(), "delivery stamps a receive time")
	}

	// The sender does not hear its own frame.
	short, shortCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer shortCancel()
	_, err := host.Receive(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopbackRejectsInvalid(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()
	ep := bus.Open()
	defer ep.Close()

	err := ep.Send(context.Background(), canbus.Frame{ID: 0x800})
	assert.ErrorIs(t, err, canbus.ErrInvalidID)
}

func TestLoopbackClose(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	a := bus.Open()
	b := bus.Open()
	ctx := context.Background()

	require.NoError(t, a.Close())
	_, err := a.Receive(ctx)
	assert.ErrorIs(t, err, canbus.ErrClosed)
	assert.ErrorIs(t, a.Send(ctx, canbus.MustFrame(0x1, nil)), canbus.ErrClosed)

	// Closing the bus detaches surviving endpoints too.
	require.NoError(t, bus.Close())
	_, err = b.Receive(ctx)
	assert.ErrorIs(t, err, canbus.ErrClosed)
	assert.ErrorIs(t, b.Send(ctx, canbus.MustFrame(0x1, nil)), canbus.ErrClosed)

	// Opening after close yields a dead endpoint rather than a panic.
	c := bus.Open()
	_, err = c.Receive(ctx)
	assert.ErrorIs(t, err, canbus.ErrClosed)
}

func TestReceiveHonorsContext(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()
	ep := bus.Open()
	defer ep.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ep.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
