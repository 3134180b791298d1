package canbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrinston/can2pwm/canbus"
)

func waitFrame(t *testing.T, ch <-chan canbus.Frame) canbus.Frame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
		return canbus.Frame{}
	}
}

func TestMuxFiltering(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()
	mux := canbus.NewMux(bus.Open())
	defer mux.Close()

	status, cancelStatus := mux.Subscribe(canbus.ByMask(0x00600000, 0x00F00000), 4)
	defer cancelStatus()
	everything, cancelAll := mux.Subscribe(nil, 4)
	defer cancelAll()

	producer := bus.Open()
	defer producer.Close()
	ctx := context.Background()

	require.NoError(t, producer.Send(ctx, canbus.MustFrame(0x07600A01, []byte{1})))
	require.NoError(t, producer.Send(ctx, canbus.MustFrame(0x07100A01, []byte{2})))

	assert.Equal(t, uint32(0x07600A01), waitFrame(t, status).ID)
	assert.Equal(t, uint32(0x07600A01), waitFrame(t, everything).ID)
	assert.Equal(t, uint32(0x07100A01), waitFrame(t, everything).ID)

	// The command frame never reaches the status subscription.
	select {
	case f := <-status:
		t.Fatalf("unexpected frame %08X", f.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMuxUnsubscribe(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()
	mux := canbus.NewMux(bus.Open())
	defer mux.Close()

	ch, cancel := mux.Subscribe(nil, 1)
	cancel()
	cancel() // idempotent

	_, ok := <-ch
	assert.False(t, ok, "cancel closes the channel")
}

func TestMuxSubscribeAfterClose(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()
	mux := canbus.NewMux(bus.Open())
	require.NoError(t, mux.Close())

	// A late subscriber must not block forever on a channel nothing feeds.
	ch, cancel := mux.Subscribe(nil, 1)
	defer cancel()
	_, ok := <-ch
	assert.False(t, ok, "channel is closed on arrival")
}

func TestMuxCloseClosesSubscribers(t *testing.T) {
	bus := canbus.NewLoopbackBus()
	defer bus.Close()
	mux := canbus.NewMux(bus.Open())

	ch, _ := mux.Subscribe(nil, 1)
	require.NoError(t, mux.Close())

	_, ok := <-ch
	assert.False(t, ok)
}
