package canbus

import (
	"context"
	"errors"
)

// Bus represents a CAN bus connection which can send and receive CAN frames.
// Implementations must be safe for concurrent use by multiple goroutines.
type Bus interface {
	// Send transmits a frame. It may block until the frame is queued or sent.
	// Context cancellation aborts the operation and returns the context error.
	Send(ctx context.Context, frame Frame) error

	// Receive retrieves the next available frame, blocking until a frame is
	// available or the context is cancelled. Received frames carry their
	// local receive time in Frame.Timestamp.
	Receive(ctx context.Context) (Frame, error)

	// Close releases resources. Further Send/Receive return ErrClosed.
	Close() error
}

// ErrClosed indicates the bus or endpoint has been closed.
var ErrClosed = errors.New("canbus: closed")
