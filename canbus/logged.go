package canbus

import (
	"context"
	"log/slog"
)

// LogOption is a bitmask for selecting which operations to log.
type LogOption uint8

const (
	LogNone LogOption = 0
	LogRead LogOption = 1 << iota
	LogWrite
	LogAll = LogRead | LogWrite
)

// NewLoggedBus wraps the given Bus and logs selected operations at the given
// level using a slog.Logger.
func NewLoggedBus(inner Bus, logger *slog.Logger, level slog.Level, opts LogOption) Bus {
	return &loggedBus{
		inner:  inner,
		logger: logger,
		level:  level,
		opts:   opts,
	}
}

// NewLoggedBusWithFilter is like NewLoggedBus but only logs frames that
// satisfy the provided filter. A nil filter logs all frames.
func NewLoggedBusWithFilter(inner Bus, logger *slog.Logger, level slog.Level, opts LogOption, filter FrameFilter) Bus {
	return &loggedBus{
		inner:  inner,
		logger: logger,
		level:  level,
		opts:   opts,
		filter: filter,
	}
}

type loggedBus struct {
	inner  Bus
	logger *slog.Logger
	level  slog.Level
	opts   LogOption
	filter FrameFilter
}

// Send logs the frame and the result when write logging is enabled.
func (l *loggedBus) Send(ctx context.Context, frame Frame) error {
	if l.opts&LogWrite != 0 && (l.filter == nil || l.filter(frame)) {
		l.logger.Log(ctx, l.level, "canbus send",
			"id", frame.ID,
			"extended", frame.Extended,
			"rtr", frame.RTR,
			"len", int(frame.Len),
			"data", frame.Payload(),
			"string", frame.String(),
		)
	}
	err := l.inner.Send(ctx, frame)
	if l.opts&LogWrite != 0 && err != nil {
		l.logger.Log(ctx, slog.LevelError, "canbus send error",
			"id", frame.ID,
			"error", err,
		)
	}
	return err
}

// Receive logs the received frame or error when read logging is enabled.
func (l *loggedBus) Receive(ctx context.Context) (Frame, error) {
	f, err := l.inner.Receive(ctx)
	if l.opts&LogRead != 0 {
		if err != nil {
			l.logger.Log(ctx, slog.LevelError, "canbus receive error",
				"error", err,
			)
		} else if l.filter == nil || l.filter(f) {
			l.logger.Log(ctx, l.level, "canbus receive",
				"id", f.ID,
				"extended", f.Extended,
				"rtr", f.RTR,
				"len", int(f.Len),
				"data", f.Payload(),
				"string", f.String(),
			)
		}
	}
	return f, err
}

// Close forwards to the inner Bus without logging.
func (l *loggedBus) Close() error {
	return l.inner.Close()
}
