package csvlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labrinston/can2pwm/canbus"
	"github.com/labrinston/can2pwm/icd"
)

// Logger renders can2pwm telemetry frames into table rows. Rows are flushed
// as they are written so an abrupt termination loses at most the row in
// flight. The sink is written from whichever goroutine calls HandleFrame;
// the expected setup is a single delivery goroutine (see Run).
type Logger struct {
	layout *TableLayout
	sink   RowSink
	log    *slog.Logger
}

// NewLogger writes the header row and returns a logger over the layout and
// sink.
func NewLogger(layout *TableLayout, sink RowSink, log *slog.Logger) (*Logger, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := sink.WriteRow(layout.Header()); err != nil {
		return nil, err
	}
	if err := sink.Flush(); err != nil {
		return nil, err
	}
	return &Logger{layout: layout, sink: sink, log: log}, nil
}

// HandleFrame decodes one frame and, if its packet type is in the layout,
// appends a row. Foreign device types, unknown message types and malformed
// payloads are skipped, not errors; only sink failures are returned.
func (lg *Logger) HandleFrame(frame canbus.Frame) error {
	mt, dev, _ := icd.ParseCANID(frame.ID)
	if !frame.Extended || dev != icd.DeviceCAN2PWM {
		return nil
	}
	pkt, err := icd.Decode(mt, frame.Payload())
	if err != nil {
		lg.log.Debug("csvlog: dropping malformed payload",
			"id", fmt.Sprintf("%08X", frame.ID), "err", err)
		return nil
	}
	if pkt == nil {
		lg.log.Debug("csvlog: dropping unknown message type",
			"id", fmt.Sprintf("%08X", frame.ID))
		return nil
	}
	row, ok := lg.layout.Row(frame, pkt)
	if !ok {
		return nil
	}
	if err := lg.sink.WriteRow(row); err != nil {
		return err
	}
	return lg.sink.Flush()
}

// Run consumes can2pwm frames from the mux until the context is cancelled,
// the mux closes, or the sink fails. It is the single delivery goroutine
// the sink contract assumes.
func (lg *Logger) Run(ctx context.Context, mux *canbus.Mux) error {
	frames, cancel := mux.Subscribe(icd.CAN2PWM(), 64)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := lg.HandleFrame(f); err != nil {
				return err
			}
		}
	}
}
