// Package canbus provides the CAN transport core used by the can2pwm ICD
// packages.
//
// It includes:
//   - A core Frame type with validation, binary marshaling helpers and the
//     receive timestamp carried through to logging
//   - A context-aware Bus interface with in-memory loopback, Linux
//     SocketCAN (linux-only) and SLCAN serial implementations
//   - A Mux for fanning frames out to filtered subscribers
//   - A slog-based logging decorator
package canbus
