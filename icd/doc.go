// Package icd implements the interface control document for the can2pwm
// family of CAN actuator controllers: the 29-bit identifier addressing
// scheme, the fixed binary packet layouts, and the broadcast device
// discovery handshake.
//
// All codec operations are pure and safe for concurrent use. Commands are
// fire-and-forget; telemetry arrives unsolicited and is decoded with
// Decode, which silently ignores message types belonging to other device
// families sharing the bus.
package icd
