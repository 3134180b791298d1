package icd

import (
	"encoding/binary"
	"strconv"
)

// InputMode selects the command source of a channel.
type InputMode uint8

const (
	InputStandby InputMode = 0
	InputPWM     InputMode = 1
	InputRPM     InputMode = 2
)

// FeedbackMode selects how position feedback is measured.
type FeedbackMode uint8

const (
	FeedbackNone       FeedbackMode = 0
	FeedbackRPM        FeedbackMode = 1
	FeedbackPulseWidth FeedbackMode = 2
	FeedbackDutyCycle  FeedbackMode = 3
	FeedbackAnalog     FeedbackMode = 4
)

// StatusA bit fields within the 16-bit status word. The inputMode and
// feedbackMode mask/shift pairs are taken verbatim from the hardware ICD;
// the feedback mask is not a contiguous bit range and the input shift does
// not align with its mask. They must stay exactly as the device transmits
// them (pending hardware-spec confirmation).
const (
	statusInputModeMask     = 0xC0
	statusInputModeShift    = 5
	statusFeedbackModeMask  = 0x1B
	statusFeedbackModeShift = 2
	statusValidInputBit     = 1
	statusValidFeedbackBit  = 0
	statusEnabledBit        = 15
	statusReservedMask      = 0x7C00
	statusReservedShift     = 10
	statusMapEnabledBit     = 9
	statusMapInvalidBit     = 8
)

// StatusA is the primary telemetry packet. It is only ever transmitted by
// the device, so it has no payload marshaler.
//
// Layout (8 bytes): 16-bit status word, signed 16-bit command, unsigned
// 16-bit feedback, unsigned 16-bit pwm (µs).
type StatusA struct {
	Status        uint16
	InputMode     InputMode
	FeedbackMode  FeedbackMode
	ValidInput    bool
	ValidFeedback bool
	Enabled       bool
	Reserved      uint8
	MapEnabled    bool
	MapInvalid    bool
	Command       int16
	Feedback      uint16
	PWM           uint16 // µs
}

func (StatusA) Type() MessageType { return TypeStatusA }
func (StatusA) Name() string      { return "StatusA" }

func (p StatusA) FieldValues() []string {
	return []string{
		strconv.FormatUint(uint64(p.Status), 10),
		strconv.Itoa(int(p.InputMode)),
		strconv.Itoa(int(p.FeedbackMode)),
		strconv.FormatBool(p.ValidInput),
		strconv.FormatBool(p.ValidFeedback),
		strconv.FormatBool(p.Enabled),
		strconv.Itoa(int(p.Reserved)),
		strconv.FormatBool(p.MapEnabled),
		strconv.FormatBool(p.MapInvalid),
		strconv.Itoa(int(p.Command)),
		strconv.FormatUint(uint64(p.Feedback), 10),
		strconv.FormatUint(uint64(p.PWM), 10),
	}
}

func bit(field uint16, pos uint) bool {
	return field>>pos&0x1 == 1
}

// DecodeStatusA decodes an 8-byte statusA telemetry payload.
func DecodeStatusA(data []byte) (StatusA, error) {
	if len(data) != 8 {
		return StatusA{}, &LengthError{Packet: "StatusA", Len: len(data), Want: "8"}
	}
	status := binary.BigEndian.Uint16(data[0:2])
	return StatusA{
		Status:        status,
		InputMode:     InputMode(status & statusInputModeMask >> statusInputModeShift),
		FeedbackMode:  FeedbackMode(status & statusFeedbackModeMask >> statusFeedbackModeShift),
		ValidInput:    bit(status, statusValidInputBit),
		ValidFeedback: bit(status, statusValidFeedbackBit),
		Enabled:       bit(status, statusEnabledBit),
		Reserved:      uint8(status & statusReservedMask >> statusReservedShift),
		MapEnabled:    bit(status, statusMapEnabledBit),
		MapInvalid:    bit(status, statusMapInvalidBit),
		Command:       int16(binary.BigEndian.Uint16(data[2:4])),
		Feedback:      binary.BigEndian.Uint16(data[4:6]),
		PWM:           binary.BigEndian.Uint16(data[6:8]),
	}, nil
}

// statusBScale is the wire resolution of StatusB: 10 mA and 10 mV per bit.
const statusBScale = 10

// StatusB is the electrical telemetry packet.
//
// Layout (4 bytes): signed 16-bit current at 10 mA per bit, unsigned 16-bit
// voltage at 10 mV per bit. Encoding truncates toward zero, so values are
// not round-trip exact below 10 mA/mV resolution.
type StatusB struct {
	Current int32  // mA
	Voltage uint32 // mV
}

func (StatusB) Type() MessageType { return TypeStatusB }
func (StatusB) Name() string      { return "StatusB" }

func (p StatusB) FieldValues() []string {
	return []string{
		strconv.Itoa(int(p.Current)),
		strconv.FormatUint(uint64(p.Voltage), 10),
	}
}

func (p StatusB) MarshalPayload() ([]byte, error) {
	current := p.Current / statusBScale
	if current < -0x8000 || current > 0x7FFF {
		return nil, &RangeError{Field: "current", Value: int64(p.Current), Min: -0x8000 * statusBScale, Max: 0x7FFF * statusBScale}
	}
	voltage := p.Voltage / statusBScale
	if voltage > 0xFFFF {
		return nil, &RangeError{Field: "voltage", Value: int64(p.Voltage), Min: 0, Max: 0xFFFF * statusBScale}
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(int16(current)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(voltage))
	return buf, nil
}

// DecodeStatusB decodes a 4-byte statusB telemetry payload.
func DecodeStatusB(data []byte) (StatusB, error) {
	if len(data) != 4 {
		return StatusB{}, &LengthError{Packet: "StatusB", Len: len(data), Want: "4"}
	}
	return StatusB{
		Current: int32(int16(binary.BigEndian.Uint16(data[0:2]))) * statusBScale,
		Voltage: uint32(binary.BigEndian.Uint16(data[2:4])) * statusBScale,
	}, nil
}
