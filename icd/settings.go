package icd

import (
	"encoding/binary"
	"strconv"
)

// Telemetry timing fields are carried as multiples of 50 ms in one byte.
const (
	telemetryStep = 50
	telemetryMax  = 10000 // ms

	telemetryStatusABit   = 7
	telemetryStatusBBit   = 6
	telemetryReservedMask = 0x3F
)

// TelemetrySettings configures the device's periodic status transmissions.
//
// Layout (3 bytes): period÷50, silence÷50, flag byte with statusA enable in
// bit 7, statusB enable in bit 6 and the low six bits reserved.
type TelemetrySettings struct {
	Period   uint16 // ms, multiple of 50, 0..10000
	Silence  uint16 // ms, multiple of 50, 0..10000
	StatusA  bool
	StatusB  bool
	Reserved uint8
}

func (TelemetrySettings) Type() MessageType { return TypeTelemetrySettings }
func (TelemetrySettings) Name() string      { return "TelemetrySettings" }

func (p TelemetrySettings) FieldValues() []string {
	return []string{
		strconv.Itoa(int(p.Period)),
		strconv.Itoa(int(p.Silence)),
		strconv.FormatBool(p.StatusA),
		strconv.FormatBool(p.StatusB),
		strconv.Itoa(int(p.Reserved)),
	}
}

func telemetryInterval(name string, ms uint16) (byte, error) {
	if ms > telemetryMax || ms%telemetryStep != 0 {
		return 0, &RangeError{Field: name, Value: int64(ms), Min: 0, Max: telemetryMax, Step: telemetryStep}
	}
	return byte(ms / telemetryStep), nil
}

func (p TelemetrySettings) MarshalPayload() ([]byte, error) {
	period, err := telemetryInterval("period", p.Period)
	if err != nil {
		return nil, err
	}
	silence, err := telemetryInterval("silence", p.Silence)
	if err != nil {
		return nil, err
	}
	flags := p.Reserved & telemetryReservedMask
	if p.StatusA {
		flags |= 1 << telemetryStatusABit
	}
	if p.StatusB {
		flags |= 1 << telemetryStatusBBit
	}
	return []byte{period, silence, flags}, nil
}

// DecodeTelemetrySettings decodes a 3-byte telemetry settings payload.
func DecodeTelemetrySettings(data []byte) (TelemetrySettings, error) {
	if len(data) != 3 {
		return TelemetrySettings{}, &LengthError{Packet: "TelemetrySettings", Len: len(data), Want: "3"}
	}
	return TelemetrySettings{
		Period:   uint16(data[0]) * telemetryStep,
		Silence:  uint16(data[1]) * telemetryStep,
		StatusA:  data[2]>>telemetryStatusABit&0x1 == 1,
		StatusB:  data[2]>>telemetryStatusBBit&0x1 == 1,
		Reserved: data[2] & telemetryReservedMask,
	}, nil
}

// TimeoutAction selects the failsafe behaviour when commands stop arriving.
type TimeoutAction uint8

const (
	TimeoutHold    TimeoutAction = 0
	TimeoutDisable TimeoutAction = 1
	TimeoutHome    TimeoutAction = 2
)

// FeedbackAction selects what the device does with measured feedback.
type FeedbackAction uint8

const (
	FeedbackIgnore  FeedbackAction = 0
	FeedbackMonitor FeedbackAction = 1
	FeedbackClosed  FeedbackAction = 2
)

// Config bit packing.
const (
	configEnabledBit          = 7
	configChannelMask         = 0x1F
	configChannelShift        = 2
	configTimeoutStep         = 100 // ms
	configTimeoutMax          = 0xFF * configTimeoutStep
	configTimeoutActionShift  = 5
	configFeedbackActionMask  = 0x07
	configFeedbackActionShift = 2
	configEmulationMask       = 0x03
)

// Config carries a channel's operating configuration. The home position is
// optional on the wire: a 3-byte payload omits it, a 5-byte payload carries
// it. Any other length is rejected.
type Config struct {
	Enabled          bool
	Channel          uint8 // 0..31
	Timeout          uint16
	TimeoutAction    TimeoutAction
	FeedbackAction   FeedbackAction
	CommandEmulation uint8
	Home             *uint16
}

func (Config) Type() MessageType { return TypeConfig }
func (Config) Name() string      { return "Config" }

func (p Config) FieldValues() []string {
	home := ""
	if p.Home != nil {
		home = strconv.FormatUint(uint64(*p.Home), 10)
	}
	return []string{
		strconv.FormatBool(p.Enabled),
		strconv.Itoa(int(p.Channel)),
		strconv.Itoa(int(p.Timeout)),
		strconv.Itoa(int(p.TimeoutAction)),
		strconv.Itoa(int(p.FeedbackAction)),
		strconv.Itoa(int(p.CommandEmulation)),
		home,
	}
}

func (p Config) MarshalPayload() ([]byte, error) {
	if p.Channel > configChannelMask {
		return nil, &RangeError{Field: "channel", Value: int64(p.Channel), Min: 0, Max: configChannelMask}
	}
	if p.Timeout > configTimeoutMax || p.Timeout%configTimeoutStep != 0 {
		return nil, &RangeError{Field: "timeout", Value: int64(p.Timeout), Min: 0, Max: configTimeoutMax, Step: configTimeoutStep}
	}
	if p.TimeoutAction > 0x07 {
		return nil, &RangeError{Field: "timeoutAction", Value: int64(p.TimeoutAction), Min: 0, Max: 0x07}
	}
	if p.FeedbackAction > configFeedbackActionMask {
		return nil, &RangeError{Field: "feedbackAction", Value: int64(p.FeedbackAction), Min: 0, Max: configFeedbackActionMask}
	}
	if p.CommandEmulation > configEmulationMask {
		return nil, &RangeError{Field: "commandEmulation", Value: int64(p.CommandEmulation), Min: 0, Max: configEmulationMask}
	}
	var b0 byte
	if p.Enabled {
		b0 |= 1 << configEnabledBit
	}
	b0 |= p.Channel << configChannelShift
	b2 := byte(p.TimeoutAction)<<configTimeoutActionShift |
		byte(p.FeedbackAction)<<configFeedbackActionShift |
		p.CommandEmulation
	buf := []byte{b0, byte(p.Timeout / configTimeoutStep), b2}
	if p.Home != nil {
		buf = append(buf, 0, 0)
		binary.BigEndian.PutUint16(buf[3:5], *p.Home)
	}
	return buf, nil
}

// DecodeConfig decodes a 3- or 5-byte configuration payload. The home
// position is present only in the 5-byte form.
func DecodeConfig(data []byte) (Config, error) {
	if len(data) != 3 && len(data) != 5 {
		return Config{}, &LengthError{Packet: "Config", Len: len(data), Want: "3 or 5"}
	}
	cfg := Config{
		Enabled:          data[0]>>configEnabledBit&0x1 == 1,
		Channel:          data[0] >> configChannelShift & configChannelMask,
		Timeout:          uint16(data[1]) * configTimeoutStep,
		TimeoutAction:    TimeoutAction(data[2] >> configTimeoutActionShift),
		FeedbackAction:   FeedbackAction(data[2] >> configFeedbackActionShift & configFeedbackActionMask),
		CommandEmulation: data[2] & configEmulationMask,
	}
	if len(data) == 5 {
		home := binary.BigEndian.Uint16(data[3:5])
		cfg.Home = &home
	}
	return cfg, nil
}
