package icd

import (
	"github.com/labrinston/can2pwm/canbus"
)

// Packet is the closed set of can2pwm payload variants. Every variant knows
// its message type and can render its fields as table cells in declaration
// order for logging.
type Packet interface {
	// Type returns the message-type byte carried in the frame identifier.
	Type() MessageType

	// Name returns the packet type name used in log specs.
	Name() string

	// FieldValues returns one cell per declared field, in the order listed
	// by FieldNames.
	FieldValues() []string
}

// PayloadMarshaler is implemented by packets the host may transmit.
// Telemetry-only packets (StatusA) do not implement it.
type PayloadMarshaler interface {
	Packet

	// MarshalPayload produces the wire payload, validating every field
	// against its declared domain first. No bytes are returned on failure.
	MarshalPayload() ([]byte, error)
}

// packetFields lists the loggable fields of each packet type in declaration
// order. The table is constructed once and never mutated.
var packetFields = map[string][]string{
	"MultiCommand":      {"commandA", "commandB", "commandC", "commandD"},
	"PWMCommand":        {"pwm"},
	"SetNodeID":         {"serialNumber", "nodeID"},
	"StatusA":           {"status", "inputMode", "feedbackMode", "validInput", "validFeedback", "enabled", "reserved", "mapEnabled", "mapInvalid", "command", "feedback", "pwm"},
	"StatusB":           {"current", "voltage"},
	"SerialNumber":      {"hwRev", "serialNumber", "userIDA", "userIDB"},
	"TelemetrySettings": {"period", "silence", "statusA", "statusB", "reserved"},
	"Config":            {"enabled", "channel", "timeout", "timeoutAction", "feedbackAction", "commandEmulation", "home"},
}

// FieldNames returns the declared field names of the named packet type, in
// declaration order, and whether the type is known.
func FieldNames(packet string) ([]string, bool) {
	names, ok := packetFields[packet]
	return names, ok
}

// Decode dispatches a payload to the decoder for its message type. Unknown
// message types return (nil, nil): other device families share the bus and
// their traffic is ignored, not treated as an error.
func Decode(mt MessageType, payload []byte) (Packet, error) {
	switch mt {
	case TypeMultiCommand:
		p, err := DecodeMultiCommand(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TypePWMCommand:
		p, err := DecodePWMCommand(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TypeSetNodeID:
		p, err := DecodeSetNodeID(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TypeStatusA:
		p, err := DecodeStatusA(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TypeStatusB:
		p, err := DecodeStatusB(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TypeSerialNumber:
		p, err := DecodeSerialNumber(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TypeTelemetrySettings:
		p, err := DecodeTelemetrySettings(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TypeConfig:
		p, err := DecodeConfig(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}

// Message builds a ready-to-send extended frame carrying the packet,
// addressed to the given node (Broadcast is valid for commands that every
// device should act on).
func Message(p PayloadMarshaler, node NodeID) (canbus.Frame, error) {
	payload, err := p.MarshalPayload()
	if err != nil {
		return canbus.Frame{}, err
	}
	var f canbus.Frame
	f.ID = MessageID(p.Type(), node)
	f.Extended = true
	f.Len = uint8(len(payload))
	copy(f.Data[:], payload)
	return f, nil
}
