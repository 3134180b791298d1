package icd

import (
	"encoding/binary"
	"strconv"
)

// Command packets transmitted by the host. All multi-byte fields are
// big-endian.

// Command values must lie strictly inside ±commandLimit.
const commandLimit = 20000

// MultiCommand carries one command value per output channel A..D.
//
// Layout (8 bytes): four signed 16-bit values. The hardware ICD's ±20000
// command domain does not fit a single byte per channel, so each channel is
// carried as a 16-bit word.
type MultiCommand struct {
	CommandA int16
	CommandB int16
	CommandC int16
	CommandD int16
}

func (MultiCommand) Type() MessageType { return TypeMultiCommand }
func (MultiCommand) Name() string      { return "MultiCommand" }

func (p MultiCommand) FieldValues() []string {
	return []string{
		strconv.Itoa(int(p.CommandA)),
		strconv.Itoa(int(p.CommandB)),
		strconv.Itoa(int(p.CommandC)),
		strconv.Itoa(int(p.CommandD)),
	}
}

func (p MultiCommand) MarshalPayload() ([]byte, error) {
	fields := []struct {
		name  string
		value int16
	}{
		{"commandA", p.CommandA},
		{"commandB", p.CommandB},
		{"commandC", p.CommandC},
		{"commandD", p.CommandD},
	}
	buf := make([]byte, 8)
	for i, f := range fields {
		if f.value <= -commandLimit || f.value >= commandLimit {
			return nil, &RangeError{Field: f.name, Value: int64(f.value), Min: -commandLimit + 1, Max: commandLimit - 1}
		}
		binary.BigEndian.PutUint16(buf[2*i:], uint16(f.value))
	}
	return buf, nil
}

// DecodeMultiCommand decodes an 8-byte multi command payload.
func DecodeMultiCommand(data []byte) (MultiCommand, error) {
	if len(data) != 8 {
		return MultiCommand{}, &LengthError{Packet: "MultiCommand", Len: len(data), Want: "8"}
	}
	return MultiCommand{
		CommandA: int16(binary.BigEndian.Uint16(data[0:2])),
		CommandB: int16(binary.BigEndian.Uint16(data[2:4])),
		CommandC: int16(binary.BigEndian.Uint16(data[4:6])),
		CommandD: int16(binary.BigEndian.Uint16(data[6:8])),
	}, nil
}

// PWMCommand commands a pulse width directly.
//
// Layout (2 bytes): signed 16-bit pulse width in microseconds.
type PWMCommand struct {
	PWM int16 // µs
}

func (PWMCommand) Type() MessageType { return TypePWMCommand }
func (PWMCommand) Name() string      { return "PWMCommand" }

func (p PWMCommand) FieldValues() []string {
	return []string{strconv.Itoa(int(p.PWM))}
}

func (p PWMCommand) MarshalPayload() ([]byte, error) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(p.PWM))
	return buf, nil
}

// DecodePWMCommand decodes a 2-byte pwm command payload.
func DecodePWMCommand(data []byte) (PWMCommand, error) {
	if len(data) != 2 {
		return PWMCommand{}, &LengthError{Packet: "PWMCommand", Len: len(data), Want: "2"}
	}
	return PWMCommand{PWM: int16(binary.BigEndian.Uint16(data))}, nil
}

// setNodeIDCommand is the fixed command code in byte 0 of a SetNodeID
// payload.
const setNodeIDCommand = 0x50

// SetNodeID assigns a new node address to the device with the given serial
// number. Devices are selected by serial so the command can be broadcast.
//
// Layout (6 bytes): command code 0x50, unsigned 32-bit serial number,
// unsigned 8-bit new node address.
type SetNodeID struct {
	SerialNumber uint32
	NodeID       NodeID
}

func (SetNodeID) Type() MessageType { return TypeSetNodeID }
func (SetNodeID) Name() string      { return "SetNodeID" }

func (p SetNodeID) FieldValues() []string {
	return []string{
		strconv.FormatUint(uint64(p.SerialNumber), 10),
		strconv.Itoa(int(p.NodeID)),
	}
}

func (p SetNodeID) MarshalPayload() ([]byte, error) {
	if p.NodeID == Broadcast {
		return nil, &RangeError{Field: "nodeID", Value: int64(p.NodeID), Min: 0x00, Max: 0xFE}
	}
	buf := make([]byte, 6)
	buf[0] = setNodeIDCommand
	binary.BigEndian.PutUint32(buf[1:5], p.SerialNumber)
	buf[5] = byte(p.NodeID)
	return buf, nil
}

// DecodeSetNodeID decodes a 6-byte set-node-id payload.
func DecodeSetNodeID(data []byte) (SetNodeID, error) {
	if len(data) != 6 {
		return SetNodeID{}, &LengthError{Packet: "SetNodeID", Len: len(data), Want: "6"}
	}
	if data[0] != setNodeIDCommand {
		return SetNodeID{}, &RangeError{Field: "command", Value: int64(data[0]), Min: setNodeIDCommand, Max: setNodeIDCommand}
	}
	return SetNodeID{
		SerialNumber: binary.BigEndian.Uint32(data[1:5]),
		NodeID:       NodeID(data[5]),
	}, nil
}
