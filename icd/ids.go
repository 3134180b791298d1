package icd

import "fmt"

// CAN identifier format (29-bit extended frame, MSB to LSB):
//
//	+---------+--------------+-------------+--------------+
//	| GroupID | Message Type | Device Type | Node Address |
//	| 1 byte  | 1 byte       | 1 byte      | 1 byte       |
//	+---------+--------------+-------------+--------------+

const (
	groupShift   = 24
	messageShift = 16
	deviceShift  = 8

	// GroupID is the vendor protocol group carried in the top identifier
	// byte of every frame in this device family.
	GroupID uint8 = 0x07
)

// MessageType tags the packet layout carried in a frame's payload.
type MessageType uint8

const (
	TypeMultiCommand      MessageType = 0x00
	TypePWMCommand        MessageType = 0x10
	TypeSetNodeID         MessageType = 0x50
	TypeStatusA           MessageType = 0x60
	TypeStatusB           MessageType = 0x61
	TypeSerialNumber      MessageType = 0x70
	TypeTelemetrySettings MessageType = 0x74
	TypeConfig            MessageType = 0x80
)

// DeviceType identifies the product line within the vendor protocol group.
type DeviceType uint8

const (
	DeviceServo   DeviceType = 0x00
	DeviceCAN2PWM DeviceType = 0x0A
)

// NodeID is the per-device address byte, 0..0xFE. 0xFF is reserved for
// broadcast and is never a valid addressable device.
type NodeID uint8

// Broadcast addresses every device of the device type on the bus.
const Broadcast NodeID = 0xFF

// Validate checks that the node id is addressable (not the broadcast value).
func (n NodeID) Validate() error {
	if n == Broadcast {
		return fmt.Errorf("icd: node id 0x%02X is the broadcast address (valid 0x00..0xFE)", uint8(n))
	}
	return nil
}

// CANID composes the 29-bit extended identifier from its four byte fields.
// Each field is byte-typed, so out-of-range inputs are unrepresentable.
func CANID(group uint8, mt MessageType, dev DeviceType, node NodeID) uint32 {
	return uint32(group)<<groupShift |
		uint32(mt)<<messageShift |
		uint32(dev)<<deviceShift |
		uint32(node)
}

// MessageID composes the identifier for a can2pwm frame: group 0x07, device
// type 0x0A, addressed to the given node.
func MessageID(mt MessageType, node NodeID) uint32 {
	return CANID(GroupID, mt, DeviceCAN2PWM, node)
}

// ParseCANID extracts the message type, device type and node address from an
// identifier. It succeeds for any 32-bit input; the group byte is ignored.
func ParseCANID(id uint32) (MessageType, DeviceType, NodeID) {
	return MessageType(id >> messageShift),
		DeviceType(id >> deviceShift),
		NodeID(id)
}
