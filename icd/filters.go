package icd

import (
	"github.com/labrinston/can2pwm/canbus"
)

// Frame filters over the identifier's byte fields, for use with
// canbus.Mux subscriptions.

// ByDeviceType matches frames whose identifier carries the given device
// type byte.
func ByDeviceType(dev DeviceType) canbus.FrameFilter {
	return func(f canbus.Frame) bool {
		_, d, _ := ParseCANID(f.ID)
		return f.Extended && d == dev
	}
}

// ByMessageType matches frames of one packet variant.
func ByMessageType(mt MessageType) canbus.FrameFilter {
	return func(f canbus.Frame) bool {
		m, _, _ := ParseCANID(f.ID)
		return f.Extended && m == mt
	}
}

// ByNode matches frames addressed to or sent by the given node.
func ByNode(node NodeID) canbus.FrameFilter {
	return func(f canbus.Frame) bool {
		_, _, n := ParseCANID(f.ID)
		return f.Extended && n == node
	}
}

// CAN2PWM matches every frame of the can2pwm device family.
func CAN2PWM() canbus.FrameFilter {
	return ByDeviceType(DeviceCAN2PWM)
}
