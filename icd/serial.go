package icd

import (
	"encoding/binary"
	"strconv"
)

// maxSerial is the largest serial number representable in the 24-bit wire
// field.
const maxSerial = 0xFFFFFF

// SerialNumber identifies a device. The zero-length payload form is the
// identification *request*: broadcasting it makes every device reply with
// its populated form, which is how discovery enumerates the bus.
//
// Layout (8 bytes, or 0 for the request form): unsigned 8-bit hardware
// revision, unsigned 24-bit serial number, two unsigned 16-bit user id
// words.
type SerialNumber struct {
	HWRev        uint8
	SerialNumber uint32
	UserIDA      uint16
	UserIDB      uint16

	// Request marks the zero-length form. A request carries no fields.
	Request bool
}

// SerialNumberRequest returns the broadcastable identification request.
func SerialNumberRequest() SerialNumber {
	return SerialNumber{Request: true}
}

func (SerialNumber) Type() MessageType { return TypeSerialNumber }
func (SerialNumber) Name() string      { return "SerialNumber" }

func (p SerialNumber) FieldValues() []string {
	return []string{
		strconv.Itoa(int(p.HWRev)),
		strconv.FormatUint(uint64(p.SerialNumber), 10),
		strconv.FormatUint(uint64(p.UserIDA), 10),
		strconv.FormatUint(uint64(p.UserIDB), 10),
	}
}

func (p SerialNumber) MarshalPayload() ([]byte, error) {
	if p.Request {
		return nil, nil
	}
	if p.SerialNumber > maxSerial {
		return nil, &RangeError{Field: "serialNumber", Value: int64(p.SerialNumber), Min: 0, Max: maxSerial}
	}
	buf := make([]byte, 8)
	buf[0] = p.HWRev
	buf[1] = byte(p.SerialNumber >> 16)
	buf[2] = byte(p.SerialNumber >> 8)
	buf[3] = byte(p.SerialNumber)
	binary.BigEndian.PutUint16(buf[4:6], p.UserIDA)
	binary.BigEndian.PutUint16(buf[6:8], p.UserIDB)
	return buf, nil
}

// DecodeSerialNumber decodes an identification payload. A zero-length
// payload decodes as the request form.
func DecodeSerialNumber(data []byte) (SerialNumber, error) {
	switch len(data) {
	case 0:
		return SerialNumber{Request: true}, nil
	case 8:
		return SerialNumber{
			HWRev:        data[0],
			SerialNumber: uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]),
			UserIDA:      binary.BigEndian.Uint16(data[4:6]),
			UserIDB:      binary.BigEndian.Uint16(data[6:8]),
		}, nil
	default:
		return SerialNumber{}, &LengthError{Packet: "SerialNumber", Len: len(data), Want: "0 or 8"}
	}
}
