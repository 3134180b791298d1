package icd

import "fmt"

// RangeError reports a packet field whose value is outside its declared
// domain. Marshaling fails with a RangeError before any bytes are produced.
type RangeError struct {
	Field string
	Value int64
	Min   int64
	Max   int64
	Step  int64 // non-zero when the value must also be a multiple of Step
}

func (e *RangeError) Error() string {
	if e.Step != 0 {
		return fmt.Sprintf("icd: %s must be a multiple of %d in %d..%d, got %d",
			e.Field, e.Step, e.Min, e.Max, e.Value)
	}
	return fmt.Sprintf("icd: %s out of range: %d (valid %d..%d)", e.Field, e.Value, e.Min, e.Max)
}

// LengthError reports a payload whose length does not match the packet
// type's valid length(s). Decoding fails with a LengthError before any bytes
// are interpreted.
type LengthError struct {
	Packet string
	Len    int
	Want   string
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("icd: %s payload length %d, want %s", e.Packet, e.Len, e.Want)
}
