package canbus

import "testing"

func TestSLCAN_EncodeParse(t *testing.T) {
	cases := []struct {
		name  string
		frame Frame
		line  string
	}{
		{
			name:  "standard data",
			frame: MustFrame(0x123, []byte{0xDE, 0xAD}),
			line:  "t1232DEAD",
		},
		{
			name:  "extended data",
			frame: Frame{ID: 0x07700AFF, Extended: true, Len: 0},
			line:  "T07700AFF0",
		},
		{
			name:  "extended with payload",
			frame: Frame{ID: 0x07600A12, Extended: true, Len: 4, Data: [8]byte{0x01, 0x02, 0x03, 0x04}},
			line:  "T07600A12401020304",
		},
		{
			name:  "standard rtr",
			frame: Frame{ID: 0x321, RTR: true, Len: 2},
			line:  "r3212",
		},
	}

	for _, tc := range cases {
		line, err := encodeSLCAN(tc.frame)
		if err != nil {
			t.Fatalf("%s: encode: %v", tc.name, err)
		}
		if line != tc.line {
			t.Fatalf("%s: encode = %q, want %q", tc.name, line, tc.line)
		}
		got, ok := parseSLCAN(line)
		if !ok {
			t.Fatalf("%s: parse rejected %q", tc.name, line)
		}
		if got != tc.frame {
			t.Fatalf("%s: roundtrip mismatch: got %+v want %+v", tc.name, got, tc.frame)
		}
	}
}

func TestSLCAN_ParseRejectsGarbage(t *testing.T) {
	for _, line := range []string{
		"",            // empty
		"z123",        // unknown command
		"t12",         // truncated id
		"t1239",       // dlc out of range
		"t1232DE",     // data shorter than dlc
		"T0770ZAFF0",  // bad hex in id
		"t1232DEADFF", // data longer than dlc
	} {
		if _, ok := parseSLCAN(line); ok {
			t.Fatalf("parse accepted %q", line)
		}
	}
}
