package csvlog

import (
	"fmt"
	"time"

	"github.com/labrinston/can2pwm/canbus"
	"github.com/labrinston/can2pwm/icd"
)

// defaultColumns is the fixed frame-metadata prefix of every row. It is not
// part of span accounting over the dynamic columns.
var defaultColumns = []string{"timestamp", "id", "packet", "node", "data"}

// span is a packet type's [begin,end) slice of the dynamic columns.
type span struct {
	begin, end int
}

// TableLayout maps each enabled packet type to its columns in the assembled
// table. Built once per logging session and read-only thereafter, so it is
// safe to share across goroutines.
type TableLayout struct {
	header []string
	spans  map[string]span
	fields map[string][]int // selected positions within FieldValues
	width  int              // dynamic columns total
}

// Build validates the spec and resolves it into a layout. Every field name
// is checked against the packet type's declared fields here, so a typo in a
// spec fails the session up front instead of corrupting rows later.
func Build(spec Spec) (*TableLayout, error) {
	l := &TableLayout{
		header: append([]string(nil), defaultColumns...),
		spans:  make(map[string]span),
		fields: make(map[string][]int),
	}
	for _, entry := range spec {
		if !entry.Enabled {
			continue
		}
		declared, ok := icd.FieldNames(entry.Packet)
		if !ok {
			return nil, fmt.Errorf("csvlog: unknown packet type %q", entry.Packet)
		}
		if _, dup := l.spans[entry.Packet]; dup {
			return nil, fmt.Errorf("csvlog: duplicate spec entry for %s", entry.Packet)
		}

		selected := entry.Fields
		if len(selected) == 0 {
			selected = declared
		}
		indices := make([]int, 0, len(selected))
		for _, name := range selected {
			idx := fieldIndex(declared, name)
			if idx < 0 {
				return nil, fmt.Errorf("csvlog: unknown field %q for type %s", name, entry.Packet)
			}
			indices = append(indices, idx)
		}

		l.spans[entry.Packet] = span{begin: l.width, end: l.width + len(selected)}
		l.fields[entry.Packet] = indices
		l.header = append(l.header, selected...)
		l.width += len(selected)
	}
	return l, nil
}

func fieldIndex(declared []string, name string) int {
	for i, d := range declared {
		if d == name {
			return i
		}
	}
	return -1
}

// Header returns the full column header, prefix included.
func (l *TableLayout) Header() []string {
	return append([]string(nil), l.header...)
}

// Logs reports whether the layout has columns for the packet type.
func (l *TableLayout) Logs(packet string) bool {
	_, ok := l.spans[packet]
	return ok
}

// Row renders one table row for a decoded packet and the frame that carried
// it. Every row has the full table width; columns owned by other packet
// types stay blank. Returns false when the layout has no columns for the
// packet's type.
func (l *TableLayout) Row(frame canbus.Frame, pkt icd.Packet) ([]string, bool) {
	sp, ok := l.spans[pkt.Name()]
	if !ok {
		return nil, false
	}
	_, _, node := icd.ParseCANID(frame.ID)

	row := make([]string, 0, len(defaultColumns)+l.width)
	row = append(row,
		frame.Timestamp.Format(time.RFC3339Nano),
		fmt.Sprintf("%08X", frame.ID),
		pkt.Name(),
		fmt.Sprintf("%02X", uint8(node)),
		fmt.Sprintf("%X", frame.Payload()),
	)
	for i := 0; i < sp.begin; i++ {
		row = append(row, "")
	}
	values := pkt.FieldValues()
	for _, idx := range l.fields[pkt.Name()] {
		row = append(row, values[idx])
	}
	for i := sp.end; i < l.width; i++ {
		row = append(row, "")
	}
	return row, true
}
