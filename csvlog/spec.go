package csvlog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PacketSpec selects one packet type for logging. An empty Fields slice
// selects all of the type's declared fields in declaration order.
type PacketSpec struct {
	Packet  string
	Enabled bool
	Fields  []string
}

// Spec is an ordered log specification: entry order fixes column order in
// the assembled table.
type Spec []PacketSpec

// DefaultSpec logs the telemetry fields most monitoring sessions want:
// commanded vs. measured position, plus the electrical readings.
func DefaultSpec() Spec {
	return Spec{
		{Packet: "StatusA", Enabled: true, Fields: []string{"feedback", "command"}},
		{Packet: "StatusB", Enabled: true, Fields: []string{"current", "voltage"}},
	}
}

// packetSpecYAML carries a PacketSpec in YAML form. Enabled defaults to
// true when omitted.
type packetSpecYAML struct {
	Packet  string   `yaml:"packet"`
	Enabled *bool    `yaml:"enabled"`
	Fields  []string `yaml:"fields"`
}

// ParseSpec parses a YAML log specification:
//
//	- packet: StatusA
//	  fields: [feedback, command]
//	- packet: StatusB
//	  enabled: false
func ParseSpec(data []byte) (Spec, error) {
	var entries []packetSpecYAML
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("csvlog: parse spec: %w", err)
	}
	spec := make(Spec, 0, len(entries))
	for i, e := range entries {
		if e.Packet == "" {
			return nil, fmt.Errorf("csvlog: spec entry %d: missing packet name", i)
		}
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		spec = append(spec, PacketSpec{Packet: e.Packet, Enabled: enabled, Fields: e.Fields})
	}
	return spec, nil
}

// LoadSpec reads a YAML log specification from a file.
func LoadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("csvlog: %w", err)
	}
	return ParseSpec(data)
}
