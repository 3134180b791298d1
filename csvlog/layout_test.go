package csvlog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrinston/can2pwm/canbus"
	"github.com/labrinston/can2pwm/csvlog"
	"github.com/labrinston/can2pwm/icd"
)

func statusAFrame(t *testing.T) canbus.Frame {
	t.Helper()
	// command 1000, feedback 2000, pwm 1500, from node 0x12.
	f := canbus.MustFrame(icd.MessageID(icd.TypeStatusA, 0x12),
		[]byte{0x80, 0x00, 0x03, 0xE8, 0x07, 0xD0, 0x05, 0xDC})
	f.Timestamp = time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	return f
}

func statusBFrame(t *testing.T) canbus.Frame {
	t.Helper()
	// current 1000 mA, voltage 12000 mV, from node 0x12.
	f := canbus.MustFrame(icd.MessageID(icd.TypeStatusB, 0x12),
		[]byte{0x00, 0x64, 0x04, 0xB0})
	f.Timestamp = time.Date(2026, 8, 25, 10, 30, 1, 0, time.UTC)
	return f
}

func decode(t *testing.T, f canbus.Frame) icd.Packet {
	t.Helper()
	mt, _, _ := icd.ParseCANID(f.ID)
	pkt, err := icd.Decode(mt, f.Payload())
	require.NoError(t, err)
	require.NotNil(t, pkt)
	return pkt
}

func TestBuildHeader(t *testing.T) {
	layout, err := csvlog.Build(csvlog.DefaultSpec())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"timestamp", "id", "packet", "node", "data",
		"feedback", "command",
		"current", "voltage",
	}, layout.Header())
	assert.True(t, layout.Logs("StatusA"))
	assert.False(t, layout.Logs("Config"))
}

func TestBuildAllFieldsByDefault(t *testing.T) {
	layout, err := csvlog.Build(csvlog.Spec{{Packet: "StatusB", Enabled: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"timestamp", "id", "packet", "node", "data",
		"current", "voltage",
	}, layout.Header())
}

func TestBuildSkipsDisabled(t *testing.T) {
	layout, err := csvlog.Build(csvlog.Spec{
		{Packet: "StatusA", Enabled: false},
		{Packet: "StatusB", Enabled: true, Fields: []string{"voltage"}},
	})
	require.NoError(t, err)
	assert.False(t, layout.Logs("StatusA"))
	assert.Equal(t, []string{
		"timestamp", "id", "packet", "node", "data", "voltage",
	}, layout.Header())
}

func TestBuildRejectsUnknown(t *testing.T) {
	_, err := csvlog.Build(csvlog.Spec{{Packet: "Bogus", Enabled: true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown packet type "Bogus"`)

	_, err = csvlog.Build(csvlog.Spec{
		{Packet: "StatusA", Enabled: true, Fields: []string{"feedback", "watts"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "watts" for type StatusA`)

	_, err = csvlog.Build(csvlog.Spec{
		{Packet: "StatusB", Enabled: true},
		{Packet: "StatusB", Enabled: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRowBlanksOtherSpans(t *testing.T) {
	layout, err := csvlog.Build(csvlog.DefaultSpec())
	require.NoError(t, err)

	fa := statusAFrame(t)
	rowA, ok := layout.Row(fa, decode(t, fa))
	require.True(t, ok)
	assert.Equal(t, []string{
		"2026-08-25T10:30:00Z",
		"07600A12",
		"StatusA",
		"12",
		"800003E807D005DC",
		"2000", "1000", // feedback, command
		"", "", // statusB columns
	}, rowA)

	fb := statusBFrame(t)
	rowB, ok := layout.Row(fb, decode(t, fb))
	require.True(t, ok)
	assert.Equal(t, []string{
		"2026-08-25T10:30:01Z",
		"07610A12",
		"StatusB",
		"12",
		"006404B0",
		"", "", // statusA columns
		"1000", "12000", // current, voltage
	}, rowB)

	assert.Len(t, rowA, len(layout.Header()))
	assert.Len(t, rowB, len(layout.Header()))
}

func TestRowUnloggedType(t *testing.T) {
	layout, err := csvlog.Build(csvlog.Spec{
		{Packet: "StatusB", Enabled: true},
	})
	require.NoError(t, err)

	fa := statusAFrame(t)
	_, ok := layout.Row(fa, decode(t, fa))
	assert.False(t, ok)
}
