package csvlog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrinston/can2pwm/csvlog"
)

func TestCSVFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	sink, err := csvlog.CreateCSVFile(path)
	require.NoError(t, err)

	require.NoError(t, sink.WriteRow([]string{"a", "b"}))
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.WriteRow([]string{"c", ""}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\nc,\n", string(data))
}
