package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaluz/cinch/usbr"
)

func TestLoggerWritesFramedRecordAndForwards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewLogger(path)
	require.NoError(t, err)

	req := usbr.NewRequest(usbr.DeviceConnect, 7)
	port, out := l.HandleConnect(usbr.SourceRed, req)
	assert.Equal(t, uint8(0), port)
	require.Len(t, out, 1)
	assert.Equal(t, req, out[0])

	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Start Cinch log. Type: connect, Source: Red]")
	assert.Contains(t, string(data), "[End Cinch log]")
}

func TestLoggerImplementsHandlers(t *testing.T) {
	var _ usbr.Handlers = (*Logger)(nil)
}
