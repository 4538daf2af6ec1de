package modules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaluz/cinch/usbr"
)

func writePatch(t *testing.T, dir, name string, pt patch) {
	t.Helper()
	data, err := json.Marshal(pt)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestPatcherRoutesToResetOnceBudgetExhausted(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "one.json", patch{
		Meta: patchMetadata{
			PType:      "bulk",
			PatchID:    1,
			MinMatches: 1,
		},
		Data: "deadbeef",
	})

	p, err := NewPatcher(dir)
	require.NoError(t, err)

	req := usbr.NewRequest(usbr.BulkPacket, 1)
	req.Data = []byte{0xde, 0xad, 0xbe, 0xef}

	port, out := p.HandleBulkPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(1), port)
	require.Len(t, out, 1)
	assert.Equal(t, req, out[0])
}

func TestPatcherForwardsNonMatchingData(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "one.json", patch{
		Meta: patchMetadata{
			PType:      "bulk",
			PatchID:    1,
			MinMatches: 1,
		},
		Data: "deadbeef",
	})

	p, err := NewPatcher(dir)
	require.NoError(t, err)

	req := usbr.NewRequest(usbr.BulkPacket, 1)
	req.Data = []byte{0x01, 0x02, 0x03, 0x04}

	port, out := p.HandleBulkPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(0), port)
	require.Len(t, out, 1)
	assert.Equal(t, req, out[0])
}

func TestPatcherImplementsHandlers(t *testing.T) {
	var _ usbr.Handlers = (*Patcher)(nil)
}
