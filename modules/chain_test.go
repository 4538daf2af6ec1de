package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaluz/cinch/usbr"
)

func TestChainForwardsThroughNullByDefault(t *testing.T) {
	chain := NewChain()
	chain.AddTerminal(0, NewNull())

	req := usbr.NewRequest(usbr.DeviceConnect, 1)
	port, result := chain.HandleConnect(usbr.SourceRed, req)
	assert.Equal(t, uint8(0), port)
	require.Len(t, result, 1)
	assert.Equal(t, req, result[0])
}

func TestChainRoutesPatcherRejectToResetTerminal(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "one.json", patch{
		Meta: patchMetadata{PType: "bulk", PatchID: 1, MinMatches: 1},
		Data: "cafe",
	})
	patcher, err := NewPatcher(dir)
	require.NoError(t, err)

	chain := NewChain()
	chain.AddNonTerminal(0, 0, patcher)
	chain.AddTerminal(0, NewNull())
	chain.AddTerminal(1, NewReset())

	req := usbr.NewRequest(usbr.BulkPacket, 1)
	req.Data = []byte{0xca, 0xfe}

	assert.Panics(t, func() {
		chain.HandleBulkPacket(usbr.SourceRed, req)
	})
}

func TestChainPanicsOnMissingTerminal(t *testing.T) {
	chain := NewChain()
	req := usbr.NewRequest(usbr.DeviceConnect, 1)
	assert.Panics(t, func() {
		chain.HandleConnect(usbr.SourceRed, req)
	})
}
