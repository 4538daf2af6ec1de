package proxy

import (
	"testing"

	"github.com/daedaluz/cinch/modules"
	"github.com/daedaluz/cinch/usbr"
	"github.com/daedaluz/cinch/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHelloCaps(t *testing.T) {
	data := []byte{0x01, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x00}
	caps := decodeHelloCaps(data)
	require.Len(t, caps, 2)
	assert.Equal(t, uint32(1), caps[0])
	assert.Equal(t, uint32(0xff), caps[1])
}

func TestDecodeHelloCapsEmpty(t *testing.T) {
	assert.Empty(t, decodeHelloCaps(nil))
}

func TestRequiredCapsSetsExpectedBits(t *testing.T) {
	caps := requiredCaps()
	assert.True(t, usbr.HasCap(caps, usbr.CapBulkStreams))
	assert.True(t, usbr.HasCap(caps, usbr.CapConnectDeviceVersion))
	assert.True(t, usbr.HasCap(caps, usbr.CapEpInfoMaxPacketSize))
	assert.True(t, usbr.HasCap(caps, usbr.Cap64BitsIds))
	assert.True(t, usbr.HasCap(caps, usbr.Cap32BitsBulkLength))
	assert.True(t, usbr.HasCap(caps, usbr.CapBulkReceiving))
}

// chainAccepts sends a bare ControlPacket request through chain and
// reports whether the chain accepted it: false when traversal panicked
// with a ResetError.
func chainAccepts(t *testing.T, chain *modules.Chain, req usbr.Request) (accepted bool) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*modules.ResetError); ok {
				accepted = false
				return
			}
			panic(r)
		}
	}()
	chain.HandleControlPacket(usbr.SourceRed, req)
	return true
}

func TestBuildChainWithOnlyNullRoutesEverythingThrough(t *testing.T) {
	chain := buildChain(nil, nil, nil, modules.NewNull(), nil)
	req := usbr.NewRequest(usbr.ControlPacket, 1)
	assert.True(t, chainAccepts(t, chain, req))
}

func TestBuildChainWithValidatorRejectsMalformedControlHeader(t *testing.T) {
	checker := validator.NewValidator(nil)
	chain := buildChain(nil, checker, nil, modules.NewNull(), modules.NewReset())
	req := usbr.NewRequest(usbr.ControlPacket, 1)
	req.TypeHeader = []byte{0x01} // too short to decode
	assert.False(t, chainAccepts(t, chain, req))
}
