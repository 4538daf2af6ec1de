package usbr

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcePeer(t *testing.T) {
	assert.Equal(t, SourceBlue, SourceRed.Peer())
	assert.Equal(t, SourceRed, SourceBlue.Peer())
}

func TestRequestFields(t *testing.T) {
	req := NewRequest(DeviceConnect, 42)
	assert.Equal(t, DeviceConnect, req.Type())
	assert.Equal(t, 0, req.TotalLen())
	assert.Equal(t, uint64(42), req.ID())
}

func requiredTestCaps() []uint32 {
	caps := make([]uint32, CapsWords)
	SetCap(caps, CapBulkStreams)
	SetCap(caps, CapConnectDeviceVersion)
	SetCap(caps, CapEpInfoMaxPacketSize)
	SetCap(caps, Cap64BitsIds)
	SetCap(caps, Cap32BitsBulkLength)
	SetCap(caps, CapBulkReceiving)
	return caps
}

func TestParserHandleHelloAdvancesState(t *testing.T) {
	p := NewParser(SourceRed)
	require.NoError(t, p.Init(requiredTestCaps()))
	assert.Equal(t, StateInit, p.State)

	require.NoError(t, p.HandleHello([]byte("cinch-test"), requiredTestCaps()))
	assert.Equal(t, StateHelloReceived, p.State)

	// A second Hello must not panic or regress state.
	require.NoError(t, p.HandleHello([]byte("cinch-test"), requiredTestCaps()))
	assert.Equal(t, StateHelloReceived, p.State)
}

func TestParserHandleHelloRejectsIncompleteCaps(t *testing.T) {
	p := NewParser(SourceRed)
	require.NoError(t, p.Init(requiredTestCaps()))
	assert.Error(t, p.HandleHello([]byte("cinch-test"), []uint32{0}))
}

func TestProcessStateChangeMergesIfaceAndEp(t *testing.T) {
	p := NewParser(SourceRed)
	p.State = StateIfaceReceived
	assert.True(t, p.ProcessStateChange(StateEpReceived))
	assert.Equal(t, StateInformed, p.State)
}

func TestDrainStateChangesIsNonBlocking(t *testing.T) {
	p := NewParser(SourceRed)
	ch := make(chan ParserState)
	p.DrainStateChanges(ch) // must return immediately, nothing sent
	assert.Equal(t, StateNew, p.State)
}

func TestPullNextRequestRoundTripsControlPacket(t *testing.T) {
	p := NewParser(SourceRed)
	require.NoError(t, p.Init(requiredTestCaps()))
	p.State = StateHello // past the hello gate, no handshake info required

	// Ep 0x00 is an OUT endpoint: this Source-Red parser reads frames
	// travelling to the host, so an OUT endpoint is the one direction
	// allowed to carry a payload here (see Parser.VerifyTypeHeader).
	h := EncodeControlPacketHeader(ControlPacketHeader{
		Ep:      0x00,
		Request: 6,
		Length:  4,
	})
	data := []byte{1, 2, 3, 4}

	req := NewRequest(ControlPacket, 1)
	req.TypeHeader = h
	req.Data = data
	setRequestHeader(&req, ControlPacket, uint32(len(h)+len(data)), 1)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, p.PushOutputs(w, []Request{req}))

	got, err := p.PullNextRequest(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, ControlPacket, got.Type())
	assert.Equal(t, h, got.TypeHeader)
	assert.Equal(t, data, got.Data)
}
