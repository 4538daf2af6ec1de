package validator

import (
	"testing"

	"github.com/daedaluz/cinch/usb"
	"github.com/daedaluz/cinch/usbr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectRequest(t *testing.T, h usbr.ConnectHeader) usbr.Request {
	t.Helper()
	return usbr.Request{TypeHeader: usbr.EncodeConnectHeader(h)}
}

func controlRequest(t *testing.T, h usbr.ControlPacketHeader, data []byte) usbr.Request {
	t.Helper()
	return usbr.Request{TypeHeader: usbr.EncodeControlPacketHeader(h), Data: data}
}

func TestValidatorHandleConnectAcceptsValidDevice(t *testing.T) {
	v := NewValidator(nil)
	req := connectRequest(t, usbr.ConnectHeader{
		Speed: 2, Class: 0, SubClass: 0, Proto: 0,
		VendorID: 0x1234, ProductID: 0x5678, VersionBcd: 0x0100,
	})
	port, out := v.HandleConnect(usbr.SourceBlue, req)
	assert.Equal(t, uint8(0), port)
	require.Len(t, out, 1)
}

func TestValidatorHandleConnectRejectsInvalidCSP(t *testing.T) {
	v := NewValidator(nil)
	req := connectRequest(t, usbr.ConnectHeader{Class: 0, SubClass: 1, Proto: 0})
	port, _ := v.HandleConnect(usbr.SourceBlue, req)
	assert.Equal(t, uint8(1), port)
}

func TestValidatorHandleConnectRejectsMalformedHeader(t *testing.T) {
	v := NewValidator(nil)
	req := usbr.Request{TypeHeader: []byte{0x01}}
	port, _ := v.HandleConnect(usbr.SourceBlue, req)
	assert.Equal(t, uint8(1), port)
}

func TestValidatorHandleControlPacketGetDeviceDescriptor(t *testing.T) {
	v := NewValidator(nil)
	h := usbr.ControlPacketHeader{
		Request:     uint8(usb.RequestGetDescriptor),
		RequestType: uint8(usb.RequestDirectionIn) | uint8(usb.RequestTypeStandard) | uint8(usb.RequestRecipientDevice),
		Value:       uint16(usb.DescriptorTypeDevice) << 8,
	}
	req := controlRequest(t, h, validDeviceDescriptorPayload())
	port, _ := v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(0), port)
}

func TestValidatorHandleControlPacketRejectsBadDeviceDescriptor(t *testing.T) {
	v := NewValidator(nil)
	h := usbr.ControlPacketHeader{
		Request:     uint8(usb.RequestGetDescriptor),
		RequestType: uint8(usb.RequestDirectionIn) | uint8(usb.RequestTypeStandard) | uint8(usb.RequestRecipientDevice),
		Value:       uint16(usb.DescriptorTypeDevice) << 8,
	}
	data := validDeviceDescriptorPayload()
	data[17] = 0 // zero configurations declared
	req := controlRequest(t, h, data)
	port, _ := v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(1), port)
}

func TestValidatorHandleControlPacketIgnoresRequestLeg(t *testing.T) {
	v := NewValidator(nil)
	h := usbr.ControlPacketHeader{
		Request:     uint8(usb.RequestGetDescriptor),
		RequestType: uint8(usb.RequestDirectionIn) | uint8(usb.RequestTypeStandard) | uint8(usb.RequestRecipientDevice),
		Value:       uint16(usb.DescriptorTypeDevice) << 8,
	}
	// The outgoing request leg (host->device) carries no descriptor bytes
	// to validate; only the SourceRed reply leg is checked.
	req := controlRequest(t, h, []byte{0xff, 0xff, 0xff})
	port, _ := v.HandleControlPacket(usbr.SourceBlue, req)
	assert.Equal(t, uint8(0), port)
}

func TestValidatorHandleControlPacketMalformedHeader(t *testing.T) {
	v := NewValidator(nil)
	req := usbr.Request{TypeHeader: []byte{0x01, 0x02}}
	port, _ := v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(1), port)
}

func TestValidatorHandleControlPacketVendorRequestPassesThrough(t *testing.T) {
	v := NewValidator(nil)
	h := usbr.ControlPacketHeader{RequestType: uint8(usb.RequestTypeVendor)}
	req := controlRequest(t, h, []byte{0x01, 0x02, 0x03})
	port, _ := v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(0), port)
}

func TestValidatorHandleSetConfTracksChosenConfig(t *testing.T) {
	v := NewValidator(nil)
	req := usbr.Request{TypeHeader: []byte{1}} // SetConfHeader{Conf: 1}
	port, _ := v.HandleSetConf(usbr.SourceBlue, req)
	assert.Equal(t, uint8(0), port)

	var gotConf *uint8
	v.store.View(func(dev *VirtualDevice) bool {
		gotConf = dev.ChosenConf
		return true
	})
	require.NotNil(t, gotConf)
	assert.Equal(t, uint8(1), *gotConf)
}

// configDescriptorHeader builds a 9-byte configuration descriptor header
// naming wTotalLength (padded to clear checkConfigFields' minimum-length
// gate regardless of how many bytes actually follow in the test) and
// bNumInterfaces.
func configDescriptorHeader(wTotalLength uint16, numInterfaces uint8) []byte {
	return []byte{
		9, byte(usb.DescriptorTypeConfig),
		byte(wTotalLength), byte(wTotalLength >> 8),
		numInterfaces,
		1,    // bConfigurationValue
		0,    // iConfiguration
		0x80, // bmAttributes
		50,   // bMaxPower
	}
}

// interfaceDescriptorBytes builds a 9-byte vendor-specific interface
// descriptor with no endpoints, naming ifNum/alt.
func interfaceDescriptorBytes(ifNum, alt uint8) []byte {
	return []byte{
		9, byte(usb.DescriptorTypeInterface),
		ifNum, alt,
		0,    // bNumEndpoints
		0xFF, // bInterfaceClass: vendor-specific, unconstrained
		0, 0, 0,
	}
}

func TestValidatorCheckConfigDescriptorRejectsInflatedInterfaceCount(t *testing.T) {
	v := NewValidator(nil)
	data := append(configDescriptorHeader(22, 2), interfaceDescriptorBytes(0, 0)...)
	ok := v.checkConfigDescriptor(0, data)
	assert.False(t, ok, "declaring 2 interfaces while supplying only 1 must be rejected (E068)")
}

func TestValidatorCheckConfigDescriptorAcceptsMatchingInterfaceCount(t *testing.T) {
	v := NewValidator(nil)
	data := configDescriptorHeader(22, 2)
	data = append(data, interfaceDescriptorBytes(0, 0)...)
	data = append(data, interfaceDescriptorBytes(1, 0)...)
	ok := v.checkConfigDescriptor(0, data)
	require.True(t, ok)

	v.store.View(func(dev *VirtualDevice) bool {
		assert.Len(t, dev.ChosenInterfaces, 2)
		assert.Equal(t, uint8(0), dev.ChosenInterfaces[0])
		assert.Equal(t, uint8(0), dev.ChosenInterfaces[1])
		return true
	})
}

func TestValidatorGetInterfaceChecksKnownInterfaceAndAlternate(t *testing.T) {
	v := NewValidator(nil)
	conf := uint8(1)
	v.store.Mutate(func(dev *VirtualDevice) {
		dev.ChosenConf = &conf
		dev.Configs[1] = &ConfigNode{
			Interfaces: map[uint8]map[uint8]*InterfaceNode{
				0: {0: {}, 1: {}},
			},
		}
	})

	reqH := usbr.ControlPacketHeader{
		Request:     uint8(usb.RequestGetInterface),
		RequestType: uint8(usb.RequestDirectionOut) | uint8(usb.RequestTypeStandard) | uint8(usb.RequestRecipientInterface),
		Index:       0,
	}
	req := controlRequest(t, reqH, nil)
	port, _ := v.HandleControlPacket(usbr.SourceBlue, req)
	assert.Equal(t, uint8(0), port, "known interface with empty payload is accepted")

	reqH.Index = 9
	req = controlRequest(t, reqH, nil)
	port, _ = v.HandleControlPacket(usbr.SourceBlue, req)
	assert.Equal(t, uint8(1), port, "unknown interface number is rejected")

	replyH := usbr.ControlPacketHeader{
		Request:     uint8(usb.RequestGetInterface),
		RequestType: uint8(usb.RequestDirectionIn) | uint8(usb.RequestTypeStandard) | uint8(usb.RequestRecipientInterface),
		Index:       0,
	}
	req = controlRequest(t, replyH, []byte{1})
	port, _ = v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(0), port, "known alternate reply is accepted")

	req = controlRequest(t, replyH, []byte{9})
	port, _ = v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(1), port, "unknown alternate reply is rejected")

	req = controlRequest(t, replyH, []byte{1, 2})
	port, _ = v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(1), port, "oversized reply payload is rejected")
}

func TestValidatorSynchFrameRequiresTwoByteReply(t *testing.T) {
	v := NewValidator(nil)
	h := usbr.ControlPacketHeader{
		Request:     uint8(usb.RequestSynchFrame),
		RequestType: uint8(usb.RequestDirectionIn) | uint8(usb.RequestTypeStandard) | uint8(usb.RequestRecipientEndpoint),
	}
	req := controlRequest(t, h, []byte{0, 0})
	port, _ := v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(0), port)

	req = controlRequest(t, h, []byte{0})
	port, _ = v.HandleControlPacket(usbr.SourceRed, req)
	assert.Equal(t, uint8(1), port)
}

func TestValidatorEmptyPayloadRequestsRejectNonemptyData(t *testing.T) {
	v := NewValidator(nil)
	h := usbr.ControlPacketHeader{
		Request:     uint8(usb.RequestSetAddress),
		RequestType: uint8(usb.RequestDirectionOut) | uint8(usb.RequestTypeStandard) | uint8(usb.RequestRecipientDevice),
	}
	req := controlRequest(t, h, nil)
	port, _ := v.HandleControlPacket(usbr.SourceBlue, req)
	assert.Equal(t, uint8(0), port)

	req = controlRequest(t, h, []byte{0x01})
	port, _ = v.HandleControlPacket(usbr.SourceBlue, req)
	assert.Equal(t, uint8(1), port)
}

func TestEndpointBelongsToMassStorage(t *testing.T) {
	conf := uint8(1)
	dev := &VirtualDevice{
		ChosenConf:       &conf,
		ChosenInterfaces: map[uint8]uint8{0: 0},
		Configs: map[uint8]*ConfigNode{
			1: {
				Interfaces: map[uint8]map[uint8]*InterfaceNode{
					0: {
						0: {
							Desc:      usb.InterfaceDescriptor{BInterfaceClass: usb.ClassCodeInterfaceMassStorage},
							Endpoints: map[uint8]*EndpointNode{0x81: {}},
						},
					},
				},
			},
		},
	}
	assert.True(t, endpointBelongsToMassStorage(dev, 0x81))
	assert.False(t, endpointBelongsToMassStorage(dev, 0x02))
}
