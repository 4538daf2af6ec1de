package validator

import (
	"testing"

	"github.com/daedaluz/cinch/usb"
	"github.com/stretchr/testify/assert"
)

func validDeviceDescriptorPayload() []byte {
	data := make([]byte, usb.DeviceDescSize)
	data[0], data[1] = 0x00, 0x02 // bcdUSB 2.00
	data[2] = 0                   // class
	data[3] = 0                   // subclass
	data[4] = 0                   // protocol
	data[5] = 64                  // bMaxPacketSize0
	data[10], data[11] = 0x00, 0x01
	data[17] = 1 // bNumConfigurations
	return data
}

func TestCheckDeviceFieldsValid(t *testing.T) {
	assert.True(t, checkDeviceFields(validDeviceDescriptorPayload()))
}

func TestCheckDeviceFieldsTooLong(t *testing.T) {
	data := append(validDeviceDescriptorPayload(), 0x00)
	assert.False(t, checkDeviceFields(data))
}

func TestCheckDeviceFieldsInvalidBCD(t *testing.T) {
	data := validDeviceDescriptorPayload()
	data[0], data[1] = 0x0a, 0x00 // invalid BCD nibble
	assert.False(t, checkDeviceFields(data))
}

func TestCheckDeviceFieldsInvalidCSP(t *testing.T) {
	data := validDeviceDescriptorPayload()
	data[2], data[3], data[4] = 0, 1, 0 // class 0 requires subclass 0
	assert.False(t, checkDeviceFields(data))
}

func TestCheckDeviceFieldsInvalidMaxPacketSize(t *testing.T) {
	data := validDeviceDescriptorPayload()
	data[5] = 7
	assert.False(t, checkDeviceFields(data))
}

func TestCheckDeviceFieldsZeroConfigurations(t *testing.T) {
	data := validDeviceDescriptorPayload()
	data[17] = 0
	assert.False(t, checkDeviceFields(data))
}

func TestCheckDeviceFieldsTieredPrefixTolerant(t *testing.T) {
	// Only bcdUSB, CSP and bMaxPacketSize0 present (6 bytes), no configuration count yet.
	data := validDeviceDescriptorPayload()[:6]
	assert.True(t, checkDeviceFields(data))
}

func littleEndianString(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

func TestCheckStringFieldsValidText(t *testing.T) {
	assert.True(t, checkStringFields(littleEndianString("cinch"), 1))
}

func TestCheckStringFieldsLangIDTable(t *testing.T) {
	data := []byte{0x09, 0x04} // 0x0409 English (US)
	assert.True(t, checkStringFields(data, 0))
}

func TestCheckStringFieldsUnknownLangID(t *testing.T) {
	data := []byte{0xff, 0xff}
	assert.False(t, checkStringFields(data, 0))
}

func TestCheckStringFieldsOddLength(t *testing.T) {
	assert.False(t, checkStringFields([]byte{0x41}, 1))
}

func TestCheckStringFieldsEmpty(t *testing.T) {
	assert.False(t, checkStringFields(nil, 1))
}

func TestCheckStringFieldsUnpairedHighSurrogate(t *testing.T) {
	data := []byte{0x00, 0xd8} // high surrogate with nothing following
	assert.False(t, checkStringFields(data, 1))
}

func TestCheckStringFieldsUnpairedLowSurrogate(t *testing.T) {
	data := []byte{0x00, 0xdc}
	assert.False(t, checkStringFields(data, 1))
}

func TestCheckStringFieldsValidSurrogatePair(t *testing.T) {
	data := []byte{0x3d, 0xd8, 0x00, 0xde} // U+1F600-ish surrogate pair
	assert.True(t, checkStringFields(data, 1))
}

func TestCheckEndpointFieldsReservedAddressBits(t *testing.T) {
	dev := &usb.DeviceDescriptor{BcdUSB: 0x0200}
	ep := &usb.EndpointDescriptor{BEndpointAddress: 0x10, BmAttributes: usb.EndpointXferBulk, WMaxPacketSize: 512}
	assert.False(t, checkEndpointFields(ep, dev))
}

func TestCheckEndpointFieldsReservedAttributeBits(t *testing.T) {
	dev := &usb.DeviceDescriptor{BcdUSB: 0x0200}
	ep := &usb.EndpointDescriptor{BEndpointAddress: 0x01, BmAttributes: 0xc2, WMaxPacketSize: 512}
	assert.False(t, checkEndpointFields(ep, dev))
}

func TestCheckEndpointFieldsControlSizeRange(t *testing.T) {
	dev := &usb.DeviceDescriptor{BcdUSB: 0x0200}
	ep := &usb.EndpointDescriptor{BEndpointAddress: 0x00, BmAttributes: usb.EndpointXferControl, WMaxPacketSize: 2048}
	assert.False(t, checkEndpointFields(ep, dev))
}

func TestCheckEndpointFieldsValidBulk(t *testing.T) {
	dev := &usb.DeviceDescriptor{BcdUSB: 0x0200}
	ep := &usb.EndpointDescriptor{BEndpointAddress: 0x81, BmAttributes: usb.EndpointXferBulk, WMaxPacketSize: 512}
	assert.True(t, checkEndpointFields(ep, dev))
}

func TestCheckInterfaceFieldsTooManyEndpoints(t *testing.T) {
	dev := &usb.DeviceDescriptor{}
	iface := &usb.InterfaceDescriptor{BNumEndpoints: 31}
	assert.False(t, checkInterfaceFields(iface, dev))
}

func TestCheckInterfaceFieldsInvalidCSP(t *testing.T) {
	dev := &usb.DeviceDescriptor{BDeviceClass: usb.ClassCodeDeviceHub}
	iface := &usb.InterfaceDescriptor{BInterfaceClass: usb.ClassCodeDeviceHub, BInterfaceSubClass: 1}
	assert.False(t, checkInterfaceFields(iface, dev))
}

func TestCheckDeviceCSPVendorSpecificAlwaysOK(t *testing.T) {
	assert.True(t, checkDeviceCSP(usb.ClassCodeVendorSpecific, 0x55, 0x77))
}

func TestCheckDeviceCSPUnknownClassRejected(t *testing.T) {
	assert.False(t, checkDeviceCSP(usb.ClassCode(0x7f), 0, 0))
}
