package usb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDeviceDescriptorFull(t *testing.T) {
	data := []byte{
		18, byte(DescriptorTypeDevice),
		0x00, 0x02, // bcdUSB 2.00
		0xff,       // bDeviceClass
		0x00,       // bDeviceSubClass
		0x00,       // bDeviceProtocol
		64,         // bMaxPacketSize0
		0x34, 0x12, // idVendor
		0x78, 0x56, // idProduct
		0x01, 0x00, // bcdDevice
		1, 2, 3, // string indices
		1, // bNumConfigurations
	}
	d, err := DecodeDeviceDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0200), d.BcdUSB)
	assert.Equal(t, uint16(0x1234), d.IDVendor)
	assert.Equal(t, uint16(0x5678), d.IDProduct)
	assert.Equal(t, uint8(64), d.BMaxPacketSize0)
	assert.Equal(t, uint8(1), d.BNumConfigurations)
	assert.True(t, IsValidBCD(d.BcdUSB))
}

func TestDecodeDeviceDescriptorTieredPrefixes(t *testing.T) {
	// An 8-byte probe only carries the fields up through bMaxPacketSize0.
	data := []byte{18, byte(DescriptorTypeDevice), 0x00, 0x02, 0xff, 0x00, 0x00, 64}
	d, err := DecodeDeviceDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0200), d.BcdUSB)
	assert.Equal(t, uint8(64), d.BMaxPacketSize0)
	assert.Equal(t, uint8(0), d.BNumConfigurations)

	// A 2-byte probe only carries the header.
	header := []byte{18, byte(DescriptorTypeDevice)}
	d2, err := DecodeDeviceDescriptor(header)
	require.NoError(t, err)
	assert.Equal(t, DescriptorTypeDevice, d2.Type())
	assert.Equal(t, uint16(0), d2.BcdUSB)
}

func TestDecodeDeviceDescriptorShortBuffer(t *testing.T) {
	_, err := DecodeDeviceDescriptor([]byte{18})
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = DecodeDeviceDescriptor(nil)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestDecodeConfigurationDescriptor(t *testing.T) {
	data := []byte{9, byte(DescriptorTypeConfig), 0x20, 0x00, 2, 1, 0, 0x80, 50}
	c, err := DecodeConfigurationDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x20), c.WTotalLength)
	assert.Equal(t, uint8(2), c.BNumInterfaces)
	assert.Equal(t, uint8(1), c.BConfigurationValue)
	assert.Equal(t, uint8(0x80), c.BmAttributes)
	assert.Equal(t, uint8(50), c.BMaxPower)
}

func TestDecodeConfigurationDescriptorShortBuffer(t *testing.T) {
	_, err := DecodeConfigurationDescriptor([]byte{9, byte(DescriptorTypeConfig), 0, 0})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestDecodeInterfaceDescriptor(t *testing.T) {
	data := []byte{9, byte(DescriptorTypeInterface), 0, 0, 2, 0x08, 0x06, 0x50, 0}
	i, err := DecodeInterfaceDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), i.BInterfaceNumber)
	assert.Equal(t, uint8(2), i.BNumEndpoints)
	assert.Equal(t, ClassCode(0x08), i.BInterfaceClass)
	assert.Equal(t, SubClass(0x06), i.BInterfaceSubClass)
	assert.Equal(t, uint8(0x50), i.BInterfaceProtocol)
}

func TestDecodeInterfaceAssociationDescriptor(t *testing.T) {
	data := []byte{8, byte(DescriptorTypeInterfaceAssociation), 0, 2, 0xef, 0x02, 0x01, 0}
	a, err := DecodeInterfaceAssociationDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), a.BFirstInterface)
	assert.Equal(t, uint8(2), a.BInterfaceCount)
	assert.Equal(t, ClassCode(0xef), a.BFunctionClass)
}

func TestDecodeEndpointDescriptor(t *testing.T) {
	data := []byte{7, byte(DescriptorTypeEndpoint), 0x81, 0x02, 0x00, 0x02, 1}
	e, err := DecodeEndpointDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x81), e.BEndpointAddress)
	assert.Equal(t, uint8(0x02), e.BmAttributes)
	assert.Equal(t, uint16(512), e.WMaxPacketSize)
	assert.Equal(t, uint8(1), e.BInterval)
}

func TestDecodeEndpointDescriptorShortBuffer(t *testing.T) {
	_, err := DecodeEndpointDescriptor([]byte{7, byte(DescriptorTypeEndpoint), 0x81})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestDecodeSSEndpointCompanionDescriptor(t *testing.T) {
	data := []byte{6, byte(DescriptorTypeSuperSpeedUSBEndprointCompanion), 15, 0, 0x00, 0x04}
	s, err := DecodeSSEndpointCompanionDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(15), s.BMaxBurst)
	assert.Equal(t, uint16(1024), s.WBytesPerInterval)
}

func TestDecodePipeUsageDescriptor(t *testing.T) {
	data := []byte{4, byte(DescriptorTypePipeUsage), 3, 0}
	p, err := DecodePipeUsageDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), p.BPipeID)
}

func TestDecodeStringDescriptor(t *testing.T) {
	// "Hi" in UTF-16LE plus the 2-byte header.
	data := []byte{6, byte(DescriptorTypeString), 'H', 0x00, 'i', 0x00}
	s, err := DecodeStringDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{'H', 0x00, 'i', 0x00}, s.Data)
}

func TestDecodeStringDescriptorTruncatedDeclaredLength(t *testing.T) {
	data := []byte{10, byte(DescriptorTypeString), 'H', 0x00}
	_, err := DecodeStringDescriptor(data)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestDecodeBOSDescriptor(t *testing.T) {
	data := []byte{5, byte(DescriptorTypeBOS), 0x0c, 0x00, 2}
	b, err := DecodeBOSDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0c), b.WTotalLength)
	assert.Equal(t, uint8(2), b.BNumDeviceCaps)
}

func TestDecodeDeviceCapabilityHeader(t *testing.T) {
	data := []byte{7, byte(DescriptorTypeDeviceCapability), 0x02, 0xaa, 0xbb, 0xcc, 0xdd}
	c, err := DecodeDeviceCapabilityHeader(data)
	require.NoError(t, err)
	assert.Equal(t, Capability(0x02), c.BDevCapabilityType)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd}, c.Data)
}

func TestDecodeDeviceCapabilityHeaderShortBuffer(t *testing.T) {
	_, err := DecodeDeviceCapabilityHeader([]byte{7, byte(DescriptorTypeDeviceCapability)})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestDecodeDeviceQualifierDescriptor(t *testing.T) {
	data := []byte{10, byte(DescriptorTypeDeviceQualifier), 0x00, 0x02, 0xff, 0x00, 0x00, 64, 1, 0}
	d, err := DecodeDeviceQualifierDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0200), d.BcdUSB)
	assert.Equal(t, uint8(1), d.BNumConfigurations)
}

func TestDecodeOtherSpeedConfigurationDescriptor(t *testing.T) {
	data := []byte{9, byte(DescriptorTypeOtherSpeedConfiguration), 0x20, 0x00, 1, 1, 0, 0, 0}
	c, err := DecodeOtherSpeedConfigurationDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x20), c.WTotalLength)
}

func TestDecodeOTGDescriptor(t *testing.T) {
	data := []byte{3, byte(DescriptorTypeOTG), 0x03}
	o, err := DecodeOTGDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x03), o.BmAttributes)
}

func TestDecodeDebugDescriptor(t *testing.T) {
	data := []byte{4, byte(DescriptorTypeDebug), 0x81, 0x01}
	d, err := DecodeDebugDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x81), d.BDebugInEndpoint)
	assert.Equal(t, uint8(0x01), d.BDebugOutEndpoint)
}

func TestIsValidBCD(t *testing.T) {
	assert.True(t, IsValidBCD(0x0200))
	assert.True(t, IsValidBCD(0x9999))
	assert.False(t, IsValidBCD(0x0a00))
	assert.False(t, IsValidBCD(0xffff))
}
