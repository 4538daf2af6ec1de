package usb

import (
	"encoding/binary"
	"fmt"
)

// ErrShortBuffer is returned by the Decode* functions when the supplied
// slice does not contain enough bytes for the descriptor being read.
var ErrShortBuffer = fmt.Errorf("usb: not enough payload for descriptor")

// Every Decode* function below reads its fields one at a time with
// encoding/binary, the way the teacher's descriptor.go does for the
// reflection-driven path. These are written out explicitly, field by
// field, rather than cast over a byte slice, because the wire layout must
// never be trusted to match host struct layout/alignment.

func readHeader(data []byte) (DescriptorHeader, error) {
	if len(data) < HeaderSize {
		return DescriptorHeader{}, ErrShortBuffer
	}
	return DescriptorHeader{Length: data[0], DescriptorType: DescriptorType(data[1])}, nil
}

// DecodeDeviceDescriptor reads a device descriptor. It tolerates short
// prefixes: real host controllers sometimes probe with 2 or 8 bytes before
// the full 18-byte descriptor is requested.
func DecodeDeviceDescriptor(data []byte) (DeviceDescriptor, error) {
	var d DeviceDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return d, err
	}
	d.DescriptorHeader = hdr
	switch {
	case len(data) >= 18:
		d.BcdUSB = binary.LittleEndian.Uint16(data[2:4])
		d.BDeviceClass = ClassCode(data[4])
		d.BDeviceSubClass = SubClass(data[5])
		d.BDeviceProtocol = data[6]
		d.BMaxPacketSize0 = data[7]
		d.IDVendor = binary.LittleEndian.Uint16(data[8:10])
		d.IDProduct = binary.LittleEndian.Uint16(data[10:12])
		d.BcdDevice = binary.LittleEndian.Uint16(data[12:14])
		d.IManufacturer = data[14]
		d.IProduct = data[15]
		d.ISerialNumber = data[16]
		d.BNumConfigurations = data[17]
	case len(data) >= 8:
		d.BcdUSB = binary.LittleEndian.Uint16(data[2:4])
		d.BDeviceClass = ClassCode(data[4])
		d.BDeviceSubClass = SubClass(data[5])
		d.BDeviceProtocol = data[6]
		d.BMaxPacketSize0 = data[7]
	case len(data) >= 2:
		// header only; nothing else to read.
	default:
		return d, ErrShortBuffer
	}
	return d, nil
}

// DecodeConfigurationDescriptor reads the 9-byte configuration header (not
// the interfaces/endpoints that follow it in tree mode).
func DecodeConfigurationDescriptor(data []byte) (ConfigurationDescriptor, error) {
	var c ConfigurationDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return c, err
	}
	if len(data) < ConfigDescSize {
		return c, ErrShortBuffer
	}
	c.DescriptorHeader = hdr
	c.WTotalLength = binary.LittleEndian.Uint16(data[2:4])
	c.BNumInterfaces = data[4]
	c.BConfigurationValue = data[5]
	c.IConfiguration = data[6]
	c.BmAttributes = data[7]
	c.BMaxPower = data[8]
	return c, nil
}

// DecodeInterfaceDescriptor reads a 9-byte interface descriptor.
func DecodeInterfaceDescriptor(data []byte) (InterfaceDescriptor, error) {
	var i InterfaceDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return i, err
	}
	if len(data) < InterfaceDescSize {
		return i, ErrShortBuffer
	}
	i.DescriptorHeader = hdr
	i.BInterfaceNumber = data[2]
	i.BAlternateSetting = data[3]
	i.BNumEndpoints = data[4]
	i.BInterfaceClass = ClassCode(data[5])
	i.BInterfaceSubClass = SubClass(data[6])
	i.BInterfaceProtocol = data[7]
	i.IInterface = data[8]
	return i, nil
}

// DecodeInterfaceAssociationDescriptor reads an 8-byte IAD.
func DecodeInterfaceAssociationDescriptor(data []byte) (InterfaceAssociationDescriptor, error) {
	var a InterfaceAssociationDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return a, err
	}
	if len(data) < InterfaceAssocDescSize {
		return a, ErrShortBuffer
	}
	a.DescriptorHeader = hdr
	a.BFirstInterface = data[2]
	a.BInterfaceCount = data[3]
	a.BFunctionClass = ClassCode(data[4])
	a.BFunctionSubClass = SubClass(data[5])
	a.BFunctionProtocol = data[6]
	a.IFunction = data[7]
	return a, nil
}

// DecodeEndpointDescriptor reads a 7-byte (or audio-extended) endpoint
// descriptor; trailing bytes beyond byte 7 are ignored here and validated
// by the audio-specific caller if applicable.
func DecodeEndpointDescriptor(data []byte) (EndpointDescriptor, error) {
	var e EndpointDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return e, err
	}
	if len(data) < EndpointDescSize {
		return e, ErrShortBuffer
	}
	e.DescriptorHeader = hdr
	e.BEndpointAddress = data[2]
	e.BmAttributes = data[3]
	e.WMaxPacketSize = binary.LittleEndian.Uint16(data[4:6])
	e.BInterval = data[6]
	return e, nil
}

// DecodeSSEndpointCompanionDescriptor reads the 6-byte SuperSpeed endpoint
// companion descriptor.
func DecodeSSEndpointCompanionDescriptor(data []byte) (SSEndpointCompanionDescriptor, error) {
	var s SSEndpointCompanionDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return s, err
	}
	if len(data) < SsEpCompDescSize {
		return s, ErrShortBuffer
	}
	s.DescriptorHeader = hdr
	s.BMaxBurst = data[2]
	s.BmAttributes = data[3]
	s.WBytesPerInterval = binary.LittleEndian.Uint16(data[4:6])
	return s, nil
}

// DecodePipeUsageDescriptor reads the 4-byte UAS pipe-usage descriptor.
func DecodePipeUsageDescriptor(data []byte) (PipeUsageDescriptor, error) {
	var p PipeUsageDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return p, err
	}
	if len(data) < 4 {
		return p, ErrShortBuffer
	}
	p.DescriptorHeader = hdr
	p.BPipeID = data[2]
	p.Reserved = data[3]
	return p, nil
}

// DecodeStringDescriptor reads a raw string descriptor; interpretation of
// Data (language-ID table vs UTF-16LE text) is the caller's job, it
// depends on the requested string index.
func DecodeStringDescriptor(data []byte) (StringDescriptor, error) {
	var s StringDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return s, err
	}
	if int(hdr.Length) > len(data) {
		return s, ErrShortBuffer
	}
	s.DescriptorHeader = hdr
	s.Data = append([]byte(nil), data[2:hdr.Length]...)
	return s, nil
}

// DecodeBOSDescriptor reads the 5-byte BOS root descriptor.
func DecodeBOSDescriptor(data []byte) (BOSDescriptor, error) {
	var b BOSDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return b, err
	}
	if len(data) < BOSDescSize {
		return b, ErrShortBuffer
	}
	b.DescriptorHeader = hdr
	b.WTotalLength = binary.LittleEndian.Uint16(data[2:4])
	b.BNumDeviceCaps = data[4]
	return b, nil
}

// DecodeDeviceCapabilityHeader reads the {length, type, capability-type}
// prefix shared by every BOS device-capability descriptor, leaving the
// capability-specific tail in Data.
func DecodeDeviceCapabilityHeader(data []byte) (DeviceCapabilityDescriptor, error) {
	var c DeviceCapabilityDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return c, err
	}
	if len(data) < 3 || int(hdr.Length) > len(data) {
		return c, ErrShortBuffer
	}
	c.DescriptorHeader = hdr
	c.BDevCapabilityType = Capability(data[2])
	c.Data = append([]byte(nil), data[3:hdr.Length]...)
	return c, nil
}

// DecodeDeviceQualifierDescriptor reads the 10-byte device qualifier.
func DecodeDeviceQualifierDescriptor(data []byte) (DeviceQualifierDescriptor, error) {
	var d DeviceQualifierDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return d, err
	}
	if len(data) < 10 {
		return d, ErrShortBuffer
	}
	d.DescriptorHeader = hdr
	d.BcdUSB = binary.LittleEndian.Uint16(data[2:4])
	d.BDeviceClass = ClassCode(data[4])
	d.BDeviceSubClass = SubClass(data[5])
	d.BDeviceProtocol = data[6]
	d.BMaxPacketSize0 = data[7]
	d.BNumConfigurations = data[8]
	d.BReserved = data[9]
	return d, nil
}

// DecodeOtherSpeedConfigurationDescriptor reads the 9-byte other-speed
// configuration descriptor; same shape as ConfigurationDescriptor.
func DecodeOtherSpeedConfigurationDescriptor(data []byte) (OtherSpeedConfigurationDescriptor, error) {
	var c OtherSpeedConfigurationDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return c, err
	}
	if len(data) < ConfigDescSize {
		return c, ErrShortBuffer
	}
	c.DescriptorHeader = hdr
	c.WTotalLength = binary.LittleEndian.Uint16(data[2:4])
	c.BNumInterfaces = data[4]
	c.BConfigurationValue = data[5]
	c.IConfiguration = data[6]
	c.BmAttributes = data[7]
	c.BMaxPower = data[8]
	return c, nil
}

// DecodeOTGDescriptor reads the 3-byte OTG descriptor.
func DecodeOTGDescriptor(data []byte) (OTGDescriptor, error) {
	var o OTGDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return o, err
	}
	if len(data) < 3 {
		return o, ErrShortBuffer
	}
	o.DescriptorHeader = hdr
	o.BmAttributes = data[2]
	return o, nil
}

// DecodeDebugDescriptor reads the 4-byte debug descriptor.
func DecodeDebugDescriptor(data []byte) (DebugDescriptor, error) {
	var d DebugDescriptor
	hdr, err := readHeader(data)
	if err != nil {
		return d, err
	}
	if len(data) < 4 {
		return d, ErrShortBuffer
	}
	d.DescriptorHeader = hdr
	d.BDebugInEndpoint = data[2]
	d.BDebugOutEndpoint = data[3]
	return d, nil
}

// IsValidBCD reports whether every nibble of a packed-BCD 16-bit value
// (such as bcdUSB or bcdDevice) is a valid decimal digit.
func IsValidBCD(v uint16) bool {
	for i := 0; i < 4; i++ {
		nibble := (v >> (4 * i)) & 0xf
		if nibble > 9 {
			return false
		}
	}
	return true
}
