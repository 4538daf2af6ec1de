package validator

import (
	"encoding/binary"

	"github.com/daedaluz/cinch/usb"
	"github.com/daedaluz/cinch/usbr"
)

// checkGetStatus validates a GET_STATUS reply: exactly 2 bytes, with the
// bits not defined for the request's recipient held at zero.
func checkGetStatus(h *usbr.ControlPacketHeader, data []byte) bool {
	if len(data) != 2 {
		warn("E000a", "get_status reply has wrong length", "len", len(data))
		return false
	}
	value := binary.LittleEndian.Uint16(data)
	var reserved uint16
	switch h.RequestType & recipMask {
	case uint8(usb.RequestRecipientDevice):
		reserved = 0xffe0
	case uint8(usb.RequestRecipientInterface):
		reserved = 0xfffc
	case uint8(usb.RequestRecipientEndpoint):
		reserved = 0xfffe
	default:
		return true
	}
	if value&reserved != 0 {
		warn("E000b", "get_status reply uses reserved bits", "value", value)
		return false
	}
	return true
}

// checkDeviceCSP validates the joint (class, subclass, protocol) triple
// carried by a device descriptor, per the USB-IF's defined-class table.
func checkDeviceCSP(class usb.ClassCode, sub usb.SubClass, proto uint8) bool {
	protoOK := proto == 0xff
	switch class {
	case 0, usb.ClassCodeDeviceBillBoard:
		return sub == 0 && (proto == 0 || protoOK)
	case usb.ClassCodeCDCControl:
		return sub > 0 && sub < 0x0e && (proto == 0 || protoOK)
	case usb.ClassCodeDeviceHub:
		return sub == 0 && (proto >= 1 && proto <= 3 || protoOK)
	case usb.ClassCodeDiagnostic:
		return sub == 1 && (proto == 1 || protoOK)
	case usb.ClassCodeMisc:
		return (sub == 1 || sub == 2) && ((proto == 1 || proto == 2) || protoOK)
	case usb.ClassCodeVendorSpecific:
		return true
	default:
		return false
	}
}

// checkInterfaceCSP validates an interface's (class, subclass, protocol)
// triple, and whether that combination is consistent with the device's
// own class (a hub interface requires a hub device class; a CDC control
// interface accepts a CDC device class, class 0, or the 0xEF/0x02/0x01
// interface-association triple).
func checkInterfaceCSP(iface *usb.InterfaceDescriptor, dev *usb.DeviceDescriptor) bool {
	class, sub, proto := iface.BInterfaceClass, iface.BInterfaceSubClass, iface.BInterfaceProtocol
	protoOK := proto == 0xff

	dflag := dev.BDeviceClass == 0 || (dev.BDeviceClass == usb.ClassCodeMisc && dev.BDeviceSubClass == 0x02 && dev.BDeviceProtocol == 0x01)

	switch class {
	case usb.ClassCodeDeviceHub:
		if dev.BDeviceClass != usb.ClassCodeDeviceHub {
			return false
		}
		return sub == 0 && (proto <= 2 || protoOK)
	case usb.ClassCodeInterfaceAudio:
		return usb.IsKnownInterfaceSubClass(class, sub) && (proto == 0x20 || proto == 0x00 || protoOK)
	case usb.ClassCodeCDCControl:
		if dev.BDeviceClass != usb.ClassCodeCDCControl && !dflag {
			return false
		}
		return usb.IsKnownInterfaceSubClass(class, sub)
	case usb.ClassCodeInterfaceHID:
		return proto <= 2 || protoOK
	case usb.ClassCodeInterfacePersonalHealthcare, usb.ClassCodeInterfacePhysical, usb.ClassCodeInterfaceContentSecurity:
		return usb.IsKnownInterfaceSubClass(class, sub)
	case usb.ClassCodeInterfaceImage, usb.ClassCodeDiagnostic:
		return true
	case usb.ClassCodeInterfacePrinter:
		return sub == 1 && (proto <= 3 || protoOK)
	case usb.ClassCodeInterfaceMassStorage:
		return usb.IsKnownInterfaceSubClass(class, sub)
	case usb.ClassCodeInterfaceCDCData:
		if dev.BDeviceClass != usb.ClassCodeCDCControl && !dflag {
			return false
		}
		return true
	case usb.ClassCodeInterfaceSmartCard, usb.ClassCodeInterfaceVideo, usb.ClassCodeInterfaceAudioVideo:
		return usb.IsKnownInterfaceSubClass(class, sub)
	case usb.ClassCodeInterfaceWirelessController:
		return true
	case usb.ClassCodeMisc:
		return sub == 0x02 && proto == 0x01
	case usb.ClassCodeInterfaceApplicationSpecific:
		return true
	case usb.ClassCodeVendorSpecific:
		return true
	default:
		return !dflag
	}
}

// checkDeviceFields validates a device descriptor's payload, tolerating
// the short prefixes a host probe often sends (see usb.DecodeDeviceDescriptor).
func checkDeviceFields(data []byte) bool {
	if len(data) > usb.DeviceDescSize {
		warn("E005", "device descriptor payload too long", "len", len(data))
		return false
	}
	if len(data) >= 2 {
		bcd := binary.LittleEndian.Uint16(data[0:2])
		if !usb.IsValidBCD(bcd) {
			warn("E006", "device descriptor has invalid bcdUSB", "bcd", bcd)
			return false
		}
	}
	if len(data) >= 5 {
		if !checkDeviceCSP(usb.ClassCode(data[2]), usb.SubClass(data[3]), data[4]) {
			warn("E007", "device descriptor has invalid class/subclass/protocol")
			return false
		}
	}
	if len(data) >= 6 {
		bcd := binary.LittleEndian.Uint16(data[0:2])
		mps := data[5]
		ok := mps == 8 || mps == 16 || mps == 32 || mps == 64 || (bcd == 0x0300 && mps == 9)
		if !ok {
			warn("E008", "device descriptor has invalid bMaxPacketSize0", "value", mps)
			return false
		}
	}
	if len(data) >= 12 {
		bcdDevice := binary.LittleEndian.Uint16(data[10:12])
		if !usb.IsValidBCD(bcdDevice) {
			warn("E009", "device descriptor has invalid bcdDevice", "bcd", bcdDevice)
			return false
		}
	}
	if len(data) == usb.DeviceDescSize {
		if data[17] < 1 {
			warn("E010", "device descriptor declares zero configurations")
			return false
		}
	}
	return true
}

// checkStringFields validates a string descriptor body. Index 0 carries
// a LANGID table; any other index carries UTF-16LE text which must pair
// surrogates correctly.
func checkStringFields(data []byte, index uint8) bool {
	if len(data) == 0 || len(data)%2 != 0 {
		warn("E011", "string descriptor has odd or empty length", "len", len(data))
		return false
	}
	if index == 0 {
		for i := 0; i+2 <= len(data); i += 2 {
			id := binary.LittleEndian.Uint16(data[i : i+2])
			if !usb.IsValidLangID(id) {
				warn("E124", "langid table has unknown language id", "id", id)
				return false
			}
		}
		return true
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(data[2*i : 2*i+2])
	}
	for i := 0; i < len(units); i++ {
		r := units[i]
		switch {
		case r >= 0xd800 && r <= 0xdbff: // high surrogate, must be followed by low
			if i+1 >= len(units) || units[i+1] < 0xdc00 || units[i+1] > 0xdfff {
				warn("E013", "string descriptor has unpaired high surrogate")
				return false
			}
			i++
		case r >= 0xdc00 && r <= 0xdfff: // low surrogate with no preceding high
			warn("E013", "string descriptor has unpaired low surrogate")
			return false
		}
	}
	return true
}

// checkConfigFields validates a configuration descriptor's own header
// fields (not its children).
func checkConfigFields(cfg *usb.ConfigurationDescriptor, dev *usb.DeviceDescriptor) bool {
	if int(cfg.WTotalLength) < usb.ConfigDescSize+usb.InterfaceDescSize+2*usb.HeaderSize {
		warn("E014", "configuration descriptor total length too small", "total", cfg.WTotalLength)
		return false
	}
	if cfg.BNumInterfaces < 1 {
		warn("E015", "configuration descriptor declares zero interfaces")
		return false
	}
	if dev.BDeviceClass == usb.ClassCodeCDCControl && cfg.BNumInterfaces < 2 {
		warn("E166", "CDC device configuration has fewer than 2 interfaces")
		return false
	}
	if cfg.BmAttributes&usb.ConfigAttributeReservedMask != usb.ConfigAttributeMustBeSet {
		warn("E016", "configuration descriptor attributes use reserved bits", "attrs", cfg.BmAttributes)
		return false
	}
	if cfg.BMaxPower > 250 {
		warn("E017", "configuration descriptor max power out of range", "power", cfg.BMaxPower)
		return false
	}
	return true
}

// checkOtherSpeedFields applies the same attribute/power rules to an
// other-speed-configuration descriptor, which shares ConfigurationDescriptor's shape.
func checkOtherSpeedFields(cfg *usb.OtherSpeedConfigurationDescriptor) bool {
	if cfg.BmAttributes&usb.ConfigAttributeReservedMask != usb.ConfigAttributeMustBeSet {
		warn("E116", "other-speed descriptor attributes use reserved bits", "attrs", cfg.BmAttributes)
		return false
	}
	if cfg.BMaxPower > 250 {
		warn("E117", "other-speed descriptor max power out of range", "power", cfg.BMaxPower)
		return false
	}
	return true
}

func checkInterfaceFields(iface *usb.InterfaceDescriptor, dev *usb.DeviceDescriptor) bool {
	if iface.BNumEndpoints > 30 {
		warn("E018", "interface declares too many endpoints", "count", iface.BNumEndpoints)
		return false
	}
	if !checkInterfaceCSP(iface, dev) {
		warn("E019", "interface has invalid class/subclass/protocol")
		return false
	}
	return true
}

func checkInterfaceAssocFields(iad *usb.InterfaceAssociationDescriptor) bool {
	if iad.BFunctionClass == 0 {
		warn("E099", "interface association descriptor has class 0")
		return false
	}
	return true
}

// endpoint attribute/size tables, by bcdUSB major version and transfer type.
func checkEndpointFields(ep *usb.EndpointDescriptor, dev *usb.DeviceDescriptor) bool {
	if ep.BEndpointAddress&0x70 != 0 {
		warn("E020", "endpoint address uses reserved bits")
		return false
	}
	if ep.BmAttributes&0xc0 != 0 {
		warn("E021", "endpoint attributes use reserved bits")
		return false
	}
	usb3 := dev.BcdUSB >= 0x0300
	if !usb3 && ep.WMaxPacketSize&0xe000 != 0 {
		warn("E022", "endpoint max packet size uses reserved bits")
		return false
	}

	xfer := ep.BmAttributes & usb.EndpointXferTypeMask
	size := ep.WMaxPacketSize
	sub := uint8((size >> 11) & 0x3)

	switch xfer {
	case usb.EndpointXferControl:
		if size < 1 || size > 1024 {
			warn("E023", "control endpoint max packet size out of range", "size", size)
			return false
		}

	case usb.EndpointXferIsochronous:
		switch {
		case usb3:
			if size == 0 || size > 1024 {
				warn("E030", "iso endpoint (usb3) max packet size out of range", "size", size)
				return false
			}
		case dev.BcdUSB >= 0x0200:
			switch sub {
			case 1:
				if size < 1 || size > 513 {
					warn("E031", "iso endpoint (usb2, 1x) max packet size out of range", "size", size)
					return false
				}
			case 2:
				if size < 1 || size > 683 {
					warn("E032", "iso endpoint (usb2, 2x) max packet size out of range", "size", size)
					return false
				}
			default:
				if size < 1 || size > 1024 {
					warn("E033", "iso endpoint (usb2) max packet size out of range", "size", size)
					return false
				}
			}
		default:
			if size < 1 || size > 1023 {
				warn("E034", "iso endpoint (usb1) max packet size out of range", "size", size)
				return false
			}
		}
		if ep.BInterval < 1 || ep.BInterval > 16 {
			warn("E040", "iso endpoint binterval out of range", "interval", ep.BInterval)
			return false
		}

	case usb.EndpointXferBulk:
		switch {
		case usb3:
			if size != 1024 {
				warn("E041", "bulk endpoint (usb3) must use 1024-byte packets", "size", size)
				return false
			}
		case dev.BcdUSB >= 0x0200:
			if size != 512 {
				warn("E042", "bulk endpoint (usb2) must use 512-byte packets", "size", size)
				return false
			}
		default:
			if size != 8 && size != 16 && size != 32 && size != 64 {
				warn("E043", "bulk endpoint (usb1) max packet size out of range", "size", size)
				return false
			}
		}

	case usb.EndpointXferInterrupt:
		switch {
		case usb3:
			if size == 0 || size > 1024 {
				warn("E050", "interrupt endpoint (usb3) max packet size out of range", "size", size)
				return false
			}
			if ep.BInterval < 1 || ep.BInterval > 16 {
				warn("E051", "interrupt endpoint (usb3) binterval out of range", "interval", ep.BInterval)
				return false
			}
		case dev.BcdUSB >= 0x0200:
			if size == 0 || size > 1024 {
				warn("E052", "interrupt endpoint (usb2) max packet size out of range", "size", size)
				return false
			}
			if ep.BInterval < 1 || ep.BInterval > 16 {
				warn("E053", "interrupt endpoint (usb2) binterval out of range", "interval", ep.BInterval)
				return false
			}
		default:
			if size == 0 || size > 64 {
				warn("E053", "interrupt endpoint (usb1) max packet size out of range", "size", size)
				return false
			}
			if ep.BInterval < 1 || ep.BInterval > 255 {
				warn("E053", "interrupt endpoint (usb1) binterval out of range", "interval", ep.BInterval)
				return false
			}
		}
	}
	return true
}

func checkSSEpCompFields(ss *usb.SSEndpointCompanionDescriptor, ep *usb.EndpointDescriptor) bool {
	if ss.BMaxBurst > 15 {
		warn("E083", "ss endpoint companion max burst out of range", "value", ss.BMaxBurst)
		return false
	}
	if ss.BMaxBurst > 0 && ep.WMaxPacketSize != 1024 {
		warn("E084", "ss endpoint companion max burst requires 1024-byte endpoint")
		return false
	}
	switch ep.BmAttributes & usb.EndpointXferTypeMask {
	case usb.EndpointXferBulk:
		maxStreams := ss.BmAttributes & 0x1f
		if ss.BmAttributes&0xe0 != 0 {
			warn("E085", "ss endpoint companion bulk attrs use reserved bits")
			return false
		}
		if maxStreams > 16 {
			warn("E086", "ss endpoint companion declares too many streams")
			return false
		}
	case usb.EndpointXferControl, usb.EndpointXferInterrupt:
		if ss.BmAttributes != 0 {
			warn("E087", "ss endpoint companion attrs must be zero for control/interrupt")
			return false
		}
	case usb.EndpointXferIsochronous:
		mult := ss.BmAttributes & 0x3
		if mult > 2 {
			warn("E088", "ss endpoint companion iso mult out of range")
			return false
		}
		if mult > 0 && ss.BMaxBurst == 0 {
			warn("E089", "ss endpoint companion iso mult set without max burst")
			return false
		}
	}
	return true
}

func checkDeviceQualifierFields(d *usb.DeviceQualifierDescriptor) bool {
	if d.BcdUSB < 0x0200 || d.BcdUSB >= 0x0300 || !usb.IsValidBCD(d.BcdUSB) {
		warn("E105", "device qualifier bcdUSB out of range")
		return false
	}
	if !checkDeviceCSP(d.BDeviceClass, d.BDeviceSubClass, d.BDeviceProtocol) {
		warn("E105", "device qualifier has invalid class/subclass/protocol")
		return false
	}
	if mps := d.BMaxPacketSize0; mps != 8 && mps != 16 && mps != 32 && mps != 64 {
		warn("E106", "device qualifier max packet size out of range", "value", mps)
		return false
	}
	if d.BReserved != 0 {
		warn("E107", "device qualifier reserved byte is non-zero")
		return false
	}
	return true
}

// checkPipeUsageFields always accepts: the UAS pipe-usage values are
// not documented in a publicly available spec, matching the source
// implementation's own admission that it cannot check this field.
func checkPipeUsageFields(*usb.PipeUsageDescriptor) bool {
	return true
}

func checkOTGFields(o *usb.OTGDescriptor) bool {
	if o.BmAttributes&0xfc != 0 {
		warn("E129", "otg descriptor attributes use reserved bits")
		return false
	}
	return true
}

// checkDebugFields validates a Debug descriptor's two endpoint
// addresses are both IN endpoints (debug data only ever flows to the
// host reading it).
func checkDebugFields(d *usb.DebugDescriptor) bool {
	if d.BDebugInEndpoint&0x80 == 0 {
		warn("E130-DEBUG", "debug descriptor in-endpoint is not an IN endpoint")
		return false
	}
	if d.BDebugOutEndpoint&0x80 == 0 {
		warn("E131-DEBUG", "debug descriptor out-endpoint is not an IN endpoint")
		return false
	}
	return true
}

func checkCapExtFields(ext *usb.CapUSB20ExtensionDescriptor, bcdUSB uint16) bool {
	if ext.BMAttributes&0xfffffffd != 0 {
		warn("E145", "usb2 extension capability attrs use reserved bits")
		return false
	}
	if bcdUSB >= 0x0300 && ext.BMAttributes&0x2 == 0 {
		warn("E146", "usb3 device must advertise LPM in usb2 extension capability")
		return false
	}
	return true
}

func checkCapSSFields(ss *usb.CapSuperSpeedUSBDescriptor) bool {
	if ss.BMAttributes&0xfd != 0 {
		warn("E147", "superspeed capability attrs use reserved bits")
		return false
	}
	if ss.WSpeedsSupported&0xfff0 != 0 {
		warn("E148", "superspeed capability speeds use reserved bits")
		return false
	}
	if ss.BFunctionalitySupport > 3 || ss.WSpeedsSupported&(1<<ss.BFunctionalitySupport) == 0 {
		warn("E149", "superspeed capability functionality support bit not set in speeds mask")
		return false
	}
	if ss.BU1DevExitLat > 0x0a {
		warn("E150", "superspeed capability u1 exit latency out of range")
		return false
	}
	if ss.WU2DevExitLat > 0x07ff {
		warn("E151", "superspeed capability u2 exit latency out of range")
		return false
	}
	return true
}

func checkCapContainerFields(c *usb.CapContainerIDDescriptor) bool {
	if c.Reserved != 0 {
		warn("E152", "container id capability reserved byte is non-zero")
		return false
	}
	return true
}

// checkGetConfig validates a GET_CONFIGURATION reply: exactly 1 byte
// naming a configuration value this device has actually advertised.
func checkGetConfig(dev *VirtualDevice, data []byte) bool {
	if len(data) != 1 {
		warn("E054", "get_configuration reply has wrong length", "len", len(data))
		return false
	}
	for _, cfg := range dev.Configs {
		if cfg.Desc.BConfigurationValue == data[0] {
			return true
		}
	}
	if data[0] == 0 {
		return true // unconfigured is always a legal answer
	}
	warn("E055", "get_configuration reply names an unknown configuration", "value", data[0])
	return false
}
