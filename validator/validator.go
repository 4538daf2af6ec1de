package validator

import (
	"github.com/daedaluz/cinch/usb"
	"github.com/daedaluz/cinch/usbr"
)

// Validator is the module pipeline stage that rejects control-transfer
// traffic no conformant device or host could have produced. It holds no
// wire-level state of its own beyond the descriptor tree it has
// incrementally assembled (store) and the stateful class checkers (hid,
// bbb) that need to remember one request across a request/reply pair.
//
// A failed check routes the offending Request to port 1, the chain's
// Reset terminal; everything else flows out on port 0 unchanged, exactly
// like every other NopHandlers-based stage.
type Validator struct {
	usbr.NopHandlers

	store      *deviceStore
	hid        *hidCheck
	bbb        map[uint8]*bbbCheck // control-endpoint class requests, keyed by interface number
	bulkBBB    map[uint8]*bbbCheck // data-endpoint cbw/csw tracking, keyed by interface number
	thirdParty *ThirdParty         // third-party compliance constraints, nil if disabled
}

// NewValidator builds a Validator. thirdParty may be nil to disable
// third-party compliance checking.
func NewValidator(thirdParty *ThirdParty) *Validator {
	return &Validator{
		store:      newDeviceStore(),
		hid:        newHIDCheck(),
		bbb:        map[uint8]*bbbCheck{},
		bulkBBB:    map[uint8]*bbbCheck{},
		thirdParty: thirdParty,
	}
}

// endpointBelongsToMassStorage reports whether ep is an endpoint of a
// mass-storage interface in the device's currently chosen configuration.
func endpointBelongsToMassStorage(dev *VirtualDevice, ep uint8) bool {
	if dev.ChosenConf == nil {
		return false
	}
	cfg, ok := dev.Configs[*dev.ChosenConf]
	if !ok {
		return false
	}
	for ifNum, alts := range cfg.Interfaces {
		alt := dev.ChosenInterfaces[ifNum]
		node, ok := alts[alt]
		if !ok || node.Desc.BInterfaceClass != usb.ClassCodeInterfaceMassStorage {
			continue
		}
		if _, ok := node.Endpoints[ep]; ok {
			return true
		}
	}
	return false
}

// HandleBulkPacket tracks the Bulk-Only-Transport CBW/CSW handshake on
// endpoints known to belong to a mass-storage interface. Endpoints not
// yet attributed to mass storage pass through unchecked.
func (v *Validator) HandleBulkPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	h, err := usbr.DecodeBulkPacketHeader(req.TypeHeader)
	if err != nil {
		return accept(req)
	}
	var ifNum uint8
	isMassStorage := v.store.View(func(dev *VirtualDevice) bool {
		if !endpointBelongsToMassStorage(dev, h.Ep) {
			return false
		}
		for n, alts := range dev.Configs[*dev.ChosenConf].Interfaces {
			node, ok := alts[dev.ChosenInterfaces[n]]
			if !ok || node.Desc.BInterfaceClass != usb.ClassCodeInterfaceMassStorage {
				continue
			}
			if _, ok := node.Endpoints[h.Ep]; ok {
				ifNum = n
				return true
			}
		}
		return false
	})
	if !isMassStorage {
		return accept(req)
	}
	c, ok := v.bulkBBB[ifNum]
	if !ok {
		c = &bbbCheck{}
		v.bulkBBB[ifNum] = c
	}
	if !c.checkBulkData(source, req.Data) {
		return reject(req)
	}
	return accept(req)
}

func reject(req usbr.Request) (uint8, []usbr.Request) {
	return 1, []usbr.Request{req}
}

func accept(req usbr.Request) (uint8, []usbr.Request) {
	return 0, []usbr.Request{req}
}

// HandleConnect records the device identity a DeviceConnect frame
// announces; first-seen wins, matching the rest of the descriptor tree's
// idempotent insert semantics.
func (v *Validator) HandleConnect(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	h, err := usbr.DecodeConnectHeader(req.TypeHeader)
	if err != nil {
		warn("E170", "malformed device connect header")
		return reject(req)
	}
	if !checkDeviceCSP(usb.ClassCode(h.Class), usb.SubClass(h.SubClass), h.Proto) {
		warn("E171", "device connect announces an invalid class/subclass/protocol")
		return reject(req)
	}
	v.store.Mutate(func(dev *VirtualDevice) {
		if dev.Desc == nil {
			dev.Desc = &usb.DeviceDescriptor{
				BDeviceClass:    usb.ClassCode(h.Class),
				BDeviceSubClass: usb.SubClass(h.SubClass),
				BDeviceProtocol: h.Proto,
				IDVendor:        h.VendorID,
				IDProduct:       h.ProductID,
				BcdDevice:       h.VersionBcd,
			}
		}
	})
	return accept(req)
}

// HandleSetConf tracks a guest-issued SET_CONFIGURATION outside of the
// control-packet path (the redirection protocol also carries a dedicated
// SetConf message for this, alongside the control transfer itself).
func (v *Validator) HandleSetConf(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	h, err := usbr.DecodeSetConfHeader(req.TypeHeader)
	if err != nil {
		return reject(req)
	}
	if source == usbr.SourceBlue {
		v.store.Mutate(func(dev *VirtualDevice) {
			conf := h.Conf
			dev.ChosenConf = &conf
			if _, ok := dev.Configs[conf]; !ok {
				dev.Configs[conf] = &ConfigNode{Interfaces: map[uint8]map[uint8]*InterfaceNode{}}
			}
		})
	}
	return accept(req)
}

// HandleControlPacket is the main dispatch point: every GET_DESCRIPTOR,
// class request and standard request crosses here exactly once per
// direction.
func (v *Validator) HandleControlPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	h, err := usbr.DecodeControlPacketHeader(req.TypeHeader)
	if err != nil {
		warn("E172", "malformed control packet header")
		return reject(req)
	}

	ok := true
	switch h.RequestType & typeMask {
	case uint8(usb.RequestTypeStandard):
		ok = v.checkStandardRequest(source, &h, req.Data)
	case uint8(usb.RequestTypeClass):
		ok = v.checkClassRequest(source, &h, req.Data)
	default:
		// Vendor and reserved requests carry no USB-IF-defined shape to
		// check against; pass them through like the Filter capability,
		// wire fidelity only.
	}

	if !ok {
		return reject(req)
	}
	return accept(req)
}

func (v *Validator) checkStandardRequest(source usbr.Source, h *usbr.ControlPacketHeader, data []byte) bool {
	switch usb.StandardRequest(h.Request) {
	case usb.RequestGetStatus:
		if source == usbr.SourceRed {
			return checkGetStatus(h, data)
		}
		return true
	case usb.RequestGetDescriptor:
		return v.checkGetDescriptor(source, h, data)
	case usb.RequestGetConfiguration:
		if source == usbr.SourceRed {
			return v.store.View(func(dev *VirtualDevice) bool { return checkGetConfig(dev, data) })
		}
		return true
	case usb.RequestSetConfiguration:
		if source == usbr.SourceBlue {
			conf := uint8(h.Value)
			v.store.Mutate(func(dev *VirtualDevice) {
				dev.ChosenConf = &conf
				if _, ok := dev.Configs[conf]; !ok {
					dev.Configs[conf] = &ConfigNode{Interfaces: map[uint8]map[uint8]*InterfaceNode{}}
				}
			})
		}
		return true
	case usb.RequestSetInterface:
		if source == usbr.SourceBlue {
			ifNum := uint8(h.Index)
			alt := uint8(h.Value)
			v.store.Mutate(func(dev *VirtualDevice) {
				dev.ChosenInterfaces[ifNum] = alt
			})
		}
		return true
	case usb.RequestGetInterface:
		ifNum := uint8(h.Index)
		if source == usbr.SourceBlue {
			if len(data) != 0 {
				warn("E174-IF", "get_interface request carries a payload")
				return false
			}
			return v.store.View(func(dev *VirtualDevice) bool {
				if dev.ChosenConf == nil {
					return true
				}
				return hasInterface(dev, *dev.ChosenConf, ifNum)
			})
		}
		if len(data) != 1 {
			warn("E175-IF", "get_interface reply must carry exactly one byte")
			return false
		}
		alt := data[0]
		return v.store.View(func(dev *VirtualDevice) bool {
			if dev.ChosenConf == nil {
				return true
			}
			if !hasAlternate(dev, *dev.ChosenConf, ifNum, alt) {
				warn("E176-IF", "get_interface reply names an unknown alternate setting")
				return false
			}
			return true
		})
	case usb.RequestSynchFrame:
		if source == usbr.SourceRed && len(data) != 2 {
			warn("E177-SYNC", "synch_frame reply must carry exactly two bytes")
			return false
		}
		return true
	case usb.RequestSetAddress, usb.RequestClearFeature, usb.RequestSetFeature, usb.RequestSetDescriptor:
		if len(data) != 0 {
			warn("E178-REQ", "request must carry an empty payload", "request", h.Request)
			return false
		}
		return true
	default:
		warn("E173", "unrecognized standard request", "request", h.Request)
		return true
	}
}

func (v *Validator) checkClassRequest(source usbr.Source, h *usbr.ControlPacketHeader, data []byte) bool {
	ifNum := uint8(h.Index)
	if h.RequestType&recipMask != uint8(usb.RequestRecipientInterface) {
		return true
	}
	var class usb.ClassCode
	var ifaceKnown bool
	v.store.View(func(dev *VirtualDevice) bool {
		if n := currentInterface(dev, ifNum); n != nil {
			class = n.Desc.BInterfaceClass
			ifaceKnown = true
		}
		return true
	})
	if !ifaceKnown {
		return true // haven't seen this interface's descriptor yet; nothing to check against
	}
	switch class {
	case usb.ClassCodeInterfaceHID:
		return checkHIDRequest(h, data)
	case usb.ClassCodeInterfaceMassStorage:
		c, ok := v.bbb[ifNum]
		if !ok {
			c = &bbbCheck{}
			v.bbb[ifNum] = c
		}
		return c.checkControlReq(source, h, data)
	case usb.ClassCodeInterfacePrinter:
		return checkPrinterRequest(source, h, data)
	default:
		return true
	}
}

// checkGetDescriptor dispatches a GET_DESCRIPTOR request by recipient and
// the descriptor type named in wValue's high byte. Only the reply leg
// (source == SourceRed, the side actually carrying descriptor bytes) is
// checked; the request leg carries no descriptor payload to validate.
func (v *Validator) checkGetDescriptor(source usbr.Source, h *usbr.ControlPacketHeader, data []byte) bool {
	descType := uint8(h.Value >> 8)
	index := uint8(h.Value)

	if h.RequestType&recipMask == uint8(usb.RequestRecipientInterface) {
		if source != usbr.SourceRed {
			return true
		}
		ifNum := uint8(h.Index)
		var alt uint8
		v.store.View(func(dev *VirtualDevice) bool {
			alt = dev.ChosenInterfaces[ifNum]
			return true
		})
		return v.hid.checkHIDGetDesc(source, ifNum, alt, descType, data)
	}
	if source != usbr.SourceRed {
		return true
	}

	switch usb.DescriptorType(descType) {
	case usb.DescriptorTypeDevice:
		return checkDeviceFields(data)
	case usb.DescriptorTypeConfig:
		return v.checkConfigDescriptor(index, data)
	case usb.DescriptorTypeString:
		return checkStringFields(data, index)
	case usb.DescriptorTypeDeviceQualifier:
		dq, err := usb.DecodeDeviceQualifierDescriptor(data)
		if err != nil {
			warn("E108", "malformed device qualifier descriptor")
			return false
		}
		return checkDeviceQualifierFields(&dq)
	case usb.DescriptorTypeOtherSpeedConfiguration:
		cfg, err := usb.DecodeOtherSpeedConfigurationDescriptor(data)
		if err != nil {
			warn("E112", "malformed other-speed configuration descriptor")
			return false
		}
		return checkOtherSpeedFields(&cfg)
	case usb.DescriptorTypeBOS:
		return checkBOSDescriptor(data)
	default:
		return true
	}
}

// checkConfigDescriptor decodes a full GET_DESCRIPTOR(CONFIGURATION)
// reply, validates the configuration header and every interface/endpoint
// descriptor inside it, and inserts everything it accepts into the
// virtual device tree (first-seen wins; nothing is ever removed).
func (v *Validator) checkConfigDescriptor(index uint8, data []byte) bool {
	cfg, err := usb.DecodeConfigurationDescriptor(data)
	if err != nil {
		warn("E014", "malformed configuration descriptor")
		return false
	}

	var dev *usb.DeviceDescriptor
	v.store.View(func(d *VirtualDevice) bool {
		dev = d.Desc
		return true
	})
	if dev == nil {
		dev = &usb.DeviceDescriptor{}
	}
	if !checkConfigFields(&cfg, dev) {
		return false
	}
	if v.thirdParty != nil && !v.thirdParty.CheckConfigFields(dev.IDVendor, dev.IDProduct, configFields(&cfg)) {
		return false
	}

	offset := usb.ConfigDescSize
	var curIface *usb.InterfaceDescriptor
	var curEndpoints map[uint8]*EndpointNode
	var lastEp *EndpointNode
	var curIfNum, curAlt uint8
	ifaces := map[uint8]map[uint8]*InterfaceNode{}

	for offset+usb.HeaderSize <= len(data) {
		length := int(data[offset])
		descType := data[offset+1]
		if length == 0 || offset+length > len(data) {
			warn("E015a", "configuration descriptor body truncated")
			return false
		}
		body := data[offset : offset+length]

		switch usb.DescriptorType(descType) {
		case usb.DescriptorTypeInterface:
			if curIface != nil {
				if ifaces[curIfNum] == nil {
					ifaces[curIfNum] = map[uint8]*InterfaceNode{}
				}
				ifaces[curIfNum][curAlt] = &InterfaceNode{Desc: *curIface, Endpoints: curEndpoints}
			}
			iface, err := usb.DecodeInterfaceDescriptor(body)
			if err != nil {
				warn("E018a", "malformed interface descriptor")
				return false
			}
			if !checkInterfaceFields(&iface, dev) {
				return false
			}
			if v.thirdParty != nil && !v.thirdParty.CheckIfaceFields(dev.IDVendor, dev.IDProduct, ifaceFields(&iface)) {
				return false
			}
			curIface = &iface
			curIfNum, curAlt = iface.BInterfaceNumber, iface.BAlternateSetting
			curEndpoints = map[uint8]*EndpointNode{}
			lastEp = nil

		case usb.DescriptorTypeHID:
			if curIface != nil && curIface.BInterfaceClass == usb.ClassCodeInterfaceHID {
				if !v.hid.checkHIDDesc(curIfNum, curAlt, body) {
					return false
				}
			}

		case usb.DescriptorTypeEndpoint:
			ep, err := usb.DecodeEndpointDescriptor(body)
			if err != nil {
				warn("E080a", "malformed endpoint descriptor")
				return false
			}
			if !checkEndpointFields(&ep, dev) {
				return false
			}
			if v.thirdParty != nil && !v.thirdParty.CheckEndpointFields(dev.IDVendor, dev.IDProduct, endpointFields(&ep)) {
				return false
			}
			if curEndpoints != nil {
				lastEp = &EndpointNode{Desc: ep}
				curEndpoints[ep.BEndpointAddress] = lastEp
			}

		case usb.DescriptorTypeSuperSpeedUSBEndprointCompanion:
			ss, err := usb.DecodeSSEndpointCompanionDescriptor(body)
			if err != nil {
				warn("E080b", "malformed superspeed endpoint companion descriptor")
				return false
			}
			if curEndpoints != nil && curIface != nil {
				if lastEp != nil {
					if !checkSSEpCompFields(&ss, &lastEp.Desc) {
						return false
					}
					lastEp.SSDesc = &ss
				}
			}

		case usb.DescriptorTypeInterfaceAssociation:
			iad, err := usb.DecodeInterfaceAssociationDescriptor(body)
			if err != nil {
				warn("E100", "malformed interface association descriptor")
				return false
			}
			if !checkInterfaceAssocFields(&iad) {
				return false
			}

		case usb.DescriptorTypeOTG:
			otg := &usb.OTGDescriptor{BmAttributes: body[2]}
			if !checkOTGFields(otg) {
				return false
			}

		case usb.DescriptorTypeDebug:
			if len(body) < 4 {
				warn("E132-DEBUG", "debug descriptor too short")
				return false
			}
			dbg := &usb.DebugDescriptor{BDebugInEndpoint: body[2], BDebugOutEndpoint: body[3]}
			if !checkDebugFields(dbg) {
				return false
			}

		case usb.DescriptorTypePipeUsage:
			pu := &usb.PipeUsageDescriptor{}
			if len(body) >= 3 {
				pu.BPipeID = body[2]
			}
			if !checkPipeUsageFields(pu) {
				return false
			}
		}

		offset += length
	}
	if curIface != nil {
		if ifaces[curIfNum] == nil {
			ifaces[curIfNum] = map[uint8]*InterfaceNode{}
		}
		ifaces[curIfNum][curAlt] = &InterfaceNode{Desc: *curIface, Endpoints: curEndpoints}
	}

	if uint8(len(ifaces)) != cfg.BNumInterfaces {
		warn("E068", "configuration descriptor's interface count does not match the interfaces it supplied", "declared", cfg.BNumInterfaces, "got", len(ifaces))
		return false
	}

	if v.thirdParty != nil && !v.thirdParty.Finish(dev.IDVendor, dev.IDProduct) {
		return false
	}

	v.store.Mutate(func(d *VirtualDevice) {
		existing, ok := d.Configs[index]
		if !ok {
			d.Configs[index] = &ConfigNode{Desc: cfg, Interfaces: ifaces}
		} else {
			if existing.Interfaces == nil {
				existing.Interfaces = map[uint8]map[uint8]*InterfaceNode{}
			}
			for ifNum, alts := range ifaces {
				if existing.Interfaces[ifNum] == nil {
					existing.Interfaces[ifNum] = map[uint8]*InterfaceNode{}
				}
				for alt, node := range alts {
					if _, seen := existing.Interfaces[ifNum][alt]; !seen {
						existing.Interfaces[ifNum][alt] = node
					}
				}
			}
		}
		for ifNum, alts := range ifaces {
			if _, chosen := d.ChosenInterfaces[ifNum]; chosen {
				continue
			}
			d.ChosenInterfaces[ifNum] = lowestAlternate(alts)
		}
	})
	return true
}

func lastInsertedEndpoint(m map[uint8]*EndpointNode) *EndpointNode {
	var last *EndpointNode
	var lastAddr uint8
	first := true
	for addr, ep := range m {
		if first || addr > lastAddr {
			last, lastAddr, first = ep, addr, false
		}
	}
	return last
}

// checkBOSDescriptor validates a BOS descriptor and whichever device
// capability descriptors this implementation understands the shape of;
// unrecognized capability types are passed through (see checkCapWireless
// in the grounding source, which the original implementation itself never
// finished).
func checkBOSDescriptor(data []byte) bool {
	bos, err := usb.DecodeBOSDescriptor(data)
	if err != nil {
		warn("E131", "malformed bos descriptor")
		return false
	}
	if int(bos.WTotalLength) != len(data) {
		warn("E132", "bos descriptor total length does not match payload")
		return false
	}
	offset := usb.BOSDescSize
	seen := 0
	for offset+usb.HeaderSize <= len(data) {
		length := int(data[offset])
		if length == 0 || offset+length > len(data) {
			warn("E133", "bos descriptor body truncated")
			return false
		}
		capType := data[offset+2]
		body := data[offset+3 : offset+length]
		switch usb.Capability(capType) {
		case usb.CapUSB20Extension:
			if len(body) < 4 {
				warn("E145", "usb2 extension capability too short")
				return false
			}
			ext := &usb.CapUSB20ExtensionDescriptor{}
			ext.BMAttributes = leUint32(body)
			if !checkCapExtFields(ext, 0) {
				return false
			}
		case usb.CapSuperSpeedUSB:
			if len(body) < 7 {
				warn("E147", "superspeed capability too short")
				return false
			}
			ss := &usb.CapSuperSpeedUSBDescriptor{
				BMAttributes:          body[0],
				WSpeedsSupported:      leUint16(body[1:3]),
				BFunctionalitySupport: body[3],
				BU1DevExitLat:         body[4],
				WU2DevExitLat:         leUint16(body[5:7]),
			}
			if !checkCapSSFields(ss) {
				return false
			}
		case usb.CapContainerID:
			if len(body) < 17 {
				warn("E152", "container id capability too short")
				return false
			}
			c := &usb.CapContainerIDDescriptor{Reserved: body[0]}
			if !checkCapContainerFields(c) {
				return false
			}
		case usb.CapWirelessUSB:
			warn("E138", "wireless usb capability is not supported")
			return false
		}
		seen++
		offset += length
	}
	if seen != int(bos.BNumDeviceCaps) {
		warn("E134", "bos descriptor capability count does not match bNumDeviceCaps")
		return false
	}
	return true
}

func leUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
