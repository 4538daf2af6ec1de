package validator

import (
	"encoding/binary"

	"github.com/daedaluz/cinch/usb"
	"github.com/daedaluz/cinch/usbr"
)

const (
	hidDTHid         = 0x21
	hidDTHidReport   = 0x22
	hidDTHidPhysical = 0x23
)

// hidDescRecord is one (interface, alt setting)'s parsed HID descriptor:
// just enough to validate GET_DESCRIPTOR(HID_REPORT) requests against it.
type hidDescRecord struct {
	countryCode byte
	numDescs    uint8
	reportLen   uint16
}

// hidCheck tracks HID descriptors observed per (interface, alt setting)
// so that a later report-descriptor fetch can be checked against the
// report length the HID descriptor announced.
type hidCheck struct {
	descs map[[2]uint8]hidDescRecord
}

func newHIDCheck() *hidCheck {
	return &hidCheck{descs: map[[2]uint8]hidDescRecord{}}
}

// checkHIDDescFields validates a standalone HID descriptor's header and
// class-descriptor table (bcdHID, country code, the list of sub
// descriptors trailing it).
func checkHIDDescFields(data []byte) bool {
	if len(data) < 4 {
		warn("E024-HID", "hid descriptor too short")
		return false
	}
	bcd := binary.LittleEndian.Uint16(data[0:2])
	if !usb.IsValidBCD(bcd) {
		warn("E025-HID", "hid descriptor has invalid bcdHID")
		return false
	}
	if data[2] > 35 {
		warn("E026-HID", "hid descriptor country code out of range")
		return false
	}
	numDescs := data[3]
	if numDescs < 1 {
		warn("E027-HID", "hid descriptor declares zero class descriptors")
		return false
	}
	want := 4 + int(numDescs)*3
	if len(data) != want {
		warn("E028-HID", "hid descriptor length does not match its descriptor count")
		return false
	}
	if data[4] != hidDTHidReport {
		warn("E029-HID", "hid descriptor's first class descriptor must be report")
		return false
	}
	for i := 0; i < int(numDescs); i++ {
		off := 4 + i*3
		typ := data[off]
		if typ != hidDTHidReport && typ != hidDTHidPhysical {
			warn("E030-HID", "hid descriptor names an unrecognized class descriptor type", "type", typ)
			return false
		}
	}
	return true
}

// checkHIDDesc validates and records a HID descriptor for (iface, alt).
func (c *hidCheck) checkHIDDesc(iface, alt uint8, data []byte) bool {
	if !checkHIDDescFields(data) {
		warn("E022-HID", "hid descriptor failed field validation")
		return false
	}
	rec := hidDescRecord{
		countryCode: data[2],
		numDescs:    data[3],
	}
	for i := 0; i < int(rec.numDescs); i++ {
		off := 4 + i*3
		if data[off] == hidDTHidReport {
			rec.reportLen = binary.LittleEndian.Uint16(data[off+1 : off+3])
		}
	}
	c.descs[[2]uint8{iface, alt}] = rec
	return true
}

// checkHIDReportDesc walks a HID report descriptor's items, verifying
// every item is well-formed and the item stream exactly fills the
// length the HID descriptor advertised for it.
func checkHIDReportDesc(iface, alt uint8, rec hidDescRecord, data []byte) bool {
	if rec.reportLen != 0 && int(rec.reportLen) != len(data) {
		warn("E032-HID", "hid report descriptor length does not match hid descriptor", "want", rec.reportLen, "got", len(data))
		return false
	}
	offset := 0
	for offset < len(data) {
		n, ok := checkHIDReportItem(data[offset:])
		if !ok {
			warn("E033-HID", "hid report descriptor has a malformed item", "offset", offset)
			return false
		}
		offset += n
	}
	if offset != len(data) {
		warn("E034-HID", "hid report descriptor items overran the descriptor")
		return false
	}
	return true
}

// checkHIDReportItem validates one report-descriptor item (long or short
// form) and returns its total encoded length.
func checkHIDReportItem(data []byte) (int, bool) {
	if len(data) < usb.HidReportItemMinSize {
		warn("E036-HID", "not enough payload for a report item's attribute byte")
		return 0, false
	}
	attr := data[0]
	if attr&usb.HidItemTagMask == usb.HidItemLongTag {
		return checkHIDLongReportItem(data)
	}
	return checkHIDShortReportItem(attr, data)
}

// checkHIDLongReportItem validates the long-item format, whose attribute
// byte is always 0xfe: a 1-byte data size, a 1-byte long tag, then that
// many data bytes. Neither the tag nor the data's semantic content is
// specified anywhere beyond the declared sizes, matching the original
// implementation's own admission that long items are undocumented.
func checkHIDLongReportItem(data []byte) (int, bool) {
	if len(data) < 3 {
		warn("E038-HID", "not enough payload for a long report item's size/tag bytes")
		return 0, false
	}
	size := int(data[1])
	total := 3 + size
	if len(data) < total {
		warn("E039-HID", "not enough payload for a long report item's data")
		return 0, false
	}
	return total, true
}

// checkHIDShortReportItem validates a short-format item: the attribute
// byte's size field selects 0, 1, 2, or 4 trailing data bytes (size code
// 3 means 4 bytes, not 3), then the item's (type, tag) pair is checked
// against the reserved-bit rules USB HID 1.11 section 6.2.2 defines for
// it.
func checkHIDShortReportItem(attr byte, data []byte) (int, bool) {
	itemType := (attr & usb.HidItemTypeMask) >> 2
	if itemType == 3 {
		warn("E040-HID", "report item uses the reserved item type")
		return 0, false
	}
	size := int(attr & usb.HidItemSizeMask)
	if size == 3 {
		size = 4
	}
	total := 1 + size
	if len(data) < total {
		warn("E041-HID", "not enough payload for a report item's data")
		return 0, false
	}
	item := usb.HidReportItem{Attributes: attr, Data: data[1:total]}
	if !checkHIDItemFields(itemType, &item) {
		return 0, false
	}
	return total, true
}

// checkHIDItemFields validates a short-format item's reserved bits and
// value constraints, dispatched by its (type, tag) pair (USB HID 1.11
// section 6.2.2.1-6.2.2.4).
func checkHIDItemFields(itemType byte, item *usb.HidReportItem) bool {
	tag := (item.Attributes & usb.HidItemTagMask) >> 4
	data := item.Data

	switch itemType {
	case usb.HidItemMain:
		switch tag {
		case usb.HidTagInput:
			if len(data) > 0 && data[0]&0x80 != 0 {
				warn("E042-HID", "hid item input using reserved bit")
				return false
			}
			if len(data) > 1 && data[1]&0xfe != 0 {
				warn("E043-HID", "hid item input using reserved bits 9-15")
				return false
			}
			for i := 2; i < len(data); i++ {
				if data[i] != 0 {
					warn("E044-HID", "hid item using reserved bits 16-31")
					return false
				}
			}
		case usb.HidTagOutput, usb.HidTagFeature:
			if len(data) > 1 && data[1]&0xfe != 0 {
				warn("E045-HID", "hid item output/feature using reserved bits 9-15")
				return false
			}
			for i := 2; i < len(data); i++ {
				if data[i] != 0 {
					warn("E046-HID", "hid item using reserved bits 16-31")
					return false
				}
			}
		case usb.HidTagCollection:
			if len(data) != 1 {
				warn("E047-HID", "hid collection item with size other than 1")
				return false
			}
			if data[0] >= 0x07 && data[0] <= 0x7f {
				warn("E048-HID", "hid collection using reserved bits", "value", data[0])
				return false
			}
		case usb.HidTagEndCollection:
			if len(data) != 0 {
				warn("E049-HID", "hid end collection item with non-zero data")
				return false
			}
		default:
			warn("E050-HID", "invalid hid main item tag", "tag", tag)
			return false
		}

	case usb.HidItemGlobal:
		switch tag {
		case usb.HidTagUsagePage, usb.HidTagLogicMin, usb.HidTagLogicMax, usb.HidTagPhysMin,
			usb.HidTagPhysMax, usb.HidTagUnitExp, usb.HidTagUnit, usb.HidTagReportSize,
			usb.HidTagReportCount, usb.HidTagPush, usb.HidTagPop:
			// no reserved-bit constraints beyond the generic size check.
		case usb.HidTagReportID:
			if len(data) == 0 {
				warn("E051-HID", "hid item with report id without data")
				return false
			}
			var zero bool
			switch len(data) {
			case 1:
				zero = data[0] == 0
			case 2:
				zero = binary.LittleEndian.Uint16(data) == 0
			case 4:
				zero = binary.LittleEndian.Uint32(data) == 0
			}
			if zero {
				warn("E052-HID", "hid item with report id being set to 0")
				return false
			}
		default:
			warn("E053-HID", "invalid hid global item tag", "tag", tag)
			return false
		}

	case usb.HidItemLocal:
		switch tag {
		case usb.HidTagUsage, usb.HidTagUsageMin, usb.HidTagUsageMax, usb.HidTagDesignIdx,
			usb.HidTagDesignMin, usb.HidTagDesignMax, usb.HidTagStringIdx, usb.HidTagStringMax,
			usb.HidTagDelim:
			// no reserved-bit constraints beyond the generic size check.
		default:
			warn("E054-HID", "invalid hid local item tag", "tag", tag)
			return false
		}

	default:
		warn("E055-HID", "invalid hid item type", "type", itemType)
		return false
	}
	return true
}

// checkHIDGetDesc dispatches a GET_DESCRIPTOR request targeting a HID
// interface by the descriptor type named in wValue's high byte.
func (c *hidCheck) checkHIDGetDesc(source usbr.Source, iface, alt uint8, descType uint8, data []byte) bool {
	switch descType {
	case hidDTHid:
		if source != usbr.SourceRed {
			return true
		}
		return c.checkHIDDesc(iface, alt, data)
	case hidDTHidReport:
		if source != usbr.SourceRed {
			return true
		}
		rec, ok := c.descs[[2]uint8{iface, alt}]
		if !ok {
			warn("E031-HID", "hid report descriptor fetched before the hid descriptor was seen")
			return false
		}
		return checkHIDReportDesc(iface, alt, rec, data)
	case hidDTHidPhysical:
		warn("E020-HID", "hid physical descriptor is not supported")
		return false
	default:
		warn("E021-HID", "unrecognized hid descriptor type", "type", descType)
		return false
	}
}

// checkHIDRequest validates a HID class request (not GET_DESCRIPTOR,
// which checkGetDescriptor dispatches to checkHIDGetDesc instead).
func checkHIDRequest(h *usbr.ControlPacketHeader, data []byte) bool {
	const (
		reqGetReport = 0x01
		reqGetIdle   = 0x02
		reqGetProt   = 0x03
		reqSetReport = 0x09
		reqSetIdle   = 0x0a
		reqSetProt   = 0x0b
	)
	switch h.Request {
	case reqGetReport, reqSetReport:
		if len(data) == 0 && h.Length > 0 {
			warn("E002-HID", "report request declares a nonzero length with no data")
			return false
		}
		return true
	case reqGetIdle, reqSetIdle:
		if h.Length != 0 && h.Length != 1 {
			warn("E005-HID", "idle request must carry 0 or 1 bytes")
			return false
		}
		return true
	case reqGetProt, reqSetProt:
		if h.Value > 1 {
			warn("E009-HID", "protocol request value must be boot(0) or report(1)")
			return false
		}
		return true
	default:
		warn("E013-HID", "unrecognized hid class request", "request", h.Request)
		return false
	}
}
