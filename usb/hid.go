package usb

// HID descriptor types, returned in the wValue high byte of a
// GET_DESCRIPTOR request sent to a HID interface.
const (
	DTHid         = uint8(0x21)
	DTHidReport   = uint8(0x22)
	DTHidPhysical = uint8(0x23)
)

// HID class-specific control requests (USB HID 1.11 section 7.2).
const (
	HidGetReport = uint8(0x01)
	HidGetIdle   = uint8(0x02)
	HidGetProt   = uint8(0x03)
	HidSetReport = uint8(0x09)
	HidSetIdle   = uint8(0x0a)
	HidSetProt   = uint8(0x0b)
)

// HidClassDescSize is the wire size of one {bDescriptorType,
// wDescriptorLength} entry trailing the HID descriptor.
const HidClassDescSize = 3

// HidDescMinSize is the smallest size of a HID descriptor body after its
// 2-byte header: 4 fixed bytes plus one class-descriptor entry.
const HidDescMinSize = 7

// HidClassDescriptor names one class descriptor (report or physical)
// associated with a HID interface.
type HidClassDescriptor struct {
	DescriptorType   uint8
	DescriptorLength uint16
}

// HidDescriptor is the HID class descriptor that follows a HID
// interface's standard interface descriptor.
type HidDescriptor struct {
	DescriptorHeader
	BcdHID         uint16
	CountryCode    uint8
	NumDescriptors uint8
	Desc           []HidClassDescriptor
}

// Report item attribute byte bit masks (USB HID 1.11 section 6.2.2.2):
// size in bits 0-1, type in bits 2-3, tag in bits 4-7. A tag of all ones
// (0xf) marks a long-format item.
const (
	HidItemSizeMask = uint8(0x03)
	HidItemTypeMask = uint8(0x0c)
	HidItemTagMask  = uint8(0xf0)
	HidItemLongTag  = uint8(0xf0)
)

// Report item types (the two bits at HidItemTypeMask, shifted into place by
// the caller).
const (
	HidItemMain   = uint8(0)
	HidItemGlobal = uint8(1)
	HidItemLocal  = uint8(2)
)

// Main item tags.
const (
	HidTagInput          = uint8(0x08)
	HidTagOutput         = uint8(0x09)
	HidTagCollection     = uint8(0x0a)
	HidTagFeature        = uint8(0x0b)
	HidTagEndCollection  = uint8(0x0c)
)

// Global item tags.
const (
	HidTagUsagePage   = uint8(0x00)
	HidTagLogicMin    = uint8(0x01)
	HidTagLogicMax    = uint8(0x02)
	HidTagPhysMin     = uint8(0x03)
	HidTagPhysMax     = uint8(0x04)
	HidTagUnitExp     = uint8(0x05)
	HidTagUnit        = uint8(0x06)
	HidTagReportSize  = uint8(0x07)
	HidTagReportID    = uint8(0x08)
	HidTagReportCount = uint8(0x09)
	HidTagPush        = uint8(0x0a)
	HidTagPop         = uint8(0x0b)
)

// Local item tags.
const (
	HidTagUsage     = uint8(0x00)
	HidTagUsageMin  = uint8(0x01)
	HidTagUsageMax  = uint8(0x02)
	HidTagDesignIdx = uint8(0x03)
	HidTagDesignMin = uint8(0x04)
	HidTagDesignMax = uint8(0x05)
	HidTagStringIdx = uint8(0x07)
	HidTagStringMin = uint8(0x08)
	HidTagStringMax = uint8(0x09)
	HidTagDelim     = uint8(0x0a)
)

// HidReportItemMinSize is the size, in bytes, of a short-format report
// item's attribute byte alone (its data is optional and variable length).
const HidReportItemMinSize = 1

// HidReportItem is one entry of a walked HID report descriptor: an
// attribute byte followed by zero or more data bytes, per HidItemSizeMask.
type HidReportItem struct {
	Attributes uint8
	Data       []byte
}
