package validator

import (
	"testing"

	"github.com/daedaluz/cinch/usb"
	"github.com/stretchr/testify/assert"
)

func shortItem(itemType, tag uint8, data ...byte) []byte {
	sizeCode := uint8(len(data))
	if sizeCode == 4 {
		sizeCode = 3
	}
	attr := sizeCode | itemType<<2 | tag<<4
	return append([]byte{attr}, data...)
}

func TestCheckHIDReportItemAcceptsWellFormedInput(t *testing.T) {
	n, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagInput, 0x02, 0x00))
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestCheckHIDReportItemRejectsReservedItemType(t *testing.T) {
	_, ok := checkHIDReportItem([]byte{0x0c}) // size 0, type 3 (reserved)
	assert.False(t, ok)
}

func TestCheckHIDReportItemRejectsInputReservedBit7(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagInput, 0x80))
	assert.False(t, ok)
}

func TestCheckHIDReportItemRejectsInputReservedBits9To15(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagInput, 0x02, 0x02))
	assert.False(t, ok)
}

func TestCheckHIDReportItemRejectsOutputReservedBits9To15(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagOutput, 0x02, 0x02))
	assert.False(t, ok)
}

func TestCheckHIDReportItemAcceptsWellFormedFeature(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagFeature, 0x02, 0x00))
	assert.True(t, ok)
}

func TestCheckHIDReportItemRejectsCollectionWrongSize(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagCollection))
	assert.False(t, ok)
}

func TestCheckHIDReportItemRejectsCollectionReservedValue(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagCollection, 0x07))
	assert.False(t, ok)
}

func TestCheckHIDReportItemAcceptsVendorCollection(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagCollection, 0x80))
	assert.True(t, ok)
}

func TestCheckHIDReportItemRejectsEndCollectionWithData(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, usb.HidTagEndCollection, 0x00))
	assert.False(t, ok)
}

func TestCheckHIDReportItemRejectsUnknownMainTag(t *testing.T) {
	// 0x0f is reserved for the long-item marker, so pick another unused
	// tag value to exercise the "unknown main tag" rejection path.
	_, ok := checkHIDReportItem(shortItem(usb.HidItemMain, 0x07))
	assert.False(t, ok)
}

func TestCheckHIDReportItemRejectsEmptyReportID(t *testing.T) {
	_, ok := checkHIDReportItem([]byte{usb.HidItemGlobal<<2 | usb.HidTagReportID<<4})
	assert.False(t, ok)
}

func TestCheckHIDReportItemRejectsZeroReportID(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemGlobal, usb.HidTagReportID, 0x00))
	assert.False(t, ok)
}

func TestCheckHIDReportItemAcceptsNonzeroReportID(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemGlobal, usb.HidTagReportID, 0x01))
	assert.True(t, ok)
}

func TestCheckHIDReportItemRejectsUnknownGlobalTag(t *testing.T) {
	// all of 0x0-0xb are assigned and 0xf is the long-item marker; 0xc is
	// the lowest unused value.
	_, ok := checkHIDReportItem(shortItem(usb.HidItemGlobal, 0x0c))
	assert.False(t, ok)
}

func TestCheckHIDReportItemAcceptsKnownLocalTag(t *testing.T) {
	_, ok := checkHIDReportItem(shortItem(usb.HidItemLocal, usb.HidTagUsage, 0x01))
	assert.True(t, ok)
}

func TestCheckHIDReportItemRejectsStringMinLocalTag(t *testing.T) {
	// TAG_STRING_MIN is reserved by the original rule set this check is
	// ported from; replicate the omission rather than silently accepting it.
	_, ok := checkHIDReportItem(shortItem(usb.HidItemLocal, usb.HidTagStringMin, 0x01))
	assert.False(t, ok)
}

func TestCheckHIDReportItemRejectsUnknownLocalTag(t *testing.T) {
	// 0x6 is unassigned in the local tag table and isn't the long-item
	// marker.
	_, ok := checkHIDReportItem(shortItem(usb.HidItemLocal, 0x06))
	assert.False(t, ok)
}

func TestCheckHIDReportItemLongItemSkipsSemanticValidation(t *testing.T) {
	// Long items (attribute byte 0xfe) carry an undocumented tag; only
	// their declared size is checked, never their content.
	n, ok := checkHIDReportItem([]byte{0xfe, 0x02, 0x99, 0xaa, 0xbb})
	assert.True(t, ok)
	assert.Equal(t, 5, n)
}

func TestCheckHIDReportItemRejectsTruncatedAttributeByte(t *testing.T) {
	_, ok := checkHIDReportItem(nil)
	assert.False(t, ok)
}
