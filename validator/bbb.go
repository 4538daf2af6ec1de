package validator

import (
	"encoding/binary"

	"github.com/daedaluz/cinch/usb"
	"github.com/daedaluz/cinch/usbr"
)

// bbbCheck tracks the one outstanding Bulk-Only-Transport command per
// mass-storage interface: a CBW must be seen before the CSW that closes
// it, and the CSW must echo the CBW's tag.
type bbbCheck struct {
	pending *usb.CommandBlockWrapper
	tag     uint32
}

const (
	bbbReqReset  = usb.BBBRequestReset
	bbbReqMaxLun = usb.BBBRequestMaxLun
)

// checkControlReq validates the two BBB class requests sent to the
// control endpoint: MASS STORAGE RESET and GET MAX LUN.
func (c *bbbCheck) checkControlReq(source usbr.Source, h *usbr.ControlPacketHeader, data []byte) bool {
	wantType := uint8(usb.RequestTypeClass) | uint8(usb.RequestRecipientInterface)
	switch h.Request {
	case bbbReqReset:
		if h.RequestType != wantType|uint8(usb.RequestDirectionOut) {
			warn("E002-BBB", "mass storage reset has wrong request type")
			return false
		}
		if h.Value != 0 || h.Length != 0 {
			warn("E003-BBB", "mass storage reset must carry zero value and length")
			return false
		}
		if source == usbr.SourceRed && len(data) != 0 {
			warn("E004-BBB", "mass storage reset reply carries unexpected data")
			return false
		}
		return true
	case bbbReqMaxLun:
		if h.RequestType != wantType|uint8(usb.RequestDirectionIn) {
			warn("E005-BBB", "get max lun has wrong request type")
			return false
		}
		if h.Value != 0 || h.Length != 1 {
			warn("E006-BBB", "get max lun must request exactly 1 byte")
			return false
		}
		if source == usbr.SourceRed {
			if len(data) != 1 {
				warn("E007-BBB", "get max lun reply must be 1 byte")
				return false
			}
			if data[0] > 15 {
				warn("E008-BBB", "get max lun reply names a lun above 15")
				return false
			}
		}
		return true
	default:
		warn("E001-BBB", "unrecognized mass storage class request", "request", h.Request)
		return false
	}
}

// checkBulkData validates one bulk-endpoint transfer against the BBB
// CBW/CSW state machine.
func (c *bbbCheck) checkBulkData(source usbr.Source, data []byte) bool {
	if len(data) < usb.CommandHeaderSize {
		return true // payload continuation of an already-validated transfer
	}
	sig := binary.LittleEndian.Uint32(data[0:4])
	switch sig {
	case usb.CBWSignature:
		if source != usbr.SourceBlue {
			warn("E010-BBB", "cbw must originate from the guest")
			return false
		}
		if len(data) < usb.CommandHeaderSize+usb.CBWBodySize {
			warn("E011-BBB", "cbw payload too short")
			return false
		}
		cbw := decodeCBW(data)
		c.pending = &cbw
		c.tag = binary.LittleEndian.Uint32(data[4:8])
		return true
	case usb.CSWSignature:
		if source != usbr.SourceRed {
			warn("E012-BBB", "csw must originate from the device")
			return false
		}
		if c.pending == nil {
			warn("E013-BBB", "csw received with no outstanding cbw")
			return false
		}
		tag := binary.LittleEndian.Uint32(data[4:8])
		if tag != c.tag {
			warn("E014-BBB", "csw tag does not match the outstanding cbw")
			return false
		}
		if len(data) < usb.CommandHeaderSize+usb.CSWBodySize {
			warn("E015-BBB", "csw payload too short")
			return false
		}
		csw := decodeCSW(data)
		transferLength := c.pendingTransferLength()
		c.pending = nil
		switch csw.Status {
		case usb.BBBStatusOK, usb.BBBStatusFail:
			if csw.DataResidue > transferLength {
				warn("E016-BBB", "csw data residue exceeds the cbw transfer length")
				return false
			}
		case usb.BBBStatusPhase:
		default:
			warn("E017-BBB", "csw status is not a recognized value", "status", csw.Status)
			return false
		}
		return true
	default:
		return true // ordinary payload continuation, not a command header
	}
}

func (c *bbbCheck) pendingTransferLength() uint32 {
	if c.pending == nil {
		return 0
	}
	return c.pending.TransferLength
}

func decodeCBW(data []byte) usb.CommandBlockWrapper {
	var cbw usb.CommandBlockWrapper
	cbw.TransferLength = binary.LittleEndian.Uint32(data[8:12])
	cbw.Flags = data[12]
	cbw.CBLun = data[13] & 0x0f
	cbw.CBLength = data[14] & 0x1f
	copy(cbw.CB[:], data[15:])
	return cbw
}

func decodeCSW(data []byte) usb.CommandStatusWrapper {
	var csw usb.CommandStatusWrapper
	csw.DataResidue = binary.LittleEndian.Uint32(data[8:12])
	csw.Status = data[12]
	return csw
}
