package validator

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"github.com/daedaluz/cinch/usb"
	"github.com/daedaluz/cinch/usbr"
)

// printerCommandSets is the closed set of IEEE 1284 COMMAND SET/CMD values
// a printer's device ID string is allowed to advertise. Abbreviated to the
// set actually seen in the field; an unrecognized value is rejected rather
// than silently accepted, since a device advertising a command language a
// host has no driver for is a sign something is being spoofed.
var printerCommandSets = map[string]bool{
	"PCL": true, "PCL5": true, "PCL5E": true, "PCL5C": true, "PCLXL": true,
	"POSTSCRIPT": true, "PS": true, "PS2": true, "PS3": true,
	"ESCPAGE": true, "ESCP2": true, "ESC/P": true, "ESC/P2": true,
	"ZJS": true, "ZPL": true, "ZPLII": true, "EPL": true, "EPL2": true,
	"DPL": true, "CPCL": true, "IPDS": true, "LIPS": true, "RTL": true,
	"BIDI-ECP": true, "MLC": true, "LJ": true, "GDI": true, "RPDL": true,
	"TPCL": true, "PJL": true,
}

// checkIEEE1284String validates the device-id string a printer returns for
// GET_DEVICE_ID: UTF-8, semicolon-delimited KEY:VALUE pairs, with
// MANUFACTURER/MFG, COMMAND SET/CMD and MODEL/MDL all required.
func checkIEEE1284String(data []byte) bool {
	if !utf8.Valid(data) {
		warn("E007-PRINTER", "device id string is not valid utf-8")
		return false
	}
	haveMfg, haveCmd, haveModel := false, false, false
	for _, field := range strings.Split(string(data), ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			warn("E008-PRINTER", "device id field is not a key:value pair", "field", field)
			return false
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "MANUFACTURER", "MFG":
			haveMfg = true
		case "MODEL", "MDL":
			haveModel = true
		case "COMMAND SET", "CMD":
			haveCmd = true
			for _, cmd := range strings.Split(value, ",") {
				if !printerCommandSets[strings.ToUpper(strings.TrimSpace(cmd))] {
					warn("E009-PRINTER", "device id names an unknown command set", "cmd", cmd)
					return false
				}
			}
		}
	}
	if !haveMfg || !haveCmd || !haveModel {
		warn("E010-PRINTER", "device id string is missing a required key")
		return false
	}
	return true
}

// checkPrinterRequest validates a class request sent to a printer
// interface (USB Printer class spec 1.1, section 4.2).
func checkPrinterRequest(source usbr.Source, h *usbr.ControlPacketHeader, data []byte) bool {
	const (
		reqGetDeviceID   = 0x00
		reqGetPortStatus = 0x01
		reqSoftReset     = 0x02
	)
	switch h.Request {
	case reqGetDeviceID:
		if source == usbr.SourceBlue {
			return true
		}
		if len(data) < 2 {
			warn("E001-PRINTER", "get_device_id reply too short")
			return false
		}
		length := binary.BigEndian.Uint16(data[0:2])
		if int(length) != len(data) {
			warn("E002-PRINTER", "get_device_id length prefix does not match payload")
			return false
		}
		return checkIEEE1284String(data[2:])
	case reqGetPortStatus:
		if source == usbr.SourceBlue {
			return true
		}
		if len(data) != 1 {
			warn("E003-PRINTER", "get_port_status reply must be 1 byte")
			return false
		}
		if data[0]&usb.PrinterPortStatusReservedMask != 0 {
			warn("E004-PRINTER", "get_port_status reply uses reserved bits")
			return false
		}
		return true
	case reqSoftReset:
		if source != usbr.SourceBlue {
			warn("E005-PRINTER", "soft_reset must originate from the guest")
			return false
		}
		return true
	default:
		warn("E006-PRINTER", "unrecognized printer class request", "request", h.Request)
		return false
	}
}
