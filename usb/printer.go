package usb

// Printer class-specific control requests (USB Printer Class 1.1).
const (
	PrinterGetDeviceID   = uint8(0x00)
	PrinterGetPortStatus = uint8(0x01)
	PrinterSoftReset     = uint8(0x02)
)

// Printer port status bits returned by PrinterGetPortStatus; only bits
// 3 (paper empty), 4 (select), and 5 (not error) are defined, the rest
// are reserved.
const PrinterPortStatusReservedMask = uint8(0xc7)
