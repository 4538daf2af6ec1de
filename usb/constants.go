package usb

type StatusType uint8

const (
	StatusStandard = StatusType(0x00)
	StatusPTM      = StatusType(0x01)
)

type RequestType uint8

const (
	RequestDirectionIn  = RequestType(0b10000000)
	RequestDirectionOut = RequestType(0b00000000)

	RequestTypeStandard = RequestType(0b00000000)
	RequestTypeClass    = RequestType(0b00100000)
	RequestTypeVendor   = RequestType(0b01000000)
	RequestTypeReserved = RequestType(0b01100000)

	RequestRecipientDevice    = RequestType(0b00000000)
	RequestRecipientInterface = RequestType(0b00000001)
	RequestRecipientEndpoint  = RequestType(0b00000010)
	RequestRecipientOther     = RequestType(0b00000011)
	// From Wireless USB 1.0
	RequestRecipientPort  = RequestType(0x04)
	RequestRecipientRPipe = RequestType(0x05)
)

// StandardRequest enumerates the bRequest values of chapter 9's standard
// device requests (table 9-5).
type StandardRequest uint8

const (
	RequestGetStatus        = StandardRequest(0x00)
	RequestClearFeature     = StandardRequest(0x01)
	RequestSetFeature       = StandardRequest(0x03)
	RequestSetAddress       = StandardRequest(0x05)
	RequestGetDescriptor    = StandardRequest(0x06)
	RequestSetDescriptor    = StandardRequest(0x07)
	RequestGetConfiguration = StandardRequest(0x08)
	RequestSetConfiguration = StandardRequest(0x09)
	RequestGetInterface     = StandardRequest(0x0A)
	RequestSetInterface     = StandardRequest(0x0B)
	RequestSynchFrame       = StandardRequest(0x0C)
	RequestSetSel           = StandardRequest(0x30)
	RequestSetIsochDelay    = StandardRequest(0x31)
)

// FeatureSelector enumerates the wValue feature selectors used by
// CLEAR_FEATURE/SET_FEATURE/GET_STATUS (table 9-6).
type FeatureSelector uint16

const (
	FeatureEndpointHalt       = FeatureSelector(0x00)
	FeatureDeviceRemoteWakeup = FeatureSelector(0x01)
	FeatureTestMode           = FeatureSelector(0x02)
	FeatureFunctionSuspend    = FeatureSelector(0x00) // interface recipient only
	FeatureU1Enable           = FeatureSelector(0x30)
	FeatureU2Enable           = FeatureSelector(0x31)
	FeatureLtmEnable          = FeatureSelector(0x32)
)
