package modules

import "github.com/daedaluz/cinch/usbr"

// ResetError is the value Reset panics with. The endpoint driver
// recovers it and tears down both sockets of the connection rather than
// letting the panic escape the goroutine, matching §5's "connection's
// threads panic and tear down both sockets" without taking the whole
// process down with them.
type ResetError struct {
	Type usbr.HeaderType
}

func (e *ResetError) Error() string {
	return "modules: connection reset after " + e.Type.String() + " failed a check"
}

// Reset is the chain's policy-failure terminal: every handler panics
// with a ResetError instead of returning, since there is nothing
// meaningful left to forward once a message has failed validation.
// Grounded on original_source's modules::reset, which panics from every
// handler for the same reason ("Ending connection because a packet did
// not pass all checks").
type Reset struct{}

// NewReset returns a Reset terminal.
func NewReset() *Reset {
	return &Reset{}
}

func (r *Reset) reset(t usbr.HeaderType) (uint8, []usbr.Request) {
	panic(&ResetError{Type: t})
}

func (r *Reset) HandleHello(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.Hello)
}
func (r *Reset) HandleConnect(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.DeviceConnect)
}
func (r *Reset) HandleDisconnect(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.DeviceDisconnect)
}
func (r *Reset) HandleDisconnectAck(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.DeviceDisconnectAck)
}
func (r *Reset) HandleReset(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.Reset)
}
func (r *Reset) HandleCancelDataPacket(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.CancelDataPacket)
}
func (r *Reset) HandleInterfaceInfo(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.InterfaceInfo)
}
func (r *Reset) HandleEpInfo(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.EpInfo)
}
func (r *Reset) HandleGetConf(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.GetConf)
}
func (r *Reset) HandleSetConf(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.SetConf)
}
func (r *Reset) HandleConfStatus(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.ConfStatus)
}
func (r *Reset) HandleGetAltSetting(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.GetAltSetting)
}
func (r *Reset) HandleSetAltSetting(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.SetAltSetting)
}
func (r *Reset) HandleAltSettingStatus(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.AltSettingStatus)
}
func (r *Reset) HandleStartIsoStream(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.StartIsoStream)
}
func (r *Reset) HandleStopIsoStream(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.StopIsoStream)
}
func (r *Reset) HandleIsoStreamStatus(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.IsoStreamStatus)
}
func (r *Reset) HandleStartIntReceiving(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.StartIntReceiving)
}
func (r *Reset) HandleStopIntReceiving(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.StopIntReceiving)
}
func (r *Reset) HandleIntReceivingStatus(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.IntReceivingStatus)
}
func (r *Reset) HandleAllocBulkStreams(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.AllocBulkStreams)
}
func (r *Reset) HandleFreeBulkStreams(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.FreeBulkStreams)
}
func (r *Reset) HandleBulkStreamsStatus(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.BulkStreamsStatus)
}
func (r *Reset) HandleStartBulkReceiving(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.StartBulkReceiving)
}
func (r *Reset) HandleStopBulkReceiving(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.StopBulkReceiving)
}
func (r *Reset) HandleBulkReceivingStatus(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.BulkReceivingStatus)
}
func (r *Reset) HandleFilterReject(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.FilterReject)
}
func (r *Reset) HandleControlPacket(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.ControlPacket)
}
func (r *Reset) HandleBulkPacket(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.BulkPacket)
}
func (r *Reset) HandleIntPacket(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.IntPacket)
}
func (r *Reset) HandleIsoPacket(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.IsoPacket)
}
func (r *Reset) HandleBufferedBulkPacket(_ usbr.Source, _ usbr.Request) (uint8, []usbr.Request) {
	return r.reset(usbr.BufferedBulkPacket)
}

var _ usbr.Handlers = (*Reset)(nil)
