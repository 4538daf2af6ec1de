package modules

import "github.com/daedaluz/cinch/usbr"

// The methods below implement usbr.Handlers for Chain, one per message
// type, each just binding traverse to the matching per-stage handler.

func (c *Chain) HandleHello(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleHello)
}

func (c *Chain) HandleConnect(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleConnect)
}

func (c *Chain) HandleDisconnect(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleDisconnect)
}

func (c *Chain) HandleDisconnectAck(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleDisconnectAck)
}

func (c *Chain) HandleReset(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleReset)
}

func (c *Chain) HandleCancelDataPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleCancelDataPacket)
}

func (c *Chain) HandleInterfaceInfo(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleInterfaceInfo)
}

func (c *Chain) HandleEpInfo(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleEpInfo)
}

func (c *Chain) HandleGetConf(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleGetConf)
}

func (c *Chain) HandleSetConf(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleSetConf)
}

func (c *Chain) HandleConfStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleConfStatus)
}

func (c *Chain) HandleGetAltSetting(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleGetAltSetting)
}

func (c *Chain) HandleSetAltSetting(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleSetAltSetting)
}

func (c *Chain) HandleAltSettingStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleAltSettingStatus)
}

func (c *Chain) HandleStartIsoStream(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleStartIsoStream)
}

func (c *Chain) HandleStopIsoStream(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleStopIsoStream)
}

func (c *Chain) HandleIsoStreamStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleIsoStreamStatus)
}

func (c *Chain) HandleStartIntReceiving(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleStartIntReceiving)
}

func (c *Chain) HandleStopIntReceiving(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleStopIntReceiving)
}

func (c *Chain) HandleIntReceivingStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleIntReceivingStatus)
}

func (c *Chain) HandleAllocBulkStreams(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleAllocBulkStreams)
}

func (c *Chain) HandleFreeBulkStreams(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleFreeBulkStreams)
}

func (c *Chain) HandleBulkStreamsStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleBulkStreamsStatus)
}

func (c *Chain) HandleStartBulkReceiving(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleStartBulkReceiving)
}

func (c *Chain) HandleStopBulkReceiving(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleStopBulkReceiving)
}

func (c *Chain) HandleBulkReceivingStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleBulkReceivingStatus)
}

func (c *Chain) HandleFilterReject(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleFilterReject)
}

func (c *Chain) HandleControlPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleControlPacket)
}

func (c *Chain) HandleBulkPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleBulkPacket)
}

func (c *Chain) HandleIntPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleIntPacket)
}

func (c *Chain) HandleIsoPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleIsoPacket)
}

func (c *Chain) HandleBufferedBulkPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return dispatch(c, source, req, usbr.Handlers.HandleBufferedBulkPacket)
}

// dispatch adapts one usbr.Handlers method value into the call shape
// traverse expects, so every Chain method above is a one-liner.
func dispatch(c *Chain, source usbr.Source, req usbr.Request, method func(usbr.Handlers, usbr.Source, usbr.Request) (uint8, []usbr.Request)) (uint8, []usbr.Request) {
	out := c.traverse(source, req, func(h usbr.Handlers, source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
		return method(h, source, req)
	})
	return 0, out
}

var _ usbr.Handlers = (*Chain)(nil)
