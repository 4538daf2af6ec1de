package modules

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/daedaluz/cinch/usbr"
)

// Logger is a non-terminal stage that writes every request it sees to a
// single append-only log file before forwarding it unchanged on port 0.
// Grounded on original_source's modules::logger and its log_request!
// macro; the bracketed "[Start Cinch log. ...]"/"[End Cinch log]" framing
// is kept verbatim since it is the on-disk format, not prose.
type Logger struct {
	mu sync.Mutex
	w  *bufio.Writer
	f  *os.File
}

// NewLogger creates (truncating) the file at path and returns a Logger
// that appends framed records to it. The caller is responsible for
// closing the returned Logger when the connection ends.
func NewLogger(path string) (*Logger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("modules: create log %s: %w", path, err)
	}
	return &Logger{w: bufio.NewWriter(f), f: f}, nil
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

func (l *Logger) log(source usbr.Source, req usbr.Request, tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[Start Cinch log. Type: %s, Source: %v]", tag, source)
	l.w.Write(req.Header[:])
	l.w.Write(req.TypeHeader)
	l.w.Write(req.Data)
	l.w.WriteString("[End Cinch log]")
	l.w.Flush()
}

func forward(req usbr.Request) (uint8, []usbr.Request) {
	return 0, []usbr.Request{req}
}

func (l *Logger) HandleHello(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "hello")
	return forward(req)
}
func (l *Logger) HandleConnect(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "connect")
	return forward(req)
}
func (l *Logger) HandleDisconnect(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "disconnect")
	return forward(req)
}
func (l *Logger) HandleDisconnectAck(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "disconnect ack")
	return forward(req)
}
func (l *Logger) HandleReset(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "reset")
	return forward(req)
}
func (l *Logger) HandleCancelDataPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "cancel data packet")
	return forward(req)
}
func (l *Logger) HandleInterfaceInfo(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "interface info")
	return forward(req)
}
func (l *Logger) HandleEpInfo(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "ep info")
	return forward(req)
}
func (l *Logger) HandleGetConf(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "get conf")
	return forward(req)
}
func (l *Logger) HandleSetConf(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "set conf")
	return forward(req)
}
func (l *Logger) HandleConfStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "conf status")
	return forward(req)
}
func (l *Logger) HandleGetAltSetting(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "get alt setting")
	return forward(req)
}
func (l *Logger) HandleSetAltSetting(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "set alt setting")
	return forward(req)
}
func (l *Logger) HandleAltSettingStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "alt setting status")
	return forward(req)
}
func (l *Logger) HandleStartIsoStream(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "start iso stream")
	return forward(req)
}
func (l *Logger) HandleStopIsoStream(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "stop iso stream")
	return forward(req)
}
func (l *Logger) HandleIsoStreamStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "iso stream status")
	return forward(req)
}
func (l *Logger) HandleStartIntReceiving(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "start int receiving")
	return forward(req)
}
func (l *Logger) HandleStopIntReceiving(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "stop int receiving")
	return forward(req)
}
func (l *Logger) HandleIntReceivingStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "int receiving status")
	return forward(req)
}
func (l *Logger) HandleAllocBulkStreams(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "alloc bulk streams")
	return forward(req)
}
func (l *Logger) HandleFreeBulkStreams(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "free bulk streams")
	return forward(req)
}
func (l *Logger) HandleBulkStreamsStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "bulk streams status")
	return forward(req)
}
func (l *Logger) HandleStartBulkReceiving(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "start bulk receiving")
	return forward(req)
}
func (l *Logger) HandleStopBulkReceiving(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "stop bulk receiving")
	return forward(req)
}
func (l *Logger) HandleBulkReceivingStatus(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "bulk receiving status")
	return forward(req)
}
func (l *Logger) HandleFilterReject(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "filter reject")
	return forward(req)
}
func (l *Logger) HandleControlPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "control packet")
	return forward(req)
}
func (l *Logger) HandleBulkPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "bulk packet")
	return forward(req)
}
func (l *Logger) HandleIntPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "int packet")
	return forward(req)
}
func (l *Logger) HandleIsoPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "iso packet")
	return forward(req)
}
func (l *Logger) HandleBufferedBulkPacket(source usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	l.log(source, req, "buffered bulk packet")
	return forward(req)
}

var _ usbr.Handlers = (*Logger)(nil)
