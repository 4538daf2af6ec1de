package modules

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/daedaluz/cinch/usbr"
)

// patchMetadata is the JSON-decoded description of one signature.
// PType names the request family the signature applies to: "control",
// "bulk" or "connect". PatchID groups signatures that share a match
// budget; MinMatches is that budget: each match counts it down, and the
// match that brings it to zero (the MinMatches-th) is routed to the
// Reset terminal instead of being forwarded.
type patchMetadata struct {
	PType       string `json:"p_type"`
	VendorID    uint16 `json:"vendor_id"`
	ProductID   uint16 `json:"product_id"`
	Request     uint8  `json:"request"`
	RequestType uint8  `json:"requesttype"`
	PatchID     uint32 `json:"patch_id"`
	MinMatches  uint16 `json:"min_matches"`
}

func (m patchMetadata) matchesControl(h usbr.ControlPacketHeader) bool {
	return m.Request == h.Request && m.RequestType == h.RequestType
}

// patch pairs metadata with its hex-encoded signature bytes, loaded
// verbatim from one JSON file in the patches directory.
type patch struct {
	Meta patchMetadata `json:"meta"`
	Data string        `json:"data"`
}

// Patcher is a non-terminal stage that recognizes known-malicious
// signatures in control, bulk and connect traffic and routes a match to
// port 1 (wired to a Reset terminal by the caller) once a signature's
// match budget is exhausted; a connect signature routes to port 1 on its
// first vendor/product match, with no budget. Every other request is
// forwarded on port 0.
// Grounded on original_source's modules::patcher, one JSON file per
// signature rather than one big array, matching how it reads dir_path.
//
// Int, iso and buffered-bulk packets are left unchecked: the original
// leaves them commented out as not yet implemented, and this
// implementation keeps that scope rather than inventing new coverage.
type Patcher struct {
	patches []patch

	mu     sync.Mutex
	counts map[uint32]uint16
}

// NewPatcher loads one patch per JSON file in dir.
func NewPatcher(dir string) (*Patcher, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("modules: read patch directory %s: %w", dir, err)
	}
	p := &Patcher{counts: map[uint32]uint16{}}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("modules: read patch %s: %w", path, err)
		}
		var pt patch
		if err := json.Unmarshal(raw, &pt); err != nil {
			return nil, fmt.Errorf("modules: decode patch %s: %w", path, err)
		}
		if _, ok := p.counts[pt.Meta.PatchID]; !ok {
			p.counts[pt.Meta.PatchID] = pt.Meta.MinMatches
		}
		p.patches = append(p.patches, pt)
	}
	return p, nil
}

// consume decrements the remaining match budget for id and reports
// whether it has just reached zero (the signature should now reject).
func (p *Patcher) consume(id uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := p.counts[id]
	if count == 0 {
		return false
	}
	count--
	p.counts[id] = count
	return count == 0
}

func (p *Patcher) checkControlPacket(req usbr.Request) bool {
	h, err := usbr.DecodeControlPacketHeader(req.TypeHeader)
	if err != nil {
		return true
	}
	dataHex := hex.EncodeToString(req.Data)
	for _, pt := range p.patches {
		if pt.Meta.PType != "control" || !pt.Meta.matchesControl(h) {
			continue
		}
		if len(dataHex) >= len(pt.Data) && strings.Contains(dataHex, pt.Data) {
			if p.consume(pt.Meta.PatchID) {
				slog.Error("patch signature matched", "tag", "E001-Patcher", "min_matches", pt.Meta.MinMatches)
				return false
			}
		}
	}
	return true
}

func (p *Patcher) checkBulkPacket(req usbr.Request) bool {
	dataHex := hex.EncodeToString(req.Data)
	for _, pt := range p.patches {
		if pt.Meta.PType != "bulk" {
			continue
		}
		if len(dataHex) >= len(pt.Data) && strings.Contains(dataHex, pt.Data) {
			if p.consume(pt.Meta.PatchID) {
				slog.Error("patch signature matched", "tag", "E002-Patcher", "min_matches", pt.Meta.MinMatches)
				return false
			}
		}
	}
	return true
}

func (p *Patcher) checkConnect(req usbr.Request) bool {
	h, err := usbr.DecodeConnectHeader(req.TypeHeader)
	if err != nil {
		return true
	}
	for _, pt := range p.patches {
		if pt.Meta.PType != "connect" {
			continue
		}
		if pt.Meta.VendorID == h.VendorID && pt.Meta.ProductID == h.ProductID {
			slog.Error("malicious device signature matched", "tag", "E003-Patcher",
				"vendor_id", h.VendorID, "product_id", h.ProductID)
			return false
		}
	}
	return true
}

func route(ok bool, req usbr.Request) (uint8, []usbr.Request) {
	if ok {
		return 0, []usbr.Request{req}
	}
	return 1, []usbr.Request{req}
}

func (p *Patcher) HandleControlPacket(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return route(p.checkControlPacket(req), req)
}

func (p *Patcher) HandleBulkPacket(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return route(p.checkBulkPacket(req), req)
}

func (p *Patcher) HandleConnect(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return route(p.checkConnect(req), req)
}

func (p *Patcher) HandleHello(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleDisconnect(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleDisconnectAck(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleReset(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleCancelDataPacket(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleInterfaceInfo(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleEpInfo(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleGetConf(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleSetConf(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleConfStatus(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleGetAltSetting(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleSetAltSetting(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleAltSettingStatus(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleStartIsoStream(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleStopIsoStream(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleIsoStreamStatus(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleStartIntReceiving(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleStopIntReceiving(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleIntReceivingStatus(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleAllocBulkStreams(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleFreeBulkStreams(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleBulkStreamsStatus(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleStartBulkReceiving(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleStopBulkReceiving(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleBulkReceivingStatus(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleFilterReject(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleIntPacket(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleIsoPacket(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}
func (p *Patcher) HandleBufferedBulkPacket(_ usbr.Source, req usbr.Request) (uint8, []usbr.Request) {
	return forward(req)
}

var _ usbr.Handlers = (*Patcher)(nil)
