// Package validator inspects control-transfer traffic against the USB
// descriptor tree it has observed so far, rejecting anything a
// spec-conformant device or host could not actually produce. It is the
// largest module in cinch: a stage that plugs into the modules package's
// pipeline and speaks usbr.Handlers like any other stage.
package validator

import (
	"sync"

	"github.com/daedaluz/cinch/usb"
)

// EndpointNode is one endpoint observed inside an interface's alternate
// setting, plus the SuperSpeed companion descriptor that trailed it.
// checkConfigDescriptor checks UAS pipe-usage descriptors but does not
// store them, so Pipe stays nil.
type EndpointNode struct {
	Desc   usb.EndpointDescriptor
	SSDesc *usb.SSEndpointCompanionDescriptor
	Pipe   *usb.PipeUsageDescriptor
}

// InterfaceNode is one alternate setting of one interface number.
type InterfaceNode struct {
	Desc      usb.InterfaceDescriptor
	Endpoints map[uint8]*EndpointNode // keyed by endpoint address & 0x8f
}

// ConfigNode is one configuration, keyed by configuration index (not
// bConfigurationValue) the way it was requested off the wire.
type ConfigNode struct {
	Desc       usb.ConfigurationDescriptor
	Interfaces map[uint8]map[uint8]*InterfaceNode // interface number -> alt setting
}

// StringNode is the raw payload of a string descriptor, keyed by index.
type StringNode struct {
	Data []byte
}

// VirtualDevice is the incrementally-built model of the device under
// proxy: every descriptor it holds was actually observed crossing the
// wire, and nothing is ever removed once inserted (first-seen wins).
type VirtualDevice struct {
	Desc             *usb.DeviceDescriptor
	Configs          map[uint8]*ConfigNode
	Strings          map[uint8]*StringNode
	ChosenConf       *uint8
	ChosenInterfaces map[uint8]uint8
}

func newVirtualDevice() *VirtualDevice {
	return &VirtualDevice{
		Configs:          map[uint8]*ConfigNode{},
		Strings:          map[uint8]*StringNode{},
		ChosenInterfaces: map[uint8]uint8{},
	}
}

// deviceStore guards a VirtualDevice behind a RWMutex. Mutate is called
// for traffic from both sources: HandleConnect and checkConfigDescriptor
// record what the device side announces, and HandleSetConf and the
// SET_CONFIGURATION / SET_INTERFACE paths of checkStandardRequest record
// SourceBlue selections. Each View or Mutate holds the lock only for its
// own fn, so a View followed by a Mutate is not one atomic step.
type deviceStore struct {
	mu  sync.RWMutex
	dev *VirtualDevice
}

func newDeviceStore() *deviceStore {
	return &deviceStore{dev: newVirtualDevice()}
}

// View runs fn with a read lock held.
func (s *deviceStore) View(fn func(*VirtualDevice) bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.dev)
}

// Mutate runs fn with a write lock held.
func (s *deviceStore) Mutate(fn func(*VirtualDevice)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.dev)
}

// hasInterface reports whether any alternate setting of interface number
// ifNum has been recorded in config index.
func hasInterface(dev *VirtualDevice, index, ifNum uint8) bool {
	cfg, ok := dev.Configs[index]
	if !ok {
		return false
	}
	_, ok = cfg.Interfaces[ifNum]
	return ok
}

// hasAlternate reports whether the specific alternate setting has been
// recorded.
func hasAlternate(dev *VirtualDevice, index, ifNum, alt uint8) bool {
	cfg, ok := dev.Configs[index]
	if !ok {
		return false
	}
	alts, ok := cfg.Interfaces[ifNum]
	if !ok {
		return false
	}
	_, ok = alts[alt]
	return ok
}

// lowestAlternate returns the smallest alternate-setting number present
// in alts, the default SET_INTERFACE would select before the guest ever
// issues one explicitly.
func lowestAlternate(alts map[uint8]*InterfaceNode) uint8 {
	var lowest uint8
	first := true
	for alt := range alts {
		if first || alt < lowest {
			lowest, first = alt, false
		}
	}
	return lowest
}

// currentInterface returns the InterfaceNode selected by SET_INTERFACE
// (or alternate 0 by default) for the given interface number in the
// currently chosen configuration.
func currentInterface(dev *VirtualDevice, ifNum uint8) *InterfaceNode {
	if dev.ChosenConf == nil {
		return nil
	}
	cfg, ok := dev.Configs[*dev.ChosenConf]
	if !ok {
		return nil
	}
	alts, ok := cfg.Interfaces[ifNum]
	if !ok {
		return nil
	}
	alt := dev.ChosenInterfaces[ifNum]
	return alts[alt]
}
