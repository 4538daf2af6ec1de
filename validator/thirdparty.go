package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daedaluz/cinch/usb"
)

// fieldCheck is one (field, operation, value) assertion against a
// descriptor's named field.
type fieldCheck struct {
	Field     string `json:"field"`
	Operation string `json:"operation"`
	Value     int64  `json:"value"`
}

// constraint is a group of field checks against one descriptor type,
// optionally required to hold at least `Count` times rather than on every
// occurrence (e.g. "at least 2 bulk endpoints with wMaxPacketSize 512").
type constraint struct {
	ID          string       `json:"id"`
	DescType    string       `json:"desc_type"`
	FieldChecks []fieldCheck `json:"field_checks"`
	Count       *uint16      `json:"count,omitempty"`
}

type patchID struct {
	VendorID  uint16 `json:"vendor_id"`
	ProductID uint16 `json:"product_id"`
}

// compliancePatch names the (vendor, product) pairs it applies to and the
// constraints every one of them must satisfy. This is distinct from the
// signature-matching Patcher stage in the modules package: this one
// enforces vendor-supplied descriptor constraints inside the validator,
// it never rewrites traffic.
type compliancePatch struct {
	IDs         []patchID    `json:"ids"`
	Constraints []constraint `json:"constraints"`
}

type satisfiedKey struct {
	vendorID, productID uint16
	constraintID        string
}

// ThirdParty evaluates third-party compliance constraints loaded from a
// directory of JSON files, one compliancePatch per file, against the
// descriptors of the device currently being proxied.
type ThirdParty struct {
	patches   map[[2]uint16]*compliancePatch
	satisfied map[satisfiedKey]uint16
}

// NewThirdParty reads every file in dir as a JSON-encoded compliancePatch and
// indexes it by every (vendor, product) pair it names.
func NewThirdParty(dir string) (*ThirdParty, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("validator: reading third-party patch directory: %w", err)
	}
	p := &ThirdParty{
		patches:   map[[2]uint16]*compliancePatch{},
		satisfied: map[satisfiedKey]uint16{},
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("validator: reading patch %s: %w", e.Name(), err)
		}
		var patch compliancePatch
		if err := json.Unmarshal(data, &patch); err != nil {
			return nil, fmt.Errorf("validator: decoding patch %s: %w", e.Name(), err)
		}
		for _, id := range patch.IDs {
			p.patches[[2]uint16{id.VendorID, id.ProductID}] = &patch
		}
	}
	return p, nil
}

func (p *ThirdParty) patchFor(vendor, product uint16) *compliancePatch {
	return p.patches[[2]uint16{vendor, product}]
}

// fieldValue looks up a named field in a generic field set built by the
// caller for the descriptor currently under evaluation.
func fieldValue(fields map[string]int64, name string) (int64, bool) {
	v, ok := fields[name]
	return v, ok
}

func evalOperation(op string, have, want int64) (bool, bool) {
	switch op {
	case "eq":
		return have == want, true
	case "leq":
		return have <= want, true
	case "geq":
		return have >= want, true
	case "and":
		return have&want == want, true
	case "or":
		return have&want != 0, true
	case "bit_is_set":
		return have&(1<<uint(want)) != 0, true
	case "bit_not_set":
		return have&(1<<uint(want)) == 0, true
	default:
		return false, false
	}
}

// checkFields evaluates every constraint of the given desc_type against
// fields, a pre-flattened view of the descriptor's named fields. Count-less
// constraints fail the transfer immediately; counted constraints instead
// decrement a per-(vendor,product,constraint) counter on every success and
// are only checked for exhaustion once the caller calls Finish.
func (p *ThirdParty) checkFields(vendor, product uint16, descType string, fields map[string]int64) bool {
	patch := p.patchFor(vendor, product)
	if patch == nil {
		return true
	}
	for _, c := range patch.Constraints {
		if c.DescType != descType {
			continue
		}
		ok := true
		for _, fc := range c.FieldChecks {
			have, known := fieldValue(fields, fc.Field)
			if !known {
				warn("E001-TP", "third-party constraint names an unknown field", "field", fc.Field)
				return false
			}
			result, knownOp := evalOperation(fc.Operation, have, fc.Value)
			if !knownOp {
				warn("E002-TP", "third-party constraint uses an unknown operation", "op", fc.Operation)
				return false
			}
			if !result {
				ok = false
				break
			}
		}
		if c.Count == nil {
			if !ok {
				warn("E003-TP", "third-party constraint violated", "constraint", c.ID)
				return false
			}
			continue
		}
		key := satisfiedKey{vendor, product, c.ID}
		if _, seen := p.satisfied[key]; !seen {
			p.satisfied[key] = *c.Count
		}
		if ok && p.satisfied[key] > 0 {
			p.satisfied[key]--
		}
	}
	return true
}

// CheckConfigFields evaluates a configuration descriptor's constraints.
func (p *ThirdParty) CheckConfigFields(vendor, product uint16, fields map[string]int64) bool {
	return p.checkFields(vendor, product, "configuration", fields)
}

// CheckIfaceFields evaluates an interface descriptor's constraints.
func (p *ThirdParty) CheckIfaceFields(vendor, product uint16, fields map[string]int64) bool {
	return p.checkFields(vendor, product, "interface", fields)
}

// CheckEndpointFields evaluates an endpoint descriptor's constraints.
func (p *ThirdParty) CheckEndpointFields(vendor, product uint16, fields map[string]int64) bool {
	return p.checkFields(vendor, product, "endpoint", fields)
}

// configFields flattens a configuration descriptor's named fields for
// CheckConfigFields.
func configFields(cfg *usb.ConfigurationDescriptor) map[string]int64 {
	return map[string]int64{
		"bNumInterfaces":      int64(cfg.BNumInterfaces),
		"bConfigurationValue": int64(cfg.BConfigurationValue),
		"bmAttributes":        int64(cfg.BmAttributes),
		"bMaxPower":           int64(cfg.BMaxPower),
	}
}

// ifaceFields flattens an interface descriptor's named fields for
// CheckIfaceFields.
func ifaceFields(iface *usb.InterfaceDescriptor) map[string]int64 {
	return map[string]int64{
		"bInterfaceNumber":   int64(iface.BInterfaceNumber),
		"bAlternateSetting":  int64(iface.BAlternateSetting),
		"bNumEndpoints":      int64(iface.BNumEndpoints),
		"bInterfaceClass":    int64(iface.BInterfaceClass),
		"bInterfaceSubClass": int64(iface.BInterfaceSubClass),
		"bInterfaceProtocol": int64(iface.BInterfaceProtocol),
	}
}

// endpointFields flattens an endpoint descriptor's named fields for
// CheckEndpointFields.
func endpointFields(ep *usb.EndpointDescriptor) map[string]int64 {
	return map[string]int64{
		"bEndpointAddress": int64(ep.BEndpointAddress),
		"bmAttributes":     int64(ep.BmAttributes),
		"wMaxPacketSize":   int64(ep.WMaxPacketSize),
		"bInterval":        int64(ep.BInterval),
	}
}

// Finish verifies that every counted constraint for (vendor, product) has
// had its counter driven to exactly zero, once the caller knows it has
// walked every interface and endpoint in the configuration.
func (p *ThirdParty) Finish(vendor, product uint16) bool {
	patch := p.patchFor(vendor, product)
	if patch == nil {
		return true
	}
	ok := true
	for _, c := range patch.Constraints {
		if c.Count == nil {
			continue
		}
		key := satisfiedKey{vendor, product, c.ID}
		if p.satisfied[key] != 0 {
			warn("E010-TP", "third-party constraint was never satisfied", "constraint", c.ID)
			ok = false
		}
	}
	return ok
}
