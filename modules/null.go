package modules

import "github.com/daedaluz/cinch/usbr"

// Null is the chain's default terminal: it forwards every request
// unchanged on port 0. usbr.NopHandlers already does exactly this, so
// Null only exists to give the terminal a name distinct from "no stage
// configured". Grounded on original_source's modules::null (a
// zero-field struct implementing HasHandlers with every default body).
type Null struct {
	usbr.NopHandlers
}

// NewNull returns a Null terminal.
func NewNull() *Null {
	return &Null{}
}
