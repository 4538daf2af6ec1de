// Package modules implements the USBR module pipeline: a per-direction
// chain of non-terminal stages terminating in a terminal stage, through
// which every parsed Request flows before it is forwarded to the peer.
//
// A stage is anything satisfying usbr.Handlers; non-terminal stages must
// return exactly one Request (asserted, matching the teacher's assertion
// style for invariants the caller cannot recover from), terminal stages
// may return zero or more. Grounded on the traverse_modules dispatch
// macro in original_source/src/modules/mod.rs, reworked here as a single
// traverse method taking the per-message handler as a closure rather
// than one macro expansion per message type.
package modules

import (
	"fmt"

	"github.com/daedaluz/cinch/usbr"
)

// Chain is an ordered list of non-terminal stages plus a port-number to
// terminal-stage mapping, assembled once per accepted connection and
// held for the life of the endpoint. Chain itself implements
// usbr.Handlers, so the endpoint driver invokes it exactly like any
// single stage.
type Chain struct {
	nonterminals []map[uint8]usbr.Handlers
	terminal     map[uint8]usbr.Handlers
}

// NewChain returns an empty Chain. AddNonTerminal and AddTerminal wire
// stages into it before use.
func NewChain() *Chain {
	return &Chain{terminal: map[uint8]usbr.Handlers{}}
}

// AddNonTerminal wires stage at chain position idx, reached when the
// prior stage (or the chain entry, for idx 0) selects port. idx must be
// less than or equal to the number of positions already present; a new
// position is appended when idx equals that count.
func (c *Chain) AddNonTerminal(idx int, port uint8, stage usbr.Handlers) {
	if idx > len(c.nonterminals) {
		panic("modules: non-terminal stage index skips a chain position")
	}
	if idx == len(c.nonterminals) {
		c.nonterminals = append(c.nonterminals, map[uint8]usbr.Handlers{})
	}
	c.nonterminals[idx][port] = stage
}

// AddTerminal wires a terminal stage, reached when the last non-terminal
// (or the chain entry, if there are none) selects port.
func (c *Chain) AddTerminal(port uint8, stage usbr.Handlers) {
	c.terminal[port] = stage
}

// call is the signature shared by every usbr.Handlers method: invoke one
// stage with a source and request, get back the stage's chosen port and
// output requests.
type call func(h usbr.Handlers, source usbr.Source, req usbr.Request) (uint8, []usbr.Request)

// traverse walks every non-terminal position in order, feeding each
// stage's single output request to the next, then dispatches to
// whichever terminal the final port names.
func (c *Chain) traverse(source usbr.Source, req usbr.Request, fn call) []usbr.Request {
	port := uint8(0)
	cur := req
	for i, stage := range c.nonterminals {
		h, ok := stage[port]
		if !ok {
			panic(fmt.Sprintf("modules: no stage wired at position %d, port %d", i, port))
		}
		p, out := fn(h, source, cur)
		if len(out) != 1 {
			panic(fmt.Sprintf("modules: non-terminal stage at position %d returned %d requests, want 1", i, len(out)))
		}
		port, cur = p, out[0]
	}
	term, ok := c.terminal[port]
	if !ok {
		panic(fmt.Sprintf("modules: no terminal wired at port %d", port))
	}
	_, out := fn(term, source, cur)
	return out
}
