// Package proxy drives one proxied connection end to end: dialing the
// host, building each direction's module chain from config.Config, and
// running the two directional loops that pull frames from one socket,
// push them through the chain, and write the result to the other.
// Grounded on original_source/src/main.rs's CinchEndpoint/
// handle_blue_machine.
package proxy

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/daedaluz/cinch/config"
	"github.com/daedaluz/cinch/modules"
	"github.com/daedaluz/cinch/usbr"
	"github.com/daedaluz/cinch/validator"
	"golang.org/x/sync/errgroup"
)

// direction identifies which physical socket an endpoint loop reads
// from, purely for logging; it has no bearing on usbr.Source, which
// instead names the protected side a parser speaks for (see usbr.Parser).
type direction string

const (
	guestToHost direction = "guest->host"
	hostToGuest direction = "host->guest"
)

// requiredCaps is the capability bitset this proxy advertises to both
// sides on their behalf, matching the original's gen_caps: the set of
// optional capabilities it is willing to assume every peer supports.
func requiredCaps() []uint32 {
	caps := make([]uint32, usbr.CapsWords)
	usbr.SetCap(caps, usbr.CapBulkStreams)
	usbr.SetCap(caps, usbr.CapConnectDeviceVersion)
	usbr.SetCap(caps, usbr.CapEpInfoMaxPacketSize)
	usbr.SetCap(caps, usbr.Cap64BitsIds)
	usbr.SetCap(caps, usbr.Cap32BitsBulkLength)
	usbr.SetCap(caps, usbr.CapBulkReceiving)
	return caps
}

// Connection is one accepted guest socket paired with its dialed host
// socket, plus everything both directions of the proxy need for the
// life of that pairing.
type Connection struct {
	guest net.Conn
	host  net.Conn
	cfg   config.Config
	log   *slog.Logger
}

// Dial accepts ownership of guest (already accepted by the listener)
// and dials cfg.HostAddress to pair it with. Both sockets have
// TCP_NODELAY set, matching the original's explicit set_nodelay calls.
func Dial(cfg config.Config, guest net.Conn, log *slog.Logger) (*Connection, error) {
	host, err := net.Dial("tcp", cfg.HostAddress)
	if err != nil {
		return nil, fmt.Errorf("proxy: dial host %s: %w", cfg.HostAddress, err)
	}
	for _, c := range []net.Conn{guest, host} {
		if tc, ok := c.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
	}
	return &Connection{guest: guest, host: host, cfg: cfg, log: log}, nil
}

// Run builds both directions' module chains and drives them to
// completion, returning the first error either direction produces
// (including a ResetError raised by a failed check). Both sockets are
// closed before Run returns.
func (c *Connection) Run() error {
	defer c.guest.Close()
	defer c.host.Close()

	var logger *modules.Logger
	if c.cfg.Log {
		name := fmt.Sprintf("%s-%s.log", c.cfg.LogPrefix, time.Now().Format("02-Jan-2006-15-04-05"))
		l, err := modules.NewLogger(name)
		if err != nil {
			return err
		}
		logger = l
		defer l.Close()
	}

	var thirdParty *validator.ThirdParty
	var checker *validator.Validator
	if c.cfg.ChecksActive {
		if c.cfg.ThirdPartyFolder != "" {
			tp, err := validator.NewThirdParty(c.cfg.ThirdPartyFolder)
			if err != nil {
				return err
			}
			thirdParty = tp
		}
		checker = validator.NewValidator(thirdParty)
	}

	var patcher *modules.Patcher
	if c.cfg.PatchActive {
		p, err := modules.NewPatcher(c.cfg.Patches)
		if err != nil {
			return err
		}
		patcher = p
	}

	null := modules.NewNull()
	var reset *modules.Reset
	if c.cfg.ChecksActive || c.cfg.PatchActive {
		reset = modules.NewReset()
	}

	guestChain := buildChain(logger, checker, nil, null, reset)
	hostChain := buildChain(logger, checker, patcher, null, reset)

	// Each direction announces its own parser state on its own channel
	// and drains the other's, mirroring the original's red_tx/blue_rx
	// mpsc cross-wiring.
	guestState := make(chan usbr.ParserState, 4)
	hostState := make(chan usbr.ParserState, 4)

	ctx, cancel := context.WithCancel(context.Background())
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return c.runDirection(guestToHost, c.guest, c.host, usbr.SourceRed, guestChain, guestState, hostState)
	})
	g.Go(func() error {
		defer cancel()
		return c.runDirection(hostToGuest, c.host, c.guest, usbr.SourceBlue, hostChain, hostState, guestState)
	})
	go func() {
		<-ctx.Done()
		c.guest.Close()
		c.host.Close()
	}()

	return g.Wait()
}

// buildChain assembles one direction's module pipeline in the fixed
// order logger, validator, patcher, matching handle_blue_machine's
// index-incrementing wiring. patcher is nil on the guest->host chain;
// every other stage is shared between both directions' chains when the
// caller passes the same instance, matching the original's Arc-cloned
// singletons.
func buildChain(logger *modules.Logger, checker *validator.Validator, patcher *modules.Patcher, null *modules.Null, reset *modules.Reset) *modules.Chain {
	chain := modules.NewChain()
	idx := 0
	if logger != nil {
		chain.AddNonTerminal(idx, 0, logger)
		idx++
	}
	if checker != nil {
		chain.AddNonTerminal(idx, 0, checker)
		idx++
	}
	if patcher != nil {
		chain.AddNonTerminal(idx, 0, patcher)
		idx++
	}
	chain.AddTerminal(0, null)
	if reset != nil {
		chain.AddTerminal(1, reset)
	}
	return chain
}

// decodeHelloCaps reads the capability words trailing a Hello frame's
// fixed 64-byte version header.
func decodeHelloCaps(data []byte) []uint32 {
	caps := make([]uint32, len(data)/4)
	for i := range caps {
		caps[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	return caps
}

// runDirection pulls frames from src, runs them through chain, and
// writes the result to dst, until an I/O error, a parse error, or a
// Reset stage panic ends the connection. ownState carries this
// direction's own state changes out to the peer; peerState is read to
// observe the peer's handshake progress, matching the original's mpsc
// channel pair.
func (c *Connection) runDirection(dir direction, src, dst net.Conn, source usbr.Source, chain *modules.Chain, ownState, peerState chan usbr.ParserState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(*modules.ResetError); ok {
				err = rerr
				return
			}
			panic(r)
		}
	}()

	p := usbr.NewParser(source)
	if initErr := p.Init(requiredCaps()); initErr != nil {
		return initErr
	}

	reader := bufio.NewReader(src)
	writer := bufio.NewWriter(dst)

	for {
		if p.State < usbr.StateConnected {
			p.DrainStateChanges(peerState)
		}

		req, pullErr := p.PullNextRequest(reader)
		if pullErr != nil {
			return fmt.Errorf("proxy: %s: %w", dir, pullErr)
		}

		if req.Type() == usbr.Hello && p.State < usbr.StateHelloReceived {
			if helloErr := p.HandleHello(req.TypeHeader, decodeHelloCaps(req.Data)); helloErr != nil {
				return fmt.Errorf("proxy: %s: %w", dir, helloErr)
			}
		}

		out := p.ProcessRequest(chain, req, ownState)
		if pushErr := p.PushOutputs(writer, out); pushErr != nil {
			return fmt.Errorf("proxy: %s: %w", dir, pushErr)
		}
	}
}
