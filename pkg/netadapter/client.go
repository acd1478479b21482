// Package netadapter implements the bridge's network reader/writer
// adapters (§4.6): the opaque FNE peer-network client contract, and the
// per-protocol parse/build rules for DMR, P25, and analog network
// frames.
package netadapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dbehnke/voicebridge/pkg/logger"
)

// ConnectionState mirrors the peer login state machine used to reach
// the FNE, adapted from the repeater-mode handshake.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateRPTLSent
	StateAuthenticated
	StateConfigSent
	StateConnected
)

// PeerConfig carries everything the client needs to log into the FNE as
// a single-talkgroup/slot peer.
type PeerConfig struct {
	Address    string
	Port       int
	Passphrase string
	PeerID     uint32
	Identity   string
}

// ICCCallback is invoked when the FNE issues an in-call control message
// for dmr, p25, or analog traffic.
type ICCCallback func(dstID uint32)

// KeyResponseCallback is invoked when the FNE responds to a TEK request
// with key material.
type KeyResponseCallback func(algo byte, kid uint16, key []byte)

// Client is the opaque FNE peer-network client: a UDP socket carrying
// DMRD/P25D/analog frames to a single upstream master, modeled on the
// repeater-mode login handshake but exposing the simpler write*/read*
// contract of §4.6 rather than a full router.
type Client struct {
	cfg PeerConfig
	log *logger.Logger

	conn       *net.UDPConn
	masterAddr *net.UDPAddr

	stateMu sync.RWMutex
	state   ConnectionState

	dmrStreamID, p25StreamID, analogStreamID uint32
	seqMu                                    sync.Mutex

	cbMu            sync.RWMutex
	keyResponseCB   KeyResponseCallback
	dmrICCCB        ICCCallback
	p25ICCCB        ICCCallback
	analogICCCB     ICCCallback

	dmrRx    chan []byte
	p25Rx    chan []byte
	analogRx chan []byte
}

// NewClient returns a Client configured to dial cfg's FNE master.
func NewClient(cfg PeerConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:      cfg,
		log:      log.WithComponent("netadapter.client"),
		state:    StateDisconnected,
		dmrRx:    make(chan []byte, 64),
		p25Rx:    make(chan []byte, 64),
		analogRx: make(chan []byte, 64),
	}
}

// Start resolves the master address, opens the UDP socket, logs in, and
// begins the receive loop. It blocks until ctx is cancelled or a fatal
// network error occurs.
func (c *Client) Start(ctx context.Context) error {
	masterAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", c.cfg.Address, c.cfg.Port))
	if err != nil {
		return fmt.Errorf("netadapter: resolve master address: %w", err)
	}
	c.masterAddr = masterAddr

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return fmt.Errorf("netadapter: open UDP socket: %w", err)
	}
	c.conn = conn
	defer c.conn.Close()

	if err := c.login(); err != nil {
		return fmt.Errorf("netadapter: login: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- c.receiveLoop(ctx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// login performs the RPTL/RPTK/RPTC handshake against the master,
// reusing the repeater-mode wire packets since the FNE's peer-login
// protocol is the same challenge/response exchange regardless of
// whether the peer is a physical repeater or this bridge.
func (c *Client) login() error {
	if err := c.send(loginRequest(c.cfg.PeerID)); err != nil {
		return err
	}
	c.setState(StateRPTLSent)

	salt, err := c.expectRPTACKWithSalt()
	if err != nil {
		return err
	}

	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(c.cfg.Passphrase))
	if err := c.send(keyResponse(c.cfg.PeerID, h.Sum(nil))); err != nil {
		return err
	}
	if err := c.expectRPTACK(); err != nil {
		return err
	}
	c.setState(StateAuthenticated)

	if err := c.send(peerConfig(c.cfg.PeerID, c.cfg.Identity)); err != nil {
		return err
	}
	c.setState(StateConfigSent)
	if err := c.expectRPTACK(); err != nil {
		return err
	}
	c.setState(StateConnected)
	c.log.Info("connected to FNE", logger.String("master", c.masterAddr.String()))
	return nil
}

func (c *Client) send(data []byte) error {
	_, err := c.conn.WriteToUDP(data, c.masterAddr)
	return err
}

func (c *Client) expectRPTACK() error {
	_, err := c.expectRPTACKWithSalt()
	return err
}

// expectRPTACKWithSalt reads one reply and, if it is an RPTACK carrying
// a 4-byte salt (the response to RPTL), returns it.
func (c *Client) expectRPTACKWithSalt() ([]byte, error) {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 1024)
	n, _, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, fmt.Errorf("waiting for RPTACK: %w", err)
	}
	if n < rptackPacketSize || string(buf[0:6]) != tagRPTACK {
		return nil, fmt.Errorf("unexpected reply: %q", buf[:n])
	}
	if n >= 10 {
		return append([]byte(nil), buf[6:10]...), nil
	}
	return nil, nil
}

// receiveLoop reads datagrams off the socket and routes them by
// protocol tag into the per-protocol channels, or into the ICC
// callbacks for control messages.
func (c *Client) receiveLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("netadapter: read error: %w", err)
		}
		c.dispatch(append([]byte(nil), buf[:n]...))
	}
}

func (c *Client) dispatch(data []byte) {
	if len(data) < 4 {
		return
	}
	if c.dispatchControl(data) {
		return
	}
	switch string(data[0:4]) {
	case tagDMRD:
		select {
		case c.dmrRx <- data:
		default:
			c.log.Warn("dmr receive queue full, dropping frame")
		}
	case "P25D":
		select {
		case c.p25Rx <- data:
		default:
			c.log.Warn("p25 receive queue full, dropping frame")
		}
	case "USRA": // analog frame tag, see AnalogWriter.WriteEvent
		select {
		case c.analogRx <- data:
		default:
			c.log.Warn("analog receive queue full, dropping frame")
		}
	}
}

// ReadDMR returns the next inbound DMR frame, or ok==false if none
// arrived within timeout.
func (c *Client) ReadDMR(timeout time.Duration) ([]byte, bool) {
	select {
	case d := <-c.dmrRx:
		return d, true
	case <-time.After(timeout):
		return nil, false
	}
}

// ReadP25 returns the next inbound P25 frame, or ok==false if none
// arrived within timeout.
func (c *Client) ReadP25(timeout time.Duration) ([]byte, bool) {
	select {
	case d := <-c.p25Rx:
		return d, true
	case <-time.After(timeout):
		return nil, false
	}
}

// ReadAnalog returns the next inbound analog frame, or ok==false if none
// arrived within timeout.
func (c *Client) ReadAnalog(timeout time.Duration) ([]byte, bool) {
	select {
	case d := <-c.analogRx:
		return d, true
	case <-time.After(timeout):
		return nil, false
	}
}

// WriteRaw sends a pre-built frame to the master, used by the
// per-protocol writers in dmr.go/p25.go/analog.go.
func (c *Client) WriteRaw(data []byte) error {
	if c.getState() != StateConnected {
		return fmt.Errorf("netadapter: not connected to FNE")
	}
	_, err := c.conn.WriteToUDP(data, c.masterAddr)
	return err
}

// NextDMRStreamID returns a fresh streamId for the next outbound DMR
// call.
func (c *Client) NextDMRStreamID() uint32 {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	c.dmrStreamID++
	return c.dmrStreamID
}

// NextP25StreamID returns a fresh streamId for the next outbound P25
// call.
func (c *Client) NextP25StreamID() uint32 {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	c.p25StreamID++
	return c.p25StreamID
}

// NextAnalogStreamID returns a fresh streamId for the next outbound
// analog call.
func (c *Client) NextAnalogStreamID() uint32 {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	c.analogStreamID++
	return c.analogStreamID
}

// ResetDMR, ResetP25, and ResetAnalog clear per-protocol stream state,
// called at call-end per §4.6's reset_* contract.
func (c *Client) ResetDMR()     { c.seqMu.Lock(); c.dmrStreamID = 0; c.seqMu.Unlock() }
func (c *Client) ResetP25()     { c.seqMu.Lock(); c.p25StreamID = 0; c.seqMu.Unlock() }
func (c *Client) ResetAnalog()  { c.seqMu.Lock(); c.analogStreamID = 0; c.seqMu.Unlock() }

// SetKeyResponseCallback installs the handler invoked when the FNE
// responds to a TEK request.
func (c *Client) SetKeyResponseCallback(cb KeyResponseCallback) {
	c.cbMu.Lock()
	c.keyResponseCB = cb
	c.cbMu.Unlock()
}

// SetDMRICCCallback installs the handler invoked on a DMR in-call
// control message.
func (c *Client) SetDMRICCCallback(cb ICCCallback) {
	c.cbMu.Lock()
	c.dmrICCCB = cb
	c.cbMu.Unlock()
}

// SetP25ICCCallback installs the handler invoked on a P25 in-call
// control message.
func (c *Client) SetP25ICCCallback(cb ICCCallback) {
	c.cbMu.Lock()
	c.p25ICCCB = cb
	c.cbMu.Unlock()
}

// SetAnalogICCCallback installs the handler invoked on an analog
// in-call control message.
func (c *Client) SetAnalogICCCallback(cb ICCCallback) {
	c.cbMu.Lock()
	c.analogICCCB = cb
	c.cbMu.Unlock()
}

func (c *Client) setState(s ConnectionState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

func (c *Client) getState() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}
