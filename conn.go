// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pion/dtlsengine/pkg/crypto/prf"
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
	"github.com/pion/logging"
)

// maxApplicationRecords bounds the decrypted records waiting for Receive.
const maxApplicationRecords = 128

func invalidKeyingLabels() map[string]bool {
	return map[string]bool{
		"client finished": true,
		"server finished": true,
		"master secret":   true,
		"key expansion":   true,
	}
}

// Conn represents a DTLS connection. All of its work happens on the
// goroutine calling it, Receive being the only call that waits for the
// network.
type Conn struct {
	lock      sync.Mutex // Internal lock (must not be public)
	transport DatagramTransport
	cfg       *handshakeConfig
	log       logging.LeveledLogger

	state          State
	records        *recordLayer
	fragmentBuffer *fragmentBuffer // out-of-order and missing fragment handling
	handshakeCache *handshakeCache // caching of handshake messages for verifyData generation
	fsm            *handshakeFSM

	applicationData [][]byte // decrypted records, pulled by Receive

	newMessages    bool // a complete handshake message was cached
	peerRetransmit bool // the peer repeated a message we already have
	replayPending  bool // a pending cipher state may unlock queued records

	handshakeDone bool
	closed        bool
	connErr       error
}

func createConn(transport DatagramTransport, config *Config, isClient bool) (*Conn, error) {
	if transport == nil {
		return nil, errNilTransport
	}

	cfg, err := newHandshakeConfig(config)
	if err != nil {
		return nil, err
	}
	if !isClient && !cfg.insecureSkipHelloVerify && cfg.cookieSecret == nil {
		if cfg.cookieSecret, err = NewCookieSecret(0); err != nil {
			return nil, err
		}
	}

	conn := &Conn{
		transport:      transport,
		cfg:            cfg,
		log:            cfg.log,
		records:        newRecordLayer(cfg.replayProtectionWindow, cfg.log),
		fragmentBuffer: newFragmentBuffer(),
		handshakeCache: newHandshakeCache(),
	}
	conn.state.isClient = isClient
	if err = conn.state.localRandom.Populate(); err != nil {
		return nil, err
	}

	role := clientRole()
	if !isClient {
		role = serverRole()
		conn.fragmentBuffer.followClientHello = true
	}
	conn.fsm = newHandshakeFSM(&conn.state, conn.handshakeCache, cfg, role)

	return conn, nil
}

// Client runs a client handshake over transport and returns the
// established connection.
func Client(transport DatagramTransport, config *Config) (*Conn, error) {
	return ClientWithContext(context.Background(), transport, config)
}

// ClientWithContext is Client with a context bounding the handshake.
func ClientWithContext(ctx context.Context, transport DatagramTransport, config *Config) (*Conn, error) {
	switch {
	case config == nil:
		return nil, errNoConfigProvided
	case config.PSK != nil && config.PSKIdentityHint == nil:
		return nil, errPSKAndIdentityMustBeSetForClient
	}

	conn, err := createConn(transport, config, true)
	if err != nil {
		return nil, err
	}
	if err = conn.handshake(ctx); err != nil {
		return nil, err
	}

	return conn, nil
}

// Server waits for a client on transport, runs the server handshake and
// returns the established connection.
func Server(transport DatagramTransport, config *Config) (*Conn, error) {
	return ServerWithContext(context.Background(), transport, config)
}

// ServerWithContext is Server with a context bounding the handshake.
func ServerWithContext(ctx context.Context, transport DatagramTransport, config *Config) (*Conn, error) {
	switch {
	case config == nil:
		return nil, errNoConfigProvided
	case config.PSK == nil && len(config.Certificates) == 0:
		return nil, errServerMustHaveCertificate
	}

	conn, err := createConn(transport, config, false)
	if err != nil {
		return nil, err
	}
	if err = conn.handshake(ctx); err != nil {
		return nil, err
	}

	return conn, nil
}

func (c *Conn) handshake(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.fsm.Run(ctx, c, HandshakePreparing); err != nil {
		c.log.Debugf("[handshake:%s] failed: %v", srvCliStr(c.state.isClient), err)
		c.connErr = err
		c.setPhase(PhaseFailed)

		return err
	}

	c.handshakeDone = true
	c.fragmentBuffer.followClientHello = false
	c.setPhase(PhaseConnected)
	c.log.Debugf("[handshake:%s] connected with %s", srvCliStr(c.state.isClient), c.state.cipherSuite.String())

	return nil
}

// Send writes p as application data, split over as many records as the
// datagram limit requires.
func (c *Conn) Send(p []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.usable(); err != nil {
		return err
	}

	epoch := c.records.writeEpoch
	chunks := splitBytes(p, max(c.maxPayload(epoch), 1))
	if len(chunks) == 0 {
		chunks = [][]byte{{}}
	}

	pkts := make([]*packet, 0, len(chunks))
	for _, chunk := range chunks {
		pkts = append(pkts, &packet{
			record: &recordlayer.RecordLayer{
				Header: recordlayer.Header{
					Version: protocol.Version1_2,
					Epoch:   epoch,
				},
				Content: &protocol.ApplicationData{
					Data: chunk,
				},
			},
		})
	}

	if err := c.writePackets(pkts); err != nil {
		c.connErr = err

		return err
	}

	return nil
}

// Receive copies the next application record into p. It returns ErrNoData
// when nothing arrived within timeout, which leaves the Conn usable. A
// record larger than p is kept and errBufferTooSmall is returned.
func (c *Conn) Receive(p []byte, timeout time.Duration) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return 0, ErrConnClosed
	}

	deadline := time.Now().Add(timeout)
	for {
		if len(c.applicationData) > 0 {
			data := c.applicationData[0]
			if len(p) < len(data) {
				return 0, errBufferTooSmall
			}
			c.applicationData = c.applicationData[1:]

			return copy(p, data), nil
		}

		if err := c.usable(); err != nil {
			return 0, err
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, ErrNoData
		}
		if err := c.readDatagram(wait); err != nil {
			if !errors.Is(err, ErrConnClosed) {
				c.connErr = err
			}

			return 0, err
		}

		if c.peerRetransmit {
			c.peerRetransmit = false
			if err := c.fsm.retransmitLastFlight(c); err != nil {
				c.connErr = err

				return 0, err
			}
		}
	}
}

// Close sends a close_notify alert and closes the transport. Calling it
// again returns ErrConnClosed.
func (c *Conn) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return ErrConnClosed
	}
	c.closed = true
	c.applicationData = nil

	if c.connErr == nil {
		if err := c.notify(alert.Fatal, alert.CloseNotify); err != nil {
			c.log.Debugf("failed to send close_notify: %v", err)
		}
	}

	return c.transport.Close()
}

// ConnectionState returns the negotiated parameters of the connection.
func (c *Conn) ConnectionState() (State, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.handshakeDone {
		return State{}, false
	}
	state, err := c.state.clone()
	if err != nil {
		return State{}, false
	}

	return *state, true
}

// ExportKeyingMaterial from https://tools.ietf.org/html/rfc5705
// This allows protocols to use DTLS for key establishment, but
// then use some of the keying material for their own purposes.
func (c *Conn) ExportKeyingMaterial(label string, context []byte, length int) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	switch {
	case !c.handshakeDone:
		return nil, errHandshakeInProgress
	case len(context) != 0:
		return nil, errContextUnsupported
	case invalidKeyingLabels()[label]:
		return nil, errReservedExportKeyingMaterial
	}

	clientRandom, serverRandom := c.state.randoms()

	return prf.ExportKeyingMaterial(c.state.masterSecret, label, clientRandom, serverRandom, length,
		c.state.cipherSuite.HashFunc())
}

func (c *Conn) usable() error {
	switch {
	case c.closed:
		return ErrConnClosed
	case c.connErr != nil:
		return c.connErr
	case !c.handshakeDone:
		return errHandshakeInProgress
	}

	return nil
}

// readDatagram waits up to timeout for one datagram and processes it. The
// lock is released while waiting so Close can interrupt the wait.
func (c *Conn) readDatagram(timeout time.Duration) error {
	if c.closed {
		return ErrConnClosed
	}

	buf := make([]byte, c.transport.ReceiveLimit())
	c.lock.Unlock()
	n, err := c.transport.Receive(buf, timeout)
	c.lock.Lock()

	switch {
	case c.closed:
		return ErrConnClosed
	case err != nil && isTimeout(err):
		return nil
	case err != nil:
		return err
	}

	return c.handleIncoming(buf[:n])
}

func (c *Conn) handleIncoming(buf []byte) error {
	pkts, err := recordlayer.UnpackDatagram(buf)
	if err != nil {
		c.log.Debugf("discarded broken datagram: %v", err)

		return nil
	}

	for _, p := range pkts {
		if err := c.handleRecord(p); err != nil {
			return err
		}
	}

	return nil
}

func (c *Conn) handleRecord(raw []byte) error { //nolint:cyclop
	header, content, status := c.records.unprotect(raw)
	if status != recordAccepted {
		return nil
	}

	switch header.ContentType {
	case protocol.ContentTypeHandshake:
		return c.handleHandshakeRecord(header.Epoch, content)

	case protocol.ContentTypeChangeCipherSpec:
		changeCipherSpec := &protocol.ChangeCipherSpec{}
		if err := changeCipherSpec.Unmarshal(content); err != nil {
			c.log.Debugf("discarded broken ChangeCipherSpec: %v", err)

			return nil
		}
		if !c.records.hasPending() || header.Epoch != c.records.readEpoch {
			// Retransmitted ChangeCipherSpec.
			return nil
		}
		if err := c.records.activateRead(); err != nil {
			return err
		}
		if c.state.isClient && !c.handshakeDone {
			c.setPhase(PhaseWaitServerFinished)
		}

		return c.replayQueue()

	case protocol.ContentTypeAlert:
		a := &alert.Alert{}
		if err := a.Unmarshal(content); err != nil {
			c.log.Debugf("discarded broken alert: %v", err)

			return nil
		}
		if a.Level == alert.Fatal || a.Description == alert.CloseNotify {
			c.log.Debugf("[handshake:%s] <- %s", srvCliStr(c.state.isClient), a.String())
			c.connErr = &AlertError{Alert: a, Remote: true}

			return c.connErr
		}
		c.log.Warnf("received warning alert: %s", a.String())

	case protocol.ContentTypeApplicationData:
		if header.Epoch == 0 {
			c.log.Debug("discarded unprotected application data")

			return nil
		}
		if len(c.applicationData) >= maxApplicationRecords {
			c.log.Debug("application data queue full, discarding record")

			return nil
		}
		c.applicationData = append(c.applicationData, append([]byte{}, content...))

	default:
		c.log.Debugf("discarded record with content type %d", header.ContentType)
	}

	return nil
}

func (c *Conn) handleHandshakeRecord(epoch uint16, content []byte) error {
	repeated, err := c.fragmentBuffer.push(epoch, content)
	if err != nil {
		c.log.Debugf("discarded broken handshake record: %v", err)

		return nil
	}
	// Only a repeat of the flight before the one we wait for means ours
	// was lost. Repeats of a partly received flight are left to the timer.
	if repeated >= 0 && (c.handshakeDone || repeated < c.state.handshakeRecvSequence) {
		c.peerRetransmit = true
	}

	for {
		raw, messageEpoch := c.fragmentBuffer.pop()
		if raw == nil {
			return nil
		}

		header := &handshake.Header{}
		if err := header.Unmarshal(raw); err != nil {
			return err
		}
		if c.handshakeDone {
			c.log.Debugf("discarded %s after the handshake completed", header.Type.String())

			continue
		}
		if !c.fsm.expects(header.Type) {
			if err := c.notify(alert.Fatal, alert.UnexpectedMessage); err != nil {
				c.log.Debugf("failed to send alert: %v", err)
			}
			c.connErr = &AlertError{Alert: fatalAlert(alert.UnexpectedMessage), Err: errUnexpectedMessage}

			return c.connErr
		}

		c.log.Tracef("[handshake:%s] <- %s (epoch: %d, seq: %d)",
			srvCliStr(c.state.isClient), header.Type.String(), messageEpoch, header.MessageSequence)
		c.handshakeCache.push(raw, messageEpoch, header.MessageSequence, header.Type, !c.state.isClient)
		c.newMessages = true
	}
}

// replayQueue processes records that arrived before their epoch.
func (c *Conn) replayQueue() error {
	for _, raw := range c.records.takeQueue() {
		if err := c.handleRecord(raw); err != nil {
			return err
		}
	}

	return nil
}

func (c *Conn) pollHandshake(ctx context.Context, deadline time.Time) (handshakeEvent, error) {
	for {
		if c.replayPending {
			c.replayPending = false
			if err := c.replayQueue(); err != nil {
				return 0, err
			}
		}

		switch {
		case c.newMessages:
			c.newMessages = false
			c.peerRetransmit = false

			return handshakeEventMessage, nil
		case c.peerRetransmit:
			c.peerRetransmit = false

			return handshakeEventRetransmit, nil
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return handshakeEventTimeout, nil
		}
		if ctxDeadline, ok := ctx.Deadline(); ok {
			wait = min(wait, max(time.Until(ctxDeadline), time.Millisecond))
		}
		if err := c.readDatagram(wait); err != nil {
			return 0, err
		}
	}
}

func (c *Conn) notify(level alert.Level, desc alert.Description) error {
	if level == alert.Fatal && desc != alert.CloseNotify && len(c.state.SessionID) > 0 && c.cfg.sessionStore != nil {
		// A session that ended with a fatal alert must not be resumed.
		if key := c.sessionKey(); key != nil {
			c.log.Tracef("clean invalid session: %x", c.state.SessionID)
			if err := c.cfg.sessionStore.Del(key); err != nil {
				c.log.Debugf("failed to clean invalid session: %v", err)
			}
		}
	}

	return c.writePackets([]*packet{
		{
			record: &recordlayer.RecordLayer{
				Header: recordlayer.Header{
					Version: protocol.Version1_2,
					Epoch:   c.records.writeEpoch,
				},
				Content: &alert.Alert{
					Level:       level,
					Description: desc,
				},
			},
		},
	})
}

func (c *Conn) advanceWriteEpoch(epoch uint16) {
	c.records.advanceWrite(epoch)
}

func (c *Conn) setPendingCipherState(cs CipherState) {
	c.records.setPending(cs)
	c.replayPending = true
}

func (c *Conn) setPhase(p Phase) {
	if c.state.phase == p {
		return
	}
	c.log.Tracef("[handshake:%s] %s -> %s", srvCliStr(c.state.isClient), c.state.phase, p)
	c.state.phase = p
	if c.cfg.onPhase != nil {
		c.cfg.onPhase(p)
	}
}

func (c *Conn) setFollowClientHello(follow bool) {
	c.fragmentBuffer.followClientHello = follow
}

// sessionKey is the SessionStore key of this connection. Clients key by
// peer and server name, servers by session id.
func (c *Conn) sessionKey() []byte {
	if !c.state.isClient {
		return c.state.SessionID
	}

	addr := c.remoteAddr()
	if addr == "" && c.cfg.serverName == "" {
		return nil
	}

	// As ServerName can be like 0.example.com, it's better to add
	// delimiter character which is not allowed to be in
	// neither address or domain name.
	return []byte(addr + "_" + c.cfg.serverName)
}

func (c *Conn) remoteAddr() string {
	ra, ok := c.transport.(remoteAddresser)
	if !ok {
		return ""
	}
	if addr := ra.RemoteAddr(); addr != nil {
		return addr.String()
	}

	return ""
}
