// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"context"
	"time"

	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

// [RFC6347 Section-4.2.4]
//                      +-----------+
//                +---> | PREPARING | <--------------------+
//                |     +-----------+                      |
//                |           |                            |
//                |           | Buffer next flight         |
//                |           |                            |
//                |          \|/                           |
//                |     +-----------+                      |
//                |     |  SENDING  |<------------------+  | Send
//                |     +-----------+                   |  | HelloRequest
//        Receive |           |                         |  |
//           next |           | Send flight             |  | or
//         flight |  +--------+                         |  |
//                |  |        | Set retransmit timer    |  | Receive
//                |  |       \|/                        |  | HelloRequest
//                |  |  +-----------+                   |  | Send
//                +--)--|  WAITING  |-------------------+  | ClientHello
//                |  |  +-----------+   Timer expires   |  |
//                |  |         |                        |  |
//                |  |         +------------------------+  |
//        Receive |  | Send           Read retransmit      |
//           last |  | last                                |
//         flight |  | flight                              |
//                |  |                                     |
//               \|/\|/                                    |
//            +-----------+                                |
//            | FINISHED  | -------------------------------+
//            +-----------+
//                 |  /|\
//                 |   |
//                 +---+
//              Read retransmit
//           Retransmit last flight

// HandshakeState is the state of the flight transmitter.
type HandshakeState uint8

// HandshakeState enums.
const (
	HandshakeErrored HandshakeState = iota
	HandshakePreparing
	HandshakeSending
	HandshakeWaiting
	HandshakeFinished
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeErrored:
		return "Errored"
	case HandshakePreparing:
		return "Preparing"
	case HandshakeSending:
		return "Sending"
	case HandshakeWaiting:
		return "Waiting"
	case HandshakeFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

type handshakeEvent int

const (
	handshakeEventMessage handshakeEvent = iota + 1
	handshakeEventRetransmit
	handshakeEventTimeout
)

// flightConn is what the handshake engine and the flight handlers need
// from a connection.
type flightConn interface {
	notify(level alert.Level, desc alert.Description) error
	writePackets(pkts []*packet) error
	// pollHandshake blocks until a new handshake message is cached, the
	// peer repeats a flight, or deadline passes.
	pollHandshake(ctx context.Context, deadline time.Time) (handshakeEvent, error)
	advanceWriteEpoch(epoch uint16)
	setPendingCipherState(cs CipherState)
	setPhase(p Phase)
	setFollowClientHello(follow bool)
	sessionKey() []byte
	remoteAddr() string
}

func srvCliStr(isClient bool) string {
	if isClient {
		return "client"
	}

	return "server"
}

type handshakeFSM struct {
	currentFlight FlightVal
	flights       []*packet
	retransmit    bool
	state         *State
	cache         *handshakeCache
	cfg           *handshakeConfig
	role          *handshakeRole

	retransmitInterval time.Duration
	retransmitCount    int
}

func newHandshakeFSM(s *State, cache *handshakeCache, cfg *handshakeConfig, role *handshakeRole) *handshakeFSM {
	return &handshakeFSM{
		currentFlight:      role.initialFlight,
		state:              s,
		cache:              cache,
		cfg:                cfg,
		role:               role,
		retransmitInterval: cfg.initialRetransmitTime,
	}
}

// Run drives the handshake on the calling goroutine until the last flight
// is sent or received, or the handshake fails.
func (s *handshakeFSM) Run(ctx context.Context, c flightConn, initialState HandshakeState) error {
	state := initialState
	for {
		s.cfg.log.Tracef("[handshake:%s] %s: %s", srvCliStr(s.state.isClient), s.currentFlight.String(), state.String())
		if s.cfg.onFlightState != nil {
			s.cfg.onFlightState(s.currentFlight, state)
		}
		var err error
		switch state {
		case HandshakePreparing:
			state, err = s.prepare(c)
		case HandshakeSending:
			state, err = s.send(c)
		case HandshakeWaiting:
			state, err = s.wait(ctx, c)
		case HandshakeFinished:
			return nil
		default:
			return errInvalidFSMTransition
		}
		if err != nil {
			return err
		}
	}
}

// expects reports whether the peer may send a message of typ now.
func (s *handshakeFSM) expects(typ handshake.Type) bool {
	h, err := s.role.handlers(s.currentFlight)
	if err != nil {
		return false
	}

	return h.accepts(typ)
}

func (s *handshakeFSM) prepare(c flightConn) (HandshakeState, error) {
	s.flights = nil

	handlers, err := s.role.handlers(s.currentFlight)
	if err != nil {
		return s.abort(c, &alert.Alert{Level: alert.Fatal, Description: alert.InternalError}, err)
	}

	pkts, a, err := handlers.generate(c, s.state, s.cache, s.cfg)
	if a != nil || err != nil {
		return s.abort(c, a, err)
	}
	s.retransmit = handlers.retransmit

	s.flights = pkts
	for _, p := range s.flights {
		if h, ok := p.record.Content.(*handshake.Handshake); ok {
			h.Header.MessageSequence = uint16(s.state.handshakeSendSequence) //nolint:gosec // G115
			s.state.handshakeSendSequence++
		}
	}

	return HandshakeSending, nil
}

func (s *handshakeFSM) send(c flightConn) (HandshakeState, error) {
	// Send flights
	if err := c.writePackets(s.flights); err != nil {
		return HandshakeErrored, err
	}

	var epoch uint16
	for _, p := range s.flights {
		if p.record.Header.Epoch > epoch {
			epoch = p.record.Header.Epoch
		}
	}
	if epoch > 0 {
		c.advanceWriteEpoch(epoch)
	}

	if handlers, err := s.role.handlers(s.currentFlight); err == nil && handlers.sentPhase != PhaseStart {
		c.setPhase(handlers.sentPhase)
	}

	if s.currentFlight.isLastSendFlight() {
		return HandshakeFinished, nil
	}

	return HandshakeWaiting, nil
}

func (s *handshakeFSM) wait(ctx context.Context, c flightConn) (HandshakeState, error) { //nolint:cyclop
	handlers, err := s.role.handlers(s.currentFlight)
	if err != nil || handlers.parse == nil {
		return s.abort(c, &alert.Alert{Level: alert.Fatal, Description: alert.InternalError}, errInvalidFlight)
	}
	if handlers.waitPhase != PhaseStart {
		c.setPhase(handlers.waitPhase)
	}

	deadline := time.Now().Add(s.retransmitInterval)
	for {
		event, err := c.pollHandshake(ctx, deadline)
		if err != nil {
			return HandshakeErrored, err
		}

		switch event {
		case handshakeEventRetransmit:
			// The peer repeated its previous flight, ours was lost.
			if s.retransmit {
				return HandshakeSending, nil
			}

		case handshakeEventMessage:
			nextFlight, a, err := handlers.parse(c, s.state, s.cache, s.cfg)
			if a != nil || err != nil {
				return s.abort(c, a, err)
			}
			if nextFlight == 0 {
				break
			}
			s.retransmitInterval = s.cfg.initialRetransmitTime
			s.retransmitCount = 0

			s.cfg.log.Tracef("[handshake:%s] %s -> %s", srvCliStr(s.state.isClient), s.currentFlight.String(), nextFlight.String())
			if nextFlight.isLastRecvFlight() && s.currentFlight == nextFlight {
				return HandshakeFinished, nil
			}
			s.currentFlight = nextFlight

			return HandshakePreparing, nil

		case handshakeEventTimeout:
			if s.retransmitCount >= s.cfg.maxRetransmits {
				return HandshakeErrored, ErrHandshakeTimeout
			}
			s.retransmitCount++
			s.retransmitInterval = min(2*s.retransmitInterval, s.cfg.maxRetransmitTime)
			if s.retransmit {
				s.cfg.log.Debugf("[handshake:%s] %s: timer expired, retransmitting (%d/%d)",
					srvCliStr(s.state.isClient), s.currentFlight.String(), s.retransmitCount, s.cfg.maxRetransmits)

				return HandshakeSending, nil
			}
			deadline = time.Now().Add(s.retransmitInterval)
		}
	}
}

// retransmitLastFlight answers a repeated peer flight once the handshake
// is over. Only the flight that ended the handshake is ever resent.
func (s *handshakeFSM) retransmitLastFlight(c flightConn) error {
	if !s.currentFlight.isLastSendFlight() || len(s.flights) == 0 {
		return nil
	}
	s.cfg.log.Tracef("[handshake:%s] %s: retransmitting last flight", srvCliStr(s.state.isClient), s.currentFlight.String())

	return c.writePackets(s.flights)
}

// abort sends a locally raised alert and returns the error that ends the handshake.
func (s *handshakeFSM) abort(c flightConn, a *alert.Alert, err error) (HandshakeState, error) {
	if a == nil {
		return HandshakeErrored, err
	}
	if alertErr := c.notify(a.Level, a.Description); alertErr != nil {
		s.cfg.log.Debugf("[handshake:%s] failed to send alert: %v", srvCliStr(s.state.isClient), alertErr)
	}

	return HandshakeErrored, &AlertError{Alert: a, Err: err}
}
