// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
)

// Parse received handshakes and return next FlightVal.
type flightParser func(flightConn, *State, *handshakeCache, *handshakeConfig) (FlightVal, *alert.Alert, error)

// Generate flights.
type flightGenerator func(flightConn, *State, *handshakeCache, *handshakeConfig) ([]*packet, *alert.Alert, error)

// flightHandlers is one row of a role policy.
type flightHandlers struct {
	generate flightGenerator
	// parse is nil for flights that end the handshake when sent.
	parse flightParser
	// retransmit is false for flights that must never be resent on a timer.
	retransmit bool
	// expects lists the message types the peer may send while this flight waits.
	expects []handshake.Type
	// sentPhase and waitPhase are reported after the flight is sent and
	// when waiting starts. PhaseStart means no change.
	sentPhase Phase
	waitPhase Phase
}

// handshakeRole is the policy that turns the shared handshake engine into
// a client or a server.
type handshakeRole struct {
	isClient      bool
	initialFlight FlightVal
	flights       map[FlightVal]flightHandlers
}

var serverHelloFlightTypes = []handshake.Type{ //nolint:gochecknoglobals
	handshake.TypeHelloVerifyRequest,
	handshake.TypeServerHello,
	handshake.TypeCertificate,
	handshake.TypeServerKeyExchange,
	handshake.TypeCertificateRequest,
	handshake.TypeServerHelloDone,
	handshake.TypeFinished,
}

func clientRole() *handshakeRole {
	return &handshakeRole{
		isClient:      true,
		initialFlight: Flight1,
		flights: map[FlightVal]flightHandlers{
			Flight1: {
				generate:   flight1Generate,
				parse:      flight3Parse,
				retransmit: true,
				expects:    serverHelloFlightTypes,
				sentPhase:  PhaseSentHello,
				waitPhase:  PhaseWaitServerHello,
			},
			Flight3: {
				generate:   flight3Generate,
				parse:      flight3Parse,
				retransmit: true,
				expects:    serverHelloFlightTypes,
				waitPhase:  PhaseWaitServerHello,
			},
			Flight5: {
				generate:   flight5Generate,
				parse:      flight5Parse,
				retransmit: true,
				expects:    []handshake.Type{handshake.TypeFinished},
				sentPhase:  PhaseSentFinished,
			},
			Flight5b: {
				generate:   flight5bGenerate,
				retransmit: true,
				sentPhase:  PhaseSentFinished,
			},
		},
	}
}

func serverRole() *handshakeRole {
	return &handshakeRole{
		isClient:      false,
		initialFlight: Flight0,
		flights: map[FlightVal]flightHandlers{
			Flight0: {
				generate:   flight0Generate,
				parse:      flight0Parse,
				retransmit: true,
				expects:    []handshake.Type{handshake.TypeClientHello},
				waitPhase:  PhaseWaitClientHello,
			},
			Flight2: {
				generate: flight2Generate,
				parse:    flight0Parse,
				// https://tools.ietf.org/html/rfc6347#section-3.2.1
				// HelloVerifyRequests must not be retransmitted.
				retransmit: false,
				expects:    []handshake.Type{handshake.TypeClientHello},
				sentPhase:  PhaseSentCookieRequest,
				waitPhase:  PhaseWaitClientHelloWithCookie,
			},
			Flight4: {
				generate:   flight4Generate,
				parse:      flight4Parse,
				retransmit: true,
				expects: []handshake.Type{
					handshake.TypeCertificate,
					handshake.TypeClientKeyExchange,
					handshake.TypeCertificateVerify,
					handshake.TypeFinished,
				},
				sentPhase: PhaseSentServerHelloFlight,
				waitPhase: PhaseWaitClientKeyExchange,
			},
			Flight4b: {
				generate:   flight4bGenerate,
				parse:      flight4bParse,
				retransmit: true,
				expects:    []handshake.Type{handshake.TypeFinished},
				sentPhase:  PhaseSentServerHelloFlight,
				waitPhase:  PhaseWaitClientFinished,
			},
			Flight6: {
				generate:   flight6Generate,
				retransmit: true,
			},
		},
	}
}

func (r *handshakeRole) handlers(f FlightVal) (flightHandlers, error) {
	h, ok := r.flights[f]
	if !ok {
		return flightHandlers{}, errInvalidFlight
	}

	return h, nil
}

func (h flightHandlers) accepts(typ handshake.Type) bool {
	for _, t := range h.expects {
		if t == typ {
			return true
		}
	}

	return false
}

func fatalAlert(desc alert.Description) *alert.Alert {
	return &alert.Alert{Level: alert.Fatal, Description: desc}
}

func handshakePacket(epoch uint16, msg handshake.Message) *packet {
	return &packet{
		record: &recordlayer.RecordLayer{
			Header: recordlayer.Header{
				Version: protocol.Version1_2,
				Epoch:   epoch,
			},
			Content: &handshake.Handshake{
				Message: msg,
			},
		},
	}
}

func changeCipherSpecPacket() *packet {
	return &packet{
		record: &recordlayer.RecordLayer{
			Header: recordlayer.Header{
				Version: protocol.Version1_2,
			},
			Content: &protocol.ChangeCipherSpec{},
		},
	}
}

// marshalHandshake encodes msg the way it will be sent as message seq,
// for transcripts that must cover messages not cached yet.
func marshalHandshake(msg handshake.Message, seq int) ([]byte, error) {
	h := &handshake.Handshake{
		Header:  handshake.Header{MessageSequence: uint16(seq)}, //nolint:gosec // G115
		Message: msg,
	}

	return h.Marshal()
}
