// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"bytes"
	"encoding/gob"

	"github.com/pion/dtlsengine/pkg/crypto/elliptic"
	"github.com/pion/dtlsengine/pkg/crypto/signaturehash"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

// Phase is the step of the handshake a Conn has reached, as seen from its role.
type Phase uint8

// Phase enums.
const (
	PhaseStart Phase = iota
	PhaseSentHello
	PhaseCookieRetry
	PhaseWaitServerHello
	PhaseWaitServerKeyExchange
	PhaseSentClientKeyExchange
	PhaseSentFinished
	PhaseWaitServerFinished

	PhaseWaitClientHello
	PhaseSentCookieRequest
	PhaseWaitClientHelloWithCookie
	PhaseSentServerHelloFlight
	PhaseWaitClientKeyExchange
	PhaseWaitClientFinished

	PhaseConnected
	PhaseFailed
)

func (p Phase) String() string { //nolint:cyclop
	switch p {
	case PhaseStart:
		return "START"
	case PhaseSentHello:
		return "SENT_HELLO"
	case PhaseCookieRetry:
		return "COOKIE_RETRY"
	case PhaseWaitServerHello:
		return "WAIT_SERVER_HELLO"
	case PhaseWaitServerKeyExchange:
		return "WAIT_SERVER_KEY_EXCHANGE"
	case PhaseSentClientKeyExchange:
		return "SENT_CLIENT_KEY_EXCHANGE"
	case PhaseSentFinished:
		return "SENT_FINISHED"
	case PhaseWaitServerFinished:
		return "WAIT_SERVER_FINISHED"
	case PhaseWaitClientHello:
		return "WAIT_CLIENT_HELLO"
	case PhaseSentCookieRequest:
		return "SENT_COOKIE_REQUEST"
	case PhaseWaitClientHelloWithCookie:
		return "WAIT_CLIENT_HELLO_WITH_COOKIE"
	case PhaseSentServerHelloFlight:
		return "SENT_SERVER_HELLO_FLIGHT"
	case PhaseWaitClientKeyExchange:
		return "WAIT_CLIENT_KEY_EXCHANGE"
	case PhaseWaitClientFinished:
		return "WAIT_CLIENT_FINISHED"
	case PhaseConnected:
		return "CONNECTED"
	case PhaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// State holds the negotiated parameters of a dtls connection and
// implements both encoding.BinaryMarshaler and encoding.BinaryUnmarshaler.
type State struct {
	localRandom, remoteRandom handshake.Random
	masterSecret              []byte
	cipherSuite               CipherSuite // nil if a cipherSuite hasn't been chosen

	PeerCertificates [][]byte
	IdentityHint     []byte
	SessionID        []byte

	isClient bool
	phase    Phase

	preMasterSecret      []byte
	extendedMasterSecret bool

	namedCurve                 elliptic.Curve
	localKeypair               *elliptic.Keypair
	cookie                     []byte
	handshakeSendSequence      int
	handshakeRecvSequence      int
	serverName                 string
	remoteRequestedCertificate bool   // Did we get a CertificateRequest
	localCertificatesVerify    []byte // cache CertificateVerify
	localVerifyData            []byte // cached VerifyData
	peerCertificatesVerified   bool
	resumed                    bool

	// peerSignatureSchemes are the schemes offered in the peer's
	// signature_algorithms extension or CertificateRequest.
	peerSignatureSchemes []signaturehash.Algorithm
}

type serializedState struct {
	LocalRandom          [handshake.RandomLength]byte
	RemoteRandom         [handshake.RandomLength]byte
	CipherSuiteID        uint16
	MasterSecret         []byte
	PeerCertificates     [][]byte
	IdentityHint         []byte
	SessionID            []byte
	IsClient             bool
	ExtendedMasterSecret bool
	Resumed              bool
}

// CipherSuiteID returns the negotiated suite, or 0 before ServerHello.
func (s *State) CipherSuiteID() CipherSuiteID {
	if s.cipherSuite == nil {
		return 0
	}

	return s.cipherSuite.ID()
}

// ExtendedMasterSecret reports whether the master secret was derived
// from the session hash.
func (s *State) ExtendedMasterSecret() bool { return s.extendedMasterSecret }

// Resumed reports whether the session came out of a SessionStore.
func (s *State) Resumed() bool { return s.resumed }

// Phase returns the handshake phase the connection reached.
func (s *State) Phase() Phase { return s.phase }

func (s *State) clone() (*State, error) {
	serialized := s.serialize()
	state := &State{}
	if err := state.deserialize(*serialized); err != nil {
		return nil, err
	}
	state.phase = s.phase

	return state, nil
}

func (s *State) serialize() *serializedState {
	return &serializedState{
		LocalRandom:          s.localRandom.MarshalFixed(),
		RemoteRandom:         s.remoteRandom.MarshalFixed(),
		CipherSuiteID:        uint16(s.CipherSuiteID()),
		MasterSecret:         s.masterSecret,
		PeerCertificates:     s.PeerCertificates,
		IdentityHint:         s.IdentityHint,
		SessionID:            s.SessionID,
		IsClient:             s.isClient,
		ExtendedMasterSecret: s.extendedMasterSecret,
		Resumed:              s.resumed,
	}
}

func (s *State) deserialize(serialized serializedState) error {
	s.localRandom.UnmarshalFixed(serialized.LocalRandom)
	s.remoteRandom.UnmarshalFixed(serialized.RemoteRandom)

	s.isClient = serialized.IsClient
	s.extendedMasterSecret = serialized.ExtendedMasterSecret
	s.resumed = serialized.Resumed

	if serialized.CipherSuiteID != 0 {
		s.cipherSuite = cipherSuiteForID(CipherSuiteID(serialized.CipherSuiteID))
		if s.cipherSuite == nil {
			return &invalidCipherSuiteError{CipherSuiteID(serialized.CipherSuiteID)}
		}
	}

	s.masterSecret = append([]byte{}, serialized.MasterSecret...)
	s.IdentityHint = append([]byte{}, serialized.IdentityHint...)
	s.SessionID = append([]byte{}, serialized.SessionID...)
	s.PeerCertificates = nil
	for _, cert := range serialized.PeerCertificates {
		s.PeerCertificates = append(s.PeerCertificates, append([]byte{}, cert...))
	}

	return nil
}

// randoms returns the client and server random of the handshake.
func (s *State) randoms() (clientRandom, serverRandom []byte) {
	local := s.localRandom.MarshalFixed()
	remote := s.remoteRandom.MarshalFixed()
	if s.isClient {
		return local[:], remote[:]
	}

	return remote[:], local[:]
}

// MarshalBinary is a binary.BinaryMarshaler.MarshalBinary implementation.
func (s *State) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(*s.serialize()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary is a binary.BinaryUnmarshaler.UnmarshalBinary implementation.
func (s *State) UnmarshalBinary(data []byte) error {
	enc := gob.NewDecoder(bytes.NewBuffer(data))
	var serialized serializedState
	if err := enc.Decode(&serialized); err != nil {
		return err
	}

	return s.deserialize(serialized)
}
