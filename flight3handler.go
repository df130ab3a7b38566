// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"bytes"
	"crypto/x509"

	"github.com/pion/dtlsengine/pkg/crypto/elliptic"
	"github.com/pion/dtlsengine/pkg/crypto/prf"
	"github.com/pion/dtlsengine/pkg/crypto/signaturehash"
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/extension"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

// flight3Parse handles the server's answer to a ClientHello: a
// HelloVerifyRequest, a full ServerHello flight, or an abbreviated
// resumption flight.
func flight3Parse( //nolint:cyclop
	conn flightConn,
	state *State,
	cache *handshakeCache,
	cfg *handshakeConfig,
) (FlightVal, *alert.Alert, error) {
	// Clients may receive multiple HelloVerifyRequest messages with different cookies.
	// Clients SHOULD handle this by sending a new ClientHello with a cookie in response
	// to the new HelloVerifyRequest. RFC 6347 Section 4.2.1
	seq, msgs, ok, err := cache.fullPullMap(state.handshakeRecvSequence, nil,
		handshakeCachePullRule{handshake.TypeHelloVerifyRequest, 0, false, true},
	)
	if err != nil {
		return 0, fatalAlert(alert.DecodeError), err
	}
	if ok {
		if h, isHVR := msgs[handshake.TypeHelloVerifyRequest].(*handshake.MessageHelloVerifyRequest); isHVR {
			// DTLS 1.2 clients must not assume that the server will use the protocol version
			// specified in HelloVerifyRequest message. RFC 6347 Section 4.2.1
			if !protocol.IsValidVersion(h.Version) {
				return 0, fatalAlert(alert.ProtocolVersion), errUnsupportedProtocolVersion
			}
			state.cookie = append([]byte{}, h.Cookie...)
			state.handshakeRecvSequence = seq
			conn.setPhase(PhaseCookieRetry)

			return Flight3, nil, nil
		}
	}

	_, msgs, ok, err = cache.fullPullMap(state.handshakeRecvSequence, nil,
		handshakeCachePullRule{handshake.TypeServerHello, 0, false, false},
	)
	if err != nil {
		return 0, fatalAlert(alert.DecodeError), err
	}
	if !ok {
		// Don't have enough messages. Keep reading
		return 0, nil, nil
	}

	if state.cipherSuite == nil {
		serverHello, isSH := msgs[handshake.TypeServerHello].(*handshake.MessageServerHello)
		if !isSH {
			return 0, fatalAlert(alert.InternalError), nil
		}
		if a, err := handleServerHello(conn, state, cfg, serverHello); a != nil || err != nil {
			return 0, a, err
		}
	}

	if state.resumed {
		return handleResumptionFinished(state, cache)
	}

	return handleServerKeyExchangeFlight(state, cache, cfg)
}

func handleServerHello( //nolint:cyclop
	conn flightConn,
	state *State,
	cfg *handshakeConfig,
	serverHello *handshake.MessageServerHello,
) (*alert.Alert, error) {
	if !protocol.IsSupportedVersion(serverHello.Version) {
		return fatalAlert(alert.ProtocolVersion), errUnsupportedProtocolVersion
	}

	if serverHello.CipherSuiteID == nil {
		return fatalAlert(alert.InsufficientSecurity), errCipherSuiteNoIntersection
	}
	selectedCipherSuite, found := findMatchingCipherSuite([]uint16{*serverHello.CipherSuiteID}, cfg.localCipherSuites)
	if !found {
		return fatalAlert(alert.IllegalParameter), errInvalidCipherSuite
	}
	if serverHello.CompressionMethod == nil || serverHello.CompressionMethod.ID != protocol.NullCompressionMethod().ID {
		return fatalAlert(alert.IllegalParameter), errCompressionMethodNoIntersection
	}

	state.extendedMasterSecret = false
	for _, v := range serverHello.Extensions {
		if e, ok := v.(*extension.UseExtendedMasterSecret); ok && e.Supported {
			state.extendedMasterSecret = cfg.extendedMasterSecret != DisableExtendedMasterSecret
		}
	}
	if cfg.extendedMasterSecret == RequireExtendedMasterSecret && !state.extendedMasterSecret {
		return fatalAlert(alert.HandshakeFailure), errClientRequiredButNoServerEMS
	}

	state.remoteRandom = serverHello.Random
	state.cipherSuite = selectedCipherSuite
	cfg.log.Tracef("[handshake:client] use cipher suite: %s", selectedCipherSuite.String())

	if len(state.SessionID) > 0 && bytes.Equal(state.SessionID, serverHello.SessionID) {
		return resumeClientSession(conn, state, cfg)
	}

	state.SessionID = append([]byte{}, serverHello.SessionID...)
	conn.setPhase(PhaseWaitServerKeyExchange)

	return nil, nil
}

// resumeClientSession installs the keys of the session the server agreed
// to resume.
func resumeClientSession(conn flightConn, state *State, cfg *handshakeConfig) (*alert.Alert, error) {
	session, err := cfg.sessionStore.Get(conn.sessionKey())
	if err != nil {
		return fatalAlert(alert.InternalError), err
	}
	if !bytes.Equal(session.ID, state.SessionID) || session.CipherSuiteID != state.cipherSuite.ID() ||
		session.ExtendedMasterSecret != state.extendedMasterSecret {
		return fatalAlert(alert.IllegalParameter), errSessionMismatch
	}
	cfg.log.Tracef("[handshake:client] resuming session %x", session.ID)

	state.masterSecret = append([]byte{}, session.Secret...)
	state.resumed = true

	clientRandom, serverRandom := state.randoms()
	cipherState, err := state.cipherSuite.NewCipherState(state.masterSecret, clientRandom, serverRandom, true)
	if err != nil {
		return fatalAlert(alert.InternalError), err
	}
	conn.setPendingCipherState(cipherState)

	return nil, nil
}

func handleResumptionFinished(state *State, cache *handshakeCache) (FlightVal, *alert.Alert, error) {
	seq, msgs, ok, err := cache.fullPullMap(state.handshakeRecvSequence, state.cipherSuite,
		handshakeCachePullRule{handshake.TypeServerHello, 0, false, false},
		handshakeCachePullRule{handshake.TypeFinished, 1, false, false},
	)
	if err != nil {
		return 0, fatalAlert(alert.DecodeError), err
	}
	if !ok {
		// Don't have enough messages. Keep reading
		return 0, nil, nil
	}

	finished, isFinished := msgs[handshake.TypeFinished].(*handshake.MessageFinished)
	if !isFinished {
		return 0, fatalAlert(alert.InternalError), nil
	}

	plainText := cache.pullAndMerge(
		handshakeCachePullRule{handshake.TypeClientHello, 0, true, false},
		handshakeCachePullRule{handshake.TypeServerHello, 0, false, false},
	)
	expectedVerifyData, err := prf.VerifyDataServer(state.masterSecret, plainText, state.cipherSuite.HashFunc())
	if err != nil {
		return 0, fatalAlert(alert.InternalError), err
	}
	if !bytes.Equal(expectedVerifyData, finished.VerifyData) {
		return 0, fatalAlert(alert.DecryptError), errVerifyDataMismatch
	}
	state.handshakeRecvSequence = seq

	return Flight5b, nil, nil
}

func handleServerKeyExchangeFlight( //nolint:gocognit,cyclop
	state *State,
	cache *handshakeCache,
	cfg *handshakeConfig,
) (FlightVal, *alert.Alert, error) {
	kx := state.cipherSuite.KeyExchangeAlgorithm()

	seq, msgs, ok, err := cache.fullPullMap(state.handshakeRecvSequence, state.cipherSuite,
		handshakeCachePullRule{handshake.TypeServerHello, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificate, 0, false, true},
		handshakeCachePullRule{handshake.TypeServerKeyExchange, 0, false, true},
		handshakeCachePullRule{handshake.TypeCertificateRequest, 0, false, true},
		handshakeCachePullRule{handshake.TypeServerHelloDone, 0, false, false},
	)
	if err != nil {
		return 0, fatalAlert(alert.DecodeError), err
	}
	if !ok {
		// Don't have enough messages. Keep reading
		return 0, nil, nil
	}

	if h, hasCert := msgs[handshake.TypeCertificate].(*handshake.MessageCertificate); hasCert {
		state.PeerCertificates = h.Certificate
	} else if state.cipherSuite.AuthenticationType() == CipherSuiteAuthenticationTypeCertificate {
		return 0, fatalAlert(alert.HandshakeFailure), errInvalidCertificate
	}

	serverKeyExchange, hasSKE := msgs[handshake.TypeServerKeyExchange].(*handshake.MessageServerKeyExchange)
	if kx.Has(CipherSuiteKeyExchangeAlgorithmEcdhe) && !hasSKE {
		return 0, fatalAlert(alert.UnexpectedMessage), errUnexpectedMessage
	}

	var sharedSecret []byte
	if kx.Has(CipherSuiteKeyExchangeAlgorithmEcdhe) {
		if !containsCurve(cfg.ellipticCurves, serverKeyExchange.NamedCurve) {
			return 0, fatalAlert(alert.IllegalParameter), errInvalidEllipticCurve
		}
		state.namedCurve = serverKeyExchange.NamedCurve
		state.localKeypair, err = elliptic.GenerateKeypair(state.namedCurve)
		if err != nil {
			return 0, fatalAlert(alert.InternalError), err
		}
		sharedSecret, err = state.localKeypair.SharedSecret(serverKeyExchange.PublicKey)
		if err != nil {
			return 0, fatalAlert(alert.IllegalParameter), err
		}
	}

	if state.cipherSuite.AuthenticationType() == CipherSuiteAuthenticationTypeCertificate {
		if a, err := verifyServerKeyExchange(state, cfg, serverKeyExchange); a != nil || err != nil {
			return 0, a, err
		}
	}

	if kx.Has(CipherSuiteKeyExchangeAlgorithmPsk) {
		if hasSKE {
			state.IdentityHint = serverKeyExchange.IdentityHint
		}
		psk, err := cfg.localPSKCallback(state.IdentityHint)
		if err != nil {
			return 0, fatalAlert(alert.HandshakeFailure), err
		}
		if kx.Has(CipherSuiteKeyExchangeAlgorithmEcdhe) {
			state.preMasterSecret = prf.EcdhePSKPreMasterSecret(psk, sharedSecret)
		} else {
			state.preMasterSecret = prf.PSKPreMasterSecret(psk)
		}
	} else {
		state.preMasterSecret = sharedSecret
	}

	if h, hasCertReq := msgs[handshake.TypeCertificateRequest].(*handshake.MessageCertificateRequest); hasCertReq {
		state.remoteRequestedCertificate = true
		state.peerSignatureSchemes = h.SignatureHashAlgorithms
	}
	state.handshakeRecvSequence = seq

	return Flight5, nil, nil
}

// verifyServerKeyExchange checks the ServerKeyExchange signature and the
// server certificate chain.
func verifyServerKeyExchange(
	state *State,
	cfg *handshakeConfig,
	serverKeyExchange *handshake.MessageServerKeyExchange,
) (*alert.Alert, error) {
	scheme, err := signaturehash.ParseAlgorithm(serverKeyExchange.HashAlgorithm, serverKeyExchange.SignatureAlgorithm)
	if err != nil || !containsScheme(cfg.localSignatureSchemes, scheme) {
		return fatalAlert(alert.IllegalParameter), errInvalidSignatureScheme
	}

	clientRandom, serverRandom := state.randoms()
	expectedMsg := valueKeyMessage(clientRandom, serverRandom, serverKeyExchange.PublicKey, serverKeyExchange.NamedCurve)
	if err = verifyKeySignature(expectedMsg, serverKeyExchange.Signature, serverKeyExchange.HashAlgorithm,
		state.PeerCertificates); err != nil {
		return fatalAlert(alert.DecryptError), err
	}

	var chains [][]*x509.Certificate
	if !cfg.insecureSkipVerify {
		if chains, err = verifyServerCert(state.PeerCertificates, cfg.rootCAs, cfg.serverName); err != nil {
			return fatalAlert(alert.BadCertificate), err
		}
	}
	if cfg.verifyPeerCertificate != nil {
		if err = cfg.verifyPeerCertificate(state.PeerCertificates, chains); err != nil {
			return fatalAlert(alert.BadCertificate), err
		}
	}
	state.peerCertificatesVerified = true

	return nil, nil
}

func containsCurve(curves []elliptic.Curve, c elliptic.Curve) bool {
	for _, curve := range curves {
		if curve == c {
			return true
		}
	}

	return false
}

func containsScheme(schemes []signaturehash.Algorithm, s signaturehash.Algorithm) bool {
	for _, scheme := range schemes {
		if scheme == s {
			return true
		}
	}

	return false
}

func flight3Generate(_ flightConn, state *State, _ *handshakeCache, cfg *handshakeConfig) ([]*packet, *alert.Alert, error) {
	return []*packet{handshakePacket(0, newClientHello(state, cfg))}, nil, nil
}
