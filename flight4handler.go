// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"bytes"
	"crypto/rand"
	"crypto/x509"

	"github.com/pion/dtlsengine/pkg/crypto/clientcertificate"
	"github.com/pion/dtlsengine/pkg/crypto/elliptic"
	"github.com/pion/dtlsengine/pkg/crypto/prf"
	"github.com/pion/dtlsengine/pkg/crypto/signaturehash"
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/extension"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

const sessionIDLength = 32

// flight4Parse handles the client's second flight. Keys are derived as
// soon as ClientKeyExchange is complete, so the encrypted Finished can be
// read when it arrives.
func flight4Parse( //nolint:gocognit,cyclop
	conn flightConn,
	state *State,
	cache *handshakeCache,
	cfg *handshakeConfig,
) (FlightVal, *alert.Alert, error) {
	seq, msgs, ok, err := cache.fullPullMap(state.handshakeRecvSequence, state.cipherSuite,
		handshakeCachePullRule{handshake.TypeCertificate, 0, true, true},
		handshakeCachePullRule{handshake.TypeClientKeyExchange, 0, true, false},
	)
	if err != nil {
		return 0, fatalAlert(alert.DecodeError), err
	}
	if !ok {
		// No valid message received. Keep reading
		return 0, nil, nil
	}

	if h, hasCert := msgs[handshake.TypeCertificate].(*handshake.MessageCertificate); hasCert {
		state.PeerCertificates = h.Certificate
	}

	if state.masterSecret == nil {
		clientKeyExchange, isCKE := msgs[handshake.TypeClientKeyExchange].(*handshake.MessageClientKeyExchange)
		if !isCKE {
			return 0, fatalAlert(alert.InternalError), nil
		}
		if a, err := deriveServerKeys(conn, state, cache, cfg, clientKeyExchange); a != nil || err != nil {
			return 0, a, err
		}
	}

	seq, msgs, ok, err = cache.fullPullMap(seq, state.cipherSuite,
		handshakeCachePullRule{handshake.TypeCertificateVerify, 0, true, true},
		handshakeCachePullRule{handshake.TypeFinished, 1, true, false},
	)
	if err != nil {
		return 0, fatalAlert(alert.DecodeError), err
	}
	if !ok {
		// No valid message received. Keep reading
		return 0, nil, nil
	}

	if h, hasCV := msgs[handshake.TypeCertificateVerify].(*handshake.MessageCertificateVerify); hasCV {
		if a, err := verifyClientCertificate(state, cache, cfg, h); a != nil || err != nil {
			return 0, a, err
		}
	} else if len(state.PeerCertificates) > 0 {
		return 0, fatalAlert(alert.NoCertificate), errClientCertificateNotVerified
	}

	switch cfg.clientAuth {
	case RequireAnyClientCert, RequireAndVerifyClientCert:
		if !state.peerCertificatesVerified {
			return 0, fatalAlert(alert.NoCertificate), errClientCertificateRequired
		}
	case NoClientCert, RequestClientCert, VerifyClientCertIfGiven:
	}

	finished, isFinished := msgs[handshake.TypeFinished].(*handshake.MessageFinished)
	if !isFinished {
		return 0, fatalAlert(alert.InternalError), nil
	}
	plainText := cache.pullAndMerge(
		handshakeCachePullRule{handshake.TypeClientHello, 0, true, false},
		handshakeCachePullRule{handshake.TypeServerHello, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificate, 0, false, false},
		handshakeCachePullRule{handshake.TypeServerKeyExchange, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificateRequest, 0, false, false},
		handshakeCachePullRule{handshake.TypeServerHelloDone, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificate, 0, true, false},
		handshakeCachePullRule{handshake.TypeClientKeyExchange, 0, true, false},
		handshakeCachePullRule{handshake.TypeCertificateVerify, 0, true, false},
	)
	expectedVerifyData, err := prf.VerifyDataClient(state.masterSecret, plainText, state.cipherSuite.HashFunc())
	if err != nil {
		return 0, fatalAlert(alert.InternalError), err
	}
	if !bytes.Equal(expectedVerifyData, finished.VerifyData) {
		return 0, fatalAlert(alert.DecryptError), errVerifyDataMismatch
	}

	if cfg.sessionStore != nil && len(state.SessionID) > 0 {
		cfg.log.Tracef("[handshake:server] saving new session: %x", state.SessionID)
		if err := cfg.sessionStore.Set(state.SessionID, sessionOf(state)); err != nil {
			return 0, fatalAlert(alert.InternalError), err
		}
	}
	state.handshakeRecvSequence = seq

	return Flight6, nil, nil
}

func deriveServerKeys(
	conn flightConn,
	state *State,
	cache *handshakeCache,
	cfg *handshakeConfig,
	clientKeyExchange *handshake.MessageClientKeyExchange,
) (*alert.Alert, error) {
	kx := state.cipherSuite.KeyExchangeAlgorithm()

	var sharedSecret []byte
	if kx.Has(CipherSuiteKeyExchangeAlgorithmEcdhe) {
		var err error
		if sharedSecret, err = state.localKeypair.SharedSecret(clientKeyExchange.PublicKey); err != nil {
			return fatalAlert(alert.IllegalParameter), err
		}
	}

	if kx.Has(CipherSuiteKeyExchangeAlgorithmPsk) {
		state.IdentityHint = clientKeyExchange.IdentityHint
		psk, err := cfg.localPSKCallback(clientKeyExchange.IdentityHint)
		if err != nil {
			return fatalAlert(alert.UnknownPSKIdentity), err
		}
		if kx.Has(CipherSuiteKeyExchangeAlgorithmEcdhe) {
			state.preMasterSecret = prf.EcdhePSKPreMasterSecret(psk, sharedSecret)
		} else {
			state.preMasterSecret = prf.PSKPreMasterSecret(psk)
		}
	} else {
		state.preMasterSecret = sharedSecret
	}

	if err := computeMasterSecret(state, cache); err != nil {
		return fatalAlert(alert.InternalError), err
	}

	clientRandom, serverRandom := state.randoms()
	cipherState, err := state.cipherSuite.NewCipherState(state.masterSecret, clientRandom, serverRandom, false)
	if err != nil {
		return fatalAlert(alert.InternalError), err
	}
	conn.setPendingCipherState(cipherState)
	conn.setPhase(PhaseWaitClientFinished)

	return nil, nil
}

// computeMasterSecret derives the master secret from the pre-master
// secret. additional holds messages that are part of the session hash but
// not cached yet.
func computeMasterSecret(state *State, cache *handshakeCache, additional ...[]byte) error {
	hashFunc := state.cipherSuite.HashFunc()

	var err error
	if state.extendedMasterSecret {
		var sessionHash []byte
		if sessionHash, err = cache.sessionHash(hashFunc, 0, additional...); err != nil {
			return err
		}
		state.masterSecret, err = prf.ExtendedMasterSecret(state.preMasterSecret, sessionHash, hashFunc)
	} else {
		clientRandom, serverRandom := state.randoms()
		state.masterSecret, err = prf.MasterSecret(state.preMasterSecret, clientRandom, serverRandom, hashFunc)
	}

	return err
}

func verifyClientCertificate(
	state *State,
	cache *handshakeCache,
	cfg *handshakeConfig,
	certificateVerify *handshake.MessageCertificateVerify,
) (*alert.Alert, error) {
	if len(state.PeerCertificates) == 0 {
		return fatalAlert(alert.NoCertificate), errCertificateVerifyNoCertificate
	}

	scheme, err := signaturehash.ParseAlgorithm(certificateVerify.HashAlgorithm, certificateVerify.SignatureAlgorithm)
	if err != nil || !containsScheme(cfg.localSignatureSchemes, scheme) {
		return fatalAlert(alert.IllegalParameter), errInvalidSignatureScheme
	}

	plainText := cache.pullAndMerge(
		handshakeCachePullRule{handshake.TypeClientHello, 0, true, false},
		handshakeCachePullRule{handshake.TypeServerHello, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificate, 0, false, false},
		handshakeCachePullRule{handshake.TypeServerKeyExchange, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificateRequest, 0, false, false},
		handshakeCachePullRule{handshake.TypeServerHelloDone, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificate, 0, true, false},
		handshakeCachePullRule{handshake.TypeClientKeyExchange, 0, true, false},
	)
	if err = verifyCertificateVerify(plainText, certificateVerify.HashAlgorithm, certificateVerify.Signature,
		state.PeerCertificates); err != nil {
		return fatalAlert(alert.BadCertificate), err
	}

	var chains [][]*x509.Certificate
	if cfg.clientAuth >= VerifyClientCertIfGiven {
		if chains, err = verifyClientCert(state.PeerCertificates, cfg.clientCAs); err != nil {
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

func sessionOf(state *State) Session {
	return Session{
		ID:                   append([]byte{}, state.SessionID...),
		Secret:               append([]byte{}, state.masterSecret...),
		CipherSuiteID:        state.cipherSuite.ID(),
		ExtendedMasterSecret: state.extendedMasterSecret,
	}
}

func flight4Generate( //nolint:gocognit,cyclop
	conn flightConn,
	state *State,
	_ *handshakeCache,
	cfg *handshakeConfig,
) ([]*packet, *alert.Alert, error) {
	conn.setFollowClientHello(false)
	kx := state.cipherSuite.KeyExchangeAlgorithm()

	if kx.Has(CipherSuiteKeyExchangeAlgorithmEcdhe) {
		var err error
		if state.localKeypair, err = elliptic.GenerateKeypair(state.namedCurve); err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
	}

	if cfg.sessionStore != nil && len(state.SessionID) == 0 {
		state.SessionID = make([]byte, sessionIDLength)
		if _, err := rand.Read(state.SessionID); err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
	}

	pkts := []*packet{handshakePacket(0, newServerHello(state))}

	switch {
	case state.cipherSuite.AuthenticationType() == CipherSuiteAuthenticationTypeCertificate:
		certificate, scheme, err := cfg.getCertificate(state.peerSignatureSchemes)
		if err != nil {
			return nil, fatalAlert(alert.HandshakeFailure), err
		}
		pkts = append(pkts, handshakePacket(0, &handshake.MessageCertificate{
			Certificate: certificate.Certificate,
		}))

		signer, err := signerOf(certificate)
		if err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
		clientRandom, serverRandom := state.randoms()
		signature, err := generateKeySignature(clientRandom, serverRandom, state.localKeypair.PublicKey,
			state.namedCurve, signer, scheme.Hash)
		if err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
		pkts = append(pkts, handshakePacket(0, &handshake.MessageServerKeyExchange{
			EllipticCurveType:    elliptic.CurveTypeNamedCurve,
			NamedCurve:           state.namedCurve,
			PublicKey:            state.localKeypair.PublicKey,
			HashAlgorithm:        scheme.Hash,
			SignatureAlgorithm:   scheme.Signature,
			Signature:            signature,
			KeyExchangeAlgorithm: kx,
		}))

		if cfg.clientAuth > NoClientCert {
			pkts = append(pkts, handshakePacket(0, &handshake.MessageCertificateRequest{
				CertificateTypes:        []clientcertificate.Type{clientcertificate.ECDSASign},
				SignatureHashAlgorithms: cfg.localSignatureSchemes,
			}))
		}
	case kx.Has(CipherSuiteKeyExchangeAlgorithmEcdhe):
		pkts = append(pkts, handshakePacket(0, &handshake.MessageServerKeyExchange{
			IdentityHint:         cfg.localPSKIdentityHint,
			EllipticCurveType:    elliptic.CurveTypeNamedCurve,
			NamedCurve:           state.namedCurve,
			PublicKey:            state.localKeypair.PublicKey,
			KeyExchangeAlgorithm: kx,
		}))
	case len(cfg.localPSKIdentityHint) > 0:
		// To help the client in selecting which identity to use, the server
		// can provide a "PSK identity hint" in the ServerKeyExchange message.
		// If no hint is provided, the ServerKeyExchange message is omitted.
		//
		// https://tools.ietf.org/html/rfc4279#section-2
		pkts = append(pkts, handshakePacket(0, &handshake.MessageServerKeyExchange{
			IdentityHint:         cfg.localPSKIdentityHint,
			KeyExchangeAlgorithm: kx,
		}))
	}

	pkts = append(pkts, handshakePacket(0, &handshake.MessageServerHelloDone{}))

	return pkts, nil, nil
}

func newServerHello(state *State) *handshake.MessageServerHello {
	extensions := []extension.Extension{&extension.RenegotiationInfo{
		RenegotiatedConnection: 0,
	}}
	if state.extendedMasterSecret {
		extensions = append(extensions, &extension.UseExtendedMasterSecret{
			Supported: true,
		})
	}
	if state.cipherSuite.KeyExchangeAlgorithm().Has(CipherSuiteKeyExchangeAlgorithmEcdhe) {
		extensions = append(extensions, &extension.SupportedPointFormats{
			PointFormats: []elliptic.CurvePointFormat{elliptic.CurvePointFormatUncompressed},
		})
	}

	cipherSuiteID := uint16(state.cipherSuite.ID())

	return &handshake.MessageServerHello{
		Version:           protocol.Version1_2,
		Random:            state.localRandom,
		SessionID:         state.SessionID,
		CipherSuiteID:     &cipherSuiteID,
		CompressionMethod: protocol.NullCompressionMethod(),
		Extensions:        extensions,
	}
}
