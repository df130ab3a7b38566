// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"bytes"
	"crypto/tls"
	"errors"

	"github.com/pion/dtlsengine/pkg/crypto/prf"
	"github.com/pion/dtlsengine/pkg/crypto/signaturehash"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

func flight5Parse(
	conn flightConn,
	state *State,
	cache *handshakeCache,
	cfg *handshakeConfig,
) (FlightVal, *alert.Alert, error) {
	_, msgs, ok, err := cache.fullPullMap(state.handshakeRecvSequence, state.cipherSuite,
		handshakeCachePullRule{handshake.TypeFinished, 1, false, false},
	)
	if err != nil {
		return 0, fatalAlert(alert.DecodeError), err
	}
	if !ok {
		// No valid message received. Keep reading
		return 0, nil, nil
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
		handshakeCachePullRule{handshake.TypeFinished, 1, true, false},
	)
	expectedVerifyData, err := prf.VerifyDataServer(state.masterSecret, plainText, state.cipherSuite.HashFunc())
	if err != nil {
		return 0, fatalAlert(alert.InternalError), err
	}
	if !bytes.Equal(expectedVerifyData, finished.VerifyData) {
		return 0, fatalAlert(alert.DecryptError), errVerifyDataMismatch
	}

	if cfg.sessionStore != nil && len(state.SessionID) > 0 {
		if key := conn.sessionKey(); key != nil {
			cfg.log.Tracef("[handshake:client] saving new session: %x", state.SessionID)
			if err := cfg.sessionStore.Set(key, sessionOf(state)); err != nil {
				return 0, fatalAlert(alert.InternalError), err
			}
		}
	}

	return Flight5, nil, nil
}

// flight5Generate sends the client's key exchange flight. The messages of
// the flight are only cached once sent, so the transcript-dependent values
// are computed over their encoding here.
func flight5Generate( //nolint:gocognit,cyclop
	conn flightConn,
	state *State,
	cache *handshakeCache,
	cfg *handshakeConfig,
) ([]*packet, *alert.Alert, error) {
	var (
		pkts        []*packet
		certificate *tls.Certificate
		scheme      signaturehash.Algorithm
	)

	if state.remoteRequestedCertificate {
		var certificates [][]byte
		cert, alg, err := cfg.getCertificate(state.peerSignatureSchemes)
		switch {
		case err == nil:
			certificate, scheme = cert, alg
			certificates = cert.Certificate
		case errors.Is(err, errNoCertificates):
			// An empty Certificate message tells the server we have none.
		default:
			return nil, fatalAlert(alert.HandshakeFailure), err
		}
		pkts = append(pkts, handshakePacket(0, &handshake.MessageCertificate{Certificate: certificates}))
	}

	kx := state.cipherSuite.KeyExchangeAlgorithm()
	clientKeyExchange := &handshake.MessageClientKeyExchange{KeyExchangeAlgorithm: kx}
	if kx.Has(CipherSuiteKeyExchangeAlgorithmPsk) {
		clientKeyExchange.IdentityHint = cfg.localPSKIdentityHint
	}
	if kx.Has(CipherSuiteKeyExchangeAlgorithmEcdhe) {
		clientKeyExchange.PublicKey = state.localKeypair.PublicKey
	}
	pkts = append(pkts, handshakePacket(0, clientKeyExchange))

	seq := state.handshakeSendSequence
	merged := []byte{}
	for _, p := range pkts {
		h, _ := p.record.Content.(*handshake.Handshake)
		raw, err := marshalHandshake(h.Message, seq)
		if err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
		merged = append(merged, raw...)
		seq++
	}

	if state.masterSecret == nil {
		if err := computeMasterSecret(state, cache, merged); err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
	}

	clientRandom, serverRandom := state.randoms()
	cipherState, err := state.cipherSuite.NewCipherState(state.masterSecret, clientRandom, serverRandom, true)
	if err != nil {
		return nil, fatalAlert(alert.InternalError), err
	}
	conn.setPendingCipherState(cipherState)

	serverFlight := cache.pullAndMerge(
		handshakeCachePullRule{handshake.TypeClientHello, 0, true, false},
		handshakeCachePullRule{handshake.TypeServerHello, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificate, 0, false, false},
		handshakeCachePullRule{handshake.TypeServerKeyExchange, 0, false, false},
		handshakeCachePullRule{handshake.TypeCertificateRequest, 0, false, false},
		handshakeCachePullRule{handshake.TypeServerHelloDone, 0, false, false},
	)

	// If the client has sent a certificate with signing ability, a
	// digitally-signed CertificateVerify message is sent to explicitly
	// verify possession of the private key in the certificate.
	if certificate != nil {
		signer, err := signerOf(certificate)
		if err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
		signature, err := generateCertificateVerify(append(append([]byte{}, serverFlight...), merged...),
			signer, scheme.Hash)
		if err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
		certificateVerify := &handshake.MessageCertificateVerify{
			HashAlgorithm:      scheme.Hash,
			SignatureAlgorithm: scheme.Signature,
			Signature:          signature,
		}
		state.localCertificatesVerify = signature
		pkts = append(pkts, handshakePacket(0, certificateVerify))

		raw, err := marshalHandshake(certificateVerify, seq)
		if err != nil {
			return nil, fatalAlert(alert.InternalError), err
		}
		merged = append(merged, raw...)
	}

	plainText := append(append([]byte{}, serverFlight...), merged...)
	verifyData, err := prf.VerifyDataClient(state.masterSecret, plainText, state.cipherSuite.HashFunc())
	if err != nil {
		return nil, fatalAlert(alert.InternalError), err
	}
	state.localVerifyData = verifyData

	pkts = append(pkts,
		changeCipherSpecPacket(),
		handshakePacket(1, &handshake.MessageFinished{VerifyData: verifyData}),
	)
	conn.setPhase(PhaseSentClientKeyExchange)

	return pkts, nil, nil
}
