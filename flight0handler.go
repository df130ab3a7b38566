// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"github.com/pion/dtlsengine/pkg/crypto/elliptic"
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/extension"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

// flight0Parse handles a ClientHello, with or without a cookie. It answers
// with Flight2 until the ClientHello carries a cookie this server issued.
func flight0Parse( //nolint:cyclop,gocognit
	conn flightConn,
	state *State,
	cache *handshakeCache,
	cfg *handshakeConfig,
) (FlightVal, *alert.Alert, error) {
	items := cache.pull(handshakeCachePullRule{handshake.TypeClientHello, 0, true, false})
	if items[0] == nil {
		return 0, nil, nil
	}

	rawHandshake := &handshake.Handshake{}
	if err := rawHandshake.Unmarshal(items[0].data); err != nil {
		return 0, fatalAlert(alert.DecodeError), err
	}
	clientHello, ok := rawHandshake.Message.(*handshake.MessageClientHello)
	if !ok {
		return 0, fatalAlert(alert.InternalError), nil
	}

	if clientHello.Version != protocol.Version1_2 {
		return 0, fatalAlert(alert.ProtocolVersion), errUnsupportedProtocolVersion
	}

	// The server answers with the message_seq of the ClientHello it accepts,
	// so HelloVerifyRequest and ServerHello line up with the client.
	state.handshakeRecvSequence = int(rawHandshake.Header.MessageSequence) + 1
	state.handshakeSendSequence = int(rawHandshake.Header.MessageSequence)
	state.remoteRandom = clientHello.Random

	cipherSuite, ok := findMatchingCipherSuite(clientHello.CipherSuiteIDs, cfg.localCipherSuites)
	if !ok {
		return 0, fatalAlert(alert.InsufficientSecurity), errCipherSuiteNoIntersection
	}
	state.cipherSuite = cipherSuite

	hasNullCompression := false
	for _, m := range clientHello.CompressionMethods {
		if m.ID == protocol.NullCompressionMethod().ID {
			hasNullCompression = true
		}
	}
	if !hasNullCompression {
		return 0, fatalAlert(alert.IllegalParameter), errCompressionMethodNoIntersection
	}

	state.namedCurve = 0
	state.extendedMasterSecret = false
	state.peerSignatureSchemes = nil
	for _, val := range clientHello.Extensions {
		switch e := val.(type) {
		case *extension.SupportedEllipticCurves:
			state.namedCurve = selectCurve(e.EllipticCurves, cfg.ellipticCurves)
		case *extension.UseExtendedMasterSecret:
			if cfg.extendedMasterSecret != DisableExtendedMasterSecret {
				state.extendedMasterSecret = true
			}
		case *extension.ServerName:
			state.serverName = e.ServerName
		case *extension.SupportedSignatureAlgorithms:
			state.peerSignatureSchemes = e.SignatureHashAlgorithms
		}
	}

	if cfg.extendedMasterSecret == RequireExtendedMasterSecret && !state.extendedMasterSecret {
		return 0, fatalAlert(alert.InsufficientSecurity), errServerRequiredButNoClientEMS
	}
	if cipherSuite.KeyExchangeAlgorithm().Has(CipherSuiteKeyExchangeAlgorithmEcdhe) && state.namedCurve == 0 {
		return 0, fatalAlert(alert.InsufficientSecurity), errNoSupportedEllipticCurves
	}

	if !cfg.insecureSkipHelloVerify {
		valid, err := cfg.cookieSecret.verify(clientHello, conn.remoteAddr())
		if err != nil {
			return 0, fatalAlert(alert.InternalError), err
		}
		if !valid {
			if len(clientHello.Cookie) > 0 {
				cfg.log.Warnf("[handshake:server] rejected ClientHello cookie (message_seq: %d)", rawHandshake.Header.MessageSequence)
				if cfg.cookieMismatch == CookieMismatchFatal {
					return 0, fatalAlert(alert.AccessDenied), errCookieMismatch
				}
			}
			state.cookie, err = cfg.cookieSecret.generate(clientHello, conn.remoteAddr())
			if err != nil {
				return 0, fatalAlert(alert.InternalError), err
			}

			return Flight2, nil, nil
		}
	}

	if cfg.sessionStore != nil && len(clientHello.SessionID) > 0 {
		session, err := cfg.sessionStore.Get(clientHello.SessionID)
		if err != nil {
			return 0, fatalAlert(alert.InternalError), err
		}
		if len(session.ID) > 0 && session.CipherSuiteID == cipherSuite.ID() &&
			session.ExtendedMasterSecret == state.extendedMasterSecret {
			state.SessionID = append([]byte{}, clientHello.SessionID...)
			state.masterSecret = append([]byte{}, session.Secret...)
			state.resumed = true

			return Flight4b, nil, nil
		}
	}

	return Flight4, nil, nil
}

// selectCurve returns our most preferred curve the peer supports, or 0.
func selectCurve(offered, ours []elliptic.Curve) elliptic.Curve {
	for _, c := range ours {
		for _, o := range offered {
			if c == o {
				return c
			}
		}
	}

	return 0
}

func flight0Generate(flightConn, *State, *handshakeCache, *handshakeConfig) ([]*packet, *alert.Alert, error) {
	// Nothing to send, the server waits for a ClientHello.
	return nil, nil, nil
}
