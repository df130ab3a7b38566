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

func flight1Generate(conn flightConn, state *State, _ *handshakeCache, cfg *handshakeConfig) ([]*packet, *alert.Alert, error) {
	state.SessionID = nil
	if cfg.sessionStore != nil {
		if key := conn.sessionKey(); key != nil {
			session, err := cfg.sessionStore.Get(key)
			if err != nil {
				return nil, fatalAlert(alert.InternalError), err
			}
			if len(session.ID) > 0 {
				cfg.log.Tracef("[handshake:client] offering session %x", session.ID)
				state.SessionID = append([]byte{}, session.ID...)
			}
		}
	}

	return []*packet{handshakePacket(0, newClientHello(state, cfg))}, nil, nil
}

// newClientHello builds the ClientHello of the current attempt. The cookie
// is empty until the server sent a HelloVerifyRequest.
func newClientHello(state *State, cfg *handshakeConfig) *handshake.MessageClientHello {
	extensions := []extension.Extension{
		&extension.SupportedSignatureAlgorithms{
			SignatureHashAlgorithms: cfg.localSignatureSchemes,
		},
		&extension.RenegotiationInfo{
			RenegotiatedConnection: 0,
		},
	}

	for _, c := range cfg.localCipherSuites {
		if c.KeyExchangeAlgorithm().Has(CipherSuiteKeyExchangeAlgorithmEcdhe) {
			extensions = append(extensions,
				&extension.SupportedEllipticCurves{
					EllipticCurves: cfg.ellipticCurves,
				},
				&extension.SupportedPointFormats{
					PointFormats: []elliptic.CurvePointFormat{elliptic.CurvePointFormatUncompressed},
				},
			)

			break
		}
	}

	if cfg.extendedMasterSecret != DisableExtendedMasterSecret {
		extensions = append(extensions, &extension.UseExtendedMasterSecret{
			Supported: true,
		})
	}
	if len(cfg.serverName) > 0 {
		extensions = append(extensions, &extension.ServerName{ServerName: cfg.serverName})
	}

	return &handshake.MessageClientHello{
		Version:            protocol.Version1_2,
		Random:             state.localRandom,
		Cookie:             state.cookie,
		SessionID:          state.SessionID,
		CipherSuiteIDs:     cipherSuiteIDs(cfg.localCipherSuites),
		CompressionMethods: []*protocol.CompressionMethod{protocol.NullCompressionMethod()},
		Extensions:         extensions,
	}
}
