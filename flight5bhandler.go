// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"github.com/pion/dtlsengine/pkg/crypto/prf"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

// flight5bGenerate completes an abbreviated handshake from the client side.
func flight5bGenerate(
	_ flightConn,
	state *State,
	cache *handshakeCache,
	_ *handshakeConfig,
) ([]*packet, *alert.Alert, error) {
	plainText := cache.pullAndMerge(
		handshakeCachePullRule{handshake.TypeClientHello, 0, true, false},
		handshakeCachePullRule{handshake.TypeServerHello, 0, false, false},
		handshakeCachePullRule{handshake.TypeFinished, 1, false, false},
	)

	verifyData, err := prf.VerifyDataClient(state.masterSecret, plainText, state.cipherSuite.HashFunc())
	if err != nil {
		return nil, fatalAlert(alert.InternalError), err
	}
	state.localVerifyData = verifyData

	return []*packet{
		changeCipherSpecPacket(),
		handshakePacket(1, &handshake.MessageFinished{VerifyData: verifyData}),
	}, nil, nil
}
