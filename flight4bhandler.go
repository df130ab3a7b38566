// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"bytes"

	"github.com/pion/dtlsengine/pkg/crypto/prf"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

// flight4bParse checks the client Finished of a resumed session.
func flight4bParse(
	_ flightConn,
	state *State,
	cache *handshakeCache,
	_ *handshakeConfig,
) (FlightVal, *alert.Alert, error) {
	seq, msgs, ok, err := cache.fullPullMap(state.handshakeRecvSequence, state.cipherSuite,
		handshakeCachePullRule{handshake.TypeFinished, 1, true, false},
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
		handshakeCachePullRule{handshake.TypeFinished, 1, false, false},
	)
	expectedVerifyData, err := prf.VerifyDataClient(state.masterSecret, plainText, state.cipherSuite.HashFunc())
	if err != nil {
		return 0, fatalAlert(alert.InternalError), err
	}
	if !bytes.Equal(expectedVerifyData, finished.VerifyData) {
		return 0, fatalAlert(alert.DecryptError), errVerifyDataMismatch
	}
	state.handshakeRecvSequence = seq

	return Flight4b, nil, nil
}

// flight4bGenerate answers a ClientHello that resumes a stored session
// with ServerHello, ChangeCipherSpec and Finished.
func flight4bGenerate(
	conn flightConn,
	state *State,
	cache *handshakeCache,
	_ *handshakeConfig,
) ([]*packet, *alert.Alert, error) {
	conn.setFollowClientHello(false)

	serverHello := newServerHello(state)

	clientRandom, serverRandom := state.randoms()
	cipherState, err := state.cipherSuite.NewCipherState(state.masterSecret, clientRandom, serverRandom, false)
	if err != nil {
		return nil, fatalAlert(alert.InternalError), err
	}
	conn.setPendingCipherState(cipherState)

	// ServerHello is cached when sent, Finished must already cover it.
	rawServerHello, err := marshalHandshake(serverHello, state.handshakeSendSequence)
	if err != nil {
		return nil, fatalAlert(alert.InternalError), err
	}
	plainText := cache.pullAndMerge(
		handshakeCachePullRule{handshake.TypeClientHello, 0, true, false},
	)
	plainText = append(plainText, rawServerHello...)

	verifyData, err := prf.VerifyDataServer(state.masterSecret, plainText, state.cipherSuite.HashFunc())
	if err != nil {
		return nil, fatalAlert(alert.InternalError), err
	}
	state.localVerifyData = verifyData

	return []*packet{
		handshakePacket(0, serverHello),
		changeCipherSpecPacket(),
		handshakePacket(1, &handshake.MessageFinished{VerifyData: verifyData}),
	}, nil, nil
}
