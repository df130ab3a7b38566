// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

func flight2Generate(_ flightConn, state *State, _ *handshakeCache, _ *handshakeConfig) ([]*packet, *alert.Alert, error) {
	// RFC 6347 Section 4.2.1
	// DTLS 1.2 server implementations SHOULD use DTLS version 1.0 regardless
	// of the version of TLS that is expected to be negotiated.
	return []*packet{
		handshakePacket(0, &handshake.MessageHelloVerifyRequest{
			Version: protocol.Version1_0,
			Cookie:  state.cookie,
		}),
	}, nil, nil
}
