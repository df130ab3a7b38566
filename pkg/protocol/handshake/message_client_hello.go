// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/extension"
	"golang.org/x/crypto/cryptobyte"
)

/*
MessageClientHello is for when a client first connects to a server it is
required to send the client hello as its first message.  The client can also send a
client hello in response to a hello request or on its own
initiative in order to renegotiate the security parameters in an
existing connection.
*/
type MessageClientHello struct {
	Version protocol.Version
	Random  Random
	Cookie  []byte

	SessionID []byte

	CipherSuiteIDs     []uint16
	CompressionMethods []*protocol.CompressionMethod
	Extensions         []extension.Extension
}

const (
	maxSessionIDLength = 32
	maxCookieLength    = 255
)

// Type returns the Handshake Type.
func (m MessageClientHello) Type() Type {
	return TypeClientHello
}

// Marshal encodes the Handshake.
func (m *MessageClientHello) Marshal() ([]byte, error) {
	if len(m.Cookie) > maxCookieLength {
		return nil, errCookieTooLong
	}
	if len(m.SessionID) > maxSessionIDLength {
		return nil, errSessionIDTooLong
	}

	extensions, err := extension.Marshal(m.Extensions)
	if err != nil {
		return nil, err
	}

	var b cryptobyte.Builder
	b.AddUint8(m.Version.Major)
	b.AddUint8(m.Version.Minor)
	rand := m.Random.MarshalFixed()
	b.AddBytes(rand[:])
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(m.SessionID)
	})
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(m.Cookie)
	})
	addCipherSuiteIDs(&b, m.CipherSuiteIDs)
	b.AddBytes(protocol.EncodeCompressionMethods(m.CompressionMethods))
	b.AddBytes(extensions)

	return b.Bytes()
}

// Unmarshal populates the message from encoded data.
func (m *MessageClientHello) Unmarshal(data []byte) error {
	if len(data) < 2+RandomLength {
		return errBufferTooSmall
	}

	val := cryptobyte.String(data)
	val.ReadUint8(&m.Version.Major)
	val.ReadUint8(&m.Version.Minor)

	var random [RandomLength]byte
	val.CopyBytes(random[:])
	m.Random.UnmarshalFixed(random)

	var sessionID, cookie cryptobyte.String
	if !val.ReadUint8LengthPrefixed(&sessionID) || len(sessionID) > maxSessionIDLength {
		return errBufferTooSmall
	}
	m.SessionID = append([]byte{}, sessionID...)

	if !val.ReadUint8LengthPrefixed(&cookie) {
		return errBufferTooSmall
	}
	m.Cookie = append([]byte{}, cookie...)

	cipherSuiteIDs, ok := readCipherSuiteIDs(&val)
	if !ok {
		return errBufferTooSmall
	}
	m.CipherSuiteIDs = cipherSuiteIDs

	compressionRaw := val
	var compression cryptobyte.String
	if !val.ReadUint8LengthPrefixed(&compression) {
		return errBufferTooSmall
	}
	compressionMethods, err := protocol.DecodeCompressionMethods(compressionRaw[:1+len(compression)])
	if err != nil {
		return err
	}
	m.CompressionMethods = compressionMethods

	extensions, err := extension.Unmarshal(val)
	if err != nil {
		return err
	}
	m.Extensions = extensions

	return nil
}
