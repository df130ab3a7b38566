// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/extension"
	"golang.org/x/crypto/cryptobyte"
)

// MessageServerHello is sent in response to a ClientHello
// message when it was able to find an acceptable set of algorithms.
// If it cannot find such a match, it will respond with a handshake
// failure alert.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.1.3
type MessageServerHello struct {
	Version protocol.Version
	Random  Random

	SessionID []byte

	CipherSuiteID     *uint16
	CompressionMethod *protocol.CompressionMethod
	Extensions        []extension.Extension
}

// Type returns the Handshake Type.
func (m MessageServerHello) Type() Type {
	return TypeServerHello
}

// Marshal encodes the Handshake.
func (m *MessageServerHello) Marshal() ([]byte, error) {
	if m.CipherSuiteID == nil {
		return nil, errCipherSuiteUnset
	} else if m.CompressionMethod == nil {
		return nil, errCompressionMethodUnset
	} else if len(m.SessionID) > maxSessionIDLength {
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
	b.AddUint16(*m.CipherSuiteID)
	b.AddUint8(byte(m.CompressionMethod.ID))
	b.AddBytes(extensions)

	return b.Bytes()
}

// Unmarshal populates the message from encoded data.
func (m *MessageServerHello) Unmarshal(data []byte) error {
	if len(data) < 2+RandomLength {
		return errBufferTooSmall
	}

	val := cryptobyte.String(data)
	val.ReadUint8(&m.Version.Major)
	val.ReadUint8(&m.Version.Minor)

	var random [RandomLength]byte
	val.CopyBytes(random[:])
	m.Random.UnmarshalFixed(random)

	var sessionID cryptobyte.String
	if !val.ReadUint8LengthPrefixed(&sessionID) || len(sessionID) > maxSessionIDLength {
		return errBufferTooSmall
	}
	m.SessionID = append([]byte{}, sessionID...)

	var cipherSuiteID uint16
	if !val.ReadUint16(&cipherSuiteID) {
		return errBufferTooSmall
	}
	m.CipherSuiteID = &cipherSuiteID

	var compressionID uint8
	if !val.ReadUint8(&compressionID) {
		return errBufferTooSmall
	}
	compressionMethod, ok := protocol.CompressionMethods()[protocol.CompressionMethodID(compressionID)]
	if !ok {
		return errInvalidCompressionMethod
	}
	m.CompressionMethod = compressionMethod

	extensions, err := extension.Unmarshal(val)
	if err != nil {
		return err
	}
	m.Extensions = extensions

	return nil
}
