// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"github.com/pion/dtlsengine/internal/ciphersuite/types"
	"golang.org/x/crypto/cryptobyte"
)

// MessageClientKeyExchange is a DTLS Handshake Message
// With this message, the premaster secret is set, either by direct
// transmission of the RSA-encrypted secret or by the transmission of
// Diffie-Hellman parameters that will allow each side to agree upon
// the same premaster secret.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.7
type MessageClientKeyExchange struct {
	IdentityHint []byte
	PublicKey    []byte

	// for unmarshaling
	KeyExchangeAlgorithm types.KeyExchangeAlgorithm
}

// Type returns the Handshake Type.
func (m MessageClientKeyExchange) Type() Type {
	return TypeClientKeyExchange
}

// Marshal encodes the Handshake.
func (m *MessageClientKeyExchange) Marshal() ([]byte, error) {
	if m.KeyExchangeAlgorithm == types.KeyExchangeAlgorithmNone {
		return nil, errInvalidClientKeyExchange
	}

	var b cryptobyte.Builder
	if m.KeyExchangeAlgorithm.Has(types.KeyExchangeAlgorithmPsk) {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(m.IdentityHint)
		})
	}
	if m.KeyExchangeAlgorithm.Has(types.KeyExchangeAlgorithmEcdhe) {
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(m.PublicKey)
		})
	}

	return b.Bytes()
}

// Unmarshal populates the message from encoded data.
func (m *MessageClientKeyExchange) Unmarshal(data []byte) error {
	if m.KeyExchangeAlgorithm == types.KeyExchangeAlgorithmNone {
		return errInvalidClientKeyExchange
	}

	val := cryptobyte.String(data)
	if m.KeyExchangeAlgorithm.Has(types.KeyExchangeAlgorithmPsk) {
		var identity cryptobyte.String
		if !val.ReadUint16LengthPrefixed(&identity) {
			return errBufferTooSmall
		}
		m.IdentityHint = append([]byte{}, identity...)
	}
	if m.KeyExchangeAlgorithm.Has(types.KeyExchangeAlgorithmEcdhe) {
		var publicKey cryptobyte.String
		if !val.ReadUint8LengthPrefixed(&publicKey) || publicKey.Empty() {
			return errBufferTooSmall
		}
		m.PublicKey = append([]byte{}, publicKey...)
	}
	if !val.Empty() {
		return errLengthMismatch
	}

	return nil
}
