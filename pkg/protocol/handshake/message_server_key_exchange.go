// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"github.com/pion/dtlsengine/internal/ciphersuite/types"
	"github.com/pion/dtlsengine/pkg/crypto/elliptic"
	"github.com/pion/dtlsengine/pkg/crypto/hash"
	"github.com/pion/dtlsengine/pkg/crypto/signature"
	"golang.org/x/crypto/cryptobyte"
)

// MessageServerKeyExchange supports ECDH and PSK.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.3
// https://tools.ietf.org/html/rfc5489#section-2
type MessageServerKeyExchange struct {
	IdentityHint []byte

	EllipticCurveType  elliptic.CurveType
	NamedCurve         elliptic.Curve
	PublicKey          []byte
	HashAlgorithm      hash.Algorithm
	SignatureAlgorithm signature.Algorithm
	Signature          []byte

	// for unmarshaling
	KeyExchangeAlgorithm types.KeyExchangeAlgorithm
}

// Type returns the Handshake Type.
func (m MessageServerKeyExchange) Type() Type {
	return TypeServerKeyExchange
}

// Marshal encodes the Handshake.
func (m *MessageServerKeyExchange) Marshal() ([]byte, error) {
	var b cryptobyte.Builder

	if m.KeyExchangeAlgorithm.Has(types.KeyExchangeAlgorithmPsk) {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(m.IdentityHint)
		})
	}
	if m.KeyExchangeAlgorithm.Has(types.KeyExchangeAlgorithmEcdhe) {
		b.AddBytes(ECDHParams(m.NamedCurve, m.PublicKey))
	}
	if m.KeyExchangeAlgorithm == types.KeyExchangeAlgorithmEcdhe {
		b.AddUint8(byte(m.HashAlgorithm))
		b.AddUint8(byte(m.SignatureAlgorithm))
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(m.Signature)
		})
	}

	return b.Bytes()
}

// Unmarshal populates the message from encoded data.
func (m *MessageServerKeyExchange) Unmarshal(data []byte) error { //nolint:cyclop
	val := cryptobyte.String(data)

	if m.KeyExchangeAlgorithm.Has(types.KeyExchangeAlgorithmPsk) {
		var hint cryptobyte.String
		if !val.ReadUint16LengthPrefixed(&hint) {
			return errBufferTooSmall
		}
		m.IdentityHint = append([]byte{}, hint...)
	}

	if m.KeyExchangeAlgorithm.Has(types.KeyExchangeAlgorithmEcdhe) {
		var curveType uint8
		var curve uint16
		var publicKey cryptobyte.String
		if !val.ReadUint8(&curveType) {
			return errBufferTooSmall
		}
		if elliptic.CurveType(curveType) != elliptic.CurveTypeNamedCurve {
			return errInvalidEllipticCurveType
		}
		m.EllipticCurveType = elliptic.CurveType(curveType)

		if !val.ReadUint16(&curve) {
			return errBufferTooSmall
		}
		if !elliptic.Curves()[elliptic.Curve(curve)] {
			return errInvalidNamedCurve
		}
		m.NamedCurve = elliptic.Curve(curve)

		if !val.ReadUint8LengthPrefixed(&publicKey) || publicKey.Empty() {
			return errBufferTooSmall
		}
		m.PublicKey = append([]byte{}, publicKey...)
	}

	if m.KeyExchangeAlgorithm == types.KeyExchangeAlgorithmEcdhe {
		var h, sig uint8
		var signatureBytes cryptobyte.String
		if !val.ReadUint8(&h) || !val.ReadUint8(&sig) {
			return errBufferTooSmall
		}
		if _, ok := hash.Algorithms()[hash.Algorithm(h)]; !ok {
			return errInvalidHashAlgorithm
		}
		m.HashAlgorithm = hash.Algorithm(h)
		if _, ok := signature.Algorithms()[signature.Algorithm(sig)]; !ok {
			return errInvalidSignatureAlgorithm
		}
		m.SignatureAlgorithm = signature.Algorithm(sig)

		if !val.ReadUint16LengthPrefixed(&signatureBytes) {
			return errBufferTooSmall
		}
		m.Signature = append([]byte{}, signatureBytes...)
	}

	if !val.Empty() {
		return errLengthMismatch
	}

	return nil
}

// ECDHParams encodes the ServerECDHParams structure, which is also the
// portion of ServerKeyExchange covered by the signature.
func ECDHParams(curve elliptic.Curve, publicKey []byte) []byte {
	var b cryptobyte.Builder
	b.AddUint8(byte(elliptic.CurveTypeNamedCurve))
	b.AddUint16(uint16(curve))
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(publicKey)
	})

	return b.BytesOrPanic()
}
