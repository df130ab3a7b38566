// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"github.com/pion/dtlsengine/pkg/crypto/hash"
	"github.com/pion/dtlsengine/pkg/crypto/signature"
	"golang.org/x/crypto/cryptobyte"
)

// MessageCertificateVerify provide explicit verification of a
// client certificate.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.8
type MessageCertificateVerify struct {
	HashAlgorithm      hash.Algorithm
	SignatureAlgorithm signature.Algorithm
	Signature          []byte
}

// Type returns the Handshake Type.
func (m MessageCertificateVerify) Type() Type {
	return TypeCertificateVerify
}

// Marshal encodes the Handshake.
func (m *MessageCertificateVerify) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint8(byte(m.HashAlgorithm))
	b.AddUint8(byte(m.SignatureAlgorithm))
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(m.Signature)
	})

	return b.Bytes()
}

// Unmarshal populates the message from encoded data.
func (m *MessageCertificateVerify) Unmarshal(data []byte) error {
	val := cryptobyte.String(data)

	var h, s uint8
	var sig cryptobyte.String
	if !val.ReadUint8(&h) || !val.ReadUint8(&s) {
		return errBufferTooSmall
	}
	if _, ok := hash.Algorithms()[hash.Algorithm(h)]; !ok {
		return errInvalidHashAlgorithm
	}
	if _, ok := signature.Algorithms()[signature.Algorithm(s)]; !ok {
		return errInvalidSignatureAlgorithm
	}
	if !val.ReadUint16LengthPrefixed(&sig) || !val.Empty() {
		return errBufferTooSmall
	}

	m.HashAlgorithm = hash.Algorithm(h)
	m.SignatureAlgorithm = signature.Algorithm(s)
	m.Signature = append([]byte{}, sig...)

	return nil
}
