// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"github.com/pion/dtlsengine/pkg/crypto/clientcertificate"
	"github.com/pion/dtlsengine/pkg/crypto/hash"
	"github.com/pion/dtlsengine/pkg/crypto/signature"
	"github.com/pion/dtlsengine/pkg/crypto/signaturehash"
	"golang.org/x/crypto/cryptobyte"
)

/*
MessageCertificateRequest is so a non-anonymous server can optionally
request a certificate from the client, if appropriate for the selected cipher
suite.  This message, if sent, will immediately follow the ServerKeyExchange
message (if it is sent; otherwise, this message follows the
server's Certificate message).

https://tools.ietf.org/html/rfc5246#section-7.4.4
*/
type MessageCertificateRequest struct {
	CertificateTypes            []clientcertificate.Type
	SignatureHashAlgorithms     []signaturehash.Algorithm
	CertificateAuthoritiesNames [][]byte
}

// Type returns the Handshake Type.
func (m MessageCertificateRequest) Type() Type {
	return TypeCertificateRequest
}

// Marshal encodes the Handshake.
func (m *MessageCertificateRequest) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, v := range m.CertificateTypes {
			b.AddUint8(byte(v))
		}
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, v := range m.SignatureHashAlgorithms {
			b.AddUint8(byte(v.Hash))
			b.AddUint8(byte(v.Signature))
		}
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, ca := range m.CertificateAuthoritiesNames {
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(ca)
			})
		}
	})

	return b.Bytes()
}

// Unmarshal populates the message from encoded data.
// Certificate types and signature pairs we do not implement are skipped.
func (m *MessageCertificateRequest) Unmarshal(data []byte) error {
	val := cryptobyte.String(data)

	var certTypes, sigAlgs, cas cryptobyte.String
	if !val.ReadUint8LengthPrefixed(&certTypes) {
		return errBufferTooSmall
	}
	for !certTypes.Empty() {
		var t uint8
		certTypes.ReadUint8(&t)
		if clientcertificate.Types()[clientcertificate.Type(t)] {
			m.CertificateTypes = append(m.CertificateTypes, clientcertificate.Type(t))
		}
	}

	if !val.ReadUint16LengthPrefixed(&sigAlgs) || len(sigAlgs)%2 != 0 {
		return errBufferTooSmall
	}
	for !sigAlgs.Empty() {
		var h, s uint8
		sigAlgs.ReadUint8(&h)
		sigAlgs.ReadUint8(&s)
		alg, err := signaturehash.ParseAlgorithm(hash.Algorithm(h), signature.Algorithm(s))
		if err != nil || !alg.IsSupported() {
			continue
		}
		m.SignatureHashAlgorithms = append(m.SignatureHashAlgorithms, alg)
	}

	if !val.ReadUint16LengthPrefixed(&cas) || !val.Empty() {
		return errBufferTooSmall
	}
	for !cas.Empty() {
		var ca cryptobyte.String
		if !cas.ReadUint16LengthPrefixed(&ca) {
			return errBufferTooSmall
		}
		m.CertificateAuthoritiesNames = append(m.CertificateAuthoritiesNames, append([]byte{}, ca...))
	}

	return nil
}
