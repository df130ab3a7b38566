// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import (
	"github.com/pion/dtlsengine/pkg/crypto/hash"
	"github.com/pion/dtlsengine/pkg/crypto/signature"
	"github.com/pion/dtlsengine/pkg/crypto/signaturehash"
	"golang.org/x/crypto/cryptobyte"
)

// SupportedSignatureAlgorithms allows a Client/Server to
// negotiate what SignatureHash Algorithms they both support
//
// https://tools.ietf.org/html/rfc5246#section-7.4.1.4.1
type SupportedSignatureAlgorithms struct {
	SignatureHashAlgorithms []signaturehash.Algorithm
}

// TypeValue returns the extension TypeValue.
func (s SupportedSignatureAlgorithms) TypeValue() TypeValue {
	return SupportedSignatureAlgorithmsTypeValue
}

// Marshal encodes the extension.
func (s *SupportedSignatureAlgorithms) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(s.TypeValue()))
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, v := range s.SignatureHashAlgorithms {
				b.AddUint8(byte(v.Hash))
				b.AddUint8(byte(v.Signature))
			}
		})
	})

	return b.Bytes()
}

// Unmarshal populates the extension from encoded data.
// Pairs that are not supported are skipped.
func (s *SupportedSignatureAlgorithms) Unmarshal(data []byte) error {
	body, err := readHeader(data, s.TypeValue())
	if err != nil {
		return err
	}

	var list cryptobyte.String
	if !body.ReadUint16LengthPrefixed(&list) || !body.Empty() || len(list)%2 != 0 {
		return errInvalidFormat
	}
	for !list.Empty() {
		var h, sig uint8
		list.ReadUint8(&h)
		list.ReadUint8(&sig)

		alg, err := signaturehash.ParseAlgorithm(hash.Algorithm(h), signature.Algorithm(sig))
		if err != nil || !alg.IsSupported() {
			continue
		}
		s.SignatureHashAlgorithms = append(s.SignatureHashAlgorithms, alg)
	}

	return nil
}
