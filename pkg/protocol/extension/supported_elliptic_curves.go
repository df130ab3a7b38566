// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import (
	"github.com/pion/dtlsengine/pkg/crypto/elliptic"
	"golang.org/x/crypto/cryptobyte"
)

// SupportedEllipticCurves allows a Client/Server to communicate
// what curves they both support
//
// https://tools.ietf.org/html/rfc8422#section-5.1.1
type SupportedEllipticCurves struct {
	EllipticCurves []elliptic.Curve
}

// TypeValue returns the extension TypeValue.
func (s SupportedEllipticCurves) TypeValue() TypeValue {
	return SupportedEllipticCurvesTypeValue
}

// Marshal encodes the extension.
func (s *SupportedEllipticCurves) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(s.TypeValue()))
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, c := range s.EllipticCurves {
				b.AddUint16(uint16(c))
			}
		})
	})

	return b.Bytes()
}

// Unmarshal populates the extension from encoded data.
// Curves we do not implement are dropped.
func (s *SupportedEllipticCurves) Unmarshal(data []byte) error {
	body, err := readHeader(data, s.TypeValue())
	if err != nil {
		return err
	}

	var list cryptobyte.String
	if !body.ReadUint16LengthPrefixed(&list) || !body.Empty() || len(list)%2 != 0 {
		return errInvalidFormat
	}

	curves := elliptic.Curves()
	for !list.Empty() {
		var c uint16
		if !list.ReadUint16(&c) {
			return errInvalidFormat
		}
		if curves[elliptic.Curve(c)] {
			s.EllipticCurves = append(s.EllipticCurves, elliptic.Curve(c))
		}
	}

	return nil
}
