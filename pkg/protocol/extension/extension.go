// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package extension implements the extension values in the ClientHello/ServerHello
package extension

import (
	"golang.org/x/crypto/cryptobyte"
)

// TypeValue is the 2 byte value for a TLS Extension as registered in the IANA
//
// https://www.iana.org/assignments/tls-extensiontype-values/tls-extensiontype-values.xhtml
type TypeValue uint16

// TypeValue constants.
const (
	ServerNameTypeValue                   TypeValue = 0
	SupportedEllipticCurvesTypeValue      TypeValue = 10
	SupportedPointFormatsTypeValue        TypeValue = 11
	SupportedSignatureAlgorithmsTypeValue TypeValue = 13
	UseExtendedMasterSecretTypeValue      TypeValue = 23
	RenegotiationInfoTypeValue            TypeValue = 65281
)

// Extension represents a single TLS extension.
type Extension interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
	TypeValue() TypeValue
}

// Unmarshal many extensions at once. Extensions this package does not
// know are skipped, a repeated extension type is an error.
func Unmarshal(buf []byte) ([]Extension, error) {
	switch {
	case len(buf) == 0:
		return []Extension{}, nil
	case len(buf) < 2:
		return nil, errBufferTooSmall
	}

	val := cryptobyte.String(buf)
	var body cryptobyte.String
	if !val.ReadUint16LengthPrefixed(&body) || !val.Empty() {
		return nil, errLengthMismatch
	}

	extensions := []Extension{}
	seen := map[TypeValue]struct{}{}
	for !body.Empty() {
		start := body
		var typ uint16
		var data cryptobyte.String
		if !body.ReadUint16(&typ) || !body.ReadUint16LengthPrefixed(&data) {
			return nil, errBufferTooSmall
		}
		if _, dup := seen[TypeValue(typ)]; dup {
			return nil, errDuplicateExtension
		}
		seen[TypeValue(typ)] = struct{}{}

		raw := start[:4+len(data)]
		var ext Extension
		switch TypeValue(typ) {
		case ServerNameTypeValue:
			ext = &ServerName{}
		case SupportedEllipticCurvesTypeValue:
			ext = &SupportedEllipticCurves{}
		case SupportedPointFormatsTypeValue:
			ext = &SupportedPointFormats{}
		case SupportedSignatureAlgorithmsTypeValue:
			ext = &SupportedSignatureAlgorithms{}
		case UseExtendedMasterSecretTypeValue:
			ext = &UseExtendedMasterSecret{}
		case RenegotiationInfoTypeValue:
			ext = &RenegotiationInfo{}
		default:
			continue
		}
		if err := ext.Unmarshal(raw); err != nil {
			return nil, err
		}
		extensions = append(extensions, ext)
	}

	return extensions, nil
}

// Marshal many extensions at once.
func Marshal(e []Extension) ([]byte, error) {
	var b cryptobyte.Builder
	var marshalErr error
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, ext := range e {
			raw, err := ext.Marshal()
			if err != nil {
				marshalErr = err

				return
			}
			b.AddBytes(raw)
		}
	})
	if marshalErr != nil {
		return nil, marshalErr
	}

	return b.Bytes()
}

// readHeader checks the extension type and returns its body.
func readHeader(data []byte, expected TypeValue) (cryptobyte.String, error) {
	val := cryptobyte.String(data)
	var typ uint16
	var body cryptobyte.String
	if !val.ReadUint16(&typ) {
		return nil, errBufferTooSmall
	}
	if TypeValue(typ) != expected {
		return nil, errInvalidExtensionType
	}
	if !val.ReadUint16LengthPrefixed(&body) || !val.Empty() {
		return nil, errLengthMismatch
	}

	return body, nil
}
