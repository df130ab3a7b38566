// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import "golang.org/x/crypto/cryptobyte"

// UseExtendedMasterSecret defines a TLS extension that contextually binds the
// master secret to a log of the full handshake that computes it, thus
// preventing MITM attacks.
//
// https://tools.ietf.org/html/rfc7627
type UseExtendedMasterSecret struct {
	Supported bool
}

// TypeValue returns the extension TypeValue.
func (u UseExtendedMasterSecret) TypeValue() TypeValue {
	return UseExtendedMasterSecretTypeValue
}

// Marshal encodes the extension.
func (u *UseExtendedMasterSecret) Marshal() ([]byte, error) {
	if !u.Supported {
		return []byte{}, nil
	}

	var b cryptobyte.Builder
	b.AddUint16(uint16(u.TypeValue()))
	b.AddUint16(0)

	return b.Bytes()
}

// Unmarshal populates the extension from encoded data.
func (u *UseExtendedMasterSecret) Unmarshal(data []byte) error {
	body, err := readHeader(data, u.TypeValue())
	if err != nil {
		return err
	}
	if !body.Empty() {
		return errInvalidFormat
	}
	u.Supported = true

	return nil
}
