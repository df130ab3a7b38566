// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import "golang.org/x/crypto/cryptobyte"

// RenegotiationInfo allows a Client/Server to
// communicate their renegotation support. Renegotiation itself is
// never performed, only the empty initial value is exchanged.
//
// https://tools.ietf.org/html/rfc5746
type RenegotiationInfo struct {
	RenegotiatedConnection uint8
}

// TypeValue returns the extension TypeValue.
func (r RenegotiationInfo) TypeValue() TypeValue {
	return RenegotiationInfoTypeValue
}

// Marshal encodes the extension.
func (r *RenegotiationInfo) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(r.TypeValue()))
	b.AddUint16(1)
	b.AddUint8(r.RenegotiatedConnection)

	return b.Bytes()
}

// Unmarshal populates the extension from encoded data.
func (r *RenegotiationInfo) Unmarshal(data []byte) error {
	body, err := readHeader(data, r.TypeValue())
	if err != nil {
		return err
	}
	if !body.ReadUint8(&r.RenegotiatedConnection) || !body.Empty() {
		return errInvalidFormat
	}

	return nil
}
