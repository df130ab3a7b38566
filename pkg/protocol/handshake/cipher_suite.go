// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "golang.org/x/crypto/cryptobyte"

func decodeCipherSuiteIDs(buf []byte) ([]uint16, error) {
	val := cryptobyte.String(buf)
	ids, ok := readCipherSuiteIDs(&val)
	if !ok {
		return nil, errBufferTooSmall
	}

	return ids, nil
}

func readCipherSuiteIDs(val *cryptobyte.String) ([]uint16, bool) {
	var list cryptobyte.String
	if !val.ReadUint16LengthPrefixed(&list) || len(list)%2 != 0 {
		return nil, false
	}

	rtrn := make([]uint16, 0, len(list)/2)
	for !list.Empty() {
		var id uint16
		list.ReadUint16(&id)
		rtrn = append(rtrn, id)
	}

	return rtrn, true
}

func addCipherSuiteIDs(b *cryptobyte.Builder, cipherSuiteIDs []uint16) {
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, id := range cipherSuiteIDs {
			b.AddUint16(id)
		}
	})
}
