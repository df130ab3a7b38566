// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"golang.org/x/crypto/chacha20poly1305"
)

// NewChaCha20Poly1305 returns ChaCha20-Poly1305 record protection. The
// write IVs are 12 bytes and the nonce is the IV XORed with the padded
// epoch and sequence number, so records carry no explicit nonce.
func NewChaCha20Poly1305(localKey, localWriteIV, remoteKey, remoteWriteIV []byte) (*AEAD, error) {
	local, err := chacha20poly1305.New(localKey)
	if err != nil {
		return nil, err
	}
	remote, err := chacha20poly1305.New(remoteKey)
	if err != nil {
		return nil, err
	}

	return newAEAD(nonceXOR, local, remote, localWriteIV, remoteWriteIV)
}
