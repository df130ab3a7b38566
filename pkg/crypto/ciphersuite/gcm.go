// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"crypto/aes"
	"crypto/cipher"
)

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

// NewGCM returns AES-GCM record protection. The write IVs are the 4 byte
// implicit part of the nonce, the other 8 bytes travel in each record.
func NewGCM(localKey, localWriteIV, remoteKey, remoteWriteIV []byte) (*AEAD, error) {
	local, err := newAESGCM(localKey)
	if err != nil {
		return nil, err
	}
	remote, err := newAESGCM(remoteKey)
	if err != nil {
		return nil, err
	}

	return newAEAD(nonceExplicit, local, remote, localWriteIV, remoteWriteIV)
}
