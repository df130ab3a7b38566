// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package hash

import (
	"crypto"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashAlgorithm_Digest(t *testing.T) {
	want := sha256.Sum256([]byte("pion"))
	assert.Equal(t, want[:], SHA256.Digest([]byte("pion")))
	assert.Len(t, SHA384.Digest([]byte("pion")), 48)
	assert.Nil(t, None.Digest([]byte("pion")))
}

func TestHashAlgorithm_CryptoHash(t *testing.T) {
	assert.Equal(t, crypto.SHA256, SHA256.CryptoHash())
	assert.Equal(t, crypto.SHA384, SHA384.CryptoHash())
	assert.Equal(t, crypto.Hash(0), Ed25519.CryptoHash())
}
