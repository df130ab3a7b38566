// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package signaturehash

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/pion/dtlsengine/pkg/crypto/hash"
	"github.com/pion/dtlsengine/pkg/crypto/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectSignatureScheme(t *testing.T) {
	ecdsaKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	for name, test := range map[string]struct {
		sigs     []Algorithm
		key      interface{}
		expected Algorithm
		wantErr  error
	}{
		"ECDSA": {
			sigs:     Algorithms(),
			key:      ecdsaKey,
			expected: Algorithm{hash.SHA256, signature.ECDSA},
		},
		"Ed25519": {
			sigs:     Algorithms(),
			key:      edKey,
			expected: Algorithm{hash.Ed25519, signature.Ed25519},
		},
		"Incompatible": {
			sigs:    []Algorithm{{hash.Ed25519, signature.Ed25519}},
			key:     ecdsaKey,
			wantErr: errNoAvailableSignatureSchemes,
		},
		"NotASigner": {
			sigs:    Algorithms(),
			key:     "key",
			wantErr: errInvalidSignatureAlgorithm,
		},
	} {
		test := test
		t.Run(name, func(t *testing.T) {
			alg, err := SelectSignatureScheme(test.sigs, test.key)
			assert.ErrorIs(t, err, test.wantErr)
			assert.Equal(t, test.expected, alg)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm(hash.SHA256, signature.ECDSA)
	assert.NoError(t, err)
	assert.True(t, alg.IsSupported())

	_, err = ParseAlgorithm(hash.Algorithm(2), signature.ECDSA)
	assert.ErrorIs(t, err, errInvalidHashAlgorithm)

	_, err = ParseAlgorithm(hash.SHA256, signature.Algorithm(1))
	assert.ErrorIs(t, err, errInvalidSignatureAlgorithm)
}
