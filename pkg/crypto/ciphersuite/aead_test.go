// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type aeadConstructor func(localKey, localWriteIV, remoteKey, remoteWriteIV []byte) (*AEAD, error)

// pairFromSeeds derives two ends that talk to each other.
func pairFromSeeds(t *testing.T, newAEAD aeadConstructor, keyLen, ivLen int, seedA, seedB []byte) (a, b *AEAD) {
	t.Helper()

	hA, hB := sha256.Sum256(seedA), sha256.Sum256(seedB)
	keyA, keyB := hA[:keyLen], hB[:keyLen]
	ivA, ivB := hA[32-ivLen:], hB[32-ivLen:]

	a, err := newAEAD(keyA, ivA, keyB, ivB)
	require.NoError(t, err)
	b, err = newAEAD(keyB, ivB, keyA, ivA)
	require.NoError(t, err)

	return a, b
}

func fuzzAEAD(f *testing.F, newAEAD aeadConstructor, keyLen, ivLen int) {
	f.Helper()

	f.Add([]byte("hello"), []byte("seedA"), []byte("seedB"), uint64(1), uint16(0))
	f.Add([]byte{}, []byte("zero"), []byte("other"), uint64(0), uint16(1))
	f.Add(make([]byte, 2048), []byte("AAA"), []byte("BBB"), uint64(0x0a0b0c0d0e0f), uint16(3))

	f.Fuzz(func(t *testing.T, plain, seedA, seedB []byte, seq uint64, epoch uint16) {
		if len(plain) > 1<<14 {
			plain = plain[:1<<14]
		}
		seq &= recordlayer.MaxSequenceNumber

		a, b := pairFromSeeds(t, newAEAD, keyLen, ivLen, seedA, seedB)

		enc := sealRecord(t, a, epoch, seq, plain)
		assert.Len(t, enc, recordlayer.FixedHeaderSize+len(plain)+a.Overhead())

		dec, err := b.Decrypt(recordlayer.Header{}, enc)
		require.NoError(t, err)
		require.Equal(t, plain, dec[recordlayer.FixedHeaderSize:])

		// The sender can't open its own records.
		own := sealRecord(t, a, epoch, seq, plain)
		if string(seedA) != string(seedB) {
			_, err = a.Decrypt(recordlayer.Header{}, own)
			require.ErrorIs(t, err, errDecryptPacket)
		}
	})
}

func FuzzGCMRoundTrip(f *testing.F) {
	fuzzAEAD(f, NewGCM, 16, 4)
}

func FuzzChaCha20Poly1305RoundTrip(f *testing.F) {
	fuzzAEAD(f, NewChaCha20Poly1305, 32, 12)
}

func TestExplicitNonce(t *testing.T) {
	a, _ := pairFromSeeds(t, NewGCM, 16, 4, []byte("a"), []byte("b"))

	enc := sealRecord(t, a, 2, 277, []byte("payload"))
	explicit := enc[recordlayer.FixedHeaderSize : recordlayer.FixedHeaderSize+explicitNonceBytes]
	assert.Equal(t, uint64(2)<<48|277, binary.BigEndian.Uint64(explicit))

	c, _ := pairFromSeeds(t, NewChaCha20Poly1305, 32, 12, []byte("a"), []byte("b"))
	assert.Equal(t, 16, c.Overhead())
	assert.Equal(t, 24, a.Overhead())
}

func TestNonceXOR(t *testing.T) {
	iv := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	a, err := NewChaCha20Poly1305(make([]byte, 32), iv, make([]byte, 32), iv)
	require.NoError(t, err)

	assert.Equal(t, [aeadNonceLength]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, a.nonce(iv, 0))
	assert.Equal(t, [aeadNonceLength]byte{0, 1, 2, 3, 4 ^ 0, 5 ^ 1, 6, 7, 8, 9, 10, 11 ^ 5}, a.nonce(iv, 1<<48|5))
}

func TestInvalidIVLength(t *testing.T) {
	_, err := NewGCM(make([]byte, 16), make([]byte, 12), make([]byte, 16), make([]byte, 4))
	assert.ErrorIs(t, err, errInvalidIVLength)

	_, err = NewChaCha20Poly1305(make([]byte, 32), make([]byte, 4), make([]byte, 32), make([]byte, 4))
	assert.ErrorIs(t, err, errInvalidIVLength)

	_, err = NewGCM(make([]byte, 5), make([]byte, 4), make([]byte, 16), make([]byte, 4))
	assert.Error(t, err)
}
