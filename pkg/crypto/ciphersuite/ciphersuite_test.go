// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"testing"

	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAEADAdditionalData(t *testing.T) {
	header := &recordlayer.Header{
		ContentType:    protocol.ContentTypeApplicationData,
		Version:        protocol.Version1_2,
		Epoch:          2,
		SequenceNumber: 277,
	}

	assert.Equal(t, []byte{
		0, 2, 0, 0, 0, 0, 1, 21, 23, 254, 253, 6, 248,
	}, generateAEADAdditionalData(header, 1784))
}

type recordCipher interface {
	Encrypt(pkt *recordlayer.RecordLayer, raw []byte) ([]byte, error)
	Decrypt(header recordlayer.Header, in []byte) ([]byte, error)
	Overhead() int
}

func sealRecord(t *testing.T, c recordCipher, epoch uint16, seq uint64, plain []byte) []byte {
	t.Helper()

	hdr := recordlayer.Header{
		ContentType:    protocol.ContentTypeApplicationData,
		Version:        protocol.Version1_2,
		Epoch:          epoch,
		SequenceNumber: seq,
		ContentLen:     uint16(len(plain)),
	}
	headerRaw, err := hdr.Marshal()
	require.NoError(t, err)

	enc, err := c.Encrypt(&recordlayer.RecordLayer{Header: hdr}, append(headerRaw, plain...))
	require.NoError(t, err)

	return enc
}

func TestRecordProtection(t *testing.T) {
	key16 := []byte("0123456789abcdef")
	key32 := []byte("0123456789abcdef0123456789abcdef")
	iv4 := []byte{1, 2, 3, 4}
	iv12 := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	gcm, err := NewGCM(key16, iv4, key16, iv4)
	require.NoError(t, err)
	chacha, err := NewChaCha20Poly1305(key32, iv12, key32, iv12)
	require.NoError(t, err)

	for name, c := range map[string]recordCipher{"GCM": gcm, "ChaCha20Poly1305": chacha} {
		c := c
		t.Run(name, func(t *testing.T) {
			plain := []byte("hello world")
			enc := sealRecord(t, c, 1, 5, plain)
			assert.Len(t, enc, recordlayer.FixedHeaderSize+len(plain)+c.Overhead())

			dec, err := c.Decrypt(recordlayer.Header{}, append([]byte{}, enc...))
			require.NoError(t, err)
			assert.Equal(t, plain, dec[recordlayer.FixedHeaderSize:])

			t.Run("TamperedPayload", func(t *testing.T) {
				tampered := append([]byte{}, enc...)
				tampered[len(tampered)-1] ^= 0xff
				_, err := c.Decrypt(recordlayer.Header{}, tampered)
				assert.ErrorIs(t, err, errDecryptPacket)
			})

			t.Run("TamperedHeader", func(t *testing.T) {
				tampered := append([]byte{}, enc...)
				tampered[10] ^= 0x01 // sequence number is authenticated
				_, err := c.Decrypt(recordlayer.Header{}, tampered)
				assert.ErrorIs(t, err, errDecryptPacket)
			})

			t.Run("Truncated", func(t *testing.T) {
				_, err := c.Decrypt(recordlayer.Header{}, enc[:recordlayer.FixedHeaderSize+4])
				assert.Error(t, err)
			})
		})
	}
}
