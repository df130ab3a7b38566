// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package ciphersuite provides the record protection of the DTLS 1.2
// AEAD cipher suites.
package ciphersuite

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
)

const (
	aeadNonceLength    = 12
	explicitNonceBytes = 8
	fixedIVBytes       = 4
)

var (
	//nolint:err113
	errNotEnoughRoomForNonce = &protocol.TemporaryError{Err: errors.New("buffer not long enough to contain nonce")}
	//nolint:err113
	errDecryptPacket = &protocol.TemporaryError{Err: errors.New("failed to decrypt packet")}
	//nolint:err113
	errInvalidIVLength = &protocol.InternalError{Err: errors.New("write IV has the wrong length")}
)

// nonceMode selects how the per record nonce is built.
type nonceMode int

const (
	// nonceExplicit prefixes the sequence with the 4 byte implicit IV and
	// carries it in front of the ciphertext (RFC 5288).
	nonceExplicit nonceMode = iota
	// nonceXOR mixes the sequence into the 12 byte IV and sends nothing
	// extra (RFC 7905).
	nonceXOR
)

type aeadDirection struct {
	aead cipher.AEAD
	iv   []byte
}

// AEAD seals and opens DTLS 1.2 records. One value holds the keys of both
// directions: records are sealed with the local key and opened with the
// remote one.
type AEAD struct {
	local, remote aeadDirection
	mode          nonceMode
}

func newAEAD(mode nonceMode, local, remote cipher.AEAD, localIV, remoteIV []byte) (*AEAD, error) {
	ivLength := fixedIVBytes
	if mode == nonceXOR {
		ivLength = aeadNonceLength
	}
	if len(localIV) != ivLength || len(remoteIV) != ivLength {
		return nil, errInvalidIVLength
	}

	return &AEAD{
		local:  aeadDirection{aead: local, iv: append([]byte{}, localIV...)},
		remote: aeadDirection{aead: remote, iv: append([]byte{}, remoteIV...)},
		mode:   mode,
	}, nil
}

// recordSequence is the 64 bit epoch and sequence number pair that keeps
// nonces unique across epochs.
// https://www.rfc-editor.org/rfc/rfc9325#name-nonce-reuse-in-tls-12
func recordSequence(h *recordlayer.Header) uint64 {
	return uint64(h.Epoch)<<48 | (h.SequenceNumber & recordlayer.MaxSequenceNumber)
}

func (a *AEAD) nonce(iv []byte, seq uint64) [aeadNonceLength]byte {
	var nonce [aeadNonceLength]byte
	switch a.mode {
	case nonceXOR:
		copy(nonce[:], iv)
		var s [explicitNonceBytes]byte
		binary.BigEndian.PutUint64(s[:], seq)
		for i := 0; i < explicitNonceBytes; i++ {
			nonce[fixedIVBytes+i] ^= s[i]
		}
	default:
		copy(nonce[:fixedIVBytes], iv)
		binary.BigEndian.PutUint64(nonce[fixedIVBytes:], seq)
	}

	return nonce
}

func (a *AEAD) explicitLength() int {
	if a.mode == nonceExplicit {
		return explicitNonceBytes
	}

	return 0
}

// Encrypt seals the payload of a marshaled record and rewrites the length
// field of its header.
func (a *AEAD) Encrypt(pkt *recordlayer.RecordLayer, raw []byte) ([]byte, error) {
	headerSize := pkt.Header.Size()
	payload := raw[headerSize:]

	seq := recordSequence(&pkt.Header)
	nonce := a.nonce(a.local.iv, seq)
	additionalData := generateAEADAdditionalData(&pkt.Header, len(payload))

	explicit := a.explicitLength()
	out := make([]byte, headerSize+explicit, headerSize+explicit+len(payload)+a.local.aead.Overhead())
	copy(out, raw[:headerSize])
	if explicit > 0 {
		copy(out[headerSize:], nonce[fixedIVBytes:])
	}
	out = a.local.aead.Seal(out, nonce[:], payload, additionalData)

	binary.BigEndian.PutUint16(out[headerSize-2:], uint16(len(out)-headerSize)) //nolint:gosec // bounded by the record size

	return out, nil
}

// Decrypt opens a protected record. The returned slice is the header
// followed by the plaintext. ChangeCipherSpec records pass unchanged.
func (a *AEAD) Decrypt(header recordlayer.Header, in []byte) ([]byte, error) {
	if err := header.Unmarshal(in); err != nil {
		return nil, err
	}
	if header.ContentType == protocol.ContentTypeChangeCipherSpec {
		return in, nil
	}

	headerSize := header.Size()
	explicit := a.explicitLength()
	tagLength := a.remote.aead.Overhead()
	if len(in) < headerSize+explicit+tagLength {
		return nil, errNotEnoughRoomForNonce
	}

	seq := recordSequence(&header)
	if explicit > 0 {
		seq = binary.BigEndian.Uint64(in[headerSize : headerSize+explicit])
	}
	nonce := a.nonce(a.remote.iv, seq)

	ciphertext := in[headerSize+explicit:]
	additionalData := generateAEADAdditionalData(&header, len(ciphertext)-tagLength)
	plaintext, err := a.remote.aead.Open(ciphertext[:0], nonce[:], ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDecryptPacket, err) //nolint:errorlint
	}

	return append(in[:headerSize], plaintext...), nil
}

// Overhead is the number of bytes a record grows by when protected.
func (a *AEAD) Overhead() int {
	return a.explicitLength() + a.local.aead.Overhead()
}

func generateAEADAdditionalData(h *recordlayer.Header, payloadLen int) []byte {
	var additionalData [13]byte

	// The epoch overwrites the top two bytes of the 64 bit sequence.
	binary.BigEndian.PutUint64(additionalData[:], h.SequenceNumber)
	binary.BigEndian.PutUint16(additionalData[:], h.Epoch)
	additionalData[8] = byte(h.ContentType)
	additionalData[9] = h.Version.Major
	additionalData[10] = h.Version.Minor
	//nolint:gosec //G115
	binary.BigEndian.PutUint16(additionalData[len(additionalData)-2:], uint16(payloadLen))

	return additionalData[:]
}
