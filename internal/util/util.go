// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package util contains small helpers used across the repo
package util

import (
	"encoding/binary"

	"golang.org/x/crypto/cryptobyte"
)

// MaxUint48 is the largest value a 48 bit sequence number can hold.
const MaxUint48 = 0x0000FFFFFFFFFFFF

// BigEndianUint24 returns the value of a big endian uint24.
func BigEndianUint24(raw []byte) uint32 {
	if len(raw) < 3 {
		return 0
	}

	rawCopy := make([]byte, 4)
	copy(rawCopy[1:], raw)

	return binary.BigEndian.Uint32(rawCopy)
}

// PutBigEndianUint24 encodes a uint24 and places into out.
func PutBigEndianUint24(out []byte, in uint32) {
	tmp := make([]byte, 4)
	binary.BigEndian.PutUint32(tmp, in)
	copy(out, tmp[1:])
}

// BigEndianUint48 returns the value of a big endian uint48.
func BigEndianUint48(raw []byte) uint64 {
	if len(raw) < 6 {
		return 0
	}

	rawCopy := make([]byte, 8)
	copy(rawCopy[2:], raw[:6])

	return binary.BigEndian.Uint64(rawCopy)
}

// PutBigEndianUint48 encodes a uint48 and places into out.
func PutBigEndianUint48(out []byte, in uint64) {
	tmp := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp, in)
	copy(out, tmp[2:])
}

// AddUint48 appends a big-endian, 48-bit value to the byte string.
// Remove if / when https://github.com/golang/crypto/pull/265 is merged
// upstream.
func AddUint48(b *cryptobyte.Builder, v uint64) {
	b.AddBytes([]byte{byte(v >> 40), byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// ReadUint48 decodes a big-endian, 48-bit value into out and advances over
// it. It reports whether the read was successful.
func ReadUint48(s *cryptobyte.String, out *uint64) bool {
	var raw []byte
	if !s.ReadBytes(&raw, 6) {
		return false
	}
	*out = BigEndianUint48(raw)

	return true
}
