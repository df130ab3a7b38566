// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package recordlayer

import (
	"github.com/pion/dtlsengine/internal/util"
	"github.com/pion/dtlsengine/pkg/protocol"
)

// Header implements a TLS RecordLayer header.
type Header struct {
	ContentType    protocol.ContentType
	ContentLen     uint16
	Version        protocol.Version
	Epoch          uint16
	SequenceNumber uint64 // uint48 on the wire
}

// RecordLayer enums.
const (
	// FixedHeaderSize is the size of a DTLS 1.2 record header.
	FixedHeaderSize = 13
	// MaxSequenceNumber is the largest value a uint48 sequence number holds.
	MaxSequenceNumber = util.MaxUint48
)

// Size returns the total size of the header.
func (h *Header) Size() int {
	return FixedHeaderSize
}

// Marshal encodes a TLS RecordLayer Header to binary.
func (h *Header) Marshal() ([]byte, error) {
	if h.SequenceNumber > MaxSequenceNumber {
		return nil, errSequenceNumberOverflow
	}

	out := make([]byte, FixedHeaderSize)
	out[0] = byte(h.ContentType)
	out[1] = h.Version.Major
	out[2] = h.Version.Minor
	out[3] = byte(h.Epoch >> 8)
	out[4] = byte(h.Epoch)
	util.PutBigEndianUint48(out[5:], h.SequenceNumber)
	out[11] = byte(h.ContentLen >> 8)
	out[12] = byte(h.ContentLen)

	return out, nil
}

// Unmarshal populates a TLS RecordLayer Header from binary.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < FixedHeaderSize {
		return errBufferTooSmall
	}
	h.ContentType = protocol.ContentType(data[0])
	h.Version.Major = data[1]
	h.Version.Minor = data[2]
	h.Epoch = uint16(data[3])<<8 | uint16(data[4])
	h.SequenceNumber = util.BigEndianUint48(data[5:])
	h.ContentLen = uint16(data[11])<<8 | uint16(data[12])

	if !protocol.IsValidVersion(h.Version) {
		return errUnsupportedProtocolVersion
	}

	return nil
}
