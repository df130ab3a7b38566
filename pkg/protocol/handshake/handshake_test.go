// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandshakeMessage(t *testing.T) {
	rawHandshakeMessage := []byte{
		0x14, 0x00, 0x00, 0x03, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03,
		0x01, 0x02, 0x03,
	}
	parsedHandshake := &Handshake{
		Header: Header{
			Type:            TypeFinished,
			Length:          3,
			MessageSequence: 5,
			FragmentOffset:  0,
			FragmentLength:  3,
		},
		Message: &MessageFinished{VerifyData: []byte{0x01, 0x02, 0x03}},
	}

	h := &Handshake{}
	assert.NoError(t, h.Unmarshal(rawHandshakeMessage))
	assert.Equal(t, parsedHandshake, h)

	raw, err := h.Marshal()
	assert.NoError(t, err)
	assert.Equal(t, rawHandshakeMessage, raw)
}

func TestHandshakeRejectsFragment(t *testing.T) {
	raw := []byte{
		0x14, 0x00, 0x00, 0x03, 0x00, 0x05, 0x00, 0x00, 0x01, 0x00, 0x00, 0x02,
		0x02, 0x03,
	}
	assert.ErrorIs(t, (&Handshake{}).Unmarshal(raw), errLengthMismatch)
}

func TestHandshakeUnknownType(t *testing.T) {
	raw := []byte{0x63, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	assert.ErrorIs(t, (&Handshake{}).Unmarshal(raw), errNotImplemented)
}

func TestHandshakeMarshalUnset(t *testing.T) {
	_, err := (&Handshake{}).Marshal()
	assert.ErrorIs(t, err, errHandshakeMessageUnset)
}

func TestRandom(t *testing.T) {
	r := Random{}
	assert.NoError(t, r.Populate())

	var parsed Random
	parsed.UnmarshalFixed(r.MarshalFixed())
	assert.Equal(t, r.RandomBytes, parsed.RandomBytes)
	assert.Equal(t, r.GMTUnixTime.Unix(), parsed.GMTUnixTime.Unix())
}
