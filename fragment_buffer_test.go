// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"bytes"
	"testing"

	"github.com/pion/dtlsengine/pkg/protocol/handshake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFragments splits a handshake message into fragments of at most size bytes.
func testFragments(t *testing.T, typ handshake.Type, seq uint16, body []byte, size int) [][]byte {
	t.Helper()

	frags, err := fragmentHandshake(handshake.Header{Type: typ, MessageSequence: seq}, body, size)
	require.NoError(t, err)

	return frags
}

func unfragmented(t *testing.T, typ handshake.Type, seq uint16, body []byte) []byte {
	t.Helper()

	return testFragments(t, typ, seq, body, len(body)+1)[0]
}

func TestFragmentBufferSingleMessage(t *testing.T) {
	f := newFragmentBuffer()
	body := bytes.Repeat([]byte{0xAB}, 100)
	msg := unfragmented(t, handshake.TypeClientHello, 0, body)

	repeated, err := f.push(0, msg)
	require.NoError(t, err)
	assert.Equal(t, -1, repeated)

	out, epoch := f.pop()
	assert.Equal(t, msg, out)
	assert.Equal(t, uint16(0), epoch)

	out, _ = f.pop()
	assert.Nil(t, out)

	// The same message again is a retransmission.
	repeated, err = f.push(0, msg)
	require.NoError(t, err)
	assert.Equal(t, 0, repeated)
	out, _ = f.pop()
	assert.Nil(t, out)
}

func TestFragmentBufferReassembly(t *testing.T) {
	body := make([]byte, 250)
	for i := range body {
		body[i] = byte(i)
	}
	whole := unfragmented(t, handshake.TypeCertificate, 0, body)

	for _, test := range []struct {
		Name  string
		Order func(frags [][]byte) [][]byte
	}{
		{
			Name:  "InOrder",
			Order: func(frags [][]byte) [][]byte { return frags },
		},
		{
			Name: "Reversed",
			Order: func(frags [][]byte) [][]byte {
				out := make([][]byte, 0, len(frags))
				for i := len(frags) - 1; i >= 0; i-- {
					out = append(out, frags[i])
				}

				return out
			},
		},
		{
			Name: "Duplicated",
			Order: func(frags [][]byte) [][]byte {
				out := [][]byte{}
				for _, f := range frags {
					out = append(out, f, f)
				}

				return out
			},
		},
		{
			Name: "Overlapping",
			Order: func(frags [][]byte) [][]byte {
				// Fragments of another size overlap the first split.
				other, err := fragmentHandshake(handshake.Header{Type: handshake.TypeCertificate}, body, 70)
				if err != nil {
					panic(err)
				}

				return append([][]byte{frags[1], other[0], other[2]}, frags...)
			},
		},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			f := newFragmentBuffer()
			frags := testFragments(t, handshake.TypeCertificate, 0, body, 40)
			require.Greater(t, len(frags), 5)

			ordered := test.Order(frags)
			for i, frag := range ordered {
				_, err := f.push(0, frag)
				require.NoError(t, err)

				out, _ := f.pop()
				if i < len(ordered)-1 && out == nil {
					continue
				}
				require.Equal(t, whole, out)

				return
			}
			t.Fatal("message never completed")
		})
	}
}

func TestFragmentBufferRecordWithSeveralMessages(t *testing.T) {
	f := newFragmentBuffer()

	var record []byte
	record = append(record, unfragmented(t, handshake.TypeServerHello, 0, []byte{1, 2, 3})...)
	record = append(record, unfragmented(t, handshake.TypeCertificate, 1, []byte{4, 5})...)
	record = append(record, unfragmented(t, handshake.TypeServerHelloDone, 2, nil)...)

	_, err := f.push(0, record)
	require.NoError(t, err)

	for _, typ := range []handshake.Type{handshake.TypeServerHello, handshake.TypeCertificate, handshake.TypeServerHelloDone} {
		out, _ := f.pop()
		require.NotNil(t, out)
		assert.Equal(t, byte(typ), out[0])
	}
}

func TestFragmentBufferRejects(t *testing.T) {
	t.Run("Truncated", func(t *testing.T) {
		f := newFragmentBuffer()
		msg := unfragmented(t, handshake.TypeClientHello, 0, []byte{1, 2, 3, 4})

		_, err := f.push(0, msg[:len(msg)-1])
		assert.ErrorIs(t, err, errBufferTooSmall)

		_, err = f.push(0, msg[:4])
		assert.Error(t, err)
	})

	t.Run("TooFarAhead", func(t *testing.T) {
		f := newFragmentBuffer()
		_, err := f.push(0, unfragmented(t, handshake.TypeFinished, fragmentBufferMaxMessages, []byte{1}))
		require.NoError(t, err)
		assert.Empty(t, f.cache)
	})

	t.Run("InconsistentLength", func(t *testing.T) {
		f := newFragmentBuffer()
		first := testFragments(t, handshake.TypeCertificate, 0, make([]byte, 100), 50)
		other := testFragments(t, handshake.TypeCertificate, 0, make([]byte, 120), 50)

		_, err := f.push(0, first[0])
		require.NoError(t, err)
		_, err = f.push(0, other[1])
		require.NoError(t, err)
		out, _ := f.pop()
		assert.Nil(t, out)

		_, err = f.push(0, first[1])
		require.NoError(t, err)
		out, _ = f.pop()
		assert.NotNil(t, out)
	})

	t.Run("MixedEpochs", func(t *testing.T) {
		f := newFragmentBuffer()
		frags := testFragments(t, handshake.TypeFinished, 0, make([]byte, 24), 12)

		_, err := f.push(0, frags[0])
		require.NoError(t, err)
		_, err = f.push(1, frags[1])
		require.NoError(t, err)
		out, _ := f.pop()
		assert.Nil(t, out)
	})

	t.Run("FragmentPastEnd", func(t *testing.T) {
		f := newFragmentBuffer()
		hdr := handshake.Header{
			Type:           handshake.TypeCertificate,
			Length:         10,
			FragmentOffset: 8,
			FragmentLength: 4,
		}
		raw, err := hdr.Marshal()
		require.NoError(t, err)

		_, err = f.push(0, append(raw, 1, 2, 3, 4))
		require.NoError(t, err)
		assert.Empty(t, f.cache)
	})
}

func TestFragmentBufferRepeated(t *testing.T) {
	f := newFragmentBuffer()

	var flight []byte
	for seq := uint16(0); seq < 3; seq++ {
		flight = append(flight, unfragmented(t, handshake.TypeCertificate, seq, []byte{byte(seq)})...)
	}
	_, err := f.push(0, flight)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		out, _ := f.pop()
		require.NotNil(t, out)
	}

	repeated, err := f.push(0, flight)
	require.NoError(t, err)
	assert.Equal(t, 0, repeated, "lowest repeated message_seq")

	// A later fragment of an old message does not count.
	frags := testFragments(t, handshake.TypeCertificate, 1, make([]byte, 20), 10)
	repeated, err = f.push(0, frags[1])
	require.NoError(t, err)
	assert.Equal(t, -1, repeated)
}

func TestFragmentBufferFollowClientHello(t *testing.T) {
	f := newFragmentBuffer()
	f.followClientHello = true

	// A ClientHello answering a HelloVerifyRequest from another server.
	hello := unfragmented(t, handshake.TypeClientHello, 1, []byte{9, 9})
	_, err := f.push(0, hello)
	require.NoError(t, err)

	out, _ := f.pop()
	assert.Equal(t, hello, out)
	assert.Equal(t, uint16(2), f.currentMessageSequenceNumber)

	f.followClientHello = false
	_, err = f.push(0, unfragmented(t, handshake.TypeClientHello, 7, []byte{1}))
	require.NoError(t, err)
	out, _ = f.pop()
	assert.Nil(t, out)
}

func TestFragmentBufferEviction(t *testing.T) {
	f := newFragmentBuffer()

	// Fill the buffer with one fragment of many incomplete messages.
	big := make([]byte, fragmentBufferMaxSize/4)
	for seq := uint16(1); seq <= 4; seq++ {
		frags := testFragments(t, handshake.TypeCertificate, seq, append(big, 0), len(big))
		_, err := f.push(0, frags[0])
		require.NoError(t, err)
	}
	assert.Len(t, f.cache, 4)

	// Storing the next expected message evicts the stalest partial one.
	msg := unfragmented(t, handshake.TypeClientHello, 0, make([]byte, 64))
	_, err := f.push(0, msg)
	require.NoError(t, err)
	assert.LessOrEqual(t, f.totalBufferSize, fragmentBufferMaxSize)
	_, ok := f.cache[1]
	assert.False(t, ok, "oldest partial message evicted")

	out, _ := f.pop()
	assert.Equal(t, msg, out)
}
