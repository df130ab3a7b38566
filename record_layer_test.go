// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/rand"
	"testing"

	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecordLayer() *recordLayer {
	return newRecordLayer(defaultReplayProtectionWindow, logging.NewDefaultLoggerFactory().NewLogger("test"))
}

// cipherStatePair derives the client and server cipher states of one
// random session.
func cipherStatePair(t *testing.T, id CipherSuiteID) (client, server CipherState) {
	t.Helper()

	master := make([]byte, 48)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	for _, b := range [][]byte{master, clientRandom, serverRandom} {
		_, err := rand.Read(b)
		require.NoError(t, err)
	}

	suite := cipherSuiteForID(id)
	require.NotNil(t, suite)
	client, err := suite.NewCipherState(master, clientRandom, serverRandom, true)
	require.NoError(t, err)
	server, err = suite.NewCipherState(master, clientRandom, serverRandom, false)
	require.NoError(t, err)

	return client, server
}

func seal(t *testing.T, r *recordLayer, epoch uint16, typ protocol.ContentType, content []byte) []byte {
	t.Helper()

	raw, err := r.protect(&recordlayer.RecordLayer{
		Header: recordlayer.Header{ContentType: typ, Epoch: epoch},
	}, content)
	require.NoError(t, err)

	return raw
}

func TestRecordLayerPlaintext(t *testing.T) {
	sender, receiver := newTestRecordLayer(), newTestRecordLayer()

	first := seal(t, sender, 0, protocol.ContentTypeHandshake, []byte("first"))
	second := seal(t, sender, 0, protocol.ContentTypeHandshake, []byte("second"))

	// Reordered records inside the window are both accepted.
	header, content, status := receiver.unprotect(second)
	require.Equal(t, recordAccepted, status)
	assert.Equal(t, uint64(1), header.SequenceNumber)
	assert.Equal(t, []byte("second"), content)

	_, content, status = receiver.unprotect(first)
	require.Equal(t, recordAccepted, status)
	assert.Equal(t, []byte("first"), content)

	_, _, status = receiver.unprotect(first)
	assert.Equal(t, recordDropped, status, "replayed record")

	_, _, status = receiver.unprotect(first[:len(first)-1])
	assert.Equal(t, recordDropped, status, "length mismatch")

	_, _, status = receiver.unprotect(first[:5])
	assert.Equal(t, recordDropped, status, "truncated header")
}

func TestRecordLayerEpochs(t *testing.T) {
	for _, id := range []CipherSuiteID{
		TLS_PSK_WITH_AES_128_GCM_SHA256,
		TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	} {
		id := id
		t.Run(id.String(), func(t *testing.T) {
			clientCS, serverCS := cipherStatePair(t, id)
			client, server := newTestRecordLayer(), newTestRecordLayer()
			client.setPending(clientCS)
			server.setPending(serverCS)

			assert.Equal(t, 0, client.overhead(0))
			assert.Equal(t, clientCS.Overhead(), client.overhead(1))

			oldEpoch := seal(t, client, 0, protocol.ContentTypeHandshake, []byte("late"))
			sealed := seal(t, client, 1, protocol.ContentTypeApplicationData, []byte("secret"))
			assert.NotContains(t, string(sealed), "secret")
			assert.Len(t, sealed, recordlayer.FixedHeaderSize+len("secret")+clientCS.Overhead())

			// Next epoch records wait for the cipher state to be activated.
			_, _, status := server.unprotect(sealed)
			require.Equal(t, recordQueued, status)

			require.NoError(t, server.activateRead())
			queued := server.takeQueue()
			require.Len(t, queued, 1)
			assert.Empty(t, server.takeQueue())

			// The previous epoch stays readable until the new one authenticates.
			_, content, status := server.unprotect(oldEpoch)
			require.Equal(t, recordAccepted, status)
			assert.Equal(t, []byte("late"), content)

			header, content, status := server.unprotect(queued[0])
			require.Equal(t, recordAccepted, status)
			assert.Equal(t, uint16(1), header.Epoch)
			assert.Equal(t, []byte("secret"), content)

			stale := seal(t, client, 0, protocol.ContentTypeHandshake, []byte("stale"))
			_, _, status = server.unprotect(stale)
			assert.Equal(t, recordDropped, status)
		})
	}
}

func TestRecordLayerTampered(t *testing.T) {
	clientCS, serverCS := cipherStatePair(t, TLS_PSK_WITH_AES_128_GCM_SHA256)
	client, server := newTestRecordLayer(), newTestRecordLayer()
	client.setPending(clientCS)
	server.setPending(serverCS)
	require.NoError(t, server.activateRead())

	sealed := seal(t, client, 1, protocol.ContentTypeApplicationData, []byte("payload"))
	tampered := append([]byte{}, sealed...)
	tampered[len(tampered)-1] ^= 0xff

	_, _, status := server.unprotect(tampered)
	assert.Equal(t, recordDropped, status)

	// A forgery does not consume the sequence number.
	_, content, status := server.unprotect(sealed)
	require.Equal(t, recordAccepted, status)
	assert.Equal(t, []byte("payload"), content)
}

func TestRecordLayerChangeCipherSpecWithoutPending(t *testing.T) {
	client, server := newTestRecordLayer(), newTestRecordLayer()

	ccs := seal(t, client, 0, protocol.ContentTypeChangeCipherSpec, []byte{0x01})
	_, _, status := server.unprotect(ccs)
	require.Equal(t, recordQueued, status)

	_, serverCS := cipherStatePair(t, TLS_PSK_WITH_AES_128_GCM_SHA256)
	server.setPending(serverCS)
	queued := server.takeQueue()
	require.Len(t, queued, 1)

	header, _, status := server.unprotect(queued[0])
	assert.Equal(t, recordAccepted, status)
	assert.Equal(t, protocol.ContentTypeChangeCipherSpec, header.ContentType)
}

func TestRecordLayerQueueBound(t *testing.T) {
	clientCS, _ := cipherStatePair(t, TLS_PSK_WITH_AES_128_GCM_SHA256)
	client, server := newTestRecordLayer(), newTestRecordLayer()
	client.setPending(clientCS)

	for i := 0; i < maxQueuedRecords+10; i++ {
		_, _, status := server.unprotect(seal(t, client, 1, protocol.ContentTypeApplicationData, []byte{byte(i)}))
		assert.Equal(t, recordQueued, status)
	}
	assert.Len(t, server.takeQueue(), maxQueuedRecords)

	// Two epochs ahead is never queued.
	far := seal(t, client, 1, protocol.ContentTypeApplicationData, []byte{1})
	far[3], far[4] = 0, 2
	_, _, status := server.unprotect(far)
	assert.Equal(t, recordDropped, status)
}

func TestRecordLayerQueueForgeries(t *testing.T) {
	clientCS, serverCS := cipherStatePair(t, TLS_PSK_WITH_AES_128_GCM_SHA256)
	client := newTestRecordLayer()
	client.setPending(clientCS)
	genuine := seal(t, client, 1, protocol.ContentTypeHandshake, []byte("finished"))
	forge := func(i int) []byte {
		f := append([]byte{}, genuine...)
		f[len(f)-1] ^= byte(i + 1)

		return f
	}

	t.Run("PendingKnown", func(t *testing.T) {
		server := newTestRecordLayer()
		server.setPending(serverCS)

		_, _, status := server.unprotect(forge(0))
		assert.Equal(t, recordDropped, status)
		_, _, status = server.unprotect(genuine)
		assert.Equal(t, recordQueued, status)
		_, _, status = server.unprotect(genuine)
		assert.Equal(t, recordDropped, status, "duplicate")
		assert.Len(t, server.takeQueue(), 1)
	})

	t.Run("PendingLater", func(t *testing.T) {
		server := newTestRecordLayer()
		for i := 0; i < maxQueuedRecords; i++ {
			_, _, status := server.unprotect(forge(i))
			require.Equal(t, recordQueued, status)
		}

		// A full queue of unverified records still takes the genuine one.
		_, _, status := server.unprotect(genuine)
		require.Equal(t, recordQueued, status)

		server.setPending(serverCS)
		require.NoError(t, server.activateRead())
		queued := server.takeQueue()
		require.Len(t, queued, 1)

		_, content, status := server.unprotect(queued[0])
		require.Equal(t, recordAccepted, status)
		assert.Equal(t, []byte("finished"), content)
	})
}

func TestRecordLayerWriteState(t *testing.T) {
	clientCS, _ := cipherStatePair(t, TLS_PSK_WITH_AES_128_GCM_SHA256)
	r := newTestRecordLayer()

	_, err := r.protect(&recordlayer.RecordLayer{Header: recordlayer.Header{Epoch: 1}}, nil)
	assert.ErrorIs(t, err, errNoPendingCipherState)

	r.setPending(clientCS)
	assert.True(t, r.hasPending())
	r.advanceWrite(1)
	assert.Equal(t, uint16(1), r.writeEpoch)
	r.advanceWrite(0)
	assert.Equal(t, uint16(1), r.writeEpoch, "write epoch never goes back")

	r.writeStates[1].seq = recordlayer.MaxSequenceNumber + 1
	_, err = r.protect(&recordlayer.RecordLayer{Header: recordlayer.Header{Epoch: 1}}, nil)
	assert.ErrorIs(t, err, errSequenceNumberOverflow)

	assert.ErrorIs(t, newTestRecordLayer().activateRead(), errNoPendingCipherState)
}
