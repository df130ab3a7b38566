// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"context"
	"testing"
	"time"

	"github.com/pion/dtlsengine/internal/util"
	"github.com/pion/logging"
	"github.com/pion/transport/v3/dpipe"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func TestPacketTransport(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	serverConn, err := nettest.NewLocalPacketListener("udp")
	require.NoError(t, err)
	clientConn, err := nettest.NewLocalPacketListener("udp")
	require.NoError(t, err)
	strangerConn, err := nettest.NewLocalPacketListener("udp")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, strangerConn.Close())
	}()

	server := NewPacketTransport(serverConn, nil, 0)
	client := NewPacketTransport(clientConn, serverConn.LocalAddr(), 600)
	assert.Equal(t, defaultMTU, server.SendLimit())
	assert.Equal(t, 600, client.SendLimit())

	// The server learns its peer from the first datagram.
	assert.ErrorIs(t, server.Send([]byte("early")), errNoRemoteAddr)

	buf := make([]byte, server.ReceiveLimit())
	_, err = server.Receive(buf, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoData)

	require.NoError(t, client.Send([]byte("hello")))
	n, err := server.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	ra, ok := server.(remoteAddresser)
	require.True(t, ok)
	assert.Equal(t, clientConn.LocalAddr().String(), ra.RemoteAddr().String())

	// Datagrams from anyone else are dropped.
	_, err = strangerConn.WriteTo([]byte("spoofed"), serverConn.LocalAddr())
	require.NoError(t, err)
	require.NoError(t, client.Send([]byte("second")))
	n, err = server.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "second", string(buf[:n]))

	require.NoError(t, server.Send([]byte("reply")))
	n, err = client.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "reply", string(buf[:n]))

	require.NoError(t, server.Close())
	require.NoError(t, client.Close())
}

func TestConnTransport(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	ca, cb := dpipe.Pipe()
	a, b := NewConnTransport(ca, 300), NewConnTransport(cb, 0)
	assert.Equal(t, 300, a.SendLimit())
	assert.Equal(t, defaultMTU, b.SendLimit())

	require.NoError(t, a.Send([]byte("ping")))
	buf := make([]byte, b.ReceiveLimit())
	n, err := b.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	_, err = b.Receive(buf, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoData)

	_, ok := a.(remoteAddresser)
	assert.True(t, ok)

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

func TestLoggingTransport(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	ca, cb := dpipe.Pipe()
	loggerFactory := logging.NewDefaultLoggerFactory()
	loggerFactory.DefaultLogLevel = logging.LogLevelTrace

	a := NewLoggingTransport(NewConnTransport(ca, 0), "a", loggerFactory)
	b := NewLoggingTransport(NewConnTransport(cb, 0), "b", nil)
	assert.Equal(t, defaultMTU, a.SendLimit())
	assert.Equal(t, maxDatagramSize, a.ReceiveLimit())

	ra, ok := a.(remoteAddresser)
	require.True(t, ok)
	assert.NotNil(t, ra.RemoteAddr())

	require.NoError(t, a.Send([]byte{1, 2, 3}))
	buf := make([]byte, 16)
	n, err := b.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

// A handshake over a net.Conn pipe adapted to a net.PacketConn, so the
// cookie is bound to the pipe address.
func TestHandshakeOverPacketConn(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	ca, cb := dpipe.Pipe()
	clientTransport := NewPacketTransport(util.FromConn(ca), ca.RemoteAddr(), 0)
	serverTransport := NewPacketTransport(util.FromConn(cb), nil, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	psk := []byte{0xAB, 0xC1, 0x23}
	ready := make(chan result, 1)
	done := make(chan error, 1)
	go serveEcho(ctx, serverTransport, pskConfig(TLS_ECDHE_PSK_WITH_CHACHA20_POLY1305_SHA256, psk), ready, done)

	client, err := ClientWithContext(ctx, clientTransport, pskConfig(TLS_ECDHE_PSK_WITH_CHACHA20_POLY1305_SHA256, psk))
	require.NoError(t, err)
	server := <-ready
	require.NoError(t, server.err)
	assert.Equal(t, cb.RemoteAddr().String(), server.conn.remoteAddr())

	echo(t, client, 1, 100, 1000)

	require.NoError(t, client.Close())
	assert.Equal(t, FailureClosed, FailureKindOf(<-done))
}
