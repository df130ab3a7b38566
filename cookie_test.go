// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"testing"
	"time"

	"github.com/pion/dtlsengine/internal/net/dpipe"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieSecret(t *testing.T) {
	secret, err := NewCookieSecret(0)
	require.NoError(t, err)

	hello := testClientHello(t, nil)
	cookie, err := secret.generate(hello, "10.0.0.1:5684")
	require.NoError(t, err)
	assert.Len(t, cookie, 32)

	withCookie := *hello
	withCookie.Cookie = cookie

	ok, err := secret.verify(&withCookie, "10.0.0.1:5684")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = secret.verify(&withCookie, "10.0.0.2:5684")
	require.NoError(t, err)
	assert.False(t, ok, "cookie is bound to the source address")

	other := testClientHello(t, cookie)
	ok, err = secret.verify(other, "10.0.0.1:5684")
	require.NoError(t, err)
	assert.False(t, ok, "cookie is bound to the ClientHello")

	ok, err = secret.verify(hello, "10.0.0.1:5684")
	require.NoError(t, err)
	assert.False(t, ok, "no cookie never verifies")

	again, err := secret.generate(hello, "10.0.0.1:5684")
	require.NoError(t, err)
	assert.Equal(t, cookie, again)
}

func TestCookieSecretRotate(t *testing.T) {
	secret, err := NewCookieSecret(0)
	require.NoError(t, err)

	hello := testClientHello(t, nil)
	hello.Cookie, err = secret.generate(hello, "")
	require.NoError(t, err)

	require.NoError(t, secret.Rotate())
	ok, err := secret.verify(hello, "")
	require.NoError(t, err)
	assert.True(t, ok, "previous key still verifies")

	fresh, err := secret.generate(hello, "")
	require.NoError(t, err)
	assert.NotEqual(t, hello.Cookie, fresh)

	require.NoError(t, secret.Rotate())
	ok, err = secret.verify(hello, "")
	require.NoError(t, err)
	assert.False(t, ok, "key two rotations back is gone")
}

func TestCookieSecretRotationInterval(t *testing.T) {
	secret, err := NewCookieSecret(10 * time.Millisecond)
	require.NoError(t, err)

	hello := testClientHello(t, nil)
	hello.Cookie, err = secret.generate(hello, "")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	ok, err := secret.verify(hello, "")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	ok, err = secret.verify(hello, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

// readHelloVerifyCookie receives a datagram and returns the cookie of the
// HelloVerifyRequest in it.
func readHelloVerifyCookie(t *testing.T, c *dpipe.Conn) []byte {
	t.Helper()

	buf := make([]byte, testMTU)
	n, err := c.Receive(buf, testReceiveLimit)
	require.NoError(t, err)

	records, err := recordlayer.UnpackDatagram(buf[:n])
	require.NoError(t, err)
	require.Len(t, records, 1)

	hs := &handshake.Handshake{}
	require.NoError(t, hs.Unmarshal(records[0][recordlayer.FixedHeaderSize:]))
	hvr, ok := hs.Message.(*handshake.MessageHelloVerifyRequest)
	require.True(t, ok, "got %s", hs.Header.Type.String())

	return hvr.Cookie
}

func cookieServerConfig(secret *CookieSecret, policy CookieMismatchPolicy) *Config {
	cfg := pskConfig(TLS_PSK_WITH_AES_128_GCM_SHA256, []byte{1, 2, 3})
	cfg.CookieSecret = secret
	cfg.CookieMismatch = policy
	cfg.FlightInterval = 10 * time.Millisecond
	cfg.MaxRetransmits = 2

	return cfg
}

func TestCookieSharedBetweenServers(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	secret, err := NewCookieSecret(time.Hour)
	require.NoError(t, err)

	// The first server only hands out the cookie.
	ca, cb := dpipe.Pipe(testMTU)
	hello := testClientHello(t, nil)
	require.NoError(t, ca.Send(rawHandshakeRecord(t, 0, 0, 0, hello)))

	firstDone := make(chan error, 1)
	go func() {
		_, err := Server(cb, cookieServerConfig(secret, CookieMismatchFatal))
		firstDone <- err
	}()
	hello.Cookie = readHelloVerifyCookie(t, ca)
	require.NotEmpty(t, hello.Cookie)

	// The second server accepts it and goes on with the handshake.
	cc, cd := dpipe.Pipe(testMTU)
	require.NoError(t, cc.Send(rawHandshakeRecord(t, 0, 1, 1, hello)))

	secondDone := make(chan error, 1)
	go func() {
		_, err := Server(cd, cookieServerConfig(secret, CookieMismatchFatal))
		secondDone <- err
	}()

	buf := make([]byte, testMTU)
	n, err := cc.Receive(buf, testReceiveLimit)
	require.NoError(t, err)
	assert.True(t, containsHandshake(buf[:n], handshake.TypeServerHello))

	assert.ErrorIs(t, <-firstDone, ErrHandshakeTimeout)
	assert.ErrorIs(t, <-secondDone, ErrHandshakeTimeout)
}

func TestCookieMismatch(t *testing.T) {
	lim := test.TimeOut(time.Second * 10)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	bogus := make([]byte, 32)

	t.Run("Fatal", func(t *testing.T) {
		ca, cb := dpipe.Pipe(testMTU)
		require.NoError(t, ca.Send(rawHandshakeRecord(t, 0, 0, 0, testClientHello(t, bogus))))

		_, err := Server(cb, cookieServerConfig(nil, CookieMismatchFatal))
		assert.ErrorIs(t, err, errCookieMismatch)

		var alertErr *AlertError
		require.ErrorAs(t, err, &alertErr)
		assert.Equal(t, alert.AccessDenied, alertErr.Description)
		assert.False(t, alertErr.Remote)

		buf := make([]byte, testMTU)
		n, err := ca.Receive(buf, testReceiveLimit)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(alert.Fatal), byte(alert.AccessDenied)}, buf[n-2:n])
	})

	t.Run("Ignore", func(t *testing.T) {
		ca, cb := dpipe.Pipe(testMTU)
		require.NoError(t, ca.Send(rawHandshakeRecord(t, 0, 0, 0, testClientHello(t, bogus))))

		_, err := Server(cb, cookieServerConfig(nil, CookieMismatchIgnore))
		assert.ErrorIs(t, err, ErrHandshakeTimeout)

		cookie := readHelloVerifyCookie(t, ca)
		assert.NotEqual(t, bogus, cookie)
	})
}
