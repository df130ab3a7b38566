// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

const cookieKeyLength = 32

type cookieKeys struct {
	current   []byte
	previous  []byte
	rotatedAt time.Time
}

// CookieSecret keys the stateless HelloVerifyRequest cookie. A cookie
// issued under the current key or the one before it verifies, so a client
// that was challenged right before a rotation still gets through.
// One CookieSecret may be shared by any number of servers.
type CookieSecret struct {
	// RotationInterval replaces the key when it is older than the
	// interval. Zero disables time based rotation.
	RotationInterval time.Duration

	keys atomic.Pointer[cookieKeys]
	mu   sync.Mutex
}

// NewCookieSecret returns a CookieSecret with a fresh random key.
func NewCookieSecret(rotationInterval time.Duration) (*CookieSecret, error) {
	key, err := newCookieKey()
	if err != nil {
		return nil, err
	}

	c := &CookieSecret{RotationInterval: rotationInterval}
	c.keys.Store(&cookieKeys{current: key, rotatedAt: time.Now()})

	return c, nil
}

func newCookieKey() ([]byte, error) {
	key := make([]byte, cookieKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	return key, nil
}

// Rotate replaces the current key. Cookies issued under the replaced key
// keep verifying until the next rotation.
func (c *CookieSecret) Rotate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rotateLocked()
}

func (c *CookieSecret) rotateLocked() error {
	key, err := newCookieKey()
	if err != nil {
		return err
	}

	next := &cookieKeys{current: key, rotatedAt: time.Now()}
	if prev := c.keys.Load(); prev != nil {
		next.previous = prev.current
	}
	c.keys.Store(next)

	return nil
}

// snapshot returns the keys in use, rotating first when they expired.
func (c *CookieSecret) snapshot() (*cookieKeys, error) {
	keys := c.keys.Load()
	if keys != nil && (c.RotationInterval <= 0 || time.Since(keys.rotatedAt) < c.RotationInterval) {
		return keys, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have rotated while we waited.
	keys = c.keys.Load()
	if keys != nil && (c.RotationInterval <= 0 || time.Since(keys.rotatedAt) < c.RotationInterval) {
		return keys, nil
	}
	if err := c.rotateLocked(); err != nil {
		return nil, err
	}

	return c.keys.Load(), nil
}

// generate derives the cookie for a ClientHello. remoteAddr is empty
// when the transport can't tell who sent the datagram.
func (c *CookieSecret) generate(h *handshake.MessageClientHello, remoteAddr string) ([]byte, error) {
	keys, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	return cookieMAC(keys.current, h, remoteAddr), nil
}

// verify reports whether the ClientHello carries a cookie this secret issued.
func (c *CookieSecret) verify(h *handshake.MessageClientHello, remoteAddr string) (bool, error) {
	if len(h.Cookie) == 0 {
		return false, nil
	}

	keys, err := c.snapshot()
	if err != nil {
		return false, err
	}

	for _, key := range [][]byte{keys.current, keys.previous} {
		if key == nil {
			continue
		}
		if hmac.Equal(h.Cookie, cookieMAC(key, h, remoteAddr)) {
			return true, nil
		}
	}

	return false, nil
}

// cookieMAC binds the cookie to the fields of the ClientHello that stay
// the same when it is repeated with the cookie.
func cookieMAC(key []byte, h *handshake.MessageClientHello, remoteAddr string) []byte {
	mac := hmac.New(sha256.New, key)

	random := h.Random.MarshalFixed()
	_, _ = mac.Write(random[:])
	writeLengthPrefixed(mac, h.SessionID)

	suites := make([]byte, 2*len(h.CipherSuiteIDs))
	for i, id := range h.CipherSuiteIDs {
		binary.BigEndian.PutUint16(suites[2*i:], id)
	}
	writeLengthPrefixed(mac, suites)

	methods := make([]byte, 0, len(h.CompressionMethods))
	for _, m := range h.CompressionMethods {
		methods = append(methods, byte(m.ID))
	}
	writeLengthPrefixed(mac, methods)
	writeLengthPrefixed(mac, []byte(remoteAddr))

	return mac.Sum(nil)
}

func writeLengthPrefixed(w io.Writer, b []byte) {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(b))) //nolint:gosec // hello fields are bounded by uint16 prefixes
	_, _ = w.Write(l[:])
	_, _ = w.Write(b)
}
