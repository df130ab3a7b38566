// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package dpipe provides an in-memory datagram pipe that can lose,
// duplicate and reorder datagrams.
package dpipe

import (
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/pion/transport/v3/deadline"
)

const queueSize = 1024

var errDatagramTooLarge = errors.New("datagram exceeds the send limit")

// Impairment describes how a pipe end mistreats the datagrams it sends.
type Impairment struct {
	// Loss is the probability a datagram is dropped.
	Loss float64
	// Duplicate is the probability a datagram is delivered twice.
	Duplicate float64
	// Reorder is the probability a datagram is held back and delivered
	// after the next one.
	Reorder float64
	// Drop, if set, drops the n-th datagram sent on this end (counting
	// from 0) when it returns true.
	Drop func(n int, datagram []byte) bool
	// Seed seeds the random source. Zero keeps the current source.
	Seed int64
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "dpipe: receive timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// Conn is one end of a pipe. It satisfies the datagram transport of the
// dtls package.
type Conn struct {
	limit int
	in    chan []byte
	peer  *Conn

	closed    chan struct{}
	closeOnce sync.Once
	deadline  *deadline.Deadline

	mu         sync.Mutex
	rnd        *rand.Rand
	impairment Impairment
	sent       int
	held       []byte
}

// Pipe returns two connected ends. limit is the largest datagram either
// end accepts.
func Pipe(limit int) (*Conn, *Conn) {
	a := newConn(limit, 1)
	b := newConn(limit, 2)
	a.peer, b.peer = b, a

	return a, b
}

func newConn(limit int, seed int64) *Conn {
	return &Conn{
		limit:    limit,
		in:       make(chan []byte, queueSize),
		closed:   make(chan struct{}),
		deadline: deadline.New(),
		rnd:      rand.New(rand.NewSource(seed)), //nolint:gosec
	}
}

// SetImpairment changes how datagrams sent from this end are delivered.
func (c *Conn) SetImpairment(i Impairment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.impairment = i
	if i.Seed != 0 {
		c.rnd = rand.New(rand.NewSource(i.Seed)) //nolint:gosec
	}
}

// Sent returns how many datagrams were sent on this end, lost ones included.
func (c *Conn) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sent
}

// Send passes a copy of buf to the other end, subject to the impairment.
func (c *Conn) Send(buf []byte) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	if len(buf) > c.limit {
		return errDatagramTooLarge
	}
	datagram := append([]byte{}, buf...)

	c.mu.Lock()
	n := c.sent
	c.sent++
	imp := c.impairment

	var out [][]byte
	switch {
	case imp.Drop != nil && imp.Drop(n, datagram):
	case imp.Loss > 0 && c.rnd.Float64() < imp.Loss:
	default:
		out = append(out, datagram)
		if imp.Duplicate > 0 && c.rnd.Float64() < imp.Duplicate {
			out = append(out, datagram)
		}
	}

	switch {
	case len(out) > 0 && c.held != nil:
		out = append(out, c.held)
		c.held = nil
	case len(out) == 1 && imp.Reorder > 0 && c.rnd.Float64() < imp.Reorder:
		c.held = datagram
		out = nil
	}
	c.mu.Unlock()

	for _, d := range out {
		c.peer.deliver(d)
	}

	return nil
}

func (c *Conn) deliver(datagram []byte) {
	select {
	case <-c.closed:
	case c.in <- datagram:
	default:
		// Queue full, the datagram is lost.
	}
}

// Receive waits up to timeout for the next datagram.
func (c *Conn) Receive(buf []byte, timeout time.Duration) (int, error) {
	c.deadline.Set(time.Now().Add(timeout))

	select {
	case <-c.closed:
		return 0, io.EOF
	case d := <-c.in:
		if len(d) > len(buf) {
			return 0, io.ErrShortBuffer
		}

		return copy(buf, d), nil
	case <-c.deadline.Done():
		return 0, timeoutError{}
	}
}

// ReceiveLimit is the largest datagram Receive returns.
func (c *Conn) ReceiveLimit() int { return c.limit }

// SendLimit is the largest datagram Send accepts.
func (c *Conn) SendLimit() int { return c.limit }

// Close closes this end. The other end stops receiving from it.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		// A zero deadline stops the pending timer.
		c.deadline.Set(time.Time{})
	})

	return nil
}
