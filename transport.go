// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"context"
	"encoding/hex"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
)

// DatagramTransport is the unreliable packet channel a Conn runs over.
// Receive must return ErrNoData, or a net.Error whose Timeout is true,
// when no datagram arrived within timeout.
type DatagramTransport interface {
	Send(buf []byte) error
	Receive(buf []byte, timeout time.Duration) (int, error)
	// ReceiveLimit is the largest datagram Receive can return.
	ReceiveLimit() int
	// SendLimit is the largest datagram Send accepts.
	SendLimit() int
	Close() error
}

// remoteAddresser is implemented by transports that know their peer.
// The cookie is bound to the address when it is available.
type remoteAddresser interface {
	RemoteAddr() net.Addr
}

const maxDatagramSize = 1 << 14

// packetTransport adapts a net.PacketConn to a single peer.
type packetTransport struct {
	conn  net.PacketConn
	mtu   int
	lock  sync.Mutex
	raddr net.Addr
}

// NewPacketTransport returns a DatagramTransport exchanging datagrams with
// raddr over conn. When raddr is nil the first sender becomes the peer
// and datagrams from other addresses are dropped from then on.
func NewPacketTransport(conn net.PacketConn, raddr net.Addr, mtu int) DatagramTransport {
	if mtu <= 0 {
		mtu = defaultMTU
	}

	return &packetTransport{conn: conn, raddr: raddr, mtu: mtu}
}

func (p *packetTransport) RemoteAddr() net.Addr {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.raddr
}

func (p *packetTransport) Send(buf []byte) error {
	raddr := p.RemoteAddr()
	if raddr == nil {
		return errNoRemoteAddr
	}
	_, err := p.conn.WriteTo(buf, raddr)

	return err
}

func (p *packetTransport) Receive(buf []byte, timeout time.Duration) (int, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	for {
		n, addr, err := p.conn.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
				return 0, ErrNoData
			}

			return 0, err
		}

		p.lock.Lock()
		if p.raddr == nil {
			p.raddr = addr
		}
		match := p.raddr.String() == addr.String()
		p.lock.Unlock()

		if match {
			return n, nil
		}
	}
}

func (p *packetTransport) ReceiveLimit() int { return maxDatagramSize }

func (p *packetTransport) SendLimit() int { return p.mtu }

func (p *packetTransport) Close() error { return p.conn.Close() }

// connTransport adapts a connected, message oriented net.Conn.
type connTransport struct {
	conn net.Conn
	mtu  int
}

// NewConnTransport returns a DatagramTransport over a connected datagram
// net.Conn such as a connected UDP socket or an in-memory pipe.
func NewConnTransport(conn net.Conn, mtu int) DatagramTransport {
	if mtu <= 0 {
		mtu = defaultMTU
	}

	return &connTransport{conn: conn, mtu: mtu}
}

func (c *connTransport) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *connTransport) Send(buf []byte) error {
	_, err := c.conn.Write(buf)

	return err
}

func (c *connTransport) Receive(buf []byte, timeout time.Duration) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(buf)
	if err != nil && (isTimeout(err) || errors.Is(err, context.DeadlineExceeded)) {
		return 0, ErrNoData
	}

	return n, err
}

func (c *connTransport) ReceiveLimit() int { return maxDatagramSize }

func (c *connTransport) SendLimit() int { return c.mtu }

func (c *connTransport) Close() error { return c.conn.Close() }

// loggingTransport traces every datagram passing through another transport.
type loggingTransport struct {
	next DatagramTransport
	name string
	log  logging.LeveledLogger
}

// NewLoggingTransport wraps next and logs each sent and received datagram
// at Trace level, prefixed with name.
func NewLoggingTransport(next DatagramTransport, name string, loggerFactory logging.LoggerFactory) DatagramTransport {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &loggingTransport{next: next, name: name, log: loggerFactory.NewLogger("dtls-transport")}
}

func (l *loggingTransport) RemoteAddr() net.Addr {
	if ra, ok := l.next.(remoteAddresser); ok {
		return ra.RemoteAddr()
	}

	return nil
}

func (l *loggingTransport) Send(buf []byte) error {
	l.log.Tracef("[%s] sent %d bytes: %s", l.name, len(buf), hex.EncodeToString(buf))

	return l.next.Send(buf)
}

func (l *loggingTransport) Receive(buf []byte, timeout time.Duration) (int, error) {
	n, err := l.next.Receive(buf, timeout)
	if err == nil {
		l.log.Tracef("[%s] received %d bytes: %s", l.name, n, hex.EncodeToString(buf[:n]))
	}

	return n, err
}

func (l *loggingTransport) ReceiveLimit() int { return l.next.ReceiveLimit() }

func (l *loggingTransport) SendLimit() int { return l.next.SendLimit() }

func (l *loggingTransport) Close() error {
	l.log.Tracef("[%s] closed", l.name)

	return l.next.Close()
}
