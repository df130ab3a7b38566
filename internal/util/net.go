// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package util

import (
	"net"
	"time"
)

// connectedPacketConn presents a connected net.Conn as a net.PacketConn
// whose only peer is the remote end of the connection.
type connectedPacketConn struct {
	conn net.Conn
}

// FromConn converts a net.Conn into a net.PacketConn. WriteTo ignores its
// address and ReadFrom always reports the connection's remote address.
func FromConn(conn net.Conn) net.PacketConn {
	return &connectedPacketConn{conn: conn}
}

func (c *connectedPacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	n, err := c.conn.Read(b)

	return n, c.conn.RemoteAddr(), err
}

func (c *connectedPacketConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	return c.conn.Write(b)
}

func (c *connectedPacketConn) Close() error { return c.conn.Close() }

func (c *connectedPacketConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

func (c *connectedPacketConn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

func (c *connectedPacketConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }

func (c *connectedPacketConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
