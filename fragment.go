// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
)

// packet is one record of a flight. Its epoch selects the cipher state.
type packet struct {
	record *recordlayer.RecordLayer
}

// writePackets turns a flight into records, fragmenting handshake
// messages as needed, and packs the records into as few datagrams as
// the send limit allows.
func (c *Conn) writePackets(pkts []*packet) error {
	var rawPackets [][]byte

	for _, p := range pkts {
		if h, ok := p.record.Content.(*handshake.Handshake); ok {
			handshakeRaw, err := h.Marshal()
			if err != nil {
				return err
			}

			c.log.Tracef("[handshake:%v] -> %s (epoch: %d, seq: %d)",
				srvCliStr(c.state.isClient), h.Header.Type.String(),
				p.record.Header.Epoch, h.Header.MessageSequence)
			c.handshakeCache.push(handshakeRaw, p.record.Header.Epoch, h.Header.MessageSequence,
				h.Header.Type, c.state.isClient)

			rawHandshakePackets, err := c.processHandshakePacket(p, handshakeRaw[handshake.HeaderLength:])
			if err != nil {
				return err
			}
			rawPackets = append(rawPackets, rawHandshakePackets...)
		} else {
			rawPacket, err := c.processPacket(p)
			if err != nil {
				return err
			}
			rawPackets = append(rawPackets, rawPacket)
		}
	}
	if len(rawPackets) == 0 {
		return nil
	}

	for _, datagram := range compactRawPackets(rawPackets, c.datagramLimit()) {
		if err := c.transport.Send(datagram); err != nil {
			return err
		}
	}

	return nil
}

func (c *Conn) processPacket(p *packet) ([]byte, error) {
	content, err := p.record.Content.Marshal()
	if err != nil {
		return nil, err
	}
	p.record.Header.ContentType = p.record.Content.ContentType()

	return c.records.protect(p.record, content)
}

func (c *Conn) processHandshakePacket(p *packet, body []byte) ([][]byte, error) {
	h, _ := p.record.Content.(*handshake.Handshake)

	handshakeFragments, err := fragmentHandshake(h.Header, body, c.maxHandshakeFragment(p.record.Header.Epoch))
	if err != nil {
		return nil, err
	}

	rawPackets := make([][]byte, 0, len(handshakeFragments))
	for _, handshakeFragment := range handshakeFragments {
		record := &recordlayer.RecordLayer{
			Header: recordlayer.Header{
				Version:     p.record.Header.Version,
				ContentType: protocol.ContentTypeHandshake,
				Epoch:       p.record.Header.Epoch,
			},
			Content: h,
		}

		rawPacket, err := c.records.protect(record, handshakeFragment)
		if err != nil {
			return nil, err
		}
		rawPackets = append(rawPackets, rawPacket)
	}

	return rawPackets, nil
}

// datagramLimit is the largest datagram this Conn produces.
func (c *Conn) datagramLimit() int {
	return min(c.cfg.mtu, c.transport.SendLimit())
}

// maxPayload is the largest record content that fits a datagram in epoch.
func (c *Conn) maxPayload(epoch uint16) int {
	return c.datagramLimit() - recordlayer.FixedHeaderSize - c.records.overhead(epoch)
}

func (c *Conn) maxHandshakeFragment(epoch uint16) int {
	return max(c.maxPayload(epoch)-handshake.HeaderLength, 1)
}

// fragmentHandshake splits a handshake body into fragments of at most
// maxFragment bytes, each carrying its own handshake header. An empty
// body still produces one fragment.
func fragmentHandshake(header handshake.Header, body []byte, maxFragment int) ([][]byte, error) {
	contentFragments := splitBytes(body, maxFragment)
	if len(contentFragments) == 0 {
		contentFragments = [][]byte{
			{},
		}
	}

	fragmentedHandshakes := make([][]byte, 0, len(contentFragments))

	offset := 0
	for _, contentFragment := range contentFragments {
		contentFragmentLen := len(contentFragment)

		headerFragment := &handshake.Header{
			Type:            header.Type,
			Length:          uint32(len(body)), //nolint:gosec // uint24 checked by the handshake codec
			MessageSequence: header.MessageSequence,
			FragmentOffset:  uint32(offset),             //nolint:gosec
			FragmentLength:  uint32(contentFragmentLen), //nolint:gosec
		}

		offset += contentFragmentLen

		fragmentedHandshake, err := headerFragment.Marshal()
		if err != nil {
			return nil, err
		}

		fragmentedHandshake = append(fragmentedHandshake, contentFragment...)
		fragmentedHandshakes = append(fragmentedHandshakes, fragmentedHandshake)
	}

	return fragmentedHandshakes, nil
}

// compactRawPackets packs records into datagrams of at most limit bytes.
// A record larger than limit travels alone.
func compactRawPackets(rawPackets [][]byte, limit int) [][]byte {
	combinedRawPackets := make([][]byte, 0)
	currentCombinedRawPacket := make([]byte, 0)

	for _, rawPacket := range rawPackets {
		if len(currentCombinedRawPacket) > 0 && len(currentCombinedRawPacket)+len(rawPacket) > limit {
			combinedRawPackets = append(combinedRawPackets, currentCombinedRawPacket)
			currentCombinedRawPacket = []byte{}
		}
		currentCombinedRawPacket = append(currentCombinedRawPacket, rawPacket...)
	}

	return append(combinedRawPackets, currentCombinedRawPacket)
}

func splitBytes(bytes []byte, splitLen int) [][]byte {
	splitBytes := make([][]byte, 0)
	numBytes := len(bytes)
	for i := 0; i < numBytes; i += splitLen {
		j := i + splitLen
		if j > numBytes {
			j = numBytes
		}

		splitBytes = append(splitBytes, bytes[i:j])
	}

	return splitBytes
}
