// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"sort"

	"github.com/pion/dtlsengine/pkg/protocol/handshake"
)

const (
	// 2 megabytes.
	fragmentBufferMaxSize     = 2000000
	fragmentBufferMaxCount    = 1000
	fragmentBufferMaxMessages = 32
)

type fragment struct {
	offset uint32
	data   []byte
}

type fragments struct {
	// non-overlapping chunks, sorted by offset.
	frags []*fragment

	receivedLength  uint32 // union length of covered bytes (no double-counting)
	handshakeLength uint32

	epoch      uint16
	baseHeader handshake.Header // used to rebuild header on pop()

	// lastProgress is the buffer clock value when new bytes were last stored.
	lastProgress uint64
}

type fragmentBuffer struct {
	// map of MessageSequenceNumbers that hold slices of fragments
	cache map[uint16]*fragments

	currentMessageSequenceNumber uint16

	// followClientHello lets a ClientHello of any sequence number become
	// the next message, so a stateless server can pick up a client that
	// already sent a HelloVerifyRequest answer.
	followClientHello bool

	totalBufferSize    int // total stored payload bytes across all messages (no overlaps)
	totalFragmentCount int // total stored chunks across all messages
	clock              uint64
}

func newFragmentBuffer() *fragmentBuffer {
	return &fragmentBuffer{cache: map[uint16]*fragments{}}
}

// scanUncovered iterates uncovered sub-ranges of [start,end) given existing non-overlapping,
// sorted fragments. visit is called with [uStart,uEnd) in ascending order.
func (m *fragments) scanUncovered(start, end uint32, visit func(uStart, uEnd uint32)) {
	if start >= end {
		return
	}

	// find first fragment with end > start.
	i := sort.Search(len(m.frags), func(i int) bool {
		ex := m.frags[i]
		exStart := ex.offset
		exEnd := exStart + uint32(len(ex.data)) //nolint:gosec // bounded by caps

		return exEnd > start
	})

	pos := start
	for ; i < len(m.frags); i++ {
		ex := m.frags[i]
		exStart := ex.offset
		if exStart >= end {
			break
		}
		exEnd := exStart + uint32(len(ex.data)) //nolint:gosec // bounded by caps

		if exStart > pos {
			uStart := pos
			uEnd := min(exStart, end)
			if uEnd > uStart {
				visit(uStart, uEnd)
			}
		}

		if exEnd > pos {
			pos = exEnd
			if pos >= end {
				return
			}
		}
	}

	if pos < end {
		visit(pos, end)
	}
}

// insertMany merges a sorted list of new fragments into the existing sorted list.
func (m *fragments) insertMany(newFrags []*fragment) {
	if len(newFrags) == 0 {
		return
	}

	if len(m.frags) == 0 {
		m.frags = newFrags

		return
	}

	merged := make([]*fragment, 0, len(m.frags)+len(newFrags))
	i := 0 //nolint:varnamelen
	j := 0 //nolint:varnamelen

	for i < len(m.frags) && j < len(newFrags) {
		if m.frags[i].offset < newFrags[j].offset {
			merged = append(merged, m.frags[i])
			i++
		} else {
			merged = append(merged, newFrags[j])
			j++
		}
	}

	if i < len(m.frags) {
		merged = append(merged, m.frags[i:]...)
	}

	if j < len(newFrags) {
		merged = append(merged, newFrags[j:]...)
	}

	m.frags = merged
}

// resync drops every partial message and expects seq next.
func (f *fragmentBuffer) resync(seq uint16) {
	f.cache = map[uint16]*fragments{}
	f.totalBufferSize = 0
	f.totalFragmentCount = 0
	f.currentMessageSequenceNumber = seq
}

// evict frees the least recently progressed message other than keep.
func (f *fragmentBuffer) evict(keep uint16) bool {
	var (
		victim uint16
		oldest *fragments
	)
	for seq, frags := range f.cache {
		if seq == keep {
			continue
		}
		if oldest == nil || frags.lastProgress < oldest.lastProgress {
			victim, oldest = seq, frags
		}
	}
	if oldest == nil {
		return false
	}

	f.totalBufferSize -= int(oldest.receivedLength)
	f.totalFragmentCount -= len(oldest.frags)
	delete(f.cache, victim)

	return true
}

// push stores the handshake fragments of one authenticated record.
// repeated is the lowest message_seq of a message that was already
// delivered, which means the peer is resending, or -1. An error means the
// record was malformed and was dropped as a whole.
func (f *fragmentBuffer) push(epoch uint16, buf []byte) (repeated int, err error) { //nolint:cyclop,gocognit
	repeated = -1

	// enforce "same flight" constraint inside a single record by requiring
	// accepted message_seq values to remain contiguous.
	var flightMin, flightMax uint16
	var flightSet bool

	for len(buf) != 0 {
		var hsHdr handshake.Header
		if err := hsHdr.Unmarshal(buf); err != nil {
			return repeated, err
		}

		fragLen := hsHdr.FragmentLength
		end := int(handshake.HeaderLength + fragLen)
		if end > len(buf) {
			return repeated, errBufferTooSmall
		}

		if f.followClientHello && hsHdr.Type == handshake.TypeClientHello &&
			hsHdr.MessageSequence != f.currentMessageSequenceNumber {
			if _, ok := f.cache[hsHdr.MessageSequence]; !ok {
				f.resync(hsHdr.MessageSequence)
			}
		}

		// a record may contain multiple handshake messages.
		if hsHdr.FragmentOffset == 0 && hsHdr.MessageSequence < f.currentMessageSequenceNumber &&
			(repeated < 0 || int(hsHdr.MessageSequence) < repeated) {
			repeated = int(hsHdr.MessageSequence)
		}

		seq := hsHdr.MessageSequence
		if seq >= f.currentMessageSequenceNumber { //nolint:nestif
			if !flightSet {
				flightMin, flightMax, flightSet = seq, seq, true
			} else {
				switch {
				case seq < flightMin:
					if flightMin != 0 && seq == flightMin-1 {
						flightMin = seq
					} else {
						buf = buf[end:]

						continue
					}
				case seq > flightMax:
					if seq == flightMax+1 {
						flightMax = seq
					} else {
						buf = buf[end:]

						continue
					}
				}
			}
		}

		// ignore anything older than what we're expecting to pop next,
		// anything larger than the per-message cap and anything too far ahead.
		if seq < f.currentMessageSequenceNumber || hsHdr.Length > fragmentBufferMaxSize ||
			int(seq)-int(f.currentMessageSequenceNumber) >= fragmentBufferMaxMessages {
			buf = buf[end:]

			continue
		}

		// validate fragment range safely (avoid uint32 wraparound).
		fragStart := hsHdr.FragmentOffset
		if fragStart > hsHdr.Length || fragLen > hsHdr.Length-fragStart {
			buf = buf[end:]

			continue
		}
		fragEnd := fragStart + fragLen

		messageFragments, ok := f.cache[seq]
		if !ok {
			messageFragments = &fragments{
				handshakeLength: hsHdr.Length,
				epoch:           epoch,
				baseHeader:      hsHdr,
			}
		} else {
			// must be consistent across fragments, and one message never mixes epochs.
			if messageFragments.handshakeLength != hsHdr.Length ||
				messageFragments.baseHeader.Type != hsHdr.Type ||
				messageFragments.epoch != epoch ||
				messageFragments.receivedLength == messageFragments.handshakeLength {
				buf = buf[end:]

				continue
			}
		}

		payload := buf[handshake.HeaderLength:end]

		// first pass: compute how many unique bytes/chunks to add.
		var addedBytes uint32
		var addedChunks int
		messageFragments.scanUncovered(fragStart, fragEnd, func(uStart, uEnd uint32) {
			addedBytes += uEnd - uStart
			addedChunks++
		})

		for f.totalBufferSize+int(addedBytes) > fragmentBufferMaxSize ||
			f.totalFragmentCount+addedChunks > fragmentBufferMaxCount {
			if !f.evict(seq) {
				break
			}
		}
		if f.totalBufferSize+int(addedBytes) > fragmentBufferMaxSize ||
			f.totalFragmentCount+addedChunks > fragmentBufferMaxCount {
			buf = buf[end:]

			continue
		}

		if !ok {
			f.cache[seq] = messageFragments
		}

		if addedBytes > 0 || hsHdr.Length == 0 {
			f.clock++
			messageFragments.lastProgress = f.clock
		}

		if addedBytes > 0 {
			// one allocation for all bytes to store from this handshake-in-record.
			dataBlob := make([]byte, addedBytes)
			blobOff := uint32(0)

			newFrags := make([]*fragment, 0, addedChunks)

			messageFragments.scanUncovered(fragStart, fragEnd, func(uStart, uEnd uint32) {
				uLen := uEnd - uStart

				dst := dataBlob[blobOff : blobOff+uLen]
				copy(dst, payload[uStart-fragStart:uEnd-fragStart])
				blobOff += uLen

				newFrags = append(newFrags, &fragment{
					offset: uStart,
					data:   dst,
				})
			})

			messageFragments.insertMany(newFrags)

			messageFragments.receivedLength += addedBytes
			f.totalBufferSize += int(addedBytes)
			f.totalFragmentCount += len(newFrags)
		}

		buf = buf[end:]
	}

	return repeated, nil
}

// pop returns the next complete message in sequence with its header
// rewritten as unfragmented, or nil when it is not complete yet.
func (f *fragmentBuffer) pop() (content []byte, epoch uint16) {
	frags, ok := f.cache[f.currentMessageSequenceNumber]
	if !ok {
		return nil, 0
	}

	if frags.receivedLength != frags.handshakeLength {
		return nil, 0
	}

	// reassemble: stored chunks are non-overlapping and cover the whole message.
	rawMessage := make([]byte, frags.handshakeLength)
	for _, frag := range frags.frags {
		copy(rawMessage[frag.offset:], frag.data)
	}

	firstHeader := frags.baseHeader
	firstHeader.FragmentOffset = 0
	firstHeader.FragmentLength = firstHeader.Length

	rawHeader, err := firstHeader.Marshal()
	if err != nil {
		return nil, 0
	}

	messageEpoch := frags.epoch

	f.totalBufferSize -= int(frags.receivedLength)
	f.totalFragmentCount -= len(frags.frags)

	delete(f.cache, f.currentMessageSequenceNumber)
	f.currentMessageSequenceNumber++

	return append(rawHeader, rawMessage...), messageEpoch
}
