// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
	"github.com/pion/logging"
	"github.com/pion/transport/v3/replaydetector"
)

// maxQueuedRecords bounds the records held back until their epoch
// or a pending cipher state becomes usable.
const maxQueuedRecords = 64

type readState struct {
	cipher CipherState // nil in epoch 0
	replay replaydetector.ReplayDetector
}

type writeState struct {
	cipher CipherState // nil in epoch 0
	seq    uint64
}

type recordStatus int

const (
	recordAccepted recordStatus = iota
	recordQueued
	recordDropped
)

/*
 The DTLS record layer is extremely similar to that of TLS 1.1.  The
 only change is the inclusion of an explicit sequence number in the
 record.  This sequence number allows the recipient to correctly
 verify the TLS MAC.
 https://tools.ietf.org/html/rfc6347#section-4.1

 recordLayer owns the epoch and sequence state of both directions. Each
 read epoch has its own anti-replay window. A cipher state negotiated by
 the handshake is installed as pending and becomes current for reading
 when ChangeCipherSpec is received, and for writing from the first
 record sent in the next epoch.
*/
type recordLayer struct {
	replayWindow uint
	log          logging.LeveledLogger

	writeEpoch  uint16
	writeStates map[uint16]*writeState

	readEpoch uint16
	// prevReadLive keeps readEpoch-1 usable until the first record of
	// readEpoch authenticates.
	prevReadLive bool
	readStates   map[uint16]*readState

	pendingRead CipherState
	queue       []queuedRecord
}

// queuedRecord is a record held back until its epoch is readable.
// verified is set once it authenticated under the pending cipher state.
type queuedRecord struct {
	raw      []byte
	epoch    uint16
	seq      uint64
	verified bool
}

func newRecordLayer(replayWindow uint, log logging.LeveledLogger) *recordLayer {
	return &recordLayer{
		replayWindow: replayWindow,
		log:          log,
		writeStates:  map[uint16]*writeState{0: {}},
		readStates: map[uint16]*readState{
			0: {replay: replaydetector.New(replayWindow, recordlayer.MaxSequenceNumber)},
		},
	}
}

// setPending installs the cipher state for the next epoch in both directions.
func (r *recordLayer) setPending(cs CipherState) {
	r.pendingRead = cs
	r.writeStates[r.writeEpoch+1] = &writeState{cipher: cs}

	// Records of the next epoch queued so far can be checked now.
	kept := r.queue[:0]
	for _, q := range r.queue {
		if q.epoch == r.readEpoch+1 && !q.verified {
			if !authentic(cs, q.raw) {
				r.log.Debugf("discarded queued record that failed authentication (epoch: %d, seq: %d)", q.epoch, q.seq)

				continue
			}
			q.verified = true
		}
		kept = append(kept, q)
	}
	r.queue = kept
}

// authentic reports whether raw opens under cs. raw is left untouched.
func authentic(cs CipherState, raw []byte) bool {
	var header recordlayer.Header
	_, err := cs.Decrypt(header, append([]byte{}, raw...))

	return err == nil
}

func (r *recordLayer) hasPending() bool {
	return r.pendingRead != nil
}

// activateRead moves reading to the pending epoch. The caller replays
// the queued records afterwards.
func (r *recordLayer) activateRead() error {
	if r.pendingRead == nil {
		return errNoPendingCipherState
	}

	r.readEpoch++
	r.readStates[r.readEpoch] = &readState{
		cipher: r.pendingRead,
		replay: replaydetector.New(r.replayWindow, recordlayer.MaxSequenceNumber),
	}
	r.pendingRead = nil
	r.prevReadLive = true

	for epoch := range r.readStates {
		if epoch+1 < r.readEpoch {
			delete(r.readStates, epoch)
		}
	}
	r.log.Tracef("read epoch is now %d", r.readEpoch)

	return nil
}

// advanceWrite makes epoch the default for records outside a flight.
func (r *recordLayer) advanceWrite(epoch uint16) {
	if epoch <= r.writeEpoch {
		return
	}
	r.writeEpoch = epoch
	for e := range r.writeStates {
		if e+1 < r.writeEpoch {
			delete(r.writeStates, e)
		}
	}
}

// nextSequenceNumber reserves the next sequence number of a write epoch.
func (r *recordLayer) nextSequenceNumber(epoch uint16) (*writeState, uint64, error) {
	ws, ok := r.writeStates[epoch]
	if !ok {
		return nil, 0, errNoPendingCipherState
	}
	seq := ws.seq
	if seq > recordlayer.MaxSequenceNumber {
		// RFC 6347 Section 4.1.0
		// The implementation must either abandon an association or rehandshake
		// prior to allowing the sequence number to wrap.
		return nil, 0, errSequenceNumberOverflow
	}
	ws.seq++

	return ws, seq, nil
}

// protect assigns a sequence number to a record with a marshaled content
// and seals it with the cipher state of its epoch.
func (r *recordLayer) protect(pkt *recordlayer.RecordLayer, content []byte) ([]byte, error) {
	ws, seq, err := r.nextSequenceNumber(pkt.Header.Epoch)
	if err != nil {
		return nil, err
	}

	pkt.Header.SequenceNumber = seq
	pkt.Header.ContentLen = uint16(len(content)) //nolint:gosec // bounded by the MTU
	if pkt.Header.Version == (protocol.Version{}) {
		pkt.Header.Version = protocol.Version1_2
	}

	raw, err := pkt.Header.Marshal()
	if err != nil {
		return nil, err
	}
	raw = append(raw, content...)

	if ws.cipher == nil {
		return raw, nil
	}

	return ws.cipher.Encrypt(pkt, raw)
}

// overhead is the protection overhead of records in a write epoch.
func (r *recordLayer) overhead(epoch uint16) int {
	if ws, ok := r.writeStates[epoch]; ok && ws.cipher != nil {
		return ws.cipher.Overhead()
	}

	return 0
}

// unprotect authenticates one record. It returns the record header and
// its plaintext content. Records that fail any check are dropped without
// changing state. Records that can't be processed until the next epoch
// or a pending cipher state is installed are queued.
func (r *recordLayer) unprotect(raw []byte) (recordlayer.Header, []byte, recordStatus) { //nolint:cyclop
	var header recordlayer.Header
	if err := header.Unmarshal(raw); err != nil {
		r.log.Debugf("discarded broken record: %v", err)

		return header, nil, recordDropped
	}
	if len(raw) != header.Size()+int(header.ContentLen) {
		r.log.Debugf("discarded record with length mismatch (epoch: %d, seq: %d)", header.Epoch, header.SequenceNumber)

		return header, nil, recordDropped
	}

	switch {
	case header.Epoch == r.readEpoch+1:
		return header, nil, r.enqueue(header, raw)
	case header.Epoch == r.readEpoch:
	case header.Epoch+1 == r.readEpoch && r.prevReadLive:
	default:
		r.log.Debugf("discarded record from epoch %d, current read epoch %d", header.Epoch, r.readEpoch)

		return header, nil, recordDropped
	}

	if header.ContentType == protocol.ContentTypeChangeCipherSpec && r.pendingRead == nil &&
		header.Epoch == r.readEpoch {
		// The handshake has not installed the next cipher state yet.
		return header, nil, r.enqueue(header, raw)
	}

	state := r.readStates[header.Epoch]
	accept, ok := state.replay.Check(header.SequenceNumber)
	if !ok {
		r.log.Debugf("discarded duplicated record (epoch: %d, seq: %d)", header.Epoch, header.SequenceNumber)

		return header, nil, recordDropped
	}

	content := raw[header.Size():]
	if state.cipher != nil {
		// Decryption happens in place, keep the caller's buffer intact.
		in := append([]byte{}, raw...)
		out, err := state.cipher.Decrypt(header, in)
		if err != nil {
			r.log.Debugf("discarded record that failed authentication (epoch: %d, seq: %d): %v",
				header.Epoch, header.SequenceNumber, err)

			return header, nil, recordDropped
		}
		content = out[header.Size():]
	}
	accept()

	if header.Epoch == r.readEpoch && r.prevReadLive && r.readEpoch > 0 {
		r.prevReadLive = false
		delete(r.readStates, r.readEpoch-1)
	}

	return header, content, recordAccepted
}

// enqueue holds a record back. Next epoch records are authenticated first
// when the pending cipher state is known. A full queue makes room by
// evicting its oldest unverified record, so forgeries can't crowd out
// genuine ones.
func (r *recordLayer) enqueue(header recordlayer.Header, raw []byte) recordStatus {
	q := queuedRecord{epoch: header.Epoch, seq: header.SequenceNumber}
	if header.Epoch == r.readEpoch+1 && r.pendingRead != nil {
		if !authentic(r.pendingRead, raw) {
			r.log.Debugf("discarded record that failed authentication (epoch: %d, seq: %d)", header.Epoch, header.SequenceNumber)

			return recordDropped
		}
		q.verified = true
	}

	for _, other := range r.queue {
		if other.verified && other.epoch == q.epoch && other.seq == q.seq {
			r.log.Debugf("discarded duplicated queued record (epoch: %d, seq: %d)", q.epoch, q.seq)

			return recordDropped
		}
	}

	if len(r.queue) >= maxQueuedRecords && !r.evictUnverified() {
		r.log.Debug("record queue full, discarding record")

		return recordDropped
	}

	r.log.Debug("queued record for a later epoch")
	q.raw = append([]byte{}, raw...)
	r.queue = append(r.queue, q)

	return recordQueued
}

func (r *recordLayer) evictUnverified() bool {
	for i, q := range r.queue {
		if !q.verified {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)

			return true
		}
	}

	return false
}

// takeQueue returns and clears the queued records.
func (r *recordLayer) takeQueue() [][]byte {
	out := make([][]byte, 0, len(r.queue))
	for _, q := range r.queue {
		out = append(out, q.raw)
	}
	r.queue = nil

	return out
}
