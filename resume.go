// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"sync"
)

// Session store data needed in resumption.
type Session struct {
	// ID store session id
	ID []byte
	// Secret store session master secret
	Secret []byte
	// CipherSuiteID is the suite the session was established with.
	CipherSuiteID CipherSuiteID
	// ExtendedMasterSecret records whether Secret came from the session hash.
	ExtendedMasterSecret bool
}

// SessionStore defines methods needed for session resumption.
type SessionStore interface {
	// Set save a session.
	// For client, use server name as key.
	// For server, use session id.
	Set(key []byte, s Session) error
	// Get fetch a session.
	Get(key []byte) (Session, error)
	// Del clean saved session.
	Del(key []byte) error
}

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemorySessionStore returns a SessionStore that keeps sessions in memory.
// A missing key yields an empty Session and no error.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: map[string]Session{}}
}

func (m *memorySessionStore) Set(key []byte, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[string(key)] = Session{
		ID:                   append([]byte{}, s.ID...),
		Secret:               append([]byte{}, s.Secret...),
		CipherSuiteID:        s.CipherSuiteID,
		ExtendedMasterSecret: s.ExtendedMasterSecret,
	}

	return nil
}

func (m *memorySessionStore) Get(key []byte) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sessions[string(key)], nil
}

func (m *memorySessionStore) Del(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, string(key))

	return nil
}
