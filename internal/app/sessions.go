package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/core"
	"github.com/cloudmeet/backend/internal/domain"
)

type sessionEntry struct {
	conn    core.SignalConn
	meeting domain.MeetingID
}

// Sessions maps each live connection to its session id and transport handle.
// Session lifecycle is orthogonal to room membership, so it carries its own
// guard. A session belongs to at most one room at a time; the room binding
// kept here is what lets disconnect find the room without a meeting id.
type Sessions struct {
	mu      sync.RWMutex
	entries map[domain.SessionID]*sessionEntry
}

func NewSessions() *Sessions {
	return &Sessions{entries: make(map[domain.SessionID]*sessionEntry)}
}

// Register is called exactly once per connection establishment and returns an
// identifier unused by any other currently-live session.
func (s *Sessions) Register(conn core.SignalConn) domain.SessionID {
	sid := domain.SessionID(uuid.NewString())
	s.mu.Lock()
	s.entries[sid] = &sessionEntry{conn: conn}
	s.mu.Unlock()
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("session registered")
	return sid
}

// Unregister is idempotent: disconnect notifications can race explicit leave
// requests, and a second call on a removed id is a no-op.
func (s *Sessions) Unregister(sid domain.SessionID) {
	s.mu.Lock()
	_, ok := s.entries[sid]
	delete(s.entries, sid)
	s.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("session unregistered")
	}
}

func (s *Sessions) Lookup(sid domain.SessionID) (core.SignalConn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sid]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// BindRoom records which room the session is in.
func (s *Sessions) BindRoom(sid domain.SessionID, meeting domain.MeetingID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sid]
	if !ok {
		return false
	}
	e.meeting = meeting
	return true
}

func (s *Sessions) ClearRoom(sid domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sid]; ok {
		e.meeting = ""
	}
}

// RoomOf returns the meeting the session is currently in, if any.
func (s *Sessions) RoomOf(sid domain.SessionID) (domain.MeetingID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sid]
	if !ok || e.meeting == "" {
		return "", false
	}
	return e.meeting, true
}
