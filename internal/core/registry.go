package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/cloudmeet/backend/internal/domain"
)

// Registry is the single top-level index of live rooms: meeting id to the one
// aggregate owning that meeting's participant map and activity timestamp.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.MeetingID]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.MeetingID]*Room)}
}

// GetOrCreate lazily creates the room on first join.
func (reg *Registry) GetOrCreate(id domain.MeetingID) *Room {
	reg.mu.RLock()
	room, ok := reg.rooms[id]
	reg.mu.RUnlock()
	if ok {
		return room
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room, ok = reg.rooms[id]; ok {
		return room
	}
	room = NewRoom(id)
	reg.rooms[id] = room
	log.Info().Str("module", "core.registry").Str("meeting", string(id)).Msg("room created")
	return room
}

// Join inserts the participant through the registry rather than into a
// previously fetched *Room, so the insertion cannot land in a room the sweeper
// reclaimed between lookup and insert. If the registry no longer maps the
// meeting to the room that was joined, the stray entry is undone and the join
// retried against a fresh room. On return the room is registered and
// non-empty, which makes it unreclaimable until the member leaves.
func (reg *Registry) Join(id domain.MeetingID, sid domain.SessionID, p domain.Participant, conn SignalConn) *Room {
	for {
		room := reg.GetOrCreate(id)
		room.Join(sid, p, conn)
		if cur, ok := reg.Get(id); ok && cur == room {
			return room
		}
		room.Leave(sid)
	}
}

func (reg *Registry) Get(id domain.MeetingID) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	return room, ok
}

func (reg *Registry) Remove(id domain.MeetingID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
	log.Info().Str("module", "core.registry").Str("meeting", string(id)).Msg("room removed")
}

// Rooms returns a point-in-time snapshot for the sweeper.
func (reg *Registry) Rooms() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return lo.Values(reg.rooms)
}

// RemoveIfReclaimable deletes the room if it is empty, unprotected and idle
// longer than the timeout. The check takes both the registry lock and the room
// lock, so it cannot race a concurrent join against the reclamation decision.
func (reg *Registry) RemoveIfReclaimable(id domain.MeetingID, now time.Time, idle time.Duration) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok || !room.reclaimable(now, idle) {
		return false
	}
	delete(reg.rooms, id)
	log.Info().Str("module", "core.registry").Str("meeting", string(id)).Msg("idle room reclaimed")
	return true
}
