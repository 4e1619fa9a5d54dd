package core

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/domain"
)

// RoomUser is a read-only view of one occupant (no transport fields).
type RoomUser struct {
	SessionID domain.SessionID `json:"sessionId"`
	domain.Participant
}

type member struct {
	p    domain.Participant
	conn SignalConn
	seq  uint64
}

// Room is the live, in-memory state of one meeting's current occupants.
// It owns the participant map, the activity timestamp and every permission
// transition; all of it is guarded by one mutex so that broadcasts from the
// same room are dispatched in a single serialized order. The room never
// closes adapter-owned connections.
type Room struct {
	meetingID domain.MeetingID

	mu         sync.Mutex
	members    map[domain.SessionID]*member
	nextSeq    uint64
	lastActive time.Time
	protected  bool
}

func NewRoom(meetingID domain.MeetingID) *Room {
	return &Room{
		meetingID:  meetingID,
		members:    make(map[domain.SessionID]*member),
		lastActive: time.Now(),
	}
}

func (r *Room) MeetingID() domain.MeetingID { return r.meetingID }

// Join inserts or replaces the entry for sid and refreshes activity.
func (r *Room) Join(sid domain.SessionID, p domain.Participant, conn SignalConn) domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.members[sid] = &member{p: p, conn: conn, seq: r.nextSeq}
	r.lastActive = time.Now()
	log.Info().Str("module", "core.room").Str("meeting", string(r.meetingID)).Str("sid", string(sid)).Bool("host", p.IsHost).Msg("member joined")
	return p
}

// Leave removes the entry for sid, refreshes activity and returns the removed
// record for notification purposes. Removing an absent sid is a no-op.
func (r *Room) Leave(sid domain.SessionID) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[sid]
	if !ok {
		return domain.Participant{}, false
	}
	delete(r.members, sid)
	r.lastActive = time.Now()
	log.Info().Str("module", "core.room").Str("meeting", string(r.meetingID)).Str("sid", string(sid)).Msg("member left")
	return m.p, true
}

func (r *Room) Participant(sid domain.SessionID) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[sid]
	if !ok {
		return domain.Participant{}, false
	}
	return m.p, true
}

func (r *Room) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Snapshot lists current occupants in join order.
func (r *Room) Snapshot() []RoomUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoomUser, 0, len(r.members))
	seqs := make(map[domain.SessionID]uint64, len(r.members))
	for sid, m := range r.members {
		out = append(out, RoomUser{SessionID: sid, Participant: m.p})
		seqs[sid] = m.seq
	}
	sort.Slice(out, func(i, j int) bool {
		return seqs[out[i].SessionID] < seqs[out[j].SessionID]
	})
	return out
}

// Touch refreshes the activity timestamp (membership and chat events).
func (r *Room) Touch() {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
}

func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// MarkProtected exempts the room from timeout-based reclamation.
func (r *Room) MarkProtected() {
	r.mu.Lock()
	r.protected = true
	r.mu.Unlock()
}

func (r *Room) Protected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.protected
}

func (r *Room) reclaimable(now time.Time, idle time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.protected && len(r.members) == 0 && now.Sub(r.lastActive) > idle
}

// Broadcast encodes the event once and fans it out to every occupant, omitting
// exclude if supplied. Frames are dispatched under the room lock, so events on
// the same room reach all recipients in one order. Returns the delivery count;
// send failures (backpressure, closed conn) drop that recipient's frame only.
func (r *Room) Broadcast(t domain.EventType, data any, exclude domain.SessionID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcast(t, data, exclude)
}

// broadcast is the fanout; callers hold r.mu.
func (r *Room) broadcast(t domain.EventType, data any, exclude domain.SessionID) int {
	b, err := domain.Encode(t, data)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("event", string(t)).Msg("broadcast encode")
		return 0
	}
	sent := 0
	for sid, m := range r.members {
		if sid == exclude {
			continue
		}
		if err := m.conn.TrySend(Frame(b)); err != nil {
			log.Warn().Err(err).Str("module", "core.room").Str("sid", string(sid)).Str("event", string(t)).Msg("broadcast send dropped")
			continue
		}
		sent++
	}
	return sent
}
