package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/core"
	"github.com/cloudmeet/backend/internal/domain"
	"github.com/cloudmeet/backend/internal/store"
)

// Store is the durable-store collaborator as the coordinator needs it: chat
// persistence plus the end-of-life bookkeeping when a meeting ends or is
// reclaimed. The live coordinator's correctness never depends on any of these
// succeeding.
type Store interface {
	AppendChat(meetingID, sender, content string) (domain.ChatRecord, error)
	SetMeetingStatus(id string, status domain.MeetingStatus) error
	DeleteMeeting(id string) error
	DeleteParticipants(meetingID string) error
	DeleteChats(meetingID string) error
}

// Coordinator owns all connection-scoped live state: the session registry and
// the room registry. One handler invocation per inbound event; handlers for
// distinct sessions run concurrently, room state is serialized by the room
// lock. It is injected into the transport adapters rather than reached as a
// module-level singleton.
type Coordinator struct {
	Sessions *Sessions
	Rooms    *core.Registry
	Store    Store
}

func NewCoordinator(sessions *Sessions, rooms *core.Registry, store Store) *Coordinator {
	return &Coordinator{Sessions: sessions, Rooms: rooms, Store: store}
}

// Join puts the session into the meeting's room, creating it lazily. Host
// status is established at meeting creation and passed explicitly here, never
// inferred from the display name. Joining while already in another room is a
// room switch: the old room is left (with notification) first.
func (c *Coordinator) Join(sid domain.SessionID, meeting domain.MeetingID, participantID, name string, isHost bool) {
	conn, ok := c.Sessions.Lookup(sid)
	if !ok {
		return
	}
	if prev, inRoom := c.Sessions.RoomOf(sid); inRoom && prev != meeting {
		log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("from", string(prev)).Str("to", string(meeting)).Msg("room switch")
		c.Leave(sid)
	}

	p := domain.NewParticipant(participantID, name, isHost)
	room := c.Rooms.Join(meeting, sid, p, conn)
	c.Sessions.BindRoom(sid, meeting)

	room.Broadcast(domain.EvUserJoined, core.RoomUser{SessionID: sid, Participant: p}, sid)
	c.send(sid, domain.EvRoomUsers, struct {
		Users []core.RoomUser `json:"users"`
	}{room.Snapshot()})
}

// Leave removes the session from its current room and notifies the others.
// Satisfied trivially when the session is in no room.
func (c *Coordinator) Leave(sid domain.SessionID) {
	meeting, ok := c.Sessions.RoomOf(sid)
	if !ok {
		return
	}
	c.Sessions.ClearRoom(sid)
	room, ok := c.Rooms.Get(meeting)
	if !ok {
		return
	}
	if _, removed := room.Leave(sid); removed {
		room.Broadcast(domain.EvUserLeft, struct {
			SessionID domain.SessionID `json:"sessionId"`
		}{sid}, domain.NoSession)
	}
}

// LeaveMeeting is the explicit leave-room path: a no-op unless the session is
// currently in the named meeting, so a stale leave naming some other room
// cannot evict the session from where it actually is.
func (c *Coordinator) LeaveMeeting(sid domain.SessionID, meeting domain.MeetingID) {
	if cur, ok := c.Sessions.RoomOf(sid); !ok || cur != meeting {
		return
	}
	c.Leave(sid)
}

// Disconnect is the connection-teardown path: leave whatever room the session
// was in, then drop the session itself. Idempotent, and always wins over any
// pending operation targeting the now-gone session.
func (c *Coordinator) Disconnect(sid domain.SessionID) {
	c.Leave(sid)
	c.Sessions.Unregister(sid)
}

// EndMeeting tears the room down immediately regardless of occupancy: host
// only. All current members are notified before removal, then the durable
// records are deleted.
func (c *Coordinator) EndMeeting(sid domain.SessionID, meeting domain.MeetingID) {
	room, ok := c.Rooms.Get(meeting)
	if !ok || !room.IsHost(sid) {
		return
	}
	room.Broadcast(domain.EvMeetingEnded, struct {
		MeetingID domain.MeetingID `json:"meetingId"`
	}{meeting}, domain.NoSession)
	for _, u := range room.Snapshot() {
		c.Sessions.ClearRoom(u.SessionID)
	}
	c.Rooms.Remove(meeting)
	log.Info().Str("module", "app.coordinator").Str("meeting", string(meeting)).Str("sid", string(sid)).Msg("meeting ended by host")
	purgeRecords(c.Store, meeting)
}

// send delivers one event to a single session; a missing session is a normal
// race with disconnect and the frame is silently dropped.
func (c *Coordinator) send(sid domain.SessionID, t domain.EventType, data any) {
	conn, ok := c.Sessions.Lookup(sid)
	if !ok {
		return
	}
	b, err := domain.Encode(t, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("event", string(t)).Msg("send encode")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("sid", string(sid)).Str("event", string(t)).Msg("send dropped")
	}
}

// purgeRecords stamps the meeting record ended, then asks the store to forget
// it, so a record that survives a failed delete still carries its end time.
// Failures are logged; the in-memory room is gone either way.
func purgeRecords(st Store, meeting domain.MeetingID) {
	id := string(meeting)
	// Rooms joined without an HTTP create have no record to stamp.
	if err := st.SetMeetingStatus(id, domain.MeetingEnded); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Str("module", "app.coordinator").Str("meeting", id).Msg("stamp meeting ended")
	}
	if err := st.DeleteChats(id); err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("meeting", id).Msg("delete chat records")
	}
	if err := st.DeleteParticipants(id); err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("meeting", id).Msg("delete participant records")
	}
	if err := st.DeleteMeeting(id); err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("meeting", id).Msg("delete meeting record")
	}
}
