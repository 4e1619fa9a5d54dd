package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudmeet/backend/internal/core"
	"github.com/cloudmeet/backend/internal/domain"
)

type captureConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *captureConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureConn) Close() {}

func (c *captureConn) envelopes(t *testing.T) []domain.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env domain.Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

func (c *captureConn) types(t *testing.T) []domain.EventType {
	t.Helper()
	envs := c.envelopes(t)
	out := make([]domain.EventType, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Type)
	}
	return out
}

func (c *captureConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type stubStore struct {
	mu       sync.Mutex
	chats    []domain.ChatRecord
	statuses []string
	deleted  []string
	fail     bool
}

func (s *stubStore) AppendChat(meetingID, sender, content string) (domain.ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return domain.ChatRecord{}, errors.New("store down")
	}
	rec := domain.ChatRecord{MeetingID: meetingID, Sender: sender, Content: content, At: time.Now().UTC()}
	s.chats = append(s.chats, rec)
	return rec, nil
}

func (s *stubStore) SetMeetingStatus(id string, status domain.MeetingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store down")
	}
	s.statuses = append(s.statuses, id+":"+string(status))
	return nil
}

func (s *stubStore) delete(kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, kind+":"+id)
	if s.fail {
		return errors.New("store down")
	}
	return nil
}

func (s *stubStore) DeleteMeeting(id string) error      { return s.delete("meeting", id) }
func (s *stubStore) DeleteParticipants(id string) error { return s.delete("participants", id) }
func (s *stubStore) DeleteChats(id string) error        { return s.delete("chats", id) }

func newTestCoordinator(st *stubStore) *Coordinator {
	return NewCoordinator(NewSessions(), core.NewRegistry(), st)
}

// connect registers a fresh connection and joins it into the meeting.
func connect(c *Coordinator, meeting domain.MeetingID, pid, name string, host bool) (domain.SessionID, *captureConn) {
	conn := &captureConn{}
	sid := c.Sessions.Register(conn)
	c.Join(sid, meeting, pid, name, host)
	return sid, conn
}

func TestCoordinator_JoinNotifies(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	hostSID, hostConn := connect(c, "m1", "p-h", "Helen", true)
	req.Equal([]domain.EventType{domain.EvRoomUsers}, hostConn.types(t))

	_, attConn := connect(c, "m1", "p-a", "Arthur", false)

	// Existing member sees user-joined; the joiner gets the snapshot only.
	req.Equal([]domain.EventType{domain.EvRoomUsers, domain.EvUserJoined}, hostConn.types(t))
	req.Equal([]domain.EventType{domain.EvRoomUsers}, attConn.types(t))

	var snapshot struct {
		Users []core.RoomUser `json:"users"`
	}
	req.NoError(json.Unmarshal(attConn.envelopes(t)[0].Data, &snapshot))
	req.Len(snapshot.Users, 2)
	req.Equal(hostSID, snapshot.Users[0].SessionID)
	req.True(snapshot.Users[0].IsHost)
}

func TestCoordinator_LeaveNotifiesOthers(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	_, hostConn := connect(c, "m1", "p-h", "Helen", true)
	attSID, attConn := connect(c, "m1", "p-a", "Arthur", false)
	hostConn.reset()
	attConn.reset()

	c.Leave(attSID)

	req.Equal([]domain.EventType{domain.EvUserLeft}, hostConn.types(t))
	req.Empty(attConn.types(t))

	room, ok := c.Rooms.Get("m1")
	req.True(ok)
	req.Equal(1, room.Count())

	// The session itself survives a leave; only disconnect removes it.
	_, ok = c.Sessions.Lookup(attSID)
	req.True(ok)
}

func TestCoordinator_LeaveMeetingChecksTheRoom(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	_, hostConn := connect(c, "m1", "p-h", "Helen", true)
	attSID, _ := connect(c, "m1", "p-a", "Arthur", false)
	hostConn.reset()

	// A leave naming a room the session is not in changes nothing.
	c.LeaveMeeting(attSID, "m2")
	req.Empty(hostConn.types(t))
	room, _ := c.Rooms.Get("m1")
	req.Equal(2, room.Count())
	meeting, ok := c.Sessions.RoomOf(attSID)
	req.True(ok)
	req.EqualValues("m1", meeting)

	c.LeaveMeeting(attSID, "m1")
	req.Equal([]domain.EventType{domain.EvUserLeft}, hostConn.types(t))
	req.Equal(1, room.Count())
}

func TestCoordinator_DisconnectIsIdempotent(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	_, hostConn := connect(c, "m1", "p-h", "Helen", true)
	attSID, _ := connect(c, "m1", "p-a", "Arthur", false)
	hostConn.reset()

	// Explicit leave racing the disconnect notification.
	c.Leave(attSID)
	c.Disconnect(attSID)
	c.Disconnect(attSID)

	req.Equal([]domain.EventType{domain.EvUserLeft}, hostConn.types(t))
	_, ok := c.Sessions.Lookup(attSID)
	req.False(ok)
}

func TestCoordinator_JoinIsARoomSwitch(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	_, aConn := connect(c, "m1", "p-h", "Helen", true)
	sid, _ := connect(c, "m1", "p-a", "Arthur", false)
	aConn.reset()

	c.Join(sid, "m2", "p-a", "Arthur", false)

	// Old room saw the departure.
	req.Equal([]domain.EventType{domain.EvUserLeft}, aConn.types(t))
	room1, _ := c.Rooms.Get("m1")
	req.Equal(1, room1.Count())
	room2, _ := c.Rooms.Get("m2")
	req.Equal(1, room2.Count())

	meeting, ok := c.Sessions.RoomOf(sid)
	req.True(ok)
	req.EqualValues("m2", meeting)
}

func TestCoordinator_ChatExcludesSenderAndAcks(t *testing.T) {
	req := require.New(t)
	st := &stubStore{}
	c := newTestCoordinator(st)

	_, hostConn := connect(c, "m1", "p-h", "Helen", true)
	attSID, attConn := connect(c, "m1", "p-a", "Arthur", false)
	hostConn.reset()
	attConn.reset()

	c.Chat(attSID, "m1", "Arthur", "hello")

	req.Equal([]domain.EventType{domain.EvChatMessage}, hostConn.types(t))
	req.Equal([]domain.EventType{domain.EvChatSent}, attConn.types(t))
	req.Len(st.chats, 1)
	req.Equal("hello", st.chats[0].Content)
}

func TestCoordinator_ChatSurvivesStoreFailure(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{fail: true})

	_, hostConn := connect(c, "m1", "p-h", "Helen", true)
	attSID, attConn := connect(c, "m1", "p-a", "Arthur", false)
	hostConn.reset()
	attConn.reset()

	c.Chat(attSID, "m1", "Arthur", "hello")

	req.Equal([]domain.EventType{domain.EvChatMessage}, hostConn.types(t))
	req.Equal([]domain.EventType{domain.EvChatSent}, attConn.types(t))
}

func TestCoordinator_OpenBroadcastEchoesToSender(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	_, hostConn := connect(c, "m1", "p-h", "Helen", true)
	attSID, attConn := connect(c, "m1", "p-a", "Arthur", false)
	hostConn.reset()
	attConn.reset()

	c.OpenBroadcast(attSID, "m1", "Arthur", "to everyone", "#ff0000")

	req.Equal([]domain.EventType{domain.EvBroadcastMsg}, hostConn.types(t))
	req.Equal([]domain.EventType{domain.EvBroadcastMsg}, attConn.types(t))

	var got struct {
		Content string `json:"content"`
		Color   string `json:"color"`
	}
	req.NoError(json.Unmarshal(attConn.envelopes(t)[0].Data, &got))
	req.Equal("to everyone", got.Content)
	req.Equal("#ff0000", got.Color)
}

func TestCoordinator_RelayDeliversVerbatim(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	fromSID, _ := connect(c, "m1", "p-h", "Helen", true)
	toSID, toConn := connect(c, "m1", "p-a", "Arthur", false)
	toConn.reset()

	payload := json.RawMessage(`{"sdp":"v=0 something opaque","type":"offer"}`)
	c.Relay(domain.EvOffer, fromSID, toSID, payload)

	envs := toConn.envelopes(t)
	req.Len(envs, 1)
	req.Equal(domain.EvOffer, envs[0].Type)

	var got struct {
		From    domain.SessionID `json:"from"`
		Payload json.RawMessage  `json:"payload"`
	}
	req.NoError(json.Unmarshal(envs[0].Data, &got))
	req.Equal(fromSID, got.From)
	req.JSONEq(string(payload), string(got.Payload))
}

func TestCoordinator_RelayDropsWhenTargetGone(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	fromSID, fromConn := connect(c, "m1", "p-h", "Helen", true)
	toSID, _ := connect(c, "m1", "p-a", "Arthur", false)
	c.Disconnect(toSID)
	fromConn.reset()

	c.Relay(domain.EvICECandidate, fromSID, toSID, json.RawMessage(`{"candidate":"x"}`))

	// Silently dropped, no error back to the sender.
	req.Empty(fromConn.types(t))
}

func TestCoordinator_EndMeeting(t *testing.T) {
	req := require.New(t)
	st := &stubStore{}
	c := newTestCoordinator(st)

	hostSID, hostConn := connect(c, "m1", "p-h", "Helen", true)
	attSID, attConn := connect(c, "m1", "p-a", "Arthur", false)
	hostConn.reset()
	attConn.reset()

	// Non-host cannot end the meeting.
	c.EndMeeting(attSID, "m1")
	_, ok := c.Rooms.Get("m1")
	req.True(ok)

	c.EndMeeting(hostSID, "m1")

	req.Equal([]domain.EventType{domain.EvMeetingEnded}, hostConn.types(t))
	req.Equal([]domain.EventType{domain.EvMeetingEnded}, attConn.types(t))
	_, ok = c.Rooms.Get("m1")
	req.False(ok)
	// The record is stamped ended before the deletes are requested, so a
	// surviving record is never left looking ongoing.
	req.Equal([]string{"m1:" + string(domain.MeetingEnded)}, st.statuses)
	req.Contains(st.deleted, "meeting:m1")
	req.Contains(st.deleted, "participants:m1")
	req.Contains(st.deleted, "chats:m1")

	_, ok = c.Sessions.RoomOf(attSID)
	req.False(ok)
}

func TestCoordinator_EndMeetingSurvivesStoreFailure(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{fail: true})

	hostSID, _ := connect(c, "m1", "p-h", "Helen", true)
	c.EndMeeting(hostSID, "m1")

	_, ok := c.Rooms.Get("m1")
	req.False(ok)
}

// The walkthrough from the drawing board: host joins, attendee joins, raises a
// hand, gets the floor, then drops off.
func TestCoordinator_ModerationLifecycle(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(&stubStore{})

	hostSID, hostConn := connect(c, "m1", "p-h", "Helen", true)
	room, ok := c.Rooms.Get("m1")
	req.True(ok)
	req.Equal(1, room.Count())

	attSID, attConn := connect(c, "m1", "p-a", "Arthur", false)
	req.Equal(2, room.Count())
	p, _ := room.Participant(attSID)
	req.True(p.Muted)
	req.False(p.CanSpeak)

	hostConn.reset()
	attConn.reset()

	c.RaiseHand(attSID, "m1")
	req.Equal([]domain.EventType{domain.EvHandRaised}, hostConn.types(t))
	req.Equal([]domain.EventType{domain.EvHandRaised}, attConn.types(t))

	c.AllowSpeak(hostSID, "m1", attSID)
	p, _ = room.Participant(attSID)
	req.True(p.CanSpeak)
	req.False(p.Muted)
	req.False(p.HandRaised)

	// Rejected transitions emit nothing.
	hostConn.reset()
	c.AllowSpeak(attSID, "m1", hostSID)
	c.MuteAll(attSID, "m1")
	req.Empty(hostConn.types(t))

	c.Disconnect(attSID)
	req.Equal(1, room.Count())
}
