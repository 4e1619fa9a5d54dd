package app

import "github.com/cloudmeet/backend/internal/domain"

// Moderation event handlers. The room's permission methods enforce who may do
// what and notify the room themselves, under the same lock hold as the
// transition; rejected transitions stay silent (no broadcast, no error back to
// the caller). A missing room means a race with reclamation and is equally
// silent.

func (c *Coordinator) RaiseHand(sid domain.SessionID, meeting domain.MeetingID) {
	if room, ok := c.Rooms.Get(meeting); ok {
		room.RaiseHand(sid)
	}
}

func (c *Coordinator) LowerHand(sid domain.SessionID, meeting domain.MeetingID) {
	if room, ok := c.Rooms.Get(meeting); ok {
		room.LowerHand(sid)
	}
}

func (c *Coordinator) AllowSpeak(sid domain.SessionID, meeting domain.MeetingID, target domain.SessionID) {
	if room, ok := c.Rooms.Get(meeting); ok {
		room.AllowSpeak(sid, target)
	}
}

func (c *Coordinator) DisallowSpeak(sid domain.SessionID, meeting domain.MeetingID, target domain.SessionID) {
	if room, ok := c.Rooms.Get(meeting); ok {
		room.DisallowSpeak(sid, target)
	}
}

func (c *Coordinator) MuteAll(sid domain.SessionID, meeting domain.MeetingID) {
	if room, ok := c.Rooms.Get(meeting); ok {
		room.MuteAll(sid)
	}
}

func (c *Coordinator) UnmuteAll(sid domain.SessionID, meeting domain.MeetingID) {
	if room, ok := c.Rooms.Get(meeting); ok {
		room.UnmuteAll(sid)
	}
}

func (c *Coordinator) SetSelfMute(sid domain.SessionID, meeting domain.MeetingID, muted bool) {
	if room, ok := c.Rooms.Get(meeting); ok {
		room.SetSelfMute(sid, muted)
	}
}
