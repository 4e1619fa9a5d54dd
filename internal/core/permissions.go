package core

import (
	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/domain"
)

// Moderation transitions. Every method reports whether visible state changed
// and, on change, notifies the whole room before the room lock is released, so
// racing transitions on the same participant fan out in application order.
// Transitions on a host target, or host-only actions issued by a non-host, are
// rejected as no-ops — never as errors that would tear down the caller's
// connection.

// bulkModeration is the payload of the mute-all/unmute-all notices.
type bulkModeration struct {
	Participants []RoomUser `json:"participants"`
}

// RaiseHand marks an attendee as requesting to speak. No-op if the hand is
// already raised or the attendee can already speak.
func (r *Room) RaiseHand(sid domain.SessionID) (RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[sid]
	if !ok || m.p.IsHost || m.p.HandRaised || m.p.CanSpeak {
		return RoomUser{}, false
	}
	m.p.HandRaised = true
	u := RoomUser{SessionID: sid, Participant: m.p}
	r.broadcast(domain.EvHandRaised, u, domain.NoSession)
	return u, true
}

// LowerHand always revokes any granted speaking permission along with the hand.
func (r *Room) LowerHand(sid domain.SessionID) (RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[sid]
	if !ok || m.p.IsHost {
		return RoomUser{}, false
	}
	prev := m.p
	m.p.HandRaised = false
	m.p.CanSpeak = false
	m.p.Muted = true
	if m.p == prev {
		return RoomUser{}, false
	}
	u := RoomUser{SessionID: sid, Participant: m.p}
	r.broadcast(domain.EvHandLowered, u, domain.NoSession)
	return u, true
}

// AllowSpeak is a host action granting a non-host target the floor.
func (r *Room) AllowSpeak(by, target domain.SessionID) (RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.moderatable(by, target)
	if !ok {
		return RoomUser{}, false
	}
	prev := m.p
	m.p.CanSpeak = true
	m.p.HandRaised = false
	m.p.Muted = false
	if m.p == prev {
		return RoomUser{}, false
	}
	u := RoomUser{SessionID: target, Participant: m.p}
	r.broadcast(domain.EvSpeakAllowed, u, domain.NoSession)
	return u, true
}

// DisallowSpeak is a host action revoking a non-host target's floor.
func (r *Room) DisallowSpeak(by, target domain.SessionID) (RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.moderatable(by, target)
	if !ok {
		return RoomUser{}, false
	}
	prev := m.p
	m.p.CanSpeak = false
	m.p.Muted = true
	if m.p == prev {
		return RoomUser{}, false
	}
	u := RoomUser{SessionID: target, Participant: m.p}
	r.broadcast(domain.EvSpeakDisallowed, u, domain.NoSession)
	return u, true
}

// MuteAll force-mutes every non-host participant. Returns their resulting
// states; ok is false when the caller is not the room's host.
func (r *Room) MuteAll(by domain.SessionID) ([]RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isHost(by) {
		return nil, false
	}
	var out []RoomUser
	for sid, m := range r.members {
		if m.p.IsHost {
			continue
		}
		m.p.Muted = true
		m.p.CanSpeak = false
		out = append(out, RoomUser{SessionID: sid, Participant: m.p})
	}
	log.Info().Str("module", "core.room").Str("meeting", string(r.meetingID)).Int("affected", len(out)).Msg("mute all")
	if len(out) > 0 {
		r.broadcast(domain.EvMutedAll, bulkModeration{out}, domain.NoSession)
	}
	return out, true
}

// UnmuteAll lifts the forced mute from every non-host participant.
func (r *Room) UnmuteAll(by domain.SessionID) ([]RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isHost(by) {
		return nil, false
	}
	var out []RoomUser
	for sid, m := range r.members {
		if m.p.IsHost {
			continue
		}
		m.p.Muted = false
		out = append(out, RoomUser{SessionID: sid, Participant: m.p})
	}
	log.Info().Str("module", "core.room").Str("meeting", string(r.meetingID)).Int("affected", len(out)).Msg("unmute all")
	if len(out) > 0 {
		r.broadcast(domain.EvUnmutedAll, bulkModeration{out}, domain.NoSession)
	}
	return out, true
}

// SetSelfMute lets an attendee toggle its own mute, independent of CanSpeak.
// A host's own mute state is never user-togglable through this path.
func (r *Room) SetSelfMute(sid domain.SessionID, muted bool) (RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[sid]
	if !ok || m.p.IsHost || m.p.Muted == muted {
		return RoomUser{}, false
	}
	m.p.Muted = muted
	u := RoomUser{SessionID: sid, Participant: m.p}
	r.broadcast(domain.EvSelfMuted, u, domain.NoSession)
	return u, true
}

// IsHost reports whether sid is this room's host.
func (r *Room) IsHost(sid domain.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isHost(sid)
}

func (r *Room) isHost(sid domain.SessionID) bool {
	m, ok := r.members[sid]
	return ok && m.p.IsHost
}

// moderatable validates a host-issued action on a non-host target.
func (r *Room) moderatable(by, target domain.SessionID) (*member, bool) {
	if !r.isHost(by) {
		return nil, false
	}
	m, ok := r.members[target]
	if !ok || m.p.IsHost {
		return nil, false
	}
	return m, true
}
