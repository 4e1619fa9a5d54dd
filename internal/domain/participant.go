// Package domain contains entities without logic, just meta-data.
package domain

type (
	// SessionID identifies one live connection, assigned by the transport layer.
	SessionID string
	// MeetingID identifies one meeting, assigned by the meeting store.
	MeetingID string
)

// NoSession is passed where an exclude-session argument is optional.
const NoSession SessionID = ""

// Participant is a session's membership and moderation state within one room.
// IsHost is fixed for the participant's lifetime in the room; the mutable
// moderation state is the (Muted, CanSpeak, HandRaised) triple.
type Participant struct {
	ID         string `json:"participantId"`
	Name       string `json:"participantName"`
	IsHost     bool   `json:"isHost"`
	Muted      bool   `json:"muted"`
	CanSpeak   bool   `json:"canSpeak"`
	HandRaised bool   `json:"handRaised"`
}

// NewParticipant avoids raw literals in adapters and fixes the join defaults:
// a host enters unmuted and allowed to speak, an attendee enters muted.
func NewParticipant(id, name string, isHost bool) Participant {
	return Participant{
		ID:       id,
		Name:     name,
		IsHost:   isHost,
		Muted:    !isHost,
		CanSpeak: isHost,
	}
}
