package domain

import "encoding/json"

// EventType tags every message crossing the signaling connection, inbound and
// outbound. Payload shapes are fixed per type and dispatched through an
// explicit switch in the signal adapter.
type EventType string

// Inbound events.
const (
	EvJoinRoom      EventType = "join-room"
	EvLeaveRoom     EventType = "leave-room"
	EvRaiseHand     EventType = "raise-hand"
	EvLowerHand     EventType = "lower-hand"
	EvAllowSpeak    EventType = "allow-speak"
	EvDisallowSpeak EventType = "disallow-speak"
	EvMuteAll       EventType = "mute-all"
	EvUnmuteAll     EventType = "unmute-all"
	EvSelfMute      EventType = "self-mute"
	EvChatMessage   EventType = "chat-message"
	EvBroadcastMsg  EventType = "broadcast-message"
	EvEndMeeting    EventType = "end-meeting"
)

// Negotiation relay events, inbound and outbound under the same name. The
// payload is an opaque blob owned by the clients' media-transport layer and is
// never inspected here.
const (
	EvOffer        EventType = "offer"
	EvAnswer       EventType = "answer"
	EvICECandidate EventType = "ice-candidate"
)

// Outbound events.
const (
	EvRoomUsers       EventType = "room-users"
	EvUserJoined      EventType = "user-joined"
	EvUserLeft        EventType = "user-left"
	EvHandRaised      EventType = "hand-raised"
	EvHandLowered     EventType = "hand-lowered"
	EvSpeakAllowed    EventType = "speak-allowed"
	EvSpeakDisallowed EventType = "speak-disallowed"
	EvMutedAll        EventType = "muted-all"
	EvUnmutedAll      EventType = "unmuted-all"
	EvSelfMuted       EventType = "self-muted"
	EvChatSent        EventType = "chat-sent"
	EvMeetingEnded    EventType = "meeting-ended"
)

// Envelope is the wire frame: a type tag plus the type's payload.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode marshals a typed payload into a wire frame.
func Encode(t EventType, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Data: raw})
}
