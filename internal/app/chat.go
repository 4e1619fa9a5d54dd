package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/domain"
)

type chatPayload struct {
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Time       time.Time `json:"time"`
}

// Chat persists the message and fans it out to everyone but the sender, who
// gets a single chat-sent acknowledgment instead (its own copy is echoed
// locally by the client). A store failure loses the durable copy only.
func (c *Coordinator) Chat(sid domain.SessionID, meeting domain.MeetingID, senderName, content string) {
	room, ok := c.Rooms.Get(meeting)
	if !ok {
		return
	}
	at := time.Now().UTC()
	rec, err := c.Store.AppendChat(string(meeting), senderName, content)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("meeting", string(meeting)).Msg("append chat record")
	} else {
		at = rec.At
	}
	room.Touch()

	room.Broadcast(domain.EvChatMessage, chatPayload{SenderName: senderName, Content: content, Time: at}, sid)
	c.send(sid, domain.EvChatSent, struct {
		Time time.Time `json:"time"`
	}{at})
}

// OpenBroadcast is the intentionally-echoed variant: the sender receives its
// own message rendered identically to everyone else's. Not persisted.
func (c *Coordinator) OpenBroadcast(sid domain.SessionID, meeting domain.MeetingID, senderName, content, color string) {
	room, ok := c.Rooms.Get(meeting)
	if !ok {
		return
	}
	room.Touch()
	room.Broadcast(domain.EvBroadcastMsg, struct {
		SenderName string    `json:"senderName"`
		Content    string    `json:"content"`
		Color      string    `json:"color"`
		Time       time.Time `json:"time"`
	}{senderName, content, color, time.Now().UTC()}, domain.NoSession)
}
