package domain

import "time"

type MeetingStatus string

const (
	MeetingWaiting MeetingStatus = "waiting"
	MeetingOngoing MeetingStatus = "ongoing"
	MeetingEnded   MeetingStatus = "ended"
)

// Meeting is the durable record of one meeting, owned by the store.
// The live room state is not derived from it and does not survive a restart.
type Meeting struct {
	ID        string        `json:"id"`
	Number    string        `json:"meetingNo"`
	Title     string        `json:"title"`
	HostName  string        `json:"hostName"`
	Password  string        `json:"password,omitempty"`
	Status    MeetingStatus `json:"status"`
	StartedAt time.Time     `json:"actualStartTime,omitzero"`
	EndedAt   time.Time     `json:"actualEndTime,omitzero"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ParticipantRecord is the durable trace of someone having joined a meeting.
type ParticipantRecord struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meetingId"`
	Name      string    `json:"name"`
	IsHost    bool      `json:"isHost"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// ChatRecord is one persisted chat message.
type ChatRecord struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meetingId"`
	Sender    string    `json:"senderName"`
	Content   string    `json:"content"`
	At        time.Time `json:"createdAt"`
}
