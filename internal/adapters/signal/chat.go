package signal

import (
	"github.com/cloudmeet/backend/internal/domain"
)

func (ctl *Controller) handleChat(sid domain.SessionID, data []byte) {
	var p struct {
		MeetingID  string `json:"meetingId"`
		SenderName string `json:"senderName"`
		Content    string `json:"content"`
	}
	if !decode(sid, domain.EvChatMessage, data, &p) || p.MeetingID == "" || p.SenderName == "" || p.Content == "" {
		return
	}
	ctl.Coord.Chat(sid, domain.MeetingID(p.MeetingID), p.SenderName, p.Content)
}

func (ctl *Controller) handleOpenBroadcast(sid domain.SessionID, data []byte) {
	var p struct {
		MeetingID  string `json:"meetingId"`
		SenderName string `json:"senderName"`
		Content    string `json:"content"`
		Color      string `json:"color"`
	}
	if !decode(sid, domain.EvBroadcastMsg, data, &p) || p.MeetingID == "" || p.SenderName == "" || p.Content == "" {
		return
	}
	ctl.Coord.OpenBroadcast(sid, domain.MeetingID(p.MeetingID), p.SenderName, p.Content, p.Color)
}
