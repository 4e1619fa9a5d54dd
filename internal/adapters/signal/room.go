package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/domain"
)

func (ctl *Controller) handleJoin(sid domain.SessionID, data []byte) {
	var p struct {
		MeetingID       string `json:"meetingId"`
		ParticipantID   string `json:"participantId"`
		ParticipantName string `json:"participantName"`
		IsHost          bool   `json:"isHost"`
	}
	if !decode(sid, domain.EvJoinRoom, data, &p) {
		return
	}
	if p.MeetingID == "" || p.ParticipantID == "" || p.ParticipantName == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join missing required field, dropped")
		return
	}
	ctl.Coord.Join(sid, domain.MeetingID(p.MeetingID), p.ParticipantID, p.ParticipantName, p.IsHost)
}

func (ctl *Controller) handleLeave(sid domain.SessionID, data []byte) {
	var p struct {
		MeetingID string `json:"meetingId"`
	}
	if !decode(sid, domain.EvLeaveRoom, data, &p) || p.MeetingID == "" {
		return
	}
	ctl.Coord.LeaveMeeting(sid, domain.MeetingID(p.MeetingID))
}

// handleRoomAction covers the moderation events whose payload is just the
// meeting id.
func (ctl *Controller) handleRoomAction(sid domain.SessionID, t domain.EventType, data []byte) {
	var p struct {
		MeetingID string `json:"meetingId"`
	}
	if !decode(sid, t, data, &p) || p.MeetingID == "" {
		return
	}
	meeting := domain.MeetingID(p.MeetingID)
	switch t {
	case domain.EvRaiseHand:
		ctl.Coord.RaiseHand(sid, meeting)
	case domain.EvLowerHand:
		ctl.Coord.LowerHand(sid, meeting)
	case domain.EvMuteAll:
		ctl.Coord.MuteAll(sid, meeting)
	case domain.EvUnmuteAll:
		ctl.Coord.UnmuteAll(sid, meeting)
	case domain.EvEndMeeting:
		ctl.Coord.EndMeeting(sid, meeting)
	}
}

func (ctl *Controller) handleTargetAction(sid domain.SessionID, t domain.EventType, data []byte) {
	var p struct {
		MeetingID       string `json:"meetingId"`
		TargetSessionID string `json:"targetSessionId"`
	}
	if !decode(sid, t, data, &p) || p.MeetingID == "" || p.TargetSessionID == "" {
		return
	}
	meeting := domain.MeetingID(p.MeetingID)
	target := domain.SessionID(p.TargetSessionID)
	switch t {
	case domain.EvAllowSpeak:
		ctl.Coord.AllowSpeak(sid, meeting, target)
	case domain.EvDisallowSpeak:
		ctl.Coord.DisallowSpeak(sid, meeting, target)
	}
}

func (ctl *Controller) handleSelfMute(sid domain.SessionID, data []byte) {
	var p struct {
		MeetingID string `json:"meetingId"`
		Muted     *bool  `json:"muted"`
	}
	if !decode(sid, domain.EvSelfMute, data, &p) || p.MeetingID == "" || p.Muted == nil {
		return
	}
	ctl.Coord.SetSelfMute(sid, domain.MeetingID(p.MeetingID), *p.Muted)
}
