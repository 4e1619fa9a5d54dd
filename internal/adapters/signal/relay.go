package signal

import (
	"encoding/json"

	"github.com/cloudmeet/backend/internal/domain"
)

// handleRelay covers offer, answer and ice-candidate. The payload stays a raw
// blob end to end; only the addressing fields are read here.
func (ctl *Controller) handleRelay(sid domain.SessionID, t domain.EventType, data []byte) {
	var p struct {
		MeetingID       string          `json:"meetingId"`
		TargetSessionID string          `json:"targetSessionId"`
		Payload         json.RawMessage `json:"payload"`
	}
	if !decode(sid, t, data, &p) || p.TargetSessionID == "" || len(p.Payload) == 0 {
		return
	}
	ctl.Coord.Relay(t, sid, domain.SessionID(p.TargetSessionID), p.Payload)
}
