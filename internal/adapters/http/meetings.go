package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/cloudmeet/backend/internal/domain"
	"github.com/cloudmeet/backend/internal/store"
)

// MeetingStore is the slice of the durable store the HTTP layer needs.
type MeetingStore interface {
	CreateMeeting(title, hostName, password string) (domain.Meeting, error)
	GetMeetingByNumber(no string) (domain.Meeting, error)
	GetMeetingByID(id string) (domain.Meeting, error)
	SetMeetingStatus(id string, status domain.MeetingStatus) error
	AppendParticipant(meetingID, name string, isHost bool) (domain.ParticipantRecord, error)
	Participants(meetingID string) ([]domain.ParticipantRecord, error)
	ChatHistory(meetingID string) ([]domain.ChatRecord, error)
}

type MeetingHandlers struct {
	Store   MeetingStore
	started time.Time
}

func NewMeetingHandlers(st MeetingStore) *MeetingHandlers {
	return &MeetingHandlers{Store: st, started: time.Now()}
}

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"success": false, "message": msg})
}

// Create registers a new meeting and appends the host's participant record.
// Host status is established here, once, and passed explicitly at join time.
func (h *MeetingHandlers) Create(c *gin.Context) {
	var req struct {
		Title    string `json:"title" binding:"required"`
		HostName string `json:"hostName" binding:"required"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "title and hostName are required")
		return
	}

	meeting, err := h.Store.CreateMeeting(req.Title, req.HostName, req.Password)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create meeting")
		fail(c, http.StatusInternalServerError, "failed to create meeting")
		return
	}
	if _, err := h.Store.AppendParticipant(meeting.ID, req.HostName, true); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("meeting", meeting.ID).Msg("append host record")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"meetingId": meeting.ID,
			"meetingNo": meeting.Number,
			"title":     meeting.Title,
			"hostName":  meeting.HostName,
		},
	})
}

// Lookup resolves a meeting by its dial number, with the durable participant
// and chat history for late joiners.
func (h *MeetingHandlers) Lookup(c *gin.Context) {
	meeting, err := h.Store.GetMeetingByNumber(c.Param("meetingNo"))
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "meeting not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("lookup meeting")
		fail(c, http.StatusInternalServerError, "failed to look up meeting")
		return
	}

	participants, err := h.Store.Participants(meeting.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("meeting", meeting.ID).Msg("load participants")
	}
	chats, err := h.Store.ChatHistory(meeting.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("meeting", meeting.ID).Msg("load chat history")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"meeting": gin.H{
				"id":        meeting.ID,
				"meetingNo": meeting.Number,
				"title":     meeting.Title,
				"hostName":  meeting.HostName,
				"password":  meeting.Password != "",
				"status":    meeting.Status,
			},
			"participants": lo.Map(participants, func(p domain.ParticipantRecord, _ int) gin.H {
				return gin.H{"id": p.ID, "name": p.Name, "isHost": p.IsHost, "joinedAt": p.JoinedAt}
			}),
			"chats": chats,
		},
	})
}

// Join checks the password, records the participant and flips a waiting
// meeting to ongoing.
func (h *MeetingHandlers) Join(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "name is required")
		return
	}

	meeting, err := h.Store.GetMeetingByID(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "meeting not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("load meeting")
		fail(c, http.StatusInternalServerError, "failed to join meeting")
		return
	}
	if meeting.Password != "" && meeting.Password != req.Password {
		fail(c, http.StatusUnauthorized, "wrong meeting password")
		return
	}

	participant, err := h.Store.AppendParticipant(meeting.ID, req.Name, false)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("meeting", meeting.ID).Msg("append participant record")
		fail(c, http.StatusInternalServerError, "failed to join meeting")
		return
	}
	if meeting.Status == domain.MeetingWaiting {
		if err := h.Store.SetMeetingStatus(meeting.ID, domain.MeetingOngoing); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("meeting", meeting.ID).Msg("set meeting ongoing")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"participantId": participant.ID,
			"meetingNo":     meeting.Number,
		},
	})
}

func (h *MeetingHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Seconds(),
	})
}
