package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/domain"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ping := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump routes inbound frames until the connection dies; teardown always
// goes through Disconnect, which is idempotent against an explicit leave that
// raced it.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sid domain.SessionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Coord.Disconnect(sid)
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.dispatch(sid, data)
		}
	}
}

// dispatch decodes the envelope and routes by type. A frame that does not
// parse, or a payload missing a required field, is dropped with no state
// change; nothing an inbound frame carries may crash the connection.
func (ctl *Controller) dispatch(sid domain.SessionID, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad frame")
		return
	}

	switch env.Type {
	case domain.EvJoinRoom:
		ctl.handleJoin(sid, env.Data)
	case domain.EvLeaveRoom:
		ctl.handleLeave(sid, env.Data)
	case domain.EvRaiseHand, domain.EvLowerHand, domain.EvMuteAll, domain.EvUnmuteAll, domain.EvEndMeeting:
		ctl.handleRoomAction(sid, env.Type, env.Data)
	case domain.EvAllowSpeak, domain.EvDisallowSpeak:
		ctl.handleTargetAction(sid, env.Type, env.Data)
	case domain.EvSelfMute:
		ctl.handleSelfMute(sid, env.Data)
	case domain.EvChatMessage:
		ctl.handleChat(sid, env.Data)
	case domain.EvBroadcastMsg:
		ctl.handleOpenBroadcast(sid, env.Data)
	case domain.EvOffer, domain.EvAnswer, domain.EvICECandidate:
		ctl.handleRelay(sid, env.Type, env.Data)
	default:
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("unknown signal")
	}
}

// decode unmarshals a payload and reports a structural error as a non-event.
func decode(sid domain.SessionID, t domain.EventType, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("type", string(t)).Msg("bad payload")
		return false
	}
	return true
}
