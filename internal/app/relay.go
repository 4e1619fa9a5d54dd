package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/core"
	"github.com/cloudmeet/backend/internal/domain"
)

// Relay forwards an addressed negotiation payload (offer, answer or
// connectivity candidate) verbatim to the named target session. The payload is
// an opaque blob owned by the clients' media-transport layer; it is never
// inspected or validated here. A missing target means the peer already
// disconnected — negotiation is inherently racy against departure, so the
// message is silently dropped and the sender's own connection-state monitoring
// handles cleanup.
func (c *Coordinator) Relay(t domain.EventType, from, target domain.SessionID, payload json.RawMessage) {
	conn, ok := c.Sessions.Lookup(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("event", string(t)).Str("target", string(target)).Msg("relay target gone, dropped")
		return
	}
	b, err := domain.Encode(t, struct {
		From    domain.SessionID `json:"from"`
		Payload json.RawMessage  `json:"payload"`
	}{from, payload})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("event", string(t)).Msg("relay encode")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("target", string(target)).Msg("relay send dropped")
	}
}
