package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/core"
)

// Sweeper is the room lifecycle manager: a periodic sweep that reclaims rooms
// left empty past the idle timeout, protected rooms excluded. It runs
// independently of any connection's control flow and takes the same locks as
// the event handlers.
type Sweeper struct {
	Rooms       *core.Registry
	Store       Store
	Interval    time.Duration
	IdleTimeout time.Duration
}

func NewSweeper(rooms *core.Registry, store Store, interval, idleTimeout time.Duration) *Sweeper {
	return &Sweeper{Rooms: rooms, Store: store, Interval: interval, IdleTimeout: idleTimeout}
}

func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	log.Info().Str("module", "app.sweeper").Dur("interval", s.Interval).Dur("idle_timeout", s.IdleTimeout).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return
		case now := <-t.C:
			s.Sweep(now)
		}
	}
}

// Sweep scans all rooms once and reclaims the eligible ones, deleting their
// durable records along with the live entry.
func (s *Sweeper) Sweep(now time.Time) {
	for _, room := range s.Rooms.Rooms() {
		id := room.MeetingID()
		if !s.Rooms.RemoveIfReclaimable(id, now, s.IdleTimeout) {
			continue
		}
		purgeRecords(s.Store, id)
	}
}
