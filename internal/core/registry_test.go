package core

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudmeet/backend/internal/domain"
)

func TestRegistry_GetOrCreateIsLazyAndStable(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	_, ok := reg.Get("m1")
	req.False(ok)

	room := reg.GetOrCreate("m1")
	req.Same(room, reg.GetOrCreate("m1"))

	got, ok := reg.Get("m1")
	req.True(ok)
	req.Same(room, got)
	req.Len(reg.Rooms(), 1)
}

func TestRegistry_JoinAfterReclaimLandsInRegisteredRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	stale := reg.GetOrCreate("m1")
	req.True(reg.RemoveIfReclaimable("m1", time.Now().Add(2*time.Minute), time.Minute))

	room := reg.Join("m1", "s1", domain.NewParticipant("p1", "a", true), &captureConn{})

	cur, ok := reg.Get("m1")
	req.True(ok)
	req.Same(room, cur)
	req.NotSame(stale, room)
	req.Equal(1, room.Count())
	req.Equal(0, stale.Count())
}

// A join racing the sweeper must never strand the member in a room the
// registry no longer maps; the session would be bound to a meeting every
// later broadcast and leave silently misses.
func TestRegistry_JoinNeverLandsInReclaimedRoom(t *testing.T) {
	reg := NewRegistry()

	var (
		mu    sync.Mutex
		fails []string
	)
	report := func(msg string) {
		mu.Lock()
		fails = append(fails, msg)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.RemoveIfReclaimable("m1", time.Now().Add(time.Hour), time.Minute)
		}()
		go func(n int) {
			defer wg.Done()
			sid := domain.SessionID(fmt.Sprintf("s%d", n))
			room := reg.Join("m1", sid, domain.NewParticipant("p", "a", false), &captureConn{})
			if _, ok := room.Participant(sid); !ok {
				report("member missing from joined room")
			}
			// The member keeps the room occupied, so it must still be the
			// registered one.
			if cur, ok := reg.Get("m1"); !ok || cur != room {
				report("joined room is not the registered one")
			}
			room.Leave(sid)
		}(i)
	}
	wg.Wait()

	require.Empty(t, fails)
}

func TestRegistry_RemoveIfReclaimable(t *testing.T) {
	idle := time.Minute
	aged := time.Now().Add(2 * time.Minute)

	t.Run("empty idle room is reclaimed", func(t *testing.T) {
		req := require.New(t)
		reg := NewRegistry()
		reg.GetOrCreate("m1")

		req.True(reg.RemoveIfReclaimable("m1", aged, idle))
		_, ok := reg.Get("m1")
		req.False(ok)
	})

	t.Run("fresh room survives", func(t *testing.T) {
		req := require.New(t)
		reg := NewRegistry()
		reg.GetOrCreate("m1")

		req.False(reg.RemoveIfReclaimable("m1", time.Now(), idle))
	})

	t.Run("occupied room survives regardless of age", func(t *testing.T) {
		req := require.New(t)
		reg := NewRegistry()
		room := reg.GetOrCreate("m1")
		room.Join("s1", domain.NewParticipant("p1", "a", true), &captureConn{})
		// Activity refresh happens on join, so force the age check only
		// through occupancy by using a far-future now.
		req.False(reg.RemoveIfReclaimable("m1", aged.Add(time.Hour), idle))
	})

	t.Run("protected room is never reclaimed", func(t *testing.T) {
		req := require.New(t)
		reg := NewRegistry()
		reg.GetOrCreate("m1").MarkProtected()

		req.False(reg.RemoveIfReclaimable("m1", aged.Add(24*time.Hour), idle))
		_, ok := reg.Get("m1")
		req.True(ok)
	})

	t.Run("unknown room is a no-op", func(t *testing.T) {
		require.False(t, NewRegistry().RemoveIfReclaimable("nope", aged, idle))
	})

	t.Run("activity refresh restarts the idle clock", func(t *testing.T) {
		req := require.New(t)
		reg := NewRegistry()
		room := reg.GetOrCreate("m1")
		room.Join("s1", domain.NewParticipant("p1", "a", true), &captureConn{})
		room.Leave("s1")

		// Just emptied: not idle long enough yet.
		req.False(reg.RemoveIfReclaimable("m1", time.Now(), idle))
		req.True(reg.RemoveIfReclaimable("m1", aged, idle))
	})
}
