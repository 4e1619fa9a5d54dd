// Package store is the durable meeting-record collaborator, backed by
// BadgerDB. It holds meeting, participant and chat records only; live room
// state never touches it and never depends on it succeeding.
package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/domain"
)

var ErrNotFound = errors.New("record not found")

// chatHistoryLimit caps a single chat history read.
const chatHistoryLimit = 100

// Key layout:
//
//	meeting:{id}                      -> Meeting (JSON)
//	mno:{meetingNo}                   -> meeting id (index)
//	part:{meetingId}:{unixnano}:{uuid}-> ParticipantRecord (JSON)
//	chat:{meetingId}:{unixnano}:{uuid}-> ChatRecord (JSON)
//
// Timestamps are zero-padded to 19 digits so a prefix scan yields records in
// chronological order, with a uuid suffix as collision disconnector.
type Meetings struct {
	db *badger.DB
}

func NewMeetings(db *badger.DB) *Meetings {
	return &Meetings{db: db}
}

func meetingKey(id string) []byte { return []byte("meeting:" + id) }
func numberKey(no string) []byte  { return []byte("mno:" + no) }
func chronoKey(kind, meetingID string, at time.Time) []byte {
	return fmt.Appendf(nil, "%s:%s:%019d:%s", kind, meetingID, at.UnixNano(), uuid.NewString())
}

// CreateMeeting allocates an id and a unique 10-digit meeting number and
// persists the record with status waiting.
func (m *Meetings) CreateMeeting(title, hostName, password string) (domain.Meeting, error) {
	now := time.Now().UTC()
	meeting := domain.Meeting{
		ID:        uuid.NewString(),
		Title:     title,
		HostName:  hostName,
		Password:  password,
		Status:    domain.MeetingWaiting,
		StartedAt: now,
		CreatedAt: now,
	}
	err := m.db.Update(func(txn *badger.Txn) error {
		for {
			no := randomMeetingNo()
			if _, err := txn.Get(numberKey(no)); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			meeting.Number = no
			break
		}
		b, err := json.Marshal(meeting)
		if err != nil {
			return err
		}
		if err := txn.Set(meetingKey(meeting.ID), b); err != nil {
			return err
		}
		return txn.Set(numberKey(meeting.Number), []byte(meeting.ID))
	})
	if err != nil {
		return domain.Meeting{}, fmt.Errorf("create meeting: %w", err)
	}
	log.Info().Str("module", "store.meetings").Str("id", meeting.ID).Str("no", meeting.Number).Msg("meeting created")
	return meeting, nil
}

func (m *Meetings) GetMeetingByID(id string) (domain.Meeting, error) {
	var meeting domain.Meeting
	err := m.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, meetingKey(id), &meeting)
	})
	return meeting, err
}

func (m *Meetings) GetMeetingByNumber(no string) (domain.Meeting, error) {
	var meeting domain.Meeting
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(numberKey(no))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var id []byte
		if id, err = item.ValueCopy(nil); err != nil {
			return err
		}
		return getJSON(txn, meetingKey(string(id)), &meeting)
	})
	return meeting, err
}

// SetMeetingStatus updates the status, stamping the actual start or end time.
func (m *Meetings) SetMeetingStatus(id string, status domain.MeetingStatus) error {
	return m.db.Update(func(txn *badger.Txn) error {
		var meeting domain.Meeting
		if err := getJSON(txn, meetingKey(id), &meeting); err != nil {
			return err
		}
		meeting.Status = status
		now := time.Now().UTC()
		if status == domain.MeetingEnded {
			meeting.EndedAt = now
		} else {
			meeting.StartedAt = now
		}
		b, err := json.Marshal(meeting)
		if err != nil {
			return err
		}
		return txn.Set(meetingKey(id), b)
	})
}

func (m *Meetings) AppendParticipant(meetingID, name string, isHost bool) (domain.ParticipantRecord, error) {
	rec := domain.ParticipantRecord{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		Name:      name,
		IsHost:    isHost,
		JoinedAt:  time.Now().UTC(),
	}
	err := m.db.Update(func(txn *badger.Txn) error {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(chronoKey("part", meetingID, rec.JoinedAt), b)
	})
	if err != nil {
		return domain.ParticipantRecord{}, fmt.Errorf("append participant: %w", err)
	}
	return rec, nil
}

func (m *Meetings) Participants(meetingID string) ([]domain.ParticipantRecord, error) {
	var out []domain.ParticipantRecord
	err := m.scan("part:"+meetingID+":", 0, func(v []byte) error {
		var rec domain.ParticipantRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (m *Meetings) AppendChat(meetingID, sender, content string) (domain.ChatRecord, error) {
	rec := domain.ChatRecord{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		Sender:    sender,
		Content:   content,
		At:        time.Now().UTC(),
	}
	err := m.db.Update(func(txn *badger.Txn) error {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(chronoKey("chat", meetingID, rec.At), b)
	})
	if err != nil {
		return domain.ChatRecord{}, fmt.Errorf("append chat: %w", err)
	}
	return rec, nil
}

// ChatHistory returns the meeting's messages in chronological order, capped at
// chatHistoryLimit.
func (m *Meetings) ChatHistory(meetingID string) ([]domain.ChatRecord, error) {
	var out []domain.ChatRecord
	err := m.scan("chat:"+meetingID+":", chatHistoryLimit, func(v []byte) error {
		var rec domain.ChatRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// DeleteMeeting removes the meeting record and its number index. Deleting an
// absent meeting is a no-op.
func (m *Meetings) DeleteMeeting(id string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		var meeting domain.Meeting
		err := getJSON(txn, meetingKey(id), &meeting)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(numberKey(meeting.Number)); err != nil {
			return err
		}
		return txn.Delete(meetingKey(id))
	})
}

func (m *Meetings) DeleteParticipants(meetingID string) error {
	return m.deletePrefix("part:" + meetingID + ":")
}

func (m *Meetings) DeleteChats(meetingID string) error {
	return m.deletePrefix("chat:" + meetingID + ":")
}

func (m *Meetings) scan(prefix string, limit int, fn func([]byte) error) error {
	return m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		n := 0
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && n == limit {
				break
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
			n++
		}
		return nil
	})
}

func (m *Meetings) deletePrefix(prefix string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		p := []byte(prefix)
		var keys [][]byte
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(b []byte) error {
		return json.Unmarshal(b, v)
	})
}

// randomMeetingNo builds a 10-digit meeting number the way the dial pad
// expects it, first digit non-zero.
func randomMeetingNo() string {
	digits := make([]byte, 10)
	for i := range digits {
		max := int64(10)
		if i == 0 {
			max = 9
		}
		n, err := rand.Int(rand.Reader, big.NewInt(max))
		if err != nil {
			log.Panic().Err(err).Msg("random meeting number")
		}
		if i == 0 {
			digits[i] = byte('1' + n.Int64())
		} else {
			digits[i] = byte('0' + n.Int64())
		}
	}
	return string(digits)
}
