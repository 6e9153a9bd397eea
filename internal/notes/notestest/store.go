// Package notestest provides an in-memory notes.Store for tests.
package notestest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jwulff/meetingnote/internal/notes"
)

// Call records one write against the Store.
type Call struct {
	Op     string
	ID     string
	Fields notes.Fields
}

// Store keeps notes in memory and records every write. Snapshots are pushed
// to subscribers after each successful write, newest note first.
type Store struct {
	mu     sync.Mutex
	notes  []notes.Note
	calls  []Call
	subs   map[chan notes.Snapshot]string
	nextID int
	now    func() time.Time

	// Err, when set, fails the next write with it.
	Err error
	// SubscribeErr, when set, fails Subscribe.
	SubscribeErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{subs: make(map[chan notes.Snapshot]string), now: time.Now}
}

// Seed installs notes as-is, in the given order.
func (s *Store) Seed(ns ...notes.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, ns...)
}

// Calls returns the writes made so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Ops returns the operation names of the writes made so far.
func (s *Store) Ops() []string {
	var ops []string
	for _, c := range s.Calls() {
		ops = append(ops, c.Op)
	}
	return ops
}

// Get returns the stored note with id.
func (s *Store) Get(id string) (notes.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n, true
		}
	}
	return notes.Note{}, false
}

// PushError delivers an error snapshot to every subscriber.
func (s *Store) PushError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		deliver(ch, notes.Snapshot{Err: err})
	}
}

func (s *Store) Subscribe(ctx context.Context, userID string) (<-chan notes.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}
	ch := make(chan notes.Snapshot, 16)
	s.subs[ch] = userID
	ch <- notes.Snapshot{Notes: s.forUser(userID)}
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *Store) Create(ctx context.Context, f notes.Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "create", Fields: f})
	if err := s.takeErr(); err != nil {
		return "", err
	}
	s.nextID++
	now := s.now()
	n := notes.Note{
		ID:         fmt.Sprintf("note-%d", s.nextID),
		UserID:     f.UserID,
		Title:      f.Title,
		Attendees:  f.Attendees,
		Date:       f.Date,
		Transcript: f.Transcript,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.notes = append([]notes.Note{n}, s.notes...)
	s.broadcast()
	return n.ID, nil
}

func (s *Store) Update(ctx context.Context, id string, f notes.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "update", ID: id, Fields: f})
	if err := s.takeErr(); err != nil {
		return err
	}
	for i, n := range s.notes {
		if n.ID == id {
			n.Title, n.Attendees, n.Date, n.Transcript = f.Title, f.Attendees, f.Date, f.Transcript
			n.UpdatedAt = s.now()
			s.notes[i] = n
			s.broadcast()
			return nil
		}
	}
	return fmt.Errorf("note %s not found", id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "delete", ID: id})
	if err := s.takeErr(); err != nil {
		return err
	}
	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			s.broadcast()
			return nil
		}
	}
	return fmt.Errorf("note %s not found", id)
}

func (s *Store) takeErr() error {
	err := s.Err
	s.Err = nil
	return err
}

func (s *Store) forUser(userID string) []notes.Note {
	var out []notes.Note
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) broadcast() {
	for ch, userID := range s.subs {
		deliver(ch, notes.Snapshot{Notes: s.forUser(userID)})
	}
}

// deliver sends snap, evicting the oldest queued snapshot when the buffer
// is full so the newest one always arrives.
func deliver(ch chan notes.Snapshot, snap notes.Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

var _ notes.Store = (*Store)(nil)
