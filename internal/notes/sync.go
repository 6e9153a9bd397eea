package notes

import (
	"context"
	"log/slog"

	"github.com/aretw0/introspection"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetingnote/internal/auth"
	"github.com/jwulff/meetingnote/internal/errs"
	"github.com/jwulff/meetingnote/internal/notify"
)

// SnapshotMsg delivers one subscription snapshot to the event loop.
type SnapshotMsg struct {
	Snapshot Snapshot
	gen      uint64
	ch       <-chan Snapshot
}

// SubscribeErrorMsg is sent when opening the subscription fails.
type SubscribeErrorMsg struct {
	Err error
	gen uint64
}

// Sync keeps a local snapshot of the signed-in user's notes and passes
// writes through to the Store.
type Sync struct {
	store   Store
	notices notify.Sink
	log     *slog.Logger

	ctx       context.Context
	userID    string
	cancel    context.CancelFunc
	gen       uint64
	snapshot  []Note
	observers []func([]Note)
}

// NewSync creates a Sync. Subscriptions are scoped to ctx.
func NewSync(ctx context.Context, store Store, notices notify.Sink, log *slog.Logger) *Sync {
	if log == nil {
		log = slog.Default()
	}
	return &Sync{store: store, notices: notices, log: log, ctx: ctx}
}

// Observe registers fn to receive every new snapshot.
func (s *Sync) Observe(fn func([]Note)) {
	s.observers = append(s.observers, fn)
}

// Notes returns the current snapshot in store order.
func (s *Sync) Notes() []Note {
	return s.snapshot
}

// UserID returns the identity the subscription is keyed on.
func (s *Sync) UserID() string {
	return s.userID
}

// SetIdentity opens, replaces, or tears down the subscription.
func (s *Sync) SetIdentity(id auth.Identity) tea.Cmd {
	if id.UserID == s.userID {
		return nil
	}
	s.teardown()
	s.userID = id.UserID
	s.replace(nil)
	if !id.Present() {
		return nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	gen := s.gen
	store, userID := s.store, id.UserID
	s.log.Debug("opening note subscription", "user", userID, "gen", gen)
	return func() tea.Msg {
		ch, err := store.Subscribe(ctx, userID)
		if err != nil {
			return SubscribeErrorMsg{Err: err, gen: gen}
		}
		return waitSnapshot(gen, ch)()
	}
}

// Close tears the subscription down.
func (s *Sync) Close() {
	s.teardown()
}

func (s *Sync) teardown() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Update applies subscription messages. Messages from a torn-down
// subscription are dropped.
func (s *Sync) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case SnapshotMsg:
		if msg.gen != s.gen {
			return nil
		}
		if msg.Snapshot.Err != nil {
			s.reportError(msg.Snapshot.Err)
		} else {
			s.replace(msg.Snapshot.Notes)
		}
		return waitSnapshot(msg.gen, msg.ch)

	case SubscribeErrorMsg:
		if msg.gen != s.gen {
			return nil
		}
		s.reportError(msg.Err)
	}
	return nil
}

func (s *Sync) replace(notes []Note) {
	s.snapshot = notes
	for _, fn := range s.observers {
		fn(notes)
	}
}

func (s *Sync) reportError(err error) {
	s.log.Error("note subscription failed", "user", s.userID, "error", err)
	notify.Info(s.notices, "Could not load notes", "Could not fetch notes: "+errs.Message(errs.Store(err)))
}

// Create passes through to the store. It runs inside a command.
func (s *Sync) Create(ctx context.Context, f Fields) (string, error) {
	id, err := s.store.Create(ctx, f)
	if err != nil {
		return "", errs.Store(err)
	}
	s.log.Info("note created", "id", id)
	return id, nil
}

// Save passes an update through to the store. It runs inside a command.
func (s *Sync) Save(ctx context.Context, id string, f Fields) error {
	if err := s.store.Update(ctx, id, f); err != nil {
		return errs.Store(err)
	}
	s.log.Info("note updated", "id", id)
	return nil
}

// Delete passes through to the store. It runs inside a command.
func (s *Sync) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return errs.Store(err)
	}
	s.log.Info("note deleted", "id", id)
	return nil
}

// State implements introspection.Introspectable.
func (s *Sync) State() any {
	return SyncState{
		UserID:     s.userID,
		Subscribed: s.cancel != nil,
		Generation: s.gen,
		NoteCount:  len(s.snapshot),
	}
}

// ComponentType implements introspection.Component.
func (s *Sync) ComponentType() string {
	return "note-sync"
}

// SyncState exposes Sync internals for diagnostics.
type SyncState struct {
	UserID     string `json:"user_id"`
	Subscribed bool   `json:"subscribed"`
	Generation uint64 `json:"generation"`
	NoteCount  int    `json:"note_count"`
}

var _ introspection.Introspectable = (*Sync)(nil)
var _ introspection.Component = (*Sync)(nil)

func waitSnapshot(gen uint64, ch <-chan Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap, gen: gen, ch: ch}
	}
}
