package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jwulff/meetingnote/internal/notes"
)

const debounce = 50 * time.Millisecond

// Store keeps meeting notes in a SQLite database and serves live
// subscriptions over them. Changes made by other processes are picked up
// by watching the database files.
type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger
	now  func() time.Time

	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	watcher  *fsnotify.Watcher
	watching bool
}

type subscriber struct {
	userID string
	kick   chan struct{}
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "meetingnote", "notes.sqlite")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "meetingnote", "notes.sqlite")
}

// Open opens (creating if needed) the database at path in WAL mode and
// applies the schema.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:   db,
		path: path,
		log:  log.With("component", "db"),
		now:  time.Now,
		subs: make(map[*subscriber]struct{}),
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close stops the file watcher and closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	s.mu.Unlock()
	return s.db.Close()
}

// List returns the user's notes, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]notes.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM meeting_notes
		WHERE userId = ?
		ORDER BY createdAt DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	ns, err := scanNotes(rows)
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	return ns, nil
}

// Get returns one note by id.
func (s *Store) Get(ctx context.Context, id string) (notes.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+noteColumns+`
		FROM meeting_notes
		WHERE id = ?
	`, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notes.Note{}, fmt.Errorf("note %s: %w", id, notes.ErrNotFound)
		}
		return notes.Note{}, fmt.Errorf("scan note: %w", err)
	}
	return n, nil
}

// Create inserts a note with a fresh id and returns the id.
func (s *Store) Create(ctx context.Context, f notes.Fields) (string, error) {
	id := uuid.NewString()
	now := unixFromTime(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meeting_notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, f.UserID, f.Title, f.Attendees, f.Date, f.Transcript, now, now)
	if err != nil {
		return "", fmt.Errorf("insert note: %w", err)
	}
	s.changed()
	return id, nil
}

// Update overwrites the editable fields of note id. The owner is never changed.
func (s *Store) Update(ctx context.Context, id string, f notes.Fields) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE meeting_notes
		SET title = ?, attendees = ?, date = ?, transcript = ?, updatedAt = ?
		WHERE id = ?
	`, f.Title, f.Attendees, f.Date, f.Transcript, unixFromTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	s.changed()
	return nil
}

// Delete removes note id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meeting_notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	s.changed()
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("note %s: %w", id, notes.ErrNotFound)
	}
	return nil
}

// Subscribe delivers the user's notes now and after every change until ctx
// is done.
func (s *Store) Subscribe(ctx context.Context, userID string) (<-chan notes.Snapshot, error) {
	if err := s.ensureWatcher(); err != nil {
		// Local writes still notify; only cross-process changes are missed.
		s.log.Warn("database watcher unavailable", "error", err)
	}

	sub := &subscriber{userID: userID, kick: make(chan struct{}, 1)}
	sub.kick <- struct{}{}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	out := make(chan notes.Snapshot, 1)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sub.kick:
			}
			ns, err := s.List(ctx, userID)
			if ctx.Err() != nil {
				return nil
			}
			select {
			case out <- notes.Snapshot{Notes: ns, Err: err}:
			case <-ctx.Done():
				return nil
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		s.log.Error("subscription panic", "user", userID, "error", err)
	}))
	return out, nil
}

// changed wakes every subscriber. Kicks coalesce: a subscriber that is busy
// delivering will re-query once more, not once per write.
func (s *Store) changed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
}

func (s *Store) ensureWatcher() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watching {
		return nil
	}
	s.watching = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = watcher

	lifecycle.Go(context.Background(), func(ctx context.Context) error {
		return s.watch(watcher)
	}, lifecycle.WithErrorHandler(func(err error) {
		s.log.Error("database watcher failed", "error", err)
	}))
	return nil
}

// watch runs until the watcher is closed.
func (s *Store) watch(w *fsnotify.Watcher) error {
	base := filepath.Base(s.path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, s.changed)
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("database watcher error", "error", err)
		}
	}
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreState{
		Path:        s.path,
		Subscribers: len(s.subs),
		Watching:    s.watcher != nil,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "sqlite-store"
}

// StoreState is the diagnostic view of a Store.
type StoreState struct {
	Path        string `json:"path"`
	Subscribers int    `json:"subscribers"`
	Watching    bool   `json:"watching"`
}

var (
	_ notes.Store                  = (*Store)(nil)
	_ notes.Reader                 = (*Store)(nil)
	_ introspection.Introspectable = (*Store)(nil)
	_ introspection.Component      = (*Store)(nil)
)
