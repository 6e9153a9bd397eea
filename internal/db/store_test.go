package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwulff/meetingnote/internal/notes"
)

// openTestStore creates a Store on a fresh database file.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "notes.sqlite"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func recv(t *testing.T, ch <-chan notes.Snapshot) notes.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return notes.Snapshot{}
}

// waitFor receives snapshots until one satisfies ok.
func waitFor(t *testing.T, ch <-chan notes.Snapshot, what string, ok func(notes.Snapshot) bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap, open := <-ch:
			if !open {
				t.Fatalf("subscription closed waiting for %s", what)
			}
			if ok(snap) {
				return
			}
		case <-deadline:
			t.Fatalf("%s never delivered", what)
		}
	}
}

func TestCreateAndList(t *testing.T) {
	store := openTestStore(t)
	store.now = stepClock()
	ctx := context.Background()

	first, err := store.Create(ctx, notes.Fields{UserID: "u1", Title: "Kickoff", Date: "2026-01-01"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := store.Create(ctx, notes.Fields{UserID: "u1", Title: "Retro", Transcript: "សួស្តី"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, notes.Fields{UserID: "u2", Title: "Other"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d notes, want 2", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("order = [%s %s], want newest first [%s %s]", list[0].ID, list[1].ID, second, first)
	}
	if list[0].Transcript != "សួស្តី" {
		t.Errorf("transcript = %q, want %q", list[0].Transcript, "សួស្តី")
	}
	if !list[0].CreatedAt.Equal(list[0].UpdatedAt) {
		t.Errorf("createdAt %v != updatedAt %v on a fresh note", list[0].CreatedAt, list[0].UpdatedAt)
	}
}

func TestUpdateKeepsOwner(t *testing.T) {
	store := openTestStore(t)
	store.now = stepClock()
	ctx := context.Background()

	id, err := store.Create(ctx, notes.Fields{UserID: "u1", Title: "Draft"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Update(ctx, id, notes.Fields{UserID: "intruder", Title: "Final", Attendees: "Sok"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	n, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n.UserID != "u1" {
		t.Errorf("userId = %q, want %q", n.UserID, "u1")
	}
	if n.Title != "Final" || n.Attendees != "Sok" {
		t.Errorf("note = %+v, want updated title and attendees", n)
	}
	if !n.UpdatedAt.After(n.CreatedAt) {
		t.Errorf("updatedAt %v not after createdAt %v", n.UpdatedAt, n.CreatedAt)
	}
}

func TestMissingNote(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if err := store.Update(ctx, "nope", notes.Fields{Title: "x"}); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("Update error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "nope"); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestSubscribeDeliversChanges(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if snap := recv(t, ch); len(snap.Notes) != 0 || snap.Err != nil {
		t.Fatalf("initial snapshot = %+v, want empty", snap)
	}

	id, err := store.Create(ctx, notes.Fields{UserID: "u1", Title: "Live"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Watcher events may add extra snapshots; wait for the one with the note.
	waitFor(t, ch, "created note", func(snap notes.Snapshot) bool {
		return len(snap.Notes) == 1 && snap.Notes[0].ID == id
	})

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitFor(t, ch, "delete", func(snap notes.Snapshot) bool {
		return len(snap.Notes) == 0
	})
}

func TestSubscribeSeesOtherWriters(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	recv(t, ch)

	// A second connection, as another process would use.
	other, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open second connection: %v", err)
	}
	defer other.Close()
	if _, err := other.Exec(`INSERT INTO meeting_notes (`+noteColumns+`)
		VALUES ('ext-1', 'u1', 'From CLI', '', '', '', 1, 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	waitFor(t, ch, "external write", func(snap notes.Snapshot) bool {
		return len(snap.Notes) == 1 && snap.Notes[0].ID == "ext-1"
	})
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := store.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A snapshot may have been in flight; the next receive must see the close.
			if _, ok := <-ch; ok {
				t.Fatal("channel still open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 5, 1, 12, 30, 15, 500_000_000, time.UTC)
	out := timeFromUnix(unixFromTime(in))
	if d := out.Sub(in); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("round trip drifted by %v", d)
	}
}
