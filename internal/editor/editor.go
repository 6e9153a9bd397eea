// Package editor holds the note currently being edited and turns explicit
// save and delete commands into store writes.
package editor

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetingnote/internal/auth"
	"github.com/jwulff/meetingnote/internal/errs"
	"github.com/jwulff/meetingnote/internal/notes"
	"github.com/jwulff/meetingnote/internal/notify"
)

// Field names an editable note field.
type Field int

const (
	FieldTitle Field = iota
	FieldAttendees
	FieldDate
	FieldTranscript
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldAttendees:
		return "attendees"
	case FieldDate:
		return "date"
	case FieldTranscript:
		return "transcript"
	default:
		return "unknown"
	}
}

// Writer issues note writes. *notes.Sync satisfies it.
type Writer interface {
	Create(ctx context.Context, f notes.Fields) (string, error)
	Save(ctx context.Context, id string, f notes.Fields) error
	Delete(ctx context.Context, id string) error
}

// Discarder drops the live enrichment result.
type Discarder interface {
	Discard()
}

// SavedMsg reports the outcome of a save.
type SavedMsg struct {
	ID      string
	Created bool
	Err     error
	gen     uint64
}

// DeletedMsg reports the outcome of a delete.
type DeletedMsg struct {
	ID  string
	Err error
}

// Options configures an Editor.
type Options struct {
	// Now supplies the clock used for default dates.
	Now    func() time.Time
	Logger *slog.Logger
}

// Editor owns the in-memory note and its transcript buffer.
type Editor struct {
	writer   Writer
	notices  notify.Sink
	enrich   Discarder
	now      func() time.Time
	log      *slog.Logger
	ctx      context.Context
	identity auth.Identity

	id         string
	title      string
	attendees  string
	date       string
	transcript string

	// gen changes whenever the editor switches notes, so a create that
	// completes after the user moved on does not hijack the new note.
	gen    uint64
	saving bool
}

// New returns an Editor holding a fresh note. enrich may be nil.
func New(ctx context.Context, w Writer, notices notify.Sink, enrich Discarder, opts Options) *Editor {
	e := &Editor{
		writer:  w,
		notices: notices,
		enrich:  enrich,
		now:     opts.Now,
		log:     opts.Logger,
		ctx:     ctx,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	e.reset()
	return e
}

// SetIdentity records who saves are made for. A different user gets a
// fresh note so nothing of the previous user's note can be written back.
func (e *Editor) SetIdentity(id auth.Identity) {
	if id.UserID == e.identity.UserID {
		return
	}
	e.identity = id
	e.NewNote()
}

// ID returns the note id, or "" for an unsaved note.
func (e *Editor) ID() string { return e.id }

// Saving reports whether a save is in flight.
func (e *Editor) Saving() bool { return e.saving }

// Get returns the current value of f.
func (e *Editor) Get(f Field) string {
	switch f {
	case FieldTitle:
		return e.title
	case FieldAttendees:
		return e.attendees
	case FieldDate:
		return e.date
	case FieldTranscript:
		return e.transcript
	}
	return ""
}

// Transcript returns the transcript buffer.
func (e *Editor) Transcript() string { return e.transcript }

// Fields returns the editor contents as store fields, untrimmed.
func (e *Editor) Fields() notes.Fields {
	return notes.Fields{
		UserID:     e.identity.UserID,
		Title:      e.title,
		Attendees:  e.attendees,
		Date:       e.date,
		Transcript: e.transcript,
	}
}

// NewNote resets the editor to an unsaved note dated today.
func (e *Editor) NewNote() {
	e.reset()
	e.log.Debug("editor reset")
}

// LoadNote replaces the editor contents with n.
func (e *Editor) LoadNote(n notes.Note) {
	e.reset()
	e.id = n.ID
	e.title = n.Title
	e.attendees = n.Attendees
	if n.Date != "" {
		e.date = n.Date
	}
	e.transcript = n.Transcript
	e.log.Debug("note loaded", "id", n.ID)
}

func (e *Editor) reset() {
	e.gen++
	e.saving = false
	e.id = ""
	e.title = ""
	e.attendees = ""
	e.date = notes.Today(e.now())
	e.transcript = ""
	if e.enrich != nil {
		e.enrich.Discard()
	}
}

// SetField overwrites one field. Nothing is validated until Save.
func (e *Editor) SetField(f Field, value string) {
	switch f {
	case FieldTitle:
		e.title = value
	case FieldAttendees:
		e.attendees = value
	case FieldDate:
		e.date = value
	case FieldTranscript:
		e.transcript = value
	}
}

// BeginDictation clears the transcript and the enrichment result.
func (e *Editor) BeginDictation() {
	e.transcript = ""
	if e.enrich != nil {
		e.enrich.Discard()
	}
}

// AppendTranscript appends a committed dictation chunk.
func (e *Editor) AppendTranscript(chunk string) {
	e.transcript += chunk
}

// Save validates the note and returns the command that writes it. Invalid
// notes are reported and never reach the store.
func (e *Editor) Save() tea.Cmd {
	if !e.signedIn("Cannot save") {
		return nil
	}
	f := e.Fields().Trimmed()
	if f.Title == "" {
		err := errs.Validation("Please enter a title for your note.")
		notify.Info(e.notices, "Title required", err.Error())
		return nil
	}
	if e.saving {
		notify.Info(e.notices, "Saving", "A save is already in progress.")
		return nil
	}

	e.saving = true
	w, ctx, id, gen := e.writer, e.ctx, e.id, e.gen
	if id == "" {
		return func() tea.Msg {
			newID, err := w.Create(ctx, f)
			return SavedMsg{ID: newID, Created: true, Err: err, gen: gen}
		}
	}
	return func() tea.Msg {
		err := w.Save(ctx, id, f)
		return SavedMsg{ID: id, Err: err, gen: gen}
	}
}

// Delete asks for confirmation, then deletes note id.
func (e *Editor) Delete(id string) {
	if id == "" {
		return
	}
	if !e.signedIn("Cannot delete") {
		return
	}
	w, ctx := e.writer, e.ctx
	notify.Confirm(e.notices, "Confirm delete",
		"Are you sure you want to delete this note? This cannot be undone.",
		"Delete", func() tea.Cmd {
			// Sign-out may have happened while the confirmation was up.
			if !e.signedIn("Cannot delete") {
				return nil
			}
			return func() tea.Msg {
				return DeletedMsg{ID: id, Err: w.Delete(ctx, id)}
			}
		})
}

func (e *Editor) signedIn(title string) bool {
	if e.identity.Present() {
		return true
	}
	notify.Info(e.notices, title, "You are not signed in. Please try again.")
	return false
}

// Update applies save and delete completions.
func (e *Editor) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case SavedMsg:
		if msg.gen == e.gen {
			e.saving = false
		}
		if msg.Err != nil {
			e.log.Error("save failed", "id", msg.ID, "error", msg.Err)
			notify.Info(e.notices, "Problem", "Could not save the note: "+errs.Message(msg.Err))
			return nil
		}
		if msg.Created {
			if msg.gen == e.gen {
				e.id = msg.ID
			}
			notify.Info(e.notices, "Saved", "Your note was saved.")
			return nil
		}
		notify.Info(e.notices, "Updated", "Your note was updated.")

	case DeletedMsg:
		if msg.Err != nil {
			e.log.Error("delete failed", "id", msg.ID, "error", msg.Err)
			notify.Info(e.notices, "Delete failed", "Could not delete the note: "+errs.Message(msg.Err))
			return nil
		}
		notify.Info(e.notices, "Deleted", "The note was deleted.")
		if msg.ID == e.id {
			e.NewNote()
		}
	}
	return nil
}
