package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetingnote/internal/auth"
	"github.com/jwulff/meetingnote/internal/dictation"
	"github.com/jwulff/meetingnote/internal/editor"
	"github.com/jwulff/meetingnote/internal/enrich"
	"github.com/jwulff/meetingnote/internal/notes"
	"github.com/jwulff/meetingnote/internal/notes/notestest"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)

type fakeEngine struct {
	starts, stops int
	startErr      error
	events        chan dictation.Event
}

func (e *fakeEngine) Start(string) error {
	e.starts++
	return e.startErr
}

func (e *fakeEngine) Stop() error {
	e.stops++
	return nil
}

func (e *fakeEngine) Events() <-chan dictation.Event { return e.events }

type fakeEnricher struct{ err error }

func (f fakeEnricher) Summarize(ctx context.Context, t string) (string, error) {
	return "**Summary**: " + t, f.err
}

func (f fakeEnricher) ExtractActionItems(ctx context.Context, t string) (string, error) {
	return "- call Dara", f.err
}

func newTestModel(t *testing.T, engine dictation.Engine, svc enrich.Service) (Model, *notestest.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	store := notestest.New()
	store.Seed(
		notes.Note{ID: "c", UserID: "u1", Title: "Weekly sync", Date: "2026-03-10", Transcript: "old"},
		notes.Note{ID: "a", UserID: "u1", Title: "Planning", Date: "2026-03-05"},
		notes.Note{ID: "b", UserID: "u1", Title: "Retro", Date: "2026-03-01"},
	)
	m := New(ctx, Deps{
		Auth:     auth.NewSession(nil, nil),
		Store:    store,
		Engine:   engine,
		Enricher: svc,
		Now:      func() time.Time { return fixedNow },
		Language: "km-KH",
	})
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, store
}

// signIn delivers an identity change and the first snapshot it triggers.
func signIn(t *testing.T, m Model, userID string) Model {
	t.Helper()
	m, cmd := applyUpdate(m, auth.ChangedMsg{Identity: auth.Identity{UserID: userID}})
	return run(m, cmd)
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// run executes cmd once and feeds its message back. Follow-up commands are
// dropped; they are pumps that would block on their channels.
func run(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = run(m, c)
		}
		return m
	}
	if msg == nil {
		return m
	}
	m, _ = applyUpdate(m, msg)
	return m
}

func press(m Model, key tea.KeyType) (Model, tea.Cmd) {
	return applyUpdate(m, tea.KeyMsg{Type: key})
}

func typeText(m Model, s string) Model {
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func noticeTitle(m Model) string {
	n, ok := m.notices.Current()
	if !ok {
		return ""
	}
	return n.Title
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)

	if m.focus != FocusTitle {
		t.Errorf("focus = %v, want title", m.focus)
	}
	if got := m.date.Value(); got != "2026-03-14" {
		t.Errorf("date = %q, want today", got)
	}
	if m.editor.ID() != "" {
		t.Errorf("new model has note id %q", m.editor.ID())
	}
}

func TestViewBeforeResize(t *testing.T) {
	ctx := context.Background()
	m := New(ctx, Deps{Store: notestest.New()})
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q", got)
	}
}

func TestSignInFillsSidebar(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m = signIn(t, m, "u1")

	got := m.visibleNotes()
	if len(got) != 3 {
		t.Fatalf("notes = %d, want 3", len(got))
	}
	for i, want := range []string{"c", "a", "b"} {
		if got[i].ID != want {
			t.Errorf("notes[%d] = %q, want %q (store order)", i, got[i].ID, want)
		}
	}
	view := m.View()
	for _, title := range []string{"Weekly sync", "Planning", "Retro", "2026-03-10"} {
		if !strings.Contains(view, title) {
			t.Errorf("view missing %q", title)
		}
	}
}

func TestSignOutClearsSidebar(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m = signIn(t, m, "u1")
	m, _ = applyUpdate(m, auth.ChangedMsg{Identity: auth.Identity{}})

	if n := len(m.visibleNotes()); n != 0 {
		t.Errorf("notes = %d after sign-out, want 0", n)
	}
	if !strings.Contains(m.View(), "Signed out.") {
		t.Error("view should say signed out")
	}
}

func TestTypingWritesEditor(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m = typeText(m, "Kickoff")
	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "Sok, Dara")

	if got := m.editor.Get(editor.FieldTitle); got != "Kickoff" {
		t.Errorf("title = %q", got)
	}
	if got := m.editor.Get(editor.FieldAttendees); got != "Sok, Dara" {
		t.Errorf("attendees = %q", got)
	}
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	m, store := newTestModel(t, nil, nil)
	m = signIn(t, m, "u1")
	m = typeText(m, "Kickoff")

	m, cmd := press(m, tea.KeyCtrlS)
	m = run(m, cmd)

	if m.editor.ID() != "note-1" {
		t.Fatalf("id = %q, want note-1", m.editor.ID())
	}
	if got := noticeTitle(m); got != "Saved" {
		t.Errorf("notice = %q, want Saved", got)
	}

	m, _ = press(m, tea.KeyEnter) // dismiss
	m, cmd = press(m, tea.KeyCtrlS)
	m = run(m, cmd)

	ops := store.Ops()
	if len(ops) != 2 || ops[0] != "create" || ops[1] != "update" {
		t.Errorf("ops = %v, want [create update]", ops)
	}
	if got := noticeTitle(m); got != "Updated" {
		t.Errorf("notice = %q, want Updated", got)
	}
}

func TestSaveWithoutTitle(t *testing.T) {
	m, store := newTestModel(t, nil, nil)
	m = signIn(t, m, "u1")
	m = typeText(m, "   ")

	m, cmd := press(m, tea.KeyCtrlS)

	if cmd != nil {
		t.Error("blank title should not produce a write")
	}
	if got := noticeTitle(m); got != "Title required" {
		t.Errorf("notice = %q", got)
	}
	if len(store.Calls()) != 0 {
		t.Errorf("calls = %v, want none", store.Ops())
	}
}

func TestNoticeCapturesKeys(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m, _ = press(m, tea.KeyCtrlS) // signed out: "Cannot save"
	if !m.notices.Visible() {
		t.Fatal("expected a notice")
	}

	m = typeText(m, "x")
	if got := m.editor.Get(editor.FieldTitle); got != "" {
		t.Errorf("title = %q, keys should not reach the editor under a notice", got)
	}
	if !strings.Contains(m.View(), "Cannot save") {
		t.Error("view should render the notice")
	}

	m, _ = press(m, tea.KeyEsc)
	if m.notices.Visible() {
		t.Error("esc should dismiss the notice")
	}
}

func TestDeleteConfirmed(t *testing.T) {
	m, store := newTestModel(t, nil, nil)
	m = signIn(t, m, "u1")
	m, _ = press(m, tea.KeyShiftTab) // sidebar
	if m.focus != FocusSidebar {
		t.Fatalf("focus = %v, want sidebar", m.focus)
	}
	m, _ = press(m, tea.KeyEnter)
	if m.editor.ID() != "c" {
		t.Fatalf("loaded %q, want c", m.editor.ID())
	}
	if m.title.Value() != "Weekly sync" {
		t.Errorf("title widget = %q", m.title.Value())
	}

	m, _ = press(m, tea.KeyCtrlD)
	if got := noticeTitle(m); got != "Confirm delete" {
		t.Fatalf("notice = %q, want confirmation", got)
	}
	m, cmd := applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	m = run(m, cmd)

	if ops := store.Ops(); len(ops) != 1 || ops[0] != "delete" {
		t.Errorf("ops = %v, want [delete]", ops)
	}
	if m.editor.ID() != "" || m.title.Value() != "" {
		t.Errorf("editor not reset after deleting the open note: id=%q title=%q", m.editor.ID(), m.title.Value())
	}
	if got := noticeTitle(m); got != "Deleted" {
		t.Errorf("notice = %q, want Deleted", got)
	}
}

func TestDeleteDeclined(t *testing.T) {
	m, store := newTestModel(t, nil, nil)
	m = signIn(t, m, "u1")
	m, _ = press(m, tea.KeyShiftTab)
	m, _ = press(m, tea.KeyDown)

	m, _ = press(m, tea.KeyCtrlD)
	m, cmd := applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})

	if cmd != nil {
		t.Error("declining should not produce a command")
	}
	if m.notices.Visible() {
		t.Error("notice should be dismissed")
	}
	if len(store.Calls()) != 0 {
		t.Errorf("ops = %v, want none", store.Ops())
	}
}

func TestDeleteUnsavedNote(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m, _ = press(m, tea.KeyCtrlD)
	if got := noticeTitle(m); got != "Nothing to delete" {
		t.Errorf("notice = %q", got)
	}
}

func TestSidebarFilter(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m = signIn(t, m, "u1")
	m, _ = press(m, tea.KeyShiftTab)
	m = typeText(m, "/")
	if !m.filtering {
		t.Fatal("slash should start filtering")
	}
	m = typeText(m, "retro")
	m, _ = press(m, tea.KeyEnter)

	got := m.visibleNotes()
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("filtered = %+v, want only b", got)
	}
	m, _ = press(m, tea.KeyEnter)
	if m.editor.ID() != "b" {
		t.Errorf("enter loaded %q, want b", m.editor.ID())
	}
}

func TestRecordAppendsFinals(t *testing.T) {
	engine := &fakeEngine{events: make(chan dictation.Event)}
	m, _ := newTestModel(t, engine, nil)
	m, _ = press(m, tea.KeyTab) // attendees
	m, _ = press(m, tea.KeyTab) // date
	m, _ = press(m, tea.KeyTab) // transcript
	m = typeText(m, "draft")

	m, cmd := press(m, tea.KeyCtrlR)
	if !m.dictation.Listening() {
		t.Fatal("ctrl+r should start listening")
	}
	if engine.starts != 0 {
		t.Error("engine started inside Update; it must run in the returned command")
	}
	m = run(m, cmd)
	if engine.starts != 1 || !m.dictation.Listening() {
		t.Errorf("starts=%d listening=%v after start command", engine.starts, m.dictation.Listening())
	}
	if m.transcript.Value() != "" {
		t.Errorf("transcript = %q, start should clear it", m.transcript.Value())
	}
	if !strings.Contains(m.View(), "Listening...") {
		t.Error("status line should show listening")
	}

	m, _ = applyUpdate(m, dictation.EngineMsg{Event: dictation.Event{
		Kind:    dictation.EventResult,
		Results: []dictation.Result{{Transcript: "សួស្តី", Final: true}, {Transcript: "ក", Final: false}},
	}})
	if got, want := m.transcript.Value(), "សួស្តី។ "; got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}

	m, cmd = press(m, tea.KeyCtrlR)
	m = run(m, cmd)
	if m.dictation.Listening() || engine.stops != 1 {
		t.Errorf("listening=%v stops=%d after second ctrl+r", m.dictation.Listening(), engine.stops)
	}
}

func TestRecordUnsupported(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m, _ = press(m, tea.KeyCtrlR)
	if got := noticeTitle(m); got != "Feature unavailable" {
		t.Errorf("notice = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	m, _ := newTestModel(t, nil, fakeEnricher{})
	m, _ = press(m, tea.KeyShiftTab) // sidebar
	m, _ = press(m, tea.KeyShiftTab) // transcript
	m = typeText(m, "កិច្ចប្រជុំបានចប់។")

	m, cmd := press(m, tea.KeyCtrlT)
	if !m.enrich.Loading() {
		t.Fatal("summary should be pending")
	}
	if !strings.Contains(m.View(), "MEETING SUMMARY") {
		t.Error("view should show the pending label")
	}
	m = run(m, cmd)

	res, ok := m.enrich.Result()
	if !ok || res.Status != enrich.StatusReady {
		t.Fatalf("result = %+v, want ready", res)
	}
	if !strings.Contains(m.View(), "កិច្ចប្រជុំបានចប់។") {
		t.Error("view should show the summary")
	}
}

func TestSummarizeReplacedByActionItems(t *testing.T) {
	m, _ := newTestModel(t, nil, fakeEnricher{})
	m.editor.SetField(editor.FieldTranscript, "notes")

	m, first := press(m, tea.KeyCtrlT)
	m, second := press(m, tea.KeyCtrlL)
	m = run(m, second)
	m = run(m, first)

	res, _ := m.enrich.Result()
	if res.Kind != enrich.KindActionItems || res.Content != "- call Dara" {
		t.Errorf("result = %+v, want action items", res)
	}
}

func TestSummarizeBlankTranscript(t *testing.T) {
	m, _ := newTestModel(t, nil, fakeEnricher{})
	m, cmd := press(m, tea.KeyCtrlT)
	if cmd != nil {
		t.Error("blank transcript should not call the service")
	}
	if got := noticeTitle(m); got != "Transcript required" {
		t.Errorf("notice = %q", got)
	}
}

func TestSignOutErrorNotifies(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m, _ = applyUpdate(m, AuthActionMsg{SignOut: true, Err: errors.New("disk full")})
	if got := noticeTitle(m); got != "Sign-out problem" {
		t.Errorf("notice = %q", got)
	}
}

func TestQuit(t *testing.T) {
	engine := &fakeEngine{events: make(chan dictation.Event)}
	m, _ := newTestModel(t, engine, nil)
	m, _ = press(m, tea.KeyCtrlR)

	_, cmd := press(m, tea.KeyCtrlC)
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should return tea.Quit")
	}
	if engine.stops != 1 {
		t.Errorf("stops = %d, quitting must stop live capture", engine.stops)
	}
}
