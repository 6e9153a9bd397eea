// Package app is the bubbletea root model. It owns the controllers, routes
// every message to them on the single event-loop goroutine, and renders the
// sidebar, editor, enrichment panel and notice modal.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwulff/meetingnote/internal/auth"
	"github.com/jwulff/meetingnote/internal/dictation"
	"github.com/jwulff/meetingnote/internal/editor"
	"github.com/jwulff/meetingnote/internal/enrich"
	"github.com/jwulff/meetingnote/internal/errs"
	"github.com/jwulff/meetingnote/internal/notes"
	"github.com/jwulff/meetingnote/internal/notify"
	"github.com/jwulff/meetingnote/internal/ui"
)

// Focus tracks which pane or field has keyboard focus.
type Focus int

const (
	FocusSidebar Focus = iota
	FocusTitle
	FocusAttendees
	FocusDate
	FocusTranscript
	focusCount
)

// field maps an editor-pane focus to the editor field it edits.
func (f Focus) field() (editor.Field, bool) {
	switch f {
	case FocusTitle:
		return editor.FieldTitle, true
	case FocusAttendees:
		return editor.FieldAttendees, true
	case FocusDate:
		return editor.FieldDate, true
	case FocusTranscript:
		return editor.FieldTranscript, true
	}
	return 0, false
}

// Deps are the collaborators the model is built from. A nil Engine makes
// dictation unsupported; a nil Enricher makes enrichment unavailable.
type Deps struct {
	Auth     *auth.Session
	Store    notes.Store
	Engine   dictation.Engine
	Enricher enrich.Service
	Format   enrich.Formatter

	Language      string
	Delimiter     string
	EnrichTimeout time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// Model is the root bubbletea model for the meetingnote TUI.
type Model struct {
	ctx context.Context
	log *slog.Logger

	auth      *auth.Session
	sync      *notes.Sync
	editor    *editor.Editor
	dictation *dictation.Session
	enrich    *enrich.Controller
	notices   *notify.Center

	// Editor widgets mirror the editor's fields.
	title      textinput.Model
	attendees  textinput.Model
	date       textinput.Model
	transcript textarea.Model

	// Sidebar
	filter    textinput.Model
	filtering bool
	selected  int

	focus  Focus
	width  int
	height int
}

// New wires the controllers together. Requests are scoped to ctx.
func New(ctx context.Context, d Deps) Model {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	notices := notify.NewCenter(log.With("component", "notify"))
	sync := notes.NewSync(ctx, d.Store, notices, log.With("component", "sync"))
	enr := enrich.NewController(ctx, d.Enricher, d.Format, notices, enrich.Options{
		Timeout: d.EnrichTimeout,
		Logger:  log.With("component", "enrich"),
	})
	ed := editor.New(ctx, sync, notices, enr, editor.Options{
		Now:    d.Now,
		Logger: log.With("component", "editor"),
	})
	dict := dictation.NewSession(d.Engine, ed, notices, dictation.Options{
		Language:  d.Language,
		Delimiter: d.Delimiter,
		Logger:    log.With("component", "dictation"),
	})

	session := d.Auth
	if session == nil {
		session = auth.NewSession(nil, log)
	}
	session.OnChange(func(id auth.Identity) tea.Cmd {
		ed.SetIdentity(id)
		return sync.SetIdentity(id)
	})

	m := Model{
		ctx:        ctx,
		log:        log,
		auth:       session,
		sync:       sync,
		editor:     ed,
		dictation:  dict,
		enrich:     enr,
		notices:    notices,
		title:      newInput("Meeting title"),
		attendees:  newInput("Who attended?"),
		date:       newInput(notes.DateLayout),
		transcript: newTranscript(),
		filter:     newInput("filter"),
		focus:      FocusTitle,
	}
	m.filter.Prompt = "/ "
	m.title.Focus()
	m.pullFields()
	return m
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	return ti
}

func newTranscript() textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Dictate or type the transcript..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	return ta
}

// Init subscribes to sign-in changes and starts the dictation pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.auth.Init(m.ctx), m.dictation.Init(), textinput.Blink)
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		m.pullFields()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case AuthActionMsg:
		if msg.Err != nil {
			title := "Sign-in problem"
			if msg.SignOut {
				title = "Sign-out problem"
			}
			notify.Info(m.notices, title, errs.Message(msg.Err))
		}
		return m, nil
	}

	cmds := []tea.Cmd{
		m.auth.Update(msg),
		m.sync.Update(msg),
		m.editor.Update(msg),
		m.dictation.Update(msg),
		m.enrich.Update(msg),
		m.updateFocused(msg),
	}
	m.clampSelection()
	m.pullFields()
	return m, tea.Batch(cmds...)
}

// handleKey processes key presses. A visible notice captures every key.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		return m, m.quit()
	}
	if m.notices.Visible() {
		return m, m.handleNoticeKey(key)
	}

	switch key {
	case KeyRecord:
		cmd := m.dictation.Toggle()
		return m, cmd
	case KeySave:
		return m, m.editor.Save()
	case KeyNew:
		m.editor.NewNote()
		cmd := m.setFocus(FocusTitle)
		return m, cmd
	case KeyDelete:
		m.deleteTarget()
		return m, nil
	case KeySummarize:
		return m, m.enrich.Enrich(m.editor.Transcript(), enrich.KindSummary)
	case KeyActionItems:
		return m, m.enrich.Enrich(m.editor.Transcript(), enrich.KindActionItems)
	case KeySignInOut:
		return m, m.toggleSignIn()
	case KeyTab:
		if !m.filtering {
			cmd := m.setFocus((m.focus + 1) % focusCount)
			return m, cmd
		}
	case KeyShiftTab:
		if !m.filtering {
			cmd := m.setFocus((m.focus + focusCount - 1) % focusCount)
			return m, cmd
		}
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}
	var cmd tea.Cmd
	if key == KeyEsc {
		cmd = m.setFocus(FocusSidebar)
	} else {
		cmd = m.updateFocused(msg)
	}
	return m, cmd
}

func (m Model) handleNoticeKey(key string) tea.Cmd {
	n, _ := m.notices.Current()
	if n.Confirmation {
		switch key {
		case KeyYes, KeyEnter:
			return m.notices.Accept()
		case KeyNo, KeyEsc:
			m.notices.Dismiss()
		}
		return nil
	}
	switch key {
	case KeyEnter, KeyEsc, " ":
		m.notices.Dismiss()
	}
	return nil
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()
	if m.filtering {
		switch key {
		case KeyEsc:
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.selected = 0
			return m, nil
		case KeyEnter:
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.selected = 0
		return m, cmd
	}

	visible := m.visibleNotes()
	switch key {
	case KeyQuit:
		return m, m.quit()
	case KeyFilter:
		m.filtering = true
		cmd := m.filter.Focus()
		return m, cmd
	case KeyUp, KeyK:
		if m.selected > 0 {
			m.selected--
		}
	case KeyDown, KeyJ:
		if m.selected < len(visible)-1 {
			m.selected++
		}
	case KeyEnter:
		if m.selected < len(visible) {
			m.editor.LoadNote(visible[m.selected])
		}
	case KeyEsc:
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.selected = 0
		}
	}
	return m, nil
}

// deleteTarget asks to delete the sidebar selection when the sidebar has
// focus, otherwise the note open in the editor.
func (m Model) deleteTarget() {
	id := m.editor.ID()
	if m.focus == FocusSidebar {
		if visible := m.visibleNotes(); m.selected < len(visible) {
			id = visible[m.selected].ID
		}
	}
	if id == "" {
		notify.Info(m.notices, "Nothing to delete", "This note has not been saved yet.")
		return
	}
	m.editor.Delete(id)
}

func (m Model) toggleSignIn() tea.Cmd {
	session := m.auth
	if session.Identity().Present() {
		return func() tea.Msg {
			return AuthActionMsg{SignOut: true, Err: session.SignOut()}
		}
	}
	return func() tea.Msg {
		return AuthActionMsg{Err: session.SignIn()}
	}
}

func (m Model) quit() tea.Cmd {
	m.dictation.Close()
	m.sync.Close()
	return tea.Quit
}

// setFocus moves keyboard focus, blurring the previous widget.
func (m *Model) setFocus(f Focus) tea.Cmd {
	m.title.Blur()
	m.attendees.Blur()
	m.date.Blur()
	m.transcript.Blur()
	m.focus = f
	switch f {
	case FocusTitle:
		return m.title.Focus()
	case FocusAttendees:
		return m.attendees.Focus()
	case FocusDate:
		return m.date.Focus()
	case FocusTranscript:
		return m.transcript.Focus()
	}
	return nil
}

// updateFocused forwards msg to the focused widget and writes its value back
// to the editor.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case FocusTitle:
		m.title, cmd = m.title.Update(msg)
	case FocusAttendees:
		m.attendees, cmd = m.attendees.Update(msg)
	case FocusDate:
		m.date, cmd = m.date.Update(msg)
	case FocusTranscript:
		m.transcript, cmd = m.transcript.Update(msg)
	default:
		return nil
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		f, _ := m.focus.field()
		m.editor.SetField(f, m.widgetValue(m.focus))
	}
	return cmd
}

func (m Model) widgetValue(f Focus) string {
	switch f {
	case FocusTitle:
		return m.title.Value()
	case FocusAttendees:
		return m.attendees.Value()
	case FocusDate:
		return m.date.Value()
	case FocusTranscript:
		return m.transcript.Value()
	}
	return ""
}

// pullFields copies editor values into any widget that disagrees. The
// editor is the source of truth; dictation, load and reset change it directly.
func (m *Model) pullFields() {
	if v := m.editor.Get(editor.FieldTitle); m.title.Value() != v {
		m.title.SetValue(v)
	}
	if v := m.editor.Get(editor.FieldAttendees); m.attendees.Value() != v {
		m.attendees.SetValue(v)
	}
	if v := m.editor.Get(editor.FieldDate); m.date.Value() != v {
		m.date.SetValue(v)
	}
	if v := m.editor.Transcript(); m.transcript.Value() != v {
		m.transcript.SetValue(v)
	}
}

func (m Model) visibleNotes() []notes.Note {
	return notes.Filter(m.sync.Notes(), m.filter.Value())
}

func (m *Model) clampSelection() {
	if n := len(m.visibleNotes()); m.selected >= n {
		m.selected = max(0, n-1)
	}
}

func (m *Model) resize() {
	w := m.editorWidth() - 12
	m.title.Width = w
	m.attendees.Width = w
	m.date.Width = w
	m.filter.Width = m.sidebarWidth() - 3
	m.transcript.SetWidth(m.editorWidth() - 1)
	m.transcript.SetHeight(m.transcriptHeight())
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// header(1) + status(1) + divider(1) + divider(1) + footer(1)
	return max(8, m.height-5)
}

func (m Model) sidebarWidth() int {
	if m.width == 0 {
		return 30
	}
	return max(20, m.width*30/100)
}

func (m Model) editorWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.sidebarWidth()-3)
}

// transcriptHeight splits what the fields leave between the transcript and
// the enrichment panel.
func (m Model) transcriptHeight() int {
	return max(3, (m.contentHeight()-5)/2)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatusBar(),
		ui.DividerStyle.Render(strings.Repeat("─", m.width)),
	}
	if n, ok := m.notices.Current(); ok {
		sections = append(sections, m.renderNotice(n))
	} else {
		sections = append(sections, m.renderMainContent())
	}
	sections = append(sections,
		ui.DividerStyle.Render(strings.Repeat("─", m.width)),
		m.renderFooter(),
	)
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("MEETING NOTES")
	id := m.auth.Identity()
	if !id.Present() {
		return title + ui.DimStyle.Render("  signed out")
	}
	return title + ui.DimStyle.Render("  "+shortID(id.UserID))
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.dictation.Listening() {
		dot = ui.RecordingDotStyle.Render("● REC")
	} else {
		dot = ui.IdleDotStyle.Render("○")
	}
	parts := []string{dot + " " + ui.StatusStyle.Render(m.dictation.Status())}

	if m.editor.Saving() {
		parts = append(parts, ui.SavingStyle.Render("saving..."))
	}
	if m.enrich.Loading() {
		parts = append(parts, ui.SpinnerStyle.Render("⟳ AI"))
	}
	if m.editor.ID() == "" {
		parts = append(parts, ui.DimStyle.Render("new note"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderMainContent() string {
	h := m.contentHeight()
	sidebar := m.renderSidebar(m.sidebarWidth(), h)
	pane := m.renderEditor(m.editorWidth(), h)

	divider := strings.TrimRight(strings.Repeat(ui.DividerStyle.Render("│")+"\n", h), "\n")
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, divider, " ", pane)
}

func (m Model) renderSidebar(width, height int) string {
	visible := m.visibleNotes()
	label := fmt.Sprintf("NOTES (%d)", len(visible))
	var lines []string
	if m.focus == FocusSidebar {
		lines = append(lines, ui.PanelTitleActiveStyle.Render(label))
	} else {
		lines = append(lines, ui.PanelTitleStyle.Render(label))
	}
	if m.filtering || m.filter.Value() != "" {
		lines = append(lines, m.filter.View())
	}

	switch {
	case !m.auth.Identity().Present():
		lines = append(lines, "", ui.DimStyle.Render("  Signed out."), ui.DimStyle.Render("  ctrl+o signs in"))
	case len(visible) == 0:
		lines = append(lines, "", ui.DimStyle.Render("  No notes yet"))
	default:
		// Two lines per note: title, then date.
		perPage := max(1, (height-len(lines))/2)
		start := 0
		if m.selected >= perPage {
			start = m.selected - perPage + 1
		}
		end := min(len(visible), start+perPage)
		current := m.editor.ID()
		for i := start; i < end; i++ {
			n := visible[i]
			marker := "  "
			if i == m.selected && m.focus == FocusSidebar {
				marker = ui.SelectedStyle.Render("> ")
			}
			title := truncateToWidth(n.Title, width-4)
			switch {
			case n.ID == current:
				title = ui.CurrentNoteStyle.Render(title)
			case i == m.selected && m.focus == FocusSidebar:
				title = ui.SelectedStyle.Render(title)
			}
			lines = append(lines, marker+title, "    "+ui.DimStyle.Render(n.Date))
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, l := range lines {
		lines[i] = padRight(l, width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEditor(width, height int) string {
	row := func(f Focus, label string, view string) string {
		style := ui.LabelStyle
		if m.focus == f {
			style = ui.LabelActiveStyle
		}
		return style.Render(label) + view
	}

	lines := []string{
		row(FocusTitle, "Title", m.title.View()),
		row(FocusAttendees, "Attendees", m.attendees.View()),
		row(FocusDate, "Date", m.date.View()),
	}
	header := ui.PanelTitleStyle
	if m.focus == FocusTranscript {
		header = ui.PanelTitleActiveStyle
	}
	lines = append(lines, "", header.Render("TRANSCRIPT"))
	lines = append(lines, strings.Split(m.transcript.View(), "\n")...)
	lines = append(lines, m.renderResult(width)...)

	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderResult(width int) []string {
	res, ok := m.enrich.Result()
	if !ok {
		return nil
	}
	lines := []string{"", ui.ResultTitleStyle.Render(strings.ToUpper(res.Label))}
	switch res.Status {
	case enrich.StatusPending:
		lines = append(lines, ui.DimStyle.Render("Generating..."))
	case enrich.StatusFailed:
		body := lipgloss.NewStyle().Width(width).Render(res.Content)
		lines = append(lines, ui.ResultFailedStyle.Render(body))
	default:
		body := lipgloss.NewStyle().Width(width).Render(res.Content)
		lines = append(lines, strings.Split(body, "\n")...)
	}
	return lines
}

func (m Model) renderNotice(n notify.Notice) string {
	box := ui.NoticeBoxStyle
	hint := "[enter] OK"
	if n.Confirmation {
		box = ui.ConfirmBoxStyle
		label := n.ConfirmLabel
		if label == "" {
			label = "OK"
		}
		hint = fmt.Sprintf("[y] %s  [n] Cancel", label)
	}
	width := min(60, max(20, m.width-4))
	body := ui.NoticeTitleStyle.Render(n.Title) + "\n\n" +
		lipgloss.NewStyle().Width(width).Render(n.Message) + "\n\n" +
		ui.FooterDescStyle.Render(hint)
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, box.Render(body))
}

func (m Model) renderFooter() string {
	item := func(key, desc string) string {
		return ui.FooterKeyStyle.Render(key) + ui.FooterDescStyle.Render(" "+desc)
	}
	record := "Record"
	if m.dictation.Listening() {
		record = "Stop"
	}
	parts := []string{
		item("^R", record),
		item("^S", "Save"),
		item("^N", "New"),
		item("^D", "Delete"),
		item("^T", "Summary"),
		item("^L", "Actions"),
		item("Tab", "Focus"),
	}
	if m.focus == FocusSidebar {
		parts = append(parts, item("/", "Filter"), item("q", "Quit"))
	} else {
		parts = append(parts, item("^C", "Quit"))
	}
	return strings.Join(parts, "  ")
}

// Helpers

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
