package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/introspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/meetingnote/internal/config"
	"github.com/jwulff/meetingnote/internal/enrich"
	"github.com/jwulff/meetingnote/internal/notes"
)

func useConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	c := config.Default()
	c.Store.Path = filepath.Join(dir, "notes.sqlite")
	c.IdentityFile = filepath.Join(dir, "identity")
	c.LogFile = ""
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestOpenStoreSQLite(t *testing.T) {
	useConfig(t)
	ctx := context.Background()

	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close()

	id, err := st.Create(ctx, notes.Fields{UserID: "u1", Title: "Standup", Date: "2026-03-14"})
	require.NoError(t, err)

	list, err := st.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	_, ok := st.(introspection.Introspectable)
	assert.True(t, ok, "sqlite store should report its state")
}

func TestOpenStoreFirestoreNeedsProject(t *testing.T) {
	useConfig(t)
	cfg.Store.Backend = "firestore"

	_, err := openStore(context.Background())
	assert.Error(t, err)
}

func TestCurrentUser(t *testing.T) {
	useConfig(t)

	cfg.UserID = "u-flag"
	id, err := currentUser()
	require.NoError(t, err)
	assert.Equal(t, "u-flag", id)

	cfg.UserID = ""
	first, err := currentUser()
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	again, err := currentUser()
	require.NoError(t, err)
	assert.Equal(t, first, again, "anonymous identity persists")
}

func TestNewEnricherWithoutKey(t *testing.T) {
	useConfig(t)
	cfg.Enrich.APIKey = ""
	assert.Nil(t, newEnricher(context.Background(), nil))
}

func TestCheckSyncReportsSnapshot(t *testing.T) {
	useConfig(t)
	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.Create(ctx, notes.Fields{UserID: "u1", Title: "Retro", Date: "2026-03-14"})
	require.NoError(t, err)

	r := checkSync(ctx, st, "u1")
	assert.Empty(t, r.Error)
	assert.Equal(t, "note-sync", r.Type)
	state, ok := r.State.(notes.SyncState)
	require.True(t, ok)
	assert.Equal(t, 1, state.NoteCount)
	assert.True(t, state.Subscribed)

	assert.Equal(t, "no user", checkSync(ctx, st, "").Error)
}

type cannedService struct{ calls int }

func (s *cannedService) Summarize(ctx context.Context, transcript string) (string, error) {
	s.calls++
	return "**Decision**: ship it\n\n- buy milk\n- call Bob", nil
}

func (s *cannedService) ExtractActionItems(ctx context.Context, transcript string) (string, error) {
	s.calls++
	return "- send notes", nil
}

// runEnrichCmd executes the enrich subcommand end to end against a fresh
// sqlite store holding one note owned by u1.
func runEnrichCmd(t *testing.T, svc enrich.Service, extra ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "notes.sqlite")
	cfgPath := filepath.Join(dir, "config.yaml")
	yml := "user_id: u1\nlog_file: " + filepath.Join(dir, "mn.log") + "\nidentity_file: " + filepath.Join(dir, "identity") + "\nstore:\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yml), 0o600))
	t.Setenv("MEETINGNOTE_DB", "")
	t.Setenv("MEETINGNOTE_USER_ID", "")

	c := config.Default()
	c.Store.Path = dbPath
	prev := cfg
	cfg = c
	st, err := openStore(context.Background())
	require.NoError(t, err)
	id, err := st.Create(context.Background(), notes.Fields{UserID: "u1", Title: "Planning", Date: "2026-03-14", Transcript: "we agreed to ship"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	prevEnricher, prevDefault := enricherFor, slog.Default()
	enricherFor = func(context.Context, *slog.Logger) enrich.Service { return svc }
	t.Cleanup(func() {
		enricherFor = prevEnricher
		cfg = prev
		enrichKind, enrichHTML = "summary", false
		slog.SetDefault(prevDefault)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"enrich", id, "--config", cfgPath}, extra...))
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEnrichCommandTerminal(t *testing.T) {
	svc := &cannedService{}
	out, err := runEnrichCmd(t, svc, "--kind", "summary")
	require.NoError(t, err)

	assert.Equal(t, 1, svc.calls)
	assert.Contains(t, out, "Decision: ship it")
	assert.Contains(t, out, "• buy milk")
	assert.NotContains(t, out, "**")
}

func TestEnrichCommandHTML(t *testing.T) {
	out, err := runEnrichCmd(t, &cannedService{}, "--kind", "action-items", "--html")
	require.NoError(t, err)
	assert.Contains(t, out, "<li>send notes</li>")
}

func TestEnrichCommandWithoutService(t *testing.T) {
	_, err := runEnrichCmd(t, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no enrichment service")
}
