package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/jwulff/meetingnote/internal/auth"
	"github.com/jwulff/meetingnote/internal/daemon"
	"github.com/jwulff/meetingnote/internal/notes"
	"github.com/jwulff/meetingnote/internal/notify"
)

type componentReport struct {
	Type  string `json:"type"`
	State any    `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

type doctorReport struct {
	Config     string            `json:"config"`
	User       string            `json:"user,omitempty"`
	Language   string            `json:"language"`
	Store      componentReport   `json:"store"`
	Sync       componentReport   `json:"sync"`
	Dictation  componentReport   `json:"dictation"`
	Enrichment map[string]string `json:"enrichment"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report the state of the store, dictation daemon and AI service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := doctorReport{
			Config:   configPath,
			Language: cfg.Language,
			Store:    componentReport{Type: cfg.Store.Backend},
			Enrichment: map[string]string{
				"model":      cfg.Enrich.Model,
				"configured": boolString(cfg.Enrich.APIKey != ""),
			},
		}
		if id, err := currentUser(); err == nil {
			r.User = id
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			r.Store.Error = err.Error()
			r.Sync = componentReport{Type: "note-sync", Error: "store unavailable"}
		} else {
			defer st.Close()
			r.Sync = checkSync(ctx, st, r.User)
			r.Store = describe(st, r.Store)
		}

		sock := socketPath()
		r.Dictation = componentReport{
			Type: "dictation-daemon",
			State: map[string]any{
				"socket":    sock,
				"available": daemon.Available(sock),
			},
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	},
}

// describe fills in whatever the component reports about itself.
func describe(c any, r componentReport) componentReport {
	if comp, ok := c.(introspection.Component); ok {
		r.Type = comp.ComponentType()
	}
	if intro, ok := c.(introspection.Introspectable); ok {
		r.State = intro.State()
	}
	return r
}

// checkSync opens a subscription for userID and reports the sync state
// after the first snapshot.
func checkSync(ctx context.Context, st notes.Store, userID string) componentReport {
	log := slog.Default()
	s := notes.NewSync(ctx, st, notify.NewCenter(log), log)
	defer s.Close()

	r := componentReport{Type: "note-sync"}
	cmd := s.SetIdentity(auth.Identity{UserID: userID})
	if cmd == nil {
		r.Error = "no user"
		return r
	}
	done := make(chan any, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		s.Update(msg)
	case <-time.After(5 * time.Second):
		r.Error = "timed out waiting for the first snapshot"
	}
	return describe(s, r)
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
