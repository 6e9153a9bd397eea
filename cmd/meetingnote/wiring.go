package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwulff/meetingnote/internal/auth"
	"github.com/jwulff/meetingnote/internal/db"
	"github.com/jwulff/meetingnote/internal/enrich"
	"github.com/jwulff/meetingnote/internal/firestore"
	"github.com/jwulff/meetingnote/internal/gemini"
	"github.com/jwulff/meetingnote/internal/notes"
)

// backend is a note store that also serves one-shot reads.
type backend interface {
	notes.Store
	notes.Reader
	Close() error
}

func openStore(ctx context.Context) (backend, error) {
	switch cfg.Store.Backend {
	case "firestore":
		s, err := firestore.Open(ctx, firestore.Options{
			ProjectID:       cfg.Store.ProjectID,
			Collection:      cfg.Store.Collection,
			CredentialsFile: cfg.Store.Credentials,
			Logger:          slog.Default(),
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		path := cfg.Store.Path
		if path == "" {
			path = db.DefaultDBPath()
		}
		s, err := db.Open(path, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return s, nil
	}
}

func newAuthSession(log *slog.Logger) (*auth.Session, error) {
	if cfg.UserID != "" {
		return auth.NewSession(auth.Static(cfg.UserID), log), nil
	}
	p, err := auth.Anonymous(cfg.IdentityFile)
	if err != nil {
		return nil, err
	}
	return auth.NewSession(p, log), nil
}

// currentUser resolves the user id for one-shot commands.
func currentUser() (string, error) {
	if cfg.UserID != "" {
		return cfg.UserID, nil
	}
	p, err := auth.Anonymous(cfg.IdentityFile)
	if err != nil {
		return "", err
	}
	return p.Current().UserID, nil
}

// enricherFor builds the enrichment service for one-shot commands.
var enricherFor = newEnricher

// newEnricher returns nil when no API key is configured so enrichment
// requests report a configuration problem.
func newEnricher(ctx context.Context, log *slog.Logger) enrich.Service {
	if cfg.Enrich.APIKey == "" {
		return nil
	}
	svc, err := gemini.New(ctx, cfg.Enrich.APIKey, cfg.Enrich.Model)
	if err != nil {
		log.Warn("gemini unavailable", "error", err)
		return nil
	}
	return svc
}
