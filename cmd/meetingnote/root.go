package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/meetingnote/internal/app"
	"github.com/jwulff/meetingnote/internal/config"
	"github.com/jwulff/meetingnote/internal/daemon"
	"github.com/jwulff/meetingnote/internal/dictation"
	"github.com/jwulff/meetingnote/internal/enrich"
	"github.com/jwulff/meetingnote/internal/format"
)

var (
	configPath string
	userFlag   string
	verbose    bool

	cfg     *config.Config
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "meetingnote",
	Short: "Dictate and sync meeting notes",
	Long: `meetingnote records meeting notes by live dictation, keeps them in sync
with a local or cloud store, and asks an AI service for summaries and
action items.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(".env"); err != nil {
			return err
		}
		c, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}
		c.ApplyEnv(os.LookupEnv)
		if userFlag != "" {
			c.UserID = userFlag
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "act as this user id")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// setupLogging sends slog output to the configured log file. The TUI owns
// the terminal, so nothing is logged to stderr.
func setupLogging() error {
	level := config.ParseLogLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = io.Discard
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		w = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func runTUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	log := slog.Default()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := newAuthSession(log)
	if err != nil {
		return err
	}

	var engine dictation.Engine
	sock := socketPath()
	if daemon.Available(sock) {
		e, err := daemon.NewEngine(ctx, sock, log)
		if err != nil {
			log.Warn("dictation daemon unavailable", "socket", sock, "error", err)
		} else {
			defer e.Close()
			engine = e
		}
	} else {
		log.Info("dictation daemon not running", "socket", sock)
	}

	m := app.New(ctx, app.Deps{
		Auth:          session,
		Store:         st,
		Engine:        engine,
		Enricher:      newEnricher(ctx, log),
		Format:        enrich.Formatter(format.Terminal),
		Language:      cfg.Language,
		Delimiter:     cfg.Delimiter,
		EnrichTimeout: cfg.Enrich.Timeout,
		Logger:        log,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func socketPath() string {
	if cfg.Dictation.Socket != "" {
		return cfg.Dictation.Socket
	}
	return daemon.SocketPath()
}
