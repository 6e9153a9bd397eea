package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetingnote/internal/enrich"
	"github.com/jwulff/meetingnote/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve your notes as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := slog.Default()
		userID, err := currentUser()
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		log.Info("mcp server starting", "user", userID, "backend", cfg.Store.Backend)
		srv := mcpserver.New(ctx, st, userID, enricherFor(ctx, log), enrich.Options{
			Timeout: cfg.Enrich.Timeout,
			Logger:  log,
		})
		return srv.ServeStdio(Version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
