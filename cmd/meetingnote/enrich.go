package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetingnote/internal/enrich"
	"github.com/jwulff/meetingnote/internal/errs"
	"github.com/jwulff/meetingnote/internal/format"
	"github.com/jwulff/meetingnote/internal/notify"
)

var (
	enrichKind string
	enrichHTML bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <id>",
	Short: "Summarize a note or extract its action items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := enrich.ParseKind(enrichKind)
		if err != nil {
			return err
		}
		n, err := loadOwnNote(cmd, args[0])
		if err != nil {
			return err
		}

		render := enrich.Formatter(format.Terminal)
		if enrichHTML {
			render = format.HTML
		}
		ctx := cmd.Context()
		log := slog.Default()
		c := enrich.NewController(ctx, enricherFor(ctx, log), render, notify.NewCenter(log), enrich.Options{
			Timeout: cfg.Enrich.Timeout,
			Logger:  log,
		})
		res, err := c.Run(n.Transcript, kind)
		if err != nil {
			if errors.Is(err, errs.ErrValidation) {
				return errors.New(errs.Message(err))
			}
			return fmt.Errorf("%s: %s", kind.Label(), errs.Message(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Content)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichKind, "kind", "k", "summary", "summary or action-items")
	enrichCmd.Flags().BoolVar(&enrichHTML, "html", false, "Render the result as HTML")
	rootCmd.AddCommand(enrichCmd)
}
