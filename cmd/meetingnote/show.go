package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetingnote/internal/mcpserver"
	"github.com/jwulff/meetingnote/internal/notes"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one note as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := loadOwnNote(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Print(mcpserver.Markdown(n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// loadOwnNote fetches id for the current user. Other users' notes are
// reported as missing.
func loadOwnNote(cmd *cobra.Command, id string) (notes.Note, error) {
	ctx := cmd.Context()
	userID, err := currentUser()
	if err != nil {
		return notes.Note{}, err
	}
	st, err := openStore(ctx)
	if err != nil {
		return notes.Note{}, err
	}
	defer st.Close()

	n, err := st.Get(ctx, id)
	if errors.Is(err, notes.ErrNotFound) || (err == nil && n.UserID != userID) {
		return notes.Note{}, fmt.Errorf("note %q not found", id)
	}
	if err != nil {
		return notes.Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}
