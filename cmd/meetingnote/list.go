package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetingnote/internal/notes"
)

var (
	listJSON  bool
	listQuery string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your meeting notes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID, err := currentUser()
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ns, err := st.List(ctx, userID)
		if err != nil {
			return fmt.Errorf("list notes: %w", err)
		}
		ns = notes.Filter(ns, listQuery)

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ns)
		}
		if len(ns) == 0 {
			fmt.Println("No notes yet.")
			return nil
		}
		for _, n := range ns {
			fmt.Printf("%s  %s  %s\n", n.ID, n.Date, n.Title)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Fuzzy title filter")
	rootCmd.AddCommand(listCmd)
}
