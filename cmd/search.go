package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find tracks whose row text contains the query (case-insensitive)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		limit := cfg.SearchLimit
		if cmd.Flags().Changed("limit") {
			limit = searchLimit
		}
		recs := dataset.Search(t, strings.Join(args, " "), limit)
		if recs == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
			return nil
		}
		printRecords(cmd.OutOrStdout(), t.Columns, recs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", dataset.DefaultSearchLimit, "maximum number of matches")
}
