package cmd

import (
	"fmt"

	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var addSets []string

var addCmd = &cobra.Command{
	Use:   "add --set column=value [--set column=value ...]",
	Short: "Append a track to the dataset and rewrite the CSV",
	Example: `  musicmax add --set track_name="Giant Steps" --set artists="John Coltrane" \
    --set track_genre=jazz --set popularity=55`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(addSets) == 0 {
			return fmt.Errorf("at least one --set column=value is required")
		}
		rec, err := parseAssignments(addSets)
		if err != nil {
			return err
		}
		t, err := loadTable()
		if err != nil {
			return err
		}
		if err := t.Validate(rec); err != nil {
			return err
		}
		if err := t.Append(rec); err != nil {
			return err
		}
		if err := dataset.Save(t, cfg.DatasetPath); err != nil {
			return fmt.Errorf("save dataset: %w", err)
		}
		logger.Info("track appended", zap.String("path", cfg.DatasetPath), zap.Int("rows", t.Len()))
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Track added (%d rows)\n", t.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringArrayVar(&addSets, "set", nil, "column=value pair (repeatable)")
}
