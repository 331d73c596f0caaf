package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/musicmax-cli/internal/analysis"
	"github.com/KaramelBytes/musicmax-cli/internal/chart"
	"github.com/spf13/cobra"
)

var (
	genresTop  int
	genresAll  bool
	metricsFig bool
)

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "Rank genres by mean normalized popularity",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadSummary()
		if err != nil {
			return err
		}
		n := genresTop
		if genresAll {
			n = 0
		}
		ranked := g.Ranked(analysis.PopularityFeature, n)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tGENRE\tPOPULARITY\tTRACKS")
		for i, r := range ranked {
			fmt.Fprintf(tw, "%d\t%s\t%.3f\t%d\n", i+1, r.Genre, r.Means[analysis.PopularityFeature], r.Tracks)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d genres)\n", len(ranked), len(g.Rows))
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics <genre>",
	Short: "Show the normalized feature means of one genre",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadSummary()
		if err != nil {
			return err
		}
		fig, err := chart.GenreMetrics(args[0], g)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if metricsFig {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(fig)
		}
		fmt.Fprintln(out, fig.Layout.Title)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, tr := range fig.Data {
			fmt.Fprintf(tw, "  %s\t%.3f\n", tr.Name, tr.Values[0])
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(genresCmd)
	rootCmd.AddCommand(metricsCmd)
	genresCmd.Flags().IntVarP(&genresTop, "top", "n", 10, "number of genres to show")
	genresCmd.Flags().BoolVar(&genresAll, "all", false, "show every genre")
	metricsCmd.Flags().BoolVar(&metricsFig, "figure", false, "print the bar chart figure as JSON")
}
