package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/musicmax-cli/internal/analysis"
	"github.com/KaramelBytes/musicmax-cli/internal/chart"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	clusterK    int
	clusterSeed int64
	clusterFig  bool
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group genres with similar feature profiles using k-means",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadSummary()
		if err != nil {
			return err
		}
		k := cfg.DefaultClusters
		if cmd.Flags().Changed("clusters") {
			k = clusterK
		}
		seed := cfg.Seed
		if cmd.Flags().Changed("seed") {
			seed = clusterSeed
		}
		clustered, err := analysis.Cluster(g, k, seed)
		if err != nil {
			return err
		}
		logger.Debug("genres clustered",
			zap.Int("k", k),
			zap.Int64("seed", seed),
			zap.Int("iterations", clustered.Iterations),
			zap.Float64("inertia", clustered.Inertia))
		out := cmd.OutOrStdout()
		if clusterFig {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]chart.Figure{
				"sizes":  chart.ClusterSizes(clustered),
				"genres": chart.ClusterGenres(clustered),
			})
		}
		for id, members := range clustered.Members() {
			fmt.Fprintf(out, "Cluster %d (%d genres): %s\n", id, len(members), strings.Join(members, ", "))
		}
		fmt.Fprintf(out, "Inertia: %.4f after %d iterations\n", clustered.Inertia, clustered.Iterations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.Flags().IntVarP(&clusterK, "clusters", "k", 3, "number of clusters (2-20, at most the number of genres)")
	clusterCmd.Flags().Int64Var(&clusterSeed, "seed", 42, "random seed for centroid initialization")
	clusterCmd.Flags().BoolVar(&clusterFig, "figure", false, "print the cluster chart specs as JSON")
}
