package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/musicmax-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/musicmax-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set MusicMax configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "dataset_path: %s\n", cfg.DatasetPath)
		fmt.Fprintf(out, "genre_column: %s\n", cfg.GenreColumn)
		fmt.Fprintf(out, "features: %s\n", strings.Join(cfg.Features, ","))
		fmt.Fprintf(out, "seed: %d\n", cfg.Seed)
		fmt.Fprintf(out, "default_clusters: %d\n", cfg.DefaultClusters)
		fmt.Fprintf(out, "search_limit: %d\n", cfg.SearchLimit)
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "stop_sequence: %q\n", cfg.StopSequence)
		if cfg.Provider == ai.ProviderOllama {
			fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "watch_dataset: %t\n", cfg.WatchDataset)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		switch key {
		case "api_key":
			return fmt.Errorf("api_key is never stored; use --api-key or MUSICMAX_API_KEY")
		case "dataset_path":
			c.DatasetPath = val
		case "genre_column":
			c.GenreColumn = val
		case "features":
			var fs []string
			for _, f := range strings.Split(val, ",") {
				if f = strings.TrimSpace(f); f != "" {
					fs = append(fs, f)
				}
			}
			if len(fs) == 0 {
				return fmt.Errorf("features cannot be empty")
			}
			c.Features = fs
		case "seed":
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for seed: %w", err)
			}
			c.Seed = i
		case "default_clusters":
			i, err := strconv.Atoi(val)
			if err != nil || i < 2 {
				return fmt.Errorf("invalid default_clusters: %v (need an integer >= 2)", val)
			}
			c.DefaultClusters = i
		case "search_limit":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid search_limit: %v", val)
			}
			c.SearchLimit = i
		case "provider":
			p := strings.ToLower(val)
			if _, ok := ai.GetRuntime(p, ai.RuntimeConfig{}); !ok {
				return fmt.Errorf("invalid provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
			}
			c.Provider = p
		case "model":
			c.Model = val
		case "max_tokens":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for max_tokens: %w", err)
			}
			c.MaxTokens = i
		case "stop_sequence":
			c.StopSequence = val
		case "ollama_host":
			c.OllamaHost = val
		case "listen_addr":
			c.ListenAddr = val
		case "watch_dataset":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for watch_dataset: %w", err)
			}
			c.WatchDataset = b
		case "log_level":
			c.LogLevel = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
