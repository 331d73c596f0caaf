package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/musicmax-cli/internal/chat"
	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	chatAPIKey    string
	chatNoContext bool
	chatModel     string
	chatProvider  string
)

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask the language model, with matching tracks as context",
	Long: `Sends the question to the configured provider (Anthropic by default).
Up to search_limit tracks whose row text contains the question are included as
context. The API key comes from --api-key or MUSICMAX_API_KEY and is never
written to disk.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if chatProvider != "" {
			c.Provider = chatProvider
		}
		if chatModel != "" {
			c.Model = chatModel
		}
		bridge, err := chat.NewBridge(c, logger)
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")

		var records []dataset.Record
		if !chatNoContext {
			t, err := loadTable()
			if err != nil {
				// Context is optional; answer without it.
				logger.Warn("chat without dataset context", zap.Error(err))
			} else {
				records = dataset.Search(t, query, c.SearchLimit)
			}
		}

		key := c.APIKey
		if chatAPIKey != "" {
			key = chatAPIKey
		}
		sess := chat.NewSession("cli")
		sess.SetAPIKey(key)
		answer, err := bridge.Ask(cmd.Context(), sess, query, records)
		if err != nil {
			if errors.Is(err, chat.ErrMissingCredential) {
				return fmt.Errorf("%w: pass --api-key or set MUSICMAX_API_KEY", err)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatAPIKey, "api-key", "", "API key for the provider (kept in memory only)")
	chatCmd.Flags().BoolVar(&chatNoContext, "no-context", false, "do not attach matching tracks")
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model id (overrides config)")
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "anthropic, openrouter or ollama (overrides config)")
}
