package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/musicmax-cli/internal/chat"
	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"github.com/KaramelBytes/musicmax-cli/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr    string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		store := server.NewStore(c.DatasetPath, dataset.DefaultOptions(), c.GenreColumn, c.Features, logger)
		if err := store.Reload(); err != nil {
			// The dashboard still starts; data endpoints answer 503 until the file appears.
			logger.Warn("starting without a dataset", zap.Error(err))
		}
		bridge, err := chat.NewBridge(c, logger)
		if err != nil {
			logger.Warn("chat disabled", zap.Error(err))
			bridge = nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(store, bridge, server.Options{
			Addr:            addr,
			DefaultClusters: c.DefaultClusters,
			SearchLimit:     c.SearchLimit,
			Seed:            c.Seed,
		}, logger)

		g, gctx := errgroup.WithContext(ctx)
		if c.WatchDataset && !serveNoWatch {
			w, err := server.NewWatcher(store, 0, logger)
			if err != nil {
				return err
			}
			g.Go(func() error {
				// A watcher failure only costs live reloads; keep serving.
				if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("dataset watcher stopped", zap.Error(err))
				}
				return nil
			})
		}
		g.Go(func() error {
			err := srv.Start(gctx)
			stop()
			return err
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not reload the dataset when it changes on disk")
}
