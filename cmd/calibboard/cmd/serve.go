package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calibboard/internal/api"
	"calibboard/internal/config"
	"calibboard/internal/connectors/gmail"
	"calibboard/internal/connectors/imap"
	"calibboard/internal/listener"
	"calibboard/internal/pipeline"
	"calibboard/internal/storage"
	"calibboard/internal/util"
	"calibboard/internal/workingset"
)

var (
	watchDir string
	addr     string
)

var serveCmd = &cobra.Command{
	Use:   "serve [FILES...]",
	Short: "Start the HTTP API, optionally preloading files and polling a drop directory or mailbox",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&watchDir, "watch", "", "drop directory to poll (overrides WATCH_DIR)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	cfg.WatchDir = util.FirstNonEmpty(watchDir, cfg.WatchDir)
	cfg.HTTPAddr = util.FirstNonEmpty(addr, cfg.HTTPAddr)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer db.Close()

	store := workingset.New()
	loader := pipeline.NewLoadService(pipeline.NewAggregatorFromConfig(cfg, log), store, db, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) > 0 {
		sources, err := pipeline.SourcesFromPaths(args)
		if err != nil {
			return err
		}
		if _, err := loader.Load(ctx, sources); err != nil {
			log.Warn("preload failed, starting with an empty working set", "error", err)
		}
	}

	if cfg.WatchDir != "" {
		watcher := listener.NewService(cfg.WatchDir, time.Duration(cfg.WatchIntervalSec)*time.Second, loader.Registry(), loader, log)
		go func() {
			_ = watcher.Run(ctx)
		}()
	}

	if cfg.MailEnabled() {
		fetcher, err := makeFetcher(cfg)
		if err != nil {
			return fmt.Errorf("configuring mailbox: %w", err)
		}
		poller := listener.NewMailPoller(fetcher, loader, time.Duration(cfg.MailPollSec)*time.Second, log)
		go func() {
			_ = poller.Run(ctx)
		}()
	}

	e := api.NewServer(api.Deps{
		Store:           store,
		Loader:          loader,
		Runs:            db,
		Log:             log,
		MaxUploadMB:     cfg.MaxUploadMB,
		RunHistoryLimit: cfg.RunHistoryLimit,
	})

	log.Info("starting server", "addr", cfg.HTTPAddr)
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func makeFetcher(cfg config.Config) (listener.Fetcher, error) {
	switch cfg.MailProvider {
	case config.MailProviderGmail:
		return gmail.NewConnector(cfg)
	case config.MailProviderIMAP:
		return imap.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %q", cfg.MailProvider)
	}
}
