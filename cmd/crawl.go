package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"bill_spider/internal/app"
	"bill_spider/internal/config"
	"bill_spider/internal/db"

	"github.com/spf13/cobra"
)

func crawlCmd() *cobra.Command {
	var (
		sessions    []int
		incremental bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch bills for the configured sessions and write the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("sessions") {
				cfg.Crawl.Sessions = sessions
			}
			if cmd.Flags().Changed("incremental") {
				cfg.Crawl.Incremental = incremental
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := db.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			renderer, err := app.NewBrowserRenderer(cfg.Browser, time.Duration(cfg.Logic.PageLoadTimeoutSec)*time.Second)
			if err != nil {
				return err
			}
			defer func() {
				if err := renderer.Close(); err != nil {
					log.WithError(err).Warn("failed to close browser")
				}
			}()

			fetcher, err := app.NewFetcher(cfg, renderer, log)
			if err != nil {
				return err
			}
			if cfg.Logic.RespectRobots {
				if err := fetcher.CheckRobots(ctx); err != nil {
					return err
				}
			}

			crawler, err := app.NewCrawlApp(cfg, store, fetcher, log)
			if err != nil {
				return err
			}
			run, err := crawler.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d bills from sessions %v (%s)\n", run.Fetched, cfg.Crawl.Sessions, run)
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&sessions, "sessions", nil, "session ids to crawl, overrides crawl.sessions")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "resume after the last stored bill of the current session")
	return cmd
}
