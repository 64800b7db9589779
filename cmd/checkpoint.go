package main

import (
	"errors"
	"fmt"
	"os"

	"bill_spider/internal/checkpoint"
	"bill_spider/internal/config"
	"bill_spider/internal/db"
	"bill_spider/internal/models"

	"github.com/spf13/cobra"
)

func checkpointCmd() *cobra.Command {
	var sessionID int

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Show where an incremental crawl would resume for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("session") {
				sessionID = cfg.Crawl.CurrentSession
			}
			label, err := cfg.SessionLabel(sessionID)
			if err != nil {
				return err
			}

			store, err := db.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			bills, err := store.Load(cmd.Context())
			if errors.Is(err, os.ErrNotExist) {
				bills = models.BillSet{}
			} else if err != nil {
				return fmt.Errorf("load bills: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, chamber := range models.Chambers {
				last, err := checkpoint.LastSeen(bills, label, chamber)
				var noData *checkpoint.NoPriorDataError
				switch {
				case errors.As(err, &noData):
					fmt.Fprintf(out, "%-6s no bills for %s, starts at %d\n",
						chamber, label, cfg.Jurisdiction.Chambers[chamber].First)
				case err != nil:
					return err
				default:
					fmt.Fprintf(out, "%-6s last bill %d, resumes at %d\n", chamber, last, last+1)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&sessionID, "session", 0, "session id (defaults to crawl.current_session)")
	return cmd
}
