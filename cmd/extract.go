package main

import (
	"encoding/json"
	"fmt"
	"os"

	"bill_spider/internal/config"
	"bill_spider/internal/extract"
	"bill_spider/internal/models"

	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var (
		sessionLabel string
		billNumber   int
	)

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Parse a saved rendered bill page and print the record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			chamber, ok := chamberFor(cfg.Jurisdiction.Chambers, billNumber)
			if !ok {
				return &config.ConfigurationError{Reason: fmt.Sprintf("bill %d is outside every chamber range", billNumber)}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			record, err := extract.FromHTML(f, sessionLabel, billNumber, chamber)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "    ")
			return enc.Encode(models.BillSet{record.Key(): record})
		},
	}

	cmd.Flags().StringVar(&sessionLabel, "session-label", "", "session label to record, e.g. 2025-26")
	cmd.Flags().IntVar(&billNumber, "bill", 0, "bill number of the page")
	cmd.MarkFlagRequired("session-label")
	cmd.MarkFlagRequired("bill")
	return cmd
}

func chamberFor(ranges map[models.Chamber]models.BillRange, billNumber int) (models.Chamber, bool) {
	for _, ch := range models.Chambers {
		if ranges[ch].Contains(billNumber) {
			return ch, true
		}
	}
	return "", false
}
