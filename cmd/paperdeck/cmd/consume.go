package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperdeck/paperdeck/internal/consume"
	"github.com/paperdeck/paperdeck/internal/events"
	"github.com/paperdeck/paperdeck/internal/store"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Scan the consume directory once",
	Long: `Scan the consume directory and import any new files as documents.

Files already imported (matched by source path) are skipped. Plain-text
formats (.txt, .md, .csv) are indexed for full-text search.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.Data.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}

		before, err := s.CountDocuments()
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}

		consumer := consume.New(cfg.Consume.Dir, s, events.NewSignal(), logger)
		if err := consumer.TriggerScan(); err != nil {
			return fmt.Errorf("scan: %w", err)
		}

		after, err := s.CountDocuments()
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}

		fmt.Printf("Imported %d new documents from %s\n", after-before, cfg.Consume.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
