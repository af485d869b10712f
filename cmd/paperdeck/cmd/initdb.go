package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperdeck/paperdeck/internal/store"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize the database schema",
	Long: `Initialize the paperdeck database with the required schema.

This command creates all tables for documents, tags, correspondents,
document types, and saved views. It is safe to run multiple times; tables
are only created if they don't already exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("initializing database", "path", cfg.Data.Database)

		s, err := store.Open(cfg.Data.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}

		count, err := s.CountDocuments()
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}

		fmt.Printf("Database: %s\n", cfg.Data.Database)
		fmt.Printf("Documents: %d\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
