package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/transitdb/gtfsync/index"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the derived routes/stops index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, logger, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("initializing store: %w", err)
		}

		builder := &index.Builder{Storage: store, Logger: logger}
		n, err := builder.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}

		fmt.Printf("pairs=%d\n", n)
		return nil
	},
}
