package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitdb/gtfsync/realtime"
)

var purgeBefore time.Duration

func init() {
	purgeCmd.Flags().DurationVarP(&purgeBefore, "before", "", 24*time.Hour, "delete realtime rows older than this")
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old realtime rows",
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

		engine := realtime.NewEngine(store, logger)
		n, err := engine.Purge(ctx, time.Now().Add(-purgeBefore))
		if err != nil {
			return fmt.Errorf("purging realtime rows: %w", err)
		}

		fmt.Printf("deleted=%d\n", n)
		return nil
	},
}
