package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitdb/gtfsync/downloader"
	"github.com/transitdb/gtfsync/parse"
	"github.com/transitdb/gtfsync/realtime"
)

var (
	mergeFiles []string
	mergeURLs  []string
)

func init() {
	mergeCmd.Flags().StringSliceVarP(&mergeFiles, "file", "f", []string{}, "path to a GTFS-realtime protobuf feed")
	mergeCmd.Flags().StringSliceVarP(&mergeURLs, "url", "u", []string{}, "URL of a GTFS-realtime protobuf feed")
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge realtime snapshots into the schedule store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("initializing store: %w", err)
		}

		urls := mergeURLs
		if len(urls) == 0 && len(mergeFiles) == 0 {
			urls = cfg.RealtimeURLs
		}
		if len(urls) == 0 && len(mergeFiles) == 0 {
			return fmt.Errorf("either --file or --url (or REALTIME_URLS) is required")
		}

		headers, err := parseHeaders(headerFlags)
		if err != nil {
			return err
		}

		feeds := [][]byte{}
		for _, path := range mergeFiles {
			buf, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading feed: %w", err)
			}
			feeds = append(feeds, buf)
		}
		dl := &downloader.HTTPDownloader{}
		for _, url := range urls {
			buf, err := dl.Get(ctx, url, headers, downloader.GetOptions{
				Timeout: 30 * time.Second,
			})
			if err != nil {
				return fmt.Errorf("downloading feed: %w", err)
			}
			feeds = append(feeds, buf)
		}

		engine := realtime.NewEngine(store, logger)
		for _, feed := range feeds {
			snap, err := parse.ParseRealtime(feed)
			if err != nil {
				return fmt.Errorf("parsing feed: %w", err)
			}

			res, err := engine.Apply(ctx, snap)
			if err != nil {
				return fmt.Errorf("applying snapshot: %w", err)
			}

			fmt.Printf("applied=%d skipped_stale=%d warned=%d failed=%d\n",
				res.Applied, res.SkippedStale, res.Warned, res.Failed)
		}

		return nil
	},
}
