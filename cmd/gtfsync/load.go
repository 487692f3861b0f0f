package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitdb/gtfsync/downloader"
	"github.com/transitdb/gtfsync/index"
	"github.com/transitdb/gtfsync/load"
	"github.com/transitdb/gtfsync/parse"
)

var (
	loadBundle    string
	loadURL       string
	loadHardReset bool
	loadStrict    bool
	loadNoReindex bool
)

func init() {
	loadCmd.Flags().StringVarP(&loadBundle, "bundle", "b", "", "path to a GTFS static zip")
	loadCmd.Flags().StringVarP(&loadURL, "url", "u", "", "URL of a GTFS static zip")
	loadCmd.Flags().BoolVarP(&loadHardReset, "hard-reset", "", false, "truncate static tables before loading")
	loadCmd.Flags().BoolVarP(&loadStrict, "strict", "", false, "abort on the first bad record")
	loadCmd.Flags().BoolVarP(&loadNoReindex, "no-reindex", "", false, "skip the routes/stops index rebuild")
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a GTFS static bundle into the schedule store",
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

		url := loadURL
		if url == "" {
			url = cfg.StaticURL
		}

		var buf []byte
		switch {
		case loadBundle != "":
			buf, err = os.ReadFile(loadBundle)
			if err != nil {
				return fmt.Errorf("reading bundle: %w", err)
			}
		case url != "":
			headers, err := parseHeaders(headerFlags)
			if err != nil {
				return err
			}
			dl := &downloader.HTTPDownloader{}
			buf, err = dl.Get(ctx, url, headers, downloader.GetOptions{
				Timeout: 5 * time.Minute,
			})
			if err != nil {
				return fmt.Errorf("downloading bundle: %w", err)
			}
		default:
			return fmt.Errorf("either --bundle or --url (or STATIC_URL) is required")
		}

		bundle, err := parse.ParseBundle(buf)
		if err != nil {
			return fmt.Errorf("parsing bundle: %w", err)
		}

		mode := load.Incremental
		if loadHardReset {
			mode = load.HardReset
		}

		loader := &load.Loader{
			Storage: store,
			Strict:  loadStrict || cfg.Strict,
			Logger:  logger,
		}
		res, err := loader.Load(ctx, bundle, mode)
		if err != nil {
			return fmt.Errorf("loading bundle: %w", err)
		}

		if !loadNoReindex {
			builder := &index.Builder{Storage: store, Logger: logger}
			if _, err := builder.Rebuild(ctx); err != nil {
				return fmt.Errorf("rebuilding index: %w", err)
			}
		}

		fmt.Printf("upserted=%d skipped=%d failed=%d\n", res.Upserted, res.Skipped, res.Failed)
		return nil
	},
}
