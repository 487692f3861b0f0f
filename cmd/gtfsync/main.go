package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/transitdb/gtfsync/config"
	"github.com/transitdb/gtfsync/logging"
	"github.com/transitdb/gtfsync/storage"
)

var rootCmd = &cobra.Command{
	Use:          "gtfsync",
	Short:        "GTFS schedule and realtime sync tool",
	Long:         "Loads GTFS static bundles and reconciles realtime feeds into a schedule store.",
	SilenceUsage: true,
}

var headerFlags []string

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(
		&headerFlags,
		"header",
		"",
		[]string{},
		"HTTP header for feed requests, on form <key>:<value>",
	)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(purgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func parseHeaders(headers []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("'%s' is not on form <key>:<value>", header)
		}
		parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return parsed, nil
}

// setup reads config, builds the logger and opens the store. Postgres
// when DATABASE_URL is set, SQLite otherwise.
func setup() (*config.Config, zerolog.Logger, storage.Storage, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	var store storage.Storage
	if cfg.DatabaseURL != "" {
		store, err = storage.NewPSQLStorage(cfg.DatabaseURL, false)
	} else {
		store, err = storage.NewSQLiteStorage(storage.SQLiteConfig{Path: cfg.SQLitePath})
	}
	if err != nil {
		return nil, logger, nil, fmt.Errorf("opening store: %w", err)
	}

	return cfg, logger, store, nil
}
