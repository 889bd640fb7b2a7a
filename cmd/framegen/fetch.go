package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"framegen/pkg/config"
	"framegen/pkg/fetcher"
	"framegen/pkg/logger"
)

var (
	// Fetch command flags
	outputDir    string
	searchDelay  time.Duration
	maxPerSearch int
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [phrase ...]",
	Short: "Download captioned frames matching the given search phrases",
	Long: `Search the captioned-frame API for each phrase and download every
matching screenshot that is not already on disk. Frames are keyed by
episode and timestamp, so re-running fetch only downloads what is new.

Phrases can also be listed under search.phrases in the config file; when
no arguments are given the configured phrases are used.`,
	Example: `  # Download frames for two phrases
  framegen fetch "steamed hams" "superintendent chalmers"

  # Custom output directory with a slower request pace
  framegen fetch "steamed hams" --output ./frames --delay 500ms

  # Cap downloads per search phrase
  framegen fetch "steamed hams" --max-per-search 25`,
	Args: cobra.ArbitraryArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for frames")
	fetchCmd.Flags().DurationVar(&searchDelay, "delay", 0, "pause between frame downloads")
	fetchCmd.Flags().IntVar(&maxPerSearch, "max-per-search", 0, "maximum downloads per search phrase (0 = unlimited)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"output":         outputDir,
		"delay":          searchDelay,
		"max-per-search": maxPerSearch,
		"log-level":      logLevel,
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	f, err := fetcher.New(cfg, log)
	if err != nil {
		return err
	}

	stats, err := f.Run(args)
	if err != nil {
		return err
	}

	fmt.Printf("Done: %d downloaded, %d skipped, %d failed (%d unique frames across %d searches)\n",
		stats.Downloaded, stats.Skipped, stats.Failed, stats.Unique, stats.Searches)
	return nil
}
