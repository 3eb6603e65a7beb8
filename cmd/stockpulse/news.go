package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/stock-pulse/internal/config"
	"github.com/Adda-Baaj/stock-pulse/internal/store"
)

var (
	flagTerms []string
	flagLimit int
)

var newsCmd = &cobra.Command{
	Use:   "news TICKER",
	Short: "Fetch aggregated recent news for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		defer a.Close()

		res, err := a.LatestNews(cmd.Context(), args[0], flagTerms, flagLimit)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired entries from the news cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cfg.News.CachePath == "" {
			return fmt.Errorf("news cache path is not configured")
		}

		cache, err := store.Open(cfg.News.CachePath, cfg.News.CacheTTL)
		if err != nil {
			return err
		}
		defer cache.Close()

		n, err := cache.Prune()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d expired entries\n", n)
		return nil
	},
}

func init() {
	newsCmd.Flags().StringSliceVar(&flagTerms, "terms", nil, "search terms (comma separated)")
	newsCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum items to return (defaults to the configured display limit)")
}
