package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/stock-pulse/internal/app"
	"github.com/Adda-Baaj/stock-pulse/internal/config"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "stockpulse",
	Short:         "Stock direction prediction with news sentiment",
	Long:          "stockpulse predicts short-term stock direction from technical indicators and cross-checks it against aggregated news sentiment.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file (yaml or json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(pruneCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config and logger, then wires the application.
func bootstrap(ctx context.Context) (*config.Config, logger.Logger, *app.App, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}
	return cfg, log, a, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
