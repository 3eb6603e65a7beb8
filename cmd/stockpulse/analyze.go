package main

import (
	"github.com/spf13/cobra"
)

var (
	flagNoExplain bool
	flagQuestion  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze TICKER",
	Short: "Predict next-day direction from technical indicators",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		defer a.Close()

		res, err := a.Analyze(cmd.Context(), args[0], !flagNoExplain)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var agentCmd = &cobra.Command{
	Use:   "agent TICKER",
	Short: "Run the full news and prediction agent for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		defer a.Close()

		st, err := a.AnalyzeAgent(cmd.Context(), args[0], flagQuestion)
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagNoExplain, "no-explain", false, "skip the LLM explanation")
	agentCmd.Flags().StringVarP(&flagQuestion, "question", "q", "What is the short-term outlook?", "question to answer in the report")
}
