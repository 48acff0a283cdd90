package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/server"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question about the dataset",
	Example: `  pulse ask "what topics are trending?"
  pulse ask who are the top authors`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	m := metrics.New()
	data, err := server.LoadDataset(cmd.Context(), cfg.Data, m, nil)
	if err != nil {
		return err
	}

	answer := newRouter(cfg, data, m).Answer(cmd.Context(), strings.Join(args, " "))
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
