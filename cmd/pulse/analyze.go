package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the batch analysis and write the report artifacts",
	Long: `Loads the dataset, extracts every signal and writes plots, summary.txt,
narrative.txt and events.jsonl into the output directory.

With --keyword, keyword-scoped charts and a keyword summary are added.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var (
	analyzeOutput  string
	analyzeKeyword string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output directory")
	analyzeCmd.Flags().StringVar(&analyzeKeyword, "keyword", "", "keyword for keyword-scoped artifacts")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeOutput != "" {
		cfg.Output = analyzeOutput
	}
	if analyzeKeyword != "" {
		cfg.Narrative.Keyword = analyzeKeyword
	}

	res, err := pipeline.New(cfg, newGenerator(cfg), metrics.New()).Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d posts\n\n%s\n\n", res.RunID, res.Posts, res.Summary)
	for _, name := range res.Artifacts {
		fmt.Fprintf(out, "  wrote %s\n", filepath.Join(cfg.Output, name))
	}
	if len(res.Errors) > 0 {
		fmt.Fprintf(out, "\n%d signal(s) degraded:\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  %v\n", e)
		}
	}
	return nil
}
