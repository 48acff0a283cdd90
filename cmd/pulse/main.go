// Command pulse analyzes collections of subreddit posts.
//
// Usage:
//
//	pulse analyze            Batch run: plots, summary and narrative
//	pulse ask <question>     Answer one question about the dataset
//	pulse chat               Interactive question loop
//	pulse serve              HTTP query endpoint
//	pulse fetch [sub...]     Acquire the newest posts of subreddits
//	pulse events [file]      Run-event log viewer
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abelbrown/pulse/internal/config"
	"github.com/abelbrown/pulse/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	logLevel   string
	dataPath   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Signals and narratives from social-media post collections",
	Long: "pulse loads a collection of subreddit posts, extracts trend signals\n" +
		"(topics, authors, sentiment, flashpoints, domains, controversy) and\n" +
		"answers questions about them.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { logging.Close() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.pulse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "dataset path (.jsonl, .json or .db)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.Version = version
}

// setup loads the configuration and initializes logging. The chat command
// logs to a file so the terminal stays clean.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dataPath != "" {
		cfg.Data = dataPath
	}

	dir := cfg.Log.Dir
	if dir == "" && cmd.Name() == chatCmd.Name() {
		dir = filepath.Join(config.Dir(), "logs")
	}
	if dir == "" {
		logging.Init(os.Stderr, cfg.Log.Level)
		return nil
	}
	return logging.InitFile(dir, cfg.Log.Level)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
