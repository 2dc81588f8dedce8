package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/pipeline"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline end to end",
	Long: `Run executes all five stages in order: search, fetch, extract, analyze,
synthesize. Per-paper failures are isolated; the collection is saved after
every stage so an interrupted run resumes where it stopped.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("topic", "", "free-text research topic (required)")
	runCmd.Flags().String("author", "", "filter by author name")
	runCmd.Flags().Int("max-papers", 0, "maximum number of papers to process")
	runCmd.Flags().Int("min-year", 0, "drop papers published before this year")
	runCmd.Flags().Int("min-citations", 0, "drop papers below this citation count")
	_ = runCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if maxPapers, _ := cmd.Flags().GetInt("max-papers"); maxPapers > 0 {
		cfg.Search.MaxResults = maxPapers
	}

	topic, _ := cmd.Flags().GetString("topic")
	author, _ := cmd.Flags().GetString("author")
	minYear, _ := cmd.Flags().GetInt("min-year")
	minCitations, _ := cmd.Flags().GetInt("min-citations")
	query := types.Query{
		Topic:        topic,
		Author:       author,
		YearMin:      minYear,
		MinCitations: minCitations,
	}

	logger, closer, err := newLogger(cfg.DataDir)
	if err != nil {
		return err
	}
	defer closer.Close()

	runner := &pipeline.Runner{
		Cfg:    cfg,
		Client: newHTTPClient(cfg.Search.Timeout),
		Logger: logger,
	}
	_, err = runner.Run(cmd.Context(), query, os.Stdout)
	return err
}
