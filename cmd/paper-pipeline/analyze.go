package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/analyze"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute text metrics for extracted papers",
	Long: `Analyze computes readability scores, vocabulary statistics, key terms, and
section coverage for every paper with extracted text. The analysis is fully
deterministic: the same text always yields the same metrics.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int("top-terms", 0, "number of key terms to keep per paper")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if topTerms, _ := cmd.Flags().GetInt("top-terms"); topTerms > 0 {
		cfg.Analyze.TopTerms = topTerms
	}

	logger, closer, err := newLogger(cfg.DataDir)
	if err != nil {
		return err
	}
	defer closer.Close()

	col, colPath, err := loadCollection(cfg.DataDir)
	if err != nil {
		return err
	}

	result := analyze.AnalyzeBatch(col, cfg.Analyze, logger, os.Stdout)
	if err := col.Save(colPath); err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}

	fmt.Fprintf(os.Stdout, "analyzed %d, skipped %d, failed %d\n",
		result.Analyzed, result.Skipped, result.Failed)
	if result.HasFailures() {
		return fmt.Errorf("%d of %d analysis run(s) failed", result.Failed, result.Total())
	}
	return nil
}
