package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract plain text from downloaded PDFs",
	Long: `Extract pulls the text out of every successfully downloaded PDF, normalizes
whitespace and hyphenation artifacts, and writes one .txt file per paper.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Bool("force", false, "re-extract papers that already have text")
	extractCmd.Flags().Int("max-pages", 0, "stop after this many pages per PDF (0 = all)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if force, _ := cmd.Flags().GetBool("force"); force {
		cfg.Extract.Force = true
	}
	if maxPages, _ := cmd.Flags().GetInt("max-pages"); maxPages > 0 {
		cfg.Extract.MaxPages = maxPages
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

	extractor := extract.New(cfg.Extract, cfg.DataDir, logger)

	result := extractor.ExtractBatch(col, os.Stdout)
	if err := col.Save(colPath); err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}

	fmt.Fprintf(os.Stdout, "extracted %d, skipped %d, failed %d\n",
		result.Extracted, result.Skipped, result.Failed)
	if result.HasFailures() {
		return fmt.Errorf("%d of %d extraction(s) failed", result.Failed, result.Total())
	}
	return nil
}
