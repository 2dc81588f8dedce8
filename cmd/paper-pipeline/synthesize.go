package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/synthesize"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Generate and critique summary drafts",
	Long: `Synthesize generates an abstract, methods, and results section for every
analyzed paper. With an API key configured the sections come from an LLM;
otherwise (or when the LLM fails) a deterministic template fills them from
the paper's metrics. Every draft is critiqued for readability and coverage.`,
	RunE: runSynthesize,
}

func init() {
	synthesizeCmd.Flags().String("model", "", "override the LLM model name")
	synthesizeCmd.Flags().String("base-url", "", "override the LLM API base URL")

	rootCmd.AddCommand(synthesizeCmd)
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Synthesize.LLM.Model = model
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.Synthesize.LLM.BaseURL = baseURL
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

	client := newHTTPClient(cfg.Synthesize.LLM.Timeout)
	synth := synthesize.New(cfg.Synthesize, client, logger)

	result := synth.SynthesizeBatch(cmd.Context(), col, os.Stdout)
	if err := col.Save(colPath); err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}

	fmt.Fprintf(os.Stdout, "drafted %d, skipped %d, failed %d (fallbacks %d)\n",
		result.Drafted, result.Skipped, result.Failed, result.FellBack)
	if result.HasFailures() {
		return fmt.Errorf("%d of %d draft(s) failed", result.Failed, result.Total())
	}
	return nil
}
