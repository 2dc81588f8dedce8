package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download PDFs for papers in the collection",
	Long: `Fetch downloads the PDF for every paper in the collection that has a link
and has not been downloaded yet. Downloads are validated against the PDF
signature, rate limited, and retried on transient errors. Each success writes
the PDF plus a YAML metadata sidecar under the data directory.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Bool("force", false, "re-download papers already marked success or failed")
	fetchCmd.Flags().Int("workers", 0, "number of concurrent downloads (default from config)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if force, _ := cmd.Flags().GetBool("force"); force {
		cfg.Fetch.Force = true
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Fetch.Workers = workers
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

	client := newHTTPClient(cfg.Fetch.Timeout)
	fetcher := fetch.New(client, cfg.Fetch, cfg.DataDir, logger)
	result := fetcher.FetchBatch(cmd.Context(), col, os.Stdout)
	if err := col.Save(colPath); err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}

	fmt.Fprintf(os.Stdout, "downloaded %d, skipped %d, failed %d\n",
		result.Downloaded, result.Skipped, result.Failed)
	if result.HasFailures() {
		return fmt.Errorf("%d of %d download(s) failed", result.Failed, result.Total())
	}
	return nil
}
