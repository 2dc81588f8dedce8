package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the full-text paper index",
}

var indexSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the collection into the full-text index",
	Long: `Sync writes every paper's metadata, abstract, and extracted text into the
SQLite full-text index. Papers whose content has not changed since the last
sync are skipped.`,
	RunE: runIndexSync,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query <terms...>",
	Short: "Search the full-text index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIndexQuery,
}

func init() {
	indexQueryCmd.Flags().Int("max-results", 0, "maximum number of hits (default from config)")

	indexCmd.AddCommand(indexSyncCmd)
	indexCmd.AddCommand(indexQueryCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	col, _, err := loadCollection(cfg.DataDir)
	if err != nil {
		return err
	}

	store, err := index.NewStore(cfg.Index, cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Sync(cmd.Context(), col, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "indexed %d, updated %d, skipped %d, failed %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d paper(s) failed to index", summary.Failed)
	}
	return nil
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	store, err := index.NewStore(cfg.Index, cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	hits, err := store.Query(cmd.Context(), strings.Join(args, " "), maxResults)
	if err != nil {
		return err
	}
	index.FormatHits(os.Stdout, hits)
	return nil
}
