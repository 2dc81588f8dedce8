package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/pipeline"
	"github.com/pdiddy/paper-pipeline/internal/search"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search academic APIs for candidate papers",
	Long: `Search queries academic APIs (Semantic Scholar, arXiv) for papers matching
a topic or author. Results are deduplicated across sources, filtered, ranked
by relevance, and merged into the collection file.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("topic", "", "free-text research topic")
	searchCmd.Flags().String("author", "", "filter by author name")
	searchCmd.Flags().Int("min-year", 0, "drop papers published before this year")
	searchCmd.Flags().Int("max-year", 0, "drop papers published after this year")
	searchCmd.Flags().Int("min-citations", 0, "drop papers below this citation count")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (default 20)")
	searchCmd.Flags().Bool("json", false, "output results as JSON instead of a table")

	rootCmd.AddCommand(searchCmd)
}

func queryFromFlags(cmd *cobra.Command) types.Query {
	topic, _ := cmd.Flags().GetString("topic")
	author, _ := cmd.Flags().GetString("author")
	minYear, _ := cmd.Flags().GetInt("min-year")
	maxYear, _ := cmd.Flags().GetInt("max-year")
	minCitations, _ := cmd.Flags().GetInt("min-citations")
	return types.Query{
		Topic:        topic,
		Author:       author,
		YearMin:      minYear,
		YearMax:      maxYear,
		MinCitations: minCitations,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if maxResults, _ := cmd.Flags().GetInt("max-results"); maxResults > 0 {
		cfg.Search.MaxResults = maxResults
	}

	query := queryFromFlags(cmd)
	client := newHTTPClient(cfg.Search.Timeout)
	backends := pipeline.Backends(cfg.Search, client)

	out, err := search.Search(cmd.Context(), query, backends, cfg.Search, os.Stderr)
	if err != nil {
		return err
	}

	col, colPath, err := loadCollection(cfg.DataDir)
	if err != nil {
		return err
	}
	added := col.Merge(out.Records)
	if err := col.Save(colPath); err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := search.FormatJSON(out, os.Stdout); err != nil {
			return err
		}
	} else {
		search.FormatTable(out, os.Stdout)
	}
	fmt.Fprintf(os.Stdout, "\n%d result(s), %d new record(s) added to %s\n", len(out.Records), added, colPath)
	return nil
}
