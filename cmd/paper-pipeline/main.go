// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-pipeline CLI. Each pipeline
// stage is a subcommand: search, fetch, extract, analyze, synthesize. The
// run subcommand chains all five; index maintains the full-text database.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-pipeline/internal/observability"
	"github.com/pdiddy/paper-pipeline/internal/secrets"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

const defaultUserAgent = "paper-pipeline/0.1"

// rootCmd is the base command for the paper-pipeline CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-pipeline",
	Short: "Research-paper collection and synthesis pipeline",
	Long: `paper-pipeline discovers candidate research papers, downloads and
validates their PDFs, extracts and analyzes their text, and synthesizes
short critiqued drafts per paper.

Each stage is a subcommand: search, fetch, extract, analyze, synthesize.
The run subcommand chains all five over a shared collection file; index
maintains a full-text search database over the collection.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-pipeline.yaml or ~/.config/paper-pipeline/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "data root directory (default: ./data)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default: info)")
}

func initConfig() {
	// .env is optional developer convenience; a missing file is fine.
	godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-pipeline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-pipeline"))
		}
	}

	viper.SetEnvPrefix("PAPER_PIPELINE")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("data_dir", "data")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("search.timeout", 30*time.Second)
	viper.SetDefault("search.user_agent", defaultUserAgent)
	viper.SetDefault("search.max_results", 20)
	viper.SetDefault("search.enable_semantic_scholar", true)
	viper.SetDefault("search.enable_arxiv", true)

	viper.SetDefault("fetch.timeout", 60*time.Second)
	viper.SetDefault("fetch.user_agent", defaultUserAgent)
	viper.SetDefault("fetch.workers", 3)
	viper.SetDefault("fetch.rate_per_second", 1.0)
	viper.SetDefault("fetch.max_bytes", int64(50<<20))
	viper.SetDefault("fetch.retry.max_attempts", 3)
	viper.SetDefault("fetch.retry.base_delay", time.Second)
	viper.SetDefault("fetch.retry.max_delay", 30*time.Second)
	viper.SetDefault("fetch.retry.multiplier", 2.0)
	viper.SetDefault("fetch.retry.jitter", 0.1)

	viper.SetDefault("analyze.top_terms", 10)
	viper.SetDefault("analyze.top_phrases", 5)

	viper.SetDefault("synthesize.min_section_length", 40)
	viper.SetDefault("synthesize.llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("synthesize.llm.model", "gpt-4.1-mini")
	viper.SetDefault("synthesize.llm.max_tokens", 800)
	viper.SetDefault("synthesize.llm.timeout", 30*time.Second)
	viper.SetDefault("synthesize.llm.retry.max_attempts", 3)
	viper.SetDefault("synthesize.llm.retry.base_delay", time.Second)
	viper.SetDefault("synthesize.llm.retry.max_delay", 30*time.Second)
	viper.SetDefault("synthesize.llm.retry.multiplier", 2.0)
	viper.SetDefault("synthesize.llm.retry.jitter", 0.1)

	viper.SetDefault("index.max_results", 20)
}

// loadConfig materializes the pipeline configuration from viper, flags, and
// secrets. Flags win over config-file values; secrets fill empty keys.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.DataDir = viper.GetString("data_dir")
	if dir, _ := rootCmd.PersistentFlags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}

	loadedSecrets.Apply(&cfg)
	return cfg, nil
}

// newLogger builds the run logger: console on stderr plus a JSON log file
// under the data root.
func newLogger(dataDir string) (zerolog.Logger, io.Closer, error) {
	level := viper.GetString("log_level")
	if l, _ := rootCmd.PersistentFlags().GetString("log-level"); l != "" {
		level = l
	}
	return observability.NewLogger(observability.LoggingConfig{
		Level:   level,
		Console: true,
		LogDir:  filepath.Join(dataDir, types.LogDir),
	})
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// collectionPath returns the collection file location under the data root.
func collectionPath(dataDir string) string {
	return filepath.Join(dataDir, types.MetadataDir, types.CollectionFile)
}

// loadCollection reads the collection, mapping a missing file to an empty
// collection and a corrupt one to a fatal error.
func loadCollection(dataDir string) (*types.Collection, string, error) {
	path := collectionPath(dataDir)
	col, err := types.LoadCollection(path)
	if err != nil {
		return nil, "", err
	}
	return col, path, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
