//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// runStage invokes the built CLI binary with the given subcommand and args.
func runStage(args ...string) error {
	bin := filepath.Join(binDir, binName)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// Fetch downloads PDFs for every paper in the collection.
func Fetch() error {
	mg.Deps(Build)
	return runStage("fetch")
}

// Extract pulls plain text out of the downloaded PDFs.
func Extract() error {
	mg.Deps(Build)
	return runStage("extract")
}

// Analyze computes readability metrics and key terms for extracted papers.
func Analyze() error {
	mg.Deps(Build)
	return runStage("analyze")
}

// Synthesize generates and critiques summary drafts.
func Synthesize() error {
	mg.Deps(Build)
	return runStage("synthesize")
}

// Index syncs the collection into the full-text index.
func Index() error {
	mg.Deps(Build)
	return runStage("index", "sync")
}

// Run executes the full pipeline for the topic in PAPER_PIPELINE_TOPIC.
func Run() error {
	mg.Deps(Build)
	topic := os.Getenv("PAPER_PIPELINE_TOPIC")
	if topic == "" {
		return fmt.Errorf("set PAPER_PIPELINE_TOPIC to the research topic")
	}
	return runStage("run", "--topic", topic)
}
