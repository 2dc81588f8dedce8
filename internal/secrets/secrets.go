// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from a directory of plain-text files
// and applies them to the stage configurations that consume them. Each file
// is one secret: the filename is the key, the trimmed contents are the value.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Key names recognized in the secrets directory.
const (
	SemanticScholarKey = "semantic-scholar-api-key"
	OpenAIKey          = "openai-api-key"
)

// Environment fallbacks checked when the directory has no matching file.
const (
	semanticScholarEnv = "SEMANTIC_SCHOLAR_API_KEY"
	openAIEnv          = "OPENAI_API_KEY"
)

// Secrets maps key names to credential values.
type Secrets map[string]string

// Keys returns the loaded key names in lexical order.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads every regular file in dir. A missing directory is not an error;
// Load returns an empty set. Unreadable files produce a warning on warnW and
// are skipped, so one bad key never blocks the rest.
func Load(dir string, warnW io.Writer) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	loaded := Secrets{}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warnW, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			loaded[name] = value
		}
	}
	return loaded, nil
}

// Apply fills the credential fields of cfg that are still empty, in priority
// order: loaded secret file, then environment variable. Values already set
// through the config file or flags are left alone.
func (s Secrets) Apply(cfg *types.PipelineConfig) {
	if cfg.Search.SemanticScholarAPIKey == "" {
		cfg.Search.SemanticScholarAPIKey = s.orEnv(SemanticScholarKey, semanticScholarEnv)
	}
	if cfg.Synthesize.LLM.APIKey == "" {
		cfg.Synthesize.LLM.APIKey = s.orEnv(OpenAIKey, openAIEnv)
	}
}

func (s Secrets) orEnv(key, envVar string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return os.Getenv(envVar)
}
