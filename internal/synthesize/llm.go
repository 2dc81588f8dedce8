// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/paper-pipeline/internal/retry"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// sectionPromptTmpl is the prompt sent to the generation service for each
// draft section.
var sectionPromptTmpl = template.Must(template.New("section").Parse(
	`You are drafting a short literature-survey entry for a research paper.

Write the {{.Section}} section of the entry: 2-4 sentences, plain prose, no
headings and no markdown. Stay factual to the material below; do not invent
results.

Title: {{.Title}}
Year: {{.Year}}
Abstract: {{.Abstract}}
Key terms: {{.KeyTerms}}
`))

// LLMGenerator drafts sections through an OpenAI-compatible chat-completions
// endpoint. Transport faults are retried under the shared backoff policy;
// every other error is returned to the caller, which falls back to the
// template strategy.
type LLMGenerator struct {
	cfg    types.LLMConfig
	client *http.Client
	policy retry.Policy
}

// NewLLMGenerator builds the chat-completions strategy from config.
func NewLLMGenerator(cfg types.LLMConfig, client *http.Client) *LLMGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &LLMGenerator{cfg: cfg, client: client, policy: retry.FromConfig(cfg.Retry)}
}

func (g *LLMGenerator) Name() string { return "llm" }

// GenerateDraft renders one prompt per section and completes each in turn.
// The first error aborts the whole draft so the caller can fall back cleanly.
func (g *LLMGenerator) GenerateDraft(ctx context.Context, rec *types.PaperRecord) (types.Draft, error) {
	draft := types.Draft{Generator: g.Name()}
	for _, sec := range []struct {
		name string
		out  *string
	}{
		{"abstract", &draft.Abstract},
		{"methods", &draft.Methods},
		{"results", &draft.Results},
	} {
		prompt, err := renderSectionPrompt(sec.name, rec)
		if err != nil {
			return types.Draft{}, err
		}
		text, err := g.complete(ctx, prompt)
		if err != nil {
			return types.Draft{}, fmt.Errorf("generating %s: %w", sec.name, err)
		}
		*sec.out = strings.TrimSpace(text)
	}
	return draft, nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one prompt and returns the completion text. Each attempt
// carries its own timeout.
func (g *LLMGenerator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     g.cfg.Model,
		MaxTokens: g.cfg.MaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var text string
	err = g.policy.Do(ctx, func(attempt int) error {
		reqCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
			g.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

		resp, err := g.client.Do(req)
		if err != nil {
			return fmt.Errorf("calling generation service: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := fmt.Errorf("generation service returned %d: %s", resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}

		var cr chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return retry.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
			return retry.Permanent(fmt.Errorf("generation service returned no text"))
		}
		text = cr.Choices[0].Message.Content
		return nil
	})
	return text, err
}

func renderSectionPrompt(section string, rec *types.PaperRecord) (string, error) {
	view := buildView(rec)
	var buf bytes.Buffer
	err := sectionPromptTmpl.Execute(&buf, struct {
		Section, Title, Year, Abstract, KeyTerms string
	}{
		Section:  section,
		Title:    view.Title,
		Year:     view.Year,
		Abstract: view.Abstract,
		KeyTerms: view.KeyTerms,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
