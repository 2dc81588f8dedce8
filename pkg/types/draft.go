// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Draft holds generated section text for one paper. The template path fills
// these deterministically from metadata and metrics; the LLM path may replace
// them with richer prose but produces the same shape.
type Draft struct {
	// Abstract is the drafted abstract section.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Methods is the drafted methods section.
	Methods string `json:"methods" yaml:"methods"`

	// Results is the drafted results section.
	Results string `json:"results" yaml:"results"`

	// Generator names the strategy that produced the text
	// ("template" or "llm").
	Generator string `json:"generator" yaml:"generator"`
}

// Sections returns the draft sections keyed by canonical name, in a fixed
// order suitable for critique iteration.
func (d *Draft) Sections() []struct{ Name, Text string } {
	return []struct{ Name, Text string }{
		{"abstract", d.Abstract},
		{"methods", d.Methods},
		{"results", d.Results},
	}
}

// Annotation is one critique finding: where it applies, what is wrong, and
// what to do about it. Critique never mutates the draft itself.
type Annotation struct {
	// Location names the draft section or metric the issue applies to.
	Location string `json:"location" yaml:"location"`

	// Issue is a short machine-friendly flag (e.g. "hard_to_read").
	Issue string `json:"issue" yaml:"issue"`

	// Suggestion is the human-readable fix.
	Suggestion string `json:"suggestion" yaml:"suggestion"`
}

// Reference is an APA-like formatted entry for the cross-paper reference list.
type Reference struct {
	PaperID   string `json:"paper_id" yaml:"paper_id"`
	Formatted string `json:"formatted" yaml:"formatted"`
}
