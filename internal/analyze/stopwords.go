// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

// stopwords is a compact English function-word list used to filter term
// rankings. Tokens of two characters or fewer are dropped separately, so
// this list only needs the longer function words.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true,
	"have": true, "had": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "with": true, "this": true, "that": true,
	"these": true, "those": true, "they": true, "them": true, "their": true,
	"there": true, "then": true, "than": true, "were": true, "been": true,
	"being": true, "both": true, "each": true, "from": true, "further": true,
	"here": true, "how": true, "into": true, "its": true, "itself": true,
	"more": true, "most": true, "other": true, "over": true, "own": true,
	"same": true, "she": true, "should": true, "some": true, "such": true,
	"too": true, "under": true, "until": true, "very": true, "will": true,
	"would": true, "could": true, "about": true, "above": true, "after": true,
	"again": true, "against": true, "any": true, "because": true, "before": true,
	"below": true, "between": true, "does": true, "doing": true, "down": true,
	"during": true, "few": true, "him": true, "himself": true, "his": true,
	"herself": true, "only": true, "once": true, "through": true, "also": true,
	"may": true, "might": true, "must": true, "shall": true, "upon": true,
	"via": true, "per": true, "among": true, "within": true, "without": true,
	"however": true, "therefore": true, "thus": true, "hence": true,
	"can't": true, "don't": true, "it's": true, "we're": true,
}
