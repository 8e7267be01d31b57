package chunker

import (
	"strings"
	"unicode"

	"github.com/sitesage/sitesage/internal/model"
)

// charsPerToken is the approximate average characters per token for the
// tokenizers used by hosted embedding and generation models.
const charsPerToken = 4

// EstimateTokens returns the estimated token cost of a string.
// This is a heuristic, not a tokenizer; it is used for budgeting, where
// overestimating slightly is harmless and underestimating is not.
func EstimateTokens(s string) int {
	return len(s) / charsPerToken
}

// Policy selects the chunking strategy.
type Policy string

const (
	// PolicySentence splits on sentence terminators and accumulates
	// sentences against a byte bound. A single sentence larger than the
	// bound becomes its own oversized chunk; sentences are never split
	// mid-sentence.
	PolicySentence Policy = "sentence"

	// PolicyWord splits on whitespace and accumulates words against an
	// estimated token budget.
	PolicyWord Policy = "word"
)

// Chunker splits text into bounded-size chunks under one policy.
// The zero value is not usable; construct with New.
type Chunker struct {
	policy Policy

	// maxBytes bounds chunk size for the sentence policy, measured in
	// encoded byte length.
	maxBytes int

	// tokenBudget bounds chunk size for the word policy, measured in
	// estimated tokens.
	tokenBudget int

	// minChars is the minimum useful chunk length. Shorter chunks are
	// discarded, never returned.
	minChars int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxBytes sets the byte bound for the sentence policy.
func WithMaxBytes(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithTokenBudget sets the token budget for the word policy.
func WithTokenBudget(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.tokenBudget = n
		}
	}
}

// WithMinChars sets the minimum useful chunk length.
func WithMinChars(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.minChars = n
		}
	}
}

// New creates a Chunker for the given policy. Unknown policies fall back
// to PolicySentence rather than failing: a chunking strategy must always
// exist once a crawl has started.
func New(policy Policy, opts ...Option) *Chunker {
	c := &Chunker{
		policy:      policy,
		maxBytes:    1500,
		tokenBudget: 400,
		minChars:    model.MinChunkChars,
	}
	if policy != PolicySentence && policy != PolicyWord {
		c.policy = PolicySentence
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Chunk splits text into ordered chunk strings under the configured
// policy, then drops chunks below the minimum content floor. Output order
// is significant: callers assign ordinals from it, and those ordinals are
// part of storage identity.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	switch c.policy {
	case PolicyWord:
		chunks = c.chunkByWords(text)
	default:
		chunks = c.chunkBySentences(text)
	}

	kept := chunks[:0]
	for _, chunk := range chunks {
		if len(chunk) >= c.minChars {
			kept = append(kept, chunk)
		}
	}
	return kept
}

// chunkBySentences accumulates whole sentences until adding the next one
// would exceed the byte bound, then flushes.
func (c *Chunker) chunkBySentences(text string) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+1+len(sentence) > c.maxBytes {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// chunkByWords accumulates words until the estimated token cost of the
// next word would exceed the budget, then flushes.
func (c *Chunker) chunkByWords(text string) []string {
	words := strings.Fields(text)

	var chunks []string
	var current strings.Builder

	for _, word := range words {
		if current.Len() > 0 && EstimateTokens(current.String())+EstimateTokens(" "+word) > c.tokenBudget {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitSentences splits text on sentence terminators (. ! ?), keeping the
// terminator with its sentence. A terminator only ends a sentence when
// followed by whitespace or end of input, which keeps decimals, version
// numbers, and most abbreviations intact.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}
