package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sitesage/sitesage/internal/chunker"
	"github.com/sitesage/sitesage/internal/model"
)

// NoContextAnswer is the fixed response returned when retrieval produces
// no usable context. Answering from nothing invites hallucination, so the
// generation service is never called in that case.
const NoContextAnswer = "I could not find relevant information on this website to answer your question."

// matchContentFloor is the minimum stored-content length for a retrieved
// match to participate in context assembly. Half the chunk floor: real
// chunks always pass, degenerate matches are dropped.
const matchContentFloor = 50

// truncateStep is how many trailing characters are dropped per iteration
// when the assembled context exceeds the token budget.
const truncateStep = 500

// contextSeparator joins retrieved chunk texts into the context.
const contextSeparator = "\n\n"

// Embedder turns a question into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever is the read side of the vector store.
type Retriever interface {
	Query(ctx context.Context, ns model.Namespace, vector []float32, topK int) ([]model.Match, error)
}

// Generator produces natural-language text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answerer orchestrates one question against one namespace.
type Answerer struct {
	embedder  Embedder
	retriever Retriever
	generator Generator
	logger    *slog.Logger

	// topK is the number of nearest matches requested.
	topK int

	// tokenBudget bounds the estimated token cost of the full prompt.
	tokenBudget int
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithTopK sets the number of nearest matches requested per question.
func WithTopK(k int) Option {
	return func(a *Answerer) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithTokenBudget sets the prompt token budget.
func WithTokenBudget(n int) Option {
	return func(a *Answerer) {
		if n > 0 {
			a.tokenBudget = n
		}
	}
}

// WithLogger sets the logger for retrieval events.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) { a.logger = logger }
}

// New creates an Answerer over the given collaborators.
func New(embedder Embedder, retriever Retriever, generator Generator, opts ...Option) *Answerer {
	a := &Answerer{
		embedder:    embedder,
		retriever:   retriever,
		generator:   generator,
		topK:        5,
		tokenBudget: 6000,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}

	return a
}

// Answer answers a question against a namespace and wraps the result in
// a provenance envelope. Matches below the content floor are excluded
// from context; survivors are concatenated in similarity-rank order.
func (a *Answerer) Answer(ctx context.Context, ns model.Namespace, url, question string) (*model.AnswerResult, error) {
	result := &model.AnswerResult{
		Namespace:   ns,
		URL:         url,
		Question:    question,
		ProcessedAt: time.Now().UTC(),
	}

	vector, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	matches, err := a.retriever.Query(ctx, ns, vector, a.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	var parts []string
	for _, match := range matches {
		if len(match.Content) >= matchContentFloor {
			parts = append(parts, match.Content)
		}
	}

	if len(parts) == 0 {
		a.logger.Debug("no context survived filtering", "namespace", ns, "matches", len(matches))
		result.Answer = NoContextAnswer
		result.NoContext = true
		return result, nil
	}

	contextText := a.fitToBudget(question, strings.Join(parts, contextSeparator))

	answer, err := a.generator.Generate(ctx, buildPrompt(contextText, question))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	result.Answer = strings.TrimSpace(answer)
	return result, nil
}

// fitToBudget truncates context from the end, in fixed-size decrements,
// until the estimated token cost of the whole prompt fits the budget.
// Truncating the tail drops the least-similar material first because
// context is assembled in similarity-rank order. Each cut backs up to a
// rune boundary so the prompt stays valid UTF-8.
func (a *Answerer) fitToBudget(question, contextText string) string {
	overhead := chunker.EstimateTokens(buildPrompt("", question))

	for len(contextText) > 0 && overhead+chunker.EstimateTokens(contextText) > a.tokenBudget {
		cut := len(contextText) - truncateStep
		if cut < 0 {
			cut = 0
		}
		for cut > 0 && !utf8.RuneStart(contextText[cut]) {
			cut--
		}
		contextText = contextText[:cut]
	}

	return contextText
}
