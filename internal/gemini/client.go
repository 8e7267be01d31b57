package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sitesage/sitesage/internal/governor"
)

// Model names. The embedding model is fixed because stored vectors are
// only comparable to queries embedded with the same model; changing it
// invalidates every existing namespace.
const (
	// EmbeddingModel is the embedding model identifier.
	EmbeddingModel = "text-embedding-004"

	// GenerativeModel is the answer generation model identifier.
	GenerativeModel = "gemini-2.5-flash"
)

// ErrEmptyEmbedding is returned when the service responds without an
// embedding payload.
var ErrEmptyEmbedding = errors.New("empty embedding response")

// ErrEmptyAnswer is returned when generation yields no text candidates.
var ErrEmptyAnswer = errors.New("empty generation response")

// Client provides embedding and generation against the Gemini API.
type Client struct {
	client    *genai.Client
	embedding *genai.EmbeddingModel
	model     *genai.GenerativeModel
	gov       *governor.Governor
}

// New creates a Client authenticated with the given API key. Calls are
// paced by gov; a nil gov gets a default governor.
func New(ctx context.Context, apiKey string, gov *governor.Governor) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if gov == nil {
		gov = governor.New()
	}

	return &Client{
		client:    client,
		embedding: client.EmbeddingModel(EmbeddingModel),
		model:     client.GenerativeModel(GenerativeModel),
		gov:       gov,
	}, nil
}

// Embed turns one text into an embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32

	err := c.gov.Execute(ctx, func() error {
		resp, err := c.embedding.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return ErrEmptyEmbedding
		}
		vector = resp.Embedding.Values
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	return vector, nil
}

// EmbedBatch embeds several texts in one API round trip. The batch
// variant costs one governed call instead of one per chunk, which is what
// keeps ingestion of a multi-chunk page inside the rate window.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := c.embedding.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	var vectors [][]float32
	err := c.gov.Execute(ctx, func() error {
		resp, err := c.embedding.BatchEmbedContents(ctx, batch)
		if err != nil {
			return err
		}
		if len(resp.Embeddings) != len(texts) {
			return fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyEmbedding, len(resp.Embeddings), len(texts))
		}

		vectors = make([][]float32, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return ErrEmptyEmbedding
			}
			vectors[i] = e.Values
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	return vectors, nil
}

// Generate produces an answer for a prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string

	err := c.gov.Execute(ctx, func() error {
		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return err
		}

		var parts []string
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					parts = append(parts, string(text))
				}
			}
		}
		if len(parts) == 0 {
			return ErrEmptyAnswer
		}

		answer = strings.Join(parts, "\n")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	return answer, nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.client.Close()
}
