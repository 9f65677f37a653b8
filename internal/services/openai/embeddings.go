package openai

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/services"
)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *Client) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			return nil, services.Permanent(errors.New("embedding input cannot be empty"))
		}
	}
	var parsed embeddingResponse
	if err := c.post(ctx, "/embeddings", embeddingRequest{Model: c.cfg.EmbeddingModel, Input: inputs}, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(inputs) {
		return nil, errors.New("OpenAI embedding response count mismatch")
	}
	out := make([][]float32, len(inputs))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(inputs) {
			return nil, errors.New("OpenAI embedding response index out of range")
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}

// Scorer compares the embedding of a card's caption with the embedding of the text.
// Caption embeddings are kept for the life of the process.
type Scorer struct {
	client   *Client
	captions services.Captioner

	mu      sync.Mutex
	vectors map[deck.Card][]float32
}

func (s *Scorer) Score(ctx context.Context, card deck.Card, text string) (float64, error) {
	s.mu.Lock()
	cardVec, ok := s.vectors[card]
	s.mu.Unlock()

	if !ok {
		caption, err := s.captions.Caption(ctx, card)
		if err != nil {
			return 0, err
		}
		vecs, err := s.client.embed(ctx, []string{caption, text})
		if err != nil {
			return 0, err
		}
		s.remember(card, vecs[0])
		return cosineSimilarity(vecs[0], vecs[1]), nil
	}

	vecs, err := s.client.embed(ctx, []string{text})
	if err != nil {
		return 0, err
	}
	return cosineSimilarity(cardVec, vecs[0]), nil
}

func (s *Scorer) remember(card deck.Card, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vectors == nil {
		s.vectors = make(map[deck.Card][]float32)
	}
	s.vectors[card] = vec
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
