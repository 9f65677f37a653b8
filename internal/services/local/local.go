// Package local provides offline stand-ins for the caption, similarity and obfuscation models.
// Captions come from card file names and similarity is word overlap, which is enough to play and
// simulate games without network access.
package local

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/services"
)

var ErrNoCaption = errors.New("card name yields no caption")

// Captioner describes a card by the words in its file name.
type Captioner struct{}

func (Captioner) Caption(ctx context.Context, card deck.Card) (string, error) {
	base := filepath.Base(string(card))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	words := services.Tokens(base)
	if len(words) == 0 {
		return "", ErrNoCaption
	}
	return strings.Join(words, " "), nil
}

// Scorer rates a card against text by the Jaccard overlap of the card caption and the text.
type Scorer struct {
	Captions services.Captioner
}

func (s Scorer) Score(ctx context.Context, card deck.Card, text string) (float64, error) {
	caption, err := s.Captions.Caption(ctx, card)
	if err != nil {
		return 0, err
	}
	return overlap(services.Tokens(caption), services.Tokens(text)), nil
}

func overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	union := len(set)
	shared := 0
	seen := make(map[string]bool, len(b))
	for _, w := range b {
		if seen[w] {
			continue
		}
		seen[w] = true
		if set[w] {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}

// Obfuscator turns a caption into a template clue around its keywords. Higher temperatures
// pick templates more freely.
type Obfuscator struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func NewObfuscator(r *rand.Rand) *Obfuscator {
	return &Obfuscator{rand: r}
}

func (o *Obfuscator) Obfuscate(ctx context.Context, text string, temperature float64) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("nothing to obfuscate")
	}
	o.mu.Lock()
	pick := 0
	if o.rand.Float64() < temperature {
		pick = o.rand.Intn(4)
	}
	o.mu.Unlock()
	return services.FallbackClue(text, pick), nil
}

// Suite wires the offline services together. captions is usually a CaptionCache over Captioner.
func Suite(captions services.Captioner, r *rand.Rand) services.Suite {
	return services.Suite{
		Captioner:  captions,
		Scorer:     Scorer{Captions: captions},
		Obfuscator: NewObfuscator(r),
	}
}
