// Package services defines the contracts of the external models bots rely on: image captioning,
// image/text similarity and clue obfuscation. The implementations live in sub-packages; this package
// adds the adapter-level concerns shared by all of them (retries, caching, warm-up).
package services

import (
	"context"
	"math"

	"dixit-toolbox/internal/deck"
)

// MinScore is the similarity assigned to a card whose scoring failed. It never beats a real score.
var MinScore = math.Inf(-1)

type Captioner interface {
	Caption(ctx context.Context, card deck.Card) (string, error)
}

type Scorer interface {
	Score(ctx context.Context, card deck.Card, text string) (float64, error)
}

type Obfuscator interface {
	Obfuscate(ctx context.Context, text string, temperature float64) (string, error)
}

// Suite bundles the three services. It is built once per session and handed to every bot.
type Suite struct {
	Captioner  Captioner
	Scorer     Scorer
	Obfuscator Obfuscator
}
