package local

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptionerUsesFileName(t *testing.T) {
	caption, err := Captioner{}.Caption(context.Background(), "data/cards/red_kite-over_sea02.png")

	require.NoError(t, err)
	assert.Equal(t, "red kite over sea", caption)

	_, err = Captioner{}.Caption(context.Background(), "data/cards/0042.jpg")
	assert.ErrorIs(t, err, ErrNoCaption)
}

func TestScorerPrefersMatchingWords(t *testing.T) {
	s := Scorer{Captions: Captioner{}}
	ctx := context.Background()

	kite, err := s.Score(ctx, "cards/red_kite.png", "a kite in the wind")
	require.NoError(t, err)
	boat, err := s.Score(ctx, "cards/blue_boat.png", "a kite in the wind")
	require.NoError(t, err)

	assert.Greater(t, kite, boat)
	assert.Zero(t, boat)
}

func TestObfuscatorBuildsKeywordClue(t *testing.T) {
	o := NewObfuscator(rand.New(rand.NewSource(3)))

	clue, err := o.Obfuscate(context.Background(), "lighthouse lighthouse storm", 0)

	require.NoError(t, err)
	assert.Equal(t, "A glimpse of lighthouse...", clue)

	_, err = o.Obfuscate(context.Background(), "  ", 0.9)
	assert.Error(t, err)
}
