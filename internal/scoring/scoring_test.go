package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fourPlayerTable puts the storyteller (player 0) at position 1.
func fourPlayerTable() Table {
	return Table{
		{PlayerID: 2, Card: "c2"},
		{PlayerID: 0, Card: "c0"},
		{PlayerID: 1, Card: "c1"},
		{PlayerID: 3, Card: "c3"},
	}
}

func TestScoreBalancedRound(t *testing.T) {
	// GIVEN two of three guessers find the storyteller's card and the third picks player 1's card
	votes := Votes{1: 1, 2: 1, 3: 2}

	// WHEN the round is scored
	deltas, err := Score(fourPlayerTable(), votes, 0, DefaultRules())

	// THEN storyteller and correct guessers get 3, player 1 also gets 1 for the deception
	require.NoError(t, err)
	assert.Equal(t, Deltas{0: 3, 1: 4, 2: 3, 3: 0}, deltas)
}

func TestScoreNobodyCorrect(t *testing.T) {
	votes := Votes{1: 0, 2: 2, 3: 2}

	deltas, err := Score(fourPlayerTable(), votes, 0, DefaultRules())

	require.NoError(t, err)
	assert.Equal(t, Deltas{0: 0, 1: 2 + 2, 2: 2 + 1, 3: 2}, deltas)
}

func TestScoreEverybodyCorrect(t *testing.T) {
	votes := Votes{1: 1, 2: 1, 3: 1}

	deltas, err := Score(fourPlayerTable(), votes, 0, DefaultRules())

	require.NoError(t, err)
	assert.Equal(t, Deltas{0: 0, 1: 2, 2: 2, 3: 2}, deltas)
}

func TestScoreUsesConfiguredRules(t *testing.T) {
	rules := Rules{Consolation: 1, StorytellerBonus: 5, CorrectGuessBonus: 4, DeceptionPerVote: 2}

	deltas, err := Score(fourPlayerTable(), Votes{1: 1, 2: 3, 3: 0}, 0, rules)

	require.NoError(t, err)
	// player 1 correct; player 2 deceived player 3's card; player 3 voted for player 2's card
	assert.Equal(t, Deltas{0: 5, 1: 4, 2: 2, 3: 2}, deltas)
}

func TestScoreIsDeterministic(t *testing.T) {
	votes := Votes{1: 1, 2: 3, 3: 1}
	first, err := Score(fourPlayerTable(), votes, 0, DefaultRules())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := Score(fourPlayerTable(), votes, 0, DefaultRules())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScoreRejectsBrokenInput(t *testing.T) {
	tests := []struct {
		name          string
		votes         Votes
		storytellerID int
		want          error
	}{
		{"storyteller not on table", Votes{1: 1, 2: 1, 3: 1}, 9, ErrStorytellerCardMissing},
		{"missing vote", Votes{1: 1, 2: 1}, 0, ErrVoteCount},
		{"vote out of range", Votes{1: 1, 2: 4, 3: 1}, 0, ErrVoteOutOfRange},
		{"negative vote", Votes{1: -1, 2: 1, 3: 1}, 0, ErrVoteOutOfRange},
		{"storyteller voted", Votes{0: 1, 2: 1, 3: 1}, 0, ErrStorytellerVoted},
		{"unknown voter", Votes{1: 1, 2: 1, 7: 1}, 0, ErrVoteCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(fourPlayerTable(), tt.votes, tt.storytellerID, DefaultRules())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClassifyBoundaries(t *testing.T) {
	assert.Equal(t, OutcomeNoDeception, Classify(0, 4))
	assert.Equal(t, OutcomeNoDeception, Classify(3, 4))
	assert.Equal(t, OutcomeBalanced, Classify(1, 4))
	assert.Equal(t, OutcomeBalanced, Classify(2, 4))
	assert.Equal(t, Classify(0, 6), Classify(5, 6))
}

func TestClueFeedbackAndTemperature(t *testing.T) {
	t.Run("missed clue raises temperature", func(t *testing.T) {
		fb := ClueFeedback(0, 4)
		assert.Equal(t, FeedbackMissed, fb)
		assert.InDelta(t, 0.9, AdjustTemperature(fb, 0.8), 1e-9)
	})

	t.Run("balanced clue lowers temperature", func(t *testing.T) {
		fb := ClueFeedback(2, 4)
		assert.Equal(t, FeedbackBalanced, fb)
		assert.InDelta(t, 0.75, AdjustTemperature(fb, 0.8), 1e-9)
	})

	t.Run("temperature stays clamped", func(t *testing.T) {
		assert.InDelta(t, 1.0, AdjustTemperature(FeedbackMissed, 1.5), 1e-9)
		assert.InDelta(t, 0.7, AdjustTemperature(FeedbackBalanced, 0.1), 1e-9)
		assert.InDelta(t, 0.7, AdjustTemperature(FeedbackNeutral, 0.2), 1e-9)
	})
}

func TestCorrectGuesses(t *testing.T) {
	assert.Equal(t, 2, CorrectGuesses(fourPlayerTable(), Votes{1: 1, 2: 1, 3: 0}, 0))
}
