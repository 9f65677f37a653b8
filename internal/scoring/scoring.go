package scoring

import (
	"errors"
	"fmt"

	"dixit-toolbox/internal/deck"
)

var (
	ErrStorytellerCardMissing = errors.New("storyteller's card not found on the table")
	ErrVoteOutOfRange         = errors.New("vote does not reference a table position")
	ErrVoteCount              = errors.New("every player except the storyteller must vote exactly once")
	ErrStorytellerVoted       = errors.New("the storyteller cannot vote")
)

// Entry is one card on the table together with the player who contributed it.
type Entry struct {
	PlayerID int
	Card     deck.Card
}

// Table is the ordered set of contributed cards. Votes refer to positions in it.
type Table []Entry

// IndexOf returns the position of playerID's card, or -1.
func (t Table) IndexOf(playerID int) int {
	for i, e := range t {
		if e.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Cards returns the cards in table order without their owners.
func (t Table) Cards() []deck.Card {
	cards := make([]deck.Card, len(t))
	for i, e := range t {
		cards[i] = e.Card
	}
	return cards
}

// Votes maps a voter's player ID to the table position they picked.
type Votes map[int]int

// Deltas maps a player ID to the points earned this round.
type Deltas map[int]int

// Rules holds the point values. The game's rule variants disagree on them, so they are configurable.
type Rules struct {
	Consolation       int `json:"consolation"`
	StorytellerBonus  int `json:"storyteller_bonus"`
	CorrectGuessBonus int `json:"correct_guess_bonus"`
	DeceptionPerVote  int `json:"deception_per_vote"`
}

func DefaultRules() Rules {
	return Rules{
		Consolation:       2,
		StorytellerBonus:  3,
		CorrectGuessBonus: 3,
		DeceptionPerVote:  1,
	}
}

// Outcome is the scoring branch a round falls into.
type Outcome int

const (
	// OutcomeNoDeception means either nobody or everybody found the storyteller's card.
	OutcomeNoDeception Outcome = iota
	// OutcomeBalanced means some but not all guessers found it.
	OutcomeBalanced
)

func (o Outcome) String() string {
	return []string{"no-deception", "balanced"}[o]
}

// Classify picks the scoring branch from the number of correct guesses alone.
func Classify(correct, playerCount int) Outcome {
	if correct == 0 || correct == playerCount-1 {
		return OutcomeNoDeception
	}
	return OutcomeBalanced
}

// Score computes the per-player point deltas for one round. Every player on the table gets an entry,
// even when it is zero. The function has no side effects; callers apply the deltas.
func Score(table Table, votes Votes, storytellerID int, rules Rules) (Deltas, error) {
	storyIdx := table.IndexOf(storytellerID)
	if storyIdx < 0 {
		return nil, ErrStorytellerCardMissing
	}
	if len(votes) != len(table)-1 {
		return nil, fmt.Errorf("%w: got %d votes for %d players", ErrVoteCount, len(votes), len(table))
	}
	if _, ok := votes[storytellerID]; ok {
		return nil, ErrStorytellerVoted
	}

	correct := 0
	for voter, idx := range votes {
		if idx < 0 || idx >= len(table) {
			return nil, fmt.Errorf("%w: player %d voted %d", ErrVoteOutOfRange, voter, idx)
		}
		if table.IndexOf(voter) < 0 {
			return nil, fmt.Errorf("%w: player %d has no card on the table", ErrVoteCount, voter)
		}
		if idx == storyIdx {
			correct++
		}
	}

	deltas := make(Deltas, len(table))
	for _, e := range table {
		deltas[e.PlayerID] = 0
	}

	switch Classify(correct, len(table)) {
	case OutcomeNoDeception:
		for _, e := range table {
			if e.PlayerID != storytellerID {
				deltas[e.PlayerID] += rules.Consolation
			}
		}
	case OutcomeBalanced:
		deltas[storytellerID] += rules.StorytellerBonus
		for voter, idx := range votes {
			if idx == storyIdx {
				deltas[voter] += rules.CorrectGuessBonus
			}
		}
	}

	for voter, idx := range votes {
		owner := table[idx].PlayerID
		if owner == storytellerID || owner == voter {
			continue
		}
		deltas[owner] += rules.DeceptionPerVote
	}

	return deltas, nil
}

// CorrectGuesses counts the votes that landed on the storyteller's card.
func CorrectGuesses(table Table, votes Votes, storytellerID int) int {
	storyIdx := table.IndexOf(storytellerID)
	n := 0
	for _, idx := range votes {
		if idx == storyIdx {
			n++
		}
	}
	return n
}
