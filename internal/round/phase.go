package round

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid phase transition")

// Phase is the step a round is in.
type Phase int

const (
	// AwaitingCardSelection is entered twice: first for the storyteller, then, once the clue is
	// known, for every other player in seat order.
	AwaitingCardSelection Phase = iota
	ClueSubmission
	Voting
	RoundEnd
)

func (p Phase) String() string {
	switch p {
	case AwaitingCardSelection:
		return "AwaitingCardSelection"
	case ClueSubmission:
		return "ClueSubmission"
	case Voting:
		return "Voting"
	case RoundEnd:
		return "RoundEnd"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Trigger is what moves a round from one phase to the next.
type Trigger int

const (
	StorytellerCardChosen Trigger = iota
	ClueRecorded
	AllCardsCollected
	AllVotesCast
)

func (t Trigger) String() string {
	return []string{"storyteller card chosen", "clue recorded", "all cards collected", "all votes cast"}[t]
}

// Transition is the phase table of a round.
func Transition(p Phase, t Trigger) (Phase, error) {
	switch {
	case p == AwaitingCardSelection && t == StorytellerCardChosen:
		return ClueSubmission, nil
	case p == ClueSubmission && t == ClueRecorded:
		return AwaitingCardSelection, nil
	case p == AwaitingCardSelection && t == AllCardsCollected:
		return Voting, nil
	case p == Voting && t == AllVotesCast:
		return RoundEnd, nil
	}
	return p, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, p, t)
}
