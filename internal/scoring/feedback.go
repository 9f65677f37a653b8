package scoring

// Feedback rates how well a clue worked: -1 too easy or too obscure, 1 balanced.
type Feedback int

const (
	FeedbackMissed   Feedback = -1
	FeedbackNeutral  Feedback = 0
	FeedbackBalanced Feedback = 1
)

const (
	minTemperature = 0.7
	maxTemperature = 1.0
)

// ClueFeedback rates a storyteller's clue from the vote result.
func ClueFeedback(correct, playerCount int) Feedback {
	if playerCount < 2 {
		return FeedbackNeutral
	}
	if Classify(correct, playerCount) == OutcomeNoDeception {
		return FeedbackMissed
	}
	return FeedbackBalanced
}

// AdjustTemperature nudges a bot's clue generation temperature: up after a missed clue,
// down after a balanced one. The result stays within [0.7, 1.0].
func AdjustTemperature(fb Feedback, current float64) float64 {
	t := clamp(current)
	switch fb {
	case FeedbackMissed:
		t += 0.1
	case FeedbackBalanced:
		t -= 0.05
	}
	return clamp(t)
}

func clamp(t float64) float64 {
	if t < minTemperature {
		return minTemperature
	}
	if t > maxTemperature {
		return maxTemperature
	}
	return t
}
