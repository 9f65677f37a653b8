package events

import (
	"sync"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/scoring"
)

// Event is a marker interface for all event types.
type Event interface{}

// Listener defines an interface for any component that wants to react to events.
type Listener interface {
	HandleEvent(e Event)
}

// Manager (or Event Bus) manages listeners and dispatches events.
// Publish may be called from bot goroutines; deliveries are serialized, so listeners must not
// publish from inside HandleEvent.
type Manager struct {
	mu        sync.Mutex
	listeners []Listener
}

func NewManager() *Manager {
	return &Manager{}
}
func (em *Manager) Subscribe(l Listener) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.listeners = append(em.listeners, l)
}
func (em *Manager) Publish(e Event) {
	em.mu.Lock()
	defer em.mu.Unlock()
	for _, l := range em.listeners {
		l.HandleEvent(e)
	}
}

// ListenerFunc adapts a plain function to a Listener.
type ListenerFunc func(e Event)

func (f ListenerFunc) HandleEvent(e Event) { f(e) }

// Roles used in events and the event log.
const (
	RoleStoryteller = "storyteller"
	RolePlayer      = "player"
)

// PlayerInfo is the public view of a seat at the table.
type PlayerInfo struct {
	ID    int
	Name  string
	Bot   bool
	Score int
}

// --- Event Types for Rendering and Logging ---

// GameReadyEvent is published once the game is built and the first hands are dealt.
type GameReadyEvent struct {
	GameID  string
	Players []PlayerInfo
}

type RoundStartEvent struct {
	Round           int
	StorytellerID   int
	StorytellerName string
}

type PhaseChangedEvent struct {
	Round int
	From  string
	To    string
}

// HumanHandRevealedEvent lets the renderer show a human their own hand.
type HumanHandRevealedEvent struct {
	PlayerName string
	Hand       []deck.Card
}

// CardPlayedEvent is published when a player puts a card face down on the table.
type CardPlayedEvent struct {
	Round      int
	Role       string
	PlayerName string
	Card       deck.Card // ground truth, for logging only
}

type ClueGivenEvent struct {
	Round      int
	PlayerName string
	Card       deck.Card // ground truth, for logging only
	Clue       string
}

type TableRevealedEvent struct {
	Round int
	Clue  string
	Cards []deck.Card
}

type VoteCastEvent struct {
	Round      int
	PlayerName string
	Index      int
}

// MoveRejectedEvent reports an input that the round refused without changing state.
type MoveRejectedEvent struct {
	Round      int
	PlayerName string
	Action     string
	Reason     string
}

// ServiceFailureEvent reports a caption, similarity or obfuscation failure a bot recovered from.
type ServiceFailureEvent struct {
	PlayerName string
	Operation  string
	Card       deck.Card
	Err        string
}

type RoundScoredEvent struct {
	Round         int
	StorytellerID int
	Clue          string
	Table         scoring.Table
	Votes         scoring.Votes
	Deltas        scoring.Deltas
	Outcome       scoring.Outcome
	Players       []PlayerInfo
}

// DealShortEvent is published when the deck could not refill every hand.
type DealShortEvent struct {
	PlayerNames []string
}

type GameOverEvent struct {
	Reason    string
	Rounds    int
	Winners   []string
	Standings []PlayerInfo
}
