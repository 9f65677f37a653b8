// Package round implements the state machine of a single Dixit round. The machine never calls a
// player: the driver asks Pending what is needed, obtains it from the player and hands it back
// through Apply, one move at a time.
package round

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"
	"dixit-toolbox/internal/player"
	"dixit-toolbox/internal/scoring"

	"github.com/sirupsen/logrus"
)

var (
	ErrCannotStartRound = errors.New("round cannot start")
	ErrWrongPhase       = errors.New("move does not fit the current phase")
	ErrNotYourTurn      = errors.New("it is not this player's turn")
	ErrNoCard           = errors.New("no card was played")
	ErrDuplicateCard    = errors.New("card is already on the table")
	ErrCardNotHeld      = errors.New("card was not taken from the player's hand")
	ErrEmptyClue        = errors.New("clue cannot be empty")
	ErrVoteOutOfRange   = errors.New("vote does not reference a table position")
	ErrOwnCardVote      = errors.New("players cannot vote for their own card")
)

// Action names the kind of input a round is waiting for.
type Action int

const (
	ActionNone Action = iota
	ActionStorytellerCard
	ActionClue
	ActionPlayCard
	ActionVote
)

func (a Action) String() string {
	return []string{"none", "storyteller_card", "clue", "play_card", "vote"}[a]
}

// Request describes the next input the round needs.
type Request struct {
	Phase    Phase
	Action   Action
	PlayerID int
	Clue     string
	Table    []deck.Card
}

// Move is one input delivered to the round.
type Move struct {
	Action   Action
	PlayerID int
	Card     deck.Card
	Clue     string
	Vote     int
}

// Result is the outcome of a finished round.
type Result struct {
	Round         int
	StorytellerID int
	Clue          string
	Table         scoring.Table
	Votes         scoring.Votes
	Deltas        scoring.Deltas
	Outcome       scoring.Outcome
}

// Machine holds all state of one round. It has a single writer: whoever calls Apply.
type Machine struct {
	number       int
	players      []player.Player
	storyteller  int
	others       []int
	rules        scoring.Rules
	rand         *rand.Rand
	log          logrus.FieldLogger
	eventManager *events.Manager

	phase         Phase
	clue          string
	contributions scoring.Table
	table         scoring.Table
	votes         scoring.Votes
	next          int
	result        *Result
}

// New prepares round number for the given seating. Every player needs a card to play, so an empty
// hand means the round cannot start.
func New(number int, players []player.Player, storyteller int, rules scoring.Rules, rnd *rand.Rand, log logrus.FieldLogger, eventManager *events.Manager) (*Machine, error) {
	if storyteller < 0 || storyteller >= len(players) {
		return nil, fmt.Errorf("%w: storyteller seat %d out of range", ErrCannotStartRound, storyteller)
	}
	for _, p := range players {
		if p.HandSize() == 0 {
			return nil, fmt.Errorf("%w: %s has no cards", ErrCannotStartRound, p.Name())
		}
	}

	m := &Machine{
		number:       number,
		players:      players,
		storyteller:  storyteller,
		rules:        rules,
		rand:         rnd,
		eventManager: eventManager,
		log:          log.WithField("round", number),
		phase:        AwaitingCardSelection,
		votes:        make(scoring.Votes),
	}
	for i := 1; i < len(players); i++ {
		m.others = append(m.others, (storyteller+i)%len(players))
	}
	return m, nil
}

func (m *Machine) Number() int                { return m.number }
func (m *Machine) Phase() Phase               { return m.phase }
func (m *Machine) Clue() string               { return m.clue }
func (m *Machine) Storyteller() player.Player { return m.players[m.storyteller] }
func (m *Machine) Players() []player.Player   { return m.players }

// Result is available once the round reached RoundEnd.
func (m *Machine) Result() (Result, bool) {
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

// Table is the shuffled table the players vote on. It is nil until voting starts.
func (m *Machine) Table() []deck.Card {
	if m.table == nil {
		return nil
	}
	return m.table.Cards()
}

// TablePosition is where playerID's card lies on the voting table, or -1.
func (m *Machine) TablePosition(playerID int) int {
	return m.table.IndexOf(playerID)
}

// Pending tells the driver what the round needs next.
func (m *Machine) Pending() Request {
	req := Request{Phase: m.phase, Clue: m.clue, Table: m.Table()}
	switch m.phase {
	case AwaitingCardSelection:
		if len(m.contributions) == 0 {
			req.Action = ActionStorytellerCard
			req.PlayerID = m.Storyteller().ID()
		} else {
			req.Action = ActionPlayCard
			req.PlayerID = m.players[m.others[m.next]].ID()
		}
	case ClueSubmission:
		req.Action = ActionClue
		req.PlayerID = m.Storyteller().ID()
	case Voting:
		req.Action = ActionVote
		req.PlayerID = m.players[m.others[m.next]].ID()
	}
	return req
}

// Apply validates and records a move. A rejected move leaves the round untouched.
func (m *Machine) Apply(mv Move) error {
	err := m.apply(mv)
	if err != nil {
		name := fmt.Sprintf("player %d", mv.PlayerID)
		if p := m.byID(mv.PlayerID); p != nil {
			name = p.Name()
		}
		m.log.WithFields(logrus.Fields{"player": name, "action": mv.Action}).Debugf("Move rejected: %v", err)
		m.publish(events.MoveRejectedEvent{Round: m.number, PlayerName: name, Action: mv.Action.String(), Reason: err.Error()})
	}
	return err
}

func (m *Machine) apply(mv Move) error {
	req := m.Pending()
	if req.Action == ActionNone || mv.Action != req.Action {
		return fmt.Errorf("%w: %s during %s", ErrWrongPhase, mv.Action, m.phase)
	}
	if mv.PlayerID != req.PlayerID {
		return ErrNotYourTurn
	}

	switch mv.Action {
	case ActionStorytellerCard:
		return m.playCard(mv.Card, events.RoleStoryteller)
	case ActionClue:
		return m.recordClue(mv.Clue)
	case ActionPlayCard:
		return m.playCard(mv.Card, events.RolePlayer)
	case ActionVote:
		return m.castVote(mv.PlayerID, mv.Vote)
	}
	return fmt.Errorf("%w: %s", ErrWrongPhase, mv.Action)
}

func (m *Machine) playCard(card deck.Card, role string) error {
	if card == "" {
		return ErrNoCard
	}
	for _, e := range m.contributions {
		if e.Card == card {
			return fmt.Errorf("%w: %s", ErrDuplicateCard, card)
		}
	}

	var p player.Player
	if role == events.RoleStoryteller {
		p = m.Storyteller()
	} else {
		p = m.players[m.others[m.next]]
	}
	// Players remove the card from their hand before it is handed in.
	if p.Played() != card {
		return fmt.Errorf("%w: %s by %s", ErrCardNotHeld, card, p.Name())
	}
	m.contributions = append(m.contributions, scoring.Entry{PlayerID: p.ID(), Card: card})
	m.publish(events.CardPlayedEvent{Round: m.number, Role: role, PlayerName: p.Name(), Card: card})

	if role == events.RoleStoryteller {
		return m.transition(StorytellerCardChosen)
	}
	m.next++
	if m.next < len(m.others) {
		return nil
	}
	m.next = 0
	m.table = make(scoring.Table, len(m.contributions))
	copy(m.table, m.contributions)
	m.rand.Shuffle(len(m.table), func(i, j int) { m.table[i], m.table[j] = m.table[j], m.table[i] })
	if err := m.transition(AllCardsCollected); err != nil {
		return err
	}
	m.publish(events.TableRevealedEvent{Round: m.number, Clue: m.clue, Cards: m.table.Cards()})
	return nil
}

func (m *Machine) recordClue(clue string) error {
	clue = strings.TrimSpace(clue)
	if clue == "" {
		return ErrEmptyClue
	}
	m.clue = clue
	st := m.Storyteller()
	m.publish(events.ClueGivenEvent{Round: m.number, PlayerName: st.Name(), Card: m.contributions[0].Card, Clue: clue})
	return m.transition(ClueRecorded)
}

func (m *Machine) castVote(voterID, idx int) error {
	if m.clue == "" {
		return fmt.Errorf("%w: no clue yet", ErrWrongPhase)
	}
	if idx < 0 || idx >= len(m.table) {
		return fmt.Errorf("%w: %d of %d", ErrVoteOutOfRange, idx+1, len(m.table))
	}
	if m.table[idx].PlayerID == voterID {
		return ErrOwnCardVote
	}

	if m.next == len(m.others)-1 {
		return m.finish(voterID, idx)
	}
	m.votes[voterID] = idx
	m.next++
	m.publish(events.VoteCastEvent{Round: m.number, PlayerName: m.byID(voterID).Name(), Index: idx})
	return nil
}

// finish scores the round with the last vote included. Scoring is checked before anything is recorded.
func (m *Machine) finish(voterID, idx int) error {
	votes := make(scoring.Votes, len(m.votes)+1)
	for k, v := range m.votes {
		votes[k] = v
	}
	votes[voterID] = idx

	st := m.Storyteller()
	deltas, err := scoring.Score(m.table, votes, st.ID(), m.rules)
	if err != nil {
		return err
	}

	m.votes = votes
	m.next++
	m.publish(events.VoteCastEvent{Round: m.number, PlayerName: m.byID(voterID).Name(), Index: idx})

	for _, p := range m.players {
		p.AddScore(deltas[p.ID()])
	}
	correct := scoring.CorrectGuesses(m.table, votes, st.ID())
	m.result = &Result{
		Round:         m.number,
		StorytellerID: st.ID(),
		Clue:          m.clue,
		Table:         m.table,
		Votes:         votes,
		Deltas:        deltas,
		Outcome:       scoring.Classify(correct, len(m.players)),
	}
	if err := m.transition(AllVotesCast); err != nil {
		return err
	}

	m.log.WithFields(logrus.Fields{"correct": correct, "outcome": m.result.Outcome}).Info("Round scored.")
	m.publish(events.RoundScoredEvent{
		Round:         m.number,
		StorytellerID: st.ID(),
		Clue:          m.clue,
		Table:         m.table,
		Votes:         votes,
		Deltas:        deltas,
		Outcome:       m.result.Outcome,
		Players:       Infos(m.players),
	})
	return nil
}

func (m *Machine) transition(t Trigger) error {
	next, err := Transition(m.phase, t)
	if err != nil {
		return err
	}
	from := m.phase
	m.phase = next
	m.log.WithField("phase", next).Debugf("%s -> %s", from, next)
	m.publish(events.PhaseChangedEvent{Round: m.number, From: from.String(), To: next.String()})
	return nil
}

func (m *Machine) byID(id int) player.Player {
	for _, p := range m.players {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

func (m *Machine) publish(e events.Event) {
	if m.eventManager != nil {
		m.eventManager.Publish(e)
	}
}

// Infos is the public view of the players, in seat order.
func Infos(players []player.Player) []events.PlayerInfo {
	out := make([]events.PlayerInfo, len(players))
	for i, p := range players {
		out[i] = events.PlayerInfo{ID: p.ID(), Name: p.Name(), Bot: player.IsBot(p), Score: p.Score()}
	}
	return out
}
