package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"dixit-toolbox/internal/config"
	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"
	"dixit-toolbox/internal/player"
	"dixit-toolbox/internal/round"

	"github.com/sirupsen/logrus"
)

var (
	ErrGameOver     = errors.New("game is over")
	ErrNoRound      = errors.New("no round in progress")
	ErrRoundRunning = errors.New("current round has not ended")
)

// Reasons a game ends.
const (
	ReasonMaxRounds      = "round limit reached"
	ReasonScoreThreshold = "score threshold reached"
	ReasonOutOfCards     = "a player has no cards left"
	ReasonAborted        = "round aborted"
)

// decision is the answer of a player operation, delivered back to the game loop.
type decision struct {
	req  round.Request
	card deck.Card
	clue string
	vote int
	err  error
}

// Game represents the state and logic of a single Dixit game.
type Game struct {
	ID           string
	Config       *config.GameConfig
	Players      []player.Player
	EventManager *events.Manager

	deck       *deck.Deck
	log        logrus.FieldLogger
	rand       *rand.Rand
	botTimeout time.Duration
	roundGate  func(ctx context.Context) error

	roundNo     int
	storyteller int
	current     *round.Machine
	inflight    chan decision
	over        bool
	reason      string
	// idle is set when the last human asked had no answer yet.
	idle bool
}

func (g *Game) Round() *round.Machine { return g.current }
func (g *Game) Over() bool             { return g.over }
func (g *Game) Reason() string         { return g.reason }
func (g *Game) Deck() *deck.Deck       { return g.deck }

// Waiting reports whether a bot decision is being computed off the game loop.
func (g *Game) Waiting() bool { return g.inflight != nil }

func (g *Game) holders() []deck.Holder {
	hs := make([]deck.Holder, len(g.Players))
	for i, p := range g.Players {
		hs[i] = p
	}
	return hs
}

func (g *Game) infos() []events.PlayerInfo { return round.Infos(g.Players) }

func (g *Game) byID(id int) player.Player {
	for _, p := range g.Players {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// StartRound begins the next round with the current storyteller. When the round cannot start
// because a hand is empty, the game ends instead.
func (g *Game) StartRound() error {
	if g.over {
		return ErrGameOver
	}
	if g.current != nil && g.current.Phase() != round.RoundEnd {
		return ErrRoundRunning
	}

	m, err := round.New(g.roundNo+1, g.Players, g.storyteller, g.Config.Rules, g.rand, g.log, g.EventManager)
	if errors.Is(err, round.ErrCannotStartRound) {
		g.log.Infof("Round %d cannot start: %v", g.roundNo+1, err)
		g.finish(ReasonOutOfCards)
		return nil
	}
	if err != nil {
		return err
	}

	g.roundNo++
	g.current = m
	st := m.Storyteller()
	g.log.WithFields(logrus.Fields{"round": g.roundNo, "storyteller": st.Name()}).Info("Round started.")
	g.EventManager.Publish(events.RoundStartEvent{Round: g.roundNo, StorytellerID: st.ID(), StorytellerName: st.Name()})
	return nil
}

// NextRound closes a finished round: it checks the end conditions, discards the table, refills
// the hands and hands the story to the next player.
func (g *Game) NextRound() error {
	if g.over {
		return ErrGameOver
	}
	if g.current == nil {
		return g.StartRound()
	}
	res, done := g.current.Result()
	if !done {
		return ErrRoundRunning
	}

	if reason, end := g.endReason(); end {
		g.finish(reason)
		return nil
	}

	g.deck.Discard(res.Table.Cards()...)
	report, err := g.deck.Deal(g.holders(), g.Config.HandSize)
	if report.Reshuffled {
		g.log.Debug("Discard pile shuffled back into the deck.")
	}
	if errors.Is(err, deck.ErrInsufficientCards) {
		names := make([]string, 0, len(report.Short))
		for _, id := range report.Short {
			names = append(names, g.byID(id).Name())
		}
		g.log.Warnf("Deck ran short; %s could not be refilled.", strings.Join(names, ", "))
		g.EventManager.Publish(events.DealShortEvent{PlayerNames: names})
	} else if err != nil {
		return err
	}

	g.storyteller = (g.storyteller + 1) % len(g.Players)
	return g.StartRound()
}

func (g *Game) endReason() (string, bool) {
	for _, p := range g.Players {
		if p.Score() >= g.Config.ScoreThreshold {
			return ReasonScoreThreshold, true
		}
	}
	if g.roundNo >= g.Config.MaxRounds {
		return ReasonMaxRounds, true
	}
	return "", false
}

func (g *Game) finish(reason string) {
	g.over = true
	g.reason = reason
	g.log.WithField("reason", reason).Infof("Game over after %d rounds. Winners: %s", g.roundNo, strings.Join(g.Winners(), ", "))
	g.EventManager.Publish(events.GameOverEvent{
		Reason:    reason,
		Rounds:    g.roundNo,
		Winners:   g.Winners(),
		Standings: g.Standings(),
	})
}

// Standings lists the players by score, highest first; ties keep seat order.
func (g *Game) Standings() []events.PlayerInfo {
	s := g.infos()
	sort.SliceStable(s, func(i, j int) bool { return s[i].Score > s[j].Score })
	return s
}

// Winners are all players sharing the highest score.
func (g *Game) Winners() []string {
	var names []string
	best := 0
	for i, p := range g.Standings() {
		if i == 0 {
			best = p.Score
		}
		if p.Score != best {
			break
		}
		names = append(names, p.Name)
	}
	return names
}

// Step advances the game by at most one move without blocking on bots: a bot decision is
// started on its own goroutine and collected by a later Step. It reports whether a move was
// applied to the round. Human players are asked directly; a human source that has no answer yet
// leaves the round untouched.
func (g *Game) Step(ctx context.Context) (bool, error) {
	return g.step(ctx, false)
}

func (g *Game) step(ctx context.Context, block bool) (bool, error) {
	if g.over {
		return false, ErrGameOver
	}
	if g.current == nil {
		return false, ErrNoRound
	}
	if g.current.Phase() == round.RoundEnd {
		return false, nil
	}

	if g.inflight == nil {
		req := g.current.Pending()
		p := g.byID(req.PlayerID)
		if !player.IsBot(p) {
			return g.apply(p, decide(ctx, p, req))
		}
		g.dispatch(ctx, p, req)
	}

	var d decision
	if block {
		select {
		case d = <-g.inflight:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	} else {
		select {
		case d = <-g.inflight:
		default:
			return false, nil
		}
	}
	g.inflight = nil
	return g.apply(g.byID(d.req.PlayerID), d)
}

// dispatch runs a bot decision off the game loop, bounded by the bot timeout.
func (g *Game) dispatch(ctx context.Context, p player.Player, req round.Request) {
	var cancel context.CancelFunc
	if g.botTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, g.botTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	ch := make(chan decision, 1)
	g.inflight = ch
	go func() {
		defer cancel()
		ch <- decide(ctx, p, req)
	}()
}

func decide(ctx context.Context, p player.Player, req round.Request) decision {
	d := decision{req: req}
	switch req.Action {
	case round.ActionStorytellerCard:
		d.card, d.clue, d.err = p.StorytellerTurn(ctx)
	case round.ActionPlayCard:
		d.card, d.err = p.ChooseCardForClue(ctx, req.Clue)
	case round.ActionVote:
		d.vote, d.err = p.Vote(ctx, req.Table, req.Clue)
	default:
		d.err = fmt.Errorf("%w: nothing to decide", round.ErrWrongPhase)
	}
	return d
}

// apply hands a decision to the round. Input mistakes by humans are reported and asked again.
// Anything a bot gets wrong is structural: the round is aborted and the game ends.
func (g *Game) apply(p player.Player, d decision) (bool, error) {
	g.idle = false
	human := !player.IsBot(p)
	if d.err != nil {
		switch {
		case errors.Is(d.err, player.ErrAwaitingInput):
			g.idle = true
			return false, nil
		case human && (errors.Is(d.err, player.ErrEmptyClue) || errors.Is(d.err, player.ErrCardNotInHand)):
			g.EventManager.Publish(events.MoveRejectedEvent{Round: g.roundNo, PlayerName: p.Name(), Action: d.req.Action.String(), Reason: d.err.Error()})
			return false, nil
		case human:
			return false, d.err
		}
		return false, g.abort(fmt.Errorf("%s failed to %s: %w", p.Name(), d.req.Action, d.err))
	}

	m := g.current
	switch d.req.Action {
	case round.ActionStorytellerCard:
		if strings.TrimSpace(d.clue) == "" {
			p.Receive(d.card)
			return false, g.abort(fmt.Errorf("%s: %w", p.Name(), round.ErrEmptyClue))
		}
		if err := m.Apply(round.Move{Action: round.ActionStorytellerCard, PlayerID: p.ID(), Card: d.card}); err != nil {
			giveBack(p, d.card, err)
			return false, g.reject(human, err)
		}
		if err := m.Apply(round.Move{Action: round.ActionClue, PlayerID: p.ID(), Clue: d.clue}); err != nil {
			return false, g.abort(err)
		}
	case round.ActionPlayCard:
		if err := m.Apply(round.Move{Action: round.ActionPlayCard, PlayerID: p.ID(), Card: d.card}); err != nil {
			giveBack(p, d.card, err)
			return false, g.reject(human, err)
		}
	case round.ActionVote:
		err := m.Apply(round.Move{Action: round.ActionVote, PlayerID: p.ID(), Vote: d.vote})
		if err == nil {
			break
		}
		if human {
			return false, nil
		}
		g.log.WithField("player", p.Name()).Warnf("Vote refused (%v), voting for the first other card.", err)
		if err := m.Apply(round.Move{Action: round.ActionVote, PlayerID: p.ID(), Vote: fallbackVote(m, p.ID())}); err != nil {
			return false, g.abort(err)
		}
	}
	return true, nil
}

// giveBack returns a refused card to the hand it was taken from. A card the player never held
// stays out.
func giveBack(p player.Player, card deck.Card, err error) {
	if card == "" || errors.Is(err, round.ErrCardNotHeld) {
		return
	}
	p.Receive(card)
}

// reject lets a human try again after the round refused a move; for bots it is structural.
func (g *Game) reject(human bool, err error) error {
	if human {
		return nil
	}
	return g.abort(err)
}

func (g *Game) abort(err error) error {
	g.log.WithField("round", g.roundNo).Errorf("Round aborted: %v", err)
	g.finish(ReasonAborted)
	return err
}

// fallbackVote is the first table position that is not the voter's own card.
func fallbackVote(m *round.Machine, voterID int) int {
	if m.TablePosition(voterID) == 0 {
		return 1
	}
	return 0
}

// Run plays the game to the end. Bot decisions are awaited; between rounds the round gate, if
// any, is asked for the go-ahead. Run returns player.ErrAwaitingInput when a human source has
// no answer, since nothing could make progress. A structural error ends the game and is returned.
func (g *Game) Run(ctx context.Context) error {
	if g.current == nil && !g.over {
		if err := g.StartRound(); err != nil {
			return err
		}
	}
	for !g.over {
		if err := ctx.Err(); err != nil {
			return err
		}
		if g.current.Phase() == round.RoundEnd {
			if _, end := g.endReason(); !end && g.roundGate != nil {
				if err := g.roundGate(ctx); err != nil {
					return err
				}
			}
			if err := g.NextRound(); err != nil {
				return err
			}
			continue
		}
		advanced, err := g.step(ctx, true)
		if err != nil {
			return err
		}
		if !advanced && g.idle {
			return fmt.Errorf("round %d stalled: %w", g.roundNo, player.ErrAwaitingInput)
		}
	}
	return nil
}
