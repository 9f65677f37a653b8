package eventlog

import (
	"strings"
	"sync"
	"time"

	"dixit-toolbox/internal/events"

	"github.com/sirupsen/logrus"
)

// Recorder turns game events into log records. It is subscribed to the event bus like any
// other listener; write failures are logged and never interrupt the game.
type Recorder struct {
	sink Sink
	log  logrus.FieldLogger
	now  func() time.Time

	mu     sync.Mutex
	gameID string
	round  int
}

func NewRecorder(sink Sink, log logrus.FieldLogger) *Recorder {
	return &Recorder{sink: sink, log: log, now: time.Now}
}

func (r *Recorder) HandleEvent(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records(e) {
		rec.Timestamp = r.now()
		rec.GameID = r.gameID
		if rec.Round == 0 {
			rec.Round = r.round
		}
		if err := r.sink.Write(rec); err != nil {
			r.log.WithField("action", rec.Action).Warnf("Could not write event log: %v", err)
		}
	}
}

func (r *Recorder) records(e events.Event) []Record {
	switch event := e.(type) {
	case events.GameReadyEvent:
		r.gameID = event.GameID
		r.round = 0
		names := make([]string, len(event.Players))
		for i, p := range event.Players {
			names[i] = p.Name
		}
		return []Record{{Action: ActionGameStart, Vote: -1, Clue: strings.Join(names, ", ")}}
	case events.RoundStartEvent:
		r.round = event.Round
		return []Record{{Round: event.Round, Action: ActionRoundStart, Role: events.RoleStoryteller, Player: event.StorytellerName, Vote: -1}}
	case events.CardPlayedEvent:
		return []Record{{Round: event.Round, Action: ActionPlayCard, Role: event.Role, Player: event.PlayerName, Card: string(event.Card), Vote: -1}}
	case events.ClueGivenEvent:
		return []Record{{Round: event.Round, Action: ActionClue, Role: events.RoleStoryteller, Player: event.PlayerName, Card: string(event.Card), Clue: event.Clue, Vote: -1}}
	case events.VoteCastEvent:
		return []Record{{Round: event.Round, Action: ActionVote, Role: events.RolePlayer, Player: event.PlayerName, Vote: event.Index}}
	case events.MoveRejectedEvent:
		return []Record{{Round: event.Round, Action: ActionRejected, Player: event.PlayerName, Clue: event.Action, Vote: -1, Error: event.Reason}}
	case events.ServiceFailureEvent:
		return []Record{{Action: ActionServiceFail, Player: event.PlayerName, Card: string(event.Card), Clue: event.Operation, Vote: -1, Error: event.Err}}
	case events.RoundScoredEvent:
		var out []Record
		for _, p := range event.Players {
			role := events.RolePlayer
			if p.ID == event.StorytellerID {
				role = events.RoleStoryteller
			}
			rec := Record{Round: event.Round, Action: ActionRoundScored, Role: role, Player: p.Name, Clue: event.Clue, Vote: -1}
			if i := event.Table.IndexOf(p.ID); i >= 0 {
				rec.Card = string(event.Table[i].Card)
			}
			if v, ok := event.Votes[p.ID]; ok {
				rec.Vote = v
			}
			out = append(out, rec)
		}
		return out
	case events.GameOverEvent:
		return []Record{{Round: event.Rounds, Action: ActionGameOver, Player: strings.Join(event.Winners, ", "), Clue: event.Reason, Vote: -1}}
	}
	return nil
}
