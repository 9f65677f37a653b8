package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Renderer implements the events.Listener interface to print game state to the console.
// Bots publish from their own goroutines, so output is serialized.
type Renderer struct {
	mu         sync.Mutex
	out        io.Writer
	title      string
	fullscreen bool
	names      map[int]string
}

func NewRenderer(out io.Writer, title string, fullscreen bool) *Renderer {
	return &Renderer{out: out, title: title, fullscreen: fullscreen, names: make(map[int]string)}
}

// HandleEvent is the central dispatcher for rendering events.
func (r *Renderer) HandleEvent(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event := e.(type) {
	case events.GameReadyEvent:
		for _, p := range event.Players {
			r.names[p.ID] = p.Name
		}
		C.Header.Fprintf(r.out, "--- %s ---\n", r.title)
		r.renderPlayers(event.Players)
	case events.RoundStartEvent:
		if r.fullscreen {
			fmt.Fprint(r.out, "\033[H\033[2J")
		}
		C.Header.Fprintf(r.out, "\n--- %s round: %s tells a story ---\n", humanize.Ordinal(event.Round), event.StorytellerName)
	case events.HumanHandRevealedEvent:
		C.Info.Fprintf(r.out, "%s's hand: %s\n", event.PlayerName, strings.Join(cardNames(event.Hand), ", "))
	case events.CardPlayedEvent:
		fmt.Fprintf(r.out, "%s places a card face down.\n", event.PlayerName)
	case events.ClueGivenEvent:
		C.Clue.Fprintf(r.out, "%s's clue: %q\n", event.PlayerName, event.Clue)
	case events.TableRevealedEvent:
		r.renderTable(event)
	case events.VoteCastEvent:
		fmt.Fprintf(r.out, "%s has voted.\n", event.PlayerName)
	case events.MoveRejectedEvent:
		C.Warn.Fprintf(r.out, "%s: %s refused (%s)\n", event.PlayerName, event.Action, event.Reason)
	case events.ServiceFailureEvent:
		C.Debug.Fprintf(r.out, "%s could not %s, playing on with a fallback: %s\n", event.PlayerName, event.Operation, event.Err)
	case events.RoundScoredEvent:
		r.renderScores(event)
	case events.DealShortEvent:
		C.Warn.Fprintf(r.out, "The deck ran out; %s could not be refilled.\n", strings.Join(event.PlayerNames, ", "))
	case events.GameOverEvent:
		r.renderGameResult(event)
	}
}

func (r *Renderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	if title != "" {
		t.SetTitle(title)
		t.Style().Title.Align = text.AlignCenter
	}
	t.SetStyle(table.StyleRounded)
	return t
}

func (r *Renderer) renderPlayers(players []events.PlayerInfo) {
	t := r.newTable("Players")
	t.AppendHeader(table.Row{"Seat", "Name", "Kind"})
	for i, p := range players {
		kind := "human"
		if p.Bot {
			kind = "bot"
		}
		t.AppendRow(table.Row{i + 1, p.Name, kind})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	t.Render()
}

func (r *Renderer) renderTable(event events.TableRevealedEvent) {
	t := r.newTable(fmt.Sprintf("Which card is %q?", event.Clue))
	t.AppendHeader(table.Row{"#", "Card"})
	for i, c := range event.Cards {
		t.AppendRow(table.Row{i + 1, cardName(c)})
	}
	t.Render()
}

func (r *Renderer) renderScores(event events.RoundScoredEvent) {
	t := r.newTable(fmt.Sprintf("%s round: %s", humanize.Ordinal(event.Round), event.Outcome))
	t.AppendHeader(table.Row{"#", "Card", "Owner", "Voters"})
	for i, entry := range event.Table {
		var voters []string
		for _, p := range event.Players {
			if v, ok := event.Votes[p.ID]; ok && v == i {
				voters = append(voters, p.Name)
			}
		}
		owner := r.names[entry.PlayerID]
		if entry.PlayerID == event.StorytellerID {
			owner = C.Yes.Sprint(owner + " (storyteller)")
		}
		t.AppendRow(table.Row{i + 1, cardName(entry.Card), owner, strings.Join(voters, ", ")})
	}
	t.Render()

	board := r.newTable("Scores")
	board.AppendHeader(table.Row{"Player", "Round", "Total"})
	for _, p := range event.Players {
		board.AppendRow(table.Row{p.Name, fmt.Sprintf("%+d", event.Deltas[p.ID]), p.Score})
	}
	board.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	board.Render()
}

func (r *Renderer) renderGameResult(event events.GameOverEvent) {
	C.Header.Fprintf(r.out, "\n--- GAME OVER after %s ---\n", pluralRounds(event.Rounds))
	C.Info.Fprintf(r.out, "Reason: %s\n", event.Reason)

	t := r.newTable("Final standings")
	t.AppendHeader(table.Row{"Place", "Player", "Score"})
	place := 0
	for i, p := range event.Standings {
		if i == 0 || p.Score != event.Standings[i-1].Score {
			place = i + 1
		}
		t.AppendRow(table.Row{humanize.Ordinal(place), p.Name, p.Score})
	}
	t.Render()

	switch len(event.Winners) {
	case 0:
		C.Warn.Fprintln(r.out, "Nobody won.")
	case 1:
		C.Yes.Fprintf(r.out, "%s wins!\n", event.Winners[0])
	default:
		C.Yes.Fprintf(r.out, "Tie between %s!\n", strings.Join(event.Winners, " and "))
	}
}

func pluralRounds(n int) string {
	if n == 1 {
		return "1 round"
	}
	return fmt.Sprintf("%d rounds", n)
}

// cardName shows a card by its file name.
func cardName(c deck.Card) string {
	return filepath.Base(string(c))
}

func cardNames(cards []deck.Card) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = cardName(c)
	}
	return names
}
