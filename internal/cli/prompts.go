package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/player"

	"github.com/fatih/color"
	"github.com/peterh/liner"
)

// ErrQuit is returned when the person leaves the game at a prompt.
var ErrQuit = errors.New("player quit")

// C holds pre-configured color objects for printing to the console.
var C = struct {
	Yes, No, Info, Warn, Header, Prompt, Clue, Debug *color.Color
}{
	Yes:    color.New(color.FgGreen),
	No:     color.New(color.FgRed),
	Info:   color.New(color.FgCyan),
	Warn:   color.New(color.FgHiYellow),
	Header: color.New(color.FgWhite, color.Bold),
	Prompt: color.New(color.FgHiWhite),
	Clue:   color.New(color.FgMagenta, color.Bold),
	Debug:  color.New(color.FgHiBlack),
}

// LineReader is the part of liner.State the prompts use.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Prompter asks humans for their decisions on the terminal. It implements player.InputSource
// and blocks until the person answers.
type Prompter struct {
	line LineReader
	out  io.Writer
}

func NewPrompter(line LineReader, out io.Writer) *Prompter {
	return &Prompter{line: line, out: out}
}

func (p *Prompter) SelectCard(ctx context.Context, req player.CardRequest) (int, error) {
	if req.Storyteller {
		C.Header.Fprintf(p.out, "\n%s, you are the storyteller. Pick a card to describe.\n", req.PlayerName)
	} else {
		C.Header.Fprintf(p.out, "\n%s, pick the card that best matches ", req.PlayerName)
		C.Clue.Fprintf(p.out, "%q\n", req.Clue)
	}
	for i, c := range req.Hand {
		fmt.Fprintf(p.out, " %2d: %s\n", i+1, cardName(c))
	}
	n, err := p.promptForInt("Card number: ", 1, len(req.Hand), nil)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

func (p *Prompter) EnterClue(ctx context.Context, playerName string, card deck.Card) (string, error) {
	C.Info.Fprintf(p.out, "Describe %s in a word, a sentence or a sound.\n", cardName(card))
	return p.promptForString("Clue: ")
}

func (p *Prompter) SelectVote(ctx context.Context, req player.VoteRequest) (int, error) {
	C.Header.Fprintf(p.out, "\n%s, which card belongs to the storyteller? ", req.PlayerName)
	C.Clue.Fprintf(p.out, "%q\n", req.Clue)
	for i, c := range req.Table {
		mark := ""
		if i == req.Own {
			mark = C.Debug.Sprint(" (yours)")
		}
		fmt.Fprintf(p.out, " %2d: %s%s\n", i+1, cardName(c), mark)
	}
	n, err := p.promptForInt("Vote: ", 1, len(req.Table), func(n int) string {
		if n-1 == req.Own {
			return "You cannot vote for your own card."
		}
		return ""
	})
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// NextRound waits for the go-ahead between rounds.
func (p *Prompter) NextRound(ctx context.Context) error {
	input, err := p.line.Prompt("Press Enter for the next round, or 'q' to quit: ")
	if err != nil {
		return p.promptError(err)
	}
	if strings.EqualFold(strings.TrimSpace(input), "q") {
		return ErrQuit
	}
	return nil
}

func (p *Prompter) promptError(err error) error {
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return ErrQuit
	}
	return fmt.Errorf("error reading line: %w", err)
}

func (p *Prompter) promptForString(prompt string) (string, error) {
	for {
		input, err := p.line.Prompt(prompt)
		if err != nil {
			return "", p.promptError(err)
		}
		trimmed := strings.TrimSpace(input)
		if trimmed != "" {
			p.line.AppendHistory(trimmed)
			return trimmed, nil
		}
	}
}

// promptForInt asks until a number in [min, max] passes check. check returns a complaint or "".
func (p *Prompter) promptForInt(prompt string, min, max int, check func(int) string) (int, error) {
	for {
		input, err := p.promptForString(prompt)
		if err != nil {
			return 0, err
		}
		num, err := strconv.Atoi(input)
		if err != nil || num < min || num > max {
			C.Warn.Fprintf(p.out, "Invalid input. Please enter a number between %d and %d.\n", min, max)
			continue
		}
		if check != nil {
			if msg := check(num); msg != "" {
				C.Warn.Fprintln(p.out, msg)
				continue
			}
		}
		return num, nil
	}
}
