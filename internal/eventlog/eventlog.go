// Package eventlog keeps an append-only research trail of every game: who played which card,
// which clue was told, how everyone voted and what went wrong along the way.
package eventlog

import (
	"errors"
	"time"
)

// Actions recorded in the log.
const (
	ActionGameStart   = "game_start"
	ActionRoundStart  = "round_start"
	ActionPlayCard    = "play_card"
	ActionClue        = "clue"
	ActionVote        = "vote"
	ActionRejected    = "rejected"
	ActionServiceFail = "service_failure"
	ActionRoundScored = "round_scored"
	ActionGameOver    = "game_over"
)

// Record is one row of the log. Unused fields stay empty; Vote is -1 when no vote is involved.
type Record struct {
	Timestamp time.Time
	GameID    string
	Round     int
	Role      string
	Player    string
	Card      string
	Clue      string
	Action    string
	Vote      int
	Error     string
}

// Sink stores records. Implementations are not required to be safe for concurrent use; the
// Recorder serializes writes.
type Sink interface {
	Write(r Record) error
	Close() error
}

// Multi fans records out to several sinks.
type Multi []Sink

func (m Multi) Write(r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
