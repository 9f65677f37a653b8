package eventlog

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_event (
    %s,
    ts TIMESTAMP NOT NULL,
    game_id TEXT NOT NULL,
    round INTEGER NOT NULL,
    role TEXT,
    player TEXT,
    card TEXT,
    clue TEXT,
    action TEXT NOT NULL,
    vote INTEGER,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_game_event_game_id ON game_event(game_id);
`

// SQLSink stores records in the game_event table of a sqlite or postgres database.
type SQLSink struct {
	db     *sql.DB
	insert string
}

// NewSQLSink opens the database and creates the schema. driver is "sqlite" or "postgres".
func NewSQLSink(driver, dsn string) (*SQLSink, error) {
	var ddl, insert string
	switch driver {
	case "sqlite":
		ddl = fmt.Sprintf(schema, "id INTEGER PRIMARY KEY AUTOINCREMENT")
		insert = `INSERT INTO game_event (ts, game_id, round, role, player, card, clue, action, vote, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	case "postgres":
		ddl = fmt.Sprintf(schema, "id BIGSERIAL PRIMARY KEY")
		insert = `INSERT INTO game_event (ts, game_id, round, role, player, card, clue, action, vote, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	default:
		return nil, fmt.Errorf("unsupported event log database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening event database: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLSink{db: db, insert: insert}, nil
}

func (s *SQLSink) Write(r Record) error {
	var vote sql.NullInt64
	if r.Vote >= 0 {
		vote = sql.NullInt64{Int64: int64(r.Vote), Valid: true}
	}
	_, err := s.db.Exec(s.insert, r.Timestamp.UTC(), r.GameID, r.Round, r.Role, r.Player, r.Card, r.Clue, r.Action, vote, r.Error)
	return err
}

func (s *SQLSink) Close() error { return s.db.Close() }

// DB exposes the connection for reporting queries.
func (s *SQLSink) DB() *sql.DB { return s.db }
