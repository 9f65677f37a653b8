package eventlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var csvHeader = []string{"timestamp", "game_id", "round", "role", "player", "card", "clue", "action", "vote", "error"}

func openAppend(path string) (*os.File, bool, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, err
		}
	}
	info, err := os.Stat(path)
	fresh := os.IsNotExist(err) || (err == nil && info.Size() == 0)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, err
	}
	return f, fresh, nil
}

// CSVSink appends records to a CSV file, writing the header when the file is new.
type CSVSink struct {
	f *os.File
	w *csv.Writer
}

func NewCSVSink(path string) (*CSVSink, error) {
	f, fresh, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv log: %w", err)
	}
	s := &CSVSink{f: f, w: csv.NewWriter(f)}
	if fresh {
		if err := s.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		s.w.Flush()
	}
	return s, nil
}

func (s *CSVSink) Write(r Record) error {
	row := []string{
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.GameID,
		strconv.Itoa(r.Round),
		r.Role,
		r.Player,
		r.Card,
		r.Clue,
		r.Action,
		voteField(r.Vote),
		r.Error,
	}
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	return s.f.Close()
}

func voteField(v int) string {
	if v < 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// jsonRecord is the JSONL shape of a Record. Every key is always written and fields that do not
// apply are empty strings, the same as in the CSV log.
type jsonRecord struct {
	Timestamp string `json:"timestamp"`
	GameID    string `json:"game_id"`
	Round     int    `json:"round"`
	Role      string `json:"role"`
	Player    string `json:"player"`
	Card      string `json:"card"`
	Clue      string `json:"clue"`
	Action    string `json:"action"`
	Vote      string `json:"vote"`
	Error     string `json:"error"`
}

func toJSON(r Record) jsonRecord {
	return jsonRecord{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		GameID:    r.GameID,
		Round:     r.Round,
		Role:      r.Role,
		Player:    r.Player,
		Card:      r.Card,
		Clue:      r.Clue,
		Action:    r.Action,
		Vote:      voteField(r.Vote),
		Error:     r.Error,
	}
}

// JSONLSink appends one JSON object per line.
type JSONLSink struct {
	f   *os.File
	enc *json.Encoder
}

func NewJSONLSink(path string) (*JSONLSink, error) {
	f, _, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("opening jsonl log: %w", err)
	}
	return &JSONLSink{f: f, enc: json.NewEncoder(f)}, nil
}

func (s *JSONLSink) Write(r Record) error { return s.enc.Encode(toJSON(r)) }
func (s *JSONLSink) Close() error         { return s.f.Close() }
