// Package archive writes completed sessions to Postgres for long-term
// history. The hot path lives in Redis; this table is the durable record.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/indichess/arena/internal/domain"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// ArchiveSession upserts the session's final record. Re-archiving the
// same session overwrites the previous row.
func (p *Postgres) ArchiveSession(ctx context.Context, s *domain.Session) error {
	if p == nil || p.db == nil || s == nil {
		return nil
	}

	result, method := classifyOutcome(s.StatusMessage)
	movesRaw, _ := json.Marshal(s.Moves)
	duration := s.UpdatedAt.Sub(s.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO arena_games (
	    session_id, white_id, black_id, time_control,
	    result, result_method, final_position, moves,
	    white_clock_sec, black_clock_sec,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    white_id=EXCLUDED.white_id,
	    black_id=EXCLUDED.black_id,
	    time_control=EXCLUDED.time_control,
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    final_position=EXCLUDED.final_position,
	    moves=EXCLUDED.moves,
	    white_clock_sec=EXCLUDED.white_clock_sec,
	    black_clock_sec=EXCLUDED.black_clock_sec,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := p.db.ExecContext(ctx, q,
		s.ID,
		s.WhiteID, s.BlackID, string(s.TimeControl),
		result, method, s.Position, string(movesRaw),
		s.WhiteClockSec, s.BlackClockSec,
		s.CreatedAt, s.UpdatedAt, duration,
	)
	return err
}

// classifyOutcome derives the (result, method) pair from the completion
// message, e.g. "White Wins by Timeout!" -> ("white", "timeout").
func classifyOutcome(message string) (string, string) {
	lower := strings.ToLower(message)

	result := ""
	switch {
	case strings.HasPrefix(lower, "white"):
		result = "white"
	case strings.HasPrefix(lower, "black"):
		result = "black"
	case strings.Contains(lower, "draw") || strings.Contains(lower, "stalemate"):
		result = "draw"
	}

	method := ""
	switch {
	case strings.Contains(lower, "checkmate"):
		method = "checkmate"
	case strings.Contains(lower, "timeout"):
		method = "timeout"
	case strings.Contains(lower, "resignation"):
		method = "resignation"
	case result == "draw":
		method = "draw"
	}
	return result, method
}
