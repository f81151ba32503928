package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cardstack/internal/card"
)

// ReadGames returns every recorded game, oldest first.
func (s *Store) ReadGames(ctx context.Context) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, stacking, seed_card
		FROM games
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		var (
			g       Game
			started int64
			seed    string
		)
		if err := rows.Scan(&g.ID, &started, &g.Stacking, &seed); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.StartedAt = time.UnixMilli(started).UTC()
		if g.SeedCard, err = card.Parse(seed); err != nil {
			return nil, fmt.Errorf("game %s seed card: %w", g.ID, err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

// ReadJoins returns the join records of a game ordered by seq.
func (s *Store) ReadJoins(ctx context.Context, gameID string) ([]Join, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, seq, pid, accepted
		FROM joins
		WHERE game_id = ?
		ORDER BY seq ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query joins: %w", err)
	}
	defer rows.Close()

	joins := []Join{}
	for rows.Next() {
		var j Join
		if err := rows.Scan(&j.GameID, &j.Seq, &j.PID, &j.Accepted); err != nil {
			return nil, fmt.Errorf("scan join: %w", err)
		}
		joins = append(joins, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate joins: %w", err)
	}
	return joins, nil
}

// ReadPlays returns the adjudicated plays of a game ordered by seq.
func (s *Store) ReadPlays(ctx context.Context, gameID string) ([]Play, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, seq, pid, card, last_card, accepted
		FROM plays
		WHERE game_id = ?
		ORDER BY seq ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query plays: %w", err)
	}
	defer rows.Close()

	plays := []Play{}
	for rows.Next() {
		var (
			p Play
			c string
		)
		if err := rows.Scan(&p.GameID, &p.Seq, &p.PID, &c, &p.LastCard, &p.Accepted); err != nil {
			return nil, fmt.Errorf("scan play: %w", err)
		}
		if p.Card, err = card.Parse(c); err != nil {
			return nil, fmt.Errorf("play %d card: %w", p.Seq, err)
		}
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plays: %w", err)
	}
	return plays, nil
}

// ReadEnding returns the ending of a game. The boolean is false while the
// game has not ended.
func (s *Store) ReadEnding(ctx context.Context, gameID string) (Ending, bool, error) {
	var (
		e      Ending
		winner sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT game_id, seq, winner, reason
		FROM endings
		WHERE game_id = ?
	`, gameID).Scan(&e.GameID, &e.Seq, &winner, &e.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return Ending{}, false, nil
	}
	if err != nil {
		return Ending{}, false, fmt.Errorf("read ending: %w", err)
	}
	if winner.Valid {
		w := winner.Int64
		e.Winner = &w
	}
	return e, true, nil
}
