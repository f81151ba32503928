package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/cardstack/internal/card"
)

// Game is the header row of a recorded game.
type Game struct {
	ID        string
	StartedAt time.Time
	Stacking  string
	SeedCard  card.Card
}

// Join records one join request.
type Join struct {
	GameID   string
	Seq      int64
	PID      int64
	Accepted bool
}

// Play records one adjudicated play.
type Play struct {
	GameID   string
	Seq      int64
	PID      int64
	Card     card.Card
	LastCard bool
	Accepted bool
}

// Ending records how a game ended. Winner is nil when the pile ran out.
type Ending struct {
	GameID string
	Seq    int64
	Winner *int64
	Reason string
}

// WriteGame inserts the game header. Duplicate ids are silently ignored.
func (s *Store) WriteGame(ctx context.Context, g Game) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, started_at, stacking, seed_card)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, g.ID, g.StartedAt.UnixMilli(), g.Stacking, g.SeedCard.String())
	if err != nil {
		return fmt.Errorf("write game: %w", err)
	}
	return nil
}

// WriteJoin inserts a join record. The game must exist (foreign key).
func (s *Store) WriteJoin(ctx context.Context, j Join) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO joins (game_id, seq, pid, accepted)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id, seq) DO NOTHING
	`, j.GameID, j.Seq, j.PID, j.Accepted)
	if err != nil {
		return fmt.Errorf("write join: %w", err)
	}
	return nil
}

// WritePlay inserts an adjudicated play.
func (s *Store) WritePlay(ctx context.Context, p Play) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plays (game_id, seq, pid, card, last_card, accepted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, seq) DO NOTHING
	`, p.GameID, p.Seq, p.PID, p.Card.String(), p.LastCard, p.Accepted)
	if err != nil {
		return fmt.Errorf("write play: %w", err)
	}
	return nil
}

// WriteEnding records the end of a game. A second ending for the same game is
// silently ignored, so the first one recorded stands.
func (s *Store) WriteEnding(ctx context.Context, e Ending) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO endings (game_id, seq, winner, reason)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id) DO NOTHING
	`, e.GameID, e.Seq, e.Winner, e.Reason)
	if err != nil {
		return fmt.Errorf("write ending: %w", err)
	}
	return nil
}
