package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/cardstack/internal/card"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestGame writes a game header with a fixed seed card.
func createTestGame(t *testing.T, s *Store, id string, started time.Time) Game {
	t.Helper()
	g := Game{
		ID:        id,
		StartedAt: started,
		Stacking:  "adjacent",
		SeedCard:  card.Card{Color: card.Blue, Rank: 9},
	}
	if err := s.WriteGame(context.Background(), g); err != nil {
		t.Fatalf("WriteGame() failed: %v", err)
	}
	return g
}
