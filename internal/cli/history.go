package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cardstack/internal/config"
	"github.com/roach88/cardstack/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
}

// GameRecord is one journaled game as printed by history.
type GameRecord struct {
	ID        string       `json:"id"`
	StartedAt time.Time    `json:"started_at"`
	Stacking  string       `json:"stacking"`
	SeedCard  string       `json:"seed_card"`
	Players   []int64      `json:"players"`
	Rejected  []int64      `json:"rejected,omitempty"`
	Plays     []PlayRecord `json:"plays"`
	Ended     bool         `json:"ended"`
	Reason    string       `json:"reason,omitempty"`
	Winner    *int64       `json:"winner,omitempty"`
}

// PlayRecord is one adjudicated play.
type PlayRecord struct {
	Seq      int64  `json:"seq"`
	PID      int64  `json:"pid"`
	Card     string `json:"card"`
	LastCard bool   `json:"last_card"`
	Accepted bool   `json:"accepted"`
}

// History is the full journal listing.
type History []GameRecord

func (h History) String() string {
	if len(h) == 0 {
		return "no games recorded"
	}
	var b strings.Builder
	for i, g := range h {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "game %s  started %s  stacking %s  seed %s\n",
			g.ID, g.StartedAt.Format(time.RFC3339), g.Stacking, g.SeedCard)
		fmt.Fprintf(&b, "  players: %s\n", joinIDs(g.Players))
		if len(g.Rejected) > 0 {
			fmt.Fprintf(&b, "  rejected: %s\n", joinIDs(g.Rejected))
		}
		for _, p := range g.Plays {
			verdict := "invalid"
			if p.Accepted {
				verdict = "valid"
			}
			last := ""
			if p.LastCard {
				last = " (last card)"
			}
			fmt.Fprintf(&b, "  #%d  player %d  %s  %s%s\n", p.Seq, p.PID, p.Card, verdict, last)
		}
		switch {
		case !g.Ended:
			b.WriteString("  not finished")
		case g.Winner != nil:
			fmt.Fprintf(&b, "  ended: player %d won", *g.Winner)
		default:
			fmt.Fprintf(&b, "  ended: %s", g.Reason)
		}
		if i < len(h)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled games",
		Long: `List every game recorded in a server journal with its players,
plays and ending.

Example:
  cardstack history --journal ./games.db
  cardstack history --journal ./games.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite game journal (default: server.journal from config)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	setupLogging(cmd.ErrOrStderr(), opts.Verbose)
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path := opts.Journal
	if path == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return f.Fail(ExitConnection, CodeConfig, "invalid configuration", err)
		}
		path = cfg.Server.Journal
	}
	if path == "" {
		return f.Fail(ExitConnection, CodeConfig, "no journal configured: pass --journal", nil)
	}

	// Open would create a missing journal, which is never what history wants.
	if _, err := os.Stat(path); err != nil {
		return f.Fail(ExitConnection, CodeJournal, "journal not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return f.Fail(ExitConnection, CodeJournal, "failed to open journal", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	history, err := readHistory(ctx, st)
	if err != nil {
		return f.Fail(ExitConnection, CodeJournal, "failed to read journal", err)
	}

	f.VerboseLog("Read %d games from %s", len(history), path)
	return f.Success(history)
}

// readHistory assembles every game in the journal, oldest first.
func readHistory(ctx context.Context, st *store.Store) (History, error) {
	games, err := st.ReadGames(ctx)
	if err != nil {
		return nil, err
	}

	history := make(History, 0, len(games))
	for _, g := range games {
		rec := GameRecord{
			ID:        g.ID,
			StartedAt: g.StartedAt,
			Stacking:  g.Stacking,
			SeedCard:  g.SeedCard.String(),
			Players:   []int64{},
			Plays:     []PlayRecord{},
		}

		joins, err := st.ReadJoins(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, j := range joins {
			if j.Accepted {
				rec.Players = appendUnique(rec.Players, j.PID)
			} else {
				rec.Rejected = append(rec.Rejected, j.PID)
			}
		}

		plays, err := st.ReadPlays(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range plays {
			rec.Plays = append(rec.Plays, PlayRecord{
				Seq:      p.Seq,
				PID:      p.PID,
				Card:     p.Card.String(),
				LastCard: p.LastCard,
				Accepted: p.Accepted,
			})
		}

		ending, ok, err := st.ReadEnding(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			rec.Ended = true
			rec.Reason = ending.Reason
			rec.Winner = ending.Winner
		}

		history = append(history, rec)
	}
	return history, nil
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
