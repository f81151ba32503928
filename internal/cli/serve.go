package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cardstack/internal/auth"
	"github.com/roach88/cardstack/internal/card"
	"github.com/roach88/cardstack/internal/config"
	"github.com/roach88/cardstack/internal/coordinator"
	"github.com/roach88/cardstack/internal/mailbox"
	"github.com/roach88/cardstack/internal/protocol"
	"github.com/roach88/cardstack/internal/store"
	"github.com/roach88/cardstack/internal/table"
)

// shutdownWait bounds how long the server waits for players to hang up after
// the game ended.
const shutdownWait = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr       string
	Secret     string
	Key        int
	MaxPlayers int
	Stacking   string
	Journal    string

	// Listener, Deck and IDGenerator override the defaults (for testing).
	// If nil: listen on Addr, deal a shuffled deck, use UUIDv7 game ids.
	Listener    net.Listener
	Deck        []card.Card
	IDGenerator coordinator.IDGenerator
}

// ServeResult summarizes a served game.
type ServeResult struct {
	Game     string  `json:"game"`
	Players  []int64 `json:"players"`
	Finished bool    `json:"finished"`
	Winner   *int64  `json:"winner,omitempty"`
}

func (r ServeResult) String() string {
	switch {
	case !r.Finished:
		return fmt.Sprintf("game %s interrupted", r.Game)
	case r.Winner != nil:
		return fmt.Sprintf("game %s finished: player %d won", r.Game, *r.Winner)
	default:
		return fmt.Sprintf("game %s finished: pile exhausted, no winner", r.Game)
	}
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a game",
		Long: `Host one game: the shared table, the mailbox and the coordinator.

The server shuffles the deck, seeds the board with one card and waits for up
to four players. It exits once the game has ended.

Example:
  cardstack serve
  cardstack serve --addr :6000 --max-players 2 --journal ./games.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	defaults := config.Default().Server
	cmd.Flags().StringVar(&opts.Addr, "addr", defaults.Addr, "listen address (host:port)")
	cmd.Flags().StringVar(&opts.Secret, "secret", defaults.Secret, "shared secret players authenticate with")
	cmd.Flags().IntVar(&opts.Key, "key", defaults.Key, "mailbox key")
	cmd.Flags().IntVar(&opts.MaxPlayers, "max-players", defaults.MaxPlayers, "lobby size (1-4)")
	cmd.Flags().StringVar(&opts.Stacking, "stacking", defaults.Stacking, "stacking rule (adjacent|any)")
	cmd.Flags().StringVar(&opts.Journal, "journal", defaults.Journal, "path to SQLite game journal (empty disables)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	setupLogging(cmd.ErrOrStderr(), opts.Verbose)
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	flags := cmd.Flags()
	cfg, err := loadConfig(opts.ConfigPath, func(c *config.Config) {
		if flags.Changed("addr") {
			c.Server.Addr = opts.Addr
		}
		if flags.Changed("secret") {
			c.Server.Secret = opts.Secret
		}
		if flags.Changed("key") {
			c.Server.Key = opts.Key
		}
		if flags.Changed("max-players") {
			c.Server.MaxPlayers = opts.MaxPlayers
		}
		if flags.Changed("stacking") {
			c.Server.Stacking = opts.Stacking
		}
		if flags.Changed("journal") {
			c.Server.Journal = opts.Journal
		}
	})
	if err != nil {
		return f.Fail(ExitConnection, CodeConfig, "invalid configuration", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	result, err := serveGame(ctx, cfg.Server, opts)
	if err != nil {
		_ = f.Error(CodeConnection, err.Error(), nil)
		return err
	}
	return f.Success(result)
}

// serveGame hosts one game until it finishes or ctx is cancelled.
//
// Teardown order: the mailbox is closed first so every player still receives
// the game end, then the server waits for the players to hang up, then the
// table is closed and the HTTP server shut down.
func serveGame(ctx context.Context, sc config.ServerConfig, opts *ServeOptions) (*ServeResult, error) {
	rule, err := card.RuleByName(sc.Stacking)
	if err != nil {
		return nil, WrapExitError(ExitConnection, "invalid stacking rule", err)
	}
	signer, err := auth.NewSigner(sc.Secret)
	if err != nil {
		return nil, WrapExitError(ExitConnection, "invalid secret", err)
	}

	deck := opts.Deck
	if deck == nil {
		deck = card.Shuffle(card.NewDeck(), nil)
	}
	tbl, err := table.New(deck)
	if err != nil {
		return nil, WrapExitError(ExitConnection, "failed to create table", err)
	}
	box := mailbox.New(sc.Key)

	coordOpts := []coordinator.Option{
		coordinator.WithRule(rule),
		coordinator.WithMaxPlayers(sc.MaxPlayers),
	}
	if opts.IDGenerator != nil {
		coordOpts = append(coordOpts, coordinator.WithIDGenerator(opts.IDGenerator))
	}
	if sc.Journal != "" {
		st, err := store.Open(sc.Journal)
		if err != nil {
			return nil, WrapExitError(ExitConnection, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		coordOpts = append(coordOpts, coordinator.WithJournal(st))
	}
	coord := coordinator.New(box, tbl, coordOpts...)

	mq := mailbox.NewServer(box, signer, mailbox.WithInboundTags(protocol.ControlTags...))
	tableHandler := table.Handler(tbl, signer)
	mux := http.NewServeMux()
	mux.Handle("/table", tableHandler)
	mux.Handle("/table/", tableHandler)
	mux.Handle("GET /mq/{key}", mq)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok\n")
	})

	ln := opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", sc.Addr)
		if err != nil {
			return nil, WrapExitError(ExitConnection, "failed to listen", err)
		}
	}
	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	slog.Info("server listening",
		"addr", ln.Addr().String(),
		"game", coord.GameID(),
		"key", sc.Key,
		"stacking", rule.Name(),
	)

	var runErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		runErr = coord.Run(gctx)

		box.Close()
		waitCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := mq.Wait(waitCtx); err != nil {
			slog.Warn("players did not hang up in time", "error", err)
		}
		tbl.Close()
		if err := httpSrv.Shutdown(waitCtx); err != nil {
			slog.Warn("http shutdown", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, WrapExitError(ExitConnection, "server failed", err)
	}

	result := &ServeResult{
		Game:     coord.GameID(),
		Players:  coord.Players(),
		Finished: coord.Phase() == coordinator.Finished,
	}
	if w, ok := coord.Winner(); ok {
		result.Winner = &w
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return nil, WrapExitError(ExitConnection, "coordinator failed", runErr)
	}
	slog.Info("server stopped", "game", result.Game, "finished", result.Finished)
	return result, nil
}
