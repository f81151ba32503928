package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cardstack/internal/auth"
	"github.com/roach88/cardstack/internal/config"
	"github.com/roach88/cardstack/internal/mailbox"
	"github.com/roach88/cardstack/internal/protocol"
	"github.com/roach88/cardstack/internal/session"
	"github.com/roach88/cardstack/internal/table"
	"github.com/roach88/cardstack/internal/terminal"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Server  string
	Secret  string
	Key     int
	ID      int64
	LogPath string
}

// PlayResult is how the game ended for this player.
type PlayResult struct {
	PID     int64  `json:"pid"`
	Outcome string `json:"outcome"`
}

func (r PlayResult) String() string {
	switch r.Outcome {
	case session.Won.String():
		return "We won"
	case session.Lost.String():
		return "We lost"
	case session.NoWinner.String():
		return "The pile ran out: nobody won"
	case session.Quit.String():
		return "End of game"
	default:
		return "Disconnected from the server"
	}
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a game as a player",
		Long: `Join the game hosted at --server and play it in the terminal.

Keys:
  q / Left    select the previous card
  d / Right   select the next card
  s / Enter   play the selected card
  Esc / Ctrl-D  leave the game

Exit codes: 0 when the game ends, 1 when the server cannot be reached,
2 when the lobby is full.

Example:
  cardstack play --server http://localhost:50000
  cardstack play --server http://10.0.0.7:50000 --secret hunter2 --log play.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	defaults := config.Default().Client
	cmd.Flags().StringVar(&opts.Server, "server", defaults.ServerURL, "server URL")
	cmd.Flags().StringVar(&opts.Secret, "secret", defaults.Secret, "shared secret")
	cmd.Flags().IntVar(&opts.Key, "key", defaults.Key, "mailbox key")
	cmd.Flags().Int64Var(&opts.ID, "id", 0, "player id, greater than 4 (default: process id)")
	cmd.Flags().StringVar(&opts.LogPath, "log", "", "write logs to this file (default: discard)")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// The terminal belongs to the game view, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if opts.LogPath != "" {
		lf, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return f.Fail(ExitConnection, CodeConfig, "cannot open log file", err)
		}
		defer lf.Close()
		logOut = lf
	}
	setupLogging(logOut, opts.Verbose)

	flags := cmd.Flags()
	cfg, err := loadConfig(opts.ConfigPath, func(c *config.Config) {
		if flags.Changed("server") {
			c.Client.ServerURL = opts.Server
		}
		if flags.Changed("secret") {
			c.Client.Secret = opts.Secret
		}
		if flags.Changed("key") {
			c.Client.Key = opts.Key
		}
	})
	if err != nil {
		return f.Fail(ExitConnection, CodeConfig, "invalid configuration", err)
	}

	pid := opts.ID
	if pid == 0 {
		pid = int64(os.Getpid())
	}
	if !protocol.ValidPlayerID(pid) {
		return f.Fail(ExitConnection, CodeConfig, fmt.Sprintf("player id %d is reserved", pid), nil)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	f.VerboseLog("Joining %s as player %d", cfg.Client.ServerURL, pid)
	conn, tbl, err := connect(ctx, cfg.Client, pid)
	if err != nil {
		return f.Fail(ExitConnection, CodeConnection, "cannot reach server", err)
	}
	defer conn.Close()

	hand, err := session.Join(ctx, conn, tbl, pid, cfg.Client.HandSize)
	if errors.Is(err, session.ErrLobbyFull) {
		return f.Fail(ExitLobbyFull, CodeLobbyFull, "too many players", err)
	}
	if err != nil {
		return f.Fail(ExitConnection, CodeConnection, "join failed", err)
	}

	term, err := terminal.Open()
	if err != nil {
		return f.Fail(ExitConnection, CodeConnection, "cannot open terminal", err)
	}
	s := session.New(conn, tbl, pid, hand, term, term.Keys(ctx),
		session.WithRenderPeriod(cfg.Client.RenderPeriod),
		session.WithIdleTimeout(cfg.Client.IdleTimeout),
	)
	outcome, err := s.Run(ctx)
	term.Close()
	if err != nil {
		return f.Fail(ExitConnection, CodeConnection, "connection lost", err)
	}

	return f.Success(PlayResult{PID: pid, Outcome: outcome.String()})
}

// connect authenticates as pid and attaches to the remote table and mailbox.
// The table is probed first so an unreachable server fails fast.
func connect(ctx context.Context, cc config.ClientConfig, pid int64) (*mailbox.Conn, *table.Client, error) {
	signer, err := auth.NewSigner(cc.Secret)
	if err != nil {
		return nil, nil, err
	}
	token, err := signer.Issue(pid)
	if err != nil {
		return nil, nil, err
	}

	tbl := table.NewClient(cc.ServerURL, token, nil)
	if _, err := tbl.Counts(ctx); err != nil {
		return nil, nil, fmt.Errorf("reach table: %w", err)
	}

	conn, err := mailbox.Dial(ctx, cc.ServerURL, cc.Key, token)
	if err != nil {
		return nil, nil, err
	}
	return conn, tbl, nil
}
