package harness

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/cardstack/internal/card"
	"github.com/roach88/cardstack/internal/coordinator"
	"github.com/roach88/cardstack/internal/mailbox"
	"github.com/roach88/cardstack/internal/protocol"
	"github.com/roach88/cardstack/internal/store"
	"github.com/roach88/cardstack/internal/table"
)

// ReplyTimeout bounds the wait for each expected reply.
const ReplyTimeout = 2 * time.Second

// startedAt is the fixed start time journaled for every scenario game.
var startedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness drives one scenario.
type Harness struct {
	box   *mailbox.Mailbox
	clock *coordinator.Clock
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh table, mailbox and in-memory journal.
//
// Execution flow:
//  1. Build the stacked table and start the coordinator
//  2. Send every step, checking its expected replies
//  3. Close the mailbox so the coordinator drains what is left and stops
//  4. Evaluate assertions against the quiescent state
//
// A missing reply aborts the remaining steps. The returned error is reserved
// for setup failures; scenario failures are reported in Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	deck, err := scenario.Deck()
	if err != nil {
		return nil, err
	}
	rule, err := card.RuleByName(scenario.Stacking)
	if err != nil {
		return nil, err
	}
	tbl, err := table.New(deck)
	if err != nil {
		return nil, err
	}
	defer tbl.Close()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	box := mailbox.New(mailbox.DefaultKey)
	opts := []coordinator.Option{
		coordinator.WithRule(rule),
		coordinator.WithJournal(st),
		coordinator.WithIDGenerator(coordinator.NewFixedGenerator(scenario.Name)),
		coordinator.WithNow(func() time.Time { return startedAt }),
	}
	if scenario.MaxPlayers > 0 {
		opts = append(opts, coordinator.WithMaxPlayers(scenario.MaxPlayers))
	}
	coord := coordinator.New(box, tbl, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- coord.Run(runCtx) }()

	h := &Harness{box: box, clock: coordinator.NewClock()}
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step, result); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			break
		}
	}

	box.Close()
	if err := <-done; err != nil && !errors.Is(err, coordinator.ErrInboxClosed) {
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	actx := &AssertionContext{
		Ctx:         ctx,
		GameID:      scenario.Name,
		Coordinator: coord,
		Table:       tbl,
		Store:       st,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep sends one message and waits for its expected replies.
// Mismatched replies are recorded in result; a missing reply is an error.
func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) error {
	tag, payload, event, err := encodeStep(step)
	if err != nil {
		return err
	}
	event.Seq = h.clock.Next()
	event.Type = EventSend
	result.addEvent(event)
	if err := h.box.Send(tag, payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for _, want := range step.Expect {
		got, err := h.receive(ctx, want.PID)
		if err != nil {
			return err
		}
		result.addEvent(TraceEvent{
			Seq:    h.clock.Next(),
			Type:   EventReply,
			PID:    want.PID,
			Card:   cardString(got.Card),
			Status: string(got.Status),
			Winner: got.Winner,
		})
		if msg := compareReply(want, got); msg != "" {
			result.AddError(msg)
		}
	}
	return nil
}

func (h *Harness) receive(ctx context.Context, pid int64) (protocol.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, ReplyTimeout)
	defer cancel()
	payload, err := h.box.Receive(ctx, pid)
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("no reply for %d: %w", pid, err)
	}
	return protocol.DecodeReply(payload)
}

func encodeStep(step Step) (int64, []byte, TraceEvent, error) {
	switch {
	case step.Join != nil:
		payload, err := protocol.Encode(protocol.Join{PID: *step.Join})
		return protocol.TagJoin, payload, TraceEvent{Tag: "join", PID: *step.Join}, err

	case step.Play != nil:
		c, err := card.Parse(step.Play.Card)
		if err != nil {
			return 0, nil, TraceEvent{}, err
		}
		payload, err := protocol.Encode(protocol.Play{Card: c, IsLastCard: step.Play.Last, PID: step.Play.PID})
		event := TraceEvent{Tag: "play", PID: step.Play.PID, Card: c.String(), Last: step.Play.Last}
		return protocol.TagPlay, payload, event, err

	case step.PileExhausted:
		return protocol.TagPileExhausted, protocol.PileExhaustedMarker, TraceEvent{Tag: "pile_exhausted"}, nil

	case step.Raw != nil:
		return step.Raw.Tag, []byte(step.Raw.Payload), TraceEvent{Tag: strconv.FormatInt(step.Raw.Tag, 10)}, nil

	default:
		return 0, nil, TraceEvent{}, errors.New("empty step")
	}
}

func compareReply(want ExpectReply, got protocol.Reply) string {
	if string(got.Status) != want.Status {
		return fmt.Sprintf("reply to %d: expected status %s, got %s", want.PID, want.Status, got.Status)
	}
	if want.Status != string(protocol.StatusEnd) {
		return ""
	}
	switch {
	case want.Winner == nil && got.Winner != nil:
		return fmt.Sprintf("reply to %d: expected no winner, got %d", want.PID, *got.Winner)
	case want.Winner != nil && got.Winner == nil:
		return fmt.Sprintf("reply to %d: expected winner %d, got none", want.PID, *want.Winner)
	case want.Winner != nil && *want.Winner != *got.Winner:
		return fmt.Sprintf("reply to %d: expected winner %d, got %d", want.PID, *want.Winner, *got.Winner)
	}
	return ""
}

func cardString(c *card.Card) string {
	if c == nil {
		return ""
	}
	return c.String()
}
