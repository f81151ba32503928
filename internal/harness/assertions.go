package harness

import (
	"context"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/roach88/cardstack/internal/card"
	"github.com/roach88/cardstack/internal/coordinator"
	"github.com/roach88/cardstack/internal/store"
	"github.com/roach88/cardstack/internal/table"
)

// AssertionContext is the state assertions are evaluated against.
type AssertionContext struct {
	Ctx         context.Context
	GameID      string
	Coordinator *coordinator.Coordinator
	Table       *table.Table
	Store       *store.Store
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, actual %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertBoardTop:
		return assertBoardTop(a, actx)
	case AssertCounts:
		return assertCounts(a, actx)
	case AssertWinner:
		return assertWinner(a, actx)
	case AssertPhase:
		return assertPhase(a, actx)
	case AssertPlayers:
		return assertPlayers(a, actx)
	case AssertJournalPlays:
		return assertJournalPlays(a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertBoardTop(a Assertion, actx *AssertionContext) error {
	want, err := card.Parse(a.Card)
	if err != nil {
		return err
	}
	got, err := actx.Table.Top(actx.Ctx)
	if err != nil {
		return err
	}
	if got != want {
		return &AssertionError{Type: a.Type, Expected: want.String(), Actual: got.String()}
	}
	return nil
}

func assertCounts(a Assertion, actx *AssertionContext) error {
	counts, err := actx.Table.Counts(actx.Ctx)
	if err != nil {
		return err
	}
	if a.Pile != nil && *a.Pile != counts.Pile {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("pile %d", *a.Pile),
			Actual:   fmt.Sprintf("pile %d", counts.Pile),
		}
	}
	if a.Board != nil && *a.Board != counts.Board {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("board %d", *a.Board),
			Actual:   fmt.Sprintf("board %d", counts.Board),
		}
	}
	return nil
}

func assertWinner(a Assertion, actx *AssertionContext) error {
	got, ok := actx.Coordinator.Winner()
	actual := "no winner"
	if ok {
		actual = fmt.Sprintf("player %d", got)
	}

	switch {
	case a.PID == nil && ok:
		return &AssertionError{Type: a.Type, Expected: "no winner", Actual: actual}
	case a.PID != nil && (!ok || got != *a.PID):
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("player %d", *a.PID), Actual: actual}
	}
	return nil
}

func assertPhase(a Assertion, actx *AssertionContext) error {
	got := actx.Coordinator.Phase().String()
	if got != a.Phase {
		return &AssertionError{Type: a.Type, Expected: a.Phase, Actual: got}
	}
	return nil
}

func assertPlayers(a Assertion, actx *AssertionContext) error {
	got := actx.Coordinator.Players()
	if !slices.Equal(got, a.Players) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprint(a.Players),
			Actual:   fmt.Sprint(got),
		}
	}
	return nil
}

func assertJournalPlays(a Assertion, actx *AssertionContext) error {
	plays, err := actx.Store.ReadPlays(actx.Ctx, actx.GameID)
	if err != nil {
		return err
	}
	accepted := 0
	for _, p := range plays {
		if p.Accepted {
			accepted++
		}
	}

	if a.Count != nil && *a.Count != len(plays) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d plays", *a.Count),
			Actual:   fmt.Sprintf("%d plays", len(plays)),
		}
	}
	if a.Accepted != nil && *a.Accepted != accepted {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d accepted", *a.Accepted),
			Actual:   fmt.Sprintf("%d accepted", accepted),
		}
	}
	return nil
}
