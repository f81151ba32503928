package card

import "fmt"

// Rule decides whether next may be played on top of top.
type Rule interface {
	Name() string
	Allows(top, next Card) bool
}

type adjacentRule struct{}

func (adjacentRule) Name() string { return "adjacent" }

func (adjacentRule) Allows(top, next Card) bool {
	if next.Rank == top.Rank {
		return true
	}
	if next.Color != top.Color {
		return false
	}
	diff := next.Rank - top.Rank
	return diff == 1 || diff == -1
}

type anythingRule struct{}

func (anythingRule) Name() string { return "any" }

func (anythingRule) Allows(_, _ Card) bool { return true }

var (
	// Adjacent accepts equal ranks, or same color with ranks one apart.
	Adjacent Rule = adjacentRule{}
	// Anything accepts every play.
	Anything Rule = anythingRule{}
)

// RuleByName resolves a configured rule name. The empty name maps to Adjacent.
func RuleByName(name string) (Rule, error) {
	switch name {
	case "", Adjacent.Name():
		return Adjacent, nil
	case Anything.Name():
		return Anything, nil
	default:
		return nil, fmt.Errorf("unknown stacking rule %q", name)
	}
}
