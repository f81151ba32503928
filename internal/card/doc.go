// Package card defines the 20-card deck used by cardstack and the rules that
// decide whether a card may be stacked on top of another.
//
// A deck holds every combination of the two colors (RED, BLUE) and the ranks
// 0 through 9. Cards are small immutable values; they are copied, never shared.
//
// STACKING RULES:
//
// Adjacent is the default rule: a card may follow the current top if it has
// the same rank, or the same color and a rank exactly one above or below.
// Anything accepts every play and exists only for casual games where it is
// selected explicitly by configuration.
package card
