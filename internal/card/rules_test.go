package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjacent(t *testing.T) {
	tests := []struct {
		name string
		top  Card
		next Card
		want bool
	}{
		{"same rank other color", Card{Red, 4}, Card{Blue, 4}, true},
		{"same color one up", Card{Red, 4}, Card{Red, 5}, true},
		{"same color one down", Card{Blue, 4}, Card{Blue, 3}, true},
		{"same color two apart", Card{Red, 4}, Card{Red, 6}, false},
		{"other color one apart", Card{Red, 4}, Card{Blue, 5}, false},
		{"bottom edge", Card{Blue, 0}, Card{Blue, 1}, true},
		{"no wraparound", Card{Blue, 9}, Card{Blue, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Adjacent.Allows(tt.top, tt.next))
		})
	}
}

func TestAnything(t *testing.T) {
	assert.True(t, Anything.Allows(Card{Red, 0}, Card{Blue, 9}))
}

func TestRuleByName(t *testing.T) {
	r, err := RuleByName("")
	require.NoError(t, err)
	assert.Equal(t, "adjacent", r.Name())

	r, err = RuleByName("any")
	require.NoError(t, err)
	assert.Equal(t, Anything, r)

	_, err = RuleByName("uno")
	assert.Error(t, err)
}
