package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardstack/internal/card"
)

const minimalScenario = `
name: minimal
description: "one join"
seed: BLUE 9
steps:
  - join: 5
assertions:
  - {type: phase, phase: in_progress}
`

func TestLoadScenario_Files(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			s, err := LoadScenario(f)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Steps)
			assert.NotEmpty(t, s.Assertions)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Empty(t, s.Stacking)
	assert.Zero(t, s.MaxPlayers)
	require.Len(t, s.Steps, 1)
	require.NotNil(t, s.Steps[0].Join)
	assert.Equal(t, int64(5), *s.Steps[0].Join)
}

func TestParseScenario_FullStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: full
description: "every field"
stacking: any
max_players: 2
seed: RED 0
pile: [BLUE 1, BLUE 2]
steps:
  - play: {pid: 5, card: blue 1, last: true}
    expect:
      - {pid: 5, status: end, winner: 5}
assertions:
  - {type: counts, pile: 2}
  - {type: winner}
`))
	require.NoError(t, err)

	play := s.Steps[0].Play
	require.NotNil(t, play)
	assert.Equal(t, int64(5), play.PID)
	assert.True(t, play.Last)

	want := s.Steps[0].Expect[0]
	assert.Equal(t, "end", want.Status)
	require.NotNil(t, want.Winner)
	assert.Equal(t, int64(5), *want.Winner)

	assert.Nil(t, s.Assertions[1].PID)
	require.NotNil(t, s.Assertions[0].Pile)
	assert.Nil(t, s.Assertions[0].Board)
}

func TestScenario_Deck(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: deck
description: "deck order"
seed: RED 0
pile: [BLUE 1, BLUE 2]
steps:
  - pile_exhausted: true
assertions:
  - {type: winner}
`))
	require.NoError(t, err)

	deck, err := s.Deck()
	require.NoError(t, err)
	assert.Equal(t, []card.Card{
		{Color: card.Blue, Rank: 2},
		{Color: card.Blue, Rank: 1},
		{Color: card.Red, Rank: 0},
	}, deck)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: minimalScenario + "assertion: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: d\nseed: RED 0\nsteps: [{join: 5}]\nassertions: [{type: winner}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nseed: RED 0\nsteps: [{join: 5}]\nassertions: [{type: winner}]\n",
			want: "description is required",
		},
		{
			name: "missing seed",
			yaml: "name: n\ndescription: d\nsteps: [{join: 5}]\nassertions: [{type: winner}]\n",
			want: "seed is required",
		},
		{
			name: "bad pile card",
			yaml: "name: n\ndescription: d\nseed: RED 0\npile: [GREEN 1]\nsteps: [{join: 5}]\nassertions: [{type: winner}]\n",
			want: "pile[0]",
		},
		{
			name: "unknown stacking",
			yaml: "name: n\ndescription: d\nstacking: diagonal\nseed: RED 0\nsteps: [{join: 5}]\nassertions: [{type: winner}]\n",
			want: "unknown stacking rule",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\nseed: RED 0\nassertions: [{type: winner}]\n",
			want: "steps list is required",
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5}]\n",
			want: "assertions list is required",
		},
		{
			name: "two messages in one step",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5, pile_exhausted: true}]\nassertions: [{type: winner}]\n",
			want: "exactly one of",
		},
		{
			name: "empty step",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{expect: []}]\nassertions: [{type: winner}]\n",
			want: "exactly one of",
		},
		{
			name: "bad play card",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{play: {pid: 5, card: RED 10}}]\nassertions: [{type: winner}]\n",
			want: "steps[0].play",
		},
		{
			name: "unknown reply status",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5, expect: [{pid: 5, status: welcome}]}]\nassertions: [{type: winner}]\n",
			want: `unknown status "welcome"`,
		},
		{
			name: "reply without pid",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5, expect: [{status: joined}]}]\nassertions: [{type: winner}]\n",
			want: "pid is required",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5}]\nassertions: [{type: hand_size}]\n",
			want: `unknown assertion type "hand_size"`,
		},
		{
			name: "counts without fields",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5}]\nassertions: [{type: counts}]\n",
			want: "pile or board is required",
		},
		{
			name: "phase without phase",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5}]\nassertions: [{type: phase}]\n",
			want: "phase is required",
		},
		{
			name: "board_top without card",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5}]\nassertions: [{type: board_top}]\n",
			want: "card",
		},
		{
			name: "journal_plays without fields",
			yaml: "name: n\ndescription: d\nseed: RED 0\nsteps: [{join: 5}]\nassertions: [{type: journal_plays}]\n",
			want: "count or accepted is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_ReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
}
