package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cardstack/internal/card"
	"github.com/roach88/cardstack/internal/protocol"
)

// Scenario is a scripted game.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the game id and
	// the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Stacking names the rule ("adjacent" or "any"). Empty means adjacent.
	Stacking string `yaml:"stacking,omitempty"`

	// MaxPlayers bounds the lobby. Zero means the coordinator default.
	MaxPlayers int `yaml:"max_players,omitempty"`

	// Seed is the card the board starts with.
	Seed string `yaml:"seed"`

	// Pile lists the pile in draw order.
	Pile []string `yaml:"pile,omitempty"`

	// Steps are sent to the coordinator in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the state once every step was processed.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one message to the coordinator. Exactly one of Join, Play,
// PileExhausted and Raw is set.
type Step struct {
	Join          *int64    `yaml:"join,omitempty"`
	Play          *PlayStep `yaml:"play,omitempty"`
	PileExhausted bool      `yaml:"pile_exhausted,omitempty"`
	Raw           *RawStep  `yaml:"raw,omitempty"`

	// Expect lists the replies the step must produce, in order per pid.
	Expect []ExpectReply `yaml:"expect,omitempty"`
}

// PlayStep submits a card on behalf of a player.
type PlayStep struct {
	PID  int64  `yaml:"pid"`
	Card string `yaml:"card"`
	Last bool   `yaml:"last,omitempty"`
}

// RawStep sends an arbitrary payload under an arbitrary tag.
type RawStep struct {
	Tag     int64  `yaml:"tag"`
	Payload string `yaml:"payload"`
}

// ExpectReply is a reply a player must receive.
type ExpectReply struct {
	PID    int64  `yaml:"pid"`
	Status string `yaml:"status"`
	Winner *int64 `yaml:"winner,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Card     string  `yaml:"card,omitempty"`     // board_top
	Pile     *int    `yaml:"pile,omitempty"`     // counts
	Board    *int    `yaml:"board,omitempty"`    // counts
	PID      *int64  `yaml:"pid,omitempty"`      // winner
	Phase    string  `yaml:"phase,omitempty"`    // phase
	Players  []int64 `yaml:"players,omitempty"`  // players
	Count    *int    `yaml:"count,omitempty"`    // journal_plays
	Accepted *int    `yaml:"accepted,omitempty"` // journal_plays
}

// Assertion type constants.
const (
	AssertBoardTop     = "board_top"
	AssertCounts       = "counts"
	AssertWinner       = "winner"
	AssertPhase        = "phase"
	AssertPlayers      = "players"
	AssertJournalPlays = "journal_plays"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Deck returns the deck for table.New: the pile with the first draw last,
// then the seed.
func (s *Scenario) Deck() ([]card.Card, error) {
	seed, err := card.Parse(s.Seed)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	deck := make([]card.Card, 0, len(s.Pile)+1)
	for i := len(s.Pile) - 1; i >= 0; i-- {
		c, err := card.Parse(s.Pile[i])
		if err != nil {
			return nil, fmt.Errorf("pile[%d]: %w", i, err)
		}
		deck = append(deck, c)
	}
	return append(deck, seed), nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Seed == "" {
		return fmt.Errorf("seed is required")
	}
	if _, err := s.Deck(); err != nil {
		return err
	}
	if _, err := card.RuleByName(s.Stacking); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	set := 0
	if step.Join != nil {
		set++
	}
	if step.Play != nil {
		set++
		if _, err := card.Parse(step.Play.Card); err != nil {
			return fmt.Errorf("steps[%d].play: %w", index, err)
		}
	}
	if step.PileExhausted {
		set++
	}
	if step.Raw != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of join, play, pile_exhausted, raw is required", index)
	}

	for j, e := range step.Expect {
		switch protocol.Status(e.Status) {
		case protocol.StatusJoined, protocol.StatusRejected, protocol.StatusValid,
			protocol.StatusInvalid, protocol.StatusEnd:
		default:
			return fmt.Errorf("steps[%d].expect[%d]: unknown status %q", index, j, e.Status)
		}
		if e.PID == 0 {
			return fmt.Errorf("steps[%d].expect[%d]: pid is required", index, j)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBoardTop:
		if _, err := card.Parse(a.Card); err != nil {
			return fmt.Errorf("assertions[%d]: card: %w", index, err)
		}
	case AssertCounts:
		if a.Pile == nil && a.Board == nil {
			return fmt.Errorf("assertions[%d]: pile or board is required for counts", index)
		}
	case AssertWinner:
	case AssertPhase:
		if a.Phase == "" {
			return fmt.Errorf("assertions[%d]: phase is required for phase", index)
		}
	case AssertPlayers:
	case AssertJournalPlays:
		if a.Count == nil && a.Accepted == nil {
			return fmt.Errorf("assertions[%d]: count or accepted is required for journal_plays", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
