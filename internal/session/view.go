package session

import (
	"fmt"
	"strings"

	"github.com/roach88/cardstack/internal/card"
)

// Key is a player command decoded from the terminal.
type Key int

const (
	KeyPrev Key = iota + 1
	KeyNext
	KeyPlay
	KeyQuit
)

func (k Key) String() string {
	switch k {
	case KeyPrev:
		return "prev"
	case KeyNext:
		return "next"
	case KeyPlay:
		return "play"
	case KeyQuit:
		return "quit"
	default:
		return fmt.Sprintf("key(%d)", int(k))
	}
}

// Screen displays a rendered view.
type Screen interface {
	Show(lines []string) error
}

// View is everything the renderer puts on screen.
type View struct {
	PID    int64
	Top    *card.Card
	Hand   HandView
	Status string
}

// keyHelp is printed under every view.
var keyHelp = []string{
	"Q/Left and D/Right to select another card",
	"S/Enter to play selected card",
	"Esc to exit",
}

// FormatView lays out v as screen lines.
func FormatView(v View) []string {
	lines := []string{fmt.Sprintf("Player %d", v.PID)}

	if v.Top != nil {
		lines = append(lines, "Last card on table: "+v.Top.Label())
	} else {
		lines = append(lines, "Last card on table: ?")
	}
	lines = append(lines, "")

	if len(v.Hand.Cards) == 0 {
		lines = append(lines, "(no cards)")
	} else {
		var b strings.Builder
		for i, c := range v.Hand.Cards {
			mark := ' '
			if i == v.Hand.Selected {
				mark = '*'
			}
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "[%c]%s", mark, c.Label())
		}
		lines = append(lines, b.String())
	}
	lines = append(lines, "", v.Status, "")

	return append(lines, keyHelp...)
}
