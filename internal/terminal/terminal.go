// Package terminal adapts a tcell screen to the session's Screen and key
// source.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/roach88/cardstack/internal/session"
)

// ErrClosed is returned by Show after Close.
var ErrClosed = errors.New("terminal closed")

var (
	titleStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	handStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	helpStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorAqua)
)

// Terminal draws session views on a tcell screen and decodes its key events.
//
// Thread-safety: Show and Close are safe for concurrent use.
type Terminal struct {
	mu     sync.Mutex
	screen tcell.Screen
	closed bool
}

// Open initializes the process terminal.
func Open() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	return New(screen), nil
}

// New wraps an already-initialized screen.
func New(screen tcell.Screen) *Terminal {
	return &Terminal{screen: screen}
}

// Show replaces the screen contents with lines.
func (t *Terminal) Show(lines []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	t.screen.Clear()
	for y, line := range lines {
		x := 0
		for _, r := range line {
			t.screen.SetContent(x, y, r, nil, styleFor(y, len(lines)))
			x++
		}
	}
	t.screen.Show()
	return nil
}

// styleFor picks the style of row y: the header, the hand and status rows,
// and the key help at the bottom.
func styleFor(y, n int) tcell.Style {
	switch {
	case y < 2:
		return titleStyle
	case y == 3:
		return handStyle
	case y >= n-3:
		return helpStyle
	default:
		return statusStyle
	}
}

// Keys starts polling the screen and returns the decoded keys. The channel is
// closed when the screen is finalized or ctx is done.
func (t *Terminal) Keys(ctx context.Context) <-chan session.Key {
	out := make(chan session.Key, 8)
	go func() {
		defer close(out)
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				t.screen.Sync()
			case *tcell.EventKey:
				k, ok := Decode(ev)
				if !ok {
					continue
				}
				select {
				case out <- k:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Close restores the terminal. Closing twice is a no-op.
func (t *Terminal) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	t.screen.Fini()
}

// Decode maps a key event to a session key: q/Left previous, d/Right next,
// s/Enter play, Esc/Ctrl-D quit.
func Decode(ev *tcell.EventKey) (session.Key, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return session.KeyPrev, true
	case tcell.KeyRight:
		return session.KeyNext, true
	case tcell.KeyEnter:
		return session.KeyPlay, true
	case tcell.KeyEscape, tcell.KeyCtrlD:
		return session.KeyQuit, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return session.KeyPrev, true
		case 'd', 'D':
			return session.KeyNext, true
		case 's', 'S':
			return session.KeyPlay, true
		}
	}
	return 0, false
}
