package main

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// TerminalRenderer draws a HUD of the scroll-driven scene on a tcell screen
// and turns terminal mouse-wheel events into scroll input.
//
// Mouse reporting is enabled so wheel events reach us instead of scrolling the
// terminal's own scrollback.
type TerminalRenderer struct {
	mu      sync.Mutex
	screen  tcell.Screen
	notchDY float64
	closed  bool
}

// NewTerminalRenderer initializes screen. Pass nil to use the real terminal.
func NewTerminalRenderer(screen tcell.Screen, notchDY float64) (*TerminalRenderer, error) {
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("create terminal screen: %w", err)
		}
		screen = s
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal screen: %w", err)
	}
	screen.EnableMouse()
	screen.HideCursor()
	screen.Clear()

	if notchDY <= 0 {
		notchDY = defaultTerminalNotchDY
	}
	return &TerminalRenderer{screen: screen, notchDY: notchDY}, nil
}

var (
	hudStyle    = tcell.StyleDefault
	accentStyle = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	dimStyle    = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Render draws one frame. Rendering after Close is a no-op.
func (r *TerminalRenderer) Render(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	s := r.screen
	s.Clear()
	w, _ := s.Size()

	state := "idle"
	if f.Scrolling {
		state = "scrolling"
	}
	r.drawText(0, 0, accentStyle, "scrollscene")
	r.drawText(0, 1, hudStyle, fmt.Sprintf("scroll %.4f  %s", f.Scroll, state))
	r.drawBar(0, 2, w, f.Scroll)

	if !f.SceneLoaded {
		r.drawText(0, 4, dimStyle, "scene: static (no animation bound)")
	} else {
		r.drawText(0, 4, hudStyle, fmt.Sprintf("clip %s  t=%.3fs", f.ClipName, f.PlaybackTime))
	}
	if f.HasCamera {
		r.drawText(0, 5, hudStyle, "camera "+formatVec3(f.Camera))
	}
	if f.HasLight {
		r.drawText(0, 6, hudStyle, "light  "+formatVec3(f.Light))
	}
	r.drawText(0, 8, dimStyle, "wheel to scroll, q to quit")

	s.Show()
	return nil
}

func (r *TerminalRenderer) drawText(x, y int, style tcell.Style, text string) {
	for i, ch := range []rune(text) {
		r.screen.SetContent(x+i, y, ch, nil, style)
	}
}

// drawBar draws the scroll position as a marker on a ring-like track.
func (r *TerminalRenderer) drawBar(x, y, width int, scroll float64) {
	if width < 3 {
		return
	}
	inner := width - 2
	pos := int(math.Floor(scroll * float64(inner)))
	pos = min(max(pos, 0), inner-1)

	r.screen.SetContent(x, y, '[', nil, dimStyle)
	for i := 0; i < inner; i++ {
		ch, st := '-', dimStyle
		if i == pos {
			ch, st = '#', accentStyle
		}
		r.screen.SetContent(x+1+i, y, ch, nil, st)
	}
	r.screen.SetContent(x+width-1, y, ']', nil, dimStyle)
}

// RunInput polls terminal events until the screen is closed, sending wheel
// input to events and calling quit on q, Esc or Ctrl-C.
func (r *TerminalRenderer) RunInput(ctx context.Context, events chan<- Event, quit func()) error {
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			// Screen finalized.
			return nil
		}

		switch e := ev.(type) {
		case *tcell.EventKey:
			if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC ||
				(e.Key() == tcell.KeyRune && e.Rune() == 'q') {
				quit()
			}

		case *tcell.EventMouse:
			var dy float64
			switch b := e.Buttons(); {
			case b&tcell.WheelDown != 0:
				dy = r.notchDY
			case b&tcell.WheelUp != 0:
				dy = -r.notchDY
			default:
				continue
			}
			select {
			case events <- WheelScrolled{DeltaY: dy}:
			case <-ctx.Done():
				return nil
			}

		case *tcell.EventResize:
			r.mu.Lock()
			if !r.closed {
				r.screen.Sync()
			}
			r.mu.Unlock()
		}
	}
}

// Close restores the terminal. It is safe to call more than once.
func (r *TerminalRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.screen.Fini()
	return nil
}
