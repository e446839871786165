package display

import (
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/DoyleJ11/spelling-bee-backend/internal/templates"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

// Frame is one fully rendered screen.
type Frame struct {
	Type  types.ActionType
	Text  string
	Style templates.Style
	// Highlight is the name lit up by the shuffle loop, if any.
	Highlight string
}

type Screen interface {
	Show(Frame)
}

const clearScreen = "\x1b[2J\x1b[H"

// Terminal draws frames full-width with lipgloss.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

func NewTerminal(out io.Writer, width int) *Terminal {
	if width <= 0 {
		width = 80
	}
	return &Terminal{out: out, width: width}
}

func (t *Terminal) Show(f Frame) {
	body := styleFor(f.Style).Width(t.width).Render(f.Text)
	if f.Highlight != "" {
		hl := lipgloss.NewStyle().
			Width(t.width).
			Align(lipgloss.Center).
			Bold(true).
			Reverse(true).
			Render(f.Highlight)
		body = lipgloss.JoinVertical(lipgloss.Center, body, "", hl)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.out, clearScreen+body+"\n")
}

func styleFor(s templates.Style) lipgloss.Style {
	st := lipgloss.NewStyle().Padding(1, 2).Bold(s.Bold)
	if s.Foreground != "" {
		st = st.Foreground(lipgloss.Color(s.Foreground))
	}
	if s.Background != "" {
		st = st.Background(lipgloss.Color(s.Background))
	}
	switch s.Align {
	case templates.AlignLeft:
		st = st.Align(lipgloss.Left)
	case templates.AlignRight:
		st = st.Align(lipgloss.Right)
	default:
		st = st.Align(lipgloss.Center)
	}
	return st
}
