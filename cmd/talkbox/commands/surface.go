package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/talkbox/talkbox/pkg/render"
)

// termTheme holds the bubble styles for the terminal surface.
type termTheme struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Ref       lipgloss.Style
	System    lipgloss.Style
}

func defaultTermTheme() termTheme {
	return termTheme{
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")),
		Ref:       lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("#7aa2f7")),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
	}
}

// termSurface renders chat bubbles onto a terminal. One bubble at a time is
// "open": its line is redrawn in place as the typewriter advances, and it is
// sealed with a newline when the next bubble arrives.
type termSurface struct {
	out   io.Writer
	theme termTheme

	mu      sync.Mutex
	openID  string
	prefix  string
	drawn   int // visible width of the open line past the prefix
	prefixW int
}

func newTermSurface(out io.Writer) *termSurface {
	return &termSurface{out: out, theme: defaultTermTheme()}
}

func (s *termSurface) AppendBubble(id, who string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealLocked()

	prefix := s.theme.Assistant.Render("bot ") + "› "
	if who == "user" {
		prefix = s.theme.User.Render("you ") + "› "
	}
	s.openID = id
	s.prefix = prefix
	s.prefixW = lipgloss.Width(prefix)
	s.drawn = 0
	fmt.Fprint(s.out, prefix)
}

func (s *termSurface) SetText(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.openID {
		return
	}
	s.redrawLocked(text)
}

func (s *termSurface) SetSpans(id string, spans []render.Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.openID {
		return
	}
	var b strings.Builder
	for _, sp := range spans {
		if sp.Kind == render.SpanText {
			b.WriteString(sp.Text)
		} else {
			b.WriteString(s.theme.Ref.Render(sp.Text))
		}
	}
	s.redrawLocked(b.String())
}

func (s *termSurface) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.openID {
		return
	}
	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.prefixW+s.drawn)+"\r")
	s.openID = ""
	s.drawn = 0
}

func (s *termSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openID = ""
	s.drawn = 0
	fmt.Fprint(s.out, "\x1b[2J\x1b[H")
}

func (s *termSurface) ScrollToEnd() {}

// System prints a dimmed status line outside the bubble flow.
func (s *termSurface) System(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealLocked()
	fmt.Fprintln(s.out, s.theme.System.Render(text))
}

// sealLocked finishes the open line, if any.
func (s *termSurface) sealLocked() {
	if s.openID != "" {
		fmt.Fprintln(s.out)
		s.openID = ""
		s.drawn = 0
	}
}

// redrawLocked repaints the open line in place, erasing any leftover tail
// from a longer previous draw.
func (s *termSurface) redrawLocked(text string) {
	w := lipgloss.Width(text)
	pad := ""
	if w < s.drawn {
		pad = strings.Repeat(" ", s.drawn-w)
	}
	fmt.Fprint(s.out, "\r"+s.prefix+text+pad)
	s.drawn = w
}

var _ render.Surface = (*termSurface)(nil)
