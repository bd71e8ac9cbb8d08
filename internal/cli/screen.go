package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/raine/storefront/internal/session"
)

var levelIcons = map[session.Level]string{
	session.LevelInfo:    "i",
	session.LevelSuccess: "✓",
	session.LevelWarning: "!",
	session.LevelError:   "✗",
}

// Screen is the terminal the shell renders to. It tracks the current route
// and prints notifications.
type Screen struct {
	out io.Writer

	mu    sync.Mutex
	route session.Route

	levels  map[session.Level]lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
}

func NewScreen(out io.Writer) *Screen {
	r := lipgloss.NewRenderer(out)
	return &Screen{
		out:   out,
		route: session.RouteHome,
		levels: map[session.Level]lipgloss.Style{
			session.LevelInfo:    r.NewStyle().Foreground(lipgloss.Color("39")),
			session.LevelSuccess: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
			session.LevelWarning: r.NewStyle().Foreground(lipgloss.Color("214")),
			session.LevelError:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		},
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (s *Screen) Navigate(to session.Route) {
	s.mu.Lock()
	from := s.route
	s.route = to
	s.mu.Unlock()

	if from != to {
		log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("navigate")
	}
}

func (s *Screen) Route() session.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

func (s *Screen) Notify(level session.Level, msg string) {
	style, ok := s.levels[level]
	if !ok {
		style = s.levels[session.LevelInfo]
	}
	s.Println(style.Render(levelIcons[level] + " " + msg))
}

func (s *Screen) Heading(text string) {
	s.Println(s.heading.Render(text))
}

func (s *Screen) Muted(text string) {
	s.Println(s.muted.Render(text))
}

func (s *Screen) Printf(format string, a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, a...)
}

func (s *Screen) Println(a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, a...)
}
