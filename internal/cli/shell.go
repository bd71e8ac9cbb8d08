// Package cli is the interactive storefront shell. Each command maps to a
// screen of the storefront and is checked against its route guard before it
// runs.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/raine/storefront/internal/api"
	"github.com/raine/storefront/internal/cart"
	"github.com/raine/storefront/internal/session"
)

var (
	// errUsage makes the shell print the command's usage line.
	errUsage = errors.New("invalid arguments")
	// errReported marks errors the user has already been told about.
	errReported = errors.New("already reported")
)

type ShellOpts struct {
	Screen   *Screen
	Sessions *session.Manager
	Client   *api.Client
	Cart     *cart.Cart
	// Prompter asks for missing login credentials. Nil disables prompting.
	Prompter Prompter
}

type Shell struct {
	screen   *Screen
	sessions *session.Manager
	client   *api.Client
	cart     *cart.Cart
	prompter Prompter
	commands []Command
}

func NewShell(opts ShellOpts) *Shell {
	s := &Shell{
		screen:   opts.Screen,
		sessions: opts.Sessions,
		client:   opts.Client,
		cart:     opts.Cart,
		prompter: opts.Prompter,
	}
	if s.prompter == nil {
		s.prompter = noPrompter{}
	}
	s.commands = s.buildCommands()
	return s
}

// Execute runs one command line. It returns true when the user asked to quit.
func (s *Shell) Execute(ctx context.Context, line string) (quit bool) {
	quit, _ = s.execute(ctx, line)
	return quit
}

// RunCommand runs one command line like Execute and returns an error when
// the command did not succeed. The user has already been told why.
func (s *Shell) RunCommand(ctx context.Context, line string) error {
	_, err := s.execute(ctx, line)
	return err
}

func (s *Shell) execute(ctx context.Context, line string) (quit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("line", line).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic in command")
			s.screen.Notify(session.LevelError, MsgUnexpectedErr)
			quit, err = false, fmt.Errorf("panic: %v", r)
		}
	}()

	words, err := splitArgs(strings.TrimSpace(line))
	if err != nil {
		s.screen.Notify(session.LevelError, err.Error())
		return false, err
	}
	if len(words) == 0 {
		return false, nil
	}

	cmd, args := s.lookup(words)
	if cmd == nil {
		s.screen.Notify(session.LevelWarning, fmt.Sprintf(MsgUnknownCommand, words[0]))
		return false, fmt.Errorf("unknown command %q", words[0])
	}
	if cmd.Quit {
		s.screen.Println(MsgBye)
		return true, nil
	}

	if cmd.Guard != nil {
		if d := cmd.Guard.Check(s.sessions.Session()); !d.Allowed {
			log.Debug().Str("command", cmd.Name).Str("guard", cmd.Guard.Name).Msg("command blocked by guard")
			s.screen.Notify(session.LevelWarning, d.Message)
			s.screen.Navigate(d.Redirect)
			return false, fmt.Errorf("%s: blocked by %s guard", cmd.Name, cmd.Guard.Name)
		}
	}
	if cmd.Route != "" {
		s.screen.Navigate(cmd.Route)
	}

	if err := cmd.Run(ctx, args); err != nil {
		s.reportError(cmd, err)
		return false, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return false, nil
}

// Run reads commands from in until EOF, a quit command or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The reader only scans when asked so a command can prompt on the same
	// input while it runs.
	next := make(chan struct{}, 1)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for {
			select {
			case <-next:
			case <-ctx.Done():
				return
			}
			if !scanner.Scan() {
				scanErr <- scanner.Err()
				return
			}
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	s.screen.Muted(MsgWelcome)
	for {
		s.prompt()
		next <- struct{}{}
		select {
		case <-ctx.Done():
			s.screen.Println()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				s.screen.Println()
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if s.Execute(ctx, line) {
				return nil
			}
		}
	}
}

func (s *Shell) prompt() {
	who := "guest"
	if sess := s.sessions.Session(); sess != nil {
		who = sess.Subject
		if sess.IsPrivileged {
			who += "*"
		}
	}
	s.screen.Printf("%s %s> ", who, s.screen.Route())
}

// lookup finds the command with the longest name matching the leading words.
func (s *Shell) lookup(words []string) (*Command, []string) {
	for n := min(maxCommandWords, len(words)); n > 0; n-- {
		name := strings.Join(words[:n], " ")
		for i := range s.commands {
			if s.commands[i].Name == name || s.commands[i].Alias == name {
				return &s.commands[i], words[n:]
			}
		}
	}
	return nil, nil
}

func (s *Shell) reportError(cmd *Command, err error) {
	switch {
	case errors.Is(err, errUsage):
		s.screen.Notify(session.LevelWarning, fmt.Sprintf(MsgUsage, cmd.Usage()))
		return
	case errors.Is(err, errReported):
		return
	case errors.Is(err, session.ErrSessionChanged):
		log.Debug().Err(err).Str("command", cmd.Name).Msg("session changed while command was running")
		s.screen.Notify(session.LevelWarning, MsgSessionChanged)
		return
	case session.Notified(err):
		log.Debug().Err(err).Str("command", cmd.Name).Msg("command failed after session expired")
		return
	}

	log.Error().Err(err).Str("command", cmd.Name).Msg("command failed")

	var re *api.RequestError
	if errors.As(err, &re) {
		s.screen.Notify(session.LevelError, re.UserMessage())
		return
	}
	s.screen.Notify(session.LevelError, capitalize(err.Error()))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
