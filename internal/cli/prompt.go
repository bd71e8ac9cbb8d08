package cli

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrPromptUnavailable is returned by prompters that cannot ask the user.
var ErrPromptUnavailable = errors.New("interactive prompt not available")

// Prompter asks the user for credentials when a command is run without them.
type Prompter interface {
	Credentials(username string) (string, string, error)
}

// IsInteractiveTerminal returns true if both stdin and stdout are TTYs.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// FormPrompter prompts with a huh form.
type FormPrompter struct{}

func (FormPrompter) Credentials(username string) (string, string, error) {
	var password string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(required("password")),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		return "", "", err
	}
	return username, password, nil
}

type noPrompter struct{}

func (noPrompter) Credentials(string) (string, string, error) {
	return "", "", ErrPromptUnavailable
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
