package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/raine/storefront/internal/api"
	"github.com/raine/storefront/internal/auth"
	"github.com/raine/storefront/internal/session"
)

var (
	registerFields = []string{"username", "email", "password", "password2", "first_name", "last_name", "telefono", "direccion"}
	profileFields  = []string{"first_name", "last_name", "telefono", "direccion"}
)

func (s *Shell) cmdLogin(ctx context.Context, args []string) error {
	if sess := s.sessions.Session(); sess != nil {
		s.screen.Notify(session.LevelInfo, fmt.Sprintf(MsgAlreadyLoggedIn, sess.Subject))
		return nil
	}
	if len(args) > 2 {
		return errUsage
	}

	var username, password string
	if len(args) > 0 {
		username = args[0]
	}
	if len(args) > 1 {
		password = args[1]
	}
	if username == "" || password == "" {
		var err error
		username, password, err = s.prompter.Credentials(username)
		if errors.Is(err, ErrPromptUnavailable) {
			return errUsage
		}
		if err != nil {
			return err
		}
	}

	if err := s.sessions.Login(ctx, username, password); err != nil {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return nil
}

func (s *Shell) cmdRegister(ctx context.Context, args []string) error {
	fields, err := parseFields(args, registerFields)
	if err != nil {
		return err
	}
	reg := auth.Registration{
		Username:  fields["username"],
		Email:     fields["email"],
		Password:  fields["password"],
		Password2: fields["password2"],
		FirstName: fields["first_name"],
		LastName:  fields["last_name"],
		Telefono:  fields["telefono"],
		Direccion: fields["direccion"],
	}
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		return errUsage
	}
	if reg.Password2 == "" {
		reg.Password2 = reg.Password
	}
	if reg.Password != reg.Password2 {
		return errors.New(MsgPasswordsDontMatch)
	}

	if err := s.sessions.Register(ctx, reg); err != nil {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return nil
}

func (s *Shell) cmdLogout(ctx context.Context, args []string) error {
	if !s.sessions.LoggedIn() {
		s.screen.Notify(session.LevelInfo, MsgNotLoggedIn)
		return nil
	}
	return s.sessions.Logout(ctx)
}

func (s *Shell) cmdWhoami(ctx context.Context, args []string) error {
	sess := s.sessions.Session()
	if sess == nil {
		s.screen.Println(MsgNotLoggedIn)
		return nil
	}
	role := ""
	if sess.IsPrivileged {
		role = " (staff)"
	}
	expires := "never"
	if !sess.ExpiresAt.IsZero() {
		expires = humanize.Time(sess.ExpiresAt)
	}
	s.screen.Println(fmt.Sprintf(MsgWhoami, sess.Subject, role, expires))
	return nil
}

func (s *Shell) cmdProfile(ctx context.Context, args []string) error {
	p, err := s.client.GetProfile(ctx)
	if err != nil {
		return err
	}
	s.printProfile(p)
	return nil
}

func (s *Shell) printProfile(p *api.Profile) {
	s.screen.Heading(p.Username)
	s.screen.Println(formatReplyText(`
		Name:     %s %s
		Email:    %s
		Phone:    %s
		Address:  %s`,
		p.FirstName, p.LastName, p.Email, p.Telefono, p.Direccion))
}

func (s *Shell) cmdProfileSet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	fields, err := parseFields(args, profileFields)
	if err != nil {
		return err
	}

	p, err := s.client.GetProfile(ctx)
	if err != nil {
		return err
	}
	for key, value := range fields {
		switch key {
		case "first_name":
			p.FirstName = value
		case "last_name":
			p.LastName = value
		case "telefono":
			p.Telefono = value
		case "direccion":
			p.Direccion = value
		}
	}

	updated, err := s.client.UpdateProfile(ctx, *p)
	if err != nil {
		return err
	}
	s.screen.Notify(session.LevelSuccess, MsgProfileUpdated)
	s.printProfile(updated)
	return nil
}

func (s *Shell) cmdPasswd(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errUsage
	}
	oldPassword, newPassword := args[0], args[1]
	if len(args) == 3 && args[2] != newPassword {
		return errors.New(MsgPasswordsDontMatch)
	}

	msg, err := s.client.ChangePassword(ctx, oldPassword, newPassword)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = MsgPasswordChanged
	}
	s.screen.Notify(session.LevelSuccess, msg)
	s.screen.Navigate(session.RouteProfile)
	return nil
}

func (s *Shell) cmdDeleteAccount(ctx context.Context, args []string) error {
	if len(args) != 1 || args[0] != "yes" {
		s.screen.Notify(session.LevelWarning, MsgConfirmDelete)
		return nil
	}

	if err := s.client.DeleteAccount(ctx); err != nil {
		return err
	}
	log.Info().Msg("account deleted")
	s.screen.Notify(session.LevelSuccess, MsgAccountDeleted)
	return s.sessions.Logout(ctx)
}
