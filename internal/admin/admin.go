// Package admin implements the operator commands: schema migration, creating
// pre-activated accounts and signing a user out everywhere.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/apptracker/internal/cryptox"
	"github.com/dmitrijs2005/apptracker/internal/flagx"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/services"
)

const minPasswordLen = 8

type Migrator interface {
	Migrate(ctx context.Context) error
}

type UserCreator interface {
	CreateActive(ctx context.Context, r services.Registration) (*models.User, error)
}

type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID string) error
}

var ErrUsage = errors.New("usage: admin <migrate|create-user -email ADDR [-first-name N] [-second-name N]|revoke-sessions -user ID>")

type Admin struct {
	migrator Migrator
	users    UserCreator
	sessions SessionRevoker
	out      io.Writer
}

func New(m Migrator, u UserCreator, s SessionRevoker, out io.Writer) *Admin {
	return &Admin{migrator: m, users: u, sessions: s, out: out}
}

// Run executes the command named by args[0].
func (a *Admin) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "migrate":
		return a.migrate(ctx)
	case "create-user":
		return a.createUser(ctx, rest)
	case "revoke-sessions":
		return a.revokeSessions(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, ErrUsage)
	}
}

func (a *Admin) migrate(ctx context.Context) error {
	if err := a.migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(a.out, "Migrations applied")
	return nil
}

func (a *Admin) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("email", "", "account email")
	first := fs.String("first-name", "", "first name")
	second := fs.String("second-name", "", "second name")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-first-name", "-second-name"})); err != nil {
		return err
	}
	if *addr == "" {
		return ErrUsage
	}

	pw, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(pw)

	if len(pw) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	user, err := a.users.CreateActive(ctx, services.Registration{
		Email:      *addr,
		Password:   string(pw),
		FirstName:  *first,
		SecondName: *second,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(a.out, "Created user %s (%s)\n", user.Email, user.ID)
	return nil
}

func (a *Admin) revokeSessions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("revoke-sessions", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userID := fs.String("user", "", "user id")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-user"})); err != nil {
		return err
	}
	if *userID == "" {
		return ErrUsage
	}

	if err := a.sessions.LogoutAll(ctx, *userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	fmt.Fprintf(a.out, "Revoked all sessions of %s\n", *userID)
	return nil
}
