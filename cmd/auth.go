package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/repositories"
	"github.com/desertthunder/kplor/internal/services"
	"github.com/urfave/cli/v3"
)

// unconfiguredIdentity stands in for the identity provider when its credentials are missing, so catalog
// commands keep working and sign-in reports why it cannot.
type unconfiguredIdentity struct{ err error }

func (u unconfiguredIdentity) fail() error {
	return models.NewIdentityError(models.FailureProviderUnavailable, u.err)
}

func (u unconfiguredIdentity) SignIn(context.Context, string, string) (*services.ProviderIdentity, error) {
	return nil, u.fail()
}

func (u unconfiguredIdentity) SignUp(context.Context, string, string, string) (*services.ProviderIdentity, error) {
	return nil, u.fail()
}

func (u unconfiguredIdentity) SignInWithPopup(context.Context) (*services.ProviderIdentity, error) {
	return nil, u.fail()
}

func (unconfiguredIdentity) SignOut(context.Context) error { return nil }

// identityError adds the user-facing message to identity failures.
func identityError(err error) error {
	var ierr *models.IdentityError
	if errors.As(err, &ierr) {
		return fmt.Errorf("%s (%w)", ierr.Code.Message(), err)
	}
	return err
}

// promptSignIn signs in with email and password, prompting for whatever was not given.
func (r *Runner) promptSignIn(ctx context.Context, email string) (models.Identity, error) {
	var err error
	if email == "" {
		if email, err = r.prompter.Line("Email"); err != nil {
			return models.Identity{}, err
		}
	}
	secret, err := r.prompter.Secret("Password")
	if err != nil {
		return models.Identity{}, err
	}

	id, err := r.session.SignIn(ctx, email, secret)
	if err != nil {
		return models.Identity{}, identityError(err)
	}
	return id, nil
}

// detour runs the authentication the pipeline asked for. The held intent is replayed by the session
// hook before this returns.
func (r *Runner) detour(ctx context.Context, cmd *cli.Command) (models.Identity, error) {
	r.flushNotices()
	if cmd.Bool("google") {
		r.writePlain("Opening the browser for Google sign-in...\n")
		id, err := r.session.SignInWithProvider(ctx)
		if err != nil {
			return models.Identity{}, identityError(err)
		}
		return id, nil
	}
	return r.promptSignIn(ctx, "")
}

// AuthSignIn signs in with email and password.
func (r *Runner) AuthSignIn(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	id, err := r.promptSignIn(ctx, cmd.String("email"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Signed in as %s <%s>\n", id.DisplayName, id.Email)
}

// AuthSignUp creates an account and signs it in.
func (r *Runner) AuthSignUp(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	name, email := cmd.String("name"), cmd.String("email")
	var err error
	if name == "" {
		if name, err = r.prompter.Line("Full name"); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = r.prompter.Line("Email"); err != nil {
			return err
		}
	}
	secret, err := r.prompter.Secret("Password")
	if err != nil {
		return err
	}

	id, err := r.session.SignUp(ctx, name, email, secret)
	if err != nil {
		return identityError(err)
	}
	r.writePlain("✓ Account created for %s <%s>\n", id.DisplayName, id.Email)
	return r.writePlain("A verification email is on its way. Verify it before signing in again.\n")
}

// AuthGoogle signs in through the browser.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	r.writePlain("Opening the browser for Google sign-in...\n")
	id, err := r.session.SignInWithProvider(ctx)
	if err != nil {
		return identityError(err)
	}
	return r.writePlain("✓ Signed in as %s <%s>\n", id.DisplayName, id.Email)
}

// AuthSignOut clears the session and its requested courses.
func (r *Runner) AuthSignOut(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	if err := r.session.SignOut(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

type authStatus struct {
	Session       string           `json:"session"`
	SignedIn      bool             `json:"signedIn"`
	Identity      *models.Identity `json:"identity,omitempty"`
	RequestedIDs  []string         `json:"requestedIds"`
	RequestedKeys []string         `json:"requestedKeys"`
}

// AuthStatus reports the live identity of the session and what it has requested.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	status := authStatus{Session: r.sessionID}
	if id, ok := r.session.Current(); ok {
		status.SignedIn = true
		status.Identity = &id
	}

	var err error
	if status.RequestedIDs, err = r.store.Requested(repositories.KindRecordID); err != nil {
		return err
	}
	if status.RequestedKeys, err = r.store.Requested(repositories.KindCompositeKey); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlain("Session: %s\n", status.Session)
	if !status.SignedIn {
		return r.writePlain("✗ Not signed in\n")
	}
	r.writePlain("✓ Signed in as %s <%s>\n", status.Identity.DisplayName, status.Identity.Email)
	r.writePlain("Requested courses: %d\n", len(status.RequestedIDs))
	for _, id := range status.RequestedIDs {
		r.writePlain("  %s\n", id)
	}
	if len(status.RequestedKeys) > 0 {
		r.writePlain("Submitted courses: %d\n", len(status.RequestedKeys))
		for _, key := range status.RequestedKeys {
			r.writePlain("  %s\n", key)
		}
	}
	return nil
}
