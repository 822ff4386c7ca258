package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/services"
	"github.com/desertthunder/kplor/internal/shared"
)

// SessionState is the identity state of the session.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateAuthenticating
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// AuthenticatedHook runs after an identity becomes live.
type AuthenticatedHook func(ctx context.Context, identity models.Identity)

// SignOutHook runs after the session is cleared.
type SignOutHook func()

// SessionController owns the live identity. At most one identity is live at a time.
type SessionController struct {
	provider services.IdentityProvider
	store    SessionStore
	logger   *log.Logger

	mu        sync.Mutex
	identity  *models.Identity
	state     SessionState
	onAuth    []AuthenticatedHook
	onSignOut []SignOutHook
}

// NewSessionController creates an anonymous controller. Call [SessionController.Restore] to pick up a
// persisted identity.
func NewSessionController(provider services.IdentityProvider, store SessionStore, logger *log.Logger) *SessionController {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SessionController{provider: provider, store: store, logger: logger}
}

// OnAuthenticated registers a hook that runs synchronously after every successful authentication.
func (c *SessionController) OnAuthenticated(hook AuthenticatedHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAuth = append(c.onAuth, hook)
}

// OnSignOut registers a hook that runs synchronously after sign-out.
func (c *SessionController) OnSignOut(hook SignOutHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSignOut = append(c.onSignOut, hook)
}

// Current returns the live identity.
func (c *SessionController) Current() (models.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return models.Identity{}, false
	}
	return *c.identity, true
}

// State returns the current state.
func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Restore makes a persisted identity live without contacting the provider.
func (c *SessionController) Restore() (models.Identity, bool, error) {
	stored, err := c.store.LoadIdentity()
	if err != nil {
		return models.Identity{}, false, fmt.Errorf("failed to restore session: %w", err)
	}
	if stored == nil {
		return models.Identity{}, false, nil
	}

	c.mu.Lock()
	c.identity = stored
	c.state = StateAuthenticated
	c.mu.Unlock()

	c.logger.Debug("session restored", "email", stored.Email)
	return *stored, true, nil
}

// SignIn verifies email and secret. An unverified account is signed back out and fails with
// [models.FailureEmailNotVerified].
func (c *SessionController) SignIn(ctx context.Context, email, secret string) (models.Identity, error) {
	email = strings.TrimSpace(email)
	if errs := shared.Collect(shared.ValidateEmail(email), shared.ValidateSecret(secret)); len(errs) > 0 {
		return models.Identity{}, errs
	}

	return c.authenticate(ctx, "password", func(ctx context.Context) (*services.ProviderIdentity, error) {
		pid, err := c.provider.SignIn(ctx, email, secret)
		if err != nil {
			return nil, err
		}
		if !pid.EmailVerified {
			if err := c.provider.SignOut(ctx); err != nil {
				c.logger.Warn("failed to sign out unverified account", "error", err)
			}
			return nil, models.NewIdentityError(models.FailureEmailNotVerified, nil)
		}
		return pid, nil
	})
}

// SignUp creates an account, sends the verification email and makes the new identity live.
//
// The account stays unverified, so a later [SessionController.SignIn] fails until the email is confirmed.
func (c *SessionController) SignUp(ctx context.Context, name, email, secret string) (models.Identity, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	errs := shared.Collect(
		shared.ValidateRequired("name", "Name", name),
		shared.ValidateEmail(email),
		shared.ValidateSecret(secret),
	)
	if len(errs) > 0 {
		return models.Identity{}, errs
	}

	return c.authenticate(ctx, "signup", func(ctx context.Context) (*services.ProviderIdentity, error) {
		pid, err := c.provider.SignUp(ctx, name, email, secret)
		if err != nil {
			return nil, err
		}
		pid.DisplayName = name
		return pid, nil
	})
}

// SignInWithProvider runs the interactive third-party flow. A dismissed flow fails with
// [models.FailureProviderPopupCancelled].
func (c *SessionController) SignInWithProvider(ctx context.Context) (models.Identity, error) {
	return c.authenticate(ctx, "provider", c.provider.SignInWithPopup)
}

func (c *SessionController) authenticate(
	ctx context.Context,
	method string,
	fn func(context.Context) (*services.ProviderIdentity, error),
) (models.Identity, error) {
	c.mu.Lock()
	prev := c.state
	c.state = StateAuthenticating
	c.mu.Unlock()

	pid, err := fn(ctx)
	if err == nil && strings.TrimSpace(pid.Email) == "" {
		err = models.NewIdentityError(models.FailureUnknown, fmt.Errorf("provider returned an identity without an email"))
	}
	if err != nil {
		c.mu.Lock()
		c.state = prev
		c.mu.Unlock()

		var ierr *models.IdentityError
		if !errors.As(err, &ierr) {
			err = models.NewIdentityError(models.FailureUnknown, err)
		}
		c.logger.Warn("authentication failed", "method", method, "error", err)
		return models.Identity{}, err
	}

	identity := pid.Identity
	if identity.DisplayName == "" {
		identity.DisplayName = identity.Email
	}

	c.mu.Lock()
	replaced := c.identity != nil && !sameIdentity(*c.identity, identity)
	outHooks := append([]SignOutHook(nil), c.onSignOut...)
	c.mu.Unlock()

	// The requested set belongs to the identity that earned it.
	if replaced {
		err := c.store.Clear()
		for _, hook := range outHooks {
			hook()
		}
		if err != nil {
			c.mu.Lock()
			c.identity = nil
			c.state = StateAnonymous
			c.mu.Unlock()

			err = models.NewIdentityError(models.FailureUnknown, fmt.Errorf("failed to clear previous session: %w", err))
			c.logger.Error("authentication failed", "method", method, "error", err)
			return models.Identity{}, err
		}
		c.logger.Info("replaced live identity", "email", identity.Email)
	}

	c.mu.Lock()
	c.identity = &identity
	c.state = StateAuthenticated
	hooks := append([]AuthenticatedHook(nil), c.onAuth...)
	c.mu.Unlock()

	if err := c.store.SaveIdentity(identity); err != nil {
		c.logger.Error("failed to persist session", "error", err)
	}
	c.logger.Info("signed in", "method", method, "email", identity.Email)

	for _, hook := range hooks {
		hook(ctx, identity)
	}
	return identity, nil
}

// SignOut clears the live identity, the persisted session and the requested set. It is idempotent.
func (c *SessionController) SignOut(ctx context.Context) error {
	c.mu.Lock()
	wasLive := c.identity != nil
	c.identity = nil
	c.state = StateAnonymous
	hooks := append([]SignOutHook(nil), c.onSignOut...)
	c.mu.Unlock()

	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Warn("provider sign-out failed", "error", err)
	}

	err := c.store.Clear()
	for _, hook := range hooks {
		hook()
	}
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	if wasLive {
		c.logger.Info("signed out")
	}
	return nil
}

func sameIdentity(a, b models.Identity) bool {
	if a.SubjectID != "" && b.SubjectID != "" {
		return a.SubjectID == b.SubjectID
	}
	return strings.EqualFold(a.Email, b.Email)
}
