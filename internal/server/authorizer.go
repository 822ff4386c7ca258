package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kplor/internal/shared"
	"golang.org/x/oauth2"
)

// BrowserAuthorizer runs an authorization code grant through the user's browser and a loopback callback server.
type BrowserAuthorizer struct {
	addr        string
	redirectURL string
	open        func(string) error
	logger      *log.Logger
	timeout     time.Duration
}

// AuthorizerOpts configures a [BrowserAuthorizer].
type AuthorizerOpts struct {
	Server  shared.ServerConfig
	Open    func(string) error // defaults to [shared.OpenBrowser]
	Logger  *log.Logger
	Timeout time.Duration // how long to wait for the callback; 0 waits until the context ends
}

// NewBrowserAuthorizer creates an authorizer that listens on the configured callback address.
func NewBrowserAuthorizer(opts AuthorizerOpts) *BrowserAuthorizer {
	a := &BrowserAuthorizer{
		addr:        opts.Server.CallbackAddr(),
		redirectURL: opts.Server.CallbackURL(),
		open:        opts.Open,
		logger:      opts.Logger,
		timeout:     opts.Timeout,
	}
	if a.open == nil {
		a.open = shared.OpenBrowser
	}
	if a.logger == nil {
		a.logger = shared.NewLogger(nil)
	}
	return a
}

// RedirectURL is the callback URL registered with the OAuth client.
func (a *BrowserAuthorizer) RedirectURL() string {
	return a.redirectURL
}

// Authorize opens the consent screen and waits for the callback.
//
// Cancelling ctx or dismissing the consent screen returns an error wrapping [shared.ErrAuthCancelled].
func (a *BrowserAuthorizer) Authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	cfg := *config
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = a.redirectURL
	}

	state := shared.GenerateID()
	handler := NewOAuthHandler(&cfg, state)

	router := NewBasicRouter()
	router.Use(RequestLogger(a.logger))
	router.Handler(handler)

	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w", a.addr, err)
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("callback server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
	a.logger.Info("Opening browser for authorization", "callback", cfg.RedirectURL)
	if err := a.open(authURL); err != nil {
		a.logger.Warn("Could not open browser, visit this URL to continue", "url", authURL, "error", err)
	}

	waitCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return nil, err
		}
		return result.Token, nil
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthCancelled, waitCtx.Err())
	}
}
