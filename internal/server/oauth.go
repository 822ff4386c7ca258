package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/kplor/internal/shared"
	"golang.org/x/oauth2"
)

const exchangeTimeout = 30 * time.Second

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type pageData struct {
	Title   string
	Message string
	Color   string
}

// OAuthHandler handles the authorization code callback of one grant.
type OAuthHandler struct {
	config      *oauth2.Config
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a handler for config. state should be random per grant.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates state, exchanges the code and publishes the result. Only the first callback counts.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrInvalidArgument)})
		h.render(w, http.StatusBadRequest, pageData{"Authorization Failed", "The sign-in link has expired. Start again from the terminal.", "#c0392b"})
		return
	}

	code := query.Get("code")
	if code == "" {
		errParam := query.Get("error")
		var err error
		if errParam == "access_denied" {
			err = fmt.Errorf("%w: consent screen dismissed", shared.ErrAuthCancelled)
		} else {
			err = fmt.Errorf("authorization failed: %s - %s", errParam, query.Get("error_description"))
		}
		h.Send(OAuthResult{err: err})
		h.render(w, http.StatusBadRequest, pageData{"Authorization Cancelled", "You can close this window and return to the terminal.", "#c0392b"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		h.render(w, http.StatusInternalServerError, pageData{"Authorization Failed", "Token exchange failed. Check the terminal for details.", "#c0392b"})
		return
	}

	h.Send(OAuthResult{Token: token})
	h.render(w, http.StatusOK, pageData{"Authorization Successful", "You can close this window and return to the terminal.", "#2e86de"})
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, data)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
