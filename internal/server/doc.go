// Package server runs the short-lived loopback HTTP server behind interactive OAuth2 grants.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] uses [http.ServeMux] with
// method filtering, and [Middleware] wraps handlers in reverse order (last added executes first).
// [RequestLogger] logs each request through charmbracelet/log.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter, exchanges the authorization code and sends exactly one
// [OAuthResult] on its channel. A consent screen the user dismissed (error=access_denied) is reported as
// [shared.ErrAuthCancelled].
//
// # Browser Authorizer
//
// [BrowserAuthorizer] ties the pieces together for the CLI and TUI: it starts the callback server on the
// configured address, opens the consent URL in the user's browser and waits for the callback or for the
// context to end. It serves both Google sign-in and the Drive storage grant.
package server
