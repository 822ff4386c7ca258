// Identity toolkit REST implementation of [IdentityProvider]
//
// Endpoint reference: https://cloud.google.com/identity-platform/docs/use-rest-api
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	identityBaseURL  = "https://identitytoolkit.googleapis.com/v1"
	googleProviderID = "google.com"
)

// identityFailures maps identity toolkit error codes to failure codes.
var identityFailures = map[string]models.IdentityFailure{
	"INVALID_PASSWORD":            models.FailureInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS":   models.FailureInvalidCredentials,
	"EMAIL_NOT_FOUND":             models.FailureUnknownUser,
	"USER_DISABLED":               models.FailureUnknownUser,
	"TOO_MANY_ATTEMPTS_TRY_LATER": models.FailureRateLimited,
	"INVALID_EMAIL":               models.FailureInvalidEmailFormat,
	"MISSING_EMAIL":               models.FailureInvalidEmailFormat,
	"EMAIL_EXISTS":                models.FailureEmailAlreadyRegistered,
	"WEAK_PASSWORD":               models.FailureWeakSecret,
	"MISSING_PASSWORD":            models.FailureWeakSecret,
	"OPERATION_NOT_ALLOWED":       models.FailureProviderUnavailable,
	"INVALID_IDP_RESPONSE":        models.FailureProviderUnavailable,
}

// MapIdentityFailure converts an identity toolkit error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters" to its failure code.
func MapIdentityFailure(message string) models.IdentityFailure {
	code := strings.TrimSpace(message)
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}
	if f, ok := identityFailures[code]; ok {
		return f
	}
	return models.FailureUnknown
}

// FirebaseOpts configures a [FirebaseIdentity].
type FirebaseOpts struct {
	APIKey             string
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	Authorizer         Authorizer
	HTTPClient         *http.Client
}

// FirebaseIdentity implements [IdentityProvider] with email/secret accounts and Google sign-in.
type FirebaseIdentity struct {
	apiKey     string
	baseURL    string
	google     *oauth2.Config
	authorizer Authorizer
	httpClient *http.Client

	mu      sync.Mutex
	idToken string
}

// NewFirebaseIdentity creates the provider. Google sign-in is unavailable unless a client id and an
// [Authorizer] are supplied.
func NewFirebaseIdentity(opts FirebaseOpts) (*FirebaseIdentity, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: identity api_key", shared.ErrMissingCredentials)
	}

	f := &FirebaseIdentity{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		authorizer: opts.Authorizer,
		httpClient: opts.HTTPClient,
	}
	if f.baseURL == "" {
		f.baseURL = identityBaseURL
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.GoogleClientID != "" {
		f.google = &oauth2.Config{
			ClientID:     opts.GoogleClientID,
			ClientSecret: opts.GoogleClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		}
	}
	return f, nil
}

type accountResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	FullName      string `json:"fullName"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken"`
}

func (a accountResponse) identity() *ProviderIdentity {
	name := a.DisplayName
	if name == "" {
		name = a.FullName
	}
	return &ProviderIdentity{
		Identity:      models.Identity{SubjectID: a.LocalID, DisplayName: name, Email: a.Email},
		EmailVerified: a.EmailVerified,
	}
}

// SignIn verifies email and secret, then looks up the account's verification state.
func (f *FirebaseIdentity) SignIn(ctx context.Context, email, secret string) (*ProviderIdentity, error) {
	var acct accountResponse
	err := f.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          secret,
		"returnSecureToken": true,
	}, &acct)
	if err != nil {
		return nil, err
	}

	verified, err := f.lookupVerified(ctx, acct.IDToken)
	if err != nil {
		return nil, err
	}
	acct.EmailVerified = verified

	f.setToken(acct.IDToken)
	return acct.identity(), nil
}

// SignUp creates the account and sends the verification email.
func (f *FirebaseIdentity) SignUp(ctx context.Context, name, email, secret string) (*ProviderIdentity, error) {
	var acct accountResponse
	err := f.call(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          secret,
		"displayName":       name,
		"returnSecureToken": true,
	}, &acct)
	if err != nil {
		return nil, err
	}

	if err := f.call(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     acct.IDToken,
	}, nil); err != nil {
		return nil, err
	}

	if acct.DisplayName == "" {
		acct.DisplayName = name
	}
	f.setToken(acct.IDToken)
	return acct.identity(), nil
}

// SignInWithPopup runs the Google consent flow through the [Authorizer] and exchanges the resulting
// access token for an account.
func (f *FirebaseIdentity) SignInWithPopup(ctx context.Context) (*ProviderIdentity, error) {
	if f.google == nil || f.authorizer == nil {
		return nil, models.NewIdentityError(models.FailureProviderUnavailable,
			fmt.Errorf("%w: identity google_client_id", shared.ErrMissingConfig))
	}

	token, err := f.authorizer.Authorize(ctx, f.google)
	if err != nil {
		if errors.Is(err, shared.ErrAuthCancelled) || errors.Is(err, context.Canceled) {
			return nil, models.NewIdentityError(models.FailureProviderPopupCancelled, err)
		}
		return nil, models.NewIdentityError(models.FailureProviderUnavailable, err)
	}

	postBody := url.Values{}
	postBody.Set("access_token", token.AccessToken)
	postBody.Set("providerId", googleProviderID)
	if idt, ok := token.Extra("id_token").(string); ok && idt != "" {
		postBody.Set("id_token", idt)
	}

	var acct accountResponse
	err = f.call(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          f.google.RedirectURL,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &acct)
	if err != nil {
		return nil, err
	}

	f.setToken(acct.IDToken)
	return acct.identity(), nil
}

// SignOut drops the held id token. The REST API keeps no server-side session to end.
func (f *FirebaseIdentity) SignOut(ctx context.Context) error {
	f.setToken("")
	return nil
}

func (f *FirebaseIdentity) setToken(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idToken = tok
}

func (f *FirebaseIdentity) lookupVerified(ctx context.Context, idToken string) (bool, error) {
	var lookup struct {
		Users []accountResponse `json:"users"`
	}
	if err := f.call(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &lookup); err != nil {
		return false, err
	}
	if len(lookup.Users) == 0 {
		return false, models.NewIdentityError(models.FailureUnknownUser, fmt.Errorf("account lookup returned no users"))
	}
	return lookup.Users[0].EmailVerified, nil
}

// call POSTs a JSON body to an identity toolkit method and decodes the reply into result.
func (f *FirebaseIdentity) call(ctx context.Context, method string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.NewIdentityError(models.FailureUnknown, err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", f.baseURL, method, url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return models.NewIdentityError(models.FailureUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return models.NewIdentityError(models.FailureProviderUnavailable, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.NewIdentityError(models.FailureProviderUnavailable, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Error.Message == "" {
			return models.NewIdentityError(models.FailureProviderUnavailable, fmt.Errorf("%s: status %d", method, resp.StatusCode))
		}
		return models.NewIdentityError(MapIdentityFailure(apiErr.Error.Message), errors.New(apiErr.Error.Message))
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return models.NewIdentityError(models.FailureUnknown, fmt.Errorf("failed to decode response: %w", err))
		}
	}
	return nil
}
