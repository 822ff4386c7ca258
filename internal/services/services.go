// package services defines the capability interfaces for the identity and storage providers
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
	"golang.org/x/oauth2"
)

// ProviderIdentity is an identity as reported by the identity provider, before session policy is applied.
type ProviderIdentity struct {
	models.Identity
	EmailVerified bool
}

// IdentityProvider is the capability surface of the identity service.
//
// Failures are returned as [*models.IdentityError].
type IdentityProvider interface {
	// SignIn verifies an email and secret.
	SignIn(ctx context.Context, email, secret string) (*ProviderIdentity, error)

	// SignUp creates an account and sends the verification email.
	SignUp(ctx context.Context, name, email, secret string) (*ProviderIdentity, error)

	// SignInWithPopup runs the interactive third-party sign-in flow.
	SignInWithPopup(ctx context.Context) (*ProviderIdentity, error)

	// SignOut ends the provider-side session. It is safe to call when nothing is signed in.
	SignOut(ctx context.Context) error
}

// StorageProvider is the capability surface of the remote file store.
type StorageProvider interface {
	// Authenticate obtains a credential if none is cached or the cached one expired.
	Authenticate(ctx context.Context) error

	// FindContainer looks up a live container called name under parentID.
	FindContainer(ctx context.Context, name, parentID string) (string, bool, error)

	// CreateContainer creates a container called name under parentID.
	CreateContainer(ctx context.Context, name, parentID string) (string, error)

	// Upload stores file in containerID and returns the new file id.
	Upload(ctx context.Context, file models.UploadFile, containerID string) (string, error)

	// Name returns the name of the provider (e.g. "Google Drive")
	Name() string
}

// Authorizer runs an interactive OAuth2 grant and returns the resulting token.
type Authorizer interface {
	Authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)
}

// StorageRequestError is a failed storage call. FileName is empty for container operations.
type StorageRequestError struct {
	Op       string
	FileName string
	Err      error
}

func (e *StorageRequestError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("%s: %s %s: %v", shared.ErrStorageRequest, e.Op, e.FileName, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", shared.ErrStorageRequest, e.Op, e.Err)
}

func (e *StorageRequestError) Unwrap() error { return e.Err }

// Is reports StorageRequestError as [shared.ErrStorageRequest].
func (e *StorageRequestError) Is(target error) bool {
	return target == shared.ErrStorageRequest
}
