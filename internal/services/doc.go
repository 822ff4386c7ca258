// Package services implements the remote collaborators of the course demand client.
//
// # Catalog
//
// [CatalogClient] reads the catalog feed and posts interest and new-course submissions. The write endpoints
// answer with a free-text `result` field whose prefix carries the outcome; [ClassifyResult] is the only place
// that knows the "Error" and "Skipped" prefixes.
//
// # Identity
//
// The [IdentityProvider] interface is the capability surface the session controller depends on.
// [FirebaseIdentity] implements it against the identity toolkit REST API. Provider error codes are mapped to
// [models.IdentityFailure] values in one table.
//
// # Storage
//
// The [StorageProvider] interface covers authenticate, find, create and upload.
//   - [DriveStorage] : Google Drive v3 folders; authorization is an interactive OAuth2 grant held in memory only
//   - [S3Storage] : S3 key prefixes marked by a ".keep" object
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrSourceUnavailable] : catalog fetch failed or returned a malformed payload
//   - [shared.ErrTransport] : no response or a non-2xx status from a write endpoint
//   - [shared.ErrStorageAuth] : the storage grant failed or was revoked
//   - [StorageRequestError] : one storage call failed, tagged with the file it concerned
package services
