// Package tasks is the request-and-upload engine behind the CLI and TUI.
//
// # Components
//
//  1. [CatalogManager] : the local catalog cache
//     - [CatalogManager.Refresh] replaces the cache wholesale and keeps the old one when the source fails
//     - [Project] groups records by institution, filters and stable-sorts the groups
//     - [Expand] applies per-column filters to one group's rows
//     - [CatalogManager.ApplyOptimisticIncrement] bumps a count after a confirmed request
//
//  2. [SessionController] : the live identity
//     - Anonymous → Authenticating → Authenticated, and back to Anonymous on sign-out
//     - validates forms before contacting the provider and maps provider failures to [models.IdentityFailure]
//     - persists the identity through a [SessionStore] and clears the requested set on sign-out
//
//  3. [RequestPipeline] : submissions
//     - holds the last intent of an anonymous user and replays it once after authentication
//     - allows one commit in flight per record; a second trigger is ignored
//     - classifies every attempt into an [Outcome] and records committed keys in the requested set
//
//  4. [UploadOrchestrator] : materials
//     - find-or-create of the "<key>_<title>" container under a fixed parent
//     - de-duplicated batches uploaded by a rate-limited worker pool, aggregated in input order
//     - refuses records that are not in the requested set
//
// # Notices
//
// Operations report user-facing [Notice] values on an optional channel using non-blocking sends, and also
// return them in their results, so a slow or absent reader never stalls the engine.
package tasks
