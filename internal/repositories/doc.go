// Package repositories implements SQLite persistence for session state and the catalog snapshot.
//
// Key Implementations:
//   - [SessionRepository] : the live identity and requested set of one session, keyed by session id
//   - [SnapshotRepository] : the last successfully fetched catalog, replaced wholesale on each refresh
//
// A session id plays the part of a browser tab: state persists across runs that share the id and is never
// shared between ids. Sign-out deletes the session row and every requested entry under it.
package repositories
