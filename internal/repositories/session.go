package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/kplor/internal/models"
)

// SessionRepository persists one session's identity and requested set.
type SessionRepository struct {
	db        *sql.DB
	sessionID string
}

// NewSessionRepository creates a [SessionRepository] scoped to sessionID.
func NewSessionRepository(db *sql.DB, sessionID string) *SessionRepository {
	return &SessionRepository{db: db, sessionID: sessionID}
}

// SessionID returns the id this repository is scoped to.
func (r *SessionRepository) SessionID() string {
	return r.sessionID
}

// LoadIdentity returns the stored identity, or nil when the session is anonymous.
func (r *SessionRepository) LoadIdentity() (*models.Identity, error) {
	query := `SELECT subject_id, display_name, email FROM sessions WHERE id = ?`

	var id models.Identity
	err := r.db.QueryRow(query, r.sessionID).Scan(&id.SubjectID, &id.DisplayName, &id.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &id, nil
}

// SaveIdentity stores identity as the live identity of the session.
func (r *SessionRepository) SaveIdentity(identity models.Identity) error {
	now := time.Now()
	query := `
		INSERT INTO sessions (id, subject_id, display_name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject_id = excluded.subject_id,
			display_name = excluded.display_name,
			email = excluded.email,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, r.sessionID, identity.SubjectID, identity.DisplayName, identity.Email, now, now); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the identity and the requested set of the session.
func (r *SessionRepository) Clear() error {
	return withTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM requested_records WHERE session_id = ?`, r.sessionID); err != nil {
			return fmt.Errorf("failed to clear requested records: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, r.sessionID); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		return nil
	})
}

// AddRequested adds key to the requested set. Adding an existing key is a no-op.
func (r *SessionRepository) AddRequested(kind RequestKind, key string) error {
	query := `
		INSERT INTO requested_records (session_id, kind, record_key, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, kind, record_key) DO NOTHING
	`

	if _, err := r.db.Exec(query, r.sessionID, string(kind), key, time.Now()); err != nil {
		return fmt.Errorf("failed to add requested record: %w", err)
	}
	return nil
}

// IsRequested reports whether key is in the requested set.
func (r *SessionRepository) IsRequested(kind RequestKind, key string) (bool, error) {
	query := `SELECT 1 FROM requested_records WHERE session_id = ? AND kind = ? AND record_key = ?`

	var one int
	err := r.db.QueryRow(query, r.sessionID, string(kind), key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query requested record: %w", err)
	}
	return true, nil
}

// Requested lists the keys of kind in insertion order.
func (r *SessionRepository) Requested(kind RequestKind) ([]string, error) {
	query := `
		SELECT record_key FROM requested_records
		WHERE session_id = ? AND kind = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.db.Query(query, r.sessionID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query requested records: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan requested record: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return keys, nil
}
