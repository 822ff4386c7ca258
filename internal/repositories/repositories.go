// package repositories provides sqlite-backed stores for session and catalog state
package repositories

import (
	"database/sql"
	"fmt"
)

// RequestKind distinguishes requested record ids from composite keys of not-yet-listed records.
type RequestKind string

const (
	KindRecordID     RequestKind = "id"
	KindCompositeKey RequestKind = "key"
)

// withTx runs fn in a transaction, committing on success and rolling back otherwise.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
