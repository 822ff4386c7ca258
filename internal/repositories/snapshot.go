package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/kplor/internal/models"
)

// SnapshotRepository stores the last good catalog so the client can render before the first fetch completes.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new [SnapshotRepository] with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save replaces the stored snapshot with records, preserving their order.
func (r *SnapshotRepository) Save(records []models.CourseRecord) error {
	now := time.Now()
	return withTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM catalog_records`); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO catalog_records
				(position, id, institution, term, title, department, request_count, status, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare snapshot insert: %w", err)
		}
		defer stmt.Close()

		for i, rec := range records {
			_, err := stmt.Exec(i, rec.ID, rec.Institution, rec.Term, rec.Title, rec.Department,
				rec.RequestCount, string(rec.Status), now)
			if err != nil {
				return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// Load returns the stored snapshot and the time it was fetched. An empty store returns no records and a zero time.
func (r *SnapshotRepository) Load() ([]models.CourseRecord, time.Time, error) {
	query := `
		SELECT id, institution, term, title, department, request_count, status, fetched_at
		FROM catalog_records
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var (
		records   = []models.CourseRecord{}
		fetchedAt time.Time
	)
	for rows.Next() {
		var (
			rec    models.CourseRecord
			status string
		)
		err := rows.Scan(&rec.ID, &rec.Institution, &rec.Term, &rec.Title, &rec.Department,
			&rec.RequestCount, &status, &fetchedAt)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Status = models.Status(status)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("row iteration error: %w", err)
	}
	return records, fetchedAt, nil
}
