package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestSessionRepository(t *testing.T) {
	ada := models.Identity{SubjectID: "u1", DisplayName: "Ada", Email: "ada@example.com"}

	t.Run("LoadIdentity", func(t *testing.T) {
		t.Run("Anonymous", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			got, err := NewSessionRepository(db, "tab-1").LoadIdentity()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != nil {
				t.Errorf("expected no identity, got %+v", got)
			}
		})

		t.Run("Round Trip", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSessionRepository(db, "tab-1")
			if err := repo.SaveIdentity(ada); err != nil {
				t.Fatalf("failed to save: %v", err)
			}

			got, err := repo.LoadIdentity()
			if err != nil {
				t.Fatalf("failed to load: %v", err)
			}
			if got == nil || *got != ada {
				t.Errorf("expected %+v, got %+v", ada, got)
			}
		})

		t.Run("Overwrite", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSessionRepository(db, "tab-1")
			repo.SaveIdentity(ada)
			bo := models.Identity{SubjectID: "u2", DisplayName: "Bo", Email: "bo@example.com"}
			if err := repo.SaveIdentity(bo); err != nil {
				t.Fatalf("failed to save: %v", err)
			}

			got, _ := repo.LoadIdentity()
			if got == nil || *got != bo {
				t.Errorf("expected %+v, got %+v", bo, got)
			}
		})
	})

	t.Run("Sessions Are Isolated", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		one := NewSessionRepository(db, "tab-1")
		two := NewSessionRepository(db, "tab-2")

		one.SaveIdentity(ada)
		one.AddRequested(KindRecordID, "r1")

		if got, _ := two.LoadIdentity(); got != nil {
			t.Errorf("expected tab-2 to be anonymous, got %+v", got)
		}
		if ok, _ := two.IsRequested(KindRecordID, "r1"); ok {
			t.Error("expected tab-2 requested set to be empty")
		}
	})

	t.Run("Requested", func(t *testing.T) {
		t.Run("Add Is Idempotent", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSessionRepository(db, "tab-1")
			for _, key := range []string{"r1", "r2", "r1"} {
				if err := repo.AddRequested(KindRecordID, key); err != nil {
					t.Fatalf("failed to add %s: %v", key, err)
				}
			}

			keys, err := repo.Requested(KindRecordID)
			if err != nil {
				t.Fatalf("failed to list: %v", err)
			}
			if len(keys) != 2 || keys[0] != "r1" || keys[1] != "r2" {
				t.Errorf("expected [r1 r2], got %v", keys)
			}
		})

		t.Run("Kinds Are Separate", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSessionRepository(db, "tab-1")
			repo.AddRequested(KindCompositeKey, "Ohio State|MATH|Topology|3")

			if ok, _ := repo.IsRequested(KindRecordID, "Ohio State|MATH|Topology|3"); ok {
				t.Error("expected composite key not to match the id kind")
			}
			if ok, _ := repo.IsRequested(KindCompositeKey, "Ohio State|MATH|Topology|3"); !ok {
				t.Error("expected composite key to be requested")
			}
		})
	})

	t.Run("Clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db, "tab-1")
		repo.SaveIdentity(ada)
		repo.AddRequested(KindRecordID, "r1")
		repo.AddRequested(KindCompositeKey, "k1")

		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}

		if got, _ := repo.LoadIdentity(); got != nil {
			t.Errorf("expected identity to be cleared, got %+v", got)
		}
		for _, kind := range []RequestKind{KindRecordID, KindCompositeKey} {
			keys, _ := repo.Requested(kind)
			if len(keys) != 0 {
				t.Errorf("expected %s set to be empty, got %v", kind, keys)
			}
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		repo := NewSessionRepository(db, "tab-1")
		if _, err := repo.LoadIdentity(); err == nil {
			t.Error("expected error from closed database")
		}
		if err := repo.AddRequested(KindRecordID, "r1"); err == nil {
			t.Error("expected error from closed database")
		}
		if err := repo.Clear(); err == nil {
			t.Error("expected error from closed database")
		}
	})
}

func TestSnapshotRepository(t *testing.T) {
	records := []models.CourseRecord{
		{ID: "r2", Institution: "Zeta", Term: 1, Title: "Art", Department: "ART", RequestCount: 4, Status: models.StatusActive},
		{ID: "r1", Institution: "Alpha", Term: 2, Title: "Biology", Department: "BIO", RequestCount: 0, Status: models.StatusNeedsRequests},
	}

	t.Run("Empty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		got, fetchedAt, err := NewSnapshotRepository(db).Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 0 || !fetchedAt.IsZero() {
			t.Errorf("expected empty snapshot, got %v at %v", got, fetchedAt)
		}
	})

	t.Run("Preserves Order", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)
		if err := repo.Save(records); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, fetchedAt, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(got) != 2 || got[0] != records[0] || got[1] != records[1] {
			t.Errorf("expected %+v, got %+v", records, got)
		}
		if fetchedAt.IsZero() {
			t.Error("expected fetch time to be recorded")
		}
	})

	t.Run("Replaces Previous", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)
		repo.Save(records)
		if err := repo.Save(records[1:]); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, _, _ := repo.Load()
		if len(got) != 1 || got[0].ID != "r1" {
			t.Errorf("expected only r1, got %+v", got)
		}
	})
}
