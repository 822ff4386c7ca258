package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/repositories"
	"github.com/desertthunder/kplor/internal/shared"
)

func sampleRecords() []models.CourseRecord {
	return []models.CourseRecord{
		{ID: "R1", Institution: "MIT", Term: 3, Title: "Calculus", Department: "Math", RequestCount: 4, Status: models.StatusNeedsRequests},
		{ID: "R2", Institution: "Stanford", Term: 1, Title: "Databases", Department: "CS", RequestCount: 12, Status: models.StatusInPipeline},
		{ID: "R3", Institution: "MIT", Term: 5, Title: "Compilers", Department: "CS", RequestCount: 6, Status: models.StatusNeedsRequests},
		{ID: "R4", Institution: "Berkeley", Term: 2, Title: "Ethics", Department: "Philosophy", RequestCount: 30, Status: models.StatusActive},
	}
}

func TestCatalogManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Refresh", func(t *testing.T) {
		t.Run("replaces cache with snapshot", func(t *testing.T) {
			src := &fakeSource{records: sampleRecords()}
			m := NewCatalogManager(src, CatalogOpts{Logger: quietLogger()})

			records, err := m.Refresh(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != 4 || len(m.Records()) != 4 {
				t.Errorf("expected 4 records, got %d returned and %d cached", len(records), len(m.Records()))
			}
			if m.FetchedAt().IsZero() {
				t.Error("expected fetch time to be set")
			}

			src.records = sampleRecords()[:1]
			if _, err := m.Refresh(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := m.Records(); len(got) != 1 || got[0].ID != "R1" {
				t.Errorf("expected cache replaced wholesale, got %+v", got)
			}
		})

		t.Run("keeps previous cache on failure", func(t *testing.T) {
			notices := make(chan Notice, 4)
			src := &fakeSource{records: sampleRecords()}
			m := NewCatalogManager(src, CatalogOpts{Logger: quietLogger(), Notices: notices})
			if _, err := m.Refresh(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			src.err = errors.New("connection refused")
			records, err := m.Refresh(ctx)
			if !errors.Is(err, shared.ErrSourceUnavailable) {
				t.Fatalf("expected ErrSourceUnavailable, got %v", err)
			}
			if len(records) != 4 || len(m.Records()) != 4 {
				t.Errorf("expected previous 4 records kept, got %d", len(m.Records()))
			}

			select {
			case n := <-notices:
				if n.Phase != FetchCatalog || n.Level != LevelWarning {
					t.Errorf("expected fetch warning notice, got %+v", n)
				}
			default:
				t.Error("expected a stale catalog notice")
			}
		})

		t.Run("empty snapshot is not an error", func(t *testing.T) {
			m := NewCatalogManager(&fakeSource{records: []models.CourseRecord{}}, CatalogOpts{Logger: quietLogger()})
			records, err := m.Refresh(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if records == nil || len(records) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", records)
			}
		})

		t.Run("returned slice is a copy", func(t *testing.T) {
			m := NewCatalogManager(&fakeSource{records: sampleRecords()}, CatalogOpts{Logger: quietLogger()})
			records, _ := m.Refresh(ctx)
			records[0].RequestCount = 999
			if rec, _ := m.Record("R1"); rec.RequestCount != 4 {
				t.Errorf("expected cache untouched, got %d", rec.RequestCount)
			}
		})
	})

	t.Run("Warm", func(t *testing.T) {
		db := setupTestDB(t)
		snapshots := repositories.NewSnapshotRepository(db)
		if err := snapshots.Save(sampleRecords()); err != nil {
			t.Fatalf("failed to seed snapshot: %v", err)
		}

		t.Run("loads snapshot into empty cache", func(t *testing.T) {
			m := NewCatalogManager(&fakeSource{}, CatalogOpts{Logger: quietLogger(), Snapshots: snapshots})
			if err := m.Warm(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(m.Records()) != 4 {
				t.Errorf("expected 4 warmed records, got %d", len(m.Records()))
			}
		})

		t.Run("does not overwrite a fresh cache", func(t *testing.T) {
			src := &fakeSource{records: sampleRecords()[:2]}
			m := NewCatalogManager(src, CatalogOpts{Logger: quietLogger(), Snapshots: snapshots})
			if _, err := m.Refresh(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := snapshots.Save(sampleRecords()); err != nil {
				t.Fatalf("failed to reseed snapshot: %v", err)
			}
			if err := m.Warm(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(m.Records()) != 2 {
				t.Errorf("expected fresh cache kept, got %d records", len(m.Records()))
			}
		})

		t.Run("refresh saves snapshot", func(t *testing.T) {
			store := repositories.NewSnapshotRepository(setupTestDB(t))
			m := NewCatalogManager(&fakeSource{records: sampleRecords()[:3]}, CatalogOpts{Logger: quietLogger(), Snapshots: store})
			if _, err := m.Refresh(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			saved, _, err := store.Load()
			if err != nil {
				t.Fatalf("failed to load snapshot: %v", err)
			}
			if len(saved) != 3 {
				t.Errorf("expected 3 saved records, got %d", len(saved))
			}
		})
	})

	t.Run("ApplyOptimisticIncrement", func(t *testing.T) {
		m := NewCatalogManager(&fakeSource{records: sampleRecords()}, CatalogOpts{Logger: quietLogger()})
		if _, err := m.Refresh(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !m.ApplyOptimisticIncrement("R1") {
			t.Fatal("expected increment to apply")
		}
		if rec, _ := m.Record("R1"); rec.RequestCount != 5 {
			t.Errorf("expected 5 requests, got %d", rec.RequestCount)
		}
		if m.ApplyOptimisticIncrement("missing") {
			t.Error("expected unknown id to be skipped")
		}
	})

	t.Run("Progress", func(t *testing.T) {
		tests := []struct {
			count, goal int
			pct         int
			met         bool
		}{
			{0, 25, 0, false},
			{5, 25, 20, false},
			{25, 25, 100, true},
			{40, 25, 100, true},
			{10, 0, 40, false},
		}
		for _, tt := range tests {
			pct, met := Progress(tt.count, tt.goal)
			if pct != tt.pct || met != tt.met {
				t.Errorf("Progress(%d, %d) = %d, %v; want %d, %v", tt.count, tt.goal, pct, met, tt.pct, tt.met)
			}
		}

		m := NewCatalogManager(&fakeSource{}, CatalogOpts{RequestGoal: 10, Logger: quietLogger()})
		if pct, met := Progress(10, m.Goal()); pct != 100 || !met {
			t.Errorf("expected custom goal met, got %d %v", pct, met)
		}
	})
}
