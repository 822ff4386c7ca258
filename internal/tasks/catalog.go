package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
)

// DefaultRequestGoal is the number of requests a course needs before it can run.
const DefaultRequestGoal = 25

// CatalogOpts configures a [CatalogManager].
type CatalogOpts struct {
	Snapshots   SnapshotStore // optional
	Logger      *log.Logger
	RequestGoal int
	Notices     chan<- Notice
}

// CatalogManager owns the local copy of the catalog.
//
// The cache is replaced wholesale on every successful refresh. The only local mutation is the optimistic
// increment applied after a confirmed submission.
type CatalogManager struct {
	source    CatalogSource
	snapshots SnapshotStore
	logger    *log.Logger
	goal      int
	notices   chan<- Notice

	mu        sync.RWMutex
	records   []models.CourseRecord
	fetchedAt time.Time
}

// NewCatalogManager creates a manager with an empty cache.
func NewCatalogManager(source CatalogSource, opts CatalogOpts) *CatalogManager {
	m := &CatalogManager{
		source:    source,
		snapshots: opts.Snapshots,
		logger:    opts.Logger,
		goal:      opts.RequestGoal,
		notices:   opts.Notices,
		records:   []models.CourseRecord{},
	}
	if m.logger == nil {
		m.logger = shared.NewLogger(nil)
	}
	if m.goal <= 0 {
		m.goal = DefaultRequestGoal
	}
	return m
}

// Refresh fetches the full snapshot and replaces the cache.
//
// On failure the previous cache is kept, a warning notice is sent and the returned error wraps
// [shared.ErrSourceUnavailable].
func (m *CatalogManager) Refresh(ctx context.Context) ([]models.CourseRecord, error) {
	records, err := m.source.FetchRecords(ctx)
	if err != nil {
		m.logger.Warn("catalog refresh failed, keeping previous snapshot", "error", err)
		sendNotice(m.notices, catalogStaleNotice(err))
		if !errors.Is(err, shared.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
		}
		return m.Records(), err
	}

	now := time.Now()
	m.mu.Lock()
	m.records = copyRecords(records)
	m.fetchedAt = now
	m.mu.Unlock()

	m.logger.Debug("catalog refreshed", "records", len(records))

	if m.snapshots != nil {
		if err := m.snapshots.Save(records); err != nil {
			m.logger.Warn("failed to save catalog snapshot", "error", err)
		}
	}
	return copyRecords(records), nil
}

// Warm loads the last saved snapshot into an empty cache. It does nothing once a refresh has succeeded.
func (m *CatalogManager) Warm() error {
	if m.snapshots == nil {
		return nil
	}

	records, fetchedAt, err := m.snapshots.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fetchedAt.IsZero() {
		return nil
	}
	m.records = records
	m.fetchedAt = fetchedAt
	m.logger.Debug("catalog warmed from snapshot", "records", len(records), "fetched_at", fetchedAt)
	return nil
}

// Records returns a copy of the cache.
func (m *CatalogManager) Records() []models.CourseRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRecords(m.records)
}

// Record returns the cached record with id.
func (m *CatalogManager) Record(id string) (models.CourseRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.CourseRecord{}, false
}

// FetchedAt returns when the cached snapshot was fetched. Zero means nothing is cached.
func (m *CatalogManager) FetchedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchedAt
}

// ApplyOptimisticIncrement adds one request to the cached record with id. Unknown ids are skipped.
func (m *CatalogManager) ApplyOptimisticIncrement(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].RequestCount++
			return true
		}
	}
	return false
}

// Goal returns the configured request goal.
func (m *CatalogManager) Goal() int {
	return m.goal
}

// Progress returns count/goal as a percentage capped at 100, and whether the goal is met.
func Progress(count, goal int) (int, bool) {
	if goal <= 0 {
		goal = DefaultRequestGoal
	}
	pct := count * 100 / goal
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, count >= goal
}

func copyRecords(records []models.CourseRecord) []models.CourseRecord {
	out := make([]models.CourseRecord, len(records))
	copy(out, records)
	return out
}
