package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/repositories"
	"github.com/desertthunder/kplor/internal/services"
)

// CatalogSource reads the remote catalog.
type CatalogSource interface {
	FetchRecords(ctx context.Context) ([]models.CourseRecord, error)
}

// CatalogWriter commits interest and new-course submissions.
type CatalogWriter interface {
	RegisterInterest(ctx context.Context, recordID string, who models.Identity) (*services.WriteResult, error)
	SubmitCourse(ctx context.Context, form models.CourseForm, who models.Identity) (*services.WriteResult, error)
}

// SnapshotStore keeps the last good catalog across runs.
type SnapshotStore interface {
	Save(records []models.CourseRecord) error
	Load() ([]models.CourseRecord, time.Time, error)
}

// SessionStore is the tab-scoped persisted state: the identity and the requested set.
//
// Implemented by [repositories.SessionRepository].
type SessionStore interface {
	LoadIdentity() (*models.Identity, error)
	SaveIdentity(identity models.Identity) error
	Clear() error
	AddRequested(kind repositories.RequestKind, key string) error
	IsRequested(kind repositories.RequestKind, key string) (bool, error)
	Requested(kind repositories.RequestKind) ([]string, error)
}

// UploadGate answers whether uploads are unlocked for a record id or composite key.
type UploadGate interface {
	CanUpload(recordKey string) bool
}
