package tasks

import (
	"bytes"
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/repositories"
	"github.com/desertthunder/kplor/internal/services"
	"github.com/desertthunder/kplor/internal/shared"
)

func quietLogger() *log.Logger {
	return shared.NewLogger(&bytes.Buffer{})
}

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
	t.Cleanup(func() { db.Close() })
	return db
}

// fakeSource returns a fixed snapshot or error.
type fakeSource struct {
	records []models.CourseRecord
	err     error
	calls   int
}

func (f *fakeSource) FetchRecords(ctx context.Context) ([]models.CourseRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

// fakeWriter records every write and answers with result or err.
type fakeWriter struct {
	mu        sync.Mutex
	result    string
	err       error
	block     chan struct{} // when set, writes wait on it
	started   chan struct{} // when set, receives once per write
	interests []string
	courses   []models.CourseForm
	who       []models.Identity
}

func (f *fakeWriter) write(who models.Identity) (*services.WriteResult, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.who = append(f.who, who)
	if f.err != nil {
		return nil, f.err
	}
	return &services.WriteResult{Status: services.ClassifyResult(f.result), Result: f.result}, nil
}

func (f *fakeWriter) RegisterInterest(ctx context.Context, recordID string, who models.Identity) (*services.WriteResult, error) {
	f.mu.Lock()
	f.interests = append(f.interests, recordID)
	f.mu.Unlock()
	return f.write(who)
}

func (f *fakeWriter) SubmitCourse(ctx context.Context, form models.CourseForm, who models.Identity) (*services.WriteResult, error) {
	f.mu.Lock()
	f.courses = append(f.courses, form)
	f.mu.Unlock()
	return f.write(who)
}

func (f *fakeWriter) interestCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.interests...)
}

// fakeIdentity is a scripted [services.IdentityProvider].
type fakeIdentity struct {
	mu         sync.Mutex
	identity   *services.ProviderIdentity
	err        error
	signOuts   int
	signIns    int
	signUps    int
	popupCalls int
}

func (f *fakeIdentity) result() (*services.ProviderIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.identity
	return &cp, nil
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, secret string) (*services.ProviderIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns++
	return f.result()
}

func (f *fakeIdentity) SignUp(ctx context.Context, name, email, secret string) (*services.ProviderIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps++
	return f.result()
}

func (f *fakeIdentity) SignInWithPopup(ctx context.Context) (*services.ProviderIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.popupCalls++
	return f.result()
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return nil
}

func verified(subject, name, email string) *services.ProviderIdentity {
	return &services.ProviderIdentity{
		Identity:      models.Identity{SubjectID: subject, DisplayName: name, Email: email},
		EmailVerified: true,
	}
}

// fakeStorage is an in-memory [services.StorageProvider] that records call order.
type fakeStorage struct {
	mu         sync.Mutex
	containers map[string]string
	calls      []string
	failFiles  map[string]error
	findErr    error
	authErr    error
	nextID     int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{containers: map[string]string{}, failFiles: map[string]error{}}
}

func (f *fakeStorage) Name() string { return "fake" }

func (f *fakeStorage) Authenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "auth")
	return f.authErr
}

func (f *fakeStorage) FindContainer(ctx context.Context, name, parentID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "find:"+name)
	if f.findErr != nil {
		return "", false, &services.StorageRequestError{Op: "find container", Err: f.findErr}
	}
	id, ok := f.containers[parentID+"/"+name]
	return id, ok, nil
}

func (f *fakeStorage) CreateContainer(ctx context.Context, name, parentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+name)
	f.nextID++
	id := "container-" + string(rune('0'+f.nextID))
	f.containers[parentID+"/"+name] = id
	return id, nil
}

func (f *fakeStorage) Upload(ctx context.Context, file models.UploadFile, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload:"+file.Name)
	if err, ok := f.failFiles[file.Name]; ok {
		return "", &services.StorageRequestError{Op: "upload", FileName: file.Name, Err: err}
	}
	return containerID + "/" + file.Name, nil
}

func (f *fakeStorage) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// clearFailStore is a [SessionStore] whose Clear always fails.
type clearFailStore struct {
	*repositories.SessionRepository
	err error
}

func (s clearFailStore) Clear() error { return s.err }

// staticGate unlocks a fixed set of keys.
type staticGate map[string]bool

func (g staticGate) CanUpload(key string) bool { return g[key] }

// harness wires the engine with fakes and an in-memory session store.
type harness struct {
	source   *fakeSource
	writer   *fakeWriter
	identity *fakeIdentity
	store    *repositories.SessionRepository
	catalog  *CatalogManager
	session  *SessionController
	pipeline *RequestPipeline
	notices  chan Notice
}

func newHarness(t *testing.T, records []models.CourseRecord) *harness {
	t.Helper()
	h := &harness{
		source:   &fakeSource{records: records},
		writer:   &fakeWriter{result: "Success"},
		identity: &fakeIdentity{identity: verified("u1", "Ada", "ada@example.com")},
		store:    repositories.NewSessionRepository(setupTestDB(t), "tab-1"),
		notices:  make(chan Notice, 32),
	}
	logger := quietLogger()
	h.catalog = NewCatalogManager(h.source, CatalogOpts{Logger: logger, Notices: h.notices})
	h.session = NewSessionController(h.identity, h.store, logger)
	h.pipeline = NewRequestPipeline(PipelineOpts{
		Catalog: h.catalog,
		Writer:  h.writer,
		Session: h.session,
		Store:   h.store,
		Logger:  logger,
		Notices: h.notices,
	})
	if _, err := h.catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return h
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	if _, err := h.session.SignIn(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("failed to sign in: %v", err)
	}
}
