package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/services"
	"github.com/desertthunder/kplor/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultUploadWorkers = 4
	maxUploadWorkers     = 8
	defaultUploadRate    = 5.0
)

// UploadOpts configures an [UploadOrchestrator].
type UploadOpts struct {
	Storage   services.StorageProvider
	ParentID  string     // container parent (Drive folder id or S3 prefix)
	Gate      UploadGate // nil disables gating
	Logger    *log.Logger
	Workers   int     // concurrent uploads (default: 4, max: 8)
	RateLimit float64 // uploads started per second (default: 5)
	Notices   chan<- Notice
}

// UploadOrchestrator resolves a record's storage container and uploads batches of files into it.
type UploadOrchestrator struct {
	storage   services.StorageProvider
	parentID  string
	gate      UploadGate
	logger    *log.Logger
	workers   int
	rateLimit float64
	notices   chan<- Notice

	// resolveMu serializes find-or-create so concurrent callers cannot both create.
	resolveMu sync.Mutex
}

// NewUploadOrchestrator creates an orchestrator.
func NewUploadOrchestrator(opts UploadOpts) *UploadOrchestrator {
	o := &UploadOrchestrator{
		storage:   opts.Storage,
		parentID:  opts.ParentID,
		gate:      opts.Gate,
		logger:    opts.Logger,
		workers:   opts.Workers,
		rateLimit: opts.RateLimit,
		notices:   opts.Notices,
	}
	if o.logger == nil {
		o.logger = shared.NewLogger(nil)
	}
	if o.workers <= 0 {
		o.workers = defaultUploadWorkers
	}
	if o.workers > maxUploadWorkers {
		o.workers = maxUploadWorkers
	}
	if o.rateLimit <= 0 {
		o.rateLimit = defaultUploadRate
	}
	return o
}

// ContainerName is the storage container name for a record: "<recordKey>_<recordTitle>".
func ContainerName(recordKey, recordTitle string) string {
	return recordKey + "_" + recordTitle
}

// ResolveContainer finds the record's container under the parent, creating it only when the lookup finds none.
//
// A failed lookup is returned as is; it never falls through to create.
func (o *UploadOrchestrator) ResolveContainer(ctx context.Context, recordKey, recordTitle string) (string, error) {
	if strings.TrimSpace(recordKey) == "" {
		return "", fmt.Errorf("%w: record key is required", shared.ErrInvalidArgument)
	}

	o.resolveMu.Lock()
	defer o.resolveMu.Unlock()

	if err := o.storage.Authenticate(ctx); err != nil {
		return "", err
	}

	name := ContainerName(recordKey, recordTitle)
	id, found, err := o.storage.FindContainer(ctx, name, o.parentID)
	if err != nil {
		return "", err
	}
	if found {
		o.logger.Debug("reusing container", "container", name, "id", id)
		sendNotice(o.notices, containerNotice(name, id, false))
		return id, nil
	}

	id, err = o.storage.CreateContainer(ctx, name, o.parentID)
	if err != nil {
		return "", err
	}
	o.logger.Info("created container", "container", name, "id", id, "provider", o.storage.Name())
	sendNotice(o.notices, containerNotice(name, id, true))
	return id, nil
}

// DedupeFiles drops files whose name already appeared earlier in the selection.
func DedupeFiles(files []models.UploadFile) []models.UploadFile {
	seen := make(map[string]struct{}, len(files))
	out := make([]models.UploadFile, 0, len(files))
	for _, f := range files {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f)
	}
	return out
}

type uploadJob struct {
	index int
	file  models.UploadFile
}

type uploadOutcome struct {
	index  int
	fileID string
	err    error
}

// UploadBatch uploads files into the record's container. Each file succeeds or fails on its own; the batch
// succeeds when at least one file does.
//
// The returned error covers only what stops the whole batch: a locked record, an empty selection, or a
// container that could not be resolved.
func (o *UploadOrchestrator) UploadBatch(ctx context.Context, files []models.UploadFile, recordKey, recordTitle string) (*models.UploadBatchResult, error) {
	if o.gate != nil && !o.gate.CanUpload(recordKey) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUploadLocked, recordKey)
	}

	files = DedupeFiles(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files selected", shared.ErrInvalidArgument)
	}

	containerID, err := o.ResolveContainer(ctx, recordKey, recordTitle)
	if err != nil {
		o.logger.Error("failed to resolve container", "record", recordKey, "error", err)
		return nil, err
	}

	outcomes := o.runUploads(ctx, files, containerID)

	result := &models.UploadBatchResult{
		ContainerID:      containerID,
		SucceededFileIDs: []string{},
		Failures:         []models.UploadFailure{},
	}
	for i, out := range outcomes {
		if out.err != nil {
			result.Failures = append(result.Failures, models.UploadFailure{FileName: files[i].Name, Reason: failureReason(out.err)})
			continue
		}
		result.SucceededFileIDs = append(result.SucceededFileIDs, out.fileID)
	}

	o.logger.Info("upload batch finished", "record", recordKey, "uploaded", len(result.SucceededFileIDs), "failed", len(result.Failures))
	sendNotice(o.notices, batchNotice(result))
	return result, nil
}

// runUploads fans files out to a rate-limited worker pool and returns outcomes in input order.
func (o *UploadOrchestrator) runUploads(ctx context.Context, files []models.UploadFile, containerID string) []uploadOutcome {
	limiter := rate.NewLimiter(rate.Limit(o.rateLimit), 1)

	jobs := make(chan uploadJob, len(files))
	results := make(chan uploadOutcome, len(files))

	workers := min(o.workers, len(files))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go o.uploadWorker(ctx, &wg, limiter, containerID, jobs, results)
	}

	for i, f := range files {
		jobs <- uploadJob{index: i, file: f}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]uploadOutcome, len(files))
	completed := 0
	for res := range results {
		completed++
		outcomes[res.index] = res
		name := files[res.index].Name
		if res.err != nil {
			o.logger.Warn("upload failed", "file", name, "error", res.err)
			sendNotice(o.notices, fileFailedNotice(completed, len(files), name, res.err))
		} else {
			o.logger.Debug("uploaded", "file", name, "id", res.fileID)
			sendNotice(o.notices, fileUploadedNotice(completed, len(files), name))
		}
	}
	return outcomes
}

func (o *UploadOrchestrator) uploadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	containerID string,
	jobs <-chan uploadJob,
	results chan<- uploadOutcome,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- uploadOutcome{index: job.index, err: err}
			continue
		}
		id, err := o.storage.Upload(ctx, job.file, containerID)
		results <- uploadOutcome{index: job.index, fileID: id, err: err}
	}
}

// failureReason strips the storage wrapper so the reason reads well next to the file name.
func failureReason(err error) string {
	var serr *services.StorageRequestError
	if errors.As(err, &serr) && serr.Err != nil {
		return serr.Err.Error()
	}
	return err.Error()
}
