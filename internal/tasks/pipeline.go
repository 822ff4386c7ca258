package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/repositories"
	"github.com/desertthunder/kplor/internal/services"
	"github.com/desertthunder/kplor/internal/shared"
)

// Outcome is the closed set of results of one submission attempt.
type Outcome int

const (
	// OutcomeAuthRequired means no identity was live; the intent is held for replay.
	OutcomeAuthRequired Outcome = iota
	OutcomeAccepted
	OutcomeDuplicate
	OutcomeRejected
	OutcomeTransportFailure
	// OutcomeIgnored means a commit for the same record was already in flight.
	OutcomeIgnored
	OutcomeValidationFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthRequired:
		return "auth-required"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransportFailure:
		return "transport-failure"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeValidationFailure:
		return "validation-failure"
	default:
		return "unknown"
	}
}

// Committed reports whether the user is now counted for the record.
func (o Outcome) Committed() bool {
	return o == OutcomeAccepted || o == OutcomeDuplicate
}

// Submission is the result of one pipeline operation. It never carries a panic or a stuck state: every
// path ends here.
type Submission struct {
	Intent    models.PendingIntent
	Outcome   Outcome
	RecordKey string // record id, or the composite key for a new course
	Result    string // raw result text from the write endpoint
	Err       error
	Notice    Notice
}

// PipelineOpts configures a [RequestPipeline].
type PipelineOpts struct {
	Catalog *CatalogManager
	Writer  CatalogWriter
	Session *SessionController
	Store   SessionStore
	Logger  *log.Logger
	Notices chan<- Notice
}

// RequestPipeline gates submissions on identity, holds the intent across an authentication detour and
// commits it to the write endpoints.
type RequestPipeline struct {
	catalog *CatalogManager
	writer  CatalogWriter
	session *SessionController
	store   SessionStore
	logger  *log.Logger
	notices chan<- Notice

	mu       sync.Mutex
	pending  *models.PendingIntent
	replayed *Submission
	inFlight map[string]struct{}
}

// NewRequestPipeline wires a pipeline to the session controller: a successful authentication replays the
// pending intent and sign-out drops it.
func NewRequestPipeline(opts PipelineOpts) *RequestPipeline {
	p := &RequestPipeline{
		catalog:  opts.Catalog,
		writer:   opts.Writer,
		session:  opts.Session,
		store:    opts.Store,
		logger:   opts.Logger,
		notices:  opts.Notices,
		inFlight: map[string]struct{}{},
	}
	if p.logger == nil {
		p.logger = shared.NewLogger(nil)
	}

	p.session.OnAuthenticated(func(ctx context.Context, _ models.Identity) {
		if sub, ok := p.ResumeAfterAuth(ctx); ok {
			p.mu.Lock()
			p.replayed = &sub
			p.mu.Unlock()
		}
	})
	p.session.OnSignOut(p.dropPending)
	return p
}

// PendingIntent returns the held intent, if any.
func (p *RequestPipeline) PendingIntent() (models.PendingIntent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return models.PendingIntent{}, false
	}
	return *p.pending, true
}

// RequestExisting registers interest in an existing record.
func (p *RequestPipeline) RequestExisting(ctx context.Context, recordID string) Submission {
	recordID = strings.TrimSpace(recordID)
	intent := models.RequestExisting(recordID)
	if recordID == "" {
		err := shared.Collect(shared.ValidateRequired("id", "Course id", recordID))
		return p.finish(Submission{Intent: intent, Outcome: OutcomeValidationFailure, Err: err, Notice: validationNotice("", err)})
	}

	who, ok := p.session.Current()
	if !ok {
		return p.holdIntent(intent, recordID)
	}
	return p.commit(ctx, intent, who)
}

// SubmitNew proposes a new record. The form is validated before anything else.
func (p *RequestPipeline) SubmitNew(ctx context.Context, form models.CourseForm) Submission {
	form = models.CourseForm{
		Institution: strings.TrimSpace(form.Institution),
		Term:        strings.TrimSpace(form.Term),
		Title:       strings.TrimSpace(form.Title),
		Department:  strings.TrimSpace(form.Department),
	}
	intent := models.SubmitNew(form)
	key := form.CompositeKey()

	if err := ValidateCourseForm(form); err != nil {
		return p.finish(Submission{Intent: intent, Outcome: OutcomeValidationFailure, RecordKey: key, Err: err, Notice: validationNotice(key, err)})
	}

	who, ok := p.session.Current()
	if !ok {
		return p.holdIntent(intent, key)
	}
	return p.commit(ctx, intent, who)
}

// ResumeAfterAuth replays the held intent once and discards it whatever the outcome.
// It reports false when nothing was held.
func (p *RequestPipeline) ResumeAfterAuth(ctx context.Context) (Submission, bool) {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	if pending == nil {
		return Submission{}, false
	}

	who, ok := p.session.Current()
	if !ok {
		err := fmt.Errorf("%w: cannot replay %s", shared.ErrNotAuthenticated, pending)
		p.logger.Warn("discarding pending intent", "intent", pending.String(), "error", err)
		return p.finish(Submission{Intent: *pending, Outcome: OutcomeAuthRequired, RecordKey: intentKey(*pending), Err: err, Notice: authRequiredNotice(*pending)}), true
	}

	p.logger.Info("replaying pending intent", "intent", pending.String())
	return p.commit(ctx, *pending, who), true
}

// TakeReplayed returns the submission of the last replay run by the authentication hook and forgets it.
func (p *RequestPipeline) TakeReplayed() (Submission, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.replayed == nil {
		return Submission{}, false
	}
	sub := *p.replayed
	p.replayed = nil
	return sub, true
}

// CanUpload reports whether recordKey (a record id or composite key) is in the requested set.
func (p *RequestPipeline) CanUpload(recordKey string) bool {
	for _, kind := range []repositories.RequestKind{repositories.KindRecordID, repositories.KindCompositeKey} {
		ok, err := p.store.IsRequested(kind, recordKey)
		if err != nil {
			p.logger.Warn("failed to read requested set", "key", recordKey, "error", err)
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// CanUploadRecord checks both the id and the composite key of rec, so a course created in this session
// stays unlocked after the refresh that assigns its id.
func (p *RequestPipeline) CanUploadRecord(rec models.CourseRecord) bool {
	return p.CanUpload(rec.ID) || p.CanUpload(rec.CompositeKey())
}

// UploadKey returns the key uploads for rec should use. A record unlocked through its composite key is
// promoted to its id, so its container is named after the id like every other record.
func (p *RequestPipeline) UploadKey(rec models.CourseRecord) (string, bool) {
	if p.CanUpload(rec.ID) {
		return rec.ID, true
	}
	if rec.ID == "" || !p.CanUpload(rec.CompositeKey()) {
		return "", false
	}
	if err := p.store.AddRequested(repositories.KindRecordID, rec.ID); err != nil {
		p.logger.Warn("failed to promote requested record", "record", rec.ID, "error", err)
		return rec.CompositeKey(), true
	}
	return rec.ID, true
}

// InFlight reports whether a commit for key is running.
func (p *RequestPipeline) InFlight(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inFlight[key]
	return ok
}

func (p *RequestPipeline) holdIntent(intent models.PendingIntent, key string) Submission {
	p.mu.Lock()
	if p.pending != nil {
		p.logger.Debug("replacing pending intent", "old", p.pending.String(), "new", intent.String())
	}
	p.pending = &intent
	p.mu.Unlock()

	return p.finish(Submission{
		Intent:    intent,
		Outcome:   OutcomeAuthRequired,
		RecordKey: key,
		Err:       shared.ErrNotAuthenticated,
		Notice:    authRequiredNotice(intent),
	})
}

func (p *RequestPipeline) dropPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
}

// acquire takes the in-flight lock for key. It returns false when a commit for key is already running.
func (p *RequestPipeline) acquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[key]; busy {
		return false
	}
	p.inFlight[key] = struct{}{}
	return true
}

func (p *RequestPipeline) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, key)
}

func (p *RequestPipeline) commit(ctx context.Context, intent models.PendingIntent, who models.Identity) Submission {
	key := intentKey(intent)
	sub := Submission{Intent: intent, RecordKey: key}

	if !p.acquire(key) {
		p.logger.Debug("commit already in flight", "record", key)
		sub.Outcome = OutcomeIgnored
		return sub
	}
	defer p.release(key)

	var (
		res *services.WriteResult
		err error
	)
	switch intent.Kind {
	case models.IntentRequestExisting:
		res, err = p.writer.RegisterInterest(ctx, intent.RecordID, who)
	case models.IntentSubmitNew:
		res, err = p.writer.SubmitCourse(ctx, intent.Form, who)
	default:
		sub.Outcome = OutcomeValidationFailure
		sub.Err = fmt.Errorf("%w: empty intent", shared.ErrInvalidArgument)
		sub.Notice = validationNotice(key, sub.Err)
		return p.finish(sub)
	}

	if err != nil {
		sub.Outcome = OutcomeTransportFailure
		sub.Err = err
		sub.Notice = transportNotice(key)
		return p.finish(sub)
	}
	sub.Result = res.Result

	status := res.Status
	if intent.Kind == models.IntentSubmitNew && status == services.WriteDuplicate {
		status = services.WriteAccepted
	}

	switch status {
	case services.WriteRejected:
		sub.Outcome = OutcomeRejected
		sub.Err = fmt.Errorf("%w: %s", shared.ErrRemoteRejection, res.Result)
		sub.Notice = rejectedNotice(key, res.Result)

	case services.WriteDuplicate:
		sub.Outcome = OutcomeDuplicate
		sub.Notice = duplicateNotice(key)
		p.markRequested(intent)

	default:
		sub.Outcome = OutcomeAccepted
		if intent.Kind == models.IntentRequestExisting {
			p.catalog.ApplyOptimisticIncrement(intent.RecordID)
			sub.Notice = requestAcceptedNotice(key)
		} else {
			sub.Notice = courseSubmittedNotice(key)
		}
		p.markRequested(intent)
	}
	return p.finish(sub)
}

func (p *RequestPipeline) markRequested(intent models.PendingIntent) {
	var err error
	switch intent.Kind {
	case models.IntentRequestExisting:
		err = p.store.AddRequested(repositories.KindRecordID, intent.RecordID)
	case models.IntentSubmitNew:
		err = p.store.AddRequested(repositories.KindCompositeKey, intent.Form.CompositeKey())
	}
	if err != nil {
		p.logger.Error("failed to record request", "intent", intent.String(), "error", err)
	}
}

// finish logs and publishes the submission's notice.
func (p *RequestPipeline) finish(sub Submission) Submission {
	if sub.Err != nil {
		p.logger.Debug("submission finished", "record", sub.RecordKey, "outcome", sub.Outcome, "error", sub.Err)
	} else {
		p.logger.Debug("submission finished", "record", sub.RecordKey, "outcome", sub.Outcome)
	}
	if sub.Notice.Title != "" {
		sendNotice(p.notices, sub.Notice)
	}
	return sub
}

// ValidateCourseForm checks that every field is present and the term is a positive number.
func ValidateCourseForm(form models.CourseForm) error {
	return shared.Collect(
		shared.ValidateRequired("college", "College", form.Institution),
		shared.ValidateTerm(form.Term),
		shared.ValidateRequired("course", "Course", form.Title),
		shared.ValidateRequired("department", "Department", form.Department),
	).OrNil()
}

func intentKey(intent models.PendingIntent) string {
	switch intent.Kind {
	case models.IntentRequestExisting:
		return intent.RecordID
	case models.IntentSubmitNew:
		return intent.Form.CompositeKey()
	default:
		return ""
	}
}
