package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
)

func validForm() models.CourseForm {
	return models.CourseForm{Institution: "MIT", Term: "4", Title: "Topology", Department: "Math"}
}

func TestRequestPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous request holds intent without writing", func(t *testing.T) {
		h := newHarness(t, sampleRecords())

		sub := h.pipeline.RequestExisting(ctx, "R1")
		if sub.Outcome != OutcomeAuthRequired {
			t.Fatalf("expected auth-required, got %s", sub.Outcome)
		}
		if !errors.Is(sub.Err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", sub.Err)
		}
		if calls := h.writer.interestCalls(); len(calls) != 0 {
			t.Errorf("expected no write, got %v", calls)
		}
		pending, ok := h.pipeline.PendingIntent()
		if !ok || pending.Kind != models.IntentRequestExisting || pending.RecordID != "R1" {
			t.Errorf("expected pending RequestExisting{R1}, got %v", pending)
		}
	})

	t.Run("sign-in replays the intent exactly once", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.pipeline.RequestExisting(ctx, "R1")

		h.signIn(t)

		if calls := h.writer.interestCalls(); len(calls) != 1 || calls[0] != "R1" {
			t.Fatalf("expected one replayed write for R1, got %v", calls)
		}
		if _, ok := h.pipeline.PendingIntent(); ok {
			t.Error("expected pending intent cleared")
		}
		if who := h.writer.who[0]; who.Email != "ada@example.com" || who.DisplayName != "Ada" {
			t.Errorf("expected write as the signed-in user, got %+v", who)
		}
		if rec, _ := h.catalog.Record("R1"); rec.RequestCount != 5 {
			t.Errorf("expected optimistic increment to 5, got %d", rec.RequestCount)
		}

		if _, replayed := h.pipeline.ResumeAfterAuth(ctx); replayed {
			t.Error("expected nothing left to replay")
		}
		if calls := h.writer.interestCalls(); len(calls) != 1 {
			t.Errorf("expected no second write, got %v", calls)
		}
	})

	t.Run("failed replay still clears the intent", func(t *testing.T) {
		tests := []struct {
			name    string
			result  string
			err     error
			outcome Outcome
		}{
			{"rejected", "Error: quota exceeded", nil, OutcomeRejected},
			{"transport failure", "", shared.ErrTransport, OutcomeTransportFailure},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t, sampleRecords())
				h.writer.result = tt.result
				h.writer.err = tt.err
				h.pipeline.RequestExisting(ctx, "R1")

				h.signIn(t)

				sub, ok := h.pipeline.TakeReplayed()
				if !ok || sub.Outcome != tt.outcome {
					t.Fatalf("expected replayed %s, got %s (%v)", tt.outcome, sub.Outcome, ok)
				}
				if _, ok := h.pipeline.PendingIntent(); ok {
					t.Error("expected pending intent cleared")
				}
				if h.pipeline.CanUpload("R1") {
					t.Error("expected requested set unchanged")
				}
				if _, replayed := h.pipeline.ResumeAfterAuth(ctx); replayed {
					t.Error("expected nothing left to replay")
				}
				if calls := h.writer.interestCalls(); len(calls) != 1 {
					t.Errorf("expected exactly one write, got %v", calls)
				}
			})
		}
	})

	t.Run("replayed submission is taken once", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		if _, ok := h.pipeline.TakeReplayed(); ok {
			t.Fatal("expected nothing replayed yet")
		}
		h.pipeline.RequestExisting(ctx, "R1")
		h.signIn(t)

		sub, ok := h.pipeline.TakeReplayed()
		if !ok || sub.Outcome != OutcomeAccepted || sub.RecordKey != "R1" {
			t.Fatalf("expected accepted replay of R1, got %+v", sub)
		}
		if _, ok := h.pipeline.TakeReplayed(); ok {
			t.Error("expected replay to be forgotten")
		}
	})

	t.Run("new identity does not inherit uploads", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.signIn(t)
		if sub := h.pipeline.RequestExisting(ctx, "R1"); sub.Outcome != OutcomeAccepted {
			t.Fatalf("expected accepted, got %s", sub.Outcome)
		}

		h.identity.identity = verified("u2", "Bob", "bob@example.com")
		if _, err := h.session.SignIn(ctx, "bob@example.com", "secret1"); err != nil {
			t.Fatalf("failed to sign in: %v", err)
		}
		if id, _ := h.session.Current(); id.Email != "bob@example.com" {
			t.Fatalf("expected bob live, got %+v", id)
		}
		if h.pipeline.CanUpload("R1") {
			t.Error("expected R1 locked for the new identity")
		}
	})

	t.Run("last intent wins", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.pipeline.RequestExisting(ctx, "R1")
		h.pipeline.SubmitNew(ctx, validForm())

		pending, ok := h.pipeline.PendingIntent()
		if !ok || pending.Kind != models.IntentSubmitNew {
			t.Fatalf("expected SubmitNew pending, got %v", pending)
		}

		h.signIn(t)
		if len(h.writer.interestCalls()) != 0 || len(h.writer.courses) != 1 {
			t.Errorf("expected only the course submission, got %d interests and %d courses", len(h.writer.interestCalls()), len(h.writer.courses))
		}
	})

	t.Run("failed sign-in keeps the intent", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.identity.err = models.NewIdentityError(models.FailureInvalidCredentials, nil)
		h.pipeline.RequestExisting(ctx, "R1")

		if _, err := h.session.SignIn(ctx, "ada@example.com", "secret1"); err == nil {
			t.Fatal("expected sign-in failure")
		}
		if _, ok := h.pipeline.PendingIntent(); !ok {
			t.Error("expected intent still held")
		}
	})

	t.Run("sign-out drops the intent", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.pipeline.RequestExisting(ctx, "R1")
		if err := h.session.SignOut(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := h.pipeline.PendingIntent(); ok {
			t.Error("expected pending intent dropped")
		}
	})

	t.Run("write results", func(t *testing.T) {
		tests := []struct {
			name      string
			result    string
			err       error
			outcome   Outcome
			count     int
			requested bool
		}{
			{"empty result is accepted", "", nil, OutcomeAccepted, 5, true},
			{"ok result is accepted", "Success", nil, OutcomeAccepted, 5, true},
			{"skipped is duplicate", "Skipped: already requested", nil, OutcomeDuplicate, 4, true},
			{"error is rejected", "Error: sheet locked", nil, OutcomeRejected, 4, false},
			{"transport failure", "", shared.ErrTransport, OutcomeTransportFailure, 4, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t, sampleRecords())
				h.signIn(t)
				h.writer.result = tt.result
				h.writer.err = tt.err

				sub := h.pipeline.RequestExisting(ctx, "R1")
				if sub.Outcome != tt.outcome {
					t.Fatalf("expected %s, got %s (%v)", tt.outcome, sub.Outcome, sub.Err)
				}
				if rec, _ := h.catalog.Record("R1"); rec.RequestCount != tt.count {
					t.Errorf("expected count %d, got %d", tt.count, rec.RequestCount)
				}
				if got := h.pipeline.CanUpload("R1"); got != tt.requested {
					t.Errorf("expected CanUpload %v, got %v", tt.requested, got)
				}
				if sub.Notice.Title == "" {
					t.Error("expected a notice")
				}
			})
		}
	})

	t.Run("rejection carries the remote text", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.signIn(t)
		h.writer.result = "Error: quota"

		sub := h.pipeline.RequestExisting(ctx, "R1")
		if !errors.Is(sub.Err, shared.ErrRemoteRejection) || sub.Result != "Error: quota" {
			t.Errorf("expected remote rejection with text, got %v %q", sub.Err, sub.Result)
		}
		if sub.Notice.Title != "Request Failed" {
			t.Errorf("expected failure notice, got %q", sub.Notice.Title)
		}
	})

	t.Run("second trigger while in flight is ignored", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.signIn(t)
		h.writer.block = make(chan struct{})
		h.writer.started = make(chan struct{})

		first := make(chan Submission)
		go func() { first <- h.pipeline.RequestExisting(ctx, "R1") }()
		<-h.writer.started

		if !h.pipeline.InFlight("R1") {
			t.Error("expected R1 in flight")
		}
		if sub := h.pipeline.RequestExisting(ctx, "R1"); sub.Outcome != OutcomeIgnored {
			t.Errorf("expected ignored, got %s", sub.Outcome)
		}

		close(h.writer.block)
		if sub := <-first; sub.Outcome != OutcomeAccepted {
			t.Errorf("expected first accepted, got %s", sub.Outcome)
		}
		if calls := h.writer.interestCalls(); len(calls) != 1 {
			t.Errorf("expected a single write, got %v", calls)
		}
		if h.pipeline.InFlight("R1") {
			t.Error("expected in-flight lock released")
		}
	})

	t.Run("SubmitNew", func(t *testing.T) {
		t.Run("validation failure never writes", func(t *testing.T) {
			h := newHarness(t, sampleRecords())
			h.signIn(t)

			form := validForm()
			form.Term = "abc"
			form.Department = " "
			sub := h.pipeline.SubmitNew(ctx, form)
			if sub.Outcome != OutcomeValidationFailure {
				t.Fatalf("expected validation failure, got %s", sub.Outcome)
			}
			var verrs shared.ValidationErrors
			if !errors.As(sub.Err, &verrs) || verrs.Field("semester") == "" || verrs.Field("department") == "" {
				t.Errorf("expected semester and department errors, got %v", sub.Err)
			}
			if len(h.writer.courses) != 0 {
				t.Error("expected no write")
			}
		})

		t.Run("validation runs before the identity gate", func(t *testing.T) {
			h := newHarness(t, sampleRecords())
			sub := h.pipeline.SubmitNew(ctx, models.CourseForm{})
			if sub.Outcome != OutcomeValidationFailure {
				t.Fatalf("expected validation failure, got %s", sub.Outcome)
			}
			if _, ok := h.pipeline.PendingIntent(); ok {
				t.Error("invalid form must not be held")
			}
		})

		t.Run("accepted unlocks upload by composite key", func(t *testing.T) {
			h := newHarness(t, sampleRecords())
			h.signIn(t)

			sub := h.pipeline.SubmitNew(ctx, validForm())
			if sub.Outcome != OutcomeAccepted {
				t.Fatalf("expected accepted, got %s", sub.Outcome)
			}
			key := validForm().CompositeKey()
			if sub.RecordKey != key || !h.pipeline.CanUpload(key) {
				t.Errorf("expected %s unlocked", key)
			}

			created := models.CourseRecord{ID: "R9", Institution: "MIT", Term: 4, Title: "Topology", Department: "Math"}
			if !h.pipeline.CanUploadRecord(created) {
				t.Error("expected refreshed record unlocked through its composite key")
			}
			if h.pipeline.CanUpload("R9") {
				t.Error("expected id not yet in the requested set")
			}
			if got, ok := h.pipeline.UploadKey(created); !ok || got != "R9" {
				t.Errorf("expected upload key R9, got %q %v", got, ok)
			}
			if !h.pipeline.CanUpload("R9") {
				t.Error("expected id promoted into the requested set")
			}
			if _, ok := h.pipeline.UploadKey(models.CourseRecord{ID: "R4", Institution: "Berkeley"}); ok {
				t.Error("expected unrequested record to stay locked")
			}
		})

		t.Run("skipped counts as accepted", func(t *testing.T) {
			h := newHarness(t, sampleRecords())
			h.signIn(t)
			h.writer.result = "Skipped"

			if sub := h.pipeline.SubmitNew(ctx, validForm()); sub.Outcome != OutcomeAccepted {
				t.Errorf("expected accepted, got %s", sub.Outcome)
			}
		})

		t.Run("fields are trimmed", func(t *testing.T) {
			h := newHarness(t, sampleRecords())
			h.signIn(t)

			h.pipeline.SubmitNew(ctx, models.CourseForm{Institution: " MIT ", Term: " 4", Title: "Topology ", Department: "Math"})
			if got := h.writer.courses[0]; got != validForm() {
				t.Errorf("expected trimmed form, got %+v", got)
			}
		})
	})

	t.Run("sign-out re-locks upload", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.signIn(t)
		if sub := h.pipeline.RequestExisting(ctx, "R1"); sub.Outcome != OutcomeAccepted {
			t.Fatalf("expected accepted, got %s", sub.Outcome)
		}
		if !h.pipeline.CanUpload("R1") {
			t.Fatal("expected R1 unlocked")
		}

		if err := h.session.SignOut(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.pipeline.CanUpload("R1") {
			t.Error("expected R1 locked after sign-out")
		}
	})

	t.Run("blank record id", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		if sub := h.pipeline.RequestExisting(ctx, "  "); sub.Outcome != OutcomeValidationFailure {
			t.Errorf("expected validation failure, got %s", sub.Outcome)
		}
	})

	t.Run("outcomes publish notices", func(t *testing.T) {
		h := newHarness(t, sampleRecords())
		h.signIn(t)
		h.pipeline.RequestExisting(ctx, "R1")

		var last Notice
		for {
			select {
			case n := <-h.notices:
				last = n
				continue
			default:
			}
			break
		}
		if last.Phase != Commit || last.Level != LevelSuccess || last.RecordKey != "R1" {
			t.Errorf("expected commit success notice for R1, got %+v", last)
		}
	})
}

func TestOutcome(t *testing.T) {
	committed := map[Outcome]bool{OutcomeAccepted: true, OutcomeDuplicate: true}
	for _, o := range []Outcome{OutcomeAuthRequired, OutcomeAccepted, OutcomeDuplicate, OutcomeRejected, OutcomeTransportFailure, OutcomeIgnored, OutcomeValidationFailure} {
		if o.Committed() != committed[o] {
			t.Errorf("%s: Committed() = %v", o, o.Committed())
		}
		if o.String() == "unknown" {
			t.Errorf("missing name for outcome %d", o)
		}
	}
}
