package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
	"github.com/desertthunder/kplor/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Request registers interest in an existing course, signing in first when needed.
func (r *Runner) Request(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	if err := r.catalog.Warm(); err != nil {
		r.logger.Debug("no catalog snapshot", "error", err)
	}

	sub := r.pipeline.RequestExisting(ctx, cmd.StringArg("id"))
	return r.settle(ctx, cmd, sub)
}

// Submit proposes a new course, signing in first when needed.
func (r *Runner) Submit(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	form := models.CourseForm{
		Institution: cmd.String("college"),
		Term:        cmd.String("semester"),
		Title:       cmd.String("course"),
		Department:  cmd.String("department"),
	}

	var err error
	for _, f := range []struct {
		label string
		value *string
	}{
		{"College", &form.Institution},
		{"Semester", &form.Term},
		{"Course", &form.Title},
		{"Department", &form.Department},
	} {
		if *f.value != "" {
			continue
		}
		if *f.value, err = r.prompter.Line(f.label); err != nil {
			return err
		}
	}

	sub := r.pipeline.SubmitNew(ctx, form)
	return r.settle(ctx, cmd, sub)
}

// settle reports a submission. An anonymous submission goes through the sign-in detour, after which the
// session hook has already replayed it.
func (r *Runner) settle(ctx context.Context, cmd *cli.Command, sub tasks.Submission) error {
	if sub.Outcome == tasks.OutcomeAuthRequired {
		if _, err := r.detour(ctx, cmd); err != nil {
			return err
		}
		replayed, ok := r.pipeline.TakeReplayed()
		if !ok {
			r.flushNotices()
			return fmt.Errorf("%w: %s was not replayed", shared.ErrNotAuthenticated, sub.RecordKey)
		}
		sub = replayed
	}

	r.flushNotices()
	switch sub.Outcome {
	case tasks.OutcomeAccepted, tasks.OutcomeDuplicate, tasks.OutcomeIgnored:
		return nil
	default:
		return sub.Err
	}
}
