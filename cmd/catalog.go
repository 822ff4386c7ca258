package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/kplor/internal/formatter"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
	"github.com/desertthunder/kplor/internal/tasks"
	"github.com/urfave/cli/v3"
)

// loadCatalog refreshes the catalog. A failed refresh falls back to the cached snapshot when there is one.
func (r *Runner) loadCatalog(ctx context.Context) ([]models.CourseRecord, error) {
	if err := r.open(ctx); err != nil {
		return nil, err
	}
	if err := r.catalog.Warm(); err != nil {
		r.logger.Warn("ignoring catalog snapshot", "error", err)
	}

	records, err := r.catalog.Refresh(ctx)
	if err == nil {
		return records, nil
	}

	cached := r.catalog.Records()
	if len(cached) == 0 {
		return nil, err
	}
	r.flushNotices()
	r.writePlain("Showing the catalog cached at %s\n\n", r.catalog.FetchedAt().Format("2006-01-02 15:04"))
	return cached, nil
}

func (r *Runner) project(ctx context.Context, cmd *cli.Command) ([]models.GroupView, error) {
	key, err := tasks.ParseSortKey(cmd.String("sort"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	dir, err := tasks.ParseSortDir(cmd.String("dir"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	records, err := r.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return tasks.Project(records, cmd.String("filter"), key, dir), nil
}

// CatalogList prints the catalog grouped by college.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	groups, err := r.project(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(groups, cmd.Bool("pretty"))
	}

	text, err := formatter.ExportToText(groups, r.catalog.Goal())
	if err != nil {
		return err
	}
	return r.writePlain("%s", text)
}

// CatalogShow prints the courses of one college, narrowed by the column filters.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	college := strings.TrimSpace(cmd.StringArg("college"))
	if college == "" {
		return fmt.Errorf("%w: college name required", shared.ErrInvalidArgument)
	}

	records, err := r.loadCatalog(ctx)
	if err != nil {
		return err
	}

	var group *models.GroupView
	for _, g := range tasks.Project(records, "", tasks.SortByName, tasks.Asc) {
		if strings.EqualFold(g.Institution, college) {
			group = &g
			break
		}
	}
	if group == nil {
		return fmt.Errorf("%w: no courses at %q", shared.ErrRecordNotFound, college)
	}

	rows := tasks.Expand(*group, tasks.ColumnFilters{
		Title:      cmd.String("course"),
		Department: cmd.String("department"),
		Term:       cmd.String("semester"),
	})

	r.writePlainHeader(fmt.Sprintf("%s (%d requests)", group.Institution, group.TotalRequests))
	if len(rows) == 0 {
		return r.writePlain("No courses match the filters.\n")
	}

	goal := r.catalog.Goal()
	for _, rec := range rows {
		mark := " "
		if r.pipeline.CanUploadRecord(rec) {
			mark = "✓"
		}
		r.writePlain("%s %-8s %-32s %-20s sem %-2d %-15s %s\n",
			mark, rec.ID, rec.Title, rec.Department, rec.Term, rec.Status.Label(), formatter.ProgressBar(rec.RequestCount, goal, 10))
	}
	return nil
}

// CatalogExport writes the projected catalog to a file.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	groups, err := r.project(ctx, cmd)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(groups, format, r.catalog.Goal(), cmd.String("output"))
	if err != nil {
		return err
	}
	r.logger.Info("catalog exported", "path", path, "format", format, "groups", len(groups))
	return r.writePlain("✓ Exported %d colleges to %s\n", len(groups), path)
}

// CatalogShare prints the share message for one course.
func (r *Runner) CatalogShare(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: course id required", shared.ErrInvalidArgument)
	}

	if _, err := r.loadCatalog(ctx); err != nil {
		return err
	}
	rec, ok := r.catalog.Record(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, id)
	}

	r.writePlain("%s\n\n", formatter.ShareTitle(rec))
	return r.writePlain("%s\n", formatter.ShareMessage(rec, r.catalog.Goal(), cmd.String("link")))
}
