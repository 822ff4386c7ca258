package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
	"github.com/desertthunder/kplor/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Upload sends files to the storage container of a requested course.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	key := strings.TrimSpace(cmd.String("record"))
	title := strings.TrimSpace(cmd.String("title"))
	if title == "" {
		records, err := r.loadCatalog(ctx)
		if err != nil {
			return err
		}
		rec, ok := findRecord(records, key)
		if !ok {
			return fmt.Errorf("%w: %s (pass --title for a course not in the catalog yet)", shared.ErrRecordNotFound, key)
		}
		title = rec.Title
		if promoted, ok := r.pipeline.UploadKey(rec); ok {
			key = promoted
		}
	}

	if !r.pipeline.CanUpload(key) {
		return fmt.Errorf("%w: request %s first", shared.ErrUploadLocked, key)
	}

	files, err := tasks.FilesFromPaths(cmd.Args().Slice())
	if err != nil {
		return err
	}

	uploads, err := r.uploader(ctx)
	if err != nil {
		return err
	}

	result, err := uploads.UploadBatch(ctx, files, key, title)
	r.flushNotices()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	for _, f := range result.Failures {
		r.writePlain("  ✗ %s: %s\n", f.FileName, f.Reason)
	}
	if !result.Success() {
		return fmt.Errorf("%w: no files were uploaded", shared.ErrStorageRequest)
	}
	return nil
}

// findRecord matches key against record ids, then composite keys.
func findRecord(records []models.CourseRecord, key string) (models.CourseRecord, bool) {
	for _, rec := range records {
		if rec.ID == key {
			return rec, true
		}
	}
	for _, rec := range records {
		if rec.CompositeKey() == key {
			return rec, true
		}
	}
	return models.CourseRecord{}, false
}
