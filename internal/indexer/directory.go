package indexer

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"expenseindex/internal/apperr"
)

// SubmitDirectory walks path, submitting every file it can read and
// classify as supported. Per-file errors (unreadable file, unsupported
// MIME type) are collected as skip reasons and never abort the walk; err is
// reserved for a failure to walk the tree at all (e.g. path doesn't exist).
func (ix *Indexer) SubmitDirectory(ctx context.Context, path, tenant string, recursive bool, glob string) ([]string, []SkipReason, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindBadRequest, "directory does not exist", err)
	}

	var jobIDs []string
	var skipped []SkipReason

	walkFn := func(p string, d os.DirEntry, err error) error {
		if err != nil {
			skipped = append(skipped, SkipReason{Path: p, Reason: err.Error()})
			return nil
		}
		if d.IsDir() {
			if !recursive && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if glob != "" {
			if ok, _ := filepath.Match(glob, d.Name()); !ok {
				return nil
			}
		}

		data, err := os.ReadFile(p)
		if err != nil {
			skipped = append(skipped, SkipReason{Path: p, Reason: err.Error()})
			return nil
		}

		mimeType := http.DetectContentType(data)
		if !ix.parsers.Supports(mimeType) {
			skipped = append(skipped, SkipReason{Path: p, Reason: "unsupported mime type " + mimeType})
			return nil
		}

		jobID, err := ix.Submit(ctx, tenant, "", data, mimeType, p, nil, 0)
		if err != nil {
			skipped = append(skipped, SkipReason{Path: p, Reason: err.Error()})
			return nil
		}
		jobIDs = append(jobIDs, jobID)
		return nil
	}

	if err := filepath.WalkDir(path, walkFn); err != nil {
		return jobIDs, skipped, apperr.Wrap(apperr.KindInternal, "walk directory", err)
	}
	return jobIDs, skipped, nil
}
