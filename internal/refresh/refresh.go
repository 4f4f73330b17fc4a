// Package refresh keeps local issue markdown files in sync with the
// tracker. Each file in the output directory is named after its issue key;
// a refresh re-fetches the issue, rewrites the file content, renames the
// file when the summary changed, and removes it when the issue was deleted.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yoni/jiraflow/internal/format"
	"github.com/yoni/jiraflow/internal/issuekey"
	"github.com/yoni/jiraflow/internal/jira"
)

// Status classifies the outcome of refreshing one file.
type Status string

const (
	// StatusUpdated means the file content was rewritten in place.
	StatusUpdated Status = "updated"
	// StatusRenamed means the issue's summary or project changed and the
	// file was moved to its new name.
	StatusRenamed Status = "renamed"
	// StatusDeleted means the issue no longer exists and the file was
	// removed.
	StatusDeleted Status = "deleted"
	// StatusError means the issue could not be fetched; the file is left
	// as it was.
	StatusError Status = "error"
)

// Result describes what happened to one file.
type Result struct {
	Key     string
	Status  Status
	Path    string // file path after the refresh, empty when deleted
	OldPath string // original path, set when renamed or deleted
	Err     error  // set when Status is StatusError
}

// Getter is the single tracker operation a refresh needs.
type Getter interface {
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
}

var (
	keyPrefixRe = regexp.MustCompile(`^([A-Z]+-\d+)`)
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9 \-_&]+`)
	multiSpace  = regexp.MustCompile(`\s+`)
)

// Refresher syncs the markdown files of one directory against the tracker.
type Refresher struct {
	dir string
}

// NewRefresher returns a Refresher over dir.
func NewRefresher(dir string) *Refresher {
	return &Refresher{dir: dir}
}

// Filename returns the canonical markdown filename for an issue,
// `<KEY>-<safe summary>.md`.
func Filename(key, summary string) string {
	safe := unsafeChars.ReplaceAllString(summary, "")
	safe = strings.TrimSpace(multiSpace.ReplaceAllString(safe, " "))
	if safe == "" {
		return key + ".md"
	}
	return key + "-" + safe + ".md"
}

// KeyFromFilename extracts the leading issue key from a markdown filename.
// The second return is false for files that do not carry one.
func KeyFromFilename(name string) (string, bool) {
	m := keyPrefixRe.FindStringSubmatch(name)
	if m == nil || !issuekey.Valid(m[1]) {
		return "", false
	}
	return m[1], true
}

// File refreshes a single tracked file. The issue key is taken from the
// filename.
func (r *Refresher) File(ctx context.Context, getter Getter, path string) Result {
	key, ok := KeyFromFilename(filepath.Base(path))
	if !ok {
		return Result{
			Status:  StatusError,
			OldPath: path,
			Err:     fmt.Errorf("%s does not start with an issue key", filepath.Base(path)),
		}
	}
	return r.refresh(ctx, getter, key, path)
}

// All refreshes every key-named markdown file in the directory, returning
// one result per file sorted by key. Files without a key prefix are not
// tracked files and are left alone.
func (r *Refresher) All(ctx context.Context, getter Getter) ([]Result, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.dir, err)
	}

	var results []Result
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		key, ok := KeyFromFilename(e.Name())
		if !ok {
			continue
		}
		results = append(results, r.refresh(ctx, getter, key, filepath.Join(r.dir, e.Name())))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

func (r *Refresher) refresh(ctx context.Context, getter Getter, key, path string) Result {
	issue, err := getter.GetIssue(ctx, key)
	if errors.Is(err, jira.ErrNotFound) {
		if removeErr := os.Remove(path); removeErr != nil {
			return Result{Key: key, Status: StatusError, OldPath: path, Err: removeErr}
		}
		return Result{Key: key, Status: StatusDeleted, OldPath: path}
	}
	if err != nil {
		return Result{Key: key, Status: StatusError, OldPath: path, Err: err}
	}

	newPath := filepath.Join(filepath.Dir(path), Filename(issue.Key, issue.Fields.Summary))
	content := format.Markdown(issue)
	if err := os.WriteFile(newPath, []byte(content), 0o644); err != nil {
		return Result{Key: key, Status: StatusError, OldPath: path, Err: err}
	}

	if newPath != path {
		// The stale file goes away whether or not the target already
		// existed; the fresh content is already in place.
		if err := os.Remove(path); err != nil {
			return Result{Key: key, Status: StatusError, Path: newPath, OldPath: path, Err: err}
		}
		return Result{Key: key, Status: StatusRenamed, Path: newPath, OldPath: path}
	}
	return Result{Key: key, Status: StatusUpdated, Path: newPath}
}
