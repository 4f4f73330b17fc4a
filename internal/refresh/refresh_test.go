package refresh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoni/jiraflow/internal/jira"
)

type fakeGetter struct {
	issues map[string]*jira.Issue
	errs   map[string]error
	calls  []string
}

func (f *fakeGetter) GetIssue(_ context.Context, key string) (*jira.Issue, error) {
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	issue, ok := f.issues[key]
	if !ok {
		return nil, jira.ErrNotFound
	}
	return issue, nil
}

func issueWith(key, summary string) *jira.Issue {
	return &jira.Issue{
		Key:    key,
		Fields: jira.Fields{Summary: summary, Status: jira.Named{Name: "Open"}},
	}
}

func writeTracked(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("stale content"), 0o644))
	return path
}

func TestFilename(t *testing.T) {
	tests := []struct {
		summary string
		want    string
	}{
		{"Improve caching", "RTDEV-42-Improve caching.md"},
		{"Cache: hit/miss ratios?", "RTDEV-42-Cache hitmiss ratios.md"},
		{"  spaced   out  ", "RTDEV-42-spaced out.md"},
		{"R&D tooling", "RTDEV-42-R&D tooling.md"},
		{"///", "RTDEV-42.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename("RTDEV-42", tt.summary), "summary %q", tt.summary)
	}
}

func TestKeyFromFilename(t *testing.T) {
	key, ok := KeyFromFilename("RTDEV-42-Improve caching.md")
	require.True(t, ok)
	assert.Equal(t, "RTDEV-42", key)

	_, ok = KeyFromFilename("notes.md")
	assert.False(t, ok)

	_, ok = KeyFromFilename("README.md")
	assert.False(t, ok)
}

func TestFile_RewritesContentInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeTracked(t, dir, "RTDEV-42-Improve caching.md")
	getter := &fakeGetter{issues: map[string]*jira.Issue{
		"RTDEV-42": issueWith("RTDEV-42", "Improve caching"),
	}}

	res := NewRefresher(dir).File(context.Background(), getter, path)
	assert.Equal(t, StatusUpdated, res.Status)
	assert.Equal(t, path, res.Path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "# RTDEV-42: Improve caching")
	assert.NotContains(t, string(b), "stale content")
}

func TestFile_RenamesWhenSummaryChanged(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeTracked(t, dir, "RTDEV-42-Old name.md")
	getter := &fakeGetter{issues: map[string]*jira.Issue{
		"RTDEV-42": issueWith("RTDEV-42", "New name"),
	}}

	res := NewRefresher(dir).File(context.Background(), getter, oldPath)
	require.Equal(t, StatusRenamed, res.Status)
	assert.Equal(t, filepath.Join(dir, "RTDEV-42-New name.md"), res.Path)
	assert.Equal(t, oldPath, res.OldPath)

	assert.NoFileExists(t, oldPath)
	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "# RTDEV-42: New name")
}

func TestFile_RemovesDeletedIssue(t *testing.T) {
	dir := t.TempDir()
	path := writeTracked(t, dir, "RTDEV-42-Gone.md")
	getter := &fakeGetter{}

	res := NewRefresher(dir).File(context.Background(), getter, path)
	assert.Equal(t, StatusDeleted, res.Status)
	assert.Equal(t, path, res.OldPath)
	assert.NoFileExists(t, path)
}

func TestFile_FetchFailureLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	path := writeTracked(t, dir, "RTDEV-42-Flaky.md")
	getter := &fakeGetter{errs: map[string]error{
		"RTDEV-42": errors.New("boom"),
	}}

	res := NewRefresher(dir).File(context.Background(), getter, path)
	assert.Equal(t, StatusError, res.Status)
	assert.Error(t, res.Err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "stale content", string(b))
}

func TestFile_NoKeyInFilename(t *testing.T) {
	dir := t.TempDir()
	path := writeTracked(t, dir, "notes.md")
	getter := &fakeGetter{}

	res := NewRefresher(dir).File(context.Background(), getter, path)
	assert.Equal(t, StatusError, res.Status)
	assert.Empty(t, getter.calls)
}

func TestAll_RefreshesEveryTrackedFile(t *testing.T) {
	dir := t.TempDir()
	writeTracked(t, dir, "RTDEV-1-Keep.md")
	writeTracked(t, dir, "RTDEV-2-Old.md")
	writeTracked(t, dir, "RTDEV-3-Gone.md")
	writeTracked(t, dir, "notes.md") // no key, not tracked
	require.NoError(t, os.WriteFile(filepath.Join(dir, "RTDEV-4.txt"), []byte("x"), 0o644))

	getter := &fakeGetter{issues: map[string]*jira.Issue{
		"RTDEV-1": issueWith("RTDEV-1", "Keep"),
		"RTDEV-2": issueWith("RTDEV-2", "Renamed"),
	}}

	results, err := NewRefresher(dir).All(context.Background(), getter)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, StatusUpdated, results[0].Status)
	assert.Equal(t, StatusRenamed, results[1].Status)
	assert.Equal(t, StatusDeleted, results[2].Status)

	assert.FileExists(t, filepath.Join(dir, "notes.md"))
	assert.FileExists(t, filepath.Join(dir, "RTDEV-2-Renamed.md"))
	assert.NoFileExists(t, filepath.Join(dir, "RTDEV-3-Gone.md"))
}

func TestAll_MissingDirIsEmpty(t *testing.T) {
	results, err := NewRefresher(filepath.Join(t.TempDir(), "absent")).All(context.Background(), &fakeGetter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
