package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoni/jiraflow/internal/config"
	"github.com/yoni/jiraflow/internal/jira"
	"github.com/yoni/jiraflow/internal/staging"
	"github.com/yoni/jiraflow/internal/templates"
)

type fakeTracker struct {
	issue        *jira.Issue
	createResult *jira.CreateResult
	createErr    error

	createdPayload map[string]any
	attachedPaths  []string
	searchJQL      string
}

func (f *fakeTracker) GetIssue(_ context.Context, key string) (*jira.Issue, error) {
	if f.issue == nil {
		return nil, jira.ErrNotFound
	}
	return f.issue, nil
}

func (f *fakeTracker) CreateIssue(_ context.Context, payload map[string]any) (*jira.CreateResult, error) {
	f.createdPayload = payload
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeTracker) SearchIssues(_ context.Context, jql string, _ int) ([]jira.Issue, error) {
	f.searchJQL = jql
	return []jira.Issue{{Key: "RTDEV-1", Fields: jira.Fields{Summary: "found", Status: jira.Named{Name: "Open"}}}}, nil
}

func (f *fakeTracker) AttachFiles(_ context.Context, key string, paths []string) ([]jira.Attachment, error) {
	f.attachedPaths = paths
	out := make([]jira.Attachment, len(paths))
	for i, p := range paths {
		out[i] = jira.Attachment{Filename: filepath.Base(p), Size: 1}
	}
	return out, nil
}

func (f *fakeTracker) Myself(_ context.Context) (*jira.Myself, error) {
	return &jira.Myself{AccountID: "712020:abc", DisplayName: "Dana"}, nil
}

func (f *fakeTracker) ListProjects(_ context.Context) ([]jira.Project, error) {
	return []jira.Project{{ID: "10129", Key: "RTDEV", Name: "Runtime Dev"}}, nil
}

func testDeps(t *testing.T, tracker *fakeTracker) Deps {
	t.Helper()
	return Deps{
		Templates: templates.NewManager(""),
		Staging:   staging.NewStore(t.TempDir()),
		Connect: func() (Tracker, *config.Config, error) {
			if tracker == nil {
				return nil, nil, errors.New("no tracker in this test")
			}
			return tracker, &config.Config{
				BaseURL:       "https://tracker.example.com",
				AuthToken:     "dG9r",
				UserAccountID: "712020:me",
			}, nil
		},
	}
}

func run(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(deps)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreate_DryRunPrintsWirePayload(t *testing.T) {
	out, err := run(t, testDeps(t, nil),
		"create", "RTDEV", "Improve caching", "--priority", "4 - Normal", "--dry-run")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	fields := payload["fields"].(map[string]any)

	assert.Equal(t, map[string]any{"id": "10129"}, fields["project"])
	assert.Equal(t, map[string]any{"id": "10003"}, fields["priority"])
	assert.Equal(t, "Improve caching", fields["summary"])
	assert.Equal(t, map[string]any{"id": "10000"}, fields["issuetype"])
}

func TestCreate_SubmitsAndAttaches(t *testing.T) {
	tracker := &fakeTracker{createResult: &jira.CreateResult{
		Key: "RTDEV-500", BrowseURL: "https://tracker.example.com/browse/RTDEV-500",
	}}

	file := filepath.Join(t.TempDir(), "spec.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	out, err := run(t, testDeps(t, tracker),
		"create", "RTDEV", "With attachment", "--attach", file)
	require.NoError(t, err)

	assert.Contains(t, out, "Created RTDEV-500")
	assert.Contains(t, out, "browse/RTDEV-500")
	assert.Equal(t, []string{file}, tracker.attachedPaths)
	require.NotNil(t, tracker.createdPayload)
	fields := tracker.createdPayload["fields"].(map[string]any)
	assert.Equal(t, "With attachment", fields["summary"])
}

func TestCreate_UnknownProject(t *testing.T) {
	_, err := run(t, testDeps(t, nil), "create", "NOPE", "x", "--dry-run")
	assert.Error(t, err)
}

func TestView_MarkdownFormat(t *testing.T) {
	tracker := &fakeTracker{issue: &jira.Issue{
		Key: "RTDEV-42",
		Fields: jira.Fields{
			Summary: "Improve caching",
			Status:  jira.Named{Name: "Open"},
		},
		BrowseURL: "https://tracker.example.com/browse/RTDEV-42",
	}}

	out, err := run(t, testDeps(t, tracker),
		"view", "https://tracker.example.com/browse/RTDEV-42", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# RTDEV-42: Improve caching")
	assert.Contains(t, out, "- **Status:** Open")
}

func TestView_OutputFile(t *testing.T) {
	tracker := &fakeTracker{issue: &jira.Issue{
		Key:    "RTDEV-42",
		Fields: jira.Fields{Summary: "s"},
		Raw:    map[string]any{"key": "RTDEV-42"},
	}}

	target := filepath.Join(t.TempDir(), "issue.json")
	out, err := run(t, testDeps(t, tracker), "view", "RTDEV-42", "--raw", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved RTDEV-42")

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"RTDEV-42"`)
}

func TestView_BadFormat(t *testing.T) {
	tracker := &fakeTracker{issue: &jira.Issue{Key: "RTDEV-1"}}
	_, err := run(t, testDeps(t, tracker), "view", "RTDEV-1", "--format", "yaml")
	assert.Error(t, err)
}

func TestStageListSubmitFlow(t *testing.T) {
	tracker := &fakeTracker{createResult: &jira.CreateResult{Key: "RTDEV-900"}}
	deps := testDeps(t, tracker)

	out, err := run(t, deps, "stage", "RTDEV", "Flow epic", "--description", "Body.")
	require.NoError(t, err)
	assert.Contains(t, out, "Staged")

	out, err = run(t, deps, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Flow epic")
	assert.Contains(t, out, "staged")

	summaries, _, err := deps.Staging.List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	out, err = run(t, deps, "submit", summaries[0].Path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created RTDEV-900")

	fields := tracker.createdPayload["fields"].(map[string]any)
	assert.Equal(t, "RLM 25Q4 - Flow epic", fields["summary"])
	assert.Equal(t, "Body.", fields["description"])

	out, err = run(t, deps, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No staged files.")
}

func TestSubmit_DryRunNeedsNoConnection(t *testing.T) {
	deps := testDeps(t, nil)
	_, err := run(t, deps, "stage", "RTDEV", "Dry epic")
	require.NoError(t, err)

	summaries, _, err := deps.Staging.List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	out, err := run(t, deps, "submit", summaries[0].Path, "--dry-run")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Contains(t, payload, "fields")
}

func TestClean(t *testing.T) {
	out, err := run(t, testDeps(t, nil), "clean", "--days", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 archived")
}

func TestTemplatesList(t *testing.T) {
	out, err := run(t, testDeps(t, nil), "templates", "list", "--issue-type", "epic")
	require.NoError(t, err)
	assert.Contains(t, out, "epic")
	assert.Contains(t, out, "built-in")
}

func TestRefresh_AllRewritesAndRenames(t *testing.T) {
	tracker := &fakeTracker{issue: &jira.Issue{
		Key:    "RTDEV-42",
		Fields: jira.Fields{Summary: "New summary", Status: jira.Named{Name: "Open"}},
	}}

	dir := t.TempDir()
	stale := filepath.Join(dir, "RTDEV-42-Old summary.md")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	out, err := run(t, testDeps(t, tracker), "refresh", "--all", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "renamed")
	assert.Contains(t, out, "1 renamed")

	assert.NoFileExists(t, stale)
	b, err := os.ReadFile(filepath.Join(dir, "RTDEV-42-New summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "# RTDEV-42: New summary")
}

func TestRefresh_RemovesFileForDeletedIssue(t *testing.T) {
	dir := t.TempDir()
	gone := filepath.Join(dir, "RTDEV-7-Removed epic.md")
	require.NoError(t, os.WriteFile(gone, []byte("x"), 0o644))

	// fakeTracker with no issue returns ErrNotFound for every key.
	out, err := run(t, testDeps(t, &fakeTracker{}), "refresh", gone)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")
	assert.NoFileExists(t, gone)
}

func TestRefresh_RequiresPathsOrAll(t *testing.T) {
	_, err := run(t, testDeps(t, &fakeTracker{}), "refresh")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	tracker := &fakeTracker{}
	out, err := run(t, testDeps(t, tracker), "search", "project = RTDEV")
	require.NoError(t, err)
	assert.Equal(t, "project = RTDEV", tracker.searchJQL)
	assert.Contains(t, out, "RTDEV-1")
	assert.Contains(t, out, "found")
}

func TestProjects(t *testing.T) {
	out, err := run(t, testDeps(t, &fakeTracker{}), "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "RTDEV")
	assert.Contains(t, out, "Runtime Dev")
}

func TestWhoami(t *testing.T) {
	out, err := run(t, testDeps(t, &fakeTracker{}), "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Dana (712020:abc)")
	assert.Contains(t, out, "https://tracker.example.com")
}

func TestConnectFailureSurfaces(t *testing.T) {
	_, err := run(t, testDeps(t, nil), "whoami")
	assert.Error(t, err)
}
