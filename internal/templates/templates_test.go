package templates

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, rel, content string) string {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func decodeFields(t *testing.T, rendered []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rendered, &doc))
	fields, ok := doc["fields"].(map[string]any)
	require.True(t, ok)
	return fields
}

func TestRender_BuiltinEpicBase(t *testing.T) {
	m := NewManager("")

	rendered, err := m.Render(
		Selection{IssueType: "epic"},
		Context{
			Issue:   IssueContext{Title: "Improve caching", Priority: "4 - Normal"},
			Project: ProjectContext{Key: "RTDEV", ID: "10129"},
		},
	)
	require.NoError(t, err)

	fields := decodeFields(t, rendered)
	assert.Equal(t, "RTDEV", fields["project"])
	assert.Equal(t, "Improve caching", fields["summary"])
	assert.Equal(t, "epic", fields["issue_type"])
	assert.Equal(t, "4 - Normal", fields["priority"])
	assert.Equal(t, "TBD", fields["description"])

	// Unset optional values render as null so the translator drops them.
	v, present := fields["team"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestRender_DefaultsApplyWhenUnset(t *testing.T) {
	m := NewManager("")

	rendered, err := m.Render(
		Selection{IssueType: "epic"},
		Context{
			Issue:   IssueContext{Title: "No priority given"},
			Project: ProjectContext{Key: "RTDEV"},
		},
	)
	require.NoError(t, err)

	fields := decodeFields(t, rendered)
	assert.Equal(t, "4 - Normal", fields["priority"])
}

func TestRender_TitleQuotingSurvivesJSON(t *testing.T) {
	m := NewManager("")

	rendered, err := m.Render(
		Selection{IssueType: "task"},
		Context{
			Issue:   IssueContext{Title: `Fix "quoted" path C:\tmp`},
			Project: ProjectContext{Key: "RTDEV"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, `Fix "quoted" path C:\tmp`, decodeFields(t, rendered)["summary"])
}

func TestRender_UserDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "epic/base.tmpl", `{{/*
  name: base
  project: RTDEV
  issue_type: epic
*/}}
{"fields": {"project": {{json .Project.Key}}, "summary": {{json .Issue.Title}}, "issue_type": "epic", "labels": ["override"]}}
`)

	m := NewManager(dir)
	rendered, err := m.Render(
		Selection{IssueType: "epic"},
		Context{Issue: IssueContext{Title: "t"}, Project: ProjectContext{Key: "RTDEV"}},
	)
	require.NoError(t, err)
	assert.Contains(t, decodeFields(t, rendered), "labels")
}

func TestRender_SelectionPriority(t *testing.T) {
	dir := t.TempDir()
	mk := func(rel, label string) {
		writeTemplate(t, dir, rel, `{{/*
  project: RTDEV
  issue_type: epic
*/}}
{"fields": {"project": "RTDEV", "summary": "s", "issue_type": "epic", "labels": ["`+label+`"]}}
`)
	}
	mk("epic/special.tmpl", "named")
	mk("RTDEV/epic/security.tmpl", "project-context")
	mk("RTDEV/epic/base.tmpl", "project-base")
	mk("epic/security.tmpl", "type-context")

	m := NewManager(dir)
	label := func(sel Selection) string {
		rendered, err := m.Render(sel, Context{})
		require.NoError(t, err)
		labels := decodeFields(t, rendered)["labels"].([]any)
		return labels[0].(string)
	}

	// Explicit name wins over everything.
	assert.Equal(t, "named",
		label(Selection{IssueType: "epic", Project: "RTDEV", Name: "special", Context: "security"}))
	// Project + context beats project base.
	assert.Equal(t, "project-context",
		label(Selection{IssueType: "epic", Project: "RTDEV", Context: "security"}))
	// Project base beats type-level context.
	assert.Equal(t, "project-base",
		label(Selection{IssueType: "epic", Project: "RTDEV"}))
	// Without a project the context template is used.
	assert.Equal(t, "type-context",
		label(Selection{IssueType: "epic", Context: "security"}))
}

func TestRender_NotFoundListsCandidates(t *testing.T) {
	m := NewManager("")

	_, err := m.Render(Selection{IssueType: "spike"}, Context{})
	require.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Contains(t, err.Error(), "spike/base.tmpl")
	assert.Contains(t, err.Error(), "spike/default.tmpl")
}

func TestRender_MissingIssueType(t *testing.T) {
	_, err := NewManager("").Render(Selection{}, Context{})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRender_ValidationFailures(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "epic/nosummary.tmpl", `{{/*
  project: RTDEV
  issue_type: epic
*/}}
{"fields": {"project": "RTDEV", "issue_type": "epic"}}
`)
	writeTemplate(t, dir, "epic/notjson.tmpl", `{{/*
  project: RTDEV
  issue_type: epic
*/}}
this is not json
`)
	writeTemplate(t, dir, "epic/nested.tmpl", `{{/*
  project: RTDEV
  issue_type: epic
*/}}
{"fields": {"project": {"id": "10129"}, "summary": "s", "issue_type": "epic"}}
`)

	m := NewManager(dir)
	for _, name := range []string{"nosummary", "notjson", "nested"} {
		_, err := m.Render(Selection{IssueType: "epic", Name: name}, Context{})
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestList_BuiltinsAndFilter(t *testing.T) {
	m := NewManager("")

	all, warnings := m.List("")
	assert.Empty(t, warnings)
	assert.GreaterOrEqual(t, len(all), 5)

	epics, _ := m.List("epic")
	require.NotEmpty(t, epics)
	for _, md := range epics {
		assert.Equal(t, "epic", md.IssueType)
		assert.True(t, md.Builtin)
	}
}

func TestList_SkipsBadHeaderWithWarning(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "epic/broken.tmpl", `{"fields": {}}`)

	m := NewManager(dir)
	list, warnings := m.List("epic")

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "broken.tmpl")
	for _, md := range list {
		assert.NotEqual(t, "broken", md.Name)
	}
}

func TestParseMetadata_NameFollowsStem(t *testing.T) {
	md, err := parseMetadata("epic/renamed.tmpl", []byte(`{{/*
  name: something-else
  project: RTDEV
  issue_type: epic
*/}}
{}`))
	require.NoError(t, err)
	assert.Equal(t, "renamed", md.Name)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeTemplate(t, dir, "epic/good.tmpl", `{{/*
  project: RTDEV
  issue_type: epic
*/}}
{"fields": {"project": {{json .Project.Key}}, "summary": {{json .Issue.Title}}, "issue_type": "epic"}}
`)
	noHeader := writeTemplate(t, dir, "epic/noheader.tmpl", `{"fields": {}}`)

	m := NewManager(dir)
	assert.NoError(t, m.Validate(good))
	assert.ErrorIs(t, m.Validate(noHeader), ErrHeader)
	assert.Error(t, m.Validate(filepath.Join(dir, "absent.tmpl")))
}
