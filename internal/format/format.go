// Package format renders fetched issues for the console, as markdown, and
// as JSON, and writes rendered output to disk.
package format

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/yoni/jiraflow/internal/jira"
)

// DefaultOutputDir is where Save places files when no custom path is given.
const DefaultOutputDir = ".jira-output"

var (
	// keyStyle is used for the issue key heading.
	keyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")) // Purple

	// labelStyle is used for field labels.
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")) // Dark gray

	// valueStyle is used for field values.
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Light gray

	// sectionStyle is used for section headings.
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")) // Light blue

	// urlStyle is used for the browse URL.
	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // Blue
			Underline(true)
)

// Console renders an issue for terminal display. The description is
// word-wrapped to width; width <= 0 falls back to 80 columns.
func Console(issue *jira.Issue, width int) string {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(keyStyle.Render(issue.Key+": "+issue.Fields.Summary) + "\n\n")

	row := func(label, value string) {
		if value == "" {
			value = "Unknown"
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)) + valueStyle.Render(value) + "\n")
	}
	row("Status", issue.Fields.Status.Name)
	row("Type", issue.Fields.IssueType.Name)
	row("Priority", issue.Fields.Priority.Name)
	row("Assignee", displayName(issue.Fields.Assignee, "Unassigned"))
	row("Reporter", displayName(issue.Fields.Reporter, "Unknown"))
	row("Created", issue.Fields.Created)
	row("Updated", issue.Fields.Updated)

	if issue.Fields.Description != "" {
		b.WriteString("\n" + sectionStyle.Render("Description") + "\n\n")
		b.WriteString(wordwrap.String(issue.Fields.Description, width) + "\n")
	}

	if custom := CustomFields(issue); len(custom) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Custom Fields") + "\n\n")
		for _, f := range custom {
			b.WriteString(labelStyle.Render(f.ID+": ") + valueStyle.Render(f.Value) + "\n")
		}
	}

	if issue.BrowseURL != "" {
		b.WriteString("\n" + urlStyle.Render(issue.BrowseURL) + "\n")
	}
	return b.String()
}

// Markdown renders an issue as a standalone markdown document.
func Markdown(issue *jira.Issue) string {
	lines := []string{
		fmt.Sprintf("# %s: %s", issue.Key, issue.Fields.Summary),
		"",
		"## Issue Information",
		"",
		"- **Status:** " + orUnknown(issue.Fields.Status.Name),
		"- **Type:** " + orUnknown(issue.Fields.IssueType.Name),
		"- **Priority:** " + orUnknown(issue.Fields.Priority.Name),
		"- **Assignee:** " + displayName(issue.Fields.Assignee, "Unassigned"),
		"- **Reporter:** " + displayName(issue.Fields.Reporter, "Unknown"),
		"- **Created:** " + orUnknown(issue.Fields.Created),
		"- **Updated:** " + orUnknown(issue.Fields.Updated),
	}
	if issue.BrowseURL != "" {
		lines = append(lines, fmt.Sprintf("- **URL:** [%s](%s)", issue.Key, issue.BrowseURL))
	}

	if issue.Fields.Description != "" {
		lines = append(lines, "", "## Description", "", issue.Fields.Description)
	}

	if custom := CustomFields(issue); len(custom) > 0 {
		lines = append(lines, "", "## Custom Fields", "")
		for _, f := range custom {
			lines = append(lines, fmt.Sprintf("- **%s:** %s", f.ID, f.Value))
		}
	}

	lines = append(lines, "", "---", "",
		fmt.Sprintf("*Generated on %s by jiraflow*", time.Now().Format("2006-01-02 15:04:05")))
	return strings.Join(lines, "\n")
}

// JSON renders the issue's full response body as pretty-printed JSON.
func JSON(issue *jira.Issue) (string, error) {
	var v any = issue.Raw
	if issue.Raw == nil {
		v = issue
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding issue: %w", err)
	}
	return string(b), nil
}

// CustomField is one customfield entry with its value flattened to text.
type CustomField struct {
	ID    string
	Value string
}

// CustomFields extracts the non-nil customfield_ entries from the raw
// response, sorted by field id.
func CustomFields(issue *jira.Issue) []CustomField {
	fields, ok := issue.Raw["fields"].(map[string]any)
	if !ok {
		return nil
	}

	var out []CustomField
	for key, value := range fields {
		if !strings.HasPrefix(key, "customfield_") || value == nil {
			continue
		}
		out = append(out, CustomField{ID: key, Value: flatten(value)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// flatten reduces an API-shaped value to display text: objects prefer
// name/displayName/value/id, arrays join their flattened elements.
func flatten(v any) string {
	switch val := v.(type) {
	case map[string]any:
		for _, key := range []string{"name", "displayName", "value", "id"} {
			if s, ok := val[key].(string); ok {
				return s
			}
		}
		return fmt.Sprintf("%v", val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = flatten(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func displayName(u *jira.User, fallback string) string {
	if u == nil || u.DisplayName == "" {
		return fallback
	}
	return u.DisplayName
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)

// Save writes rendered content to customPath when given, otherwise to
// DefaultOutputDir/<key>.<ext>. Returns the written path.
func Save(content, key, ext, customPath string) (string, error) {
	var path string
	if customPath != "" {
		path = customPath
	} else {
		safe := unsafeKeyChars.ReplaceAllString(key, "")
		path = filepath.Join(DefaultOutputDir, safe+"."+ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
