// Package staging persists issues as editable markdown files for human
// review before submission. A staged file carries a yaml configuration
// block, a human-readable preview, and a marker-delimited description body.
// Submission rebuilds the wire payload from the configuration block,
// creates the issue, and archives the file.
package staging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yoni/jiraflow/internal/fieldmap"
	"github.com/yoni/jiraflow/internal/jira"
	"github.com/yoni/jiraflow/internal/translate"
)

// Markers delimiting the editable description body inside a staged file.
const (
	descStartMarker = "DESCRIPTION START"
	descEndMarker   = "DESCRIPTION END"
	separatorLine   = "================================================================================"
)

// Staged file lifecycle states.
const (
	StatusStaged    = "staged"
	StatusReviewed  = "reviewed"
	StatusApproved  = "approved"
	StatusSubmitted = "submitted"
)

var (
	// ErrStaging wraps failures manipulating staged files.
	ErrStaging = errors.New("staging error")
	// ErrUnsupportedProject indicates the project has no defaults entry.
	ErrUnsupportedProject = errors.New("unsupported project")
)

// Metadata is the epic_config block of a staged file.
type Metadata struct {
	Project                 string `yaml:"project"`
	EpicName                string `yaml:"epic_name"`
	Team                    string `yaml:"team"`
	ProductBacklog          string `yaml:"product_backlog"`
	ProductManager          string `yaml:"product_manager,omitempty"`
	Priority                string `yaml:"priority"`
	CommitmentLevel         string `yaml:"commitment_level"`
	Parent                  string `yaml:"parent,omitempty"`
	ProductPriority         string `yaml:"product_priority,omitempty"`
	AssignedArchitect       string `yaml:"assigned_architect,omitempty"`
	AssignedUX              string `yaml:"assigned_ux,omitempty"`
	AssignedTechnicalWriter string `yaml:"assigned_technical_writer,omitempty"`
}

// Info is the staging_info block of a staged file.
type Info struct {
	CreatedDate   string `yaml:"created_date"`
	Status        string `yaml:"status"`
	JiraKey       string `yaml:"jira_key,omitempty"`
	SubmittedDate string `yaml:"submitted_date,omitempty"`
}

type document struct {
	EpicConfig  Metadata `yaml:"epic_config"`
	StagingInfo Info     `yaml:"staging_info"`
}

// Summary is one entry of a staged-file listing.
type Summary struct {
	Path     string
	Project  string
	EpicName string
	Status   string
	Created  string
	JiraKey  string
}

// Counts reports how many files Clean removed per category.
type Counts struct {
	Archived int
	Staged   int
}

// Creator is the single tracker operation Submit needs. *jira.Client
// satisfies it; tests substitute fakes.
type Creator interface {
	CreateIssue(ctx context.Context, payload map[string]any) (*jira.CreateResult, error)
}

// Store manages one staging directory with an archived/ subdirectory.
// Single-user access is assumed; there is no file locking.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the staging directory path.
func (s *Store) Dir() string { return s.dir }

func (s *Store) archiveDir() string { return filepath.Join(s.dir, "archived") }

// Stage writes a new staged file and returns its path. Project defaults
// fill unset fields, the project's quarter prefix is applied to the name
// exactly once, and a filename collision gets a numeric suffix instead of
// overwriting.
func (s *Store) Stage(meta Metadata, description string) (string, error) {
	meta.Project = strings.ToUpper(strings.TrimSpace(meta.Project))
	defaults, err := fieldmap.DefaultsFor(meta.Project)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProject, meta.Project)
	}

	if !strings.HasPrefix(meta.EpicName, defaults.QuarterPrefix) {
		meta.EpicName = defaults.QuarterPrefix + meta.EpicName
	}
	if meta.Team == "" {
		meta.Team = defaults.Team
	}
	if meta.Priority == "" {
		meta.Priority = "4 - Normal"
	}
	if meta.CommitmentLevel == "" {
		meta.CommitmentLevel = "Soft Commitment"
	}
	if meta.ProductBacklog == "" {
		meta.ProductBacklog = "Q4-25-Backlog"
	}
	if description == "" {
		description = "TBD"
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: creating staging dir: %v", ErrStaging, err)
	}

	path, err := s.freePath(meta.Project, meta.EpicName)
	if err != nil {
		return "", err
	}

	doc := document{
		EpicConfig: meta,
		StagingInfo: Info{
			CreatedDate: s.now().Format(time.RFC3339),
			Status:      StatusStaged,
		},
	}
	content, err := renderStagedFile(doc, description)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrStaging, path, err)
	}
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9 \-_&]+`)
var multiSpace = regexp.MustCompile(`\s+`)

// freePath picks `<PROJECT>-<safe name>.md`, appending _1, _2, ... while
// the name is taken.
func (s *Store) freePath(project, name string) (string, error) {
	safe := unsafeChars.ReplaceAllString(name, "")
	safe = strings.TrimSpace(multiSpace.ReplaceAllString(safe, " "))
	base := project + "-" + safe

	for i := 0; ; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", base, i)
		}
		path := filepath.Join(s.dir, candidate+".md")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("%w: checking %s: %v", ErrStaging, path, err)
		}
	}
}

func renderStagedFile(doc document, description string) (string, error) {
	block, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("%w: serializing config: %v", ErrStaging, err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("# STAGED ISSUE METADATA\n")
	b.WriteString("# Edit the values below, then submit this file to create the tracker issue.\n")
	b.WriteString("# Status can be: staged, reviewed, approved, submitted\n")
	b.WriteString("---\n\n")
	b.WriteString("```yaml\n")
	b.Write(block)
	b.WriteString("```\n\n---\n\n")

	meta := doc.EpicConfig
	b.WriteString("# STAGED EPIC: " + meta.EpicName + "\n\n")
	b.WriteString("## Configuration\n\n")
	b.WriteString("- **Project:** " + meta.Project + "\n")
	b.WriteString("- **Epic Name:** " + meta.EpicName + "\n")
	b.WriteString("- **Team:** " + meta.Team + "\n")
	b.WriteString("- **Product Backlog:** " + meta.ProductBacklog + "\n")
	if meta.ProductManager != "" {
		b.WriteString("- **Product Manager:** " + meta.ProductManager + "\n")
	}
	b.WriteString("- **Priority:** " + meta.Priority + "\n")
	b.WriteString("- **Commitment Level:** " + meta.CommitmentLevel + "\n")
	if meta.Parent != "" {
		b.WriteString("- **Parent:** " + meta.Parent + "\n")
	}
	if meta.ProductPriority != "" {
		b.WriteString("- **Product Priority:** " + meta.ProductPriority + "\n")
	}
	b.WriteString("\n## Description\n\n")
	b.WriteString(separatorLine + "\n")
	b.WriteString(descStartMarker + "\n")
	b.WriteString(separatorLine + "\n\n")
	b.WriteString(description + "\n\n")
	b.WriteString(separatorLine + "\n")
	b.WriteString(descEndMarker + "\n")
	b.WriteString(separatorLine + "\n")
	return b.String(), nil
}

// Parse reads a staged file back into its configuration blocks and
// description body.
func (s *Store) Parse(path string) (Metadata, Info, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, Info{}, "", fmt.Errorf("%w: reading %s: %v", ErrStaging, path, err)
	}

	doc, err := parseConfigBlock(string(content))
	if err != nil {
		return Metadata{}, Info{}, "", fmt.Errorf("%w: %s: %v", ErrStaging, path, err)
	}
	description := extractDescription(string(content))
	return doc.EpicConfig, doc.StagingInfo, description, nil
}

func parseConfigBlock(content string) (document, error) {
	start := strings.Index(content, "```yaml")
	if start == -1 {
		return document{}, errors.New("no yaml config block")
	}
	rest := content[start+len("```yaml"):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return document{}, errors.New("unterminated yaml config block")
	}

	var doc document
	if err := yaml.Unmarshal([]byte(rest[:end]), &doc); err != nil {
		return document{}, fmt.Errorf("invalid yaml config: %v", err)
	}
	if doc.EpicConfig.Project == "" || doc.EpicConfig.EpicName == "" {
		return document{}, errors.New("config block missing project or epic_name")
	}
	return doc, nil
}

// extractDescription pulls the body between the description markers,
// trimming separator and blank lines from both edges.
func extractDescription(content string) string {
	start := strings.Index(content, descStartMarker)
	end := strings.Index(content, descEndMarker)
	if start == -1 || end == -1 || end < start {
		return ""
	}

	body := content[start+len(descStartMarker) : end]
	lines := strings.Split(body, "\n")
	isNoise := func(line string) bool {
		trimmed := strings.TrimSpace(line)
		return trimmed == "" || strings.Contains(trimmed, "====")
	}
	for len(lines) > 0 && isNoise(lines[0]) {
		lines = lines[1:]
	}
	for len(lines) > 0 && isNoise(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// List enumerates staged files, newest first. Files that fail to parse are
// skipped and reported as warnings rather than failing the listing.
func (s *Store) List() ([]Summary, []string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading staging dir: %v", ErrStaging, err)
	}

	var out []Summary
	var warnings []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		meta, info, _, err := s.Parse(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", e.Name(), err))
			continue
		}
		out = append(out, Summary{
			Path:     path,
			Project:  meta.Project,
			EpicName: meta.EpicName,
			Status:   info.Status,
			Created:  info.CreatedDate,
			JiraKey:  info.JiraKey,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Created > out[j].Created })
	return out, warnings, nil
}

// Payload rebuilds the wire payload for a staged file without touching the
// network. Used by Submit and by dry runs.
func (s *Store) Payload(path string) (map[string]any, error) {
	meta, _, description, err := s.Parse(path)
	if err != nil {
		return nil, err
	}
	return buildFields(meta, description)
}

func buildFields(meta Metadata, description string) (map[string]any, error) {
	fields := map[string]any{
		"project":          meta.Project,
		"summary":          meta.EpicName,
		"issue_type":       "epic",
		"description":      description,
		"team":             meta.Team,
		"product_backlog":  meta.ProductBacklog,
		"product_manager":  meta.ProductManager,
		"priority":         meta.Priority,
		"commitment_level": meta.CommitmentLevel,
		"parent":           meta.Parent,
		"product_priority": meta.ProductPriority,
		"architect":        meta.AssignedArchitect,
		"ux_designer":      meta.AssignedUX,
		"technical_writer": meta.AssignedTechnicalWriter,
	}
	return translate.TranslateFields(fields)
}

// Submit creates the tracker issue from a staged file, marks the file
// submitted, and archives it. Any failure before the archive move leaves
// the staged file in place; the move is deliberately the last step, and a
// failed move reports the error without losing the file.
func (s *Store) Submit(ctx context.Context, path string, creator Creator) (*jira.CreateResult, error) {
	meta, _, description, err := s.Parse(path)
	if err != nil {
		return nil, err
	}

	payload, err := buildFields(meta, description)
	if err != nil {
		return nil, err
	}

	result, err := creator.CreateIssue(ctx, payload)
	if err != nil {
		return nil, err
	}

	if err := s.markSubmitted(path, result.Key); err != nil {
		return result, err
	}
	if err := s.archive(path, result.Key); err != nil {
		return result, err
	}
	return result, nil
}

// markSubmitted rewrites only the yaml config block, leaving the preview
// and description body byte-for-byte intact.
func (s *Store) markSubmitted(path, key string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: rereading %s: %v", ErrStaging, path, err)
	}

	text := string(content)
	start := strings.Index(text, "```yaml")
	if start == -1 {
		return fmt.Errorf("%w: %s: no yaml config block", ErrStaging, path)
	}
	blockStart := start + len("```yaml")
	end := strings.Index(text[blockStart:], "```")
	if end == -1 {
		return fmt.Errorf("%w: %s: unterminated yaml config block", ErrStaging, path)
	}

	doc, err := parseConfigBlock(text)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStaging, path, err)
	}
	doc.StagingInfo.Status = StatusSubmitted
	doc.StagingInfo.JiraKey = key
	doc.StagingInfo.SubmittedDate = s.now().Format(time.RFC3339)

	block, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: serializing config: %v", ErrStaging, err)
	}

	updated := text[:blockStart] + "\n" + string(block) + text[blockStart+end:]
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		return fmt.Errorf("%w: rewriting %s: %v", ErrStaging, path, err)
	}
	return nil
}

// archive moves a submitted file into archived/ with the tracker key and a
// timestamp baked into the name. Archived files are never mutated again.
func (s *Store) archive(path, key string) error {
	if err := os.MkdirAll(s.archiveDir(), 0o700); err != nil {
		return fmt.Errorf("%w: creating archive dir: %v", ErrStaging, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), ".md")
	name := fmt.Sprintf("%s-%s-%s.md", key, stem, s.now().Format("20060102_1504"))
	if err := os.Rename(path, filepath.Join(s.archiveDir(), name)); err != nil {
		return fmt.Errorf("%w: issue %s created but archiving failed, file remains at %s: %v",
			ErrStaging, key, path, err)
	}
	return nil
}

// Clean deletes archived files whose modification time is strictly older
// than the threshold. Staged files are only touched when includeStaged is
// set.
func (s *Store) Clean(olderThan time.Duration, includeStaged bool) (Counts, error) {
	cutoff := s.now().Add(-olderThan)
	var counts Counts

	n, err := removeOlder(s.archiveDir(), cutoff)
	if err != nil {
		return counts, err
	}
	counts.Archived = n

	if includeStaged {
		n, err := removeOlder(s.dir, cutoff)
		if err != nil {
			return counts, err
		}
		counts.Staged = n
	}
	return counts, nil
}

func removeOlder(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", ErrStaging, dir, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return removed, fmt.Errorf("%w: removing %s: %v", ErrStaging, e.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}
