// Package templates selects and renders issue templates. A template is a
// text/template file producing a JSON document with human-readable field
// values; the header comment declares which project and issue type it
// serves. Built-in templates are embedded; a user directory, when set,
// takes precedence over them.
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

//go:embed builtin
var builtinFS embed.FS

// Ext is the template file extension.
const Ext = ".tmpl"

// headerScanLimit bounds how far into a file the header comment is looked for.
const headerScanLimit = 15

var (
	// ErrTemplateNotFound indicates no candidate resolved for the
	// requested selection.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrValidation indicates a rendered document violated the contract
	// the translator depends on.
	ErrValidation = errors.New("invalid rendered document")
	// ErrHeader indicates a template file has a missing or incomplete
	// header comment.
	ErrHeader = errors.New("invalid template header")
)

// Metadata describes one available template.
type Metadata struct {
	Name        string
	Project     string
	IssueType   string
	Team        string
	Description string
	Path        string
	Builtin     bool
}

// Selection is the criteria used to pick a template. IssueType is always
// required; the rest narrow the search.
type Selection struct {
	IssueType string
	Project   string
	Name      string
	Context   string
}

// candidates returns relative template paths in priority order: explicit
// name first, then project-specific, then context-specific, then the issue
// type's base and default templates.
func (s Selection) candidates() []string {
	var out []string
	add := func(p string) { out = append(out, p+Ext) }

	if s.Name != "" {
		add(s.IssueType + "/" + s.Name)
		add(s.Name)
	}
	if s.Project != "" {
		if s.Context != "" {
			add(s.Project + "/" + s.IssueType + "/" + s.Context)
		}
		add(s.Project + "/" + s.IssueType + "/base")
		if s.Context != "" {
			add(s.IssueType + "/" + s.Project + "_" + s.Context)
		}
		add(s.IssueType + "/" + s.Project)
	}
	if s.Context != "" {
		add(s.IssueType + "/" + s.Context)
	}
	add(s.IssueType + "/base")
	add(s.IssueType + "/default")
	return out
}

// Manager loads templates from an optional user directory, falling back to
// the embedded built-ins.
type Manager struct {
	dir string
}

// NewManager returns a Manager reading user templates from dir. An empty
// dir means built-ins only.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

var funcs = template.FuncMap{
	// default substitutes def when val is empty.
	"default": func(def, val string) string {
		if val == "" {
			return def
		}
		return val
	},
	// orNone emits a JSON string, or null when the value is empty. The
	// translator drops null-valued fields from the wire payload.
	"orNone": func(val string) (string, error) {
		if val == "" {
			return "null", nil
		}
		b, err := json.Marshal(val)
		return string(b), err
	},
	// json emits any value as a JSON literal.
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Render selects a template, executes it with ctx, and validates the
// result. The returned document is the human-readable form consumed by the
// value translator.
func (m *Manager) Render(sel Selection, ctx Context) ([]byte, error) {
	if sel.IssueType == "" {
		return nil, fmt.Errorf("%w: issue type is required", ErrTemplateNotFound)
	}

	name, content, err := m.resolve(sel)
	if err != nil {
		return nil, err
	}
	return m.renderContent(name, content, ctx)
}

func (m *Manager) renderContent(name string, content []byte, ctx Context) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("rendering template %s: %w", name, err)
	}

	rendered := buf.Bytes()
	if err := validateRendered(rendered); err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return rendered, nil
}

// resolve walks the candidate list and returns the first template that
// exists, user directory before built-ins.
func (m *Manager) resolve(sel Selection) (string, []byte, error) {
	candidates := sel.candidates()
	for _, c := range candidates {
		if m.dir != "" {
			if b, err := os.ReadFile(filepath.Join(m.dir, filepath.FromSlash(c))); err == nil {
				return c, b, nil
			}
		}
		if b, err := builtinFS.ReadFile(path.Join("builtin", c)); err == nil {
			return c, b, nil
		}
	}

	available := make([]string, 0)
	list, _ := m.List(sel.IssueType)
	for _, md := range list {
		available = append(available, md.Path)
	}
	if len(available) == 0 {
		return "", nil, fmt.Errorf("%w: no template for issue type %q (tried %s)",
			ErrTemplateNotFound, sel.IssueType, strings.Join(candidates, ", "))
	}
	return "", nil, fmt.Errorf("%w: no template for issue type %q (tried %s); available: %s",
		ErrTemplateNotFound, sel.IssueType, strings.Join(candidates, ", "), strings.Join(available, ", "))
}

// List returns metadata for every readable template, optionally filtered
// by issue type. Files with a bad header are skipped; each skip produces a
// warning string.
func (m *Manager) List(issueType string) ([]Metadata, []string) {
	var out []Metadata
	var warnings []string

	collect := func(name string, content []byte, builtin bool) {
		md, err := parseMetadata(name, content)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", name, err))
			return
		}
		if issueType != "" && md.IssueType != issueType {
			return
		}
		md.Builtin = builtin
		out = append(out, md)
	}

	if m.dir != "" {
		filepath.WalkDir(m.dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(p, Ext) {
				return nil
			}
			rel, relErr := filepath.Rel(m.dir, p)
			if relErr != nil {
				return nil
			}
			b, readErr := os.ReadFile(p)
			if readErr != nil {
				warnings = append(warnings, fmt.Sprintf("skipping %s: %v", rel, readErr))
				return nil
			}
			collect(filepath.ToSlash(rel), b, false)
			return nil
		})
	}

	fs.WalkDir(builtinFS, "builtin", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, Ext) {
			return nil
		}
		b, readErr := builtinFS.ReadFile(p)
		if readErr != nil {
			return nil
		}
		collect(strings.TrimPrefix(p, "builtin/"), b, true)
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Project != b.Project {
			return a.Project < b.Project
		}
		if a.IssueType != b.IssueType {
			return a.IssueType < b.IssueType
		}
		return a.Name < b.Name
	})
	return out, warnings
}

// Validate reads a template file, checks its header, and renders it with a
// fully populated context to prove it produces a valid document.
func (m *Manager) Validate(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}
	name := filepath.ToSlash(filepath.Base(filePath))
	if _, err := parseMetadata(name, content); err != nil {
		return err
	}
	_, err = m.renderContent(name, content, validationContext())
	return err
}

// parseMetadata extracts the header comment. The header is a {{/* ... */}}
// block of "key: value" lines within the first lines of the file; project
// and issue_type are mandatory, and a name that disagrees with the file
// stem loses to the stem.
func parseMetadata(name string, content []byte) (Metadata, error) {
	header := map[string]string{}
	inHeader := false

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if i >= headerScanLimit {
			break
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "{{/*") {
			inHeader = true
			continue
		}
		if strings.HasSuffix(line, "*/}}") {
			break
		}
		if inHeader {
			if key, value, found := strings.Cut(line, ":"); found {
				header[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}

	if header["project"] == "" {
		return Metadata{}, fmt.Errorf("%w: %s has no project key", ErrHeader, name)
	}
	if header["issue_type"] == "" {
		return Metadata{}, fmt.Errorf("%w: %s has no issue_type key", ErrHeader, name)
	}

	stem := strings.TrimSuffix(path.Base(name), Ext)
	md := Metadata{
		Name:        stem,
		Project:     header["project"],
		IssueType:   header["issue_type"],
		Team:        header["team"],
		Description: header["description"],
		Path:        name,
	}
	return md, nil
}

// validateRendered enforces the translator's input contract: valid JSON,
// a fields object, and project/summary/issue_type present as plain strings.
func validateRendered(rendered []byte) error {
	if len(bytes.TrimSpace(rendered)) == 0 {
		return fmt.Errorf("%w: rendered output is empty", ErrValidation)
	}

	var doc map[string]any
	if err := json.Unmarshal(rendered, &doc); err != nil {
		return fmt.Errorf("%w: output is not valid JSON: %v", ErrValidation, err)
	}

	fields, ok := doc["fields"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: output has no fields object", ErrValidation)
	}

	var missing, nonString []string
	for _, required := range []string{"project", "summary", "issue_type"} {
		v, present := fields[required]
		if !present {
			missing = append(missing, required)
			continue
		}
		if _, isString := v.(string); !isString {
			nonString = append(nonString, required)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if len(nonString) > 0 {
		return fmt.Errorf("%w: fields must be plain strings: %s", ErrValidation, strings.Join(nonString, ", "))
	}
	return nil
}
