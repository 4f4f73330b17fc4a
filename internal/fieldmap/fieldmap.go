// Package fieldmap is the single source of truth for translating human
// labels (priority names, commitment levels, team names, ...) into the
// tracker's internal field and option identifiers.
//
// All tables are static and loaded at startup; lookups are exact,
// case-sensitive string matches. Fuzzy matching is deliberately not
// offered: a typo should fail loudly rather than silently mis-assign data.
package fieldmap

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownMapping indicates a label that is not a recognized member of
// its category's enumeration.
var ErrUnknownMapping = errors.New("unknown mapping")

// Category identifies one enum-to-identifier lookup table.
type Category string

const (
	CategoryPriority         Category = "priority"
	CategoryCommitmentLevel  Category = "commitment_level"
	CategoryArea             Category = "area"
	CategoryCommitmentReason Category = "commitment_reason"
	CategoryProductPriority  Category = "product_priority"
	CategoryTeam             Category = "team"
	CategoryProject          Category = "project"
	CategoryIssueType        Category = "issue_type"
)

// Priority labels map both the bare name and the ranked "N - Name" display
// form to the same option identifier, so either spelling resolves.
var priorities = map[string]string{
	"Blocker":      "10000",
	"1 - Blocker":  "10000",
	"Highest":      "10001",
	"1 - Highest":  "10001",
	"Critical":     "10001",
	"2 - Critical": "10001",
	"High":         "10002",
	"2 - High":     "10002",
	"3 - High":     "10002",
	"Normal":       "10003",
	"4 - Normal":   "10003",
	"Minor":        "10004",
	"5 - Minor":    "10004",
	"Low":          "10004",
	"5 - Low":      "10004",
	"Trivial":      "10005",
	"6 - Trivial":  "10005",
}

var commitmentLevels = map[string]string{
	"Hard Commitment": "11277",
	"Soft Commitment": "11278",
	"KTLO":            "11279",
}

var areas = map[string]string{
	"Features & Innovation": "10312",
	"Enablers & Tech Debt":  "10311",
	"KTLO":                  "10313",
}

var commitmentReasons = map[string]string{
	"Roadmap":             "11490",
	"Customer Commitment": "11491",
	"Security":            "11492",
}

var productPriorities = map[string]string{
	"P0": "11498",
	"P1": "11499",
	"P2": "11500",
	"P3": "11501",
	"P4": "11502",
}

var teams = map[string]string{
	"dev-artifactory-lifecycle": "10145",
	"App Core":                  "12980",
	"app-core":                  "12980",
	"security-team":             "10146",
	"platform-team":             "10147",
	"api-team":                  "10148",
	"devops-team":               "10149",
	"qa-team":                   "10150",
	"performance-team":          "10151",
	"data-team":                 "10152",
	"integration-team":          "10153",
	"support-team":              "10154",
	"research-team":             "10155",
}

var projects = map[string]string{
	"RTDEV": "10129",
	"APP":   "10246",
}

var issueTypes = map[string]string{
	"epic":  "10000",
	"story": "10001",
	"task":  "10003",
	"bug":   "10004",
}

var categories = map[Category]map[string]string{
	CategoryPriority:         priorities,
	CategoryCommitmentLevel:  commitmentLevels,
	CategoryArea:             areas,
	CategoryCommitmentReason: commitmentReasons,
	CategoryProductPriority:  productPriorities,
	CategoryTeam:             teams,
	CategoryProject:          projects,
	CategoryIssueType:        issueTypes,
}

// Custom field identifiers keyed by the human-readable field name used in
// rendered documents and staged files. Core fields (summary, description,
// parent, ...) are absent on purpose: they pass through untranslated.
var fieldIDs = map[string]string{
	"team":              "customfield_10129",
	"product_backlog":   "customfield_10119",
	"product_manager":   "customfield_10044",
	"commitment_level":  "customfield_10450",
	"area":              "customfield_10167",
	"commitment_reason": "customfield_10508",
	"product_priority":  "customfield_10327",
	"ux_designer":       "customfield_10200",
	"technical_writer":  "customfield_10201",
	"architect":         "customfield_10202",
}

// Lookup resolves a human label to its internal identifier within a category.
// Unknown categories and unknown labels both return ErrUnknownMapping; a
// guessed or partial identifier is never returned.
func Lookup(cat Category, label string) (string, error) {
	table, ok := categories[cat]
	if !ok {
		return "", fmt.Errorf("%w: no such category %q", ErrUnknownMapping, cat)
	}
	id, ok := table[label]
	if !ok {
		return "", fmt.Errorf("%w: %q is not a recognized %s", ErrUnknownMapping, label, cat)
	}
	return id, nil
}

// Categories returns the known category names, sorted.
func Categories() []Category {
	out := make([]Category, 0, len(categories))
	for cat := range categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Labels returns the recognized labels of a category, sorted. An unknown
// category returns nil.
func Labels(cat Category) []string {
	table, ok := categories[cat]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(table))
	for label := range table {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// FieldID resolves a human field name to its custom field identifier.
// The second return is false for core fields, which flow through unchanged.
func FieldID(name string) (string, bool) {
	id, ok := fieldIDs[name]
	return id, ok
}

// ProjectDefaults carries the per-project fallback values applied when the
// caller does not specify a team or classification explicitly.
type ProjectDefaults struct {
	Team             string
	TeamID           string
	ProjectID        string
	Area             string
	CommitmentReason string
	QuarterPrefix    string // prepended to epic summaries, e.g. "RLM 25Q4 - "
}

var projectDefaults = map[string]ProjectDefaults{
	"RTDEV": {
		Team:             "dev-artifactory-lifecycle",
		TeamID:           "10145",
		ProjectID:        "10129",
		Area:             "Features & Innovation",
		CommitmentReason: "Roadmap",
		QuarterPrefix:    "RLM 25Q4 - ",
	},
	"APP": {
		Team:             "App Core",
		TeamID:           "12980",
		ProjectID:        "10246",
		Area:             "Features & Innovation",
		CommitmentReason: "Roadmap",
		QuarterPrefix:    "App 25Q4 - ",
	},
}

// DefaultsFor returns the defaults for a supported project key.
func DefaultsFor(project string) (ProjectDefaults, error) {
	d, ok := projectDefaults[project]
	if !ok {
		return ProjectDefaults{}, fmt.Errorf("%w: unsupported project %q (supported: %v)",
			ErrUnknownMapping, project, Labels(CategoryProject))
	}
	return d, nil
}
