// Package translate converts a validated rendered document (human-readable
// field names and values) into the wire payload the tracker's REST API
// expects: core field names or customfield identifiers, with values shaped
// as {"id": ...}, {"accountId": ...}, {"key": ...} or arrays thereof.
package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/yoni/jiraflow/internal/fieldmap"
)

// ErrTranslation wraps any failure while converting a rendered document,
// e.g. malformed JSON input or a missing fields section. A partial payload
// is never returned alongside it.
var ErrTranslation = errors.New("translation failed")

// Account-reference fields resolve to {"accountId": value}.
var accountFields = map[string]bool{
	"product_manager":  true,
	"ux_designer":      true,
	"technical_writer": true,
	"architect":        true,
}

// Select fields resolve through the mapping tables to {"id": identifier}.
var selectCategories = map[string]fieldmap.Category{
	"commitment_level":  fieldmap.CategoryCommitmentLevel,
	"area":              fieldmap.CategoryArea,
	"commitment_reason": fieldmap.CategoryCommitmentReason,
	"product_priority":  fieldmap.CategoryProductPriority,
}

// Translate parses a rendered JSON document and returns the wire payload
// {"fields": {...}}. The document must carry a "fields" object.
func Translate(rendered []byte) (map[string]any, error) {
	var doc struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(rendered, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrTranslation, err)
	}
	if doc.Fields == nil {
		return nil, fmt.Errorf("%w: document has no fields section", ErrTranslation)
	}
	return TranslateFields(doc.Fields)
}

// TranslateFields converts a human-readable fields map into the wire
// payload. Pairs whose value is nil, "" or the literal string "None" are
// dropped entirely; field names without a mapping entry pass through
// unchanged so core fields like summary and description flow untouched.
func TranslateFields(fields map[string]any) (map[string]any, error) {
	wire := make(map[string]any, len(fields))

	for name, value := range fields {
		if dropped(value) {
			continue
		}

		wireName := name
		if id, ok := fieldmap.FieldID(name); ok {
			wireName = id
		} else if name == "issue_type" {
			wireName = "issuetype"
		}

		wireValue, err := translateValue(name, value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrTranslation, name, err)
		}
		if dropped(wireValue) {
			continue
		}
		wire[wireName] = wireValue
	}

	return map[string]any{"fields": wire}, nil
}

func dropped(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && (s == "" || s == "None") {
		return true
	}
	return false
}

func translateValue(name string, value any) (any, error) {
	switch {
	case name == "project":
		return mappedIDOrRaw(fieldmap.CategoryProject, value), nil

	case name == "issue_type":
		return mappedIDOrRaw(fieldmap.CategoryIssueType, value), nil

	case name == "priority":
		return translatePriority(value), nil

	case name == "team":
		if s, ok := value.(string); ok {
			if id, err := fieldmap.Lookup(fieldmap.CategoryTeam, s); err == nil {
				return []any{map[string]any{"id": id}}, nil
			}
		}
		return value, nil

	case name == "product_backlog":
		if s, ok := value.(string); ok {
			return []any{s}, nil
		}
		return value, nil

	case accountFields[name]:
		return map[string]any{"accountId": value}, nil

	case name == "area":
		// Templates may HTML-encode "&" as "&amp;"; decode before lookup.
		if s, ok := value.(string); ok {
			if id, err := fieldmap.Lookup(fieldmap.CategoryArea, html.UnescapeString(s)); err == nil {
				return map[string]any{"id": id}, nil
			}
		}
		return value, nil

	case name == "parent":
		return map[string]any{"key": value}, nil

	default:
		if cat, ok := selectCategories[name]; ok {
			if s, ok := value.(string); ok {
				if id, err := fieldmap.Lookup(cat, s); err == nil {
					return map[string]any{"id": id}, nil
				}
			}
			return value, nil
		}
		// Unrecognized field: pass through unchanged.
		return value, nil
	}
}

// translatePriority tries the label as given, then with a leading
// "<rank> - " prefix stripped. When neither resolves, the raw value is
// passed through as {"id": value} rather than failing the whole payload.
func translatePriority(value any) any {
	s := fmt.Sprintf("%v", value)
	if id, err := fieldmap.Lookup(fieldmap.CategoryPriority, s); err == nil {
		return map[string]any{"id": id}
	}
	if _, rest, found := strings.Cut(s, " - "); found {
		if id, err := fieldmap.Lookup(fieldmap.CategoryPriority, rest); err == nil {
			return map[string]any{"id": id}
		}
	}
	return map[string]any{"id": s}
}

func mappedIDOrRaw(cat fieldmap.Category, value any) any {
	if s, ok := value.(string); ok {
		if id, err := fieldmap.Lookup(cat, s); err == nil {
			return map[string]any{"id": id}
		}
	}
	return value
}
