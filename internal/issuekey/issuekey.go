// Package issuekey extracts and validates Jira issue keys from user input,
// which may be a bare key, a full browse URL, or any string containing one.
package issuekey

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoKey indicates no valid issue key could be extracted from the input.
var ErrNoKey = errors.New("no issue key found")

var (
	bareKeyRe = regexp.MustCompile(`^[A-Z]+-\d+$`)

	// Ordered most specific to least specific.
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/browse/([A-Z]+-\d+)`),
		regexp.MustCompile(`selectedIssue=([A-Z]+-\d+)`),
		regexp.MustCompile(`issuekey=([A-Z]+-\d+)`),
		regexp.MustCompile(`/([A-Z]+-\d+)(?:/|$)`),
	}

	anyKeyRe = regexp.MustCompile(`([A-Z]+-\d+)`)
)

// Extract returns the issue key found in input, which may be a direct key
// ("RTDEV-55950"), a browse URL, or any text containing a key pattern.
func Extract(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty input", ErrNoKey)
	}

	if bareKeyRe.MatchString(input) {
		return input, nil
	}

	for _, re := range urlPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return m[1], nil
		}
	}

	if m := anyKeyRe.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}

	return "", fmt.Errorf("%w in %q (expected e.g. RTDEV-12345 or https://company.atlassian.net/browse/RTDEV-12345)",
		ErrNoKey, input)
}

// Valid reports whether s is a well-formed issue key (PROJECT-NUMBER).
func Valid(s string) bool {
	return bareKeyRe.MatchString(strings.TrimSpace(s))
}

// ProjectKey returns the project portion of an issue key.
func ProjectKey(issueKey string) (string, error) {
	if !Valid(issueKey) {
		return "", fmt.Errorf("%w: invalid issue key %q", ErrNoKey, issueKey)
	}
	return strings.SplitN(issueKey, "-", 2)[0], nil
}

// IssueNumber returns the numeric portion of an issue key.
func IssueNumber(issueKey string) (int, error) {
	if !Valid(issueKey) {
		return 0, fmt.Errorf("%w: invalid issue key %q", ErrNoKey, issueKey)
	}
	n, err := strconv.Atoi(strings.SplitN(issueKey, "-", 2)[1])
	if err != nil {
		return 0, fmt.Errorf("%w: invalid issue key %q", ErrNoKey, issueKey)
	}
	return n, nil
}
