package jira

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested issue does not exist (HTTP 404).
	ErrNotFound = errors.New("issue not found")
	// ErrAuthentication indicates the credentials were rejected (HTTP 401).
	ErrAuthentication = errors.New("authentication failed")
	// ErrPermission indicates the caller lacks access (HTTP 403).
	ErrPermission = errors.New("permission denied")
	// ErrTransport indicates a timeout or connection failure before a
	// response was received.
	ErrTransport = errors.New("transport error")
	// ErrValidation indicates a request precondition failure detected
	// before any network call.
	ErrValidation = errors.New("invalid request")
)

// StatusError is the catch-all for non-2xx responses that do not map to a
// more specific sentinel. It carries the HTTP status and any error messages
// the tracker returned in its response body.
type StatusError struct {
	Status   int
	Messages []string
}

func (e *StatusError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("tracker returned status %d", e.Status)
	}
	return fmt.Sprintf("tracker returned status %d: %s", e.Status, strings.Join(e.Messages, ", "))
}
