// Package jira wraps the tracker's REST API behind a small typed client.
// It implements a deep module interface - a handful of high-level methods
// hiding request construction, auth, and status-to-error mapping.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yoni/jiraflow/internal/config"
)

// MaxAttachmentSize is the per-file upload limit enforced locally before
// any network call is made.
const MaxAttachmentSize = 10 * 1024 * 1024

const (
	requestTimeout = 30 * time.Second
	uploadTimeout  = 60 * time.Second
)

// Client performs the tracker operations the CLI needs: fetch, create,
// search, and attach. It holds no state beyond the HTTP clients, which are
// safe for reuse across calls.
type Client struct {
	baseURL    string
	apiBase    string
	authHeader string

	http   *http.Client
	upload *http.Client
}

// NewClient constructs a Client from the resolved configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiBase:    cfg.APIBase(),
		authHeader: cfg.AuthHeader(),
		http:       &http.Client{Timeout: requestTimeout},
		upload:     &http.Client{Timeout: uploadTimeout},
	}
}

// GetIssue fetches a single issue by key. The key is trimmed and
// uppercased before use; an empty key is a precondition failure.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return nil, fmt.Errorf("%w: issue key cannot be empty", ErrValidation)
	}

	status, body, err := c.do(ctx, c.http, http.MethodGet, c.apiBase+"/issue/"+url.PathEscape(key), nil, "")
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		issue := &Issue{}
		if err := json.Unmarshal(body, issue); err != nil {
			return nil, fmt.Errorf("decoding issue %s: %w", key, err)
		}
		if err := json.Unmarshal(body, &issue.Raw); err != nil {
			return nil, fmt.Errorf("decoding issue %s: %w", key, err)
		}
		issue.BrowseURL = c.baseURL + "/browse/" + issue.Key
		return issue, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	default:
		return nil, c.statusError(status, body, key)
	}
}

// CreateIssue submits a wire payload to the issue-creation endpoint.
// The payload must contain a "fields" key. On success the result carries
// the new key and a derived browse URL.
func (c *Client) CreateIssue(ctx context.Context, payload map[string]any) (*CreateResult, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is nil", ErrValidation)
	}
	if _, ok := payload["fields"]; !ok {
		return nil, fmt.Errorf("%w: payload has no fields key", ErrValidation)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	status, body, err := c.do(ctx, c.http, http.MethodPost, c.apiBase+"/issue/", bytes.NewReader(b), "application/json")
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusCreated:
		result := &CreateResult{}
		if err := json.Unmarshal(body, result); err != nil {
			return nil, fmt.Errorf("decoding create response: %w", err)
		}
		if result.Key != "" {
			result.BrowseURL = c.baseURL + "/browse/" + result.Key
		}
		return result, nil
	case http.StatusBadRequest:
		return nil, &StatusError{Status: status, Messages: trackerMessages(body)}
	default:
		return nil, c.statusError(status, body, "")
	}
}

// SearchIssues runs a JQL query, returning up to maxResults issues.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) ([]Issue, error) {
	jql = strings.TrimSpace(jql)
	if jql == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrValidation)
	}
	if maxResults <= 0 {
		maxResults = 50
	}

	q := url.Values{}
	q.Set("jql", jql)
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("fields", "summary,status,priority,issuetype,assignee,reporter,created,updated")

	status, body, err := c.do(ctx, c.http, http.MethodGet, c.apiBase+"/search?"+q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		var out struct {
			Issues []Issue `json:"issues"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decoding search response: %w", err)
		}
		for i := range out.Issues {
			out.Issues[i].BrowseURL = c.baseURL + "/browse/" + out.Issues[i].Key
		}
		return out.Issues, nil
	case http.StatusBadRequest:
		return nil, &StatusError{Status: status, Messages: append(trackerMessages(body), "invalid JQL: "+jql)}
	default:
		return nil, c.statusError(status, body, "")
	}
}

// AttachFiles uploads local files to an issue. Every path is validated
// (exists, regular file, readable, within the size limit) before any
// network call; validation is all-or-nothing.
func (c *Client) AttachFiles(ctx context.Context, key string, paths []string) ([]Attachment, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return nil, fmt.Errorf("%w: issue key cannot be empty", ErrValidation)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to attach", ErrValidation)
	}

	for _, p := range paths {
		if err := validateAttachment(p); err != nil {
			return nil, err
		}
	}

	body, contentType, err := buildMultipart(paths)
	if err != nil {
		return nil, err
	}

	status, respBody, err := c.do(ctx, c.upload, http.MethodPost,
		c.apiBase+"/issue/"+url.PathEscape(key)+"/attachments", body, contentType)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		var out []Attachment
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, fmt.Errorf("decoding attachment response: %w", err)
		}
		return out, nil
	case http.StatusRequestEntityTooLarge:
		return nil, &StatusError{Status: status, Messages: []string{"attachment rejected as too large"}}
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	default:
		return nil, c.statusError(status, respBody, key)
	}
}

// Myself fetches the authenticated user's profile. It doubles as the
// connection test for the whoami command.
func (c *Client) Myself(ctx context.Context) (*Myself, error) {
	status, body, err := c.do(ctx, c.http, http.MethodGet, c.apiBase+"/myself", nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusError(status, body, "")
	}
	me := &Myself{}
	if err := json.Unmarshal(body, me); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return me, nil
}

// ListProjects fetches the projects visible to the authenticated user.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	status, body, err := c.do(ctx, c.http, http.MethodGet, c.apiBase+"/project", nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusError(status, body, "")
	}
	var out []Project
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding project list: %w", err)
	}
	return out, nil
}

// do executes one request, returning the status and the fully read body.
// Transport failures (timeout, connection refused) map to ErrTransport;
// the configured base URL is included for diagnosability.
func (c *Client) do(ctx context.Context, hc *http.Client, method, rawurl string, body io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawurl, body)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if strings.HasSuffix(req.URL.Path, "/attachments") {
		req.Header.Set("X-Atlassian-Token", "no-check")
	}

	resp, err := hc.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return 0, nil, fmt.Errorf("%w: request timed out after %s", ErrTransport, hc.Timeout)
		}
		return 0, nil, fmt.Errorf("%w: cannot reach %s: %v", ErrTransport, c.baseURL, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}
	return resp.StatusCode, b, nil
}

// statusError maps the remaining non-2xx statuses to the error taxonomy.
func (c *Client) statusError(status int, body []byte, key string) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: check your credentials", ErrAuthentication)
	case http.StatusForbidden:
		if key != "" {
			return fmt.Errorf("%w: access denied to %s", ErrPermission, key)
		}
		return ErrPermission
	default:
		return &StatusError{Status: status, Messages: trackerMessages(body)}
	}
}

// trackerMessages pulls the errorMessages array out of an error body.
func trackerMessages(body []byte) []string {
	var parsed struct {
		ErrorMessages []string `json:"errorMessages"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	return parsed.ErrorMessages
}

func validateAttachment(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: cannot attach %s: %v", ErrValidation, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrValidation, path)
	}
	if info.Size() > MaxAttachmentSize {
		return fmt.Errorf("%w: %s is %d bytes, over the %d byte limit", ErrValidation, path, info.Size(), MaxAttachmentSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s is not readable: %v", ErrValidation, path, err)
	}
	return f.Close()
}

// buildMultipart assembles the upload body in memory. Each file handle is
// closed before the function returns, on success and error paths alike.
func buildMultipart(paths []string) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, p := range paths {
		if err := addFilePart(w, p); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing upload body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func addFilePart(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s is not readable: %v", ErrValidation, path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("building upload body for %s: %w", path, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
