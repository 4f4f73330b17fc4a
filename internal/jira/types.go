package jira

// Named is the {"name": ...} shape the tracker uses for status, priority
// and issue type values.
type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// User is the tracker's user shape as it appears on assignee/reporter.
type User struct {
	AccountID   string `json:"accountId,omitempty"`
	DisplayName string `json:"displayName"`
	Email       string `json:"emailAddress,omitempty"`
}

// Fields carries the commonly displayed issue fields. Custom fields are
// not modeled here; they live in Issue.Raw for formatters that want them.
type Fields struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Status      Named  `json:"status"`
	Priority    Named  `json:"priority"`
	IssueType   Named  `json:"issuetype"`
	Assignee    *User  `json:"assignee"`
	Reporter    *User  `json:"reporter"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
}

// Issue is a fetched issue: typed convenience fields plus the full decoded
// response body for raw output and custom-field extraction.
type Issue struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Self      string `json:"self"`
	Fields    Fields `json:"fields"`
	BrowseURL string `json:"-"`

	Raw map[string]any `json:"-"`
}

// CreateResult is the tracker's response to a successful issue creation,
// augmented with a derived browse URL.
type CreateResult struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Self      string `json:"self"`
	BrowseURL string `json:"-"`
}

// Attachment describes one uploaded file.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"` // download URL
}

// Myself is the authenticated user's profile from GET /myself.
type Myself struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"emailAddress"`
}

// Project is one entry from GET /project.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}
