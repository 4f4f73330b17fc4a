package templates

// Context is the full set of values a template may reference. Optional
// values are zero-valued strings; the orNone template func turns them into
// JSON null so the translator drops them.
type Context struct {
	Issue   IssueContext
	Project ProjectContext
	Team    TeamContext
	User    UserContext
}

// IssueContext carries the per-issue values supplied on the command line.
type IssueContext struct {
	Title            string
	Description      string
	Priority         string
	CommitmentLevel  string
	Area             string
	CommitmentReason string
	ProductBacklog   string
	ProductPriority  string
	ProductManager   string
	UXDesigner       string
	TechnicalWriter  string
	Architect        string
	Parent           string
}

// ProjectContext identifies the target project.
type ProjectContext struct {
	Key string
	ID  string
}

// TeamContext identifies the owning team.
type TeamContext struct {
	Name string
	ID   string
}

// UserContext identifies the invoking user.
type UserContext struct {
	AccountID string
}

// validationContext is a fully populated context used when checking that a
// template renders cleanly without real input.
func validationContext() Context {
	return Context{
		Issue: IssueContext{
			Title:            "Sample Issue Title",
			Description:      "Sample description",
			Priority:         "4 - Normal",
			CommitmentLevel:  "Hard Commitment",
			Area:             "Features & Innovation",
			CommitmentReason: "Roadmap",
			ProductBacklog:   "Q4-25-Backlog",
			ProductPriority:  "P1",
			Parent:           "RTDEV-12345",
		},
		Project: ProjectContext{Key: "RTDEV", ID: "10129"},
		Team:    TeamContext{Name: "Sample Team", ID: "10145"},
		User:    UserContext{AccountID: "sample-account-id"},
	}
}
