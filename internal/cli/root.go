// Package cli defines the jiraflow command tree. Commands receive their
// dependencies explicitly through Deps; nothing here reads globals, so
// tests can swap in fakes.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoni/jiraflow/internal/config"
	"github.com/yoni/jiraflow/internal/jira"
	"github.com/yoni/jiraflow/internal/staging"
	"github.com/yoni/jiraflow/internal/templates"
)

// Tracker is the slice of the issue client the commands use.
type Tracker interface {
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
	CreateIssue(ctx context.Context, payload map[string]any) (*jira.CreateResult, error)
	SearchIssues(ctx context.Context, jql string, maxResults int) ([]jira.Issue, error)
	AttachFiles(ctx context.Context, key string, paths []string) ([]jira.Attachment, error)
	Myself(ctx context.Context) (*jira.Myself, error)
	ListProjects(ctx context.Context) ([]jira.Project, error)
}

// Deps carries everything the commands need. Connect is called only by
// commands that talk to the tracker, so offline commands work without
// credentials configured.
type Deps struct {
	Templates *templates.Manager
	Staging   *staging.Store
	Connect   func() (Tracker, *config.Config, error)
	OpenURL   func(url string) error
}

// DefaultConnect loads configuration from the environment and builds a
// real client. Offline mode refuses the connection outright.
func DefaultConnect() (Tracker, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Offline {
		return nil, nil, fmt.Errorf("offline mode is enabled (%s); network commands are disabled", config.EnvOfflineMode)
	}
	return jira.NewClient(cfg), cfg, nil
}

// NewRootCommand builds the jiraflow command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jiraflow",
		Short: "Create, stage, and view tracker issues from the terminal",
		Long: `jiraflow is a command-line toolkit for a Jira-style issue tracker.

It renders issue templates into API payloads, translates human-readable
field values into the tracker's internal identifiers, and optionally
stages issues as local markdown files for review before submission.

Configuration (environment or .env file):
  JIRA_BASE_URL         tracker base URL
  JIRA_AUTH_TOKEN       base64 user:token for Basic auth
  JIRA_USER_ACCOUNT_ID  your account id (optional)
  JIRA_OFFLINE_MODE     set to disable all network commands`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newCreateCommand(deps),
		newViewCommand(deps),
		newStageCommand(deps),
		newSubmitCommand(deps),
		newListCommand(deps),
		newCleanCommand(deps),
		newTemplatesCommand(deps),
		newRefreshCommand(deps),
		newSearchCommand(deps),
		newProjectsCommand(deps),
		newWhoamiCommand(deps),
	)
	return rootCmd
}
