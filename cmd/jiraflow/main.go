package main

import (
	"fmt"
	"os"

	"github.com/pkg/browser"

	"github.com/yoni/jiraflow/internal/cli"
	"github.com/yoni/jiraflow/internal/staging"
	"github.com/yoni/jiraflow/internal/templates"
)

// Directory overrides. Both have working-directory-relative defaults so
// each checkout keeps its own templates and staged issues.
const (
	envTemplateDir = "JIRAFLOW_TEMPLATE_DIR"
	envStagingDir  = "JIRAFLOW_STAGING_DIR"
)

func main() {
	templateDir := os.Getenv(envTemplateDir)
	if templateDir == "" {
		templateDir = "templates"
	}
	stagingDir := os.Getenv(envStagingDir)
	if stagingDir == "" {
		stagingDir = ".jira-staging"
	}

	deps := cli.Deps{
		Templates: templates.NewManager(templateDir),
		Staging:   staging.NewStore(stagingDir),
		Connect:   cli.DefaultConnect,
		OpenURL:   browser.OpenURL,
	}

	if err := cli.NewRootCommand(deps).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
