package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yoni/jiraflow/internal/fieldmap"
	"github.com/yoni/jiraflow/internal/templates"
	"github.com/yoni/jiraflow/internal/translate"
)

// issueFlags are the field values shared by create and stage.
type issueFlags struct {
	description      string
	priority         string
	commitmentLevel  string
	area             string
	commitmentReason string
	team             string
	productBacklog   string
	productPriority  string
	productManager   string
	uxDesigner       string
	technicalWriter  string
	architect        string
	parent           string
}

func (f *issueFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.description, "description", "", "issue description")
	cmd.Flags().StringVar(&f.priority, "priority", "", `priority label, e.g. "4 - Normal"`)
	cmd.Flags().StringVar(&f.commitmentLevel, "commitment-level", "", `commitment level, e.g. "Hard Commitment"`)
	cmd.Flags().StringVar(&f.area, "area", "", `area, e.g. "Features & Innovation"`)
	cmd.Flags().StringVar(&f.commitmentReason, "commitment-reason", "", "commitment reason")
	cmd.Flags().StringVar(&f.team, "team", "", "owning team (project default when unset)")
	cmd.Flags().StringVar(&f.productBacklog, "product-backlog", "", "product backlog name")
	cmd.Flags().StringVar(&f.productPriority, "product-priority", "", "product priority (P0..P4)")
	cmd.Flags().StringVar(&f.productManager, "product-manager", "", "product manager account id")
	cmd.Flags().StringVar(&f.uxDesigner, "ux-designer", "", "UX designer account id")
	cmd.Flags().StringVar(&f.technicalWriter, "technical-writer", "", "technical writer account id")
	cmd.Flags().StringVar(&f.architect, "architect", "", "architect account id")
	cmd.Flags().StringVar(&f.parent, "parent", "", "parent issue key")
}

// buildContext assembles the template context from flags plus project
// defaults.
func (f *issueFlags) buildContext(project, title, userAccountID string) (templates.Context, error) {
	project = strings.ToUpper(strings.TrimSpace(project))
	defaults, err := fieldmap.DefaultsFor(project)
	if err != nil {
		return templates.Context{}, err
	}

	team := f.team
	teamID := ""
	if team == "" {
		team = defaults.Team
		teamID = defaults.TeamID
	} else if id, lookupErr := fieldmap.Lookup(fieldmap.CategoryTeam, team); lookupErr == nil {
		teamID = id
	}

	return templates.Context{
		Issue: templates.IssueContext{
			Title:            title,
			Description:      f.description,
			Priority:         f.priority,
			CommitmentLevel:  f.commitmentLevel,
			Area:             f.area,
			CommitmentReason: f.commitmentReason,
			ProductBacklog:   f.productBacklog,
			ProductPriority:  f.productPriority,
			ProductManager:   f.productManager,
			UXDesigner:       f.uxDesigner,
			TechnicalWriter:  f.technicalWriter,
			Architect:        f.architect,
			Parent:           f.parent,
		},
		Project: templates.ProjectContext{Key: project, ID: defaults.ProjectID},
		Team:    templates.TeamContext{Name: team, ID: teamID},
		User:    templates.UserContext{AccountID: userAccountID},
	}, nil
}

func newCreateCommand(deps Deps) *cobra.Command {
	var (
		fields       issueFlags
		templateName string
		issueType    string
		templateCtx  string
		attachments  []string
		dryRun       bool
		open         bool
	)

	cmd := &cobra.Command{
		Use:   "create <project> <name>",
		Short: "Render a template and create a tracker issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, title := args[0], args[1]

			// Dry runs never need credentials; only connect for real.
			userAccountID := ""
			var tracker Tracker
			if !dryRun {
				t, cfg, err := deps.Connect()
				if err != nil {
					return err
				}
				tracker = t
				userAccountID = cfg.UserAccountID
			}

			ctx, err := fields.buildContext(project, title, userAccountID)
			if err != nil {
				return err
			}

			rendered, err := deps.Templates.Render(templates.Selection{
				IssueType: issueType,
				Project:   ctx.Project.Key,
				Name:      templateName,
				Context:   templateCtx,
			}, ctx)
			if err != nil {
				return err
			}

			payload, err := translate.Translate(rendered)
			if err != nil {
				return err
			}

			if dryRun {
				b, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			result, err := tracker.CreateIssue(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n%s\n", result.Key, result.BrowseURL)

			if len(attachments) > 0 {
				uploaded, err := tracker.AttachFiles(cmd.Context(), result.Key, attachments)
				if err != nil {
					return fmt.Errorf("issue %s created but attaching failed: %w", result.Key, err)
				}
				for _, a := range uploaded {
					fmt.Fprintf(cmd.OutOrStdout(), "Attached %s (%d bytes)\n", a.Filename, a.Size)
				}
			}

			if open && deps.OpenURL != nil {
				return deps.OpenURL(result.BrowseURL)
			}
			return nil
		},
	}

	fields.register(cmd)
	cmd.Flags().StringVar(&templateName, "template", "", "explicit template name")
	cmd.Flags().StringVar(&issueType, "issue-type", "epic", "issue type (epic, story, task, bug)")
	cmd.Flags().StringVar(&templateCtx, "context", "", "template sub-context, e.g. feature")
	cmd.Flags().StringSliceVar(&attachments, "attach", nil, "files to attach after creation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the wire payload instead of creating")
	cmd.Flags().BoolVar(&open, "open", false, "open the created issue in the browser")
	return cmd
}
