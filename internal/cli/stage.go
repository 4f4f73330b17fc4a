package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoni/jiraflow/internal/staging"
)

func newStageCommand(deps Deps) *cobra.Command {
	var fields issueFlags

	cmd := &cobra.Command{
		Use:   "stage <project> <name>",
		Short: "Stage an epic as a local markdown file for review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := deps.Staging.Stage(staging.Metadata{
				Project:                 args[0],
				EpicName:                args[1],
				Team:                    fields.team,
				ProductBacklog:          fields.productBacklog,
				ProductManager:          fields.productManager,
				Priority:                fields.priority,
				CommitmentLevel:         fields.commitmentLevel,
				Parent:                  fields.parent,
				ProductPriority:         fields.productPriority,
				AssignedArchitect:       fields.architect,
				AssignedUX:              fields.uxDesigner,
				AssignedTechnicalWriter: fields.technicalWriter,
			}, fields.description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Staged %s\nReview and edit the file, then run: jiraflow submit %q\n", path, path)
			return nil
		},
	}

	fields.register(cmd)
	return cmd
}

func newSubmitCommand(deps Deps) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "submit <staged-file>",
		Short: "Create a tracker issue from a staged file and archive it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				payload, err := deps.Staging.Payload(args[0])
				if err != nil {
					return err
				}
				b, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			tracker, cfg, err := deps.Connect()
			if err != nil {
				return err
			}
			result, err := deps.Staging.Submit(cmd.Context(), args[0], tracker)
			if result != nil && result.Key != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n%s\n", result.Key, cfg.BrowseURL(result.Key))
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the wire payload instead of creating")
	return cmd
}

func newListCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, warnings, err := deps.Staging.List()
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No staged files.")
				return nil
			}
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-8s %s\n", s.Status, s.Project, s.EpicName)
				fmt.Fprintf(cmd.OutOrStdout(), "           %s\n", s.Path)
			}
			return nil
		},
	}
}

func newCleanCommand(deps Deps) *cobra.Command {
	var (
		days          int
		includeStaged bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete old archived (and optionally staged) files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := deps.Staging.Clean(time.Duration(days)*24*time.Hour, includeStaged)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d archived and %d staged files older than %d days\n",
				counts.Archived, counts.Staged, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "age threshold in days")
	cmd.Flags().BoolVar(&includeStaged, "include-staged", false, "also delete old staged files")
	return cmd
}
