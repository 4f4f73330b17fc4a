package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCommand(deps Deps) *cobra.Command {
	var maxResults int

	cmd := &cobra.Command{
		Use:   "search <jql>",
		Short: "Search issues with a JQL query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, _, err := deps.Connect()
			if err != nil {
				return err
			}
			issues, err := tracker.SearchIssues(cmd.Context(), args[0], maxResults)
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No issues found.")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-14s %s\n",
					issue.Key, issue.Fields.Status.Name, issue.Fields.Summary)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxResults, "max", 50, "maximum number of results")
	return cmd
}

func newProjectsCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List the projects visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, _, err := deps.Connect()
			if err != nil {
				return err
			}
			projects, err := tracker.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range projects {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", p.Key, p.Name)
			}
			return nil
		},
	}
}

func newWhoamiCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user and verify connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, cfg, err := deps.Connect()
			if err != nil {
				return err
			}
			me, err := tracker.Myself(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n%s\n", me.DisplayName, me.AccountID, cfg.BaseURL)
			return nil
		},
	}
}
