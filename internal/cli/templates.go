package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTemplatesCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect issue templates",
	}

	var issueType string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, warnings := deps.Templates.List(issueType)
			for _, w := range warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No templates found.")
				return nil
			}
			for _, md := range list {
				source := "custom"
				if md.Builtin {
					source = "built-in"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-6s %-12s %-9s %s\n",
					md.Project, md.IssueType, md.Name, source, md.Description)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&issueType, "issue-type", "", "filter by issue type")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Check that a template file renders a valid document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Templates.Validate(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, validateCmd)
	return cmd
}
