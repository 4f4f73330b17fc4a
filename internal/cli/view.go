package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoni/jiraflow/internal/format"
	"github.com/yoni/jiraflow/internal/issuekey"
)

func newViewCommand(deps Deps) *cobra.Command {
	var (
		raw        bool
		outFormat  string
		outputPath string
		open       bool
	)

	cmd := &cobra.Command{
		Use:   "view <issue-key-or-url>",
		Short: "Fetch and display a tracker issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := issuekey.Extract(args[0])
			if err != nil {
				return err
			}

			tracker, _, err := deps.Connect()
			if err != nil {
				return err
			}
			issue, err := tracker.GetIssue(cmd.Context(), key)
			if err != nil {
				return err
			}

			if raw {
				outFormat = "json"
			}

			var content string
			ext := "md"
			switch outFormat {
			case "console":
				content = format.Console(issue, 0)
				ext = "txt"
			case "markdown":
				content = format.Markdown(issue)
			case "json":
				content, err = format.JSON(issue)
				if err != nil {
					return err
				}
				ext = "json"
			default:
				return fmt.Errorf("unknown format %q (expected console, markdown, or json)", outFormat)
			}

			if outputPath != "" {
				path, err := format.Save(content, issue.Key, ext, outputPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", issue.Key, path)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), content)
			}

			if open && deps.OpenURL != nil {
				return deps.OpenURL(issue.BrowseURL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw API response (same as --format=json)")
	cmd.Flags().StringVar(&outFormat, "format", "console", "output format: console, markdown, json")
	cmd.Flags().StringVar(&outputPath, "output", "", "write output to a file instead of stdout")
	cmd.Flags().BoolVar(&open, "open", false, "open the issue in the browser")
	return cmd
}
