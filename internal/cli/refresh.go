package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoni/jiraflow/internal/format"
	"github.com/yoni/jiraflow/internal/refresh"
)

func newRefreshCommand(deps Deps) *cobra.Command {
	var (
		all bool
		dir string
	)

	cmd := &cobra.Command{
		Use:   "refresh [file...]",
		Short: "Sync saved issue markdown files with the tracker",
		Long: `refresh re-fetches the issues behind saved markdown files and brings
the files up to date: content is rewritten, files are renamed when the
issue summary changed, and files whose issue was deleted are removed.

Files are matched by the issue key their filename starts with, e.g.
RTDEV-42-Improve caching.md. Pass file paths, or --all to refresh every
tracked file in the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass file paths or --all, not both")
			}

			tracker, _, err := deps.Connect()
			if err != nil {
				return err
			}
			r := refresh.NewRefresher(dir)

			var results []refresh.Result
			if all {
				results, err = r.All(cmd.Context(), tracker)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tracked files to refresh.")
					return nil
				}
			} else {
				for _, path := range args {
					results = append(results, r.File(cmd.Context(), tracker, path))
				}
			}

			counts := map[refresh.Status]int{}
			failed := 0
			for _, res := range results {
				counts[res.Status]++
				switch res.Status {
				case refresh.StatusUpdated:
					fmt.Fprintf(cmd.OutOrStdout(), "updated  %s\n", res.Path)
				case refresh.StatusRenamed:
					fmt.Fprintf(cmd.OutOrStdout(), "renamed  %s -> %s\n", res.OldPath, res.Path)
				case refresh.StatusDeleted:
					fmt.Fprintf(cmd.OutOrStdout(), "deleted  %s (issue no longer exists)\n", res.OldPath)
				case refresh.StatusError:
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "error    %s: %v\n", res.OldPath, res.Err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d updated, %d renamed, %d deleted, %d failed\n",
				counts[refresh.StatusUpdated], counts[refresh.StatusRenamed],
				counts[refresh.StatusDeleted], counts[refresh.StatusError])
			if failed > 0 {
				return fmt.Errorf("%d file(s) could not be refreshed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "refresh every tracked file in the output directory")
	cmd.Flags().StringVar(&dir, "dir", format.DefaultOutputDir, "directory scanned by --all")
	return cmd
}
