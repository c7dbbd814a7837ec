package main

import (
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillz/pkg/presenter"
	"github.com/jingkaihe/skillz/pkg/selftest"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run live checks against Reddit, the web and a scratch directory",
	Long: `Run each live check in turn, printing "." for a pass, "F" for a failed
expectation and "!" for an error, followed by a numbered summary.

Exits with status 1 when any check does not pass.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		only, _ := cmd.Flags().GetStringSlice("only")

		checks, err := selftest.Filter(selftest.DefaultChecks(mustState(ctx)), only)
		if err != nil {
			presenter.Error(err, "invalid --only")
			exit(ctx, 1)
		}

		results := selftest.NewRunner(presenter.Default()).Run(ctx, checks)
		if !selftest.AllPassed(results) {
			exit(ctx, 1)
		}
	},
}

func init() {
	selftestCmd.Flags().StringSlice("only", nil, "Check groups to run (reddit, web, dir)")
}
