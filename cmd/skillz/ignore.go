package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillz/pkg/presenter"
	"github.com/jingkaihe/skillz/pkg/skills"
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Manage the persisted ignore and except patterns",
	Long: `Patterns are globs matched against bare file and directory names.

An ignore match always wins. A file is ingested only when it matches an except
pattern. A pattern lives in at most one of the two lists.`,
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print both pattern lists",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		runSkill(cmd, "ignore_list_patterns", skills.IgnoreListPatternsInput{})
	},
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Add an ignore pattern, or an except pattern with --except",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		except, _ := cmd.Flags().GetBool("except")
		list := "ignore"
		if except {
			list = "except"
		}
		runSkill(cmd, "ignore_add_pattern", skills.IgnoreAddPatternInput{Pattern: args[0], List: list})
	},
}

var ignoreRemoveCmd = &cobra.Command{
	Use:   "remove <pattern>",
	Short: "Remove a pattern from whichever list holds it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		fi := newFileIgnore(ctx)
		if err := fi.RemovePattern(ctx, args[0]); err != nil {
			presenter.Error(err, "failed to remove pattern")
			exit(ctx, 1)
		}

		if textOutput() {
			presenter.Success(fmt.Sprintf("Removed %q", args[0]))
			return
		}
		if err := presenter.JSON(fi.Patterns()); err != nil {
			presenter.Error(err, "failed to write output")
			exit(ctx, 1)
		}
	},
}

func init() {
	ignoreAddCmd.Flags().Bool("except", false, "Add to the except list instead of the ignore list")

	ignoreCmd.AddCommand(ignoreListCmd)
	ignoreCmd.AddCommand(ignoreAddCmd)
	ignoreCmd.AddCommand(ignoreRemoveCmd)
}
