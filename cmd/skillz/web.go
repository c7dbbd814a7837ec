package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillz/pkg/skills"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Fetch pages as markdown and search the web",
}

var webGetCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Fetch a page and print it as minified markdown",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSkill(cmd, "web_get_page", skills.WebGetPageInput{URL: args[0]})
	},
}

var webSearchCmd = &cobra.Command{
	Use:   "search <keyword>...",
	Short: "Search the web with DuckDuckGo",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSkill(cmd, "web_search", skills.WebSearchInput{Keyword: strings.Join(args, " ")})
	},
}

func init() {
	webCmd.AddCommand(webGetCmd)
	webCmd.AddCommand(webSearchCmd)
}
