package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillz/pkg/skills"
)

var redditCmd = &cobra.Command{
	Use:   "reddit",
	Short: "Search subreddits and read submissions",
	Long: `Query Reddit with application-only OAuth.

Credentials are read from REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET and REDDIT_USER_AGENT.`,
}

var redditSearchSubredditsCmd = &cobra.Command{
	Use:   "search-subreddits <query>",
	Short: "Find subreddits matching a name or topic",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSkill(cmd, "reddit_search_subreddits", skills.RedditSearchSubredditsInput{
			Query: strings.Join(args, " "),
		})
	},
}

var redditHotCmd = &cobra.Command{
	Use:   "hot <subreddit>",
	Short: "List the current hot submissions of a subreddit",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSkill(cmd, "reddit_hot_submissions", skills.RedditHotSubmissionsInput{Subreddit: args[0]})
	},
}

var redditSearchCmd = &cobra.Command{
	Use:   "search <subreddit> <keyword>...",
	Short: "Search submissions within a subreddit",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runSkill(cmd, "reddit_search_subreddit", skills.RedditSearchSubredditInput{
			Subreddit: args[0],
			Keyword:   strings.Join(args[1:], " "),
		})
	},
}

func init() {
	redditCmd.AddCommand(redditSearchSubredditsCmd)
	redditCmd.AddCommand(redditHotCmd)
	redditCmd.AddCommand(redditSearchCmd)
}
