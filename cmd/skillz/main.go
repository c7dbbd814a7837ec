package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillz/pkg/ingest"
	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/presenter"
	"github.com/jingkaihe/skillz/pkg/reddit"
	"github.com/jingkaihe/skillz/pkg/web"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("SKILLZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillz")
	viper.AddConfigPath(".")

	viper.SetDefault("ignore.file", "ignore.json")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	reddit.SetDefaults(viper.GetViper())
	web.SetDefaults(viper.GetViper())
	ingest.SetDefaults(viper.GetViper())
}

var rootCmd = &cobra.Command{
	Use:   "skillz",
	Short: "Reddit, web and directory skills for AI agents",
	Long: `skillz exposes a small set of agent skills: Reddit search, web page fetching and search,
and one-shot directory ingestion with persisted ignore patterns.

Skills can be called from the command line, served to MCP clients over stdio,
or served over a JSON HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to initialize tracing")
			return nil
		}
		shutdownTracing = shutdown
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

// shutdownTracing flushes spans once the command has finished.
var shutdownTracing = func(context.Context) error { return nil }

func main() {
	ctx := context.Background()

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().String("ignore-file", "ignore.json", "Path of the persisted ignore patterns file")
	rootCmd.PersistentFlags().Bool("text", false, "Print the assistant-facing text instead of JSON")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("ignore.file", rootCmd.PersistentFlags().Lookup("ignore-file"))
	viper.BindPFlag("output.text", rootCmd.PersistentFlags().Lookup("text"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.G(ctx).WithError(err).Warn("failed to read config file")
		}
	}

	rootCmd.AddCommand(withTracing(redditCmd))
	rootCmd.AddCommand(withTracing(webCmd))
	rootCmd.AddCommand(withTracing(dirCmd))
	rootCmd.AddCommand(withTracing(ignoreCmd))
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(versionCmd)

	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := shutdownTracing(context.Background()); shutdownErr != nil {
		logger.G(ctx).WithError(shutdownErr).Warn("failed to shut down tracing")
	}
	if err != nil {
		presenter.Error(err, "command failed")
		os.Exit(1)
	}
}
