package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillz/pkg/ignore"
	"github.com/jingkaihe/skillz/pkg/ingest"
	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/presenter"
	"github.com/jingkaihe/skillz/pkg/reddit"
	"github.com/jingkaihe/skillz/pkg/skills"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
	"github.com/jingkaihe/skillz/pkg/utils"
	"github.com/jingkaihe/skillz/pkg/web"
)

// newFileIgnore opens the configured ignore file.
func newFileIgnore(ctx context.Context) *ignore.FileIgnore {
	return ignore.NewFromFile(ctx, utils.ExpandHome(viper.GetString("ignore.file")))
}

// newState wires the skill state from the loaded configuration.
func newState(ctx context.Context) (*skills.BasicState, error) {
	redditConfig, err := reddit.ConfigFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	webConfig, err := web.ConfigFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	ingestConfig, err := ingest.ConfigFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	return skills.NewBasicState(ctx,
		skills.WithFileIgnore(newFileIgnore(ctx)),
		skills.WithRedditFactory(reddit.NewClientFactory(redditConfig)),
		skills.WithFetcher(web.NewFetcher(webConfig)),
		skills.WithSearcher(web.NewDuckDuckGo(webConfig)),
		skills.WithIngestOptions(ingestConfig.Options()...),
	), nil
}

// mustState returns the state or exits.
func mustState(ctx context.Context) *skills.BasicState {
	state, err := newState(ctx)
	if err != nil {
		presenter.Error(err, "failed to load configuration")
		exit(ctx, 1)
	}
	return state
}

// exit flushes tracing before terminating the process.
func exit(ctx context.Context, code int) {
	if err := shutdownTracing(ctx); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to shut down tracing")
	}
	os.Exit(code)
}

func textOutput() bool {
	return viper.GetBool("output.text")
}

// runSkill executes a single skill with input, prints the result and exits
// non-zero when the skill failed.
func runSkill(cmd *cobra.Command, name string, input any) {
	ctx := cmd.Context()
	state := mustState(ctx)

	result := callSkill(ctx, state, name, input)
	if err := renderResult(result); err != nil {
		presenter.Error(err, "failed to write output")
		exit(ctx, 1)
	}
	if result.IsError() {
		exit(ctx, 1)
	}
}

func callSkill(ctx context.Context, state skilltypes.State, name string, input any) skilltypes.SkillResult {
	parameters, err := json.Marshal(input)
	if err != nil {
		return skilltypes.NewFailedResult(name, skilltypes.ReasonInvalidInput, err.Error(), nil)
	}
	return skills.Run(ctx, state, name, string(parameters))
}

// renderResult prints the structured envelope, or the assistant-facing text
// with --text.
func renderResult(result skilltypes.SkillResult) error {
	if textOutput() {
		presenter.Text(result.AssistantFacing())
		return nil
	}
	return presenter.JSON(result.StructuredData())
}
