// Package skills implements the agent-invocable skills and the registry the
// MCP server, HTTP API and CLI dispatch through.
package skills

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/telemetry"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
)

func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// skillNames fixes the listing order of the registry.
var skillNames = []string{
	"reddit_search_subreddits",
	"reddit_hot_submissions",
	"reddit_search_subreddit",
	"web_get_page",
	"web_search",
	"directory_ingest",
	"directory_next_file",
	"directory_next_folder",
	"ignore_add_pattern",
	"ignore_list_patterns",
}

var skillRegistry = map[string]skilltypes.Skill{
	"reddit_search_subreddits": &RedditSearchSubredditsSkill{},
	"reddit_hot_submissions":   &RedditHotSubmissionsSkill{},
	"reddit_search_subreddit":  &RedditSearchSubredditSkill{},
	"web_get_page":             &WebGetPageSkill{},
	"web_search":               &WebSearchSkill{},
	"directory_ingest":         &DirectoryIngestSkill{},
	"directory_next_file":      &DirectoryNextFileSkill{},
	"directory_next_folder":    &DirectoryNextFolderSkill{},
	"ignore_add_pattern":       &IgnoreAddPatternSkill{},
	"ignore_list_patterns":     &IgnoreListPatternsSkill{},
}

// All returns every registered skill in listing order.
func All() []skilltypes.Skill {
	all := make([]skilltypes.Skill, 0, len(skillNames))
	for _, name := range skillNames {
		all = append(all, skillRegistry[name])
	}
	return all
}

// Get looks a skill up by name.
func Get(name string) (skilltypes.Skill, bool) {
	skill, ok := skillRegistry[name]
	return skill, ok
}

var tracer = telemetry.Tracer("skillz.skills")

// Run validates and executes the named skill inside a tracing span. Unknown
// skills and invalid input come back as failed results.
func Run(ctx context.Context, state skilltypes.State, name string, parameters string) skilltypes.SkillResult {
	skill, ok := Get(name)
	if !ok {
		return skilltypes.NewFailedResult(name, skilltypes.ReasonNotFound, fmt.Sprintf("unknown skill: %s", name), nil)
	}

	kvs, err := skill.TracingKVs(parameters)
	if err != nil {
		logger.G(ctx).WithError(err).Debug("failed to get tracing kvs")
	}

	ctx, span := tracer.Start(
		ctx,
		fmt.Sprintf("skills.run_skill.%s", name),
		trace.WithAttributes(append(kvs, attribute.String("session.id", state.SessionID()))...),
	)
	defer span.End()

	if err := skill.ValidateInput(state, parameters); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return skilltypes.NewFailedResult(name, skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	result := skill.Execute(ctx, state, parameters)

	span.SetAttributes(
		attribute.String("skill.status", string(result.Status())),
		attribute.String("skill.reason", string(result.Reason())),
	)
	if result.IsError() {
		span.SetStatus(codes.Error, result.GetError())
		span.RecordError(errors.New(result.GetError()))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	logger.G(ctx).WithField("skill", name).WithField("status", result.Status()).Debug("skill executed")
	return result
}

// decodeInput unmarshals parameters into T.
func decodeInput[T any](parameters string) (*T, error) {
	var input T
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, errors.Wrap(err, "invalid input")
	}
	return &input, nil
}

func renderJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
