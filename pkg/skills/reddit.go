package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/reddit"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
)

type RedditSearchSubredditsInput struct {
	Query string `json:"query" jsonschema:"description=Name or topic to search subreddits for"`
}

type RedditHotSubmissionsInput struct {
	Subreddit string `json:"subreddit" jsonschema:"description=Subreddit name without the r/ prefix"`
}

type RedditSearchSubredditInput struct {
	Subreddit string `json:"subreddit" jsonschema:"description=Subreddit name without the r/ prefix"`
	Keyword   string `json:"keyword" jsonschema:"description=Keyword to search for within the subreddit"`
}

// redditFailure turns a client error into a failed result. The payload is
// always an empty list.
func redditFailure(ctx context.Context, skill string, err error, metadata skilltypes.SkillMetadata) skilltypes.SkillResult {
	reason := skilltypes.ReasonUpstreamError
	if errors.Is(err, reddit.ErrMissingCredentials) {
		reason = skilltypes.ReasonMissingCredentials
	}
	logger.G(ctx).WithError(err).WithField("skill", skill).Warn("reddit call failed")
	return skilltypes.NewFailedResult(skill, reason, err.Error(), metadata)
}

func subredditName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	return strings.TrimPrefix(name, "r/")
}

// RedditSearchSubredditsSkill finds subreddits by name.
type RedditSearchSubredditsSkill struct{}

func (s *RedditSearchSubredditsSkill) Name() string { return "reddit_search_subreddits" }

func (s *RedditSearchSubredditsSkill) Description() string {
	return fmt.Sprintf(`Search Reddit for subreddits whose name or topic matches the query.

Returns up to %d subreddits with at least one subscriber, each with display_name, title,
public_description, subscribers, url, over18 and created_utc.`, reddit.Limit)
}

func (s *RedditSearchSubredditsSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[RedditSearchSubredditsInput]()
}

func (s *RedditSearchSubredditsSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	input, err := decodeInput[RedditSearchSubredditsInput](parameters)
	if err != nil {
		return err
	}
	if strings.TrimSpace(input.Query) == "" {
		return errors.New("query is required")
	}
	return nil
}

func (s *RedditSearchSubredditsSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[RedditSearchSubredditsInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{attribute.String("query", input.Query)}, nil
}

func (s *RedditSearchSubredditsSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[RedditSearchSubredditsInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	metadata := skilltypes.RedditSubredditsMetadata{Query: input.Query, Subreddits: []reddit.Subreddit{}}

	client, err := state.RedditFactory()(ctx)
	if err != nil {
		return redditFailure(ctx, s.Name(), err, metadata)
	}
	subreddits, err := client.SearchSubreddits(ctx, input.Query)
	if err != nil {
		return redditFailure(ctx, s.Name(), err, metadata)
	}

	if len(subreddits) == 0 {
		return skilltypes.NewEmptyResult(s.Name(), fmt.Sprintf("No subreddits found for %q", input.Query), skilltypes.ReasonNone, metadata)
	}
	metadata.Subreddits = subreddits
	return skilltypes.NewResult(s.Name(), renderJSON(subreddits), metadata)
}

// RedditHotSubmissionsSkill lists hot submissions in a subreddit.
type RedditHotSubmissionsSkill struct{}

func (s *RedditHotSubmissionsSkill) Name() string { return "reddit_hot_submissions" }

func (s *RedditHotSubmissionsSkill) Description() string {
	return fmt.Sprintf(`List the current hot submissions of a subreddit.

Returns up to %d submissions with id, title, author, subreddit, score, num_comments, url,
permalink, selftext, created_utc and over_18.`, reddit.Limit)
}

func (s *RedditHotSubmissionsSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[RedditHotSubmissionsInput]()
}

func (s *RedditHotSubmissionsSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	input, err := decodeInput[RedditHotSubmissionsInput](parameters)
	if err != nil {
		return err
	}
	if subredditName(input.Subreddit) == "" {
		return errors.New("subreddit is required")
	}
	return nil
}

func (s *RedditHotSubmissionsSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[RedditHotSubmissionsInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{attribute.String("subreddit", input.Subreddit)}, nil
}

func (s *RedditHotSubmissionsSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[RedditHotSubmissionsInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	sub := subredditName(input.Subreddit)
	metadata := skilltypes.RedditSubmissionsMetadata{Subreddit: sub, Submissions: []reddit.Submission{}}

	client, err := state.RedditFactory()(ctx)
	if err != nil {
		return redditFailure(ctx, s.Name(), err, metadata)
	}
	posts, err := client.HotSubmissions(ctx, sub)
	if err != nil {
		return redditFailure(ctx, s.Name(), err, metadata)
	}

	if len(posts) == 0 {
		return skilltypes.NewEmptyResult(s.Name(), fmt.Sprintf("No hot submissions in r/%s", sub), skilltypes.ReasonNone, metadata)
	}
	metadata.Submissions = posts
	return skilltypes.NewResult(s.Name(), renderJSON(posts), metadata)
}

// RedditSearchSubredditSkill searches for a keyword within one subreddit.
type RedditSearchSubredditSkill struct{}

func (s *RedditSearchSubredditSkill) Name() string { return "reddit_search_subreddit" }

func (s *RedditSearchSubredditSkill) Description() string {
	return fmt.Sprintf(`Search for submissions matching a keyword within a single subreddit.

Returns up to %d submissions in the same shape as reddit_hot_submissions.`, reddit.Limit)
}

func (s *RedditSearchSubredditSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[RedditSearchSubredditInput]()
}

func (s *RedditSearchSubredditSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	input, err := decodeInput[RedditSearchSubredditInput](parameters)
	if err != nil {
		return err
	}
	if subredditName(input.Subreddit) == "" {
		return errors.New("subreddit is required")
	}
	if strings.TrimSpace(input.Keyword) == "" {
		return errors.New("keyword is required")
	}
	return nil
}

func (s *RedditSearchSubredditSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[RedditSearchSubredditInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("subreddit", input.Subreddit),
		attribute.String("keyword", input.Keyword),
	}, nil
}

func (s *RedditSearchSubredditSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[RedditSearchSubredditInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	sub := subredditName(input.Subreddit)
	metadata := skilltypes.RedditSubmissionsMetadata{Subreddit: sub, Keyword: input.Keyword, Submissions: []reddit.Submission{}}

	client, err := state.RedditFactory()(ctx)
	if err != nil {
		return redditFailure(ctx, s.Name(), err, metadata)
	}
	posts, err := client.SearchSubmissions(ctx, sub, input.Keyword)
	if err != nil {
		return redditFailure(ctx, s.Name(), err, metadata)
	}

	if len(posts) == 0 {
		return skilltypes.NewEmptyResult(s.Name(), fmt.Sprintf("No submissions in r/%s match %q", sub, input.Keyword), skilltypes.ReasonNone, metadata)
	}
	metadata.Submissions = posts
	return skilltypes.NewResult(s.Name(), renderJSON(posts), metadata)
}
