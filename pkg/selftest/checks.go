package selftest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/ignore"
	"github.com/jingkaihe/skillz/pkg/skills"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
)

// Check groups accepted by Filter.
const (
	GroupReddit = "reddit"
	GroupWeb    = "web"
	GroupDir    = "dir"
)

// DefaultChecks returns the live checks. Reddit and web checks run through
// state; the directory checks use a private fixture and an in-memory
// ignore list so the user's ignore file is left alone.
func DefaultChecks(state skilltypes.State) []Check {
	return []Check{
		{Name: "search_for_a_subreddit", Group: GroupReddit, Run: func(ctx context.Context) (string, error) {
			result, err := run(ctx, state, "reddit_search_subreddits", `{"query":"python"}`)
			if err != nil {
				return "", err
			}
			metadata, ok := result.StructuredData().Metadata.(skilltypes.RedditSubredditsMetadata)
			if !ok || len(metadata.Subreddits) == 0 {
				return "", Failf("expected at least one subreddit")
			}
			first := metadata.Subreddits[0]
			if !strings.EqualFold(first.DisplayName, "python") {
				return "", Failf("expected r/Python first, got %q", first.DisplayName)
			}
			if first.Title == "" || first.Subscribers <= 0 {
				return "", Failf("subreddit %q is missing a title or subscribers", first.DisplayName)
			}
			return first.DisplayName, nil
		}},
		{Name: "scrape_subreddit", Group: GroupReddit, Run: func(ctx context.Context) (string, error) {
			result, err := run(ctx, state, "reddit_hot_submissions", `{"subreddit":"python"}`)
			if err != nil {
				return "", err
			}
			return firstSubmissionTitle(result)
		}},
		{Name: "search_subreddit_by_keyword", Group: GroupReddit, Run: func(ctx context.Context) (string, error) {
			result, err := run(ctx, state, "reddit_search_subreddit", `{"subreddit":"python","keyword":"asyncio"}`)
			if err != nil {
				return "", err
			}
			return firstSubmissionTitle(result)
		}},
		{Name: "get_page_format", Group: GroupWeb, Run: func(ctx context.Context) (string, error) {
			result, err := run(ctx, state, "web_get_page", `{"url":"https://example.com/"}`)
			if err != nil {
				return "", err
			}
			metadata, ok := result.StructuredData().Metadata.(skilltypes.WebPageMetadata)
			if !ok || metadata.Markdown == "" {
				return "", Failf("expected markdown content")
			}
			if strings.Contains(metadata.Markdown, "<html") || strings.Contains(metadata.Markdown, "<body") {
				return "", Failf("markdown still contains HTML tags")
			}
			return truncate(metadata.Markdown, 40), nil
		}},
		{Name: "web_search", Group: GroupWeb, Run: func(ctx context.Context) (string, error) {
			result, err := run(ctx, state, "web_search", `{"keyword":"golang"}`)
			if err != nil {
				return "", err
			}
			metadata, ok := result.StructuredData().Metadata.(skilltypes.WebSearchMetadata)
			if !ok || len(metadata.Results) == 0 {
				return "", Failf("expected search results")
			}
			return metadata.Results[0].Href, nil
		}},
		{Name: "directory_ingest_and_iterate", Group: GroupDir, Run: checkDirectory},
	}
}

// run executes a skill and turns failed and empty results into errors.
func run(ctx context.Context, state skilltypes.State, name, parameters string) (skilltypes.SkillResult, error) {
	result := skills.Run(ctx, state, name, parameters)
	switch result.Status() {
	case skilltypes.StatusFailed:
		return nil, errors.Errorf("%s failed (%s): %s", name, result.Reason(), result.GetError())
	case skilltypes.StatusEmpty:
		return nil, Failf("%s returned no data", name)
	}
	return result, nil
}

func firstSubmissionTitle(result skilltypes.SkillResult) (string, error) {
	metadata, ok := result.StructuredData().Metadata.(skilltypes.RedditSubmissionsMetadata)
	if !ok || len(metadata.Submissions) == 0 {
		return "", Failf("expected at least one submission")
	}
	if metadata.Submissions[0].Title == "" {
		return "", Failf("first submission has no title")
	}
	return metadata.Submissions[0].Title, nil
}

func checkDirectory(ctx context.Context) (string, error) {
	root, err := os.MkdirTemp("", "skillz-selftest-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create fixture directory")
	}
	defer os.RemoveAll(root)

	fixture := map[string]string{
		"folder1/file1.txt": "first\n\nchunk",
		"folder2/file2.txt": "second",
		"folder2/skip.log":  "ignored",
	}
	for name, content := range fixture {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", errors.Wrap(err, "failed to create fixture folder")
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", errors.Wrap(err, "failed to write fixture file")
		}
	}
	if err := os.Mkdir(filepath.Join(root, "empty"), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create empty folder")
	}

	fi := ignore.New(ctx, ignore.NewMemoryStore(ignore.Patterns{ExceptPatterns: []string{"*.txt"}}))
	state := skills.NewBasicState(ctx, skills.WithFileIgnore(fi))
	payload, err := json.Marshal(map[string]string{"path": root})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode fixture path")
	}
	cursor := string(payload)

	result, err := run(ctx, state, "directory_ingest", cursor)
	if err != nil {
		return "", err
	}
	metadata, ok := result.StructuredData().Metadata.(skilltypes.DirectoryIngestMetadata)
	if !ok {
		return "", Failf("directory_ingest returned no metadata")
	}
	if len(metadata.Files) != 2 {
		return "", Failf("expected 2 files, got %d", len(metadata.Files))
	}
	if len(metadata.Folders) != 3 {
		return "", Failf("expected 3 folders, got %d", len(metadata.Folders))
	}

	seen := 0
	for {
		next := skills.Run(ctx, state, "directory_next_file", cursor)
		if next.Status() != skilltypes.StatusOK {
			break
		}
		seen++
		if seen > len(metadata.Files) {
			return "", Failf("cursor returned more files than were ingested")
		}
	}
	if seen != len(metadata.Files) {
		return "", Failf("expected to iterate %d files, got %d", len(metadata.Files), seen)
	}
	return strings.Join(metadata.Files, ", "), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
