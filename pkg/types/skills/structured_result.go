package skills

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/ingest"
	"github.com/jingkaihe/skillz/pkg/reddit"
	"github.com/jingkaihe/skillz/pkg/web"
)

// StructuredSkillResult is the machine-readable envelope of a skill call.
type StructuredSkillResult struct {
	SkillName string        `json:"skillName"`
	Status    Status        `json:"status"`
	Reason    Reason        `json:"reason,omitempty"`
	Error     string        `json:"error,omitempty"`
	Metadata  SkillMetadata `json:"metadata,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type rawStructuredSkillResult struct {
	SkillName    string          `json:"skillName"`
	Status       Status          `json:"status"`
	Reason       Reason          `json:"reason,omitempty"`
	Error        string          `json:"error,omitempty"`
	MetadataType string          `json:"metadataType,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// MarshalJSON tags the metadata with its type so it can be decoded again.
func (s StructuredSkillResult) MarshalJSON() ([]byte, error) {
	raw := rawStructuredSkillResult{
		SkillName: s.SkillName,
		Status:    s.Status,
		Reason:    s.Reason,
		Error:     s.Error,
		Timestamp: s.Timestamp,
	}

	if s.Metadata != nil {
		raw.MetadataType = s.Metadata.SkillType()
		metadataBytes, err := json.Marshal(s.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metadata")
		}
		raw.Metadata = metadataBytes
	}

	return json.Marshal(raw)
}

var metadataTypeRegistry = map[string]reflect.Type{
	"reddit_subreddits":  reflect.TypeOf(RedditSubredditsMetadata{}),
	"reddit_submissions": reflect.TypeOf(RedditSubmissionsMetadata{}),
	"web_page":           reflect.TypeOf(WebPageMetadata{}),
	"web_search":         reflect.TypeOf(WebSearchMetadata{}),
	"directory_ingest":   reflect.TypeOf(DirectoryIngestMetadata{}),
	"directory_file":     reflect.TypeOf(DirectoryFileMetadata{}),
	"directory_folder":   reflect.TypeOf(DirectoryFolderMetadata{}),
	"ignore_patterns":    reflect.TypeOf(IgnorePatternsMetadata{}),
}

// UnmarshalJSON decodes the metadata into its registered type. Unknown types
// leave Metadata nil.
func (s *StructuredSkillResult) UnmarshalJSON(data []byte) error {
	var raw rawStructuredSkillResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.SkillName = raw.SkillName
	s.Status = raw.Status
	s.Reason = raw.Reason
	s.Error = raw.Error
	s.Timestamp = raw.Timestamp

	if raw.MetadataType == "" || len(raw.Metadata) == 0 {
		return nil
	}
	metadataType, ok := metadataTypeRegistry[raw.MetadataType]
	if !ok {
		return nil
	}

	metadataPtr := reflect.New(metadataType)
	if err := json.Unmarshal(raw.Metadata, metadataPtr.Interface()); err != nil {
		return errors.Wrapf(err, "failed to unmarshal metadata of type %s", raw.MetadataType)
	}
	s.Metadata = metadataPtr.Elem().Interface().(SkillMetadata)
	return nil
}

// SkillMetadata is implemented by every skill-specific payload.
type SkillMetadata interface {
	SkillType() string
}

type RedditSubredditsMetadata struct {
	Query      string             `json:"query"`
	Subreddits []reddit.Subreddit `json:"subreddits"`
}

type RedditSubmissionsMetadata struct {
	Subreddit   string              `json:"subreddit"`
	Keyword     string              `json:"keyword,omitempty"`
	Submissions []reddit.Submission `json:"submissions"`
}

type WebPageMetadata struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"statusCode,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Markdown    string `json:"markdown,omitempty"`
}

type WebSearchMetadata struct {
	Keyword string             `json:"keyword"`
	Results []web.SearchResult `json:"results"`
}

type DirectoryIngestMetadata struct {
	Root      string          `json:"root"`
	Files     []string        `json:"files"`
	Folders   []string        `json:"folders"`
	Errors    []string        `json:"errors,omitempty"`
	Structure json.RawMessage `json:"structure,omitempty"`
}

type DirectoryFileMetadata struct {
	Root           string       `json:"root"`
	File           *ingest.File `json:"file,omitempty"`
	RemainingFiles int          `json:"remainingFiles"`
}

type DirectoryFolderMetadata struct {
	Root             string `json:"root"`
	Folder           string `json:"folder,omitempty"`
	RemainingFolders int    `json:"remainingFolders"`
}

type IgnorePatternsMetadata struct {
	IgnorePatterns []string `json:"ignorePatterns"`
	ExceptPatterns []string `json:"exceptPatterns"`
	Added          string   `json:"added,omitempty"`
	List           string   `json:"list,omitempty"`
}

func (m RedditSubredditsMetadata) SkillType() string  { return "reddit_subreddits" }
func (m RedditSubmissionsMetadata) SkillType() string { return "reddit_submissions" }
func (m WebPageMetadata) SkillType() string           { return "web_page" }
func (m WebSearchMetadata) SkillType() string         { return "web_search" }
func (m DirectoryIngestMetadata) SkillType() string   { return "directory_ingest" }
func (m DirectoryFileMetadata) SkillType() string     { return "directory_file" }
func (m DirectoryFolderMetadata) SkillType() string   { return "directory_folder" }
func (m IgnorePatternsMetadata) SkillType() string    { return "ignore_patterns" }
