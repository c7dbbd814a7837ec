// Package skills defines the contracts shared by skill implementations and
// the transports that expose them.
package skills

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillz/pkg/ignore"
	"github.com/jingkaihe/skillz/pkg/ingest"
	"github.com/jingkaihe/skillz/pkg/reddit"
	"github.com/jingkaihe/skillz/pkg/web"
)

// Skill is a single agent-invocable operation.
type Skill interface {
	GenerateSchema() *jsonschema.Schema
	Name() string
	Description() string
	ValidateInput(state State, parameters string) error
	Execute(ctx context.Context, state State, parameters string) SkillResult
	TracingKVs(parameters string) ([]attribute.KeyValue, error)
}

// Status distinguishes success, success without data, and failure.
type Status string

const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Reason says why a skill failed.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonMissingCredentials Reason = "missing_credentials"
	ReasonUpstreamError      Reason = "upstream_error"
	ReasonHTTPStatus         Reason = "http_status"
	ReasonIOError            Reason = "io_error"
	ReasonNotFound           Reason = "not_found"
	ReasonExhausted          Reason = "exhausted"
)

// SkillResult is what a skill hands back to its caller.
type SkillResult interface {
	GetResult() string
	GetError() string
	IsError() bool
	Status() Status
	Reason() Reason
	AssistantFacing() string
	StructuredData() StructuredSkillResult
}

// State is the per-session context skills run against.
type State interface {
	SessionID() string
	FileIgnore() *ignore.FileIgnore
	RedditFactory() reddit.ClientFactory
	Fetcher() web.PageFetcher
	Searcher() web.Searcher
	// OpenDirectory ingests root and replaces any cursor already open for it.
	OpenDirectory(ctx context.Context, root string, opts ...ingest.Option) (*ingest.Directory, error)
	// WithDirectory runs fn with the cursor for root, opening one first if
	// needed. Calls are serialized.
	WithDirectory(ctx context.Context, root string, fn func(*ingest.Directory) error) error
}

// StringifyResult renders a result and error for the model.
func StringifyResult(result, err string) string {
	out := ""
	if err != "" {
		out = fmt.Sprintf(`<error>
%s
</error>
`, err)
	}
	if result != "" {
		out += fmt.Sprintf(`<result>
%s
</result>
`, result)
	}
	return out
}
