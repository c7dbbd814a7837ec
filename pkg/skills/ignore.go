package skills

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillz/pkg/ignore"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
)

const (
	listIgnore = "ignore"
	listExcept = "except"
)

type IgnoreAddPatternInput struct {
	Pattern string `json:"pattern" jsonschema:"description=Glob matched against bare file and directory names (e.g. *.tmp or node_modules)"`
	List    string `json:"list" jsonschema:"description=Which list to add the pattern to,enum=ignore,enum=except"`
}

type IgnoreListPatternsInput struct{}

// IgnoreAddPatternSkill adds an ignore or except pattern.
type IgnoreAddPatternSkill struct{}

func (s *IgnoreAddPatternSkill) Name() string { return "ignore_add_pattern" }

func (s *IgnoreAddPatternSkill) Description() string {
	return `Add a glob pattern to the ignore list or the except list used by directory_ingest.

- "ignore" patterns skip matching files and directories entirely.
- "except" patterns opt matching files in to being read.
A pattern is kept in one list only; adding it to one list removes it from the other.`
}

func (s *IgnoreAddPatternSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[IgnoreAddPatternInput]()
}

func (s *IgnoreAddPatternSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	input, err := decodeInput[IgnoreAddPatternInput](parameters)
	if err != nil {
		return err
	}
	if input.Pattern == "" {
		return errors.New("pattern is required")
	}
	if input.List != listIgnore && input.List != listExcept {
		return errors.Errorf("list must be %q or %q", listIgnore, listExcept)
	}
	return nil
}

func (s *IgnoreAddPatternSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[IgnoreAddPatternInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("pattern", input.Pattern),
		attribute.String("list", input.List),
	}, nil
}

func (s *IgnoreAddPatternSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[IgnoreAddPatternInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	fi := state.FileIgnore()
	if input.List == listExcept {
		err = fi.AddExceptPattern(ctx, input.Pattern)
	} else {
		err = fi.AddIgnorePattern(ctx, input.Pattern)
	}
	if err != nil {
		reason := skilltypes.ReasonIOError
		if errors.Is(err, ignore.ErrInvalidPattern) {
			reason = skilltypes.ReasonInvalidInput
		}
		return skilltypes.NewFailedResult(s.Name(), reason, err.Error(), nil)
	}

	patterns := fi.Patterns()
	return skilltypes.NewResult(s.Name(), fmt.Sprintf("Added %q to the %s list", input.Pattern, input.List), skilltypes.IgnorePatternsMetadata{
		IgnorePatterns: patterns.IgnorePatterns,
		ExceptPatterns: patterns.ExceptPatterns,
		Added:          input.Pattern,
		List:           input.List,
	})
}

// IgnoreListPatternsSkill lists both pattern lists.
type IgnoreListPatternsSkill struct{}

func (s *IgnoreListPatternsSkill) Name() string { return "ignore_list_patterns" }

func (s *IgnoreListPatternsSkill) Description() string {
	return "List the ignore and except glob patterns used by directory_ingest."
}

func (s *IgnoreListPatternsSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[IgnoreListPatternsInput]()
}

func (s *IgnoreListPatternsSkill) ValidateInput(_ skilltypes.State, _ string) error {
	return nil
}

func (s *IgnoreListPatternsSkill) TracingKVs(_ string) ([]attribute.KeyValue, error) {
	return nil, nil
}

func (s *IgnoreListPatternsSkill) Execute(_ context.Context, state skilltypes.State, _ string) skilltypes.SkillResult {
	patterns := state.FileIgnore().Patterns()
	metadata := skilltypes.IgnorePatternsMetadata{
		IgnorePatterns: patterns.IgnorePatterns,
		ExceptPatterns: patterns.ExceptPatterns,
	}
	if len(patterns.IgnorePatterns) == 0 && len(patterns.ExceptPatterns) == 0 {
		return skilltypes.NewEmptyResult(s.Name(), "No patterns configured", skilltypes.ReasonNone, metadata)
	}
	return skilltypes.NewResult(s.Name(), renderJSON(patterns), metadata)
}
