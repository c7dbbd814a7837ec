package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillz/pkg/ingest"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
	"github.com/jingkaihe/skillz/pkg/utils"
)

type DirectoryIngestInput struct {
	Path           string `json:"path" jsonschema:"description=Directory to walk"`
	ChunkDelimiter string `json:"chunk_delimiter,omitempty" jsonschema:"description=Delimiter used to split file content into chunks (default: blank line)"`
}

type DirectoryCursorInput struct {
	Path string `json:"path" jsonschema:"description=Directory previously passed to directory_ingest"`
}

func directoryFailure(skill string, err error, metadata skilltypes.SkillMetadata) skilltypes.SkillResult {
	reason := skilltypes.ReasonIOError
	if errors.Is(err, fs.ErrNotExist) {
		reason = skilltypes.ReasonNotFound
	}
	return skilltypes.NewFailedResult(skill, reason, err.Error(), metadata)
}

func validatePathInput(parameters string) error {
	input, err := decodeInput[DirectoryCursorInput](parameters)
	if err != nil {
		return err
	}
	if strings.TrimSpace(input.Path) == "" {
		return errors.New("path is required")
	}
	return nil
}

func pathTracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[DirectoryCursorInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{attribute.String("path", input.Path)}, nil
}

// DirectoryIngestSkill walks a directory and opens fresh cursors over it.
type DirectoryIngestSkill struct{}

func (s *DirectoryIngestSkill) Name() string { return "directory_ingest" }

func (s *DirectoryIngestSkill) Description() string {
	return `Walk a local directory and return its structure.

- Entries matching an ignore pattern are skipped entirely.
- Every other directory is walked and listed in folders.
- Only files matching an except pattern are read; use ignore_add_pattern with list "except" to opt files in.
- Files that cannot be read as text add an ignore pattern for their extension.

Ingesting a directory resets its directory_next_file and directory_next_folder cursors.`
}

func (s *DirectoryIngestSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[DirectoryIngestInput]()
}

func (s *DirectoryIngestSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	return validatePathInput(parameters)
}

func (s *DirectoryIngestSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	return pathTracingKVs(parameters)
}

func (s *DirectoryIngestSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[DirectoryIngestInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	var opts []ingest.Option
	if input.ChunkDelimiter != "" {
		opts = append(opts, ingest.WithChunkDelimiter(input.ChunkDelimiter))
	}

	metadata := skilltypes.DirectoryIngestMetadata{Root: input.Path, Files: []string{}, Folders: []string{}}

	d, err := state.OpenDirectory(ctx, input.Path, opts...)
	if err != nil {
		return directoryFailure(s.Name(), err, metadata)
	}
	di := d.Ingestor()

	metadata.Root = di.Path
	metadata.Folders = di.Folders
	for _, f := range di.Files {
		metadata.Files = append(metadata.Files, f.Path)
	}
	if di.Errors != nil {
		for _, e := range di.Errors.Errors {
			metadata.Errors = append(metadata.Errors, e.Error())
		}
	}
	if structure, err := json.Marshal(di.Structure); err == nil {
		metadata.Structure = structure
	}

	summary := fmt.Sprintf("Ingested %s: %d files, %d folders", di.Path, len(di.Files), len(di.Folders))
	var b strings.Builder
	b.WriteString(summary)
	if len(metadata.Files) > 0 {
		b.WriteString("\n\nFiles:\n" + strings.Join(metadata.Files, "\n"))
	}
	if len(metadata.Folders) > 0 {
		b.WriteString("\n\nFolders:\n" + strings.Join(metadata.Folders, "\n"))
	}
	if len(metadata.Errors) > 0 {
		b.WriteString("\n\nUnreadable:\n" + strings.Join(metadata.Errors, "\n"))
	}

	if len(di.Files) == 0 && len(di.Folders) == 0 {
		return skilltypes.NewEmptyResult(s.Name(), b.String(), skilltypes.ReasonNone, metadata)
	}
	return skilltypes.NewResult(s.Name(), b.String(), metadata)
}

// DirectoryNextFileSkill hands out the next unread file of a directory.
type DirectoryNextFileSkill struct{}

func (s *DirectoryNextFileSkill) Name() string { return "directory_next_file" }

func (s *DirectoryNextFileSkill) Description() string {
	return `Return the next unread, non-empty file of a directory with line numbers.

Each file is returned once, in discovery order. The directory is ingested first if needed.
When every file has been returned the result is empty with reason "exhausted".`
}

func (s *DirectoryNextFileSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[DirectoryCursorInput]()
}

func (s *DirectoryNextFileSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	return validatePathInput(parameters)
}

func (s *DirectoryNextFileSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	return pathTracingKVs(parameters)
}

func (s *DirectoryNextFileSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[DirectoryCursorInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	metadata := skilltypes.DirectoryFileMetadata{Root: input.Path}
	var file *ingest.File
	err = state.WithDirectory(ctx, input.Path, func(d *ingest.Directory) error {
		file, _ = d.GetNextFile()
		metadata.Root = d.Ingestor().Path
		metadata.RemainingFiles, _ = d.Remaining()
		return nil
	})
	if err != nil {
		return directoryFailure(s.Name(), err, metadata)
	}

	if file == nil {
		return skilltypes.NewEmptyResult(s.Name(), "No more files", skilltypes.ReasonExhausted, metadata)
	}
	metadata.File = file

	text := fmt.Sprintf("File: %s (%d remaining)\n\n%s", file.Path, metadata.RemainingFiles,
		utils.ContentWithLineNumber(strings.Split(strings.TrimRight(file.Content, "\n"), "\n"), 1))
	return skilltypes.NewResult(s.Name(), text, metadata)
}

// DirectoryNextFolderSkill hands out the next folder of a directory.
type DirectoryNextFolderSkill struct{}

func (s *DirectoryNextFolderSkill) Name() string { return "directory_next_folder" }

func (s *DirectoryNextFolderSkill) Description() string {
	return `Return the next folder path of a directory in discovery order.

The directory is ingested first if needed. When every folder has been returned the
result is empty with reason "exhausted".`
}

func (s *DirectoryNextFolderSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[DirectoryCursorInput]()
}

func (s *DirectoryNextFolderSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	return validatePathInput(parameters)
}

func (s *DirectoryNextFolderSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	return pathTracingKVs(parameters)
}

func (s *DirectoryNextFolderSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[DirectoryCursorInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	metadata := skilltypes.DirectoryFolderMetadata{Root: input.Path}
	var folder string
	var found bool
	err = state.WithDirectory(ctx, input.Path, func(d *ingest.Directory) error {
		folder, found = d.GetNextFolder()
		metadata.Root = d.Ingestor().Path
		_, metadata.RemainingFolders = d.Remaining()
		return nil
	})
	if err != nil {
		return directoryFailure(s.Name(), err, metadata)
	}

	if !found {
		return skilltypes.NewEmptyResult(s.Name(), "No more folders", skilltypes.ReasonExhausted, metadata)
	}
	metadata.Folder = folder
	return skilltypes.NewResult(s.Name(), folder, metadata)
}
