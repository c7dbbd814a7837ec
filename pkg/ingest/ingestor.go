// Package ingest walks a directory tree into a nested structure of text files
// and exposes cursors over the files and folders it found.
package ingest

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jingkaihe/skillz/pkg/ignore"
	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/utils"
)

var (
	// ErrNotText is returned for files that are binary or not valid UTF-8.
	ErrNotText = errors.New("file is not valid text")
	// ErrFileTooLarge is returned for files above the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
)

type options struct {
	chunkDelimiter string
	learnIgnores   bool
	maxFileSize    int64
}

// Option configures a walk.
type Option func(*options)

// WithChunkDelimiter sets the string file content is split on.
func WithChunkDelimiter(delimiter string) Option {
	return func(o *options) {
		o.chunkDelimiter = delimiter
	}
}

// WithLearnIgnores controls whether unreadable files add an ignore pattern
// for their extension.
func WithLearnIgnores(learn bool) Option {
	return func(o *options) {
		o.learnIgnores = learn
	}
}

// WithMaxFileSize rejects files larger than size bytes. Zero disables the limit.
func WithMaxFileSize(size int64) Option {
	return func(o *options) {
		o.maxFileSize = size
	}
}

// DirectoryIngestor is the result of walking a directory. It is read-only once built.
type DirectoryIngestor struct {
	Path      string
	Structure Tree
	Files     []*File
	Folders   []string
	Errors    *multierror.Error

	ignore *ignore.FileIgnore
	opts   options
}

// frame is a directory being walked. Entries are consumed one at a time so
// files and folders are discovered in the same order a recursive walk would.
type frame struct {
	path    string
	name    string
	node    *Node
	parent  *Node
	entries []os.DirEntry
	next    int
}

// NewDirectoryIngestor walks root applying fi and returns the result.
func NewDirectoryIngestor(ctx context.Context, root string, fi *ignore.FileIgnore, opts ...Option) (*DirectoryIngestor, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", root)
	}

	o := options{chunkDelimiter: DefaultChunkDelimiter, learnIgnores: true}
	for _, opt := range opts {
		opt(&o)
	}

	di := &DirectoryIngestor{
		Path:      filepath.Clean(root),
		Structure: Tree{},
		Files:     []*File{},
		Folders:   []string{},
		ignore:    fi,
		opts:      o,
	}
	if err := di.walk(ctx); err != nil {
		return nil, err
	}

	logger.G(ctx).WithFields(logrus.Fields{
		"path":    di.Path,
		"files":   len(di.Files),
		"folders": len(di.Folders),
	}).Debug("directory ingested")

	return di, nil
}

func (di *DirectoryIngestor) walk(ctx context.Context) error {
	rootEntries, err := os.ReadDir(di.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to read directory %s", di.Path)
	}

	root := &Node{Children: di.Structure}
	stack := []*frame{{path: di.Path, node: root, entries: rootEntries}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "directory walk cancelled")
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			if top.parent != nil && len(top.node.Children) == 0 {
				delete(top.parent.Children, top.name)
			}
			continue
		}

		entry := top.entries[top.next]
		top.next++

		name := entry.Name()
		path := filepath.Join(top.path, name)

		if !entry.IsDir() && !entry.Type().IsRegular() {
			logger.G(ctx).WithField("path", path).Debug("skipping non-regular file")
			continue
		}

		switch di.ignore.Decide(name, entry.IsDir()) {
		case ignore.Descend:
			di.Folders = append(di.Folders, path)

			entries, err := os.ReadDir(path)
			if err != nil {
				logger.G(ctx).WithError(err).WithField("path", path).Warn("failed to read directory")
				di.Errors = multierror.Append(di.Errors, errors.Wrapf(err, "failed to read directory %s", path))
				continue
			}

			node := newDirNode()
			top.node.Children[name] = node
			stack = append(stack, &frame{path: path, name: name, node: node, parent: top.node, entries: entries})
		case ignore.Ingest:
			file, err := di.readFile(path, entry)
			if err != nil {
				di.handleReadError(ctx, path, name, err)
				continue
			}
			di.Files = append(di.Files, file)
			top.node.Children[name] = &Node{File: file}
		}
	}

	return nil
}

func (di *DirectoryIngestor) readFile(path string, entry os.DirEntry) (*File, error) {
	if di.opts.maxFileSize > 0 {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		if info.Size() > di.opts.maxFileSize {
			return nil, errors.Wrapf(ErrFileTooLarge, "%d bytes", info.Size())
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if utils.IsBinaryContent(data) || !utf8.Valid(data) {
		return nil, ErrNotText
	}

	return NewFile(path, string(data), di.opts.chunkDelimiter), nil
}

func (di *DirectoryIngestor) handleReadError(ctx context.Context, path, name string, err error) {
	log := logger.G(ctx).WithError(err).WithField("path", path)
	di.Errors = multierror.Append(di.Errors, errors.Wrapf(err, "failed to read %s", path))

	if errors.Is(err, fs.ErrPermission) {
		log.Warn("permission denied reading file")
		return
	}
	if errors.Is(err, ErrFileTooLarge) {
		log.Warn("skipping file over the size limit")
		return
	}

	log.Warn("failed to read file")
	if !di.opts.learnIgnores {
		return
	}

	pattern := LearnedPattern(name)
	if err := di.ignore.AddIgnorePattern(ctx, pattern); err != nil {
		log.WithError(err).WithField("pattern", pattern).Warn("failed to add learned ignore pattern")
		return
	}
	log.WithField("pattern", pattern).Info("added ignore pattern for unreadable file")
}

// LearnedPattern is the ignore pattern added when name cannot be read: its
// extension class, or the name itself when it has no extension.
func LearnedPattern(name string) string {
	if ext := filepath.Ext(name); ext != "" && ext != name {
		return "*" + ext
	}
	return name
}

// Err returns the aggregated read failures, or nil.
func (di *DirectoryIngestor) Err() error {
	return di.Errors.ErrorOrNil()
}

// MarshalJSON emits path, structure, files and folders.
func (di *DirectoryIngestor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path      string   `json:"path"`
		Structure Tree     `json:"structure"`
		Files     []*File  `json:"files"`
		Folders   []string `json:"folders"`
	}{di.Path, di.Structure, di.Files, di.Folders})
}
