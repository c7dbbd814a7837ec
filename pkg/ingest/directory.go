package ingest

import (
	"context"

	"github.com/jingkaihe/skillz/pkg/ignore"
)

// Directory hands out the files and folders of an ingested tree one at a
// time. Cursors only move forward; build a new Directory to start over.
// A Directory is not safe for concurrent use.
type Directory struct {
	ingestor    *DirectoryIngestor
	fileIndex   int
	folderIndex int
}

// NewDirectory ingests root and wraps the result.
func NewDirectory(ctx context.Context, root string, fi *ignore.FileIgnore, opts ...Option) (*Directory, error) {
	di, err := NewDirectoryIngestor(ctx, root, fi, opts...)
	if err != nil {
		return nil, err
	}
	return NewDirectoryFromIngestor(di), nil
}

// NewDirectoryFromIngestor wraps an existing walk result.
func NewDirectoryFromIngestor(di *DirectoryIngestor) *Directory {
	return &Directory{ingestor: di}
}

// Ingestor returns the underlying walk result.
func (d *Directory) Ingestor() *DirectoryIngestor {
	return d.ingestor
}

// GetNextFile returns the next unvisited file with content and marks it
// visited. It returns false once every file has been handed out.
func (d *Directory) GetNextFile() (*File, bool) {
	for d.fileIndex < len(d.ingestor.Files) {
		file := d.ingestor.Files[d.fileIndex]
		d.fileIndex++
		if file.Content == "" || file.Visited {
			continue
		}
		file.Visited = true
		return file, true
	}
	return nil, false
}

// GetNextFolder returns the next folder path in discovery order.
func (d *Directory) GetNextFolder() (string, bool) {
	if d.folderIndex >= len(d.ingestor.Folders) {
		return "", false
	}
	folder := d.ingestor.Folders[d.folderIndex]
	d.folderIndex++
	return folder, true
}

// Remaining reports how many files and folders the cursors have yet to return.
func (d *Directory) Remaining() (files, folders int) {
	for _, file := range d.ingestor.Files[d.fileIndex:] {
		if file.Content != "" && !file.Visited {
			files++
		}
	}
	return files, len(d.ingestor.Folders) - d.folderIndex
}
