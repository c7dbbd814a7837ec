package ingest

import "strings"

// DefaultChunkDelimiter separates chunks when no delimiter is configured.
const DefaultChunkDelimiter = "\n\n"

// File is a text file discovered during a walk.
type File struct {
	Path    string   `json:"path"`
	Content string   `json:"content"`
	Visited bool     `json:"visited"`
	Chunks  []string `json:"chunks"`
}

// NewFile builds a File and splits its content into chunks on delimiter.
func NewFile(path, content, delimiter string) *File {
	return &File{
		Path:    path,
		Content: content,
		Chunks:  splitChunks(content, delimiter),
	}
}

func splitChunks(content, delimiter string) []string {
	if delimiter == "" {
		delimiter = DefaultChunkDelimiter
	}

	chunks := []string{}
	for _, chunk := range strings.Split(content, delimiter) {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
