package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupportedFormat is returned when no registered reader handles the
// input's file type.
var ErrUnsupportedFormat = errors.New("no reader for file type")

// Source is a decoded input ready for block parsing. Readers normalize
// every supported input format down to Markdown text.
type Source struct {
	Filename    string
	Title       string
	Markdown    string
	Frontmatter map[string]any
}

// Reader decodes one input format into Markdown source.
type Reader interface {
	// Decode converts raw file content into Markdown source.
	Decode(filename string, content []byte) (*Source, error)

	// CanDecode returns true if this reader handles the given MIME type.
	CanDecode(mimeType string) bool

	// MimeType returns the primary MIME type for this reader.
	MimeType() string
}

// Registry manages input format readers.
type Registry struct {
	mu      sync.RWMutex
	readers map[string]Reader // keyed by primary MIME type
}

// DefaultRegistry is the global reader registry with default readers.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a reader registry with the default readers.
func NewRegistry() *Registry {
	r := &Registry{
		readers: make(map[string]Reader),
	}

	r.Register(NewMarkdownReader())
	r.Register(NewHTMLReader())

	return r
}

// Register adds a reader to the registry.
func (r *Registry) Register(rd Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readers[rd.MimeType()] = rd
}

// GetByMimeType returns a reader for the given MIME type, or nil.
func (r *Registry) GetByMimeType(mimeType string) Reader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rd, ok := r.readers[mimeType]; ok {
		return rd
	}
	for _, rd := range r.readers {
		if rd.CanDecode(mimeType) {
			return rd
		}
	}
	return nil
}

// GetByExtension returns a reader for a file based on its extension.
func (r *Registry) GetByExtension(filename string) Reader {
	return r.GetByMimeType(MimeTypeFromExtension(filepath.Ext(filename)))
}

// Decode decodes a file using the appropriate reader.
func (r *Registry) Decode(filename string, content []byte) (*Source, error) {
	rd := r.GetByExtension(filename)
	if rd == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	return rd.Decode(filename, content)
}

// ListMimeTypes returns all registered MIME types.
func (r *Registry) ListMimeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.readers))
	for t := range r.readers {
		types = append(types, t)
	}
	return types
}

// MimeTypeFromExtension returns the MIME type for a file extension.
func MimeTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
