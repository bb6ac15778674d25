package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarkdownReader passes Markdown input through, extracting optional YAML
// frontmatter into Source.Frontmatter.
type MarkdownReader struct{}

// NewMarkdownReader creates a Markdown input reader.
func NewMarkdownReader() *MarkdownReader {
	return &MarkdownReader{}
}

// Decode splits frontmatter from body. Broken frontmatter does not fail the
// decode; the whole content is kept as body instead.
func (m *MarkdownReader) Decode(filename string, content []byte) (*Source, error) {
	src := &Source{
		Filename: filepath.Base(filename),
		Markdown: string(content),
	}

	str := string(content)
	if strings.HasPrefix(str, "---\n") || strings.HasPrefix(str, "---\r\n") {
		frontmatter, body, err := splitFrontmatter(str)
		if err == nil {
			src.Frontmatter = frontmatter
			src.Markdown = body
		}
	}

	if title, ok := src.Frontmatter["title"].(string); ok {
		src.Title = title
	} else {
		src.Title = markdownTitle(src.Markdown)
	}

	return src, nil
}

// CanDecode returns true for Markdown and plain text MIME types.
func (m *MarkdownReader) CanDecode(mimeType string) bool {
	switch mimeType {
	case "text/markdown", "text/x-markdown", "text/plain":
		return true
	default:
		return false
	}
}

// MimeType returns the primary MIME type for this reader.
func (m *MarkdownReader) MimeType() string {
	return "text/markdown"
}

// splitFrontmatter parses a leading YAML frontmatter block. It returns the
// parsed map and the remaining body, or an error when the block is
// unterminated or not valid YAML.
func splitFrontmatter(content string) (map[string]any, string, error) {
	const delimiter = "---"

	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		closeIdx = strings.Index(content[start:], "\r\n"+delimiter)
	}
	if closeIdx == -1 {
		return nil, content, fmt.Errorf("no closing frontmatter delimiter")
	}

	yamlContent := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}
	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &frontmatter); err != nil {
		return nil, content, fmt.Errorf("parse YAML frontmatter: %w", err)
	}

	return frontmatter, body, nil
}

// markdownTitle returns the first H1 heading text, or "".
func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// ContentHash computes a SHA256 hash of the content.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
