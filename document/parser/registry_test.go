package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownReaderFrontmatter(t *testing.T) {
	content := []byte(`---
title: 要件定義書
version: 3
---

# Requirements

Body text.
`)
	src, err := NewMarkdownReader().Decode("requirements.md", content)
	require.NoError(t, err)

	assert.Equal(t, "要件定義書", src.Title)
	assert.Equal(t, 3, src.Frontmatter["version"])
	assert.False(t, strings.Contains(src.Markdown, "---"))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(src.Markdown), "# Requirements"))
}

func TestMarkdownReaderNoFrontmatter(t *testing.T) {
	src, err := NewMarkdownReader().Decode("plain.md", []byte("# Title Line\n\nBody.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Title Line", src.Title)
	assert.Nil(t, src.Frontmatter)
}

func TestMarkdownReaderBrokenFrontmatter(t *testing.T) {
	content := []byte("---\ntitle: unclosed\n\n# Heading\n")
	src, err := NewMarkdownReader().Decode("broken.md", content)
	require.NoError(t, err)
	assert.Equal(t, string(content), src.Markdown)
}

func TestHTMLReaderDecode(t *testing.T) {
	content := []byte(`<html>
<head><title>Design Document</title></head>
<body>
<nav><a href="/">Home</a></nav>
<main>
<h1>Design</h1>
<p>The <strong>input-handler</strong> component accepts input.</p>
<ul><li>REQ-01: accepted</li></ul>
</main>
<footer>Copyright</footer>
</body>
</html>`)
	src, err := NewHTMLReader().Decode("design.html", content)
	require.NoError(t, err)

	assert.Equal(t, "Design Document", src.Title)
	assert.Contains(t, src.Markdown, "# Design")
	assert.Contains(t, src.Markdown, "input-handler")
	assert.Contains(t, src.Markdown, "REQ-01")
	assert.NotContains(t, src.Markdown, "Home")
	assert.NotContains(t, src.Markdown, "Copyright")
}

func TestMimeTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".md", "text/markdown"},
		{".markdown", "text/markdown"},
		{".txt", "text/plain"},
		{".html", "text/html"},
		{".htm", "text/html"},
		{".bin", "application/octet-stream"},
		{"", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := MimeTypeFromExtension(tt.ext); got != tt.want {
			t.Errorf("MimeTypeFromExtension(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestRegistryRouting(t *testing.T) {
	reg := NewRegistry()

	r := reg.GetByExtension("doc.md")
	require.NotNil(t, r)
	assert.Equal(t, "text/markdown", r.MimeType())

	r = reg.GetByExtension("doc.html")
	require.NotNil(t, r)
	assert.Equal(t, "text/html", r.MimeType())

	// text/plain is not a registered key but the markdown reader accepts it.
	r = reg.GetByMimeType("text/plain")
	require.NotNil(t, r)
	assert.Equal(t, "text/markdown", r.MimeType())

	assert.Nil(t, reg.GetByMimeType("image/png"))

	_, err := reg.Decode("photo.png", []byte{0x89})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	src, err := reg.Decode("doc.md", []byte("# Hello\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", src.Title)
	assert.Equal(t, "doc.md", src.Filename)
}
