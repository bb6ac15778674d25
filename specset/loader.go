package specset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/c360studio/speclint/document/parser"
)

// maxFetchBytes caps remote document size. Spec documents are text; anything
// larger is not one.
const maxFetchBytes = 16 << 20

var defaultClient = &http.Client{Timeout: 30 * time.Second}

// IsRemote reports whether p is an http(s) URL rather than a local file.
func IsRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func (s *SpecSet) read(ctx context.Context, p string) (string, error) {
	if IsRemote(p) {
		return s.fetch(ctx, p)
	}

	content, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	src, err := parser.DefaultRegistry.Decode(p, content)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", p, err)
	}
	return src.Markdown, nil
}

func (s *SpecSet) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	client := s.Client
	if client == nil {
		client = defaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	if isHTMLPayload(resp.Header.Get("Content-Type"), rawURL, body) {
		return htmlToMarkdown(rawURL, body)
	}
	return string(body), nil
}

// isHTMLPayload decides whether a fetched body needs HTML conversion. The
// declared content type wins; the URL extension and content sniffing are
// fallbacks for servers that declare nothing useful.
func isHTMLPayload(contentType, rawURL string, body []byte) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/html"), strings.Contains(ct, "xhtml"):
		return true
	case strings.Contains(ct, "markdown"), strings.Contains(ct, "text/plain"):
		return false
	}

	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".md", ".markdown", ".txt":
			return false
		case ".html", ".htm":
			return true
		}
	}
	return strings.Contains(http.DetectContentType(body), "text/html")
}

// htmlToMarkdown reduces a fetched page to its main content and converts it
// to Markdown. Pages readability cannot handle fall back to whole-page
// conversion, which strips chrome elements itself.
func htmlToMarkdown(rawURL string, body []byte) (string, error) {
	pageURL, _ := url.Parse(rawURL)

	content := body
	title := ""
	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil && strings.TrimSpace(article.Content) != "" {
		content = []byte(article.Content)
		title = article.Title
	}

	src, err := parser.NewHTMLReader().Decode(rawURL, content)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", rawURL, err)
	}

	markdown := src.Markdown
	if title == "" {
		title = src.Title
	}
	if title != "" && !strings.HasPrefix(strings.TrimSpace(markdown), "# ") {
		markdown = "# " + title + "\n\n" + markdown
	}
	return markdown, nil
}
