package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// Specification documents are often shared as wiki or intranet exports.
// HTMLReader recovers Markdown from such exports so the block parser can
// treat them like native Markdown files.
type HTMLReader struct {
	converter *md.Converter
}

// NewHTMLReader creates an HTML input reader with GitHub-flavored Markdown
// output.
func NewHTMLReader() *HTMLReader {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &HTMLReader{converter: converter}
}

// Decode converts HTML content to Markdown source.
func (h *HTMLReader) Decode(filename string, content []byte) (*Source, error) {
	title, body := extractContent(content)

	markdown, err := h.converter.ConvertString(body)
	if err != nil {
		return nil, fmt.Errorf("convert HTML: %w", err)
	}
	markdown = tidyMarkdown(markdown)

	if title == "" {
		title = markdownTitle(markdown)
	}

	return &Source{
		Filename: filepath.Base(filename),
		Title:    title,
		Markdown: markdown,
	}, nil
}

// CanDecode returns true for HTML MIME types.
func (h *HTMLReader) CanDecode(mimeType string) bool {
	switch mimeType {
	case "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

// MimeType returns the primary MIME type for this reader.
func (h *HTMLReader) MimeType() string {
	return "text/html"
}

var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
)

// chromeTags are elements that never carry document content.
var chromeTags = map[string]bool{
	"nav": true, "header": true, "footer": true, "aside": true,
	"script": true, "style": true, "noscript": true, "iframe": true,
	"form": true, "button": true,
}

// extractContent parses the HTML, drops page chrome, and returns the page
// title plus the content area rendered back to HTML. When parsing fails the
// raw content is returned with scripts and styles stripped.
func extractContent(content []byte) (title, body string) {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		cleaned := scriptRe.ReplaceAllString(string(content), "")
		cleaned = styleRe.ReplaceAllString(cleaned, "")
		return "", cleaned
	}

	title = findTitle(doc)
	pruneChrome(doc)

	for _, tag := range []string{"main", "article", "body"} {
		if node := findElement(doc, tag); node != nil {
			return title, renderNode(node)
		}
	}
	return title, string(content)
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

func findElement(n *html.Node, tag string) *html.Node {
	var result *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return result
}

// pruneChrome removes navigation and scripting elements in place.
func pruneChrome(n *html.Node) {
	var toRemove []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && chromeTags[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	html.Render(&sb, n)
	return sb.String()
}

// tidyMarkdown normalizes converter output: excessive blank runs collapse
// and trailing whitespace is stripped per line.
func tidyMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
