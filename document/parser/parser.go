// Package parser turns raw specification Markdown into the typed block tree
// defined by the document package. Headings open sections, list items are
// promoted to requirement or task blocks when they carry an ID pattern, and
// everything else degrades to generic paragraph or list item blocks rather
// than failing the parse.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/document/section"
)

// ErrNoDocument is returned when the input contains no parseable content, so
// no document root can be established.
var ErrNoDocument = errors.New("no document content")

// Parser parses specification Markdown into block trees. A Parser is safe
// for concurrent use; each Parse call builds an independent tree.
type Parser struct {
	md goldmark.Markdown
}

// New returns a Parser with checkbox list support enabled.
func New() *Parser {
	return &Parser{
		md: goldmark.New(goldmark.WithExtensions(extension.TaskList)),
	}
}

// Parse builds the block tree for markdownText. The language selects the
// section synonym tables; document.LanguageAuto detects it from content.
// The document kind resolves heading synonyms that are ambiguous across
// kinds and must always be supplied by the caller.
func (p *Parser) Parse(markdownText string, lang document.Language, kind document.DocumentKind) (*document.Document, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", document.ErrUnsupportedKind, kind)
	}
	if lang == document.LanguageAuto || lang == "" {
		lang = DetectLanguage(markdownText)
	}
	if !lang.IsValid() {
		return nil, fmt.Errorf("%w: %q", document.ErrUnsupportedLanguage, lang)
	}
	if strings.TrimSpace(markdownText) == "" {
		return nil, ErrNoDocument
	}

	classifier, err := section.NewClassifier(kind, lang)
	if err != nil {
		return nil, err
	}

	src := []byte(markdownText)
	root := p.md.Parser().Parse(text.NewReader(src))

	b := newBuilder(src, markdownText, classifier)
	doc := &document.Document{
		Base: document.Base{
			LineStart: 1,
			LineEnd:   b.lineCount,
			Pos:       b.nextOrdinal(),
			Text:      markdownText,
		},
		Language: lang,
		DocKind:  kind,
	}
	b.doc = doc

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		b.buildTopLevel(n)
	}
	b.closeSections(b.lineCount + 1)

	return doc, nil
}

// builder holds the per-parse state while the block tree is assembled.
type builder struct {
	src        []byte
	srcLines   []string
	offsets    []int
	lineCount  int
	classifier *section.Classifier

	doc      *document.Document
	sections []*document.Section // open sections, innermost last
	ordinal  int
	lastLine int
}

func newBuilder(src []byte, markdownText string, classifier *section.Classifier) *builder {
	lines := strings.Split(markdownText, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	offsets := make([]int, 1, len(lines)+1)
	for i, c := range src {
		if c == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return &builder{
		src:        src,
		srcLines:   lines,
		offsets:    offsets,
		lineCount:  len(lines),
		classifier: classifier,
		lastLine:   1,
	}
}

func (b *builder) nextOrdinal() int {
	n := b.ordinal
	b.ordinal++
	return n
}

// lineAt converts a byte offset into a 1-based line number.
func (b *builder) lineAt(offset int) int {
	return sort.Search(len(b.offsets), func(i int) bool { return b.offsets[i] > offset })
}

// rawSpan returns the source text of lines start through end inclusive.
func (b *builder) rawSpan(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > b.lineCount {
		end = b.lineCount
	}
	if end < start {
		end = start
	}
	return strings.Join(b.srcLines[start-1:end], "\n")
}

// container returns the innermost open section, or the document root when no
// section is open.
func (b *builder) container() document.Block {
	if len(b.sections) > 0 {
		return b.sections[len(b.sections)-1]
	}
	return b.doc
}

func (b *builder) buildTopLevel(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		b.buildHeading(node)
	case *ast.List:
		b.buildList(b.container(), node)
	case *ast.ThematicBreak:
		// Horizontal rules carry no content.
	default:
		b.buildParagraph(n)
	}
}

func (b *builder) buildHeading(h *ast.Heading) {
	line := b.headingLine(h)
	title := inlineText(h, b.src)

	if h.Level == 1 {
		b.closeSections(line)
		if b.doc.Title == "" {
			b.doc.Title = title
			b.lastLine = line
			return
		}
		hd := &document.Heading{
			Base: document.Base{
				LineStart: line,
				LineEnd:   line,
				Pos:       b.nextOrdinal(),
				Text:      b.rawSpan(line, line),
			},
			Level: h.Level,
			Title: title,
		}
		document.Attach(b.doc, hd)
		b.lastLine = line
		return
	}

	// Pop open sections at the same or deeper level, closing their spans at
	// the line above this heading.
	for len(b.sections) > 0 && b.sections[len(b.sections)-1].Level >= h.Level {
		b.popSection(line)
	}

	number, clean := splitSectionNumber(title)
	s := &document.Section{
		Base: document.Base{
			LineStart: line,
			LineEnd:   line, // extended when the section closes
			Pos:       b.nextOrdinal(),
			Text:      b.rawSpan(line, line),
		},
		Level:  h.Level,
		Title:  clean,
		Number: number,
		Type:   b.classifier.Classify(title),
	}
	document.Attach(b.container(), s)
	b.sections = append(b.sections, s)
	b.lastLine = line
}

func (b *builder) popSection(nextHeadingLine int) {
	s := b.sections[len(b.sections)-1]
	b.sections = b.sections[:len(b.sections)-1]
	end := nextHeadingLine - 1
	if end < s.LineStart {
		end = s.LineStart
	}
	s.LineEnd = end
	s.Text = b.rawSpan(s.LineStart, end)
}

// closeSections pops every open section as if a heading appeared at line.
func (b *builder) closeSections(line int) {
	for len(b.sections) > 0 {
		b.popSection(line)
	}
}

func (b *builder) headingLine(h *ast.Heading) int {
	if lines := h.Lines(); lines.Len() > 0 {
		return b.lineAt(lines.At(0).Start)
	}
	return b.lastLine
}

func (b *builder) buildParagraph(n ast.Node) {
	start, end := b.nodeSpan(n)
	if start == 0 {
		return
	}
	p := &document.Paragraph{
		Base: document.Base{
			LineStart: start,
			LineEnd:   end,
			Pos:       b.nextOrdinal(),
			Text:      b.rawSpan(start, end),
		},
	}
	document.Attach(b.container(), p)
	b.lastLine = end
}

// buildList attaches one block per list item to parent, promoting items that
// carry requirement or task ID patterns. Nested lists recurse with the new
// block as parent, so multi-level breakdowns keep their structure.
func (b *builder) buildList(parent document.Block, list *ast.List) {
	numbered := list.IsOrdered()

	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		item, ok := li.(*ast.ListItem)
		if !ok {
			continue
		}

		content, nested := splitListItem(item)
		itemText := inlineMultiText(content, b.src)
		checked, hasCheckbox := checkboxState(content)

		start, end := b.nodeSpan(item)
		if start == 0 {
			start, end = b.lastLine, b.lastLine
		}
		base := document.Base{
			LineStart: start,
			LineEnd:   end,
			Pos:       b.nextOrdinal(),
			Text:      b.rawSpan(start, end),
		}

		blk := promoteItem(base, itemText, checked, hasCheckbox, numbered)
		document.Attach(parent, blk)
		b.lastLine = end

		for _, sub := range nested {
			b.buildList(blk, sub)
		}

		if task, isTask := blk.(*document.Task); isTask {
			collectTaskFields(task)
		}
	}
}

// nodeSpan returns the first and last source line covered by n's subtree, or
// zeros when the subtree has no line segments.
func (b *builder) nodeSpan(n ast.Node) (int, int) {
	start, end := 0, 0
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if seg.Stop <= seg.Start {
					continue
				}
				s := b.lineAt(seg.Start)
				e := b.lineAt(seg.Stop - 1)
				if start == 0 || s < start {
					start = s
				}
				if e > end {
					end = e
				}
			}
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return start, end
}

// splitListItem separates a list item's own content blocks from its nested
// lists.
func splitListItem(item *ast.ListItem) (content []ast.Node, nested []*ast.List) {
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if l, ok := c.(*ast.List); ok {
			nested = append(nested, l)
			continue
		}
		content = append(content, c)
	}
	return content, nested
}

// checkboxState reports whether the item carries a task-list checkbox and
// whether it is checked.
func checkboxState(content []ast.Node) (checked, found bool) {
	for _, n := range content {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if cb, ok := c.(*extast.TaskCheckBox); ok {
				return cb.IsChecked, true
			}
		}
	}
	return false, false
}

// inlineText extracts the plain text of a node's inline children. Emphasis
// and checkbox markers are dropped; soft line breaks become newlines.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeInlineText(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

// inlineMultiText joins the inline text of several sibling blocks.
func inlineMultiText(nodes []ast.Node, src []byte) string {
	var parts []string
	for _, n := range nodes {
		if t := inlineText(n, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func writeInlineText(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			writeInlineText(buf, c, src)
		}
	}
}

// splitSectionNumber separates a numbering prefix such as "6." or "2.1" from
// a heading title.
func splitSectionNumber(title string) (number, clean string) {
	m := sectionNumberRe.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return "", strings.TrimSpace(title)
	}
	return m[1], strings.TrimSpace(m[2])
}
