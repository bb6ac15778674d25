// Package document defines the typed block tree produced by parsing a
// specification document. A parse yields a single Document root owning an
// ordered forest of Section, Requirement, Task, ListItem, Paragraph, and
// Heading blocks. Trees are built once by the parser and never mutated
// afterward; parent references are back-references only.
package document

// Kind identifies the variant of a block.
type Kind string

const (
	// KindDocument is the synthetic root of a parsed document.
	KindDocument Kind = "document"
	// KindSection is a heading-introduced section (level 2 and deeper).
	KindSection Kind = "section"
	// KindRequirement is a list item promoted by a requirement ID pattern.
	KindRequirement Kind = "requirement"
	// KindTask is a list item promoted by a task ID pattern.
	KindTask Kind = "task"
	// KindListItem is a bullet or numbered list entry with no stronger pattern.
	KindListItem Kind = "list_item"
	// KindParagraph is a run of plain text.
	KindParagraph Kind = "paragraph"
	// KindHeading is a level-1 heading other than the document title.
	KindHeading Kind = "heading"
)

// Block is the common interface of all parsed blocks. The unexported method
// keeps the set of implementations closed to this package.
type Block interface {
	// Kind returns the block variant.
	Kind() Kind
	// Lines returns the 1-based start and end line of the block's source span.
	Lines() (start, end int)
	// Ordinal returns the block's position in source order, counted across
	// the whole document.
	Ordinal() int
	// Raw returns the raw source text of the block.
	Raw() string
	// Parent returns the owning block, or nil for the Document root.
	Parent() Block
	// Children returns the owned child blocks in source order.
	Children() []Block

	base() *Base
}

// Base holds the attributes shared by every block kind.
type Base struct {
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	Pos       int    `json:"ordinal"`
	Text      string `json:"raw,omitempty"`

	parent   Block
	children []Block
}

// Lines returns the 1-based source line span.
func (b *Base) Lines() (int, int) { return b.LineStart, b.LineEnd }

// Ordinal returns the source-order position of the block.
func (b *Base) Ordinal() int { return b.Pos }

// Raw returns the raw source text of the block.
func (b *Base) Raw() string { return b.Text }

// Parent returns the owning block, or nil at the root.
func (b *Base) Parent() Block { return b.parent }

// Children returns the owned children in source order.
func (b *Base) Children() []Block { return b.children }

func (b *Base) base() *Base { return b }

// Attach appends child to parent and sets the child's back-reference.
// It is intended for use by the parser while the tree is under construction.
func Attach(parent, child Block) {
	pb := parent.base()
	cb := child.base()
	cb.parent = parent
	pb.children = append(pb.children, child)
}

// Document is the synthetic root block of a parse result.
type Document struct {
	Base
	Title    string       `json:"title"`
	Language Language     `json:"language"`
	DocKind  DocumentKind `json:"document_kind"`
}

// Kind returns KindDocument.
func (d *Document) Kind() Kind { return KindDocument }

// Section is a heading-introduced section. Level-2 sections carry a
// classified SectionType; deeper sections remain SectionUnknown.
type Section struct {
	Base
	Level  int         `json:"level"`
	Title  string      `json:"title"`
	Number string      `json:"number,omitempty"`
	Type   SectionType `json:"section_type"`
}

// Kind returns KindSection.
func (s *Section) Kind() Kind { return KindSection }

// IDCategory classifies a requirement identifier prefix.
type IDCategory string

const (
	// CategoryREQ is a functional requirement (REQ-NN).
	CategoryREQ IDCategory = "REQ"
	// CategoryNFR is a non-functional requirement (NFR-NN).
	CategoryNFR IDCategory = "NFR"
	// CategoryKPI is a key performance indicator (KPI-NN).
	CategoryKPI IDCategory = "KPI"
	// CategoryTR is a testing requirement (TR-NN).
	CategoryTR IDCategory = "TR"
)

// Requirement is a list item promoted by a requirement ID pattern such as
// "- **REQ-01**: the system shall ...".
type Requirement struct {
	Base
	ID       string     `json:"id"`
	Category IDCategory `json:"category"`
	// Body is the requirement sentence following the ID label.
	Body string `json:"body"`
}

// Kind returns KindRequirement.
func (r *Requirement) Kind() Kind { return KindRequirement }

// Task is a list item promoted by a task ID pattern, in either checkbox form
// "- [ ] TASK-01-01: ..." or bold-label form "- **TASK-01-01**: ...".
type Task struct {
	Base
	ID      string `json:"id"`
	Checked bool   `json:"checked"`
	// Body is the task description following the ID label.
	Body string `json:"body"`
	// Estimate is the raw effort annotation when present, e.g. "2h".
	Estimate string `json:"estimate,omitempty"`
	// Requirements lists requirement IDs referenced by the task's related or
	// REQ sub-fields.
	Requirements []string `json:"requirements,omitempty"`
	// DesignRefs lists design component and test scenario names from the
	// task's DC or related sub-fields.
	DesignRefs []string `json:"design_refs,omitempty"`
	// Dependencies lists task IDs this task depends on.
	Dependencies []string `json:"dependencies,omitempty"`
	// Acceptance holds acceptance-criteria lines attached to the task. These
	// lines are excluded from reference scans.
	Acceptance []string `json:"acceptance,omitempty"`
}

// Kind returns KindTask.
func (t *Task) Kind() Kind { return KindTask }

// ListItem is a list entry that matched no promotion pattern.
type ListItem struct {
	Base
	Content  string `json:"content"`
	Numbered bool   `json:"numbered"`
}

// Kind returns KindListItem.
func (l *ListItem) Kind() Kind { return KindListItem }

// Paragraph is a run of plain text outside any list.
type Paragraph struct {
	Base
}

// Kind returns KindParagraph.
func (p *Paragraph) Kind() Kind { return KindParagraph }

// Heading is a level-1 heading other than the one consumed as the document
// title.
type Heading struct {
	Base
	Level int    `json:"level"`
	Title string `json:"title"`
}

// Kind returns KindHeading.
func (h *Heading) Kind() Kind { return KindHeading }

// BlocksByKind walks the tree in source order and returns every block of the
// given kind.
func (d *Document) BlocksByKind(k Kind) []Block {
	var out []Block
	Walk(d, func(b Block) {
		if b.Kind() == k {
			out = append(out, b)
		}
	})
	return out
}

// Sections returns every section block in source order.
func (d *Document) Sections() []*Section {
	var out []*Section
	Walk(d, func(b Block) {
		if s, ok := b.(*Section); ok {
			out = append(out, s)
		}
	})
	return out
}

// Requirements returns every requirement block in source order.
func (d *Document) Requirements() []*Requirement {
	var out []*Requirement
	Walk(d, func(b Block) {
		if r, ok := b.(*Requirement); ok {
			out = append(out, r)
		}
	})
	return out
}

// Tasks returns every task block in source order.
func (d *Document) Tasks() []*Task {
	var out []*Task
	Walk(d, func(b Block) {
		if t, ok := b.(*Task); ok {
			out = append(out, t)
		}
	})
	return out
}

// SectionOfType returns the first level-2 section classified as t, or nil.
func (d *Document) SectionOfType(t SectionType) *Section {
	for _, s := range d.Sections() {
		if s.Level == 2 && s.Type == t {
			return s
		}
	}
	return nil
}

// Walk visits b and all its descendants in source order, calling fn on each.
func Walk(b Block, fn func(Block)) {
	fn(b)
	for _, c := range b.Children() {
		Walk(c, fn)
	}
}

// Descendants returns all blocks below b in source order, excluding b itself.
func Descendants(b Block) []Block {
	var out []Block
	for _, c := range b.Children() {
		Walk(c, func(x Block) { out = append(out, x) })
	}
	return out
}

// ContextPath returns the titles of the sections enclosing b, outermost
// first, ending with b's own title when b is itself a section.
func ContextPath(b Block) []string {
	var path []string
	for cur := b; cur != nil; cur = cur.Parent() {
		switch n := cur.(type) {
		case *Section:
			path = append(path, n.Title)
		case *Document:
			if n.Title != "" {
				path = append(path, n.Title)
			}
		}
	}
	// Reverse into outermost-first order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
