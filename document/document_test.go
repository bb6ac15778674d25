package document

import (
	"reflect"
	"testing"
)

func buildTree() (*Document, *Section, *Section, *Requirement, *Task) {
	doc := &Document{
		Base:     Base{LineStart: 1, LineEnd: 12, Pos: 0},
		Title:    "Requirements",
		Language: LanguageJapanese,
		DocKind:  KindRequirements,
	}
	overview := &Section{
		Base:  Base{LineStart: 3, LineEnd: 4, Pos: 1},
		Level: 2, Title: "1. 概要", Type: SectionOverview,
	}
	functional := &Section{
		Base:  Base{LineStart: 6, LineEnd: 10, Pos: 2},
		Level: 2, Title: "6. 機能要件（EARS）", Type: SectionFunctionalRequirements,
	}
	req := &Requirement{
		Base: Base{LineStart: 7, LineEnd: 7, Pos: 3},
		ID:   "REQ-01", Category: CategoryREQ, Body: "システムは、入力を受け付けること",
	}
	task := &Task{
		Base: Base{LineStart: 9, LineEnd: 9, Pos: 4},
		ID:   "TASK-01-01", Body: "環境セットアップ",
	}
	Attach(doc, overview)
	Attach(doc, functional)
	Attach(functional, req)
	Attach(functional, task)
	return doc, overview, functional, req, task
}

func TestAttachSetsParentAndOrder(t *testing.T) {
	doc, overview, functional, req, _ := buildTree()

	if got := len(doc.Children()); got != 2 {
		t.Fatalf("doc children = %d, want 2", got)
	}
	if doc.Children()[0] != Block(overview) || doc.Children()[1] != Block(functional) {
		t.Error("children not in attach order")
	}
	if req.Parent() != Block(functional) {
		t.Error("requirement parent not set")
	}
	if doc.Parent() != nil {
		t.Error("document root must have nil parent")
	}
}

func TestWalkVisitsSourceOrder(t *testing.T) {
	doc, _, _, _, _ := buildTree()

	var kinds []Kind
	Walk(doc, func(b Block) { kinds = append(kinds, b.Kind()) })

	want := []Kind{KindDocument, KindSection, KindSection, KindRequirement, KindTask}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("walk order = %v, want %v", kinds, want)
	}
}

func TestBlocksByKind(t *testing.T) {
	doc, _, _, req, task := buildTree()

	tests := []struct {
		kind Kind
		want int
	}{
		{KindSection, 2},
		{KindRequirement, 1},
		{KindTask, 1},
		{KindParagraph, 0},
	}
	for _, tt := range tests {
		if got := len(doc.BlocksByKind(tt.kind)); got != tt.want {
			t.Errorf("BlocksByKind(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}

	if reqs := doc.Requirements(); len(reqs) != 1 || reqs[0] != req {
		t.Error("Requirements() did not return the requirement block")
	}
	if tasks := doc.Tasks(); len(tasks) != 1 || tasks[0] != task {
		t.Error("Tasks() did not return the task block")
	}
}

func TestSectionOfType(t *testing.T) {
	doc, _, functional, _, _ := buildTree()

	if got := doc.SectionOfType(SectionFunctionalRequirements); got != functional {
		t.Error("SectionOfType(functional_requirements) mismatch")
	}
	if got := doc.SectionOfType(SectionMilestones); got != nil {
		t.Errorf("SectionOfType(milestones) = %v, want nil", got)
	}
}

func TestContextPath(t *testing.T) {
	_, _, _, req, _ := buildTree()

	got := ContextPath(req)
	want := []string{"Requirements", "6. 機能要件（EARS）"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContextPath = %v, want %v", got, want)
	}
}

func TestDescendantsExcludesSelf(t *testing.T) {
	doc, _, _, _, _ := buildTree()

	desc := Descendants(doc)
	if len(desc) != 4 {
		t.Fatalf("descendants = %d, want 4", len(desc))
	}
	for _, b := range desc {
		if b.Kind() == KindDocument {
			t.Error("descendants must not include the root")
		}
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"ja", LanguageJapanese, false},
		{"Japanese", LanguageJapanese, false},
		{"en", LanguageEnglish, false},
		{"ENGLISH", LanguageEnglish, false},
		{"auto", LanguageAuto, false},
		{"", LanguageAuto, false},
		{"fr", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLanguage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDocumentKind(t *testing.T) {
	tests := []struct {
		in      string
		want    DocumentKind
		wantErr bool
	}{
		{"requirements", KindRequirements, false},
		{"req", KindRequirements, false},
		{"Design", KindDesign, false},
		{"tasks", KindTasks, false},
		{"plan", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDocumentKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDocumentKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDocumentKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
