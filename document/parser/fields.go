package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/c360studio/speclint/document"
)

// Promotion looks for an ID token within the first few characters of an
// item, so stray decoration before the ID does not defeat it.
const nearStartLimit = 4

var (
	sectionNumberRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)[.\s]+(.+)$`)

	nearReqIDRe  = regexp.MustCompile(`\b(?:REQ|NFR|KPI|TR)-\d{2}\b`)
	nearTaskIDRe = regexp.MustCompile(`\bTASK-\d{2}(?:-\d{2}){0,2}\b`)

	estimateRe    = regexp.MustCompile(`[（(]\s*(?:工数|Estimate|Effort)\s*[:：]\s*([^()（）]+?)\s*[)）]`)
	bracketNameRe = regexp.MustCompile(`\[([A-Za-z][A-Za-z0-9_-]*)\]`)
	idTokenRe     = regexp.MustCompile(`^(?:REQ|NFR|KPI|TR|TASK|DC)-\d`)
	plainNameRe   = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

// promoteItem builds the strongest block the item text supports: a Task for
// task ID forms, a Requirement for requirement ID forms, and a generic
// ListItem otherwise. Only the first line of the item takes part in the
// decision.
func promoteItem(base document.Base, itemText string, checked, hasCheckbox, numbered bool) document.Block {
	first, _, _ := strings.Cut(itemText, "\n")
	first = strings.TrimSpace(first)

	if id, body, ok := taskPromotion(first, hasCheckbox); ok {
		t := &document.Task{Base: base, ID: id, Checked: checked, Body: body}
		if m := estimateRe.FindStringSubmatch(body); m != nil {
			t.Estimate = strings.TrimSpace(m[1])
		}
		return t
	}
	if id, body, cat, ok := requirementPromotion(first); ok {
		return &document.Requirement{Base: base, ID: id, Category: cat, Body: body}
	}
	return &document.ListItem{Base: base, Content: itemText, Numbered: numbered}
}

// taskPromotion recognizes "TASK-01-01: description" prefixes in any item,
// and bare near-start task IDs when the item is in checkbox form.
func taskPromotion(first string, hasCheckbox bool) (id, body string, ok bool) {
	if id, body, ok := document.ExtractTaskID(first); ok {
		return id, body, true
	}
	if hasCheckbox {
		if loc := nearTaskIDRe.FindStringIndex(first); loc != nil && loc[0] < nearStartLimit {
			return first[loc[0]:loc[1]], strings.TrimSpace(first[loc[1]:]), true
		}
	}
	return "", "", false
}

// requirementPromotion recognizes "REQ-01: description" prefixes and bare
// near-start requirement IDs, as used by traceability lines such as
// "REQ-01 ⇔ input-handler ⇔ TASK-01-01".
func requirementPromotion(first string) (id, body string, cat document.IDCategory, ok bool) {
	if id, body, cat, ok := document.ExtractRequirementID(first); ok {
		return id, body, cat, true
	}
	if loc := nearReqIDRe.FindStringIndex(first); loc != nil && loc[0] < nearStartLimit {
		id := first[loc[0]:loc[1]]
		return id, first, document.CategoryOfID(id), true
	}
	return "", first, document.CategoryREQ, false
}

// Sub-field labels recognized under a task item.
const (
	labelDependencies = "dependencies"
	labelRelated      = "related"
	labelComponents   = "components"
	labelEstimate     = "estimate"
	labelUnknown      = ""
)

// collectTaskFields fills the task's structured fields from its body line
// and its sub-items. Sub-items remain attached as child blocks; the fields
// are derived views over them.
func collectTaskFields(t *document.Task) {
	t.Requirements = appendUnique(t.Requirements, document.AllRequirementIDs(t.Body)...)
	t.Dependencies = appendUnique(t.Dependencies, document.TaskDependencies(t.Body)...)

	for _, c := range t.Children() {
		li, ok := c.(*document.ListItem)
		if !ok {
			continue
		}
		applyTaskField(t, li)
	}
}

func applyTaskField(t *document.Task, li *document.ListItem) {
	text := strings.TrimSpace(li.Content)

	if document.IsAcceptanceCriteria(text) {
		if _, rest, found := cutLabel(text); found && rest != "" {
			t.Acceptance = append(t.Acceptance, rest)
		}
		for _, c := range li.Children() {
			if sub, ok := c.(*document.ListItem); ok {
				t.Acceptance = append(t.Acceptance, strings.TrimSpace(sub.Content))
			}
		}
		return
	}

	label, rest, found := cutLabel(text)
	if !found {
		t.Dependencies = appendUnique(t.Dependencies, document.TaskDependencies(text)...)
		return
	}

	switch classifyLabel(label) {
	case labelDependencies:
		t.Dependencies = appendUnique(t.Dependencies, document.AllTaskIDs(rest)...)
	case labelRelated:
		t.Requirements = appendUnique(t.Requirements, document.AllRequirementIDs(rest)...)
		t.DesignRefs = appendUnique(t.DesignRefs, referenceNames(rest, firstLine(li.Raw()))...)
	case labelComponents:
		t.Requirements = appendUnique(t.Requirements, document.AllRequirementIDs(rest)...)
		t.DesignRefs = appendUnique(t.DesignRefs, referenceNames(rest, firstLine(li.Raw()))...)
		t.DesignRefs = appendUnique(t.DesignRefs, plainNames(rest)...)
	case labelEstimate:
		if t.Estimate == "" {
			t.Estimate = rest
		}
	default:
		t.Dependencies = appendUnique(t.Dependencies, document.TaskDependencies(text)...)
	}
}

// cutLabel splits "label: rest" at the first ASCII or full-width colon.
func cutLabel(text string) (label, rest string, found bool) {
	for i, r := range text {
		if r != ':' && r != '：' {
			continue
		}
		label = strings.TrimSpace(strings.Trim(text[:i], "* \t"))
		rest = strings.TrimSpace(text[i+utf8.RuneLen(r):])
		return label, rest, true
	}
	return "", text, false
}

// classifyLabel maps a sub-field label to its canonical field, accepting the
// naming variants seen in both languages.
func classifyLabel(label string) string {
	switch strings.ToLower(label) {
	case "依存", "依存関係", "前提", "dependencies", "depends", "depends on":
		return labelDependencies
	case "関連", "参照", "要件", "related", "references", "refs", "requirements":
		return labelRelated
	case "dc", "コンポーネント", "対象コンポーネント", "component", "components":
		return labelComponents
	case "工数", "見積", "estimate", "effort":
		return labelEstimate
	default:
		return labelUnknown
	}
}

// referenceNames extracts design component and test scenario names from a
// sub-field value: bracketed names from the extracted text, bold names from
// the raw line, and DC-NN or test-* tokens. ID tokens of other categories
// are left to the ID scans.
func referenceNames(rest, rawLine string) []string {
	var names []string
	for _, m := range bracketNameRe.FindAllStringSubmatch(rest, -1) {
		if !isIDToken(m[1]) {
			names = append(names, m[1])
		}
	}
	for _, n := range document.BoldNames(rawLine) {
		if !isIDToken(n) {
			names = append(names, n)
		}
	}
	names = append(names, document.AllDCRefs(rest)...)
	names = append(names, document.TestScenarioNames(rest)...)
	return names
}

// plainNames keeps bare kebab-case component names from a comma-separated
// value, e.g. "DC: svc, input-handler".
func plainNames(rest string) []string {
	var names []string
	for _, part := range strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == '、' }) {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "*[]"))
		if plainNameRe.MatchString(part) && !isIDToken(part) {
			names = append(names, part)
		}
	}
	return names
}

func isIDToken(s string) bool {
	return idTokenRe.MatchString(s)
}

func firstLine(s string) string {
	first, _, _ := strings.Cut(s, "\n")
	return first
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
