package document

import (
	"regexp"
	"sort"
	"strings"
)

// ID token patterns shared by the parser, the validation rules, and the
// traceability builder.
var (
	reqIDRe  = regexp.MustCompile(`\bREQ-\d{2}\b`)
	nfrIDRe  = regexp.MustCompile(`\bNFR-\d{2}\b`)
	kpiIDRe  = regexp.MustCompile(`\bKPI-\d{2}\b`)
	trIDRe   = regexp.MustCompile(`\bTR-\d{2}\b`)
	taskIDRe = regexp.MustCompile(`\bTASK-\d{2}(?:-\d{2}){0,2}\b`)
	dcIDRe   = regexp.MustCompile(`\bDC-\d{2}\b`)

	// Prefixed forms anchor a list item that introduces an ID, e.g.
	// "REQ-01: the system shall ..." or "TASK-01-02: implement the parser".
	prefixedReqRe  = regexp.MustCompile(`^(REQ-\d+|NFR-\d+|KPI-\d+|TR-\d+):\s*(.+)$`)
	prefixedTaskRe = regexp.MustCompile(`^(TASK-\d+(?:-\d+){0,2}):\s*(.+)$`)

	// Loose forms keep malformed IDs attached to their item so the format
	// rules can flag them instead of the item silently degrading.
	looseReqRe  = regexp.MustCompile(`^(REQ[-A-Za-z0-9]*|TR[-A-Za-z0-9]*|NFR[-A-Za-z0-9]*|KPI[-A-Za-z0-9]*):\s*(.+)$`)
	looseTaskRe = regexp.MustCompile(`^(TASK[-A-Za-z0-9]*):\s*(.+)$`)

	validReqIDRe  = regexp.MustCompile(`^(REQ|NFR|KPI|TR)-\d{2}$`)
	validTaskIDRe = regexp.MustCompile(`^TASK-\d{2}(-\d{2}){1,2}$`)

	dependencyPhraseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)depends on (TASK-\d{2}(?:-\d{2}){0,2})`),
		regexp.MustCompile(`(?i)requires (TASK-\d{2}(?:-\d{2}){0,2})`),
		regexp.MustCompile(`(?i)after (TASK-\d{2}(?:-\d{2}){0,2})`),
		regexp.MustCompile(`依存:\s*(TASK-\d{2}(?:-\d{2}){0,2})`),
	}

	acceptanceRes = []*regexp.Regexp{
		regexp.MustCompile(`受け入れ観点`),
		regexp.MustCompile(`受入観点`),
		regexp.MustCompile(`(?i)Acceptance criteria`),
		regexp.MustCompile(`テスト観点`),
		regexp.MustCompile(`(?i)Test criteria`),
	}

	boldNameRe     = regexp.MustCompile(`\*\*([A-Za-z][A-Za-z0-9_-]*)\*\*`)
	testScenarioRe = regexp.MustCompile(`\btest-[a-z0-9]+(?:-[a-z0-9]+)*\b`)
)

// ExtractRequirementID parses a requirement ID prefix from an item text such
// as "REQ-01: the system shall accept input". It returns the ID, the text
// with the prefix stripped, and the ID category. Malformed IDs like "REQ-1"
// are still extracted so format rules can flag them; ok is false only when no
// prefix is present at all.
func ExtractRequirementID(text string) (id, body string, cat IDCategory, ok bool) {
	text = strings.TrimSpace(text)

	if m := prefixedReqRe.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2]), CategoryOfID(m[1]), true
	}
	if m := looseReqRe.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2]), CategoryOfID(m[1]), true
	}
	return "", text, CategoryREQ, false
}

// CategoryOfID derives the ID category from an ID's prefix, defaulting to
// CategoryREQ for unprefixed or malformed IDs.
func CategoryOfID(id string) IDCategory {
	prefix, _, found := strings.Cut(id, "-")
	if !found {
		return CategoryREQ
	}
	switch prefix {
	case "NFR":
		return CategoryNFR
	case "KPI":
		return CategoryKPI
	case "TR":
		return CategoryTR
	default:
		return CategoryREQ
	}
}

// ExtractTaskID parses a task ID prefix from an item text such as
// "TASK-01-01: set up the environment". Malformed IDs are extracted the same
// way ExtractRequirementID handles them.
func ExtractTaskID(text string) (id, body string, ok bool) {
	text = strings.TrimSpace(text)

	if m := prefixedTaskRe.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	if m := looseTaskRe.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	return "", text, false
}

// AllRequirementIDs returns every well-formed requirement ID token in text,
// across all four categories, deduplicated and sorted.
func AllRequirementIDs(text string) []string {
	set := make(map[string]struct{})
	for _, re := range []*regexp.Regexp{reqIDRe, nfrIDRe, kpiIDRe, trIDRe} {
		for _, id := range re.FindAllString(text, -1) {
			set[id] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// AllTaskIDs returns every well-formed task ID token in text, deduplicated
// and sorted.
func AllTaskIDs(text string) []string {
	set := make(map[string]struct{})
	for _, id := range taskIDRe.FindAllString(text, -1) {
		set[id] = struct{}{}
	}
	return sortedKeys(set)
}

// AllDCRefs returns every DC-NN reference token in text, deduplicated and
// sorted.
func AllDCRefs(text string) []string {
	set := make(map[string]struct{})
	for _, id := range dcIDRe.FindAllString(text, -1) {
		set[id] = struct{}{}
	}
	return sortedKeys(set)
}

// TaskDependencies returns the task IDs named by dependency phrases in text,
// such as "depends on TASK-01-02", "after TASK-02-01", or "依存: TASK-01-01".
// Order follows first appearance; repeated mentions are collapsed.
func TaskDependencies(text string) []string {
	var deps []string
	seen := make(map[string]struct{})
	for _, re := range dependencyPhraseRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if _, dup := seen[m[1]]; dup {
				continue
			}
			seen[m[1]] = struct{}{}
			deps = append(deps, m[1])
		}
	}
	return deps
}

// IsAcceptanceCriteria reports whether text introduces acceptance criteria
// rather than a requirement or reference line. Such lines are excluded from
// ID reference scans.
func IsAcceptanceCriteria(text string) bool {
	for _, re := range acceptanceRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// BoldNames returns the identifier-shaped bold tokens in raw Markdown text,
// e.g. "**input-handler**" yields "input-handler". Deduplicated, order of
// first appearance.
func BoldNames(text string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range boldNameRe.FindAllStringSubmatch(text, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// TestScenarioNames returns the kebab-case test scenario tokens in text, e.g.
// "test-input-processing". Bold markers need not survive upstream processing;
// the bare token form is matched. Deduplicated and sorted.
func TestScenarioNames(text string) []string {
	set := make(map[string]struct{})
	for _, name := range testScenarioRe.FindAllString(text, -1) {
		set[name] = struct{}{}
	}
	return sortedKeys(set)
}

// ValidRequirementID reports whether id is a well-formed two-digit
// requirement ID. The numeric part 00 is reserved and rejected.
func ValidRequirementID(id string) bool {
	if !validReqIDRe.MatchString(id) {
		return false
	}
	_, num, _ := strings.Cut(id, "-")
	return num != "00"
}

// ValidTaskID reports whether id is a well-formed task ID of two or three
// two-digit parts, none of them 00.
func ValidTaskID(id string) bool {
	if !validTaskIDRe.MatchString(id) {
		return false
	}
	parts := strings.Split(id, "-")
	for _, p := range parts[1:] {
		if p == "00" {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
