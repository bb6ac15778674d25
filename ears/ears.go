// Package ears validates requirement sentences against the EARS ubiquitous
// template in Japanese and English, and measures compliance over whole
// documents. Only the ubiquitous pattern is supported.
package ears

import (
	"errors"
	"regexp"
	"strings"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/document/parser"
	"github.com/c360studio/speclint/i18n"
)

// PatternUbiquitous is the only EARS pattern currently enforced.
const PatternUbiquitous = "ubiquitous"

var (
	ubiquitousJa = regexp.MustCompile(`^(システムは|本システムは).+([あ-ん]ること|すること|する)[。]?$`)
	ubiquitousEn = regexp.MustCompile(`(?i)^The system shall .+\.$`)

	actionSuffixJa = regexp.MustCompile(`[あ-ん]ること[。]?$`)

	reqIDPrefixRe = regexp.MustCompile(`^(REQ-\d+|TR-\d+|NFR-\d+|KPI-\d+):\s*(.+)$`)

	listItemRes = []*regexp.Regexp{
		regexp.MustCompile(`^\s*[-*+]\s+(.+)$`),
		regexp.MustCompile(`^\s*\d+\.\s+(.+)$`),
		regexp.MustCompile(`^•\s+(.+)$`),
	}

	boldMarkRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicMarkRe = regexp.MustCompile(`\*(.+?)\*`)
	codeMarkRe   = regexp.MustCompile("`(.+?)`")
	linkMarkRe   = regexp.MustCompile(`\[(.+?)\]\(.+?\)`)

	// Items that live in requirement lists but are not requirements.
	skipItemRes = []*regexp.Regexp{
		regexp.MustCompile(`受け入れ観点`),
		regexp.MustCompile(`受入観点`),
		regexp.MustCompile(`(?i)Acceptance criteria`),
		regexp.MustCompile(`テスト観点`),
		regexp.MustCompile(`(?i)Test criteria`),
		regexp.MustCompile(`注意事項`),
		regexp.MustCompile(`(?i)Note:`),
		regexp.MustCompile(`備考`),
		regexp.MustCompile(`(?i)Remark:`),
	}
)

// Violation reason codes, used as i18n catalog key suffixes.
const (
	ReasonMissingSystemPrefixJa = "missing_system_prefix_ja"
	ReasonMissingActionSuffixJa = "missing_action_suffix_ja"
	ReasonPatternMismatchJa     = "pattern_mismatch_ja"
	ReasonMissingSystemPrefixEn = "missing_system_prefix_en"
	ReasonMissingShallEn        = "missing_shall_en"
	ReasonMissingPeriodEn       = "missing_period_en"
	ReasonPatternMismatchEn     = "pattern_mismatch_en"
)

// Violation is one requirement sentence that does not match the template.
type Violation struct {
	// Line is the 1-based source line for document analysis, or the
	// 1-based position in the supplied list for Analyze.
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Result reports compliance of a set of requirement sentences.
type Result struct {
	Pattern    string      `json:"pattern"`
	Total      int         `json:"total"`
	Matched    int         `json:"matched"`
	Rate       float64     `json:"rate"`
	Violations []Violation `json:"violations"`
}

// Compliant reports whether every non-empty requirement matched.
func (r Result) Compliant() bool {
	return len(r.Violations) == 0
}

// Analyze checks each requirement sentence against the ubiquitous template
// for lang. Empty strings are skipped. Violation lines are 1-based positions
// in the input slice.
func Analyze(requirements []string, lang document.Language) Result {
	res := Result{Pattern: PatternUbiquitous}
	pattern := ubiquitousEn
	if lang != document.LanguageEnglish {
		pattern = ubiquitousJa
	}

	for i, text := range requirements {
		req := strings.TrimSpace(text)
		if req == "" {
			continue
		}
		res.Total++
		if pattern.MatchString(req) {
			res.Matched++
			continue
		}
		code := violationCode(req, lang)
		res.Violations = append(res.Violations, Violation{
			Line:   i + 1,
			Text:   req,
			Code:   code,
			Reason: i18n.T(lang, "rules.ears.reason."+code),
		})
	}

	if res.Total > 0 {
		res.Rate = float64(res.Matched) / float64(res.Total)
	}
	return res
}

// AnalyzeDocument checks the requirement sentences under every functional
// requirements section of a parsed document. Violation lines are source
// lines.
func AnalyzeDocument(doc *document.Document) Result {
	res := Result{Pattern: PatternUbiquitous}
	pattern := ubiquitousEn
	if doc.Language != document.LanguageEnglish {
		pattern = ubiquitousJa
	}

	for _, s := range doc.Sections() {
		if s.Type != document.SectionFunctionalRequirements {
			continue
		}
		for _, blk := range document.Descendants(s) {
			text, line, ok := requirementSentence(blk)
			if !ok {
				continue
			}
			res.Total++
			if pattern.MatchString(text) {
				res.Matched++
				continue
			}
			code := violationCode(text, doc.Language)
			res.Violations = append(res.Violations, Violation{
				Line:   line,
				Text:   text,
				Code:   code,
				Reason: i18n.T(doc.Language, "rules.ears.reason."+code),
			})
		}
	}

	if res.Total > 0 {
		res.Rate = float64(res.Matched) / float64(res.Total)
	}
	return res
}

// AnalyzeContent extracts functional requirements from raw Markdown and
// checks them. Content with nothing to check yields an empty compliant
// result rather than an error.
func AnalyzeContent(content string, lang document.Language) (Result, error) {
	doc, err := parser.New().Parse(content, lang, document.KindRequirements)
	if err != nil {
		if errors.Is(err, parser.ErrNoDocument) {
			return Result{Pattern: PatternUbiquitous}, nil
		}
		return Result{}, err
	}

	res := AnalyzeDocument(doc)
	if res.Total > 0 {
		return res, nil
	}

	// Documents without classifiable sections still get the line-based scan.
	return Analyze(ExtractRequirements(content), doc.Language), nil
}

// requirementSentence returns the checkable sentence for a block under a
// functional requirements section. Requirement blocks contribute their body;
// unpromoted list items contribute their first line with markup and any ID
// prefix stripped.
func requirementSentence(blk document.Block) (text string, line int, ok bool) {
	switch b := blk.(type) {
	case *document.Requirement:
		text = b.Body
	case *document.ListItem:
		text, _, _ = strings.Cut(b.Content, "\n")
		text = stripIDPrefix(strings.TrimSpace(text))
	default:
		return "", 0, false
	}

	text = strings.TrimSpace(text)
	if text == "" || !isRequirementItem(text) {
		return "", 0, false
	}
	line, _ = blk.Lines()
	return text, line, true
}

// ExtractRequirements scans raw Markdown lines for list items under a
// functional requirements heading, stripping inline markup and ID prefixes.
func ExtractRequirements(markdownText string) []string {
	var requirements []string
	inSection := false
	sectionLevel := 0

	for _, line := range strings.Split(markdownText, "\n") {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "#") {
			level := len(stripped) - len(strings.TrimLeft(stripped, "#"))
			header := strings.TrimSpace(strings.TrimLeft(stripped, "# "))

			if isFunctionalHeader(header) {
				inSection = true
				sectionLevel = level
				continue
			}
			if inSection && level <= sectionLevel {
				inSection = false
			}
			continue
		}

		if !inSection {
			continue
		}
		if text := extractListItem(stripped); text != "" && isRequirementItem(text) {
			requirements = append(requirements, text)
		}
	}

	return requirements
}

// isFunctionalHeader matches functional requirements headings in either
// language, refusing the non-functional variants.
func isFunctionalHeader(header string) bool {
	lower := strings.ToLower(header)
	if strings.Contains(header, "非機能要件") || strings.Contains(lower, "non-functional") {
		return false
	}
	return strings.Contains(header, "機能要件") || strings.Contains(lower, "functional requirements")
}

func extractListItem(line string) string {
	for _, re := range listItemRes {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[1])
		text = boldMarkRe.ReplaceAllString(text, "$1")
		text = italicMarkRe.ReplaceAllString(text, "$1")
		text = codeMarkRe.ReplaceAllString(text, "$1")
		text = linkMarkRe.ReplaceAllString(text, "$1")
		return stripIDPrefix(text)
	}
	return ""
}

func stripIDPrefix(text string) string {
	if m := reqIDPrefixRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[2])
	}
	return text
}

func isRequirementItem(text string) bool {
	for _, re := range skipItemRes {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// violationCode explains which part of the template a sentence misses.
func violationCode(req string, lang document.Language) string {
	if lang == document.LanguageEnglish {
		lower := strings.ToLower(req)
		switch {
		case !strings.HasPrefix(lower, "the system "):
			return ReasonMissingSystemPrefixEn
		case !strings.HasPrefix(lower, "the system shall"):
			return ReasonMissingShallEn
		case !strings.HasSuffix(req, "."):
			return ReasonMissingPeriodEn
		default:
			return ReasonPatternMismatchEn
		}
	}

	if !strings.HasPrefix(req, "システムは") && !strings.HasPrefix(req, "本システムは") {
		return ReasonMissingSystemPrefixJa
	}
	if !hasActionSuffixJa(req) {
		return ReasonMissingActionSuffixJa
	}
	return ReasonPatternMismatchJa
}

func hasActionSuffixJa(req string) bool {
	for _, suffix := range []string{"すること。", "する。", "すること", "する"} {
		if strings.HasSuffix(req, suffix) {
			return true
		}
	}
	return actionSuffixJa.MatchString(req)
}
