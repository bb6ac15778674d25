// Package report exposes the high level entry points the CLI and server
// build on: parse plus validate in one call, matrix building from raw text,
// and terminal rendering of the outcomes. It also converts results into the
// flat map shape older integrations consume.
package report

import (
	"fmt"
	"strings"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/document/parser"
	"github.com/c360studio/speclint/trace"
	"github.com/c360studio/speclint/validation"
	"github.com/c360studio/speclint/validation/rules"
)

// parseCacheSize bounds the shared parse memo.
const parseCacheSize = 128

// parseCache serves every parse in this package. A validate run reads the
// same companion text up to three times, and watch and server runs revalidate
// identical content; the memo collapses those to one parse each. Parsed trees
// are immutable, so sharing them is safe.
var parseCache = func() *parser.Cache {
	c, err := parser.NewCache(parser.New(), parseCacheSize)
	if err != nil {
		panic(err)
	}
	return c
}()

// ValidateRequirements parses markdownText as a requirements document and
// runs the default requirements rule set over it.
func ValidateRequirements(markdownText string, lang document.Language, opts ...rules.Option) (*validation.Result, error) {
	doc, err := parseCache.Parse(markdownText, lang, document.KindRequirements)
	if err != nil {
		return nil, fmt.Errorf("parse requirements: %w", err)
	}
	return newEngine(doc, opts).ValidateRequirements(doc), nil
}

// ValidateDesign parses markdownText as a design document and runs the
// default design rule set. requirementsText supplies the companion
// requirements document; when empty, coverage rules have nothing to check
// against and stay silent.
func ValidateDesign(markdownText string, lang document.Language, requirementsText string, opts ...rules.Option) (*validation.Result, error) {
	doc, err := parseCache.Parse(markdownText, lang, document.KindDesign)
	if err != nil {
		return nil, fmt.Errorf("parse design: %w", err)
	}
	reqs, err := companion(requirementsText, lang, document.KindRequirements)
	if err != nil {
		return nil, err
	}
	return newEngine(doc, opts).ValidateDesign(doc, reqs), nil
}

// ValidateTasks parses markdownText as a tasks document and runs the default
// tasks rule set against the optional companion requirements and design
// texts.
func ValidateTasks(markdownText string, lang document.Language, requirementsText, designText string, opts ...rules.Option) (*validation.Result, error) {
	doc, err := parseCache.Parse(markdownText, lang, document.KindTasks)
	if err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	reqs, err := companion(requirementsText, lang, document.KindRequirements)
	if err != nil {
		return nil, err
	}
	design, err := companion(designText, lang, document.KindDesign)
	if err != nil {
		return nil, err
	}
	return newEngine(doc, opts).ValidateTasks(doc, reqs, design), nil
}

// BuildMatrix parses whichever of the three texts are non-empty and builds
// the traceability matrix over them. Languages are detected per document.
func BuildMatrix(requirementsText, designText, tasksText string) (*trace.Matrix, error) {
	reqs, err := companion(requirementsText, document.LanguageAuto, document.KindRequirements)
	if err != nil {
		return nil, err
	}
	design, err := companion(designText, document.LanguageAuto, document.KindDesign)
	if err != nil {
		return nil, err
	}
	tasks, err := companion(tasksText, document.LanguageAuto, document.KindTasks)
	if err != nil {
		return nil, err
	}
	return trace.Build(reqs, design, tasks), nil
}

// Legacy flattens a result into the map shape older integrations parse:
// isValid, the issue messages in rule order, the stats table and the level 2
// section titles.
func Legacy(res *validation.Result) map[string]any {
	issues := make([]string, 0, len(res.Issues))
	for _, issue := range res.Issues {
		issues = append(issues, issue.Message)
	}
	sections := res.FoundSections
	if sections == nil {
		sections = []string{}
	}
	return map[string]any{
		"isValid":       res.IsValid,
		"issues":        issues,
		"stats":         res.Stats,
		"foundSections": sections,
	}
}

func newEngine(doc *document.Document, opts []rules.Option) *validation.Engine {
	return validation.NewEngine(doc.Language, rules.Default(opts...))
}

// companion parses an optional companion document. Blank text means the
// caller has no companion, not a parse failure.
func companion(text string, lang document.Language, kind document.DocumentKind) (*document.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	doc, err := parseCache.Parse(text, lang, kind)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", kind, err)
	}
	return doc, nil
}
