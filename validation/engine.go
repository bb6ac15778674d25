package validation

import (
	"fmt"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/i18n"
)

// Sets holds the ordered rule list for each document kind.
type Sets struct {
	Requirements []Rule
	Design       []Rule
	Tasks        []Rule
}

// Engine runs the rule set for a document's kind and assembles the result.
// An engine is immutable after construction and safe for concurrent use;
// every validation call works on its own context and result.
type Engine struct {
	language document.Language
	sets     Sets
}

// NewEngine builds an engine over compile-time rule sets. lang is the
// fallback message language for documents whose own language is unset.
func NewEngine(lang document.Language, sets Sets) *Engine {
	if lang != document.LanguageJapanese && lang != document.LanguageEnglish {
		lang = document.LanguageJapanese
	}
	return &Engine{language: lang, sets: sets}
}

// ValidateRequirements runs the requirements rule set.
func (e *Engine) ValidateRequirements(doc *document.Document) *Result {
	ctx := e.newContext(doc)
	return e.run(document.KindRequirements, e.sets.Requirements, ctx)
}

// ValidateDesign runs the design rule set. requirements may be nil; coverage
// rules then have nothing to check against and stay silent.
func (e *Engine) ValidateDesign(doc, requirements *document.Document) *Result {
	ctx := e.newContext(doc)
	ctx.Requirements = requirements
	return e.run(document.KindDesign, e.sets.Design, ctx)
}

// ValidateTasks runs the tasks rule set. requirements and design may be nil.
func (e *Engine) ValidateTasks(doc, requirements, design *document.Document) *Result {
	ctx := e.newContext(doc)
	ctx.Requirements = requirements
	ctx.Design = design
	return e.run(document.KindTasks, e.sets.Tasks, ctx)
}

func (e *Engine) newContext(doc *document.Document) *Context {
	lang := doc.Language
	if lang != document.LanguageJapanese && lang != document.LanguageEnglish {
		lang = e.language
	}
	return &Context{Primary: doc, Language: lang}
}

func (e *Engine) run(kind document.DocumentKind, rules []Rule, ctx *Context) *Result {
	res := &Result{
		Kind:          kind,
		Language:      ctx.Language,
		Stats:         map[string]any{},
		FoundSections: foundSections(ctx.Primary),
	}

	for _, rule := range rules {
		meta := rule.Meta()
		issues := evaluate(rule, meta, ctx)
		res.Issues = append(res.Issues, issues...)
		res.RuleResults = append(res.RuleResults, RuleResult{
			RuleID:   meta.ID,
			RuleName: meta.Name,
			IsValid:  !hasError(issues),
			Issues:   issues,
		})
	}

	for _, rule := range rules {
		reportStats(rule, ctx, res.Stats)
	}

	res.IsValid = !hasError(res.Issues)
	return res
}

// evaluate runs one rule, converting a panic into a single error issue so
// the remaining rules still run.
func evaluate(rule Rule, meta Meta, ctx *Context) (issues []Issue) {
	defer func() {
		if r := recover(); r != nil {
			issues = []Issue{{
				RuleID:   meta.ID,
				RuleName: meta.Name,
				Severity: SeverityError,
				Message: i18n.T(ctx.Language, "rules.engine.rule_failed",
					"rule", meta.ID, "error", fmt.Sprint(r)),
				Location: DocumentLocation,
			}}
		}
	}()
	return rule.Evaluate(ctx)
}

// reportStats asks a stats-owning rule for its counters. A panicking
// reporter contributes nothing; the issues it produced stand on their own.
func reportStats(rule Rule, ctx *Context, stats map[string]any) {
	sr, ok := rule.(StatsReporter)
	if !ok {
		return
	}
	defer func() {
		_ = recover()
	}()
	sr.ReportStats(ctx, stats)
}

func hasError(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// foundSections lists level 2 section titles in document order, the shape
// downstream consumers expect.
func foundSections(doc *document.Document) []string {
	var titles []string
	for _, s := range doc.Sections() {
		if s.Level == 2 && s.Title != "" {
			titles = append(titles, s.Title)
		}
	}
	return titles
}
