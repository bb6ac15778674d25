// Package validation runs composable rule sets over parsed specification
// documents. Each document kind has a fixed, ordered rule list; rules are
// pure functions from a validation context to issues, and specific rules
// additionally report the counters that make up the result statistics.
package validation

import (
	"github.com/c360studio/speclint/document"
)

// Severity classifies an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups rules by the concern they check.
type Category string

const (
	CategoryStructure    Category = "structure"
	CategoryFormat       Category = "format"
	CategoryContent      Category = "content"
	CategoryTraceability Category = "traceability"
	CategoryConsistency  Category = "consistency"
)

// Location places an issue in the source document.
type Location struct {
	LineStart   int      `json:"line_start"`
	LineEnd     int      `json:"line_end"`
	SectionPath []string `json:"section_path,omitempty"`
}

// DocumentLocation is the fallback location for issues that concern the
// document as a whole.
var DocumentLocation = Location{LineStart: 1, LineEnd: 1}

// LocationOf derives a Location from a block and its section ancestry.
func LocationOf(blk document.Block) Location {
	start, end := blk.Lines()
	return Location{
		LineStart:   start,
		LineEnd:     end,
		SectionPath: document.ContextPath(blk),
	}
}

// Issue is one finding produced by a rule.
type Issue struct {
	RuleID   string   `json:"ruleId"`
	RuleName string   `json:"ruleName"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// Meta describes a rule.
type Meta struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
}

// Rule checks one concern against the context's primary document. Evaluate
// must not mutate the documents; the same context is shared by every rule in
// a run.
type Rule interface {
	Meta() Meta
	Evaluate(ctx *Context) []Issue
}

// StatsReporter is implemented by rules that own result counters. The engine
// calls it after evaluation, in rule order, so later reporters may extend
// earlier entries.
type StatsReporter interface {
	ReportStats(ctx *Context, stats map[string]any)
}

// Context carries the primary document under validation plus whichever
// companion documents the caller supplied. Companion fields are nil when not
// provided; rules that need one must degrade to producing no issues.
type Context struct {
	Primary  *document.Document
	Language document.Language

	Requirements *document.Document
	Design       *document.Document
	Tasks        *document.Document
}

// RuleResult records a single rule's outcome.
type RuleResult struct {
	RuleID   string  `json:"ruleId"`
	RuleName string  `json:"ruleName"`
	IsValid  bool    `json:"isValid"`
	Issues   []Issue `json:"issues"`
}

// Result is the outcome of validating one document.
type Result struct {
	Kind          document.DocumentKind `json:"kind"`
	Language      document.Language     `json:"language"`
	IsValid       bool                  `json:"isValid"`
	Issues        []Issue               `json:"issues"`
	RuleResults   []RuleResult          `json:"results"`
	Stats         map[string]any        `json:"stats"`
	FoundSections []string              `json:"foundSections"`
}

// ErrorMessages returns the messages of all error-severity issues, in rule
// order.
func (r *Result) ErrorMessages() []string {
	var msgs []string
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			msgs = append(msgs, issue.Message)
		}
	}
	return msgs
}

// Summary condenses a result for programmatic consumers.
type Summary struct {
	IsValid     bool         `json:"isValid"`
	TotalRules  int          `json:"totalRules"`
	PassedRules int          `json:"passedRules"`
	FailedRules int          `json:"failedRules"`
	TotalErrors int          `json:"totalErrors"`
	Errors      []string     `json:"errors"`
	Results     []RuleResult `json:"results"`
}

// Summary condenses the per-rule results into pass/fail counts and the flat
// message list.
func (r *Result) Summary() Summary {
	s := Summary{
		TotalRules: len(r.RuleResults),
		Results:    r.RuleResults,
		Errors:     []string{},
	}
	for _, rr := range r.RuleResults {
		if rr.IsValid {
			s.PassedRules++
		} else {
			s.FailedRules++
		}
		s.TotalErrors += len(rr.Issues)
		for _, issue := range rr.Issues {
			s.Errors = append(s.Errors, issue.Message)
		}
	}
	s.IsValid = s.FailedRules == 0
	return s
}
