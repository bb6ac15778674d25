package rules

import (
	"github.com/c360studio/speclint/ears"
	"github.com/c360studio/speclint/i18n"
	"github.com/c360studio/speclint/validation"
)

// EARSComplianceRule checks every requirement under the functional
// requirements section against the EARS ubiquitous template. The full
// compliance report lands in the result statistics under "ears".
type EARSComplianceRule struct{}

func NewEARSCompliance() *EARSComplianceRule {
	return &EARSComplianceRule{}
}

func (r *EARSComplianceRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "EARS-REQ-001",
		Name:     "EARS Pattern Compliance",
		Category: validation.CategoryContent,
		Severity: validation.SeverityError,
	}
}

func (r *EARSComplianceRule) Evaluate(ctx *validation.Context) []validation.Issue {
	meta := r.Meta()
	res := ears.AnalyzeDocument(ctx.Primary)

	var issues []validation.Issue
	for _, v := range res.Violations {
		issues = append(issues, validation.Issue{
			RuleID:   meta.ID,
			RuleName: meta.Name,
			Severity: validation.SeverityError,
			Message:  i18n.T(ctx.Language, "rules.ears.violation", "reason", v.Reason),
			Location: validation.Location{LineStart: v.Line, LineEnd: v.Line},
		})
	}
	return issues
}

func (r *EARSComplianceRule) ReportStats(ctx *validation.Context, stats map[string]any) {
	stats["ears"] = ears.AnalyzeDocument(ctx.Primary)
}
