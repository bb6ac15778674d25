package rules

import (
	"strings"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/i18n"
	"github.com/c360studio/speclint/validation"
)

// RequirementIDFormatRule flags requirement IDs that do not match the
// two-digit form, REQ-01 through REQ-99 and the NFR, KPI, TR analogues.
// It also owns the requirement count statistics.
type RequirementIDFormatRule struct{}

func NewRequirementIDFormat() *RequirementIDFormatRule {
	return &RequirementIDFormatRule{}
}

func (r *RequirementIDFormatRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "FORMAT-REQ-001",
		Name:     "Requirement ID Format",
		Category: validation.CategoryFormat,
		Severity: validation.SeverityError,
	}
}

func (r *RequirementIDFormatRule) Evaluate(ctx *validation.Context) []validation.Issue {
	meta := r.Meta()
	var issues []validation.Issue
	for _, req := range ctx.Primary.Requirements() {
		if document.ValidRequirementID(req.ID) {
			continue
		}
		issues = append(issues, validation.Issue{
			RuleID:   meta.ID,
			RuleName: meta.Name,
			Severity: validation.SeverityError,
			Message:  i18n.T(ctx.Language, "rules.format.invalid_requirement_id", "id", req.ID),
			Location: validation.LocationOf(req),
		})
	}
	return issues
}

// ReportStats counts unique IDs per category, including malformed ones, so
// the totals reflect what the author wrote rather than what passed.
func (r *RequirementIDFormatRule) ReportStats(ctx *validation.Context, stats map[string]any) {
	counts := map[string]map[string]bool{
		"REQ-": {}, "NFR-": {}, "KPI-": {}, "TR-": {},
	}
	for _, req := range ctx.Primary.Requirements() {
		for prefix, set := range counts {
			if strings.HasPrefix(req.ID, prefix) {
				set[req.ID] = true
			}
		}
	}
	stats["totalRequirements"] = len(counts["REQ-"])
	stats["totalNFRs"] = len(counts["NFR-"])
	stats["totalKPIs"] = len(counts["KPI-"])
	stats["totalTRs"] = len(counts["TR-"])
}

// DuplicateRequirementIDRule reports each requirement ID that occurs more
// than once, once per ID at its first re-occurrence.
type DuplicateRequirementIDRule struct{}

func NewDuplicateRequirementID() *DuplicateRequirementIDRule {
	return &DuplicateRequirementIDRule{}
}

func (r *DuplicateRequirementIDRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "FORMAT-REQ-002",
		Name:     "Duplicate Requirement ID",
		Category: validation.CategoryFormat,
		Severity: validation.SeverityError,
	}
}

func (r *DuplicateRequirementIDRule) Evaluate(ctx *validation.Context) []validation.Issue {
	meta := r.Meta()
	seen := map[string]bool{}
	reported := map[string]bool{}
	var issues []validation.Issue

	for _, req := range ctx.Primary.Requirements() {
		if req.ID == "" {
			continue
		}
		if seen[req.ID] && !reported[req.ID] {
			reported[req.ID] = true
			issues = append(issues, validation.Issue{
				RuleID:   meta.ID,
				RuleName: meta.Name,
				Severity: validation.SeverityError,
				Message:  i18n.T(ctx.Language, "rules.format.duplicate_requirement_id", "id", req.ID),
				Location: validation.LocationOf(req),
			})
		}
		seen[req.ID] = true
	}
	return issues
}

// TaskIDFormatRule flags task IDs outside the TASK-XX-XX or TASK-XX-XX-XX
// form and owns the task count statistics.
type TaskIDFormatRule struct{}

func NewTaskIDFormat() *TaskIDFormatRule {
	return &TaskIDFormatRule{}
}

func (r *TaskIDFormatRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "FORMAT-TASK-001",
		Name:     "Task ID Format",
		Category: validation.CategoryFormat,
		Severity: validation.SeverityError,
	}
}

func (r *TaskIDFormatRule) Evaluate(ctx *validation.Context) []validation.Issue {
	meta := r.Meta()
	var issues []validation.Issue
	for _, task := range ctx.Primary.Tasks() {
		if document.ValidTaskID(task.ID) {
			continue
		}
		issues = append(issues, validation.Issue{
			RuleID:   meta.ID,
			RuleName: meta.Name,
			Severity: validation.SeverityError,
			Message:  i18n.T(ctx.Language, "rules.format.invalid_task_id", "id", task.ID),
			Location: validation.LocationOf(task),
		})
	}
	return issues
}

func (r *TaskIDFormatRule) ReportStats(ctx *validation.Context, stats map[string]any) {
	ids := map[string]bool{}
	dependencies := 0
	for _, task := range ctx.Primary.Tasks() {
		if task.ID != "" {
			ids[task.ID] = true
		}
		dependencies += len(task.Dependencies)
	}
	stats["totalTasks"] = len(ids)
	stats["dependencies"] = dependencies
}

// DuplicateTaskIDRule reports each task ID that occurs more than once, once
// per ID at its first re-occurrence.
type DuplicateTaskIDRule struct{}

func NewDuplicateTaskID() *DuplicateTaskIDRule {
	return &DuplicateTaskIDRule{}
}

func (r *DuplicateTaskIDRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "FORMAT-TASK-002",
		Name:     "Duplicate Task ID",
		Category: validation.CategoryFormat,
		Severity: validation.SeverityError,
	}
}

func (r *DuplicateTaskIDRule) Evaluate(ctx *validation.Context) []validation.Issue {
	meta := r.Meta()
	seen := map[string]bool{}
	reported := map[string]bool{}
	var issues []validation.Issue

	for _, task := range ctx.Primary.Tasks() {
		if task.ID == "" {
			continue
		}
		if seen[task.ID] && !reported[task.ID] {
			reported[task.ID] = true
			issues = append(issues, validation.Issue{
				RuleID:   meta.ID,
				RuleName: meta.Name,
				Severity: validation.SeverityError,
				Message:  i18n.T(ctx.Language, "rules.format.duplicate_task_id", "id", task.ID),
				Location: validation.LocationOf(task),
			})
		}
		seen[task.ID] = true
	}
	return issues
}
