package rules

import (
	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/i18n"
	"github.com/c360studio/speclint/validation"
)

// RequirementCoverageRule checks that every REQ-ID defined in the companion
// requirements document is referenced somewhere in the primary document's
// text. Runs for both design and tasks documents; silent without a
// requirements companion.
type RequirementCoverageRule struct{}

func NewRequirementCoverage() *RequirementCoverageRule {
	return &RequirementCoverageRule{}
}

func (r *RequirementCoverageRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "TRACE-REQ-001",
		Name:     "Requirement Coverage",
		Category: validation.CategoryTraceability,
		Severity: validation.SeverityError,
	}
}

func (r *RequirementCoverageRule) Evaluate(ctx *validation.Context) []validation.Issue {
	missing := r.missing(ctx)
	if len(missing) == 0 {
		return nil
	}
	meta := r.Meta()
	return []validation.Issue{{
		RuleID:   meta.ID,
		RuleName: meta.Name,
		Severity: validation.SeverityError,
		Message: i18n.T(ctx.Language, "rules.trace.requirements_not_referenced",
			"ids", displayIDs(missing)),
		Location: validation.DocumentLocation,
	}}
}

func (r *RequirementCoverageRule) missing(ctx *validation.Context) []string {
	if ctx.Requirements == nil {
		return nil
	}
	all := definedRequirementIDs(ctx.Requirements, "REQ-")
	referenced := referencedRequirementIDs(ctx.Primary, "REQ-")
	return missingFrom(all, referenced)
}

// ReportStats records the missing IDs under the legacy key for the primary
// document's kind.
func (r *RequirementCoverageRule) ReportStats(ctx *validation.Context, stats map[string]any) {
	missing := r.missing(ctx)
	if missing == nil {
		missing = []string{}
	}
	switch ctx.Primary.DocKind {
	case document.KindDesign:
		stats["missingReferences"] = missing
	case document.KindTasks:
		stats["missingRequirementReferences"] = missing
	}
}

// DesignReferencesRequirementsRule checks that a design document references
// at least one REQ-ID, and owns the reference count statistics.
type DesignReferencesRequirementsRule struct{}

func NewDesignReferencesRequirements() *DesignReferencesRequirementsRule {
	return &DesignReferencesRequirementsRule{}
}

func (r *DesignReferencesRequirementsRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "TRACE-DESIGN-001",
		Name:     "Design References Requirements",
		Category: validation.CategoryTraceability,
		Severity: validation.SeverityError,
	}
}

func (r *DesignReferencesRequirementsRule) Evaluate(ctx *validation.Context) []validation.Issue {
	if len(referencedRequirementIDs(ctx.Primary, "REQ-")) > 0 {
		return nil
	}
	meta := r.Meta()
	return []validation.Issue{{
		RuleID:   meta.ID,
		RuleName: meta.Name,
		Severity: validation.SeverityError,
		Message:  i18n.T(ctx.Language, "rules.trace.design_missing_requirement_refs"),
		Location: validation.DocumentLocation,
	}}
}

func (r *DesignReferencesRequirementsRule) ReportStats(ctx *validation.Context, stats map[string]any) {
	stats["referencedRequirements"] = len(referencedRequirementIDs(ctx.Primary, "REQ-"))
	stats["referencedTRs"] = len(referencedRequirementIDs(ctx.Primary, "TR-"))
}

// TraceabilitySectionRule checks that a design document has a traceability
// section.
type TraceabilitySectionRule struct{}

func NewTraceabilitySection() *TraceabilitySectionRule {
	return &TraceabilitySectionRule{}
}

func (r *TraceabilitySectionRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "TRACE-DESIGN-002",
		Name:     "Traceability Section",
		Category: validation.CategoryTraceability,
		Severity: validation.SeverityError,
	}
}

func (r *TraceabilitySectionRule) Evaluate(ctx *validation.Context) []validation.Issue {
	for _, s := range ctx.Primary.Sections() {
		if s.Type == document.SectionTraceability {
			return nil
		}
	}
	meta := r.Meta()
	return []validation.Issue{{
		RuleID:   meta.ID,
		RuleName: meta.Name,
		Severity: validation.SeverityError,
		Message:  i18n.T(ctx.Language, "rules.trace.missing_traceability_section"),
		Location: validation.DocumentLocation,
	}}
}

// TasksReferenceRequirementsRule checks that a tasks document references
// requirements when the companion requirements document defines any. It
// also owns the missing TR reference statistics.
type TasksReferenceRequirementsRule struct{}

func NewTasksReferenceRequirements() *TasksReferenceRequirementsRule {
	return &TasksReferenceRequirementsRule{}
}

func (r *TasksReferenceRequirementsRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "TRACE-TASKS-001",
		Name:     "Tasks Reference Requirements",
		Category: validation.CategoryTraceability,
		Severity: validation.SeverityError,
	}
}

func (r *TasksReferenceRequirementsRule) Evaluate(ctx *validation.Context) []validation.Issue {
	if ctx.Requirements == nil {
		return nil
	}
	if len(definedRequirementIDs(ctx.Requirements, "REQ-")) == 0 {
		return nil
	}

	for _, task := range ctx.Primary.Tasks() {
		if len(task.Requirements) > 0 {
			return nil
		}
	}

	meta := r.Meta()
	return []validation.Issue{{
		RuleID:   meta.ID,
		RuleName: meta.Name,
		Severity: validation.SeverityError,
		Message:  i18n.T(ctx.Language, "rules.trace.tasks_missing_requirement_refs"),
		Location: validation.DocumentLocation,
	}}
}

func (r *TasksReferenceRequirementsRule) ReportStats(ctx *validation.Context, stats map[string]any) {
	missing := missingFrom(
		definedRequirementIDs(ctx.Requirements, "TR-"),
		referencedRequirementIDs(ctx.Primary, "TR-"),
	)
	stats["missingTRReferences"] = missing
}

// TasksReferenceDesignRule checks that a tasks document references design
// components when a design companion is present.
type TasksReferenceDesignRule struct{}

func NewTasksReferenceDesign() *TasksReferenceDesignRule {
	return &TasksReferenceDesignRule{}
}

func (r *TasksReferenceDesignRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "TRACE-TASKS-002",
		Name:     "Tasks Reference Design",
		Category: validation.CategoryTraceability,
		Severity: validation.SeverityError,
	}
}

func (r *TasksReferenceDesignRule) Evaluate(ctx *validation.Context) []validation.Issue {
	if ctx.Design == nil {
		return nil
	}

	for _, task := range ctx.Primary.Tasks() {
		if len(task.DesignRefs) > 0 {
			return nil
		}
	}

	meta := r.Meta()
	return []validation.Issue{{
		RuleID:   meta.ID,
		RuleName: meta.Name,
		Severity: validation.SeverityError,
		Message:  i18n.T(ctx.Language, "rules.trace.tasks_missing_design_refs"),
		Location: validation.DocumentLocation,
	}}
}
