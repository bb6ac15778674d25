package rules

import (
	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/document/section"
	"github.com/c360studio/speclint/i18n"
	"github.com/c360studio/speclint/validation"
)

// requiredSections lists the section types every document of a kind must
// contain, in reporting order.
var requiredSections = map[document.DocumentKind][]document.SectionType{
	document.KindRequirements: {
		document.SectionOverview,
		document.SectionGlossary,
		document.SectionScope,
		document.SectionConstraints,
		document.SectionNonFunctionalRequirements,
		document.SectionKPI,
		document.SectionFunctionalRequirements,
		document.SectionTestingRequirements,
	},
	document.KindDesign: {
		document.SectionArchitecture,
		document.SectionComponentDesign,
		document.SectionData,
		document.SectionAPI,
		document.SectionNonFunctional,
		document.SectionTest,
		document.SectionTraceability,
	},
	document.KindTasks: {
		document.SectionOverview,
		document.SectionTaskList,
		document.SectionDependencies,
		document.SectionMilestones,
	},
}

// StructureRule checks that every required section for a document kind is
// present, at any heading level.
type StructureRule struct {
	kind document.DocumentKind
	meta validation.Meta
}

// NewRequirementsStructure builds the structure rule for requirements
// documents.
func NewRequirementsStructure() *StructureRule {
	return &StructureRule{
		kind: document.KindRequirements,
		meta: validation.Meta{
			ID:       "STRUCT-REQ-001",
			Name:     "Requirements Structure",
			Category: validation.CategoryStructure,
			Severity: validation.SeverityError,
		},
	}
}

// NewDesignStructure builds the structure rule for design documents.
func NewDesignStructure() *StructureRule {
	return &StructureRule{
		kind: document.KindDesign,
		meta: validation.Meta{
			ID:       "STRUCT-DESIGN-001",
			Name:     "Design Structure",
			Category: validation.CategoryStructure,
			Severity: validation.SeverityError,
		},
	}
}

// NewTasksStructure builds the structure rule for tasks documents.
func NewTasksStructure() *StructureRule {
	return &StructureRule{
		kind: document.KindTasks,
		meta: validation.Meta{
			ID:       "STRUCT-TASKS-001",
			Name:     "Tasks Structure",
			Category: validation.CategoryStructure,
			Severity: validation.SeverityError,
		},
	}
}

func (r *StructureRule) Meta() validation.Meta { return r.meta }

func (r *StructureRule) Evaluate(ctx *validation.Context) []validation.Issue {
	found := map[document.SectionType]bool{}
	for _, s := range ctx.Primary.Sections() {
		found[s.Type] = true
	}

	var issues []validation.Issue
	for _, required := range requiredSections[r.kind] {
		if found[required] {
			continue
		}
		name := section.DisplayName(required, r.kind, ctx.Language)
		issues = append(issues, validation.Issue{
			RuleID:   r.meta.ID,
			RuleName: r.meta.Name,
			Severity: validation.SeverityError,
			Message:  i18n.T(ctx.Language, "rules.structure.missing_section", "section", name),
			Location: validation.DocumentLocation,
		})
	}
	return issues
}
