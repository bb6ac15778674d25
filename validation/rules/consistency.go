package rules

import (
	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/i18n"
	"github.com/c360studio/speclint/validation"
)

// CircularDependencyRule detects dependency cycles among tasks. The default
// detector runs a depth-first search over the dependency graph and reports
// every back edge, so cycles of any length are found. The direct-pair mode
// only checks mutual A/B dependencies.
type CircularDependencyRule struct {
	directPair bool
}

func NewCircularDependency(directPair bool) *CircularDependencyRule {
	return &CircularDependencyRule{directPair: directPair}
}

func (r *CircularDependencyRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "CONSIST-TASK-001",
		Name:     "Circular Dependency Detection",
		Category: validation.CategoryConsistency,
		Severity: validation.SeverityError,
	}
}

func (r *CircularDependencyRule) Evaluate(ctx *validation.Context) []validation.Issue {
	byID, order := tasksByID(ctx.Primary)
	if r.directPair {
		return r.directPairIssues(ctx, byID, order)
	}
	return r.dfsIssues(ctx, byID, order)
}

// dfsIssues colors each task white, gray, or black. An edge into a gray
// task closes a cycle; the edge's origin is reported at its block.
func (r *CircularDependencyRule) dfsIssues(ctx *validation.Context, byID map[string]*document.Task, order []string) []validation.Issue {
	const (
		white = iota
		gray
		black
	)

	color := map[string]int{}
	var issues []validation.Issue

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		for _, dep := range byID[id].Dependencies {
			if _, defined := byID[dep]; !defined {
				continue
			}
			switch color[dep] {
			case gray:
				issues = append(issues, r.issue(ctx, byID[id], id, dep))
			case white:
				visit(dep)
			}
		}
		color[id] = black
	}

	for _, id := range order {
		if color[id] == white {
			visit(id)
		}
	}
	return issues
}

// directPairIssues mirrors the legacy detector: each task is checked against
// each of its dependencies for a mutual edge, so an A/B cycle is reported
// from both sides.
func (r *CircularDependencyRule) directPairIssues(ctx *validation.Context, byID map[string]*document.Task, order []string) []validation.Issue {
	var issues []validation.Issue
	for _, id := range order {
		task := byID[id]
		for _, dep := range task.Dependencies {
			other, defined := byID[dep]
			if !defined {
				continue
			}
			if dependsOn(other, id) {
				issues = append(issues, r.issue(ctx, task, id, dep))
			}
		}
	}
	return issues
}

func (r *CircularDependencyRule) issue(ctx *validation.Context, at *document.Task, a, b string) validation.Issue {
	meta := r.Meta()
	return validation.Issue{
		RuleID:   meta.ID,
		RuleName: meta.Name,
		Severity: validation.SeverityError,
		Message: i18n.T(ctx.Language, "rules.consistency.circular_dependency",
			"a", a, "b", b),
		Location: validation.LocationOf(at),
	}
}

// DependencyExistsRule checks that every dependency a task declares names a
// task defined in the same document.
type DependencyExistsRule struct{}

func NewDependencyExists() *DependencyExistsRule {
	return &DependencyExistsRule{}
}

func (r *DependencyExistsRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "CONSIST-TASK-002",
		Name:     "Dependency Existence",
		Category: validation.CategoryConsistency,
		Severity: validation.SeverityError,
	}
}

func (r *DependencyExistsRule) Evaluate(ctx *validation.Context) []validation.Issue {
	byID, _ := tasksByID(ctx.Primary)
	meta := r.Meta()

	var issues []validation.Issue
	for _, task := range ctx.Primary.Tasks() {
		for _, dep := range task.Dependencies {
			if _, defined := byID[dep]; defined {
				continue
			}
			issues = append(issues, validation.Issue{
				RuleID:   meta.ID,
				RuleName: meta.Name,
				Severity: validation.SeverityError,
				Message: i18n.T(ctx.Language, "rules.consistency.unknown_dependency",
					"id", dep),
				Location: validation.LocationOf(task),
			})
		}
	}
	return issues
}

// tasksByID indexes tasks by ID in document order. The first occurrence of
// a duplicated ID wins; the duplicate rule reports the clash itself.
func tasksByID(doc *document.Document) (map[string]*document.Task, []string) {
	byID := map[string]*document.Task{}
	var order []string
	for _, task := range doc.Tasks() {
		if task.ID == "" {
			continue
		}
		if _, seen := byID[task.ID]; seen {
			continue
		}
		byID[task.ID] = task
		order = append(order, task.ID)
	}
	return byID, order
}

func dependsOn(task *document.Task, id string) bool {
	for _, dep := range task.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}
