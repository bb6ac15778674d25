package rules

import (
	"regexp"
	"strings"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/i18n"
	"github.com/c360studio/speclint/validation"
)

var (
	// componentItemRe matches a component list entry that introduces a
	// kebab-case component name, e.g. "input-handler: 入力処理 [REQ-01]".
	componentItemRe = regexp.MustCompile(`^([a-z][a-z0-9-]*[a-z0-9])\s*[:：]`)

	idShapedRe = regexp.MustCompile(`^(?:REQ|NFR|KPI|TR|TASK|DC)-`)
)

// TestScenarioCoverageRule checks that every test scenario named in the
// design document's test strategy section is referenced by at least one
// task. Silent without a design companion.
type TestScenarioCoverageRule struct{}

func NewTestScenarioCoverage() *TestScenarioCoverageRule {
	return &TestScenarioCoverageRule{}
}

func (r *TestScenarioCoverageRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "TRACE-TASKS-003",
		Name:     "Test Scenario Coverage",
		Category: validation.CategoryTraceability,
		Severity: validation.SeverityError,
	}
}

func (r *TestScenarioCoverageRule) Evaluate(ctx *validation.Context) []validation.Issue {
	if ctx.Design == nil {
		return nil
	}

	scenarios := designTestScenarios(ctx.Design)
	if len(scenarios) == 0 {
		return nil
	}

	referenced := map[string]bool{}
	for _, task := range ctx.Primary.Tasks() {
		for _, ref := range task.DesignRefs {
			referenced[ref] = true
		}
		for _, name := range document.TestScenarioNames(task.Raw()) {
			referenced[name] = true
		}
	}

	meta := r.Meta()
	var issues []validation.Issue
	for _, scenario := range scenarios {
		if referenced[scenario] {
			continue
		}
		issues = append(issues, validation.Issue{
			RuleID:   meta.ID,
			RuleName: meta.Name,
			Severity: validation.SeverityError,
			Message: i18n.T(ctx.Language, "rules.trace.scenario_not_referenced",
				"scenario", scenario),
			Location: validation.DocumentLocation,
		})
	}
	return issues
}

// designTestScenarios collects the scenario names listed in the design's
// test strategy sections, sorted.
func designTestScenarios(design *document.Document) []string {
	set := map[string]bool{}
	for _, s := range design.Sections() {
		if s.Type != document.SectionTest {
			continue
		}
		for _, blk := range document.Descendants(s) {
			if blk.Kind() != document.KindListItem {
				continue
			}
			for _, name := range document.TestScenarioNames(blk.Raw()) {
				set[name] = true
			}
		}
	}
	return sortedKeys(set)
}

// DesignComponentCoverageRule checks that every component named in the
// design document's component design section is referenced by at least one
// task, and owns the missing design reference statistics. Silent without a
// design companion.
type DesignComponentCoverageRule struct{}

func NewDesignComponentCoverage() *DesignComponentCoverageRule {
	return &DesignComponentCoverageRule{}
}

func (r *DesignComponentCoverageRule) Meta() validation.Meta {
	return validation.Meta{
		ID:       "TRACE-TASKS-004",
		Name:     "Design Component Coverage",
		Category: validation.CategoryTraceability,
		Severity: validation.SeverityError,
	}
}

func (r *DesignComponentCoverageRule) Evaluate(ctx *validation.Context) []validation.Issue {
	missing := r.missing(ctx)
	if len(missing) == 0 {
		return nil
	}
	meta := r.Meta()
	return []validation.Issue{{
		RuleID:   meta.ID,
		RuleName: meta.Name,
		Severity: validation.SeverityError,
		Message: i18n.T(ctx.Language, "rules.trace.components_not_referenced",
			"ids", displayIDs(missing)),
		Location: validation.DocumentLocation,
	}}
}

func (r *DesignComponentCoverageRule) missing(ctx *validation.Context) []string {
	if ctx.Design == nil {
		return nil
	}

	components := designComponents(ctx.Design)
	if len(components) == 0 {
		return nil
	}

	referenced := map[string]bool{}
	for _, task := range ctx.Primary.Tasks() {
		for _, ref := range task.DesignRefs {
			referenced[ref] = true
		}
	}
	raw := ctx.Primary.Raw()

	missing := []string{}
	for _, c := range components {
		if referenced[c] || strings.Contains(raw, c) {
			continue
		}
		missing = append(missing, c)
	}
	return missing
}

func (r *DesignComponentCoverageRule) ReportStats(ctx *validation.Context, stats map[string]any) {
	missing := r.missing(ctx)
	if missing == nil {
		missing = []string{}
	}
	stats["missingDesignReferences"] = missing
}

// designComponents collects the component names declared in the design's
// component design sections: the leading kebab-case name of each list entry,
// identifier-shaped bold tokens, and DC-NN identifiers. Sorted, test
// scenario names excluded.
func designComponents(design *document.Document) []string {
	set := map[string]bool{}
	for _, s := range design.Sections() {
		if s.Type != document.SectionComponentDesign {
			continue
		}
		for _, blk := range document.Descendants(s) {
			item, ok := blk.(*document.ListItem)
			if !ok {
				continue
			}
			if m := componentItemRe.FindStringSubmatch(strings.TrimSpace(item.Content)); m != nil {
				addComponent(set, m[1])
			}
			for _, name := range document.BoldNames(item.Raw()) {
				addComponent(set, name)
			}
			for _, id := range document.AllDCRefs(item.Raw()) {
				set[id] = true
			}
		}
	}
	return sortedKeys(set)
}

func addComponent(set map[string]bool, name string) {
	if strings.HasPrefix(name, "test-") || idShapedRe.MatchString(name) {
		return
	}
	set[name] = true
}
