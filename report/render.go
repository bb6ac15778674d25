package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/ears"
	"github.com/c360studio/speclint/i18n"
	"github.com/c360studio/speclint/implscan"
	"github.com/c360studio/speclint/trace"
	"github.com/c360studio/speclint/validation"
)

var (
	headStyle    = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Renderer turns validation results, traceability matrices and EARS reports
// into terminal text in one output language.
type Renderer struct {
	catalog *i18n.Catalog
}

// NewRenderer returns a renderer for lang. Unknown or auto languages fall
// back to Japanese, the default output language.
func NewRenderer(lang document.Language) *Renderer {
	return &Renderer{catalog: i18n.For(lang)}
}

// Validation renders one result. Valid documents get their statistics and
// section listing; invalid ones get numbered fix instructions.
func (r *Renderer) Validation(res *validation.Result) string {
	var b strings.Builder

	if res.IsValid {
		b.WriteString(successStyle.Render("✓ "+r.catalog.T("report.valid")) + "\n")
	} else {
		b.WriteString(errorStyle.Render("✗ "+r.catalog.T("report.invalid")) + "\n")
	}
	b.WriteString(dimStyle.Render(r.catalog.T("report.document."+string(res.Kind))) + "\n")

	if line := r.statsLine(res); line != "" {
		b.WriteString("\n" + line + "\n")
	}
	if sub, ok := res.Stats["ears"].(ears.Result); ok && sub.Total > 0 {
		b.WriteString(r.earsSummary(sub.Matched, sub.Total, sub.Rate) + "\n")
	}

	if res.IsValid {
		if len(res.FoundSections) > 0 {
			b.WriteString("\n" + headStyle.Render(r.catalog.T("report.sections_found")) + "\n")
			for _, title := range res.FoundSections {
				b.WriteString("  " + successStyle.Render("✓") + " " + title + "\n")
			}
		}
		return b.String()
	}

	b.WriteString("\n" + r.catalog.T("report.issues_found", "count", len(res.Issues)) + "\n")
	b.WriteString("\n" + headStyle.Render(r.catalog.T("report.fix_header")) + "\n")
	for i, issue := range res.Issues {
		b.WriteString(fmt.Sprintf("  %d. %s%s\n", i+1, issue.Message, dimStyle.Render(lineRef(issue.Location))))
	}
	b.WriteString("\n" + dimStyle.Render(r.catalog.T("report.fix_footer")) + "\n")
	return b.String()
}

// Matrix renders the traceability matrix: per requirement mappings, the
// component and scenario task lists, coverage percentages and orphans.
func (r *Renderer) Matrix(m *trace.Matrix) string {
	var b strings.Builder
	b.WriteString(headStyle.Render(r.catalog.T("report.matrix.title")) + "\n")

	if len(m.Requirements) > 0 {
		b.WriteString("\n")
		for _, req := range m.Requirements {
			line := "- " + headStyle.Render(req)
			if refs := m.RequirementToComponents[req]; len(refs) > 0 {
				line += " → " + strings.Join(refs, ", ")
			}
			if refs := m.RequirementToScenarios[req]; len(refs) > 0 {
				line += " ⇔ " + strings.Join(refs, ", ")
			}
			b.WriteString(line + "\n")
		}
	}
	writeMapping(&b, m.Components, m.ComponentToTasks)
	writeMapping(&b, m.Scenarios, m.TestScenarioToTasks)

	b.WriteString("\n" + r.catalog.T("report.matrix.coverage",
		"requirements", percentText(m.Coverage.Requirements),
		"components", percentText(m.Coverage.Components),
		"tasks", percentText(m.Coverage.Tasks)) + "\n")

	if items := orphanItems(m.Orphans); len(items) > 0 {
		b.WriteString(warnStyle.Render(r.catalog.T("report.matrix.orphans",
			"items", strings.Join(items, ", "))) + "\n")
	}
	return b.String()
}

// Coverage renders an implementation coverage report: scan totals, tasks
// with no implementing code, requirements never referenced from code and
// annotations naming unknown IDs.
func (r *Renderer) Coverage(rep *implscan.Report) string {
	var b strings.Builder
	b.WriteString(headStyle.Render(r.catalog.T("implcheck.title")) + "\n")
	b.WriteString(dimStyle.Render(r.catalog.T("implcheck.scanned",
		"files", rep.ScannedFiles, "annotations", len(rep.Annotations))) + "\n")

	if rep.Covered() {
		b.WriteString(successStyle.Render("✓ "+r.catalog.T("implcheck.covered")) + "\n")
	} else {
		b.WriteString(errorStyle.Render("✗ "+r.catalog.T("implcheck.not_covered")) + "\n")
	}

	r.writeIDList(&b, "implcheck.unimplemented_tasks", rep.UnimplementedTasks, errorStyle)
	r.writeIDList(&b, "implcheck.unreferenced_requirements", rep.UnreferencedRequirements, warnStyle)

	if len(rep.UnknownIDs) > 0 {
		b.WriteString("\n" + headStyle.Render(r.catalog.T("implcheck.unknown_ids")) + "\n")
		for _, ann := range rep.UnknownIDs {
			b.WriteString("  " + errorStyle.Render("✗") + fmt.Sprintf(" %s (%s:L%d)", ann.ID, ann.File, ann.Line) + "\n")
		}
	}
	return b.String()
}

func (r *Renderer) writeIDList(b *strings.Builder, key string, ids []string, style lipgloss.Style) {
	if len(ids) == 0 {
		return
	}
	b.WriteString("\n" + headStyle.Render(r.catalog.T(key)) + "\n")
	for _, id := range ids {
		b.WriteString("  " + style.Render("✗") + " " + id + "\n")
	}
}

// EARS renders an aggregated compliance report: the overall rate, then per
// file rates with every violating sentence and its reason.
func (r *Renderer) EARS(rep ears.Report) string {
	var b strings.Builder
	b.WriteString(headStyle.Render(r.catalog.T("ears.summary",
		"matched", rep.Matched, "total", rep.Total, "rate", percentText(rep.Rate*100))) + "\n")
	if rep.Total == 0 {
		b.WriteString(dimStyle.Render(r.catalog.T("ears.no_requirements")) + "\n")
		return b.String()
	}

	for _, f := range rep.Files {
		b.WriteString(fmt.Sprintf("\n%s: %d/%d\n", f.Path, f.Matched, f.Total))
		if len(f.Violations) == 0 {
			continue
		}
		b.WriteString(warnStyle.Render(r.catalog.T("ears.violations_header")) + "\n")
		for _, v := range f.Violations {
			b.WriteString(errorStyle.Render("  "+r.catalog.T("ears.violation_line", "line", v.Line, "text", v.Text)) + "\n")
			b.WriteString("       " + dimStyle.Render(v.Reason) + "\n")
		}
	}
	return b.String()
}

func (r *Renderer) earsSummary(matched, total int, rate float64) string {
	return r.catalog.T("report.ears.summary",
		"matched", matched, "total", total, "rate", percentText(rate*100))
}

// statsLine formats the per-kind statistics line. Results produced by custom
// rule sets may not carry the expected counters; the line is then omitted.
func (r *Renderer) statsLine(res *validation.Result) string {
	switch res.Kind {
	case document.KindRequirements:
		total, ok := statInt(res.Stats, "totalRequirements")
		if !ok {
			return ""
		}
		nfrs, _ := statInt(res.Stats, "totalNFRs")
		kpis, _ := statInt(res.Stats, "totalKPIs")
		trs, _ := statInt(res.Stats, "totalTRs")
		return r.catalog.T("report.stats.requirements",
			"total", total, "nfrs", nfrs, "kpis", kpis, "trs", trs)
	case document.KindDesign:
		refs, ok := statInt(res.Stats, "referencedRequirements")
		if !ok {
			return ""
		}
		return r.catalog.T("report.stats.design", "refs", refs)
	case document.KindTasks:
		total, ok := statInt(res.Stats, "totalTasks")
		if !ok {
			return ""
		}
		deps, _ := statInt(res.Stats, "dependencies")
		return r.catalog.T("report.stats.tasks", "total", total, "deps", deps)
	}
	return ""
}

func writeMapping(b *strings.Builder, names []string, toTasks map[string][]string) {
	if len(names) == 0 {
		return
	}
	b.WriteString("\n")
	for _, name := range names {
		line := "- " + name
		if refs := toTasks[name]; len(refs) > 0 {
			line += " → " + strings.Join(refs, ", ")
		}
		b.WriteString(line + "\n")
	}
}

func orphanItems(o trace.Orphans) []string {
	var items []string
	items = append(items, o.Requirements...)
	items = append(items, o.Components...)
	items = append(items, o.Scenarios...)
	items = append(items, o.Tasks...)
	return items
}

// lineRef renders an issue location suffix. Document level issues sit on
// line 1 and get no suffix.
func lineRef(loc validation.Location) string {
	if loc.LineStart <= 1 && loc.LineEnd <= 1 {
		return ""
	}
	if loc.LineEnd > loc.LineStart {
		return fmt.Sprintf(" (L%d-%d)", loc.LineStart, loc.LineEnd)
	}
	return fmt.Sprintf(" (L%d)", loc.LineStart)
}

func percentText(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func statInt(stats map[string]any, key string) (int, bool) {
	v, ok := stats[key].(int)
	return v, ok
}
