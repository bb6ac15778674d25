// Package trace builds the traceability matrix over a parsed specification
// trio: which design components realize each requirement, which tasks
// implement each component and test scenario, and how well each category is
// covered.
package trace

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/c360studio/speclint/document"
)

// WindowSize bounds the proximity scan that associates requirements with
// design components: after each requirement ID occurrence, at most this many
// characters of the design text are searched for bold component names.
// Changing it changes which associations are reported.
const WindowSize = 500

var (
	reqTokenRe = regexp.MustCompile(`REQ-\d{2}`)

	// Component definitions: "**name**:" anywhere, or an ASCII-identifier
	// level-3 heading.
	componentDefRe = regexp.MustCompile(`\*\*([A-Za-z0-9_-]+)\*\*:`)
	identifierRe   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// Bold names inside a proximity window.
	boldTokenRe = regexp.MustCompile(`\*\*([A-Za-z0-9_-]+)\*\*`)

	// Explicit bidirectional traceability markers, "REQ-01 ⇔ **name**" or
	// "REQ-01 <-> name". Chains with several separators are handled by
	// splitting on the marker.
	markerSplitRe = regexp.MustCompile(`⇔|<->`)

	scenarioPrefix = "test-"
)

// Matrix is the computed cross-reference structure over a specification
// trio. Mapping values and orphan lists are sorted; mappings only contain
// entries with at least one association.
type Matrix struct {
	Requirements []string `json:"requirements"`
	Components   []string `json:"components"`
	Scenarios    []string `json:"scenarios"`
	Tasks        []string `json:"tasks"`

	RequirementToComponents map[string][]string `json:"requirementToComponents"`
	RequirementToScenarios  map[string][]string `json:"requirementToScenarios"`
	ComponentToTasks        map[string][]string `json:"componentToTasks"`
	TestScenarioToTasks     map[string][]string `json:"testScenarioToTasks"`
	TaskDependencies        map[string][]string `json:"taskDependencies"`

	Orphans  Orphans  `json:"orphans"`
	Coverage Coverage `json:"coverage"`
}

// Orphans lists the IDs and names with zero inbound references in their
// category's mapping.
type Orphans struct {
	Requirements []string `json:"requirements"`
	Components   []string `json:"components"`
	Scenarios    []string `json:"scenarios"`
	Tasks        []string `json:"tasks"`
}

// Coverage holds the per-category reference percentages. A category with
// nothing to cover counts as fully covered.
type Coverage struct {
	Requirements float64 `json:"requirements"`
	Components   float64 `json:"components"`
	Tasks        float64 `json:"tasks"`
}

// Build computes the matrix from whichever documents are present. A nil
// document contributes nothing: its category stays empty and the mappings
// that need it are left unbuilt.
func Build(requirements, design, tasks *document.Document) *Matrix {
	m := &Matrix{
		RequirementToComponents: map[string][]string{},
		RequirementToScenarios:  map[string][]string{},
		ComponentToTasks:        map[string][]string{},
		TestScenarioToTasks:     map[string][]string{},
		TaskDependencies:        map[string][]string{},
	}

	if requirements != nil {
		m.Requirements = requirementIDs(requirements.Raw())
	}
	if design != nil {
		m.Components = designComponents(design)
	}
	if tasks != nil {
		m.Tasks = definedTaskIDs(tasks)
		m.TaskDependencies = taskDependencyGraph(tasks)
	}

	if design != nil {
		for req, scenarios := range scenarioMarkers(design) {
			m.RequirementToScenarios[req] = scenarios
		}
		m.Scenarios = scenarioNames(m.RequirementToScenarios)

		for _, req := range m.Requirements {
			if comps := windowComponents(design.Raw(), req); len(comps) > 0 {
				m.RequirementToComponents[req] = comps
			}
		}
	}

	if tasks != nil {
		m.ComponentToTasks = nameToTasks(m.Components, tasks)
		m.TestScenarioToTasks = nameToTasks(m.Scenarios, tasks)
	}

	m.Orphans = orphansOf(m)
	m.Coverage = coverageOf(m)
	return m
}

// requirementIDs returns the REQ IDs appearing in text, sorted.
func requirementIDs(text string) []string {
	var ids []string
	for _, id := range document.AllRequirementIDs(text) {
		if strings.HasPrefix(id, "REQ-") {
			ids = append(ids, id)
		}
	}
	return ids
}

// designComponents collects component names from two definition forms:
// "**name**:" entries and level-3 headings whose whole title is an ASCII
// identifier. Test scenario names are schema-level and excluded here.
func designComponents(design *document.Document) []string {
	set := map[string]struct{}{}
	for _, mt := range componentDefRe.FindAllStringSubmatch(design.Raw(), -1) {
		if !strings.HasPrefix(mt[1], scenarioPrefix) {
			set[mt[1]] = struct{}{}
		}
	}
	for _, s := range design.Sections() {
		if s.Level == 3 && identifierRe.MatchString(s.Title) && !strings.HasPrefix(s.Title, scenarioPrefix) {
			set[s.Title] = struct{}{}
		}
	}
	return sortedSet(set)
}

func definedTaskIDs(tasks *document.Document) []string {
	set := map[string]struct{}{}
	for _, t := range tasks.Tasks() {
		if t.ID != "" {
			set[t.ID] = struct{}{}
		}
	}
	return sortedSet(set)
}

// taskDependencyGraph keeps each task's declared dependencies, dropping
// self-references and dependency-free tasks.
func taskDependencyGraph(tasks *document.Document) map[string][]string {
	graph := map[string][]string{}
	for _, t := range tasks.Tasks() {
		if t.ID == "" {
			continue
		}
		var deps []string
		for _, dep := range t.Dependencies {
			if dep != t.ID {
				deps = append(deps, dep)
			}
		}
		if len(deps) > 0 {
			sort.Strings(deps)
			graph[t.ID] = deps
		}
	}
	return graph
}

// windowComponents associates a requirement with the bold names near its
// occurrences in the design text. Each window runs from an occurrence to the
// next requirement ID or "##" boundary and is truncated to WindowSize
// characters before scanning.
func windowComponents(design, reqID string) []string {
	set := map[string]struct{}{}
	from := 0
	for {
		i := strings.Index(design[from:], reqID)
		if i < 0 {
			break
		}
		start := from + i
		end := windowEnd(design, start+len(reqID))
		for _, mt := range boldTokenRe.FindAllStringSubmatch(truncate(design[start:end], WindowSize), -1) {
			if !strings.HasPrefix(mt[1], scenarioPrefix) {
				set[mt[1]] = struct{}{}
			}
		}
		from = end
		if from >= len(design) {
			break
		}
	}
	return sortedSet(set)
}

// windowEnd finds the first boundary at or after offset: the next
// requirement ID, the next "##", or the end of the text.
func windowEnd(text string, offset int) int {
	end := len(text)
	if loc := reqTokenRe.FindStringIndex(text[offset:]); loc != nil {
		end = offset + loc[0]
	}
	if i := strings.Index(text[offset:], "##"); i >= 0 && offset+i < end {
		end = offset + i
	}
	return end
}

func truncate(s string, runes int) string {
	if utf8.RuneCountInString(s) <= runes {
		return s
	}
	r := []rune(s)
	return string(r[:runes])
}

// scenarioMarkers parses the explicit bidirectional markers in the design's
// traceability sections. Proximity never associates scenarios; only a
// written "REQ-01 ⇔ **test-name**" (or "<->") marker does.
func scenarioMarkers(design *document.Document) map[string][]string {
	markers := map[string]map[string]struct{}{}
	for _, s := range design.Sections() {
		if s.Type != document.SectionTraceability {
			continue
		}
		for _, line := range strings.Split(s.Raw(), "\n") {
			parts := markerSplitRe.Split(line, -1)
			if len(parts) < 2 {
				continue
			}
			req := reqTokenRe.FindString(parts[0])
			if req == "" {
				continue
			}
			for _, part := range parts[1:] {
				name := strings.Trim(strings.TrimSpace(part), "*")
				if !strings.HasPrefix(name, scenarioPrefix) || !identifierRe.MatchString(name) {
					continue
				}
				if markers[req] == nil {
					markers[req] = map[string]struct{}{}
				}
				markers[req][name] = struct{}{}
			}
		}
	}

	out := map[string][]string{}
	for req, names := range markers {
		out[req] = sortedSet(names)
	}
	return out
}

func scenarioNames(reqToScenarios map[string][]string) []string {
	set := map[string]struct{}{}
	for _, names := range reqToScenarios {
		for _, n := range names {
			set[n] = struct{}{}
		}
	}
	return sortedSet(set)
}

// nameToTasks maps each name to the tasks referencing it, preferring the
// task's DC references and falling back to its raw text.
func nameToTasks(names []string, tasks *document.Document) map[string][]string {
	out := map[string][]string{}
	for _, name := range names {
		set := map[string]struct{}{}
		for _, t := range tasks.Tasks() {
			if t.ID == "" {
				continue
			}
			if hasRef(t.DesignRefs, name) || strings.Contains(t.Raw(), name) {
				set[t.ID] = struct{}{}
			}
		}
		if len(set) > 0 {
			out[name] = sortedSet(set)
		}
	}
	return out
}

func hasRef(refs []string, name string) bool {
	for _, r := range refs {
		if r == name {
			return true
		}
	}
	return false
}

func orphansOf(m *Matrix) Orphans {
	var o Orphans
	for _, req := range m.Requirements {
		if _, c := m.RequirementToComponents[req]; c {
			continue
		}
		if _, s := m.RequirementToScenarios[req]; s {
			continue
		}
		o.Requirements = append(o.Requirements, req)
	}
	for _, comp := range m.Components {
		if _, ok := m.ComponentToTasks[comp]; !ok {
			o.Components = append(o.Components, comp)
		}
	}
	for _, sc := range m.Scenarios {
		if _, ok := m.TestScenarioToTasks[sc]; !ok {
			o.Scenarios = append(o.Scenarios, sc)
		}
	}

	referenced := map[string]struct{}{}
	for _, ids := range m.ComponentToTasks {
		for _, id := range ids {
			referenced[id] = struct{}{}
		}
	}
	for _, ids := range m.TestScenarioToTasks {
		for _, id := range ids {
			referenced[id] = struct{}{}
		}
	}
	for _, id := range m.Tasks {
		if _, ok := referenced[id]; !ok {
			o.Tasks = append(o.Tasks, id)
		}
	}
	return o
}

func coverageOf(m *Matrix) Coverage {
	covered := 0
	for _, req := range m.Requirements {
		if _, c := m.RequirementToComponents[req]; c {
			covered++
			continue
		}
		if _, s := m.RequirementToScenarios[req]; s {
			covered++
		}
	}

	// First-phase tasks are bootstrap work and are not expected to declare
	// dependencies.
	expected := 0
	withDeps := 0
	for _, id := range m.Tasks {
		if strings.HasPrefix(id, "TASK-01-") {
			continue
		}
		expected++
		if _, ok := m.TaskDependencies[id]; ok {
			withDeps++
		}
	}

	return Coverage{
		Requirements: percent(covered, len(m.Requirements)),
		Components:   percent(len(m.ComponentToTasks), len(m.Components)),
		Tasks:        percent(withDeps, expected),
	}
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 100.0
	}
	return float64(covered) / float64(total) * 100.0
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
