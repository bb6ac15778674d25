// Package rules contains the concrete validation rules for requirements,
// design, and tasks documents, and assembles the default ordered rule set
// for each kind.
package rules

import (
	"sort"
	"strings"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/validation"
)

// maxDisplayIDs caps how many missing IDs a coverage message lists before
// eliding the rest.
const maxDisplayIDs = 5

type config struct {
	directPairCycles bool
}

// Option adjusts how the default rule sets are built.
type Option func(*config)

// WithDirectPairCycles swaps the circular dependency rule to the weak
// detector that only finds direct A and B pairs, for compatibility with
// consumers tuned to the old behavior.
func WithDirectPairCycles() Option {
	return func(c *config) {
		c.directPairCycles = true
	}
}

// Default builds the ordered rule set for each document kind.
func Default(opts ...Option) validation.Sets {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	return validation.Sets{
		Requirements: []validation.Rule{
			NewRequirementsStructure(),
			NewRequirementIDFormat(),
			NewDuplicateRequirementID(),
			NewEARSCompliance(),
		},
		Design: []validation.Rule{
			NewDesignStructure(),
			NewTraceabilitySection(),
			NewDesignReferencesRequirements(),
			NewRequirementCoverage(),
		},
		Tasks: []validation.Rule{
			NewTasksStructure(),
			NewTaskIDFormat(),
			NewDuplicateTaskID(),
			NewCircularDependency(cfg.directPairCycles),
			NewDependencyExists(),
			NewTasksReferenceRequirements(),
			NewTasksReferenceDesign(),
			NewRequirementCoverage(),
			NewTestScenarioCoverage(),
			NewDesignComponentCoverage(),
		},
	}
}

// definedRequirementIDs collects IDs with the given prefix from promoted
// requirement blocks.
func definedRequirementIDs(doc *document.Document, prefix string) map[string]bool {
	ids := map[string]bool{}
	if doc == nil {
		return ids
	}
	for _, r := range doc.Requirements() {
		if strings.HasPrefix(r.ID, prefix) {
			ids[r.ID] = true
		}
	}
	return ids
}

// referencedRequirementIDs collects IDs with the given prefix appearing
// anywhere in the document text.
func referencedRequirementIDs(doc *document.Document, prefix string) map[string]bool {
	ids := map[string]bool{}
	if doc == nil {
		return ids
	}
	for _, id := range document.AllRequirementIDs(doc.Raw()) {
		if strings.HasPrefix(id, prefix) {
			ids[id] = true
		}
	}
	return ids
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// missingFrom returns the sorted members of all that referenced lacks.
func missingFrom(all, referenced map[string]bool) []string {
	missing := []string{}
	for id := range all {
		if !referenced[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

// displayIDs joins the first maxDisplayIDs entries, marking elision.
func displayIDs(ids []string) string {
	display := ids
	suffix := ""
	if len(ids) > maxDisplayIDs {
		display = ids[:maxDisplayIDs]
		suffix = "..."
	}
	return strings.Join(display, ", ") + suffix
}
