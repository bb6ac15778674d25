package document

// SectionType is the normalized identity of a classified level-2 section.
// Classification is document-kind aware: the same heading text can map to
// different types in different document kinds (a "non-functional" heading in
// a requirements document is the NFR requirements section; in a design
// document it is the non-functional design section).
type SectionType string

const (
	// SectionUnknown marks a section whose heading matched no pattern.
	SectionUnknown SectionType = "unknown"

	// SectionOverview is the document overview. In requirements documents a
	// summary heading folds into this type.
	SectionOverview SectionType = "overview"
	// SectionGlossary is the terminology section of a requirements document.
	SectionGlossary SectionType = "glossary"
	// SectionScope is the in/out-of-scope section of a requirements document.
	SectionScope SectionType = "scope"
	// SectionConstraints is the constraints section of a requirements document.
	SectionConstraints SectionType = "constraints"
	// SectionNonFunctionalRequirements holds NFR items in a requirements
	// document.
	SectionNonFunctionalRequirements SectionType = "non_functional_requirements"
	// SectionKPI holds KPI items in a requirements document.
	SectionKPI SectionType = "kpi"
	// SectionFunctionalRequirements holds the EARS requirements.
	SectionFunctionalRequirements SectionType = "functional_requirements"
	// SectionTestingRequirements holds TR items in a requirements document.
	SectionTestingRequirements SectionType = "testing_requirements"

	// SectionArchitecture is the architecture section of a design document.
	SectionArchitecture SectionType = "architecture"
	// SectionComponentDesign is the component design section of a design
	// document.
	SectionComponentDesign SectionType = "component_design"
	// SectionData is the data model section of a design document.
	SectionData SectionType = "data"
	// SectionAPI is the API section of a design document.
	SectionAPI SectionType = "api"
	// SectionNonFunctional is the non-functional design section.
	SectionNonFunctional SectionType = "non_functional"
	// SectionTest is the test strategy section of a design document.
	SectionTest SectionType = "test"
	// SectionTraceability is the traceability section of a design document.
	SectionTraceability SectionType = "traceability"

	// SectionTaskList is the WBS task list of a tasks document.
	SectionTaskList SectionType = "task_list"
	// SectionDependencies is the dependency section of a tasks document.
	SectionDependencies SectionType = "dependencies"
	// SectionMilestones is the milestone section of a tasks document.
	SectionMilestones SectionType = "milestones"

	// SectionReferences is an optional references section in any document.
	SectionReferences SectionType = "references"
	// SectionAppendix is an optional appendix section in any document.
	SectionAppendix SectionType = "appendix"
)

// String returns the normalized section type name.
func (s SectionType) String() string { return string(s) }
