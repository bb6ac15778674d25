package document

import (
	"errors"
	"fmt"
	"strings"
)

// Language selects the natural language of a specification document.
type Language string

const (
	// LanguageJapanese is the default document language.
	LanguageJapanese Language = "ja"
	// LanguageEnglish is the alternate document language.
	LanguageEnglish Language = "en"
	// LanguageAuto asks the parser to detect the language from content.
	LanguageAuto Language = "auto"
)

// ErrUnsupportedLanguage is returned for a language outside the supported set.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrUnsupportedKind is returned for a document kind outside the supported set.
var ErrUnsupportedKind = errors.New("unsupported document kind")

// String returns the language code.
func (l Language) String() string { return string(l) }

// IsValid reports whether l is a concrete supported language. LanguageAuto is
// a parser input, not a concrete language, and is not valid here.
func (l Language) IsValid() bool {
	return l == LanguageJapanese || l == LanguageEnglish
}

// ParseLanguage converts user input to a Language. It accepts the short codes,
// full names, and "auto".
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ja", "japanese", "日本語":
		return LanguageJapanese, nil
	case "en", "english":
		return LanguageEnglish, nil
	case "auto", "":
		return LanguageAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
}

// DocumentKind identifies which of the three specification documents a text
// is expected to be.
type DocumentKind string

const (
	// KindRequirements is the requirements document (EARS requirements,
	// NFRs, KPIs, testing requirements).
	KindRequirements DocumentKind = "requirements"
	// KindDesign is the design document (architecture, components,
	// traceability).
	KindDesign DocumentKind = "design"
	// KindTasks is the task breakdown document (WBS task list,
	// dependencies, milestones).
	KindTasks DocumentKind = "tasks"
)

// String returns the kind name.
func (k DocumentKind) String() string { return string(k) }

// IsValid reports whether k is a supported document kind.
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindRequirements, KindDesign, KindTasks:
		return true
	}
	return false
}

// ParseDocumentKind converts user input to a DocumentKind.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "requirements", "requirement", "req":
		return KindRequirements, nil
	case "design":
		return KindDesign, nil
	case "tasks", "task":
		return KindTasks, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
}
