// Package section classifies heading text into normalized section types
// using per-document-kind, per-language synonym tables. The tables live in
// an embedded YAML file and are loaded once at first use; they are read-only
// afterward.
package section

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/speclint/document"
)

//go:embed patterns.yaml
var patternsYAML []byte

// Pattern maps a normalized section type to its accepted heading phrases in
// each language.
type Pattern struct {
	Type document.SectionType `yaml:"type"`
	JA   []string             `yaml:"ja"`
	EN   []string             `yaml:"en"`
}

type patternFile struct {
	Requirements []Pattern `yaml:"requirements"`
	Design       []Pattern `yaml:"design"`
	Tasks        []Pattern `yaml:"tasks"`
}

var (
	tablesOnce sync.Once
	tables     map[document.DocumentKind][]Pattern
	tablesErr  error
)

func loadTables() (map[document.DocumentKind][]Pattern, error) {
	tablesOnce.Do(func() {
		var f patternFile
		if err := yaml.Unmarshal(patternsYAML, &f); err != nil {
			tablesErr = fmt.Errorf("parse section patterns: %w", err)
			return
		}
		tables = map[document.DocumentKind][]Pattern{
			document.KindRequirements: f.Requirements,
			document.KindDesign:       f.Design,
			document.KindTasks:        f.Tasks,
		}
	})
	return tables, tablesErr
}

// numberPrefix strips leading section numbering such as "1.", "0.", "2.1",
// or "3)" from a heading.
var numberPrefix = regexp.MustCompile(`^\s*\d+(?:\.\d+)*[.)]?\s*`)

// Classifier maps heading text to section types for one document kind and
// language. Construct with NewClassifier so the kind/language pair is
// validated once.
type Classifier struct {
	kind     document.DocumentKind
	language document.Language
	patterns []Pattern
}

// NewClassifier returns a classifier bound to the given document kind and
// language. The document kind is required because some heading synonyms map
// to different section types in different kinds.
func NewClassifier(kind document.DocumentKind, lang document.Language) (*Classifier, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", document.ErrUnsupportedKind, kind)
	}
	if !lang.IsValid() {
		return nil, fmt.Errorf("%w: %q", document.ErrUnsupportedLanguage, lang)
	}
	t, err := loadTables()
	if err != nil {
		return nil, err
	}
	return &Classifier{kind: kind, language: lang, patterns: t[kind]}, nil
}

// Kind returns the document kind the classifier is bound to.
func (c *Classifier) Kind() document.DocumentKind { return c.kind }

// Language returns the language the classifier is bound to.
func (c *Classifier) Language() document.Language { return c.language }

// Classify returns the section type for a heading. Matching is first-match
// substring containment over the ordered pattern table; headings that match
// nothing classify as SectionUnknown.
func (c *Classifier) Classify(title string) document.SectionType {
	clean := Normalize(title, c.language)
	if clean == "" {
		return document.SectionUnknown
	}
	for _, p := range c.patterns {
		for _, phrase := range c.phrases(p) {
			if c.language == document.LanguageEnglish {
				phrase = strings.ToLower(phrase)
			}
			if strings.Contains(clean, phrase) {
				return p.Type
			}
		}
	}
	return document.SectionUnknown
}

func (c *Classifier) phrases(p Pattern) []string {
	if c.language == document.LanguageJapanese {
		return p.JA
	}
	return p.EN
}

// Normalize prepares heading text for matching: numbering prefixes are
// stripped, whitespace trimmed, and English text casefolded.
func Normalize(title string, lang document.Language) string {
	clean := strings.TrimSpace(numberPrefix.ReplaceAllString(title, ""))
	if lang == document.LanguageEnglish {
		clean = strings.ToLower(clean)
	}
	return clean
}

// DisplayName returns the canonical localized label for a section type
// within a document kind: the first synonym of its pattern entry. It falls
// back to the type name when the type has no entry for the kind.
func DisplayName(t document.SectionType, kind document.DocumentKind, lang document.Language) string {
	tabs, err := loadTables()
	if err != nil {
		return t.String()
	}
	for _, p := range tabs[kind] {
		if p.Type != t {
			continue
		}
		if lang == document.LanguageJapanese && len(p.JA) > 0 {
			return p.JA[0]
		}
		if lang == document.LanguageEnglish && len(p.EN) > 0 {
			return p.EN[0]
		}
	}
	return t.String()
}
