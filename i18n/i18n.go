// Package i18n provides the bilingual message catalogs for validation
// messages and report prose. Catalogs are JSON files embedded per language,
// one namespace per file, looked up by dot-separated key.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/c360studio/speclint/document"
)

//go:embed locales
var localeFS embed.FS

// Catalog resolves message keys for one language.
type Catalog struct {
	lang  document.Language
	table map[string]any
}

var (
	catalogMu sync.Mutex
	catalogs  = map[document.Language]*Catalog{}
)

// For returns the catalog for lang. Unknown or auto languages fall back to
// Japanese, the default output language. Catalogs are loaded once and shared.
func For(lang document.Language) *Catalog {
	if lang != document.LanguageJapanese && lang != document.LanguageEnglish {
		lang = document.LanguageJapanese
	}

	catalogMu.Lock()
	defer catalogMu.Unlock()

	if c, ok := catalogs[lang]; ok {
		return c
	}
	c := &Catalog{lang: lang, table: loadLocale(string(lang))}
	catalogs[lang] = c
	return c
}

// T resolves key in lang with {name} placeholders filled from alternating
// name/value args, e.g. T(lang, "rules.format.invalid_requirement_id",
// "id", "REQ-1").
func T(lang document.Language, key string, args ...any) string {
	return For(lang).T(key, args...)
}

// T resolves key with {name} placeholders filled from alternating
// name/value args. Keys missing from this catalog fall back to the English
// catalog; keys missing there too are returned verbatim.
func (c *Catalog) T(key string, args ...any) string {
	msg, ok := c.lookup(key)
	if !ok {
		// Fall back to English before giving up on the key.
		if c.lang != document.LanguageEnglish {
			if m, ok := For(document.LanguageEnglish).lookup(key); ok {
				return interpolate(m, args)
			}
		}
		return key
	}
	return interpolate(msg, args)
}

// Has reports whether key resolves in this catalog without fallback.
func (c *Catalog) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Language returns the catalog's language.
func (c *Catalog) Language() document.Language {
	return c.lang
}

func (c *Catalog) lookup(key string) (string, bool) {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return "", false
	}

	var node any = c.table
	for _, part := range parts {
		m, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		node, ok = m[part]
		if !ok {
			return "", false
		}
	}

	s, ok := node.(string)
	return s, ok
}

// loadLocale reads every JSON file under locales/<lang>, keyed by file stem
// as the namespace. A language with no catalog directory degrades to an
// empty table; T then falls back to English.
func loadLocale(lang string) map[string]any {
	table := map[string]any{}

	entries, err := localeFS.ReadDir(path.Join("locales", lang))
	if err != nil {
		return table
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := localeFS.ReadFile(path.Join("locales", lang, e.Name()))
		if err != nil {
			continue
		}
		var ns map[string]any
		if err := json.Unmarshal(data, &ns); err != nil {
			continue
		}
		table[strings.TrimSuffix(e.Name(), ".json")] = ns
	}
	return table
}

// interpolate replaces {name} placeholders from alternating name/value args.
// Unmatched placeholders are left in place.
func interpolate(msg string, args []any) string {
	for i := 0; i+1 < len(args); i += 2 {
		name, ok := args[i].(string)
		if !ok {
			continue
		}
		msg = strings.ReplaceAll(msg, "{"+name+"}", fmt.Sprint(args[i+1]))
	}
	return msg
}
