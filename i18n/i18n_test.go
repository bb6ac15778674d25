package i18n

import (
	"testing"

	"github.com/c360studio/speclint/document"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		lang document.Language
		key  string
		args []any
		want string
	}{
		{
			name: "english message with interpolation",
			lang: document.LanguageEnglish,
			key:  "rules.format.invalid_requirement_id",
			args: []any{"id", "REQ-1"},
			want: "Invalid REQ-ID format: REQ-1",
		},
		{
			name: "japanese message with interpolation",
			lang: document.LanguageJapanese,
			key:  "rules.format.invalid_requirement_id",
			args: []any{"id", "REQ-1"},
			want: "REQ-IDの形式が不正です: REQ-1",
		},
		{
			name: "nested key",
			lang: document.LanguageEnglish,
			key:  "rules.ears.reason.missing_period_en",
			want: "must end with a period",
		},
		{
			name: "unknown key returned verbatim",
			lang: document.LanguageEnglish,
			key:  "rules.no.such.key",
			want: "rules.no.such.key",
		},
		{
			name: "key without namespace returned verbatim",
			lang: document.LanguageEnglish,
			key:  "bare",
			want: "bare",
		},
		{
			name: "auto falls back to japanese",
			lang: document.LanguageAuto,
			key:  "report.valid",
			want: "検証に成功しました",
		},
		{
			name: "integer interpolation",
			lang: document.LanguageEnglish,
			key:  "report.issues_found",
			args: []any{"count", 3},
			want: "Issues found: 3",
		},
		{
			name: "missing arg leaves placeholder",
			lang: document.LanguageEnglish,
			key:  "rules.structure.missing_section",
			want: "Missing required section: {section}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := T(tt.lang, tt.key, tt.args...); got != tt.want {
				t.Errorf("T(%v, %q) = %q, want %q", tt.lang, tt.key, got, tt.want)
			}
		})
	}
}

func TestCatalogsShareInstances(t *testing.T) {
	a := For(document.LanguageJapanese)
	b := For(document.LanguageJapanese)
	if a != b {
		t.Error("expected shared catalog instance per language")
	}
	if a.Language() != document.LanguageJapanese {
		t.Errorf("Language() = %v", a.Language())
	}
}

func TestCatalogParity(t *testing.T) {
	// Every key present in one language must resolve in the other, so a
	// language switch never changes which messages exist.
	ja := For(document.LanguageJapanese)
	en := For(document.LanguageEnglish)

	var keys []string
	var walk func(prefix string, node any)
	walk = func(prefix string, node any) {
		m, ok := node.(map[string]any)
		if !ok {
			keys = append(keys, prefix)
			return
		}
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			walk(key, v)
		}
	}
	walk("", en.table)

	for _, key := range keys {
		if !ja.Has(key) {
			t.Errorf("key %q missing from ja catalog", key)
		}
	}
}
