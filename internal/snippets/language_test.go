package snippets

import "testing"

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{
		"javascript": LanguageJavaScript,
		"JavaScript": LanguageJavaScript,
		" ts ":       LanguageTypeScript,
		"C++":        LanguageCPP,
		"cpp":        LanguageCPP,
		"Plain text": LanguageText,
		"golang":     LanguageGo,
	}
	for in, want := range cases {
		got, err := ParseLanguage(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", in, want, got)
		}
	}
}

func TestParseLanguageRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "cobol", "java script"} {
		if _, err := ParseLanguage(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestLanguagesAreValidAndLabelled(t *testing.T) {
	for _, l := range Languages() {
		if !l.Valid() {
			t.Fatalf("language %s not valid", l)
		}
		if l.Label() == "" || l.Label() == string(l) {
			t.Fatalf("language %s has no label", l)
		}
	}
	if Language("nope").Label() != "nope" {
		t.Fatal("unknown language label should fall back to value")
	}
}

func TestNewSnippetDefaults(t *testing.T) {
	s := New()
	if s.Saved() {
		t.Fatal("new snippet must not be saved")
	}
	if s.Language != LanguageJavaScript || !s.Public {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Tags == nil {
		t.Fatal("tags must be an empty slice")
	}
}
