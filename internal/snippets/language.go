package snippets

import (
	"fmt"
	"strings"
)

type Language string

const (
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguageCSS        Language = "css"
	LanguageGo         Language = "go"
	LanguageHTML       Language = "html"
	LanguageJava       Language = "java"
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
	LanguageRust       Language = "rust"
	LanguageSQL        Language = "sql"
	LanguageTypeScript Language = "typescript"
	LanguageText       Language = "txt"
)

var languageLabels = map[Language]string{
	LanguageC:          "C",
	LanguageCPP:        "C++",
	LanguageCSS:        "CSS",
	LanguageGo:         "Go",
	LanguageHTML:       "HTML",
	LanguageJava:       "Java",
	LanguageJavaScript: "JavaScript",
	LanguagePython:     "Python",
	LanguageRust:       "Rust",
	LanguageSQL:        "SQL",
	LanguageTypeScript: "TypeScript",
	LanguageText:       "Plain text",
}

// Languages lists every supported language in display order.
func Languages() []Language {
	return []Language{
		LanguageC,
		LanguageCPP,
		LanguageCSS,
		LanguageGo,
		LanguageHTML,
		LanguageJava,
		LanguageJavaScript,
		LanguagePython,
		LanguageRust,
		LanguageSQL,
		LanguageTypeScript,
		LanguageText,
	}
}

func (l Language) Valid() bool {
	_, ok := languageLabels[l]
	return ok
}

func (l Language) Label() string {
	if label, ok := languageLabels[l]; ok {
		return label
	}
	return string(l)
}

// ParseLanguage accepts a language value or its display label, ignoring case.
func ParseLanguage(s string) (Language, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if l := Language(v); l.Valid() {
		return l, nil
	}
	for l, label := range languageLabels {
		if strings.ToLower(label) == v {
			return l, nil
		}
	}
	switch v {
	case "js":
		return LanguageJavaScript, nil
	case "ts":
		return LanguageTypeScript, nil
	case "golang":
		return LanguageGo, nil
	case "text", "plaintext":
		return LanguageText, nil
	}
	return "", fmt.Errorf("unsupported language: %q", s)
}
