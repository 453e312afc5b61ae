package parser

import (
	"path/filepath"
	"strings"
)

// Language identifies the grammar a source file is parsed with.
type Language int

const (
	// LanguageTypeScript covers .ts/.mts/.cts and, with the TSX flag, .tsx files.
	LanguageTypeScript Language = iota
	// LanguageJavaScript covers .js/.jsx/.mjs/.cjs. The JavaScript grammar
	// understands JSX natively.
	LanguageJavaScript
	// LanguageUnknown marks files the scanner cannot parse.
	LanguageUnknown
)

// String returns the string representation of the language.
func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// DetectLanguage detects the grammar from a file path.
// Type declaration files (.d.ts) are reported as unknown: they never render markup.
func DetectLanguage(filePath string) Language {
	lower := strings.ToLower(filePath)
	if strings.HasSuffix(lower, ".d.ts") {
		return LanguageUnknown
	}

	switch filepath.Ext(lower) {
	case ".ts", ".mts", ".cts", ".tsx":
		return LanguageTypeScript
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// IsTSXFile reports whether a path must be parsed with the TSX grammar.
func IsTSXFile(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".tsx"
}

// SourceExtensions lists every extension DetectLanguage accepts.
func SourceExtensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}
}

// SupportedLanguages returns a list of all supported languages.
func SupportedLanguages() []Language {
	return []Language{
		LanguageTypeScript,
		LanguageJavaScript,
	}
}
