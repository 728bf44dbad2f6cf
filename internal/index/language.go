package index

import (
	"path/filepath"
	"regexp"
	"strings"
)

// extensionLanguages maps file extensions to language tags.
var extensionLanguages = map[string]string{
	".py":            "python",
	".js":            "javascript",
	".jsx":           "javascript",
	".ts":            "typescript",
	".tsx":           "typescript",
	".java":          "java",
	".cpp":           "cpp",
	".cc":            "cpp",
	".cxx":           "cpp",
	".hpp":           "cpp",
	".c":             "c",
	".h":             "c",
	".cs":            "csharp",
	".go":            "go",
	".rs":            "rust",
	".rb":            "ruby",
	".php":           "php",
	".swift":         "swift",
	".kt":            "kotlin",
	".scala":         "scala",
	".sh":            "bash",
	".bash":          "bash",
	".zsh":           "bash",
	".fish":          "bash",
	".ps1":           "powershell",
	".sql":           "sql",
	".html":          "html",
	".htm":           "html",
	".xml":           "xml",
	".css":           "css",
	".scss":          "scss",
	".sass":          "sass",
	".less":          "less",
	".json":          "json",
	".yaml":          "yaml",
	".yml":           "yaml",
	".toml":          "toml",
	".ini":           "ini",
	".cfg":           "ini",
	".conf":          "ini",
	".md":            "markdown",
	".markdown":      "markdown",
	".rst":           "rst",
	".txt":           "text",
	".log":           "text",
	".dockerfile":    "dockerfile",
	".gitignore":     "text",
	".gitattributes": "text",
	".env":           "text",
}

// specialFilenames covers build/manifest files that carry no extension.
var specialFilenames = map[string]string{
	"dockerfile": "dockerfile",
	"makefile":   "makefile",
	"rakefile":   "rakefile",
	"gemfile":    "gemfile",
}

// contentSignatures are keyword/import idioms checked as a last resort.
var contentSignatures = []struct {
	lang     string
	patterns []*regexp.Regexp
}{
	{"python", []*regexp.Regexp{
		regexp.MustCompile(`def\s+\w+\s*\(`),
		regexp.MustCompile(`class\s+\w+`),
		regexp.MustCompile(`import\s+\w+`),
		regexp.MustCompile(`from\s+\w+\s+import`),
	}},
	{"javascript", []*regexp.Regexp{
		regexp.MustCompile(`function\s+\w+\s*\(`),
		regexp.MustCompile(`const\s+\w+\s*=`),
		regexp.MustCompile(`let\s+\w+\s*=`),
		regexp.MustCompile(`var\s+\w+\s*=`),
	}},
	{"java", []*regexp.Regexp{
		regexp.MustCompile(`public\s+class\s+\w+`),
		regexp.MustCompile(`public\s+static\s+void\s+main`),
	}},
	{"cpp", []*regexp.Regexp{
		regexp.MustCompile(`#include\s*<`),
		regexp.MustCompile(`int\s+main\s*\(`),
	}},
	{"go", []*regexp.Regexp{
		regexp.MustCompile(`package\s+\w+`),
		regexp.MustCompile(`func\s+\w+\s*\(`),
		regexp.MustCompile(`import\s*\(`),
	}},
	{"rust", []*regexp.Regexp{
		regexp.MustCompile(`fn\s+\w+\s*\(`),
		regexp.MustCompile(`struct\s+\w+`),
		regexp.MustCompile(`impl\s+\w+`),
	}},
}

// DetectLanguage maps a file path (and optionally its content) to a language
// tag. Precedence: special filename, extension, shebang, content signatures.
// Always returns a tag; "text" is the fallback.
func DetectLanguage(path string, content []byte) string {
	name := strings.ToLower(filepath.Base(path))
	if lang, ok := specialFilenames[name]; ok {
		return lang
	}

	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}

	if strings.HasPrefix(name, ".") {
		// Hidden config files without a known extension.
		return "text"
	}

	if len(content) > 0 {
		return detectFromContent(string(content))
	}

	return "text"
}

func detectFromContent(content string) string {
	if strings.HasPrefix(content, "#!") {
		firstLine := content
		if i := strings.IndexByte(content, '\n'); i >= 0 {
			firstLine = content[:i]
		}
		switch {
		case strings.Contains(firstLine, "python"):
			return "python"
		case strings.Contains(firstLine, "node"), strings.Contains(firstLine, "javascript"):
			return "javascript"
		case strings.Contains(firstLine, "bash"), strings.Contains(firstLine, "sh"):
			return "bash"
		}
	}

	for _, sig := range contentSignatures {
		for _, pattern := range sig.patterns {
			if pattern.MatchString(content) {
				return sig.lang
			}
		}
	}

	return "text"
}
