package report

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var langByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".jsx":   "jsx",
	".ts":    "typescript",
	".tsx":   "tsx",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".scala": "scala",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".ex":    "elixir",
	".exs":   "elixir",
	".erl":   "erlang",
	".hs":    "haskell",
	".lua":   "lua",
	".pl":    "perl",
	".r":     "r",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "zsh",
	".fish":  "fish",
	".ps1":   "powershell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".vue":   "vue",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".proto": "protobuf",
	".tf":    "hcl",
	".dart":  "dart",
	".zig":   "zig",
	".nix":   "nix",
}

var langByName = map[string]string{
	"Makefile":       "makefile",
	"GNUmakefile":    "makefile",
	"Dockerfile":     "dockerfile",
	"Containerfile":  "dockerfile",
	"CMakeLists.txt": "cmake",
	"Jenkinsfile":    "groovy",
	"go.mod":         "gomod",
	"Gemfile":        "ruby",
	"Rakefile":       "ruby",
}

// LanguageOf returns the highlight language for a file name, or "" when the
// file is not recognized as code.
func LanguageOf(name string) string {
	base := filepath.Base(name)
	if lang, ok := langByName[base]; ok {
		return lang
	}
	if strings.HasPrefix(base, "Dockerfile.") {
		return "dockerfile"
	}
	return langByExt[strings.ToLower(filepath.Ext(base))]
}

// BuildFile shapes file contents into a document. data is what was read,
// size is the file's full size; data beyond max is cut.
func BuildFile(path string, data []byte, size int64, max int) *FileDocument {
	doc := &FileDocument{Path: path, Size: size}
	if LooksBinary(data) {
		doc.Binary = true
		return doc
	}
	if max > 0 && len(data) > max {
		data = data[:max]
		// don't split a rune
		for i := 0; i < utf8.UTFMax-1 && len(data) > 0; i++ {
			if r, _ := utf8.DecodeLastRune(data); r != utf8.RuneError {
				break
			}
			data = data[:len(data)-1]
		}
		doc.Truncated = true
	}
	if int64(len(data)) < size {
		doc.Truncated = true
	}
	text := strings.ToValidUTF8(string(data), "�")
	if lang := LanguageOf(path); lang != "" {
		doc.Lang = lang
		doc.Code = text
	} else {
		doc.Content = text
	}
	return doc
}
