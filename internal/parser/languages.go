// Package parser is the thin adapter over tree-sitter: cached grammar
// instances, full and incremental parsing, and position translation from
// tree-sitter points to the IR's 1-based line/column coordinates.
package parser

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/python"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".py":  "python",
	".pyi": "python",
	".cs":  "csharp",
}

// languageAliases normalizes the language identifiers editors commonly send.
var languageAliases = map[string]string{
	"python":  "python",
	"py":      "python",
	"csharp":  "csharp",
	"c#":      "csharp",
	"cs":      "csharp",
	"c_sharp": "csharp",
}

// langToGrammar maps canonical language names to tree-sitter grammars.
// Lazily initialized on first use; grammar instances are reused across
// documents and language switches.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			"python": python.GetLanguage(),
			"csharp": csharp.GetLanguage(),
		}
	})
}

// Canonical normalizes a declared language identifier. Returns ("", false)
// for languages the engine does not support.
func Canonical(lang string) (string, bool) {
	c, ok := languageAliases[strings.ToLower(strings.TrimSpace(lang))]
	return c, ok
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// Grammar returns the cached tree-sitter grammar for a canonical language
// name. Returns (nil, false) if the language is not supported.
func Grammar(lang string) (*sitter.Language, bool) {
	initGrammars()
	g, ok := langToGrammar[lang]
	return g, ok
}

// Supported lists the canonical names of all supported languages.
func Supported() []string {
	return []string{"csharp", "python"}
}
