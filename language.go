package main

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yml
var languagesYAML []byte

var errUnknownLanguage = errors.New("unknown language")

// LanguageInfo holds details about a checkable language.
type LanguageInfo struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`  // e.g., programming
	Lexer      string   `yaml:"lexer"` // chroma lexer used for PDF source context
	Extensions []string `yaml:"extensions"`
}

// LanguageMap maps language keys (e.g., "cpp") to their details.
type LanguageMap map[string]LanguageInfo

// LoadedLanguageData holds the selected languages and their lookup tables.
type LoadedLanguageData struct {
	Langs        LanguageMap
	extensionMap map[string]string // ".cpp" -> "cpp"
}

// parseLanguageTable decodes the embedded languages.yml.
func parseLanguageTable(data []byte) (LanguageMap, error) {
	var langs LanguageMap
	if err := yaml.Unmarshal(data, &langs); err != nil {
		return nil, fmt.Errorf("error parsing language table: %w", err)
	}
	return langs, nil
}

// loadLanguageData builds lookup tables for the selected language keys.
// When two selected languages claim the same extension the earlier one wins.
func loadLanguageData(selected []string) (*LoadedLanguageData, error) {
	langs, err := parseLanguageTable(languagesYAML)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no languages selected")
	}

	data := &LoadedLanguageData{
		Langs:        make(LanguageMap, len(selected)),
		extensionMap: make(map[string]string),
	}

	for _, key := range selected {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		info, ok := langs[key]
		if !ok {
			return nil, fmt.Errorf("%w %q (known: %s)", errUnknownLanguage, key, strings.Join(knownLanguages(langs), ", "))
		}
		data.Langs[key] = info
		for _, ext := range info.Extensions {
			lowerExt := strings.ToLower(ext)
			if data.extensionMap[lowerExt] == "" {
				data.extensionMap[lowerExt] = key
			}
		}
	}

	if len(data.Langs) == 0 {
		return nil, fmt.Errorf("no languages selected")
	}
	return data, nil
}

func knownLanguages(langs LanguageMap) []string {
	keys := make([]string, 0, len(langs))
	for k := range langs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetLanguageForFile determines the language key for a given path.
func (ld *LoadedLanguageData) GetLanguageForFile(filePath string) (string, bool) {
	if ld == nil {
		return "", false
	}

	baseName := filepath.Base(filePath)
	ext := strings.ToLower(filepath.Ext(baseName))
	if ext != "" {
		if lang, ok := ld.extensionMap[ext]; ok {
			return lang, true
		}
	}
	return "", false
}

// LexerFor returns the chroma lexer name configured for a language key.
func (ld *LoadedLanguageData) LexerFor(lang string) string {
	if ld == nil {
		return ""
	}
	return ld.Langs[lang].Lexer
}
