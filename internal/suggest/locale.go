package suggest

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/blackwell-systems/bip/internal/prefs"
)

// Phrases is the complete set of fragments one locale contributes to
// generated messages. Every field must be non-empty.
type Phrases struct {
	JustCommitted    string
	Modified         string
	FileSingular     string
	FilePlural       string
	Lines            string
	CommitHashtags   string
	ProgressHeader   string
	TILHeader        string
	LearningHashtags string
	SessionHeader    string
	Using            string
	ToolSingular     string
	ToolPlural       string
	KeyChallenge     string
	Hashtag          string
}

type fragment struct {
	name  string
	value string
}

func (p *Phrases) fragments() []fragment {
	return []fragment{
		{"JustCommitted", p.JustCommitted},
		{"Modified", p.Modified},
		{"FileSingular", p.FileSingular},
		{"FilePlural", p.FilePlural},
		{"Lines", p.Lines},
		{"CommitHashtags", p.CommitHashtags},
		{"ProgressHeader", p.ProgressHeader},
		{"TILHeader", p.TILHeader},
		{"LearningHashtags", p.LearningHashtags},
		{"SessionHeader", p.SessionHeader},
		{"Using", p.Using},
		{"ToolSingular", p.ToolSingular},
		{"ToolPlural", p.ToolPlural},
		{"KeyChallenge", p.KeyChallenge},
		{"Hashtag", p.Hashtag},
	}
}

// Files renders a pluralized file count ("1 file", "3 files").
func (p *Phrases) Files(n int) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, p.FileSingular)
	}
	return fmt.Sprintf("%d %s", n, p.FilePlural)
}

// Tools renders a pluralized tool count.
func (p *Phrases) Tools(n int) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, p.ToolSingular)
	}
	return fmt.Sprintf("%d %s", n, p.ToolPlural)
}

// LocaleTable maps language tags to complete phrase rows.
type LocaleTable struct {
	rows     map[string]Phrases
	fallback string
}

// NewLocaleTable validates rows and returns a table that resolves unknown
// tags to fallback. Every row must be complete, the fallback row must exist,
// and so must a row for every tag in required.
func NewLocaleTable(fallback string, rows map[string]Phrases, required ...string) (*LocaleTable, error) {
	if _, ok := rows[fallback]; !ok {
		return nil, errors.Newf("locale table: no row for fallback locale %q", fallback)
	}
	for _, tag := range required {
		if _, ok := rows[tag]; !ok {
			return nil, errors.Newf("locale table: no row for supported locale %q", tag)
		}
	}

	copied := make(map[string]Phrases, len(rows))
	for tag, row := range rows {
		for _, f := range row.fragments() {
			if f.value == "" {
				return nil, errors.Newf("locale table: %s is missing phrase %s", tag, f.name)
			}
		}
		copied[tag] = row
	}
	return &LocaleTable{rows: copied, fallback: fallback}, nil
}

// MustLocaleTable is NewLocaleTable that panics on an incomplete table.
func MustLocaleTable(fallback string, rows map[string]Phrases, required ...string) *LocaleTable {
	t, err := NewLocaleTable(fallback, rows, required...)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the row for lang, or the fallback row if lang is empty
// or unknown.
func (t *LocaleTable) Resolve(lang string) Phrases {
	if row, ok := t.rows[lang]; ok {
		return row
	}
	return t.rows[t.fallback]
}

// Languages returns the tags in the table, sorted.
func (t *LocaleTable) Languages() []string {
	tags := make([]string, 0, len(t.rows))
	for tag := range t.rows {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

var builtinPhrases = map[string]Phrases{
	prefs.LanguageEnUS: {
		JustCommitted:    "Just committed",
		Modified:         "Modified",
		FileSingular:     "file",
		FilePlural:       "files",
		Lines:            "lines",
		CommitHashtags:   "#BuildInPublic #Coding",
		ProgressHeader:   "✅ Progress update:",
		TILHeader:        "💡 TIL (Today I Learned):",
		LearningHashtags: "#BuildInPublic #Learning",
		SessionHeader:    "Wrapped up a coding session! 🚀",
		Using:            "using",
		ToolSingular:     "tool",
		ToolPlural:       "different tools",
		KeyChallenge:     "Key challenge",
		Hashtag:          "#BuildInPublic",
	},
	prefs.LanguagePtBR: {
		JustCommitted:    "Acabei de commitar",
		Modified:         "Modifiquei",
		FileSingular:     "arquivo",
		FilePlural:       "arquivos",
		Lines:            "linhas",
		CommitHashtags:   "#BuildInPublic #Programação",
		ProgressHeader:   "✅ Atualização de progresso:",
		TILHeader:        "💡 TIL (Hoje eu aprendi):",
		LearningHashtags: "#BuildInPublic #Aprendizado",
		SessionHeader:    "Encerrei uma sessão de código! 🚀",
		Using:            "usando",
		ToolSingular:     "ferramenta",
		ToolPlural:       "ferramentas diferentes",
		KeyChallenge:     "Principal desafio",
		Hashtag:          "#BuildInPublic",
	},
}

// DefaultLocales is the built-in table. It is validated at package init.
var DefaultLocales = MustLocaleTable(prefs.DefaultLanguage, builtinPhrases, prefs.SupportedLanguages...)
