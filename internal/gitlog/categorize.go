package gitlog

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/bip/internal/session"
)

// Category names, in reporting order.
const (
	CategoryCode   = "Code"
	CategoryTests  = "Tests"
	CategoryDocs   = "Docs"
	CategoryConfig = "Config"
	CategoryOther  = "Other"
)

var categoryOrder = []string{CategoryCode, CategoryTests, CategoryDocs, CategoryConfig, CategoryOther}

var codeExtensions = []string{".ts", ".js", ".py", ".java", ".go", ".rs"}

// Category groups the files of a commit that share a kind.
type Category struct {
	Name  string
	Files []string
}

// Classify returns the category name for a single path. The checks run in
// priority order, so "config_test.go" is a test, not config.
func Classify(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "test"), strings.Contains(lower, "spec"):
		return CategoryTests
	case strings.HasSuffix(lower, ".md"), strings.Contains(lower, "readme"), strings.Contains(lower, "doc"):
		return CategoryDocs
	case strings.Contains(lower, "config"),
		strings.HasSuffix(lower, ".json"),
		strings.HasSuffix(lower, ".yaml"),
		strings.HasSuffix(lower, ".yml"):
		return CategoryConfig
	}
	for _, ext := range codeExtensions {
		if strings.HasSuffix(lower, ext) {
			return CategoryCode
		}
	}
	return CategoryOther
}

// CategorizeFiles groups files by Classify. Empty categories are omitted.
func CategorizeFiles(files []string) []Category {
	byName := make(map[string][]string)
	for _, f := range files {
		name := Classify(f)
		byName[name] = append(byName[name], f)
	}

	var out []Category
	for _, name := range categoryOrder {
		if fs := byName[name]; len(fs) > 0 {
			out = append(out, Category{Name: name, Files: fs})
		}
	}
	return out
}

// KeyChanges describes a commit's files as "Category: N file(s)" lines.
func KeyChanges(c session.GitCommit) []string {
	var out []string
	for _, cat := range CategorizeFiles(c.FilesChanged) {
		out = append(out, fmt.Sprintf("%s: %d file(s)", cat.Name, len(cat.Files)))
	}
	return out
}
