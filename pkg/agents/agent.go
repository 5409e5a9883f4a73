// Package agents discovers agent definitions stored as markdown files and
// aggregates their metadata into a registry that editor integrations consume.
package agents

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/devPermutations/agent-discovery/pkg/logger"
)

const markdownExt = ".md"

var (
	// headingPattern matches "# <Title> Agent" at the very start of the content.
	// The title never crosses a line terminator, CR and U+2028/U+2029 included.
	headingPattern = regexp.MustCompile(`^# ([^\n\r\x{2028}\x{2029}]+) Agent`)
	// whitespacePattern mirrors the JavaScript \s class so titles hyphenate the same way.
	whitespacePattern = regexp.MustCompile(`[\t\n\v\f\r\p{Z}\x{FEFF}]+`)
)

// Agent is the metadata extracted from a single agent markdown file
type Agent struct {
	Name        string `json:"name" jsonschema:"description=Derived agent key"`
	File        string `json:"file" jsonschema:"description=Path of the agent file relative to the repository root"`
	Description string `json:"description" jsonschema:"description=First descriptive line of the agent file"`
}

// ReadAgentFile loads the agent at path. The File field is expressed relative to repoRoot.
func ReadAgentFile(ctx context.Context, path, repoRoot string) (*Agent, error) {
	logger.G(ctx).WithField("path", path).Debug("Reading agent file")

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read agent file '%s'", path)
	}

	return ParseAgent(string(content), path, repoRoot), nil
}

// ParseAgent extracts agent metadata from already loaded content
func ParseAgent(content, path, repoRoot string) *Agent {
	name := extractName(content, path)

	description := extractDescription(content)
	if description == "" {
		description = defaultDescription(name)
	}

	return &Agent{
		Name:        name,
		File:        relativePath(repoRoot, path),
		Description: description,
	}
}

// extractName derives the agent key from the leading heading, falling back to the file name
func extractName(content, path string) string {
	if m := headingPattern.FindStringSubmatch(content); m != nil {
		title := cases.Lower(language.Und).String(m[1])
		return whitespacePattern.ReplaceAllString(title, "-")
	}

	base := filepath.Base(path)
	if base == markdownExt {
		return base
	}
	return strings.TrimSuffix(base, markdownExt)
}

// extractDescription returns the first line after the first one that is not
// blank, a heading or the start of an HTML comment
func extractDescription(content string) string {
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimFunc(lines[i], isSpace)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "<!--") {
			continue
		}
		return line
	}
	return ""
}

// isSpace reports whether r belongs to the same class as whitespacePattern.
// Unlike unicode.IsSpace it includes U+FEFF and excludes U+0085.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\uFEFF':
		return true
	}
	return unicode.Is(unicode.Z, r)
}

func defaultDescription(name string) string {
	return "Agent for " + name + " functionality"
}

// relativePath expresses path relative to root using forward slashes.
// If no relative form exists the cleaned path is returned as is.
func relativePath(root, path string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(path))
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(path))
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return filepath.ToSlash(absPath)
	}
	return filepath.ToSlash(rel)
}
